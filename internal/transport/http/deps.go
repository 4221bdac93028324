package http

import (
	"github.com/playback-gate/internal/application/session"
	"github.com/playback-gate/internal/application/user"
	"github.com/playback-gate/internal/transport/http/handler"
	appmiddleware "github.com/playback-gate/internal/transport/http/middleware"
)

// Deps holds the services the router exposes.
type Deps struct {
	Playback handler.PlaybackService
	Sessions session.Service
	Users    user.Service
	// Stores resolves the viewer session store for the X-Device-ID header.
	Stores handler.SessionStores
	Tokens appmiddleware.TokenVerifier
	// Limiter guards the public verification endpoints. Nil disables it.
	Limiter *appmiddleware.RateLimiter
}
