package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/playback-gate/internal/config"
	"github.com/playback-gate/internal/transport/http/handler"
	appmiddleware "github.com/playback-gate/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", appmiddleware.DeviceHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := func(next http.Handler) http.Handler { return next }
	optionalAuth := authMw
	if deps.Tokens != nil {
		authMw = appmiddleware.Auth(deps.Tokens)
		optionalAuth = appmiddleware.OptionalAuth(deps.Tokens)
	}
	limit := func(next http.Handler) http.Handler { return next }
	if deps.Limiter != nil {
		limit = deps.Limiter.Limit
	}

	healthH := handler.NewHealthHandler()
	playbackH := handler.NewPlaybackHandler(deps.Playback, deps.Stores)
	verifyH := handler.NewVerificationHandler(deps.Playback, deps.Stores)
	sessionH := handler.NewSessionHandler(deps.Sessions, deps.Stores)
	userH := handler.NewUserHandler(deps.Users)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check", healthH.Check)
		r.Get("/health-check/{action}", healthH.Ping)

		r.With(optionalAuth, appmiddleware.OptionalDevice).Post("/playback/{contentID}", playbackH.Request)

		r.Route("/ad-sessions/{id}", func(r chi.Router) {
			r.Get("/", playbackH.GetAdSession)
			r.Post("/skip", playbackH.Skip)
			r.Post("/ended", playbackH.Ended)
			r.Delete("/", playbackH.CloseAdSession)
		})

		r.With(limit, appmiddleware.RequireDevice).Post("/verification", verifyH.Start)
		r.Route("/verification/{id}", func(r chi.Router) {
			r.Get("/", verifyH.Get)
			r.With(limit).Put("/digits/{position}", verifyH.EnterDigit)
			r.With(limit).Post("/submit", verifyH.Submit)
			r.With(limit).Post("/resend", verifyH.Resend)
			r.Delete("/", verifyH.Close)
		})

		r.With(limit, appmiddleware.OptionalDevice).Post("/sessions/refresh", sessionH.Refresh)
		r.With(authMw, appmiddleware.OptionalDevice).Post("/sessions/logout", sessionH.Logout)
		r.With(authMw).Get("/me", userH.Me)
	})

	return r
}
