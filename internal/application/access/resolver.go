package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/playback-gate/internal/domain"
	jwtinfra "github.com/playback-gate/internal/infrastructure/jwt"
	"github.com/playback-gate/internal/pkg/clock"
)

// TokenVerifier validates an access token.
type TokenVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

// UserFetcher loads the user record behind a session.
type UserFetcher interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// SessionLookup loads the server-side record behind an access token.
type SessionLookup interface {
	Get(ctx context.Context, sessionID string) (*domain.ServerSession, error)
}

// Resolver derives a ViewerEntitlement from a viewer's session store. Nothing
// is cached: every call reads the store and the user record again.
type Resolver struct {
	tokens   TokenVerifier
	users    UserFetcher
	sessions SessionLookup
	clock    clock.Clock
}

// NewResolver builds a Resolver. A nil sessions skips the server session
// check, leaving token expiry as the only revocation.
func NewResolver(tokens TokenVerifier, users UserFetcher, sessions SessionLookup, c clock.Clock) *Resolver {
	if c == nil {
		c = clock.New()
	}
	return &Resolver{tokens: tokens, users: users, sessions: sessions, clock: c}
}

// Resolve never grants more than it can prove. On a fetch failure it returns
// the zero entitlement together with an error wrapping domain.ErrEntitlementFetch.
func (r *Resolver) Resolve(ctx context.Context, sessions domain.SessionStore) (domain.ViewerEntitlement, error) {
	var none domain.ViewerEntitlement
	if sessions == nil {
		return none, nil
	}
	sess, err := sessions.Load(ctx)
	if err != nil {
		return none, fmt.Errorf("%w: load session: %w", domain.ErrEntitlementFetch, err)
	}
	if !sess.Valid() {
		return none, nil
	}
	claims, err := r.tokens.Verify(sess.AccessToken)
	if err != nil {
		slog.Debug("access token rejected", "user_id", sess.UserID, "err", err)
		return none, nil
	}
	if claims.UserID != sess.UserID {
		slog.Warn("session user does not match token subject", "session_user_id", sess.UserID, "token_user_id", claims.UserID)
		return none, nil
	}
	if r.sessions != nil {
		live, err := r.sessions.Get(ctx, claims.SessionID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return none, fmt.Errorf("%w: fetch session %s: %w", domain.ErrEntitlementFetch, claims.SessionID, err)
		}
		if live == nil || !live.Enable || live.UserID != claims.UserID {
			slog.Debug("server session revoked", "user_id", claims.UserID, "session_id", claims.SessionID)
			return none, nil
		}
	}
	u, err := r.users.Get(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return none, nil
		}
		return none, fmt.Errorf("%w: fetch user %s: %w", domain.ErrEntitlementFetch, sess.UserID, err)
	}
	if !u.Enable {
		return none, nil
	}
	return domain.ViewerEntitlement{
		IsAuthenticated: true,
		IsSubscribed:    u.Subscribed(r.clock.Now()),
		IsVerified:      u.Verified,
	}, nil
}
