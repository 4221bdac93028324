package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/playback-gate/internal/infrastructure/jwt"
)

type contextKey string

const (
	claimsKey   contextKey = "claims"
	bearerKey   contextKey = "bearer"
	deviceIDKey contextKey = "device_id"
)

// TokenVerifier checks a bearer access token.
type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// Auth returns middleware that validates the Bearer JWT and injects claims into context.
func Auth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return authenticate(tokens, true)
}

// OptionalAuth lets anonymous requests through but still rejects a bearer
// that is present and invalid.
func OptionalAuth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return authenticate(tokens, false)
}

func authenticate(tokens TokenVerifier, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" && !required {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, r, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			bearer := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := tokens.Verify(bearer)
			if err != nil {
				writeJSONError(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := WithBearer(WithClaims(r.Context(), claims), bearer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}

func WithClaims(ctx context.Context, c *jwtinfra.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// WithBearer stores the raw access token that produced the request's claims.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey, token)
}

func BearerFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(bearerKey).(string)
	return t, ok && t != ""
}
