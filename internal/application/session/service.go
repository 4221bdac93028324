package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playback-gate/internal/domain"
	"github.com/playback-gate/internal/pkg/clock"
	pkgtoken "github.com/playback-gate/internal/pkg/token"
)

type SessionStore interface {
	GetByRefreshToken(ctx context.Context, token string) (*domain.ServerSession, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
	Disable(ctx context.Context, sessionID string) error
}

type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type TokenSigner interface {
	Sign(userID, sessionID string) (string, error)
}

type Service interface {
	// Refresh rotates the refresh token and issues a new access token.
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

type service struct {
	sessionRepo     SessionStore
	userRepo        UserStore
	jwtProvider     TokenSigner
	clock           clock.Clock
	refreshTokenDur time.Duration
}

func NewService(sessionRepo SessionStore, userRepo UserStore, jwtProvider TokenSigner, c clock.Clock, refreshTokenDur time.Duration) Service {
	if c == nil {
		c = clock.New()
	}
	return &service{
		sessionRepo:     sessionRepo,
		userRepo:        userRepo,
		jwtProvider:     jwtProvider,
		clock:           c,
		refreshTokenDur: refreshTokenDur,
	}
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token required: %w", domain.ErrUnauthorized)
	}
	sess, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthorized) {
			return nil, fmt.Errorf("invalid or expired refresh token: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	now := s.clock.Now()
	if sess.RefreshExpiresAt < now.Unix() {
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user not found: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}

	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.RotateRefreshToken(ctx, sess.SessionID, newToken, now.Add(s.refreshTokenDur).Unix()); err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, sess.SessionID)
	if err != nil {
		return nil, err
	}
	return &domain.Session{AccessToken: bearer, RefreshToken: newToken, UserID: u.UserID}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Disable(ctx, sessionID)
}
