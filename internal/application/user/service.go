package user

import (
	"context"
	"fmt"

	"github.com/playback-gate/internal/domain"
	"github.com/playback-gate/internal/pkg/clock"
)

// Profile is what a signed-in viewer sees about their own account.
type Profile struct {
	User        *domain.User             `json:"user"`
	Entitlement domain.ViewerEntitlement `json:"entitlement"`
}

type Service interface {
	Get(ctx context.Context, userID string) (*Profile, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type service struct {
	repo  userStore
	clock clock.Clock
}

func NewService(repo userStore, c clock.Clock) Service {
	if c == nil {
		c = clock.New()
	}
	return &service{repo: repo, clock: c}
}

func (s *service) Get(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Enable {
		return nil, fmt.Errorf("user %s disabled: %w", userID, domain.ErrUnauthorized)
	}
	return &Profile{
		User: u,
		Entitlement: domain.ViewerEntitlement{
			IsAuthenticated: true,
			IsSubscribed:    u.Subscribed(s.clock.Now()),
			IsVerified:      u.Verified,
		},
	}, nil
}
