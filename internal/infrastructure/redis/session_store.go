// Package redis holds Redis-backed session stores and the resend throttle.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playback-gate/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "viewer:session:"

// SessionStores hands out a SessionStore per device id, persisted as JSON.
type SessionStores struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewSessionStores keeps sessions for ttl after their last write; zero means no expiry.
func NewSessionStores(client *goredis.Client, ttl time.Duration) *SessionStores {
	return &SessionStores{client: client, ttl: ttl}
}

func (s *SessionStores) For(deviceKey string) domain.SessionStore {
	return &sessionStore{client: s.client, key: sessionKeyPrefix + deviceKey, ttl: s.ttl}
}

type sessionStore struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
}

func (s *sessionStore) Store(ctx context.Context, sess domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *sessionStore) Load(ctx context.Context) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *sessionStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
