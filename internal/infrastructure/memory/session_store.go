// Package memory holds process-local implementations of storage capabilities.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/playback-gate/internal/domain"
	"github.com/playback-gate/internal/pkg/clock"
)

// SessionStore keeps a single Session in memory for one viewer.
type SessionStore struct {
	mu      sync.Mutex
	session *domain.Session
}

func NewSessionStore() *SessionStore { return &SessionStore{} }

func (s *SessionStore) Store(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &sess
	return nil
}

func (s *SessionStore) Load(_ context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, nil
	}
	cp := *s.session
	return &cp, nil
}

func (s *SessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

type deviceEntry struct {
	session  domain.Session
	lastSeen time.Time
}

// SessionStores keeps one Session per device key. A key only takes memory
// once a session is stored under it, and Sweep forgets keys idle for longer
// than the TTL.
type SessionStores struct {
	mu      sync.Mutex
	clock   clock.Clock
	ttl     time.Duration
	entries map[string]*deviceEntry
}

// NewSessionStores keeps sessions for ttl after their last use; zero means
// they are never swept. A nil clock uses the wall clock.
func NewSessionStores(c clock.Clock, ttl time.Duration) *SessionStores {
	if c == nil {
		c = clock.New()
	}
	return &SessionStores{clock: c, ttl: ttl, entries: make(map[string]*deviceEntry)}
}

func (s *SessionStores) For(deviceKey string) domain.SessionStore {
	return &deviceStore{stores: s, key: deviceKey}
}

func (s *SessionStores) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes every session idle for longer than the TTL and returns how
// many were removed.
func (s *SessionStores) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.clock.Now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (s *SessionStores) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Info("swept idle device sessions", "count", n)
			}
		}
	}
}

// deviceStore is the view of one device key. It holds no state of its own.
type deviceStore struct {
	stores *SessionStores
	key    string
}

func (d *deviceStore) Store(_ context.Context, sess domain.Session) error {
	s := d.stores
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[d.key] = &deviceEntry{session: sess, lastSeen: s.clock.Now()}
	return nil
}

func (d *deviceStore) Load(_ context.Context) (*domain.Session, error) {
	s := d.stores
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[d.key]
	if !ok {
		return nil, nil
	}
	e.lastSeen = s.clock.Now()
	cp := e.session
	return &cp, nil
}

func (d *deviceStore) Clear(_ context.Context) error {
	s := d.stores
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, d.key)
	return nil
}
