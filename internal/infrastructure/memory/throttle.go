package memory

import (
	"context"
	"sync"
	"time"

	"github.com/playback-gate/internal/pkg/clock"
)

// Throttle is the process-local counterpart of the Redis resend throttle.
type Throttle struct {
	mu     sync.Mutex
	clock  clock.Clock
	window time.Duration
	until  map[string]time.Time
}

func NewThrottle(c clock.Clock, window time.Duration) *Throttle {
	return &Throttle{clock: c, window: window, until: make(map[string]time.Time)}
}

func (t *Throttle) Acquire(_ context.Context, email string) (bool, time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	if u, ok := t.until[email]; ok && now.Before(u) {
		return false, u.Sub(now), nil
	}
	t.until[email] = now.Add(t.window)
	return true, 0, nil
}

func (t *Throttle) Release(_ context.Context, email string) error {
	t.mu.Lock()
	delete(t.until, email)
	t.mu.Unlock()
	return nil
}
