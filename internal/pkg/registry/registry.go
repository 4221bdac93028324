// Package registry keeps per-viewer state machines addressable by id and
// closes the ones a client abandoned.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/playback-gate/internal/pkg/clock"
	"github.com/playback-gate/internal/pkg/id"
)

// Closer is implemented by every registered state machine. Close must cancel
// all outstanding timers.
type Closer interface {
	Close()
}

type entry[T Closer] struct {
	value    T
	lastSeen time.Time
}

// Registry maps ULIDs to live instances with an idle TTL.
type Registry[T Closer] struct {
	mu      sync.Mutex
	name    string
	clock   clock.Clock
	ttl     time.Duration
	entries map[string]*entry[T]
	observe func(n int)
}

func New[T Closer](name string, c clock.Clock, ttl time.Duration) *Registry[T] {
	return &Registry[T]{
		name:    name,
		clock:   c,
		ttl:     ttl,
		entries: make(map[string]*entry[T]),
	}
}

// Observe registers f to receive the registry size after every change.
// Call it before the registry is shared.
func (r *Registry[T]) Observe(f func(n int)) {
	r.observe = f
}

// Put registers v and returns its id.
func (r *Registry[T]) Put(v T) string {
	now := r.clock.Now()
	key := id.NewAt(now)
	r.mu.Lock()
	r.entries[key] = &entry[T]{value: v, lastSeen: now}
	n := len(r.entries)
	r.mu.Unlock()
	r.report(n)
	return key
}

// Get returns the instance for key and refreshes its idle timer.
func (r *Registry[T]) Get(key string) (T, bool) {
	if !id.Valid(key) {
		var zero T
		return zero, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	e.lastSeen = r.clock.Now()
	return e.value, true
}

// Remove closes and forgets the instance for key.
func (r *Registry[T]) Remove(key string) bool {
	r.mu.Lock()
	e, ok := r.entries[key]
	delete(r.entries, key)
	n := len(r.entries)
	r.mu.Unlock()
	if ok {
		e.value.Close()
		r.report(n)
	}
	return ok
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep closes every instance idle for longer than the TTL and returns how
// many were removed.
func (r *Registry[T]) Sweep() int {
	cutoff := r.clock.Now().Add(-r.ttl)
	var expired []T
	r.mu.Lock()
	for key, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.value)
			delete(r.entries, key)
		}
	}
	n := len(r.entries)
	r.mu.Unlock()
	for _, v := range expired {
		v.Close()
	}
	if len(expired) > 0 {
		r.report(n)
	}
	return len(expired)
}

// CloseAll closes and forgets every instance.
func (r *Registry[T]) CloseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry[T])
	r.mu.Unlock()
	for _, e := range entries {
		e.value.Close()
	}
	r.report(0)
}

// Run sweeps every interval until ctx is cancelled, then closes everything.
func (r *Registry[T]) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return nil
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				slog.Info("swept idle entries", "registry", r.name, "count", n)
			}
		}
	}
}

func (r *Registry[T]) report(n int) {
	if r.observe != nil {
		r.observe(n)
	}
}
