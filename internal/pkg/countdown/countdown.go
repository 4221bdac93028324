// Package countdown delivers a per-second countdown with explicit cancellation.
package countdown

import (
	"sync"
	"time"

	"github.com/playback-gate/internal/pkg/clock"
)

// Handle identifies a running countdown.
type Handle struct {
	mu         sync.Mutex
	clock      clock.Clock
	timer      clock.Timer
	remaining  int
	done       bool
	onTick     func(remaining int)
	onComplete func()
}

// Start counts down from totalSeconds. onTick receives the remaining seconds
// after each elapsed second while remaining > 0; onComplete fires once when
// remaining reaches 0. Either callback may be nil.
//
// The next tick is scheduled only after the previous callback returns, so
// ticks are strictly ordered.
func Start(c clock.Clock, totalSeconds int, onTick func(remaining int), onComplete func()) *Handle {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	h := &Handle{
		clock:      c,
		remaining:  totalSeconds,
		onTick:     onTick,
		onComplete: onComplete,
	}
	h.mu.Lock()
	if totalSeconds == 0 {
		h.timer = c.AfterFunc(0, h.complete)
	} else {
		h.timer = c.AfterFunc(time.Second, h.fire)
	}
	h.mu.Unlock()
	return h
}

// Cancel stops delivery of further ticks. Safe to call more than once and
// after completion.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return
	}
	h.done = true
	if h.timer != nil {
		h.timer.Stop()
	}
}

// Cancel stops h. A nil handle is ignored.
func Cancel(h *Handle) { h.Cancel() }

// Remaining reports the seconds left.
func (h *Handle) Remaining() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.remaining
}

// Done reports whether the countdown completed or was cancelled.
func (h *Handle) Done() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}

func (h *Handle) fire() {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	h.remaining--
	remaining := h.remaining
	if remaining <= 0 {
		h.remaining = 0
		h.done = true
		h.mu.Unlock()
		if h.onComplete != nil {
			h.onComplete()
		}
		return
	}
	h.mu.Unlock()

	if h.onTick != nil {
		h.onTick(remaining)
	}

	h.mu.Lock()
	if !h.done {
		h.timer = h.clock.AfterFunc(time.Second, h.fire)
	}
	h.mu.Unlock()
}

func (h *Handle) complete() {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	h.done = true
	h.mu.Unlock()
	if h.onComplete != nil {
		h.onComplete()
	}
}
