// Package preroll plays at most one advertisement before content and hands
// playback over to the content player exactly once.
package preroll

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/playback-gate/internal/domain"
	"github.com/playback-gate/internal/pkg/clock"
	"github.com/playback-gate/internal/pkg/countdown"
)

type State string

const (
	StateIdle          State = "idle"
	StateSelecting     State = "selecting"
	StatePlaying       State = "playing"
	StateSkippableWait State = "skippable_wait"
	StateSkipped       State = "skipped"
	StateEnded         State = "ended"
	StateHandedOff     State = "handed_off"
)

type HandOffReason string

const (
	ReasonSkipped HandOffReason = "skipped"
	ReasonEnded   HandOffReason = "ended"
	ReasonNoAd    HandOffReason = "no_ad"
)

// DefaultMinimumWatch is how long an ad plays before it can be skipped.
const DefaultMinimumWatch = 5 * time.Second

// HandOff is delivered when the content player should begin.
type HandOff struct {
	Reason         HandOffReason
	Advertisement  *domain.Advertisement
	ElapsedSeconds int
}

// Selector picks the index of the ad to play among n > 0 candidates.
type Selector func(n int) int

// RandomSelector picks uniformly at random.
func RandomSelector(n int) int { return rand.IntN(n) }

type Config struct {
	Clock        clock.Clock
	MinimumWatch time.Duration
	Selector     Selector
	// OnHandOff runs at most once, outside the controller lock.
	OnHandOff func(HandOff)
	Logger    *slog.Logger
}

// Snapshot is the render-facing state of a controller.
type Snapshot struct {
	State State `json:"state"`
	domain.AdSession
	HandOffReason HandOffReason `json:"hand_off_reason,omitempty"`
}

// Controller is one ad session. Create a new Controller per playback.
type Controller struct {
	mu           sync.Mutex
	cfg          Config
	log          *slog.Logger
	state        State
	ad           *domain.Advertisement
	elapsed      int
	minimum      int
	skipUnlocked bool
	closed       bool
	reason       HandOffReason
	countdown    *countdown.Handle
	gen          int
	handOff      sync.Once
}

func New(cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.MinimumWatch <= 0 {
		cfg.MinimumWatch = DefaultMinimumWatch
	}
	if cfg.Selector == nil {
		cfg.Selector = RandomSelector
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		cfg:     cfg,
		log:     log,
		state:   StateIdle,
		minimum: int(cfg.MinimumWatch / time.Second),
	}
}

// Start selects an ad among candidates and begins the skip countdown. With no
// candidates the controller hands off immediately.
func (c *Controller) Start(candidates []domain.Advertisement) error {
	c.mu.Lock()
	if c.state != StateIdle || c.closed {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("start from %s: %w", st, domain.ErrInvalidState)
	}
	if len(candidates) == 0 {
		c.mu.Unlock()
		c.finish(ReasonNoAd)
		return nil
	}
	c.state = StateSelecting
	idx := c.cfg.Selector(len(candidates))
	if idx < 0 || idx >= len(candidates) {
		c.log.Warn("selector returned out of range index", "index", idx, "candidates", len(candidates))
		idx = 0
	}
	ad := candidates[idx]
	c.ad = &ad
	c.elapsed = 0
	c.skipUnlocked = false
	c.state = StatePlaying
	c.startCountdownLocked()
	c.mu.Unlock()
	return nil
}

// Skip hands off once the skip affordance is unlocked. Earlier calls are
// no-ops. It reports whether this call triggered the hand-off.
func (c *Controller) Skip() bool {
	c.mu.Lock()
	if c.closed || !c.skipUnlocked || c.state != StateSkippableWait {
		c.mu.Unlock()
		return false
	}
	c.state = StateSkipped
	c.stopCountdownLocked()
	c.mu.Unlock()
	return c.finish(ReasonSkipped)
}

// OnAdEnded handles the natural end of the ad media.
func (c *Controller) OnAdEnded() bool {
	c.mu.Lock()
	if c.closed || (c.state != StatePlaying && c.state != StateSkippableWait) {
		c.mu.Unlock()
		return false
	}
	c.state = StateEnded
	c.stopCountdownLocked()
	c.mu.Unlock()
	return c.finish(ReasonEnded)
}

// Close cancels the countdown without handing off.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopCountdownLocked()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ad *domain.Advertisement
	if c.ad != nil {
		cp := *c.ad
		ad = &cp
	}
	return Snapshot{
		State: c.state,
		AdSession: domain.AdSession{
			Advertisement:       ad,
			ElapsedSeconds:      c.elapsed,
			MinimumWatchSeconds: c.minimum,
			SkipUnlocked:        c.skipUnlocked,
			IsActive:            !c.closed && (c.state == StatePlaying || c.state == StateSkippableWait),
		},
		HandOffReason: c.reason,
	}
}

// finish is the single hand-off latch.
func (c *Controller) finish(reason HandOffReason) bool {
	fired := false
	c.handOff.Do(func() {
		fired = true
		c.mu.Lock()
		c.state = StateHandedOff
		c.reason = reason
		ev := HandOff{Reason: reason, Advertisement: c.ad, ElapsedSeconds: c.elapsed}
		c.mu.Unlock()
		if c.cfg.OnHandOff != nil {
			c.cfg.OnHandOff(ev)
		}
	})
	return fired
}

func (c *Controller) startCountdownLocked() {
	c.stopCountdownLocked()
	gen := c.gen
	c.countdown = countdown.Start(c.cfg.Clock, c.minimum,
		func(remaining int) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.gen == gen && c.state == StatePlaying {
				c.elapsed = c.minimum - remaining
			}
		},
		func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.gen == gen && c.state == StatePlaying {
				c.elapsed = c.minimum
				c.skipUnlocked = true
				c.state = StateSkippableWait
			}
		},
	)
}

func (c *Controller) stopCountdownLocked() {
	c.gen++
	c.countdown.Cancel()
	c.countdown = nil
}
