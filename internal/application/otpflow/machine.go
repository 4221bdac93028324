package otpflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/playback-gate/internal/domain"
	"github.com/playback-gate/internal/pkg/clock"
	"github.com/playback-gate/internal/pkg/countdown"
	"github.com/playback-gate/internal/pkg/validate"
)

type State string

const (
	StateAwaitingEmail State = "awaiting_email"
	StateCodeEntry     State = "code_entry"
	StateSubmitting    State = "submitting"
	StateVerified      State = "verified"
	StateClosed        State = "closed"
)

// DefaultCooldown is the wait before a code may be re-sent.
const DefaultCooldown = 60 * time.Second

const (
	defaultFailureMessage = "verification failed"
	resendFailureMessage  = "could not send a new code"
)

// Verifier is the remote verification collaborator.
type Verifier interface {
	VerifyCode(ctx context.Context, email, code string) (*domain.VerificationResult, error)
	RequestResend(ctx context.Context, email string) (string, error)
}

// Config holds the dependencies of a Machine.
type Config struct {
	Verifier Verifier
	Sessions domain.SessionStore
	Clock    clock.Clock
	Cooldown time.Duration
	// Destination is reported after a successful verification. When empty the
	// route suggested by the verifier is used.
	Destination string
	Logger      *slog.Logger
}

// Snapshot is everything needed to render the verification screen.
type Snapshot struct {
	State             State    `json:"state"`
	Email             string   `json:"email,omitempty"`
	Digits            []string `json:"digits"`
	CooldownRemaining int      `json:"cooldown_remaining"`
	CanResend         bool     `json:"can_resend"`
	Message           string   `json:"message,omitempty"`
}

// Result describes a successful submission.
type Result struct {
	Session     domain.Session
	Destination string
}

// Machine is one email verification attempt. It is not reusable across
// attempts; create a new Machine per flow.
type Machine struct {
	mu        sync.Mutex
	cfg       Config
	log       *slog.Logger
	state     State
	email     string
	digits    [domain.CodeLength]string
	remaining int
	canResend bool
	resending bool
	message   string
	cooldown  *countdown.Handle
	gen       int
}

func New(cfg Config) *Machine {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Machine{cfg: cfg, log: log, state: StateAwaitingEmail}
}

// Initialize binds the flow to email and starts the resend cooldown.
func (m *Machine) Initialize(email string) error {
	email = strings.TrimSpace(email)
	if !validate.Email(email) {
		return domain.ErrInvalidEmail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAwaitingEmail {
		return fmt.Errorf("initialize from %s: %w", m.state, domain.ErrInvalidState)
	}
	m.email = email
	m.state = StateCodeEntry
	m.startCooldownLocked()
	return nil
}

// RestartCooldown runs the resend countdown again from its full length.
// It does nothing outside code entry.
func (m *Machine) RestartCooldown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateCodeEntry {
		return
	}
	m.startCooldownLocked()
}

// EnterDigit places digit at position. Anything other than a single numeral
// at positions 0..5 is ignored, as is input outside code entry. Filling
// position 5 with all positions set submits the code; the returned Result is
// non-nil only when that submission succeeded.
func (m *Machine) EnterDigit(ctx context.Context, position int, digit string) (*Result, error) {
	if position < 0 || position >= domain.CodeLength || !isNumeral(digit) {
		return nil, nil
	}
	m.mu.Lock()
	if m.state != StateCodeEntry {
		m.mu.Unlock()
		return nil, nil
	}
	m.digits[position] = digit
	complete := position == domain.CodeLength-1 && m.completeLocked()
	m.mu.Unlock()

	if !complete {
		return nil, nil
	}
	return m.Submit(ctx)
}

// Submit exchanges the entered code for a session.
func (m *Machine) Submit(ctx context.Context) (*Result, error) {
	m.mu.Lock()
	switch m.state {
	case StateSubmitting:
		m.mu.Unlock()
		return nil, domain.ErrRequestInProgress
	case StateCodeEntry:
		if m.resending {
			m.mu.Unlock()
			return nil, domain.ErrRequestInProgress
		}
	default:
		st := m.state
		m.mu.Unlock()
		return nil, fmt.Errorf("submit from %s: %w", st, domain.ErrInvalidState)
	}
	if !m.completeLocked() {
		m.mu.Unlock()
		return nil, domain.ErrIncompleteCode
	}
	m.state = StateSubmitting
	m.message = ""
	email, code := m.email, strings.Join(m.digits[:], "")
	m.mu.Unlock()

	res, err := m.cfg.Verifier.VerifyCode(ctx, email, code)
	var sess domain.Session
	if err == nil && res == nil {
		err = domain.Rejected(defaultFailureMessage)
	}
	if err == nil {
		sess = domain.Session{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, UserID: res.UserID}
		if !sess.Valid() {
			err = domain.Rejected(defaultFailureMessage)
		} else if m.cfg.Sessions != nil {
			if sErr := m.cfg.Sessions.Store(ctx, sess); sErr != nil {
				m.log.Error("failed to persist session", "user_id", sess.UserID, "err", sErr)
				err = &domain.FlowError{Kind: domain.ErrNetwork, Message: defaultFailureMessage}
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateSubmitting {
		// Closed while the exchange was in flight.
		return nil, fmt.Errorf("submit: %w", domain.ErrInvalidState)
	}
	if err != nil {
		fe := normalize(err, defaultFailureMessage)
		m.state = StateCodeEntry
		m.message = fe.Message
		m.log.Info("verification failed", "email", email, "err", err)
		return nil, fe
	}

	m.state = StateVerified
	m.message = ""
	m.clearIdentityLocked()
	m.stopCooldownLocked()
	dest := m.cfg.Destination
	if dest == "" {
		dest = res.NextRoute
	}
	return &Result{Session: sess, Destination: dest}, nil
}

// Resend requests a new code once the cooldown has elapsed.
func (m *Machine) Resend(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.state != StateCodeEntry {
		st := m.state
		m.mu.Unlock()
		return "", fmt.Errorf("resend from %s: %w", st, domain.ErrInvalidState)
	}
	if !m.canResend {
		m.mu.Unlock()
		return "", domain.ErrCooldownActive
	}
	if m.resending {
		m.mu.Unlock()
		return "", domain.ErrRequestInProgress
	}
	m.resending = true
	email := m.email
	m.mu.Unlock()

	confirmation, err := m.cfg.Verifier.RequestResend(ctx, email)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.resending = false
	if m.state == StateClosed {
		return "", fmt.Errorf("resend: %w", domain.ErrInvalidState)
	}
	if err != nil {
		fe := normalize(err, resendFailureMessage)
		m.message = fe.Message
		return "", fe
	}
	m.digits = [domain.CodeLength]string{}
	m.message = confirmation
	m.startCooldownLocked()
	return confirmation, nil
}

// Close abandons the flow and cancels its timers.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCooldownLocked()
	m.clearIdentityLocked()
	m.state = StateClosed
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	digits := make([]string, domain.CodeLength)
	copy(digits, m.digits[:])
	return Snapshot{
		State:             m.state,
		Email:             m.email,
		Digits:            digits,
		CooldownRemaining: m.remaining,
		CanResend:         m.canResend,
		Message:           m.message,
	}
}

func (m *Machine) startCooldownLocked() {
	m.stopCooldownLocked()
	m.gen++
	gen := m.gen
	seconds := int(m.cfg.Cooldown / time.Second)
	m.remaining = seconds
	m.canResend = false
	m.cooldown = countdown.Start(m.cfg.Clock, seconds,
		func(remaining int) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.gen == gen {
				m.remaining = remaining
			}
		},
		func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.gen == gen {
				m.remaining = 0
				m.canResend = true
			}
		},
	)
}

func (m *Machine) stopCooldownLocked() {
	m.gen++
	m.cooldown.Cancel()
	m.cooldown = nil
}

func (m *Machine) completeLocked() bool {
	for _, d := range m.digits {
		if d == "" {
			return false
		}
	}
	return true
}

func (m *Machine) clearIdentityLocked() {
	m.email = ""
	m.digits = [domain.CodeLength]string{}
}

func isNumeral(s string) bool {
	return len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}

// normalize turns any collaborator error into a displayable FlowError.
func normalize(err error, fallback string) *domain.FlowError {
	var fe *domain.FlowError
	if errors.As(err, &fe) {
		msg := fe.Message
		if msg == "" {
			msg = fallback
		}
		kind := fe.Kind
		if kind == nil {
			kind = domain.ErrVerificationRejected
		}
		return &domain.FlowError{Kind: kind, Message: msg}
	}
	return &domain.FlowError{Kind: domain.ErrNetwork, Message: fallback}
}
