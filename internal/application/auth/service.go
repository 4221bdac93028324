// Package auth is the verification backend: it issues e-mailed passcodes and
// exchanges a correct passcode for a session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playback-gate/internal/domain"
	"github.com/playback-gate/internal/infrastructure/smtp"
	"github.com/playback-gate/internal/infrastructure/sns"
	"github.com/playback-gate/internal/pkg/clock"
	"github.com/playback-gate/internal/pkg/id"
	pkgtoken "github.com/playback-gate/internal/pkg/token"
	"github.com/playback-gate/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// Messages shown to the viewer when a code is refused.
const (
	MsgNoActiveCode    = "no active code, request a new one"
	MsgCodeExpired     = "this code has expired, request a new one"
	MsgTooManyAttempts = "too many incorrect attempts, request a new one"
	MsgIncorrectCode   = "incorrect code"
	MsgAccountDisabled = "this account is disabled"
)

type VerificationStore interface {
	Put(ctx context.Context, v *domain.VerificationCode) error
	Get(ctx context.Context, email, verType string) (*domain.VerificationCode, error)
	// ClaimAttempt atomically reserves one guess while fewer than limit have
	// been claimed, returning the new count or domain.ErrAttemptsExhausted.
	ClaimAttempt(ctx context.Context, email, verType string, limit int) (int, error)
	Delete(ctx context.Context, email, verType string) error
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	MarkVerified(ctx context.Context, userID string) error
}

type SessionStore interface {
	Put(ctx context.Context, s *domain.ServerSession) error
}

// Throttle limits how often a code can be sent to one address.
type Throttle interface {
	Acquire(ctx context.Context, email string) (bool, time.Duration, error)
	Release(ctx context.Context, email string) error
}

type TokenSigner interface {
	Sign(userID, sessionID string) (string, error)
}

// ServiceDeps groups the collaborators of the verification backend.
type ServiceDeps struct {
	VerificationRepo VerificationStore
	UserRepo         UserStore
	SessionRepo      SessionStore
	Mailer           smtp.Mailer
	Events           sns.Publisher
	JWTProvider      TokenSigner
	Throttle         Throttle
	Clock            clock.Clock

	CodeTTL         time.Duration
	MaxAttempts     int
	RefreshTokenDur time.Duration
	MailSubject     string
	// NextRoute is suggested to clients that did not ask for a destination.
	NextRoute string
	HashCost  int
}

type Service interface {
	// RequestCode e-mails a fresh code and returns a confirmation message.
	RequestCode(ctx context.Context, email string) (string, error)
	// RequestResend is RequestCode under the name the verification flow uses.
	RequestResend(ctx context.Context, email string) (string, error)
	VerifyCode(ctx context.Context, email, code string) (*domain.VerificationResult, error)
}

type service struct {
	ServiceDeps
}

func NewService(deps ServiceDeps) Service {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.CodeTTL <= 0 {
		deps.CodeTTL = 15 * time.Minute
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = 5
	}
	if deps.RefreshTokenDur <= 0 {
		deps.RefreshTokenDur = 30 * 24 * time.Hour
	}
	if deps.MailSubject == "" {
		deps.MailSubject = "Your verification code"
	}
	if deps.HashCost == 0 {
		deps.HashCost = bcrypt.DefaultCost
	}
	return &service{ServiceDeps: deps}
}

func (s *service) RequestCode(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if !validate.Email(email) {
		return "", domain.ErrInvalidEmail
	}

	ok, wait, err := s.Throttle.Acquire(ctx, email)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &domain.FlowError{
			Kind:    domain.ErrCooldownActive,
			Message: fmt.Sprintf("please wait %d seconds before requesting a new code", int(wait.Round(time.Second)/time.Second)),
		}
	}

	code, err := pkgtoken.Digits(domain.CodeLength)
	if err != nil {
		s.release(ctx, email)
		return "", fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.HashCost)
	if err != nil {
		s.release(ctx, email)
		return "", fmt.Errorf("hash code: %w", err)
	}
	v := &domain.VerificationCode{
		Email:     email,
		Type:      domain.VerificationTypeOTP,
		CodeHash:  string(hash),
		ExpiresAt: s.Clock.Now().Add(s.CodeTTL).Unix(),
	}
	if err := s.VerificationRepo.Put(ctx, v); err != nil {
		s.release(ctx, email)
		return "", fmt.Errorf("store code: %w", err)
	}
	if err := s.Mailer.SendEmail(email, s.MailSubject, smtp.CodeBody(code, s.CodeTTL)); err != nil {
		s.release(ctx, email)
		return "", err
	}
	slog.Info("verification code sent", "email", email)
	return "A new code was sent to " + email, nil
}

func (s *service) RequestResend(ctx context.Context, email string) (string, error) {
	return s.RequestCode(ctx, email)
}

func (s *service) VerifyCode(ctx context.Context, email, code string) (*domain.VerificationResult, error) {
	email = normalizeEmail(email)
	if len(code) != domain.CodeLength {
		return nil, domain.ErrIncompleteCode
	}

	v, err := s.VerificationRepo.Get(ctx, email, domain.VerificationTypeOTP)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Rejected(MsgNoActiveCode)
		}
		return nil, fmt.Errorf("load code: %w", err)
	}
	if v.ExpiresAt < s.Clock.Now().Unix() {
		s.discard(ctx, email)
		return nil, domain.Rejected(MsgCodeExpired)
	}
	n, err := s.VerificationRepo.ClaimAttempt(ctx, email, domain.VerificationTypeOTP, s.MaxAttempts)
	if err != nil {
		if errors.Is(err, domain.ErrAttemptsExhausted) {
			s.discard(ctx, email)
			return nil, domain.Rejected(MsgTooManyAttempts)
		}
		return nil, fmt.Errorf("claim attempt: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(v.CodeHash), []byte(code)) != nil {
		if n >= s.MaxAttempts {
			s.discard(ctx, email)
			return nil, domain.Rejected(MsgTooManyAttempts)
		}
		return nil, domain.Rejected(MsgIncorrectCode)
	}
	s.discard(ctx, email)

	u, err := s.userFor(ctx, email)
	if err != nil {
		return nil, err
	}
	if !u.Enable {
		return nil, domain.Rejected(MsgAccountDisabled)
	}

	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now().UTC()
	sess := &domain.ServerSession{
		SessionID:        id.NewAt(now),
		UserID:           u.UserID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.RefreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.SessionRepo.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	bearer, err := s.JWTProvider.Sign(u.UserID, sess.SessionID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	if s.Events != nil {
		ev := domain.Event{
			Type:       domain.EventViewerVerified,
			OccurredAt: now,
			Attributes: map[string]string{"user_id": u.UserID, "session_id": sess.SessionID},
		}
		if err := s.Events.Publish(ctx, ev); err != nil {
			slog.Warn("failed to publish event", "type", ev.Type, "user_id", u.UserID, "err", err)
		}
	}

	return &domain.VerificationResult{
		AccessToken:  bearer,
		RefreshToken: refreshToken,
		UserID:       u.UserID,
		NextRoute:    s.NextRoute,
	}, nil
}

// userFor returns the user owning email, creating it on first verification.
func (s *service) userFor(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.UserRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !u.Verified && u.Enable {
			if err := s.UserRepo.MarkVerified(ctx, u.UserID); err != nil {
				return nil, fmt.Errorf("mark user verified: %w", err)
			}
			u.Verified = true
		}
		return u, nil
	case errors.Is(err, domain.ErrNotFound):
		now := s.Clock.Now().UTC()
		u = &domain.User{
			UserID:    id.NewAt(now),
			Email:     email,
			Verified:  true,
			Enable:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.UserRepo.Put(ctx, u); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		slog.Info("user created", "user_id", u.UserID)
		return u, nil
	default:
		return nil, fmt.Errorf("load user: %w", err)
	}
}

func (s *service) discard(ctx context.Context, email string) {
	if err := s.VerificationRepo.Delete(ctx, email, domain.VerificationTypeOTP); err != nil {
		slog.Warn("failed to delete verification code", "email", email, "err", err)
	}
}

func (s *service) release(ctx context.Context, email string) {
	if err := s.Throttle.Release(ctx, email); err != nil {
		slog.Warn("failed to release resend window", "email", email, "err", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
