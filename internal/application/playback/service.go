// Package playback routes a content request through the access decision to
// the pre-roll ad, the content player or the verification flow.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playback-gate/internal/application/access"
	"github.com/playback-gate/internal/application/otpflow"
	"github.com/playback-gate/internal/application/preroll"
	"github.com/playback-gate/internal/domain"
	"github.com/playback-gate/internal/infrastructure/metrics"
	"github.com/playback-gate/internal/infrastructure/sns"
	"github.com/playback-gate/internal/pkg/clock"
	"github.com/playback-gate/internal/pkg/registry"
	"golang.org/x/sync/errgroup"
)

const (
	flowKindVerification = "verification"
	flowKindAdSession    = "ad_session"
)

type ContentCatalog interface {
	Get(ctx context.Context, contentID string) (*domain.Content, error)
}

type EntitlementResolver interface {
	Resolve(ctx context.Context, sessions domain.SessionStore) (domain.ViewerEntitlement, error)
}

type AdCandidates interface {
	Candidates(ctx context.Context) ([]domain.Advertisement, error)
}

// CodeIssuer is the verification backend as the orchestrator sees it.
type CodeIssuer interface {
	otpflow.Verifier
	RequestCode(ctx context.Context, email string) (string, error)
}

type Config struct {
	Catalog      ContentCatalog
	Entitlements EntitlementResolver
	Ads          AdCandidates
	Verifier     CodeIssuer
	Events       sns.Publisher
	Clock        clock.Clock

	Cooldown     time.Duration
	MinimumWatch time.Duration
	// ContentRoute is a fmt pattern taking the content id.
	ContentRoute string
	AuthRoute    string
	BillingRoute string
	FlowTTL      time.Duration
	AdSessionTTL time.Duration
	Selector     preroll.Selector
}

// PlaybackResult tells the client what to do with a content request.
type PlaybackResult struct {
	Decision  domain.Decision `json:"decision"`
	ContentID string          `json:"content_id"`
	// RedirectTo and ReturnTo are set for redirect decisions.
	RedirectTo string `json:"redirect_to,omitempty"`
	ReturnTo   string `json:"return_to,omitempty"`
	// StartPlayback is true when the content player may begin immediately.
	StartPlayback bool              `json:"start_playback"`
	AdSessionID   string            `json:"ad_session_id,omitempty"`
	AdSession     *preroll.Snapshot `json:"ad_session,omitempty"`
}

// VerificationStart describes a newly opened verification flow.
type VerificationStart struct {
	FlowID   string           `json:"flow_id"`
	Snapshot otpflow.Snapshot `json:"verification"`
	// Notice carries the backend confirmation or, when a code was sent
	// recently, the reason no new one went out.
	Notice string `json:"notice,omitempty"`
}

type Service struct {
	cfg   Config
	flows *registry.Registry[*otpflow.Machine]
	ads   *registry.Registry[*preroll.Controller]
}

func NewService(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.FlowTTL <= 0 {
		cfg.FlowTTL = 30 * time.Minute
	}
	if cfg.AdSessionTTL <= 0 {
		cfg.AdSessionTTL = 10 * time.Minute
	}
	if cfg.ContentRoute == "" {
		cfg.ContentRoute = "/watch/%s"
	}
	s := &Service{
		cfg:   cfg,
		flows: registry.New[*otpflow.Machine](flowKindVerification, cfg.Clock, cfg.FlowTTL),
		ads:   registry.New[*preroll.Controller](flowKindAdSession, cfg.Clock, cfg.AdSessionTTL),
	}
	s.flows.Observe(func(n int) { metrics.SetActiveFlows(flowKindVerification, n) })
	s.ads.Observe(func(n int) { metrics.SetActiveFlows(flowKindAdSession, n) })
	return s
}

// Run sweeps idle flows and ad sessions until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.flows.Run(ctx, interval) })
	g.Go(func() error { return s.ads.Run(ctx, interval) })
	return g.Wait()
}

// RequestPlayback evaluates access to contentID for the viewer behind sessions.
func (s *Service) RequestPlayback(ctx context.Context, contentID string, sessions domain.SessionStore) (*PlaybackResult, error) {
	content, err := s.cfg.Catalog.Get(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("load content %s: %w", contentID, err)
	}

	viewer, err := s.cfg.Entitlements.Resolve(ctx, sessions)
	if err != nil {
		slog.Warn("entitlement lookup failed, treating viewer as unauthenticated", "content_id", contentID, "err", err)
		metrics.RecordEntitlementFailure()
		viewer = domain.ViewerEntitlement{}
	}

	decision := access.Decide(content.Requirement(), &viewer)
	metrics.RecordDecision(string(decision))
	res := &PlaybackResult{Decision: decision, ContentID: contentID}

	switch decision {
	case domain.DecisionRedirectToAuth:
		res.RedirectTo = s.cfg.AuthRoute
		res.ReturnTo = s.contentRoute(contentID)
		return res, nil
	case domain.DecisionRedirectToBilling:
		res.RedirectTo = s.cfg.BillingRoute
		res.ReturnTo = s.contentRoute(contentID)
		return res, nil
	}

	var candidates []domain.Advertisement
	if s.cfg.Ads != nil {
		candidates, err = s.cfg.Ads.Candidates(ctx)
		if err != nil {
			slog.Warn("ad candidates unavailable, playing without pre-roll", "content_id", contentID, "err", err)
			candidates = nil
		}
	}

	var adSessionID string
	ctrl := preroll.New(preroll.Config{
		Clock:        s.cfg.Clock,
		MinimumWatch: s.cfg.MinimumWatch,
		Selector:     s.cfg.Selector,
		OnHandOff: func(h preroll.HandOff) {
			s.handedOff(contentID, adSessionID, h)
		},
	})
	if len(candidates) == 0 {
		if err := ctrl.Start(nil); err != nil {
			return nil, err
		}
		res.StartPlayback = true
		return res, nil
	}

	adSessionID = s.ads.Put(ctrl)
	if err := ctrl.Start(candidates); err != nil {
		s.ads.Remove(adSessionID)
		return nil, err
	}
	snap := ctrl.Snapshot()
	res.AdSessionID = adSessionID
	res.AdSession = &snap
	return res, nil
}

func (s *Service) handedOff(contentID, adSessionID string, h preroll.HandOff) {
	metrics.RecordHandOff(string(h.Reason))
	if s.cfg.Events == nil {
		return
	}
	attrs := map[string]string{
		"content_id":      contentID,
		"reason":          string(h.Reason),
		"elapsed_seconds": fmt.Sprint(h.ElapsedSeconds),
	}
	if adSessionID != "" {
		attrs["ad_session_id"] = adSessionID
	}
	if h.Advertisement != nil {
		attrs["ad_id"] = h.Advertisement.AdID
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev := domain.Event{Type: domain.EventAdHandOff, OccurredAt: s.cfg.Clock.Now().UTC(), Attributes: attrs}
	if err := s.cfg.Events.Publish(ctx, ev); err != nil {
		slog.Warn("failed to publish event", "type", ev.Type, "content_id", contentID, "err", err)
	}
}

func (s *Service) contentRoute(contentID string) string {
	if !strings.Contains(s.cfg.ContentRoute, "%s") {
		return s.cfg.ContentRoute
	}
	return fmt.Sprintf(s.cfg.ContentRoute, contentID)
}

// --- ad sessions ---

func (s *Service) AdSession(id string) (preroll.Snapshot, error) {
	ctrl, err := s.adSession(id)
	if err != nil {
		return preroll.Snapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

// Skip reports whether the skip handed playback to the content player.
func (s *Service) Skip(id string) (preroll.Snapshot, bool, error) {
	ctrl, err := s.adSession(id)
	if err != nil {
		return preroll.Snapshot{}, false, err
	}
	handedOff := ctrl.Skip()
	return ctrl.Snapshot(), handedOff, nil
}

func (s *Service) AdEnded(id string) (preroll.Snapshot, bool, error) {
	ctrl, err := s.adSession(id)
	if err != nil {
		return preroll.Snapshot{}, false, err
	}
	handedOff := ctrl.OnAdEnded()
	return ctrl.Snapshot(), handedOff, nil
}

// CloseAdSession cancels the ad countdown when the player goes away.
func (s *Service) CloseAdSession(id string) error {
	if !s.ads.Remove(id) {
		return fmt.Errorf("ad session %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Service) adSession(id string) (*preroll.Controller, error) {
	ctrl, ok := s.ads.Get(id)
	if !ok {
		return nil, fmt.Errorf("ad session %s: %w", id, domain.ErrNotFound)
	}
	return ctrl, nil
}

// --- verification flows ---

// StartVerification opens a flow for email and asks the backend for the first
// code. destination is where a verified viewer is sent; sessions receives the
// session on success.
func (s *Service) StartVerification(ctx context.Context, email, destination string, sessions domain.SessionStore) (*VerificationStart, error) {
	m := otpflow.New(otpflow.Config{
		Verifier:    s.cfg.Verifier,
		Sessions:    sessions,
		Clock:       s.cfg.Clock,
		Cooldown:    s.cfg.Cooldown,
		Destination: destination,
	})
	if err := m.Initialize(email); err != nil {
		return nil, err
	}

	notice, err := s.cfg.Verifier.RequestCode(ctx, email)
	if err != nil {
		var fe *domain.FlowError
		if !errors.Is(err, domain.ErrCooldownActive) || !errors.As(err, &fe) {
			m.Close()
			metrics.RecordResend("failed")
			return nil, err
		}
		// A code went out moments ago and is still valid.
		notice = fe.Message
		metrics.RecordResend("cooldown")
	} else {
		// The backend window opened with this code, not with Initialize.
		m.RestartCooldown()
		metrics.RecordResend("sent")
	}

	id := s.flows.Put(m)
	return &VerificationStart{FlowID: id, Snapshot: m.Snapshot(), Notice: notice}, nil
}

func (s *Service) Verification(id string) (otpflow.Snapshot, error) {
	m, err := s.flow(id)
	if err != nil {
		return otpflow.Snapshot{}, err
	}
	return m.Snapshot(), nil
}

// EnterDigit forwards one digit. The Result is non-nil when the digit
// completed the code and the submission succeeded.
func (s *Service) EnterDigit(ctx context.Context, id string, position int, digit string) (otpflow.Snapshot, *otpflow.Result, error) {
	m, err := s.flow(id)
	if err != nil {
		return otpflow.Snapshot{}, nil, err
	}
	res, err := m.EnterDigit(ctx, position, digit)
	if res != nil || err != nil {
		s.recordSubmission(err)
	}
	return s.afterSubmit(id, m, res, err)
}

func (s *Service) Submit(ctx context.Context, id string) (otpflow.Snapshot, *otpflow.Result, error) {
	m, err := s.flow(id)
	if err != nil {
		return otpflow.Snapshot{}, nil, err
	}
	res, err := m.Submit(ctx)
	s.recordSubmission(err)
	return s.afterSubmit(id, m, res, err)
}

func (s *Service) Resend(ctx context.Context, id string) (otpflow.Snapshot, string, error) {
	m, err := s.flow(id)
	if err != nil {
		return otpflow.Snapshot{}, "", err
	}
	confirmation, err := m.Resend(ctx)
	switch {
	case err == nil:
		metrics.RecordResend("sent")
	case errors.Is(err, domain.ErrCooldownActive):
		metrics.RecordResend("cooldown")
	default:
		metrics.RecordResend("failed")
	}
	return m.Snapshot(), confirmation, err
}

// CloseVerification abandons a flow and cancels its timers.
func (s *Service) CloseVerification(id string) error {
	if !s.flows.Remove(id) {
		return fmt.Errorf("verification %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Service) afterSubmit(id string, m *otpflow.Machine, res *otpflow.Result, err error) (otpflow.Snapshot, *otpflow.Result, error) {
	snap := m.Snapshot()
	if res != nil {
		// A verified flow holds nothing further.
		s.flows.Remove(id)
	}
	return snap, res, err
}

func (s *Service) recordSubmission(err error) {
	switch {
	case err == nil:
		metrics.RecordSubmission("verified")
	case errors.Is(err, domain.ErrVerificationRejected):
		metrics.RecordSubmission("rejected")
	case errors.Is(err, domain.ErrNetwork):
		metrics.RecordSubmission("network")
	}
}

func (s *Service) flow(id string) (*otpflow.Machine, error) {
	m, ok := s.flows.Get(id)
	if !ok {
		return nil, fmt.Errorf("verification %s: %w", id, domain.ErrNotFound)
	}
	return m, nil
}
