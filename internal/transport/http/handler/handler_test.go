package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"github.com/playback-gate/internal/application/otpflow"
	"github.com/playback-gate/internal/application/playback"
	"github.com/playback-gate/internal/application/preroll"
	"github.com/playback-gate/internal/domain"
	jwtinfra "github.com/playback-gate/internal/infrastructure/jwt"
	"github.com/playback-gate/internal/infrastructure/memory"
	"github.com/playback-gate/internal/transport/http/middleware"
	"github.com/stretchr/testify/mock"
)

// --- mocks ---

type mockPlayback struct{ mock.Mock }

func (m *mockPlayback) RequestPlayback(ctx context.Context, contentID string, sessions domain.SessionStore) (*playback.PlaybackResult, error) {
	args := m.Called(ctx, contentID, sessions)
	res, _ := args.Get(0).(*playback.PlaybackResult)
	return res, args.Error(1)
}

func (m *mockPlayback) AdSession(id string) (preroll.Snapshot, error) {
	args := m.Called(id)
	return args.Get(0).(preroll.Snapshot), args.Error(1)
}

func (m *mockPlayback) Skip(id string) (preroll.Snapshot, bool, error) {
	args := m.Called(id)
	return args.Get(0).(preroll.Snapshot), args.Bool(1), args.Error(2)
}

func (m *mockPlayback) AdEnded(id string) (preroll.Snapshot, bool, error) {
	args := m.Called(id)
	return args.Get(0).(preroll.Snapshot), args.Bool(1), args.Error(2)
}

func (m *mockPlayback) CloseAdSession(id string) error { return m.Called(id).Error(0) }

func (m *mockPlayback) StartVerification(ctx context.Context, email, destination string, sessions domain.SessionStore) (*playback.VerificationStart, error) {
	args := m.Called(ctx, email, destination, sessions)
	res, _ := args.Get(0).(*playback.VerificationStart)
	return res, args.Error(1)
}

func (m *mockPlayback) Verification(id string) (otpflow.Snapshot, error) {
	args := m.Called(id)
	return args.Get(0).(otpflow.Snapshot), args.Error(1)
}

func (m *mockPlayback) EnterDigit(ctx context.Context, id string, position int, digit string) (otpflow.Snapshot, *otpflow.Result, error) {
	args := m.Called(ctx, id, position, digit)
	res, _ := args.Get(1).(*otpflow.Result)
	return args.Get(0).(otpflow.Snapshot), res, args.Error(2)
}

func (m *mockPlayback) Submit(ctx context.Context, id string) (otpflow.Snapshot, *otpflow.Result, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(1).(*otpflow.Result)
	return args.Get(0).(otpflow.Snapshot), res, args.Error(2)
}

func (m *mockPlayback) Resend(ctx context.Context, id string) (otpflow.Snapshot, string, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(otpflow.Snapshot), args.String(1), args.Error(2)
}

func (m *mockPlayback) CloseVerification(id string) error { return m.Called(id).Error(0) }

type mockSessionSvc struct{ mock.Mock }

func (m *mockSessionSvc) Refresh(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	s, _ := args.Get(0).(*domain.Session)
	return s, args.Error(1)
}

func (m *mockSessionSvc) Logout(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

// --- helpers ---

func newRouter(svc *mockPlayback, sessSvc *mockSessionSvc, stores *memory.SessionStores) chi.Router {
	ph := NewPlaybackHandler(svc, stores)
	vh := NewVerificationHandler(svc, stores)
	sh := NewSessionHandler(sessSvc, stores)

	withDevice := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get(middleware.DeviceHeader); id != "" {
				r = r.WithContext(middleware.WithDeviceID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
	withClaims := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := &jwtinfra.Claims{UserID: "abc123", SessionID: "sess1"}
			next.ServeHTTP(w, r.WithContext(middleware.WithClaims(r.Context(), claims)))
		})
	}

	r := chi.NewRouter()
	r.Use(withDevice)
	r.Post("/playback/{contentID}", ph.Request)
	r.Get("/ad-sessions/{id}", ph.GetAdSession)
	r.Post("/ad-sessions/{id}/skip", ph.Skip)
	r.Post("/ad-sessions/{id}/ended", ph.Ended)
	r.Delete("/ad-sessions/{id}", ph.CloseAdSession)
	r.Post("/verification", vh.Start)
	r.Get("/verification/{id}", vh.Get)
	r.Put("/verification/{id}/digits/{position}", vh.EnterDigit)
	r.Post("/verification/{id}/submit", vh.Submit)
	r.Post("/verification/{id}/resend", vh.Resend)
	r.Delete("/verification/{id}", vh.Close)
	r.Post("/sessions/refresh", sh.Refresh)
	r.With(withClaims).Post("/sessions/logout", sh.Logout)
	return r
}

func do(r http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, target, bytes.NewReader(b))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set(middleware.DeviceHeader, "tv-1")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func codeEntry(digits ...string) otpflow.Snapshot {
	d := make([]string, domain.CodeLength)
	copy(d, digits)
	return otpflow.Snapshot{State: otpflow.StateCodeEntry, Email: "user@test.com", Digits: d, CooldownRemaining: 60}
}
