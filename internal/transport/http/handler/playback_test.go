package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/playback-gate/internal/application/playback"
	"github.com/playback-gate/internal/application/preroll"
	"github.com/playback-gate/internal/domain"
	jwtinfra "github.com/playback-gate/internal/infrastructure/jwt"
	"github.com/playback-gate/internal/infrastructure/memory"
	"github.com/playback-gate/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRequestPlayback_Redirect(t *testing.T) {
	svc := &mockPlayback{}
	stores := memory.NewSessionStores(nil, 0)
	svc.On("RequestPlayback", mock.Anything, "ep-1", stores.For("tv-1")).Return(&playback.PlaybackResult{
		Decision:   domain.DecisionRedirectToAuth,
		ContentID:  "ep-1",
		RedirectTo: "/verify",
		ReturnTo:   "/watch/ep-1",
	}, nil)

	rr := do(newRouter(svc, &mockSessionSvc{}, stores), http.MethodPost, "/playback/ep-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var got playback.PlaybackResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, domain.DecisionRedirectToAuth, got.Decision)
	assert.Equal(t, "/watch/ep-1", got.ReturnTo)
	svc.AssertExpectations(t)
}

func TestRequestPlayback_UnknownContent(t *testing.T) {
	svc := &mockPlayback{}
	svc.On("RequestPlayback", mock.Anything, "nope", mock.Anything).Return(nil, domain.ErrNotFound)

	rr := do(newRouter(svc, &mockSessionSvc{}, memory.NewSessionStores(nil, 0)), http.MethodPost, "/playback/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRequestPlayback_BearerTakesPrecedenceOverDevice(t *testing.T) {
	ctx := context.Background()
	svc := &mockPlayback{}
	stores := memory.NewSessionStores(nil, 0)
	require.NoError(t, stores.For("tv-1").Store(ctx, domain.Session{AccessToken: "device-token", UserID: "someone-else"}))

	var resolved domain.SessionStore
	svc.On("RequestPlayback", mock.Anything, "ep-1", mock.Anything).
		Run(func(args mock.Arguments) { resolved = args.Get(2).(domain.SessionStore) }).
		Return(&playback.PlaybackResult{Decision: domain.DecisionAllow, ContentID: "ep-1"}, nil)

	withBearer := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rctx := middleware.WithClaims(r.Context(), &jwtinfra.Claims{UserID: "abc123", SessionID: "sess1"})
			rctx = middleware.WithBearer(rctx, "bearer-token")
			next.ServeHTTP(w, r.WithContext(middleware.WithDeviceID(rctx, "tv-1")))
		})
	}
	r := chi.NewRouter()
	r.With(withBearer).Post("/playback/{contentID}", NewPlaybackHandler(svc, stores).Request)

	rr := do(r, http.MethodPost, "/playback/ep-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	require.NotNil(t, resolved)
	sess, err := resolved.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc123", sess.UserID)
	assert.Equal(t, "bearer-token", sess.AccessToken)
	assert.ErrorIs(t, resolved.Store(ctx, domain.Session{}), domain.ErrForbidden)
	assert.ErrorIs(t, resolved.Clear(ctx), domain.ErrForbidden)

	device, err := stores.For("tv-1").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", device.UserID)
}

func TestRequestPlayback_NoBearerNoDevice(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/playback/{contentID}", NewPlaybackHandler(&mockPlayback{}, memory.NewSessionStores(nil, 0)).Request)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/playback/ep-1", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdSession_SkipHandsOff(t *testing.T) {
	svc := &mockPlayback{}
	snap := preroll.Snapshot{State: preroll.StateHandedOff, HandOffReason: preroll.ReasonSkipped}
	snap.SkipUnlocked = true
	snap.ElapsedSeconds = 5
	svc.On("Skip", "ad-1").Return(snap, true, nil)

	rr := do(newRouter(svc, &mockSessionSvc{}, memory.NewSessionStores(nil, 0)), http.MethodPost, "/ad-sessions/ad-1/skip", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var env AdSessionEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.True(t, env.StartPlayback)
	assert.Equal(t, "ad-1", env.AdSessionID)
	assert.Equal(t, 5, env.AdSession.ElapsedSeconds)
}

func TestAdSession_SkipBeforeUnlockKeepsPlaying(t *testing.T) {
	svc := &mockPlayback{}
	snap := preroll.Snapshot{State: preroll.StatePlaying}
	snap.IsActive = true
	snap.ElapsedSeconds = 2
	svc.On("Skip", "ad-1").Return(snap, false, nil)

	rr := do(newRouter(svc, &mockSessionSvc{}, memory.NewSessionStores(nil, 0)), http.MethodPost, "/ad-sessions/ad-1/skip", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var env AdSessionEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.False(t, env.StartPlayback)
	assert.True(t, env.AdSession.IsActive)
}

func TestAdSession_CloseAndMissing(t *testing.T) {
	svc := &mockPlayback{}
	svc.On("CloseAdSession", "ad-1").Return(nil)
	svc.On("CloseAdSession", "gone").Return(domain.ErrNotFound)
	svc.On("AdSession", "gone").Return(preroll.Snapshot{}, domain.ErrNotFound)
	r := newRouter(svc, &mockSessionSvc{}, memory.NewSessionStores(nil, 0))

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/ad-sessions/ad-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/ad-sessions/gone", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/ad-sessions/gone", nil).Code)
}
