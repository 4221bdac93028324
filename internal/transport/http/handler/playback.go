package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/playback-gate/internal/application/otpflow"
	"github.com/playback-gate/internal/application/playback"
	"github.com/playback-gate/internal/application/preroll"
	"github.com/playback-gate/internal/domain"
	"github.com/playback-gate/internal/transport/http/middleware"
)

// PlaybackService is the gate as the HTTP layer sees it.
type PlaybackService interface {
	RequestPlayback(ctx context.Context, contentID string, sessions domain.SessionStore) (*playback.PlaybackResult, error)
	AdSession(id string) (preroll.Snapshot, error)
	Skip(id string) (preroll.Snapshot, bool, error)
	AdEnded(id string) (preroll.Snapshot, bool, error)
	CloseAdSession(id string) error

	StartVerification(ctx context.Context, email, destination string, sessions domain.SessionStore) (*playback.VerificationStart, error)
	Verification(id string) (otpflow.Snapshot, error)
	EnterDigit(ctx context.Context, id string, position int, digit string) (otpflow.Snapshot, *otpflow.Result, error)
	Submit(ctx context.Context, id string) (otpflow.Snapshot, *otpflow.Result, error)
	Resend(ctx context.Context, id string) (otpflow.Snapshot, string, error)
	CloseVerification(id string) error
}

// SessionStores hands out the viewer session store of a device.
type SessionStores interface {
	For(deviceID string) domain.SessionStore
}

// PlaybackHandler handles content requests and pre-roll ad sessions.
type PlaybackHandler struct {
	svc    PlaybackService
	stores SessionStores
}

func NewPlaybackHandler(svc PlaybackService, stores SessionStores) *PlaybackHandler {
	return &PlaybackHandler{svc: svc, stores: stores}
}

// Request resolves the viewer from the Authorization bearer when one was
// verified, and from the device session store otherwise.
func (h *PlaybackHandler) Request(w http.ResponseWriter, r *http.Request) {
	sessions, ok := h.sessionsFor(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "device id required")
		return
	}
	res, err := h.svc.RequestPlayback(r.Context(), chi.URLParam(r, "contentID"), sessions)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *PlaybackHandler) sessionsFor(r *http.Request) (domain.SessionStore, bool) {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		if bearer, ok := middleware.BearerFromContext(r.Context()); ok {
			return bearerSession{sess: domain.Session{AccessToken: bearer, UserID: claims.UserID}}, true
		}
	}
	deviceID, ok := middleware.DeviceIDFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return h.stores.For(deviceID), true
}

// bearerSession serves the request's own access token as a read-only session.
type bearerSession struct {
	sess domain.Session
}

var errReadOnlySession = fmt.Errorf("bearer session is read-only: %w", domain.ErrForbidden)

func (b bearerSession) Load(context.Context) (*domain.Session, error) {
	sess := b.sess
	return &sess, nil
}

func (bearerSession) Store(context.Context, domain.Session) error { return errReadOnlySession }

func (bearerSession) Clear(context.Context) error { return errReadOnlySession }

func (h *PlaybackHandler) GetAdSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := h.svc.AdSession(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AdSessionEnvelope{AdSessionID: id, AdSession: &snap, StartPlayback: snap.State == preroll.StateHandedOff})
}

func (h *PlaybackHandler) Skip(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Skip)
}

func (h *PlaybackHandler) Ended(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.AdEnded)
}

func (h *PlaybackHandler) CloseAdSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseAdSession(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PlaybackHandler) transition(w http.ResponseWriter, r *http.Request, op func(string) (preroll.Snapshot, bool, error)) {
	id := chi.URLParam(r, "id")
	snap, _, err := op(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AdSessionEnvelope{AdSessionID: id, AdSession: &snap, StartPlayback: snap.State == preroll.StateHandedOff})
}
