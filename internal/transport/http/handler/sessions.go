package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/playback-gate/internal/application/session"
	"github.com/playback-gate/internal/transport/http/middleware"
)

// SessionHandler handles session endpoints.
type SessionHandler struct {
	svc    session.Service
	stores SessionStores
}

func NewSessionHandler(svc session.Service, stores SessionStores) *SessionHandler {
	return &SessionHandler{svc: svc, stores: stores}
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token required")
		return
	}
	sess, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if deviceID, ok := middleware.DeviceIDFromContext(r.Context()); ok {
		if err := h.stores.For(deviceID).Store(r.Context(), *sess); err != nil {
			slog.Warn("failed to store refreshed session", "device_id", deviceID, "err", err)
		}
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{Session: sess})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Logout(r.Context(), claims.SessionID); err != nil {
		writeServiceError(w, err)
		return
	}
	if deviceID, ok := middleware.DeviceIDFromContext(r.Context()); ok {
		if err := h.stores.For(deviceID).Clear(r.Context()); err != nil {
			slog.Warn("failed to clear device session", "device_id", deviceID, "err", err)
		}
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}
