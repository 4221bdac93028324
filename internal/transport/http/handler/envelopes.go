package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playback-gate/internal/application/otpflow"
	"github.com/playback-gate/internal/application/preroll"
	"github.com/playback-gate/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// VerificationEnvelope wraps every verification flow response. Verification is
// present on rejections too so the client can redraw the code boxes.
type VerificationEnvelope struct {
	FlowID       string            `json:"flow_id,omitempty"`
	Verification *otpflow.Snapshot `json:"verification,omitempty"`
	Session      *domain.Session   `json:"session,omitempty"`
	Destination  string            `json:"destination,omitempty"`
	Message      string            `json:"message,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// AdSessionEnvelope wraps pre-roll responses.
type AdSessionEnvelope struct {
	AdSessionID   string            `json:"ad_session_id"`
	AdSession     *preroll.Snapshot `json:"ad_session"`
	StartPlayback bool              `json:"start_playback"`
}

// SessionEnvelope wraps refresh responses.
type SessionEnvelope struct {
	Session *domain.Session `json:"session,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// statusFor maps a service error to an HTTP status and a message safe to
// show the viewer.
func statusFor(err error) (int, string) {
	msg := err.Error()
	var fe *domain.FlowError
	if errors.As(err, &fe) {
		msg = fe.Message
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrInvalidEmail), errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest, msg
	case errors.Is(err, domain.ErrIncompleteCode), errors.Is(err, domain.ErrVerificationRejected):
		return http.StatusUnprocessableEntity, msg
	case errors.Is(err, domain.ErrCooldownActive):
		return http.StatusTooManyRequests, msg
	case errors.Is(err, domain.ErrRequestInProgress), errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, msg
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway, msg
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	default:
		slog.Error("unhandled service error", "err", err)
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	writeError(w, status, msg)
}
