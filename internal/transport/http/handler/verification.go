package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/playback-gate/internal/application/otpflow"
	"github.com/playback-gate/internal/domain"
	"github.com/playback-gate/internal/pkg/validate"
	"github.com/playback-gate/internal/transport/http/middleware"
)

type startVerificationRequest struct {
	Email    string `json:"email"`
	ReturnTo string `json:"return_to" validate:"omitempty,startswith=/"`
}

type digitRequest struct {
	Digit string `json:"digit"`
}

// VerificationHandler drives the e-mail code flow.
type VerificationHandler struct {
	svc    PlaybackService
	stores SessionStores
}

func NewVerificationHandler(svc PlaybackService, stores SessionStores) *VerificationHandler {
	return &VerificationHandler{svc: svc, stores: stores}
}

func (h *VerificationHandler) Start(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := middleware.DeviceIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "device id required")
		return
	}
	var req startVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, err := h.svc.StartVerification(r.Context(), req.Email, req.ReturnTo, h.stores.For(deviceID))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, VerificationEnvelope{
		FlowID:       start.FlowID,
		Verification: &start.Snapshot,
		Message:      start.Notice,
	})
}

func (h *VerificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := h.svc.Verification(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerificationEnvelope{FlowID: id, Verification: &snap})
}

func (h *VerificationHandler) EnterDigit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "position must be a number")
		return
	}
	var req digitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, res, err := h.svc.EnterDigit(r.Context(), id, position, req.Digit)
	h.writeOutcome(w, id, snap, res, err)
}

func (h *VerificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, res, err := h.svc.Submit(r.Context(), id)
	h.writeOutcome(w, id, snap, res, err)
}

func (h *VerificationHandler) Resend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, confirmation, err := h.svc.Resend(r.Context(), id)
	if err != nil {
		h.writeFlowError(w, id, snap, err)
		return
	}
	writeJSON(w, http.StatusOK, VerificationEnvelope{FlowID: id, Verification: &snap, Message: confirmation})
}

func (h *VerificationHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseVerification(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VerificationHandler) writeOutcome(w http.ResponseWriter, id string, snap otpflow.Snapshot, res *otpflow.Result, err error) {
	if err != nil {
		h.writeFlowError(w, id, snap, err)
		return
	}
	env := VerificationEnvelope{FlowID: id, Verification: &snap}
	if res != nil {
		sess := res.Session
		env.Session = &sess
		env.Destination = res.Destination
	}
	writeJSON(w, http.StatusOK, env)
}

// writeFlowError keeps the snapshot in the body for errors raised by a live
// flow; a missing flow has nothing to show.
func (h *VerificationHandler) writeFlowError(w http.ResponseWriter, id string, snap otpflow.Snapshot, err error) {
	status, msg := statusFor(err)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, status, msg)
		return
	}
	writeJSON(w, status, VerificationEnvelope{FlowID: id, Verification: &snap, Error: msg})
}
