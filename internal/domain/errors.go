package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Verification and playback gate errors. The first three are local guards and
// are returned before any collaborator is called.
var (
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrIncompleteCode       = errors.New("verification code must have 6 digits")
	ErrCooldownActive       = errors.New("resend is not available yet")
	ErrVerificationRejected = errors.New("verification rejected")
	ErrAttemptsExhausted    = errors.New("verification attempts exhausted")
	ErrNetwork              = errors.New("verification service unreachable")
	ErrEntitlementFetch     = errors.New("entitlement fetch failed")
	ErrRequestInProgress    = errors.New("request already in progress")
	ErrInvalidState         = errors.New("operation not allowed in current state")
)

// FlowError is a remote failure normalized at a state machine boundary.
// Message is safe to display; Kind is one of the sentinels above.
type FlowError struct {
	Kind    error
	Message string
}

func (e *FlowError) Error() string { return e.Message }

func (e *FlowError) Unwrap() error { return e.Kind }

// Rejected builds a FlowError for a wrong or expired code.
func Rejected(msg string) *FlowError {
	return &FlowError{Kind: ErrVerificationRejected, Message: msg}
}
