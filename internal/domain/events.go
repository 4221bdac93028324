package domain

import "time"

const (
	EventViewerVerified = "viewer.verified"
	EventAdHandOff      = "ad.handoff"
)

// Event is published to the notification topic.
type Event struct {
	Type       string            `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes"`
}
