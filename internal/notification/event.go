// Package notification delivers application lifecycle events to downstream
// consumers. Delivery is best effort: publishing never blocks a lifecycle
// operation and failures are logged and counted, never returned.
package notification

import (
	"context"
	"time"
)

// EventType names a lifecycle event.
type EventType string

const (
	EventCreated   EventType = "application.created"
	EventSubmitted EventType = "application.submitted"
	EventCancelled EventType = "application.cancelled"
	EventApproved  EventType = "application.approved"
	EventRejected  EventType = "application.rejected"
)

// Event is transport-agnostic so sinks can encode it however they like.
type Event struct {
	Type          EventType `json:"type"`
	ApplicationID string    `json:"application_id"`
	ApplicantID   string    `json:"applicant_id"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	RiskLevel     string    `json:"risk_level,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Sink delivers one event.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
