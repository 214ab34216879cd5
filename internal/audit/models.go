package audit

import "time"

// Event is an immutable, append-only processing trail record.
//
// Invariants:
// - Events are never updated or deleted.
// - tenant_id is required for tenancy isolation.
// - Recording is best-effort; audit failures must never fail a webhook.

type Event struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	// Type indicates which pipeline stage produced the record.
	Type EventType `json:"type" db:"type"`

	// CallSid ties the event to a call when applicable.
	CallSid string `json:"call_sid,omitempty" db:"call_sid"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallReceived       EventType = "call_received"
	EventTypeRecordingProcessed EventType = "recording_processed"
	EventTypeSMSSent            EventType = "sms_sent"
)
