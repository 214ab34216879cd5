package call

import "time"

// Call is one inbound telephone call, keyed by the provider-issued CallSid.
//
// Lifecycle: incoming -> completed, or answered when a human picked up.
// Rows are created by the intake webhook, enriched by the recording
// post-processor and the SMS dispatcher, and never deleted by the core.
type Call struct {
	CallSid  string `json:"call_sid" db:"call_sid"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	CallerNumber string `json:"caller_number" db:"caller_number"`
	InboundTo    string `json:"inbound_to" db:"inbound_to"`

	// CallerType is the line-type classification from the carrier lookup
	// (mobile, landline, voip, ...); "unknown" when the lookup failed.
	CallerType string `json:"caller_type" db:"caller_type"`

	Status       Status `json:"call_status" db:"call_status"`
	AnsweredLive bool   `json:"answered_live" db:"answered_live"`

	// SMSSent flips false->true at most once per call. Nothing may reset it.
	SMSSent bool `json:"sms_sent" db:"sms_sent"`

	RecordingURL      string `json:"recording_url,omitempty" db:"recording_url"`
	RecordingDuration int    `json:"recording_duration" db:"recording_duration"`

	Transcript *string `json:"transcript,omitempty" db:"transcript"`
	Summary    *string `json:"ai_summary,omitempty" db:"ai_summary"`

	// CallerName is AI-extracted; nil when absent or rejected by validation.
	CallerName     *string  `json:"caller_name,omitempty" db:"caller_name"`
	NameSource     *string  `json:"name_source,omitempty" db:"name_source"`
	NameConfidence *float64 `json:"name_confidence,omitempty" db:"name_confidence"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusIncoming  Status = "incoming"
	StatusCompleted Status = "completed"
	StatusAnswered  Status = "answered"
)

// VoicemailDisplayMinSeconds is the display threshold: recordings shorter than
// this are not shown as voicemails. It intentionally differs from the 2-second
// SMS-eligibility threshold in the notify package; the pair is tracked with
// product rather than silently unified.
const VoicemailDisplayMinSeconds = 3

// CallerTypeUnknown is the classification when the carrier lookup fails.
const CallerTypeUnknown = "unknown"

// NameSourceAI tags caller names extracted from the transcript by the model.
const NameSourceAI = "ai"

// VoicemailLeft reports whether a displayable voicemail exists. This derived
// value, not call status, drives inbox badges.
func (c Call) VoicemailLeft() bool {
	return c.RecordingURL != "" && c.RecordingDuration >= VoicemailDisplayMinSeconds
}

// InboxStatus derives the portal inbox badge for this call.
func (c Call) InboxStatus() string {
	switch {
	case c.AnsweredLive:
		return "answered"
	case c.VoicemailLeft():
		return "voicemail"
	default:
		return "sms"
	}
}

// RecordingUpdate is the single persistence write of the recording
// post-processor. Soft-failed stages arrive here with their fallback values;
// the write itself must not be skipped because of them.
type RecordingUpdate struct {
	CallSid string

	RecordingURL      string
	RecordingDuration int

	Transcript string
	Summary    string
	CallerType string

	CallerName     *string
	NameSource     *string
	NameConfidence *float64
}
