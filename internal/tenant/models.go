package tenant

import (
	"time"

	"voicedesk-platform/internal/hours"
)

// Tenant is one subscribed business, keyed by its inbound telephony number.
//
// Tenancy invariant: exactly one tenant owns a given inbound number at any time.
//
// The greeting configuration carries two schema generations. The raw dual
// fields live only here, at the storage boundary; greeting resolution collapses
// them through an explicit precedence function instead of scattering fallbacks.
type Tenant struct {
	ID    string `json:"id" db:"id"`
	Email string `json:"email,omitempty" db:"email"`

	// InboundNumber is the provisioned E.164 number callers dial.
	InboundNumber string `json:"inbound_number" db:"inbound_number"`

	Plan     Plan   `json:"plan" db:"plan"`
	Timezone string `json:"timezone" db:"timezone"`

	// BusinessHours is the per-weekday schedule; nil when the tenant has never
	// saved one, in which case the legacy single daily window applies.
	BusinessHours hours.WeeklySchedule `json:"business_hours,omitempty" db:"business_hours"`
	LegacyHours   hours.LegacyWindow   `json:"-"`

	TTSVoiceGender string `json:"tts_voice_gender" db:"tts_voice_gender"`

	// PlaybackToken authorizes unauthenticated greeting-audio retrieval by the
	// telephony provider. Opaque and tenant-scoped; compared by equality only.
	PlaybackToken string `json:"-" db:"voicemail_token"`

	Greeting GreetingFields `json:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Plan string

const (
	PlanStandard Plan = "standard"
	PlanPro      Plan = "pro"
)

// IsPro reports whether the plan unlocks out-of-hours switching and audio uploads.
func (t Tenant) IsPro() bool { return t.Plan == PlanPro }

// GreetingFields holds both schema generations of the greeting configuration.
// "In"/"Out" are the current columns; "Legacy*" predate the in/out split.
type GreetingFields struct {
	InMode      string `db:"voicemail_in_mode"`
	InTTS       string `db:"voicemail_in_tts"`
	InAudioPath string `db:"voicemail_in_audio_path"`

	OutMode      string `db:"voicemail_out_mode"`
	OutTTS       string `db:"voicemail_out_tts"`
	OutAudioPath string `db:"voicemail_out_audio_path"`

	LegacyInMode   string `db:"voicemail_type"`
	LegacyInText   string `db:"voicemail_message"`
	LegacyOutMode  string `db:"ooh_voicemail_type"`
	LegacyOutText  string `db:"ooh_voicemail_message"`
}
