package greeting

import (
	"fmt"
	"net/url"

	"voicedesk-platform/internal/tenant"
)

// Slot identifies which of the two greeting configurations applies to a call.
type Slot string

const (
	SlotInHours    Slot = "in"
	SlotOutOfHours Slot = "out"
)

// Mode is the resolved playback mode.
type Mode string

const (
	ModeTTS   Mode = "tts"
	ModeAudio Mode = "audio"
)

// Default greeting texts, used when neither schema generation has a value.
const (
	DefaultInHoursText    = "Thank you for calling. We can't take your call right now, please leave a message after the tone."
	DefaultOutOfHoursText = "Thank you for calling. You've reached us outside of our business hours, please leave a message after the tone."
)

// Selection is the fully resolved greeting for one call.
type Selection struct {
	Slot Slot
	Mode Mode

	// Text is the TTS fallback text; populated even when Mode is audio so the
	// caller of this package never has to re-resolve on playback failure.
	Text        string
	VoiceGender string

	// AudioURL is the provider-fetchable greeting URL; empty unless Mode is audio.
	AudioURL string
}

// Resolver collapses the dual-generation greeting fields into one Selection.
type Resolver struct {
	// BaseURL is where the provider can fetch uploaded greeting audio.
	// When empty, audio mode is unreachable and TTS is always used.
	BaseURL string
}

// Select resolves the greeting for a tenant given the open/closed decision.
//
// Out-of-hours switching is gated on the pro plan: a standard tenant always
// gets the in-hours slot no matter what the schedule says. Field precedence
// within the chosen slot is new schema, then legacy schema, then the default.
// Audio playback additionally requires an uploaded path, the tenant's playback
// token and a reachable base URL; anything missing falls back to spoken TTS.
func (r Resolver) Select(t tenant.Tenant, open bool) Selection {
	slot := SlotInHours
	if t.IsPro() && !open {
		slot = SlotOutOfHours
	}

	var mode, text, audioPath string
	switch slot {
	case SlotOutOfHours:
		mode = firstNonEmpty(t.Greeting.OutMode, t.Greeting.LegacyOutMode)
		text = firstNonEmpty(t.Greeting.OutTTS, t.Greeting.LegacyOutText, DefaultOutOfHoursText)
		audioPath = t.Greeting.OutAudioPath
	default:
		mode = firstNonEmpty(t.Greeting.InMode, t.Greeting.LegacyInMode)
		text = firstNonEmpty(t.Greeting.InTTS, t.Greeting.LegacyInText, DefaultInHoursText)
		audioPath = t.Greeting.InAudioPath
	}

	sel := Selection{
		Slot:        slot,
		Mode:        ModeTTS,
		Text:        text,
		VoiceGender: firstNonEmpty(t.TTSVoiceGender, "female"),
	}

	if mode == string(ModeAudio) && audioPath != "" && t.PlaybackToken != "" && r.BaseURL != "" {
		sel.Mode = ModeAudio
		sel.AudioURL = fmt.Sprintf("%s/voicemail/%s/%s?token=%s",
			r.BaseURL, t.ID, slot, url.QueryEscape(t.PlaybackToken))
	}
	return sel
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
