package telephony

import (
	"net/http"
	"strconv"
	"strings"
)

// Provider webhook forms. Twilio sends application/x-www-form-urlencoded.
// Keep parsing provider-adapter-only; routing decisions are not made here.

// VoiceWebhook captures the call-start event fields the pipeline needs.
type VoiceWebhook struct {
	CallSid string
	From    string
	To      string
}

func (w VoiceWebhook) Complete() bool {
	return w.CallSid != "" && w.From != "" && w.To != ""
}

func ParseVoiceWebhook(r *http.Request) (VoiceWebhook, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceWebhook{}, err
	}
	return VoiceWebhook{
		CallSid: strings.TrimSpace(r.PostFormValue("CallSid")),
		From:    strings.TrimSpace(r.PostFormValue("From")),
		To:      strings.TrimSpace(r.PostFormValue("To")),
	}, nil
}

// RecordingWebhook captures the recording-complete event fields.
type RecordingWebhook struct {
	CallSid      string
	RecordingURL string

	// DurationSeconds arrives as a string field; unparseable values collapse
	// to zero, which the voicemail gate treats as "no voicemail left".
	DurationSeconds int
}

func ParseRecordingWebhook(r *http.Request) (RecordingWebhook, error) {
	if err := r.ParseForm(); err != nil {
		return RecordingWebhook{}, err
	}
	dur, _ := strconv.Atoi(strings.TrimSpace(r.PostFormValue("RecordingDuration")))
	if dur < 0 {
		dur = 0
	}
	return RecordingWebhook{
		CallSid:         strings.TrimSpace(r.PostFormValue("CallSid")),
		RecordingURL:    strings.TrimSpace(r.PostFormValue("RecordingUrl")),
		DurationSeconds: dur,
	}, nil
}

// NormalizeRecordingURL appends the provider's audio file extension so the
// stored URL is directly playable.
func NormalizeRecordingURL(u string) string {
	if u == "" {
		return ""
	}
	if strings.HasSuffix(u, ".mp3") || strings.HasSuffix(u, ".wav") {
		return u
	}
	return u + ".mp3"
}
