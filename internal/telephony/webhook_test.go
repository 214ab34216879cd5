package telephony

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func formRequest(t *testing.T, form url.Values) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "/hook", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestParseVoiceWebhook(t *testing.T) {
	req := formRequest(t, url.Values{
		"CallSid": {" CA123 "},
		"From":    {"+15550100001"},
		"To":      {"+15550100000"},
	})

	hook, err := ParseVoiceWebhook(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if hook.CallSid != "CA123" {
		t.Fatalf("call sid = %q, want trimmed", hook.CallSid)
	}
	if !hook.Complete() {
		t.Fatalf("expected complete webhook")
	}
}

func TestParseVoiceWebhook_Incomplete(t *testing.T) {
	req := formRequest(t, url.Values{"CallSid": {"CA123"}})
	hook, err := ParseVoiceWebhook(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if hook.Complete() {
		t.Fatalf("missing From/To must not be complete")
	}
}

func TestParseRecordingWebhook_Duration(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"15", 15},
		{"0", 0},
		{"", 0},
		{"abc", 0},
		{"-5", 0},
	}
	for _, tc := range tests {
		req := formRequest(t, url.Values{
			"CallSid":           {"CA1"},
			"RecordingUrl":      {"https://api.twilio.com/r/RE1"},
			"RecordingDuration": {tc.raw},
		})
		hook, err := ParseRecordingWebhook(req)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		if hook.DurationSeconds != tc.want {
			t.Fatalf("duration %q = %d, want %d", tc.raw, hook.DurationSeconds, tc.want)
		}
	}
}

func TestNormalizeRecordingURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://api.twilio.com/r/RE1", "https://api.twilio.com/r/RE1.mp3"},
		{"https://api.twilio.com/r/RE1.mp3", "https://api.twilio.com/r/RE1.mp3"},
		{"https://api.twilio.com/r/RE1.wav", "https://api.twilio.com/r/RE1.wav"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizeRecordingURL(tc.in); got != tc.want {
			t.Fatalf("NormalizeRecordingURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
