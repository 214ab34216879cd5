package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"

	"voicedesk-platform/internal/greeting"
)

// Minimal TwiML builder. It intentionally avoids any provider SDK dependency;
// only the verbs the voicemail flow needs are modeled.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlPlay struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type twimlRecord struct {
	XMLName   xml.Name `xml:"Record"`
	Action    string   `xml:"action,attr"`
	Method    string   `xml:"method,attr"`
	MaxLength int      `xml:"maxLength,attr"`
	Trim      string   `xml:"trim,attr"`
	PlayBeep  bool     `xml:"playBeep,attr"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// RecordInstruction tells the provider how to capture the voicemail and where
// to deliver the recording-complete event.
type RecordInstruction struct {
	CallbackURL string
	MaxSeconds  int
}

// RenderVoicemailTwiML maps a resolved greeting plus a record instruction to TwiML.
func RenderVoicemailTwiML(sel greeting.Selection, rec RecordInstruction) (string, error) {
	if rec.CallbackURL == "" {
		return "", errors.New("telephony: record callback url required")
	}
	if rec.MaxSeconds <= 0 {
		return "", errors.New("telephony: record max length required")
	}

	var r twimlResponse
	if sel.Mode == greeting.ModeAudio && sel.AudioURL != "" {
		r.Verbs = append(r.Verbs, twimlPlay{URL: sel.AudioURL})
	} else {
		r.Verbs = append(r.Verbs, twimlSay{Voice: sayVoice(sel.VoiceGender), Text: sel.Text})
	}
	r.Verbs = append(r.Verbs, twimlRecord{
		Action:    rec.CallbackURL,
		Method:    "POST",
		MaxLength: rec.MaxSeconds,
		Trim:      "trim-silence",
		PlayBeep:  true,
	})

	return encodeTwiML(r)
}

// RenderHangupTwiML acknowledges a recording callback.
func RenderHangupTwiML() (string, error) {
	return encodeTwiML(twimlResponse{Verbs: []any{twimlHangup{}}})
}

func sayVoice(gender string) string {
	if gender == "male" {
		return "man"
	}
	return "woman"
}

func encodeTwiML(r twimlResponse) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
