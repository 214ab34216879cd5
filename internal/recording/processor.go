package recording

import (
	"context"
	"errors"
	"fmt"

	"voicedesk-platform/internal/ai"
	"voicedesk-platform/internal/audit"
	"voicedesk-platform/internal/call"
	"voicedesk-platform/internal/notify"
	"voicedesk-platform/internal/telephony"
	"voicedesk-platform/pkg/logger"
)

// Event is the recording-complete webhook reduced to the fields the
// post-processor needs.
type Event struct {
	CallSid         string
	RecordingURL    string
	DurationSeconds int
}

// Fixed fallback texts. The no-voicemail pair marks recordings under the gate;
// the unavailable pair marks real voicemails whose enrichment failed.
const (
	NoVoicemailTranscript = "No voicemail was left."
	NoVoicemailSummary    = "The caller hung up without leaving a voicemail."

	TranscriptUnavailable = "Voicemail transcription unavailable."
	SummaryUnavailable    = "A voicemail was left, but it could not be transcribed."
)

// ErrMissingCallSid marks a webhook without its call identifier.
var ErrMissingCallSid = errors.New("recording: missing CallSid")

// External stage contracts, defined here so tests can double each stage
// independently. The Twilio and OpenAI adapters satisfy them.

type LineTypeLookup interface {
	LookupLineType(ctx context.Context, number string) (string, error)
}

type AudioFetcher interface {
	DownloadRecording(ctx context.Context, recordingURL string) ([]byte, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

type NameExtractor interface {
	ExtractCallerName(ctx context.Context, transcript string) (ai.NameExtraction, error)
}

// Processor drives the recording-complete pipeline: classify the caller's
// line, gate on voicemail length, transcribe and summarize, extract the
// caller's name, persist everything in one write, then hand off to the SMS
// dispatcher.
//
// Stages 2-5 are fail-soft: each substitutes its fallback value and the
// pipeline continues. Only a missing identifier, a missing call row or the
// final persistence write fail the webhook.
type Processor struct {
	calls      call.Repository
	lookup     LineTypeLookup
	audio      AudioFetcher
	transcribe Transcriber
	summarize  Summarizer
	names      NameExtractor
	notifier   *notify.Dispatcher
	audit      *audit.Service
}

func NewProcessor(
	calls call.Repository,
	lookup LineTypeLookup,
	audio AudioFetcher,
	transcriber Transcriber,
	summarizer Summarizer,
	names NameExtractor,
	notifier *notify.Dispatcher,
	auditSvc *audit.Service,
) *Processor {
	return &Processor{
		calls:      calls,
		lookup:     lookup,
		audio:      audio,
		transcribe: transcriber,
		summarize:  summarizer,
		names:      names,
		notifier:   notifier,
		audit:      auditSvc,
	}
}

// Process handles one recording-complete event. Replay-safe: re-running with
// the same payload converges on the same row state and cannot re-send the SMS.
func (p *Processor) Process(ctx context.Context, e Event) error {
	if e.CallSid == "" {
		return ErrMissingCallSid
	}
	log := logger.From(ctx).With("call_sid", e.CallSid)

	c, err := p.calls.GetBySid(ctx, e.CallSid)
	if err != nil {
		return err
	}

	lineType := p.classifyLine(ctx, c)
	transcript, summary, callerName := p.enrich(ctx, c, e)

	update := call.RecordingUpdate{
		CallSid:           e.CallSid,
		RecordingURL:      telephony.NormalizeRecordingURL(e.RecordingURL),
		RecordingDuration: e.DurationSeconds,
		Transcript:        transcript,
		Summary:           summary,
		CallerType:        lineType,
	}
	if callerName != nil {
		source := call.NameSourceAI
		update.CallerName = &callerName.name
		update.NameSource = &source
		update.NameConfidence = &callerName.confidence
	}

	// The one write that matters: soft failures above never block it.
	if err := p.calls.SaveRecordingResult(ctx, update); err != nil {
		return err
	}

	if p.audit != nil {
		meta := fmt.Sprintf(`{"duration":%d,"line_type":%q}`, e.DurationSeconds, lineType)
		if err := p.audit.LogRecordingProcessed(ctx, c.TenantID, e.CallSid, meta); err != nil {
			log.Warn("audit append failed", "err", err)
		}
	}

	updated, err := p.calls.GetBySid(ctx, e.CallSid)
	if err != nil {
		log.Error("reload after persist failed; skipping sms dispatch", "err", err)
		return nil
	}
	if p.notifier != nil {
		p.notifier.Dispatch(ctx, updated)
	}
	return nil
}

// classifyLine looks up the caller's line type. Never fatal; a failed lookup
// keeps whatever classification the row already has.
func (p *Processor) classifyLine(ctx context.Context, c call.Call) string {
	current := c.CallerType
	if current == "" {
		current = call.CallerTypeUnknown
	}
	if p.lookup == nil || c.CallerNumber == "" {
		return current
	}
	lt, err := p.lookup.LookupLineType(ctx, c.CallerNumber)
	if err != nil || lt == "" {
		logger.From(ctx).Warn("line type lookup failed",
			"call_sid", c.CallSid, "err", err)
		return current
	}
	return lt
}

type extractedName struct {
	name       string
	confidence float64
}

// enrich runs the voicemail gate, transcription, summarization and name
// extraction, substituting fixed fallbacks wherever a stage fails.
func (p *Processor) enrich(ctx context.Context, c call.Call, e Event) (transcript, summary string, name *extractedName) {
	log := logger.From(ctx).With("call_sid", e.CallSid)

	if e.DurationSeconds < call.VoicemailDisplayMinSeconds {
		return NoVoicemailTranscript, NoVoicemailSummary, nil
	}

	audioURL := telephony.NormalizeRecordingURL(e.RecordingURL)
	audioBytes, err := p.audio.DownloadRecording(ctx, audioURL)
	if err != nil {
		log.Warn("recording download failed", "err", err)
		return TranscriptUnavailable, SummaryUnavailable, nil
	}

	text, err := p.transcribe.Transcribe(ctx, audioBytes)
	if err != nil || text == "" {
		log.Warn("transcription failed", "err", err)
		return TranscriptUnavailable, SummaryUnavailable, nil
	}
	transcript = text

	summary, err = p.summarize.Summarize(ctx, transcript)
	if err != nil || summary == "" {
		log.Warn("summarization failed", "err", err)
		summary = SummaryUnavailable
	}

	// Name extraction only runs against a real transcript.
	if p.names != nil {
		x, err := p.names.ExtractCallerName(ctx, transcript)
		if err != nil {
			log.Warn("name extraction failed", "err", err)
			return transcript, summary, nil
		}
		if accepted, ok := ai.AcceptCallerName(x); ok {
			name = &extractedName{name: accepted, confidence: x.Confidence}
		}
	}
	return transcript, summary, name
}
