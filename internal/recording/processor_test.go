package recording

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"voicedesk-platform/internal/ai"
	"voicedesk-platform/internal/call"
	"voicedesk-platform/internal/notify"
)

type fakeLookup struct {
	lineType string
	err      error
	calls    int
}

func (f *fakeLookup) LookupLineType(ctx context.Context, number string) (string, error) {
	f.calls++
	return f.lineType, f.err
}

type fakeFetcher struct {
	err   error
	calls int
}

func (f *fakeFetcher) DownloadRecording(ctx context.Context, url string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("audio-bytes"), nil
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	return f.summary, f.err
}

type fakeExtractor struct {
	result ai.NameExtraction
	err    error
	calls  int
}

func (f *fakeExtractor) ExtractCallerName(ctx context.Context, transcript string) (ai.NameExtraction, error) {
	f.calls++
	return f.result, f.err
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSMS) SendSMS(ctx context.Context, from, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return nil
}

func (f *fakeSMS) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fixture struct {
	repo       *call.MemoryRepo
	lookup     *fakeLookup
	fetcher    *fakeFetcher
	transcribe *fakeTranscriber
	summarize  *fakeSummarizer
	extract    *fakeExtractor
	sms        *fakeSMS
	proc       *Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := "Sarah Mitchell"
	f := &fixture{
		repo:       call.NewMemoryRepo(),
		lookup:     &fakeLookup{lineType: "mobile"},
		fetcher:    &fakeFetcher{},
		transcribe: &fakeTranscriber{text: "Hi, this is Sarah Mitchell, call me back about the quote."},
		summarize:  &fakeSummarizer{summary: "Sarah wants a callback about a quote."},
		extract: &fakeExtractor{result: ai.NameExtraction{
			Name:             &name,
			Confidence:       0.95,
			SelfIntroduction: true,
		}},
		sms: &fakeSMS{},
	}
	notifier := notify.NewDispatcher(f.repo, f.sms, nil, nil)
	f.proc = NewProcessor(f.repo, f.lookup, f.fetcher, f.transcribe, f.summarize, f.extract, notifier, nil)
	return f
}

func (f *fixture) seed(t *testing.T, c call.Call) {
	t.Helper()
	if err := f.repo.UpsertIncoming(context.Background(), c); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func incomingCall() call.Call {
	return call.Call{
		CallSid:      "CA100",
		TenantID:     "t1",
		CallerNumber: "+15550100001",
		InboundTo:    "+15550100000",
		Status:       call.StatusIncoming,
	}
}

func event(duration int) Event {
	return Event{
		CallSid:         "CA100",
		RecordingURL:    "https://api.twilio.com/recordings/RE100",
		DurationSeconds: duration,
	}
}

func TestProcess_FullPipeline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, incomingCall())

	if err := f.proc.Process(ctx, event(12)); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, err := f.repo.GetBySid(ctx, "CA100")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != call.StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if !strings.HasSuffix(got.RecordingURL, ".mp3") {
		t.Fatalf("recording url not normalized: %q", got.RecordingURL)
	}
	if got.Transcript == nil || !strings.Contains(*got.Transcript, "Sarah Mitchell") {
		t.Fatalf("transcript not persisted: %v", got.Transcript)
	}
	if got.Summary == nil || *got.Summary != "Sarah wants a callback about a quote." {
		t.Fatalf("summary not persisted: %v", got.Summary)
	}
	if got.CallerName == nil || *got.CallerName != "Sarah Mitchell" {
		t.Fatalf("caller name not persisted: %v", got.CallerName)
	}
	if got.NameSource == nil || *got.NameSource != call.NameSourceAI {
		t.Fatalf("name source = %v, want ai", got.NameSource)
	}
	if got.CallerType != "mobile" {
		t.Fatalf("caller type = %q, want mobile", got.CallerType)
	}
	if !got.VoicemailLeft() {
		t.Fatalf("12s recording must count as voicemail")
	}
	if !got.SMSSent || f.sms.count() != 1 {
		t.Fatalf("mobile caller with voicemail must get the follow-up sms")
	}
}

func TestProcess_MissingCallSid(t *testing.T) {
	f := newFixture(t)
	err := f.proc.Process(context.Background(), Event{RecordingURL: "https://x/RE1"})
	if !errors.Is(err, ErrMissingCallSid) {
		t.Fatalf("err = %v, want ErrMissingCallSid", err)
	}
}

func TestProcess_UnknownCallFails(t *testing.T) {
	f := newFixture(t)
	err := f.proc.Process(context.Background(), event(10))
	if !errors.Is(err, call.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestProcess_ShortRecordingUsesPlaceholders(t *testing.T) {
	for _, duration := range []int{0, 1} {
		ctx := context.Background()
		f := newFixture(t)
		f.seed(t, incomingCall())

		if err := f.proc.Process(ctx, event(duration)); err != nil {
			t.Fatalf("duration %d: process: %v", duration, err)
		}

		got, _ := f.repo.GetBySid(ctx, "CA100")
		if got.Transcript == nil || *got.Transcript != NoVoicemailTranscript {
			t.Fatalf("duration %d: transcript = %v, want no-voicemail placeholder", duration, got.Transcript)
		}
		if got.Summary == nil || *got.Summary != NoVoicemailSummary {
			t.Fatalf("duration %d: summary = %v, want no-voicemail placeholder", duration, got.Summary)
		}
		if got.CallerName != nil {
			t.Fatalf("duration %d: short recording must not carry a caller name", duration)
		}
		if f.fetcher.calls != 0 || f.transcribe.calls != 0 || f.extract.calls != 0 {
			t.Fatalf("duration %d: short recording must skip download/transcription/extraction", duration)
		}
		if got.VoicemailLeft() {
			t.Fatalf("duration %d: must not count as voicemail", duration)
		}
		if got.SMSSent || f.sms.count() != 0 {
			t.Fatalf("duration %d: must not trigger sms", duration)
		}
	}
}

func TestProcess_TwoSecondRecordingSendsSMSWithoutVoicemail(t *testing.T) {
	// 2s sits between the sms threshold and the display threshold: the caller
	// gets a follow-up text while the inbox shows no voicemail.
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, incomingCall())

	if err := f.proc.Process(ctx, event(2)); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, _ := f.repo.GetBySid(ctx, "CA100")
	if got.VoicemailLeft() {
		t.Fatalf("2s recording must not count as voicemail")
	}
	if !got.SMSSent || f.sms.count() != 1 {
		t.Fatalf("2s mobile recording must be sms-eligible")
	}
	if got.Transcript == nil || *got.Transcript != NoVoicemailTranscript {
		t.Fatalf("2s recording must carry the no-voicemail placeholder")
	}
}

func TestProcess_LookupFailureKeepsUnknown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.lookup.err = errors.New("lookup down")
	f.seed(t, incomingCall())

	if err := f.proc.Process(ctx, event(10)); err != nil {
		t.Fatalf("lookup failure must not fail the pipeline: %v", err)
	}

	got, _ := f.repo.GetBySid(ctx, "CA100")
	if got.CallerType != call.CallerTypeUnknown {
		t.Fatalf("caller type = %q, want unknown", got.CallerType)
	}
	if got.SMSSent {
		t.Fatalf("unknown line type must not get sms")
	}
	if got.Transcript == nil || *got.Transcript == "" {
		t.Fatalf("transcription must still run after lookup failure")
	}
}

func TestProcess_DownloadFailureUsesUnavailablePlaceholders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fetcher.err = errors.New("404 from provider")
	f.seed(t, incomingCall())

	if err := f.proc.Process(ctx, event(10)); err != nil {
		t.Fatalf("download failure must not fail the pipeline: %v", err)
	}

	got, _ := f.repo.GetBySid(ctx, "CA100")
	if got.Transcript == nil || *got.Transcript != TranscriptUnavailable {
		t.Fatalf("transcript = %v, want unavailable placeholder", got.Transcript)
	}
	if got.Summary == nil || *got.Summary != SummaryUnavailable {
		t.Fatalf("summary = %v, want unavailable placeholder", got.Summary)
	}
	if f.extract.calls != 0 {
		t.Fatalf("name extraction must not run on a placeholder transcript")
	}
	if !got.SMSSent {
		t.Fatalf("sms eligibility is independent of transcription outcome")
	}
}

func TestProcess_TranscriptionFailureUsesUnavailablePlaceholders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.transcribe.err = errors.New("model timeout")
	f.seed(t, incomingCall())

	if err := f.proc.Process(ctx, event(10)); err != nil {
		t.Fatalf("transcription failure must not fail the pipeline: %v", err)
	}

	got, _ := f.repo.GetBySid(ctx, "CA100")
	if got.Transcript == nil || *got.Transcript != TranscriptUnavailable {
		t.Fatalf("transcript = %v, want unavailable placeholder", got.Transcript)
	}
	if f.extract.calls != 0 {
		t.Fatalf("name extraction must not run without a real transcript")
	}
}

func TestProcess_SummarizationFailureKeepsTranscript(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.summarize.err = errors.New("model timeout")
	f.seed(t, incomingCall())

	if err := f.proc.Process(ctx, event(10)); err != nil {
		t.Fatalf("summarization failure must not fail the pipeline: %v", err)
	}

	got, _ := f.repo.GetBySid(ctx, "CA100")
	if got.Transcript == nil || !strings.Contains(*got.Transcript, "Sarah") {
		t.Fatalf("real transcript must survive a summary failure")
	}
	if got.Summary == nil || *got.Summary != SummaryUnavailable {
		t.Fatalf("summary = %v, want unavailable placeholder", got.Summary)
	}
	if got.CallerName == nil {
		t.Fatalf("name extraction must still run on the real transcript")
	}
}

func TestProcess_NameConfidenceFloor(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		wantName   bool
	}{
		{"below floor", 0.84, false},
		{"at floor", 0.85, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			f.extract.result.Confidence = tc.confidence
			f.seed(t, incomingCall())

			if err := f.proc.Process(ctx, event(10)); err != nil {
				t.Fatalf("process: %v", err)
			}

			got, _ := f.repo.GetBySid(ctx, "CA100")
			if tc.wantName && got.CallerName == nil {
				t.Fatalf("confidence %.2f must be accepted", tc.confidence)
			}
			if !tc.wantName && got.CallerName != nil {
				t.Fatalf("confidence %.2f must persist NULL, got %q", tc.confidence, *got.CallerName)
			}
		})
	}
}

func TestProcess_RedeliveryDoesNotDuplicateSMS(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, incomingCall())

	if err := f.proc.Process(ctx, event(10)); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := f.proc.Process(ctx, event(10)); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	if f.sms.count() != 1 {
		t.Fatalf("redelivery sent a duplicate sms: %d sends", f.sms.count())
	}
	got, _ := f.repo.GetBySid(ctx, "CA100")
	if got.Status != call.StatusCompleted {
		t.Fatalf("redelivery must converge on the same state")
	}
}
