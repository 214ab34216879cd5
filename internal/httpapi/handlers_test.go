package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"voicedesk-platform/internal/ai"
	"voicedesk-platform/internal/call"
	"voicedesk-platform/internal/greeting"
	"voicedesk-platform/internal/intake"
	"voicedesk-platform/internal/recording"
	"voicedesk-platform/internal/storage"
	"voicedesk-platform/internal/tenant"
)

type stubLookup struct{}

func (stubLookup) LookupLineType(ctx context.Context, number string) (string, error) {
	return "mobile", nil
}

type stubFetcher struct{}

func (stubFetcher) DownloadRecording(ctx context.Context, url string) ([]byte, error) {
	return []byte("audio"), nil
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return "Hi, this is Dana, please call me back.", nil
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	return "Dana asked for a callback.", nil
}

type stubExtractor struct{}

func (stubExtractor) ExtractCallerName(ctx context.Context, transcript string) (ai.NameExtraction, error) {
	name := "Dana"
	return ai.NameExtraction{Name: &name, Confidence: 0.9, SelfIntroduction: true}, nil
}

type stubStore struct {
	objects map[string][]byte
}

func (s *stubStore) Download(ctx context.Context, objectPath string) ([]byte, string, error) {
	b, ok := s.objects[objectPath]
	if !ok {
		return nil, "", storage.ErrObjectNotFound
	}
	return b, "audio/mpeg", nil
}

type env struct {
	router  *gin.Engine
	tenants *tenant.MemoryRepo
	calls   *call.MemoryRepo
	store   *stubStore
}

func testTenant() tenant.Tenant {
	return tenant.Tenant{
		ID:            "t1",
		InboundNumber: "+15550100000",
		Plan:          tenant.PlanStandard,
		Timezone:      "Europe/London",
		PlaybackToken: "tok-secret",
		Greeting: tenant.GreetingFields{
			InTTS:       "Thanks for calling Dana Bakery, leave a message.",
			InAudioPath: "t1/in.mp3",
		},
	}
}

func newEnv(t *testing.T, tn tenant.Tenant) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tenants := tenant.NewMemoryRepo(tn)
	calls := call.NewMemoryRepo()
	store := &stubStore{objects: map[string][]byte{"t1/in.mp3": []byte("mp3-bytes")}}

	intakeSvc := intake.NewService(
		tenant.NewResolver(tenants),
		calls,
		greeting.Resolver{BaseURL: "https://api.example.com"},
		nil,
		"https://api.example.com",
		120,
	)
	processor := recording.NewProcessor(
		calls, stubLookup{}, stubFetcher{}, stubTranscriber{}, stubSummarizer{}, stubExtractor{}, nil, nil,
	)

	h := &Handlers{
		Intake:     intakeSvc,
		Recordings: processor,
		Tenants:    tenants,
		Calls:      calls,
		Store:      store,
	}
	router := gin.New()
	h.Register(router)
	return &env{router: router, tenants: tenants, calls: calls, store: store}
}

func postForm(e *env, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func voiceForm(to string) url.Values {
	return url.Values{
		"CallSid": {"CA1"},
		"From":    {"+1 (555) 010-0001"},
		"To":      {to},
	}
}

func TestHandleVoice_RespondsWithGreetingAndRecord(t *testing.T) {
	e := newEnv(t, testTenant())

	w := postForm(e, "/webhooks/twilio/voice", voiceForm("+15550100000"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Fatalf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<Say") || !strings.Contains(body, "Dana Bakery") {
		t.Fatalf("greeting missing from twiml: %s", body)
	}
	if !strings.Contains(body, `action="https://api.example.com/webhooks/twilio/recording"`) {
		t.Fatalf("record callback missing from twiml: %s", body)
	}

	got, err := e.calls.GetBySid(context.Background(), "CA1")
	if err != nil {
		t.Fatalf("call row not written: %v", err)
	}
	if got.CallerNumber != "+15550100001" {
		t.Fatalf("caller number not normalized: %q", got.CallerNumber)
	}
}

func TestHandleVoice_UnknownNumberLeavesNoRow(t *testing.T) {
	e := newEnv(t, testTenant())

	w := postForm(e, "/webhooks/twilio/voice", voiceForm("+15559999999"))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if _, err := e.calls.GetBySid(context.Background(), "CA1"); err == nil {
		t.Fatalf("unknown destination must not write a call row")
	}
}

func TestHandleVoice_MissingFields(t *testing.T) {
	e := newEnv(t, testTenant())
	form := voiceForm("+15550100000")
	form.Del("From")

	w := postForm(e, "/webhooks/twilio/voice", form)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleVoice_AudioGreetingPlays(t *testing.T) {
	tn := testTenant()
	tn.Plan = tenant.PlanPro
	tn.Greeting.InMode = "audio"
	e := newEnv(t, tn)

	w := postForm(e, "/webhooks/twilio/voice", voiceForm("+15550100000"))

	body := w.Body.String()
	if !strings.Contains(body, "<Play>") || !strings.Contains(body, "/voicemail/t1/in?token=") {
		t.Fatalf("expected Play verb with playback url, got: %s", body)
	}
}

func TestHandleRecordingComplete_ProcessesAndHangsUp(t *testing.T) {
	e := newEnv(t, testTenant())
	postForm(e, "/webhooks/twilio/voice", voiceForm("+15550100000"))

	w := postForm(e, "/webhooks/twilio/recording", url.Values{
		"CallSid":           {"CA1"},
		"RecordingUrl":      {"https://api.twilio.com/recordings/RE1"},
		"RecordingDuration": {"15"},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "<Hangup") {
		t.Fatalf("expected hangup twiml, got: %s", w.Body.String())
	}
	got, _ := e.calls.GetBySid(context.Background(), "CA1")
	if got.Status != call.StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if got.Transcript == nil || !strings.Contains(*got.Transcript, "Dana") {
		t.Fatalf("transcript not persisted")
	}
}

func TestHandleRecordingComplete_UnknownCall(t *testing.T) {
	e := newEnv(t, testTenant())

	w := postForm(e, "/webhooks/twilio/recording", url.Values{
		"CallSid":           {"CA-missing"},
		"RecordingUrl":      {"https://api.twilio.com/recordings/RE1"},
		"RecordingDuration": {"15"},
	})

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHandleGreetingAudio(t *testing.T) {
	e := newEnv(t, testTenant())

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"valid token streams audio", "/voicemail/t1/in?token=tok-secret", http.StatusOK},
		{"wrong token", "/voicemail/t1/in?token=wrong", http.StatusUnauthorized},
		{"missing token", "/voicemail/t1/in", http.StatusUnauthorized},
		{"slot without upload", "/voicemail/t1/out?token=tok-secret", http.StatusNotFound},
		{"invalid slot", "/voicemail/t1/night?token=tok-secret", http.StatusNotFound},
		{"unknown tenant", "/voicemail/t9/in?token=tok-secret", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			w := httptest.NewRecorder()
			e.router.ServeHTTP(w, req)
			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantCode)
			}
			if tc.wantCode == http.StatusOK && w.Body.String() != "mp3-bytes" {
				t.Fatalf("audio bytes not streamed")
			}
		})
	}
}

func portalGet(e *env, path, tenantID, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tenantID != "" {
		req.Header.Set(headerTenantID, tenantID)
	}
	if token != "" {
		req.Header.Set(headerAuthToken, token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestListCalls(t *testing.T) {
	e := newEnv(t, testTenant())
	ctx := context.Background()
	e.calls.UpsertIncoming(ctx, call.Call{CallSid: "CA1", TenantID: "t1", CallerNumber: "+15550100001"})
	e.calls.SaveRecordingResult(ctx, call.RecordingUpdate{
		CallSid: "CA1", RecordingURL: "https://r/RE1.mp3", RecordingDuration: 10,
		Transcript: "hello", Summary: "caller said hello", CallerType: "mobile",
	})
	e.calls.UpsertIncoming(ctx, call.Call{CallSid: "CA2", TenantID: "other", CallerNumber: "+15550100002"})

	w := portalGet(e, "/v1/calls", "t1", "tok-secret")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, `"call_sid":"CA1"`) || strings.Contains(body, "CA2") {
		t.Fatalf("list must be tenant-scoped: %s", body)
	}
	if !strings.Contains(body, `"voicemail_left":true`) || !strings.Contains(body, `"inbox_status":"voicemail"`) {
		t.Fatalf("derived fields missing: %s", body)
	}
}

func TestListCalls_Unauthorized(t *testing.T) {
	e := newEnv(t, testTenant())
	for _, tc := range []struct{ name, id, token string }{
		{"no credentials", "", ""},
		{"wrong token", "t1", "bad"},
		{"unknown tenant", "t9", "tok-secret"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if w := portalGet(e, "/v1/calls", tc.id, tc.token); w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestGetCall_CrossTenantIsNotFound(t *testing.T) {
	e := newEnv(t, testTenant())
	ctx := context.Background()
	e.calls.UpsertIncoming(ctx, call.Call{CallSid: "CA9", TenantID: "other"})

	if w := portalGet(e, "/v1/calls/CA9", "t1", "tok-secret"); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
