package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voicedesk-platform/internal/call"
	"voicedesk-platform/internal/greeting"
	"voicedesk-platform/internal/intake"
	"voicedesk-platform/internal/recording"
	"voicedesk-platform/internal/storage"
	"voicedesk-platform/internal/telephony"
	"voicedesk-platform/internal/tenant"
	"voicedesk-platform/pkg/logger"
)

const (
	headerTenantID  = "X-Tenant-Id"
	headerAuthToken = "X-Voicemail-Token"

	defaultListLimit = 30
	maxListLimit     = 100
)

// AudioStore fetches uploaded greeting audio for provider playback.
type AudioStore interface {
	Download(ctx context.Context, objectPath string) ([]byte, string, error)
}

// Handlers wires the HTTP surface: the two provider webhooks, the greeting
// audio playback endpoint and the portal read API.
type Handlers struct {
	Intake     *intake.Service
	Recordings *recording.Processor
	Tenants    tenant.Repository
	Calls      call.Repository
	Store      AudioStore
}

// Register mounts all routes on the engine.
func (h *Handlers) Register(r *gin.Engine) {
	r.POST("/webhooks/twilio/voice", h.HandleVoice)
	r.POST("/webhooks/twilio/recording", h.HandleRecordingComplete)

	r.GET("/voicemail/:tenant_id/:slot", h.HandleGreetingAudio)

	v1 := r.Group("/v1")
	v1.GET("/calls", h.ListCalls)
	v1.GET("/calls/:call_sid", h.GetCall)
}

// HandleVoice is the call-start webhook. The provider expects TwiML back;
// anything else makes it read an error message to the caller, so failures are
// mapped to plain statuses the provider's debugger surfaces.
func (h *Handlers) HandleVoice(c *gin.Context) {
	hook, err := telephony.ParseVoiceWebhook(c.Request)
	if err != nil {
		c.String(http.StatusBadRequest, "malformed webhook")
		return
	}

	inst, err := h.Intake.Handle(c.Request.Context(), intake.Event{
		CallSid: hook.CallSid,
		From:    hook.From,
		To:      hook.To,
	})
	switch {
	case errors.Is(err, intake.ErrMissingFields):
		c.String(http.StatusBadRequest, "missing required fields")
		return
	case errors.Is(err, tenant.ErrNotFound):
		logger.FromGin(c).Warn("call to unprovisioned number", "to", hook.To)
		c.String(http.StatusNotFound, "unknown destination")
		return
	case err != nil:
		logger.FromGin(c).Error("intake failed", "call_sid", hook.CallSid, "err", err)
		c.String(http.StatusInternalServerError, "intake failed")
		return
	}

	xmlBody, err := telephony.RenderVoicemailTwiML(inst.Greeting, telephony.RecordInstruction{
		CallbackURL: inst.RecordCallbackURL,
		MaxSeconds:  inst.MaxRecordingSeconds,
	})
	if err != nil {
		logger.FromGin(c).Error("twiml render failed", "call_sid", hook.CallSid, "err", err)
		c.String(http.StatusInternalServerError, "render failed")
		return
	}
	c.Data(http.StatusOK, "application/xml", []byte(xmlBody))
}

// HandleRecordingComplete is the recording-complete webhook. A 2xx stops
// provider retries, so it is returned whenever the row was persisted; hard
// failures return 5xx on purpose to get the event redelivered.
func (h *Handlers) HandleRecordingComplete(c *gin.Context) {
	hook, err := telephony.ParseRecordingWebhook(c.Request)
	if err != nil {
		c.String(http.StatusBadRequest, "malformed webhook")
		return
	}

	err = h.Recordings.Process(c.Request.Context(), recording.Event{
		CallSid:         hook.CallSid,
		RecordingURL:    hook.RecordingURL,
		DurationSeconds: hook.DurationSeconds,
	})
	switch {
	case errors.Is(err, recording.ErrMissingCallSid):
		c.String(http.StatusBadRequest, "missing CallSid")
		return
	case errors.Is(err, call.ErrNotFound):
		logger.FromGin(c).Warn("recording for unknown call", "call_sid", hook.CallSid)
		c.String(http.StatusNotFound, "unknown call")
		return
	case err != nil:
		logger.FromGin(c).Error("recording processing failed", "call_sid", hook.CallSid, "err", err)
		c.String(http.StatusInternalServerError, "processing failed")
		return
	}

	xmlBody, err := telephony.RenderHangupTwiML()
	if err != nil {
		c.String(http.StatusInternalServerError, "render failed")
		return
	}
	c.Data(http.StatusOK, "application/xml", []byte(xmlBody))
}

// HandleGreetingAudio streams an uploaded greeting to the telephony provider.
// The route is unauthenticated by design; the tenant's playback token in the
// query string is the only gate, compared by equality against storage.
func (h *Handlers) HandleGreetingAudio(c *gin.Context) {
	tn, err := h.Tenants.GetByID(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			c.String(http.StatusNotFound, "not found")
			return
		}
		c.String(http.StatusInternalServerError, "lookup failed")
		return
	}

	token := c.Query("token")
	if token == "" || tn.PlaybackToken == "" || token != tn.PlaybackToken {
		c.String(http.StatusUnauthorized, "invalid token")
		return
	}

	var objectPath string
	switch greeting.Slot(c.Param("slot")) {
	case greeting.SlotInHours:
		objectPath = tn.Greeting.InAudioPath
	case greeting.SlotOutOfHours:
		objectPath = tn.Greeting.OutAudioPath
	default:
		c.String(http.StatusNotFound, "not found")
		return
	}
	if objectPath == "" {
		c.String(http.StatusNotFound, "not found")
		return
	}

	audio, contentType, err := h.Store.Download(c.Request.Context(), objectPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			c.String(http.StatusNotFound, "not found")
			return
		}
		logger.FromGin(c).Error("greeting download failed", "tenant_id", tn.ID, "err", err)
		c.String(http.StatusInternalServerError, "download failed")
		return
	}
	c.Data(http.StatusOK, contentType, audio)
}

// callView is the portal-facing shape of a call row. voicemail_left and
// inbox_status are derived on read, never stored.
type callView struct {
	CallSid           string   `json:"call_sid"`
	CallerNumber      string   `json:"caller_number"`
	CallerType        string   `json:"caller_type"`
	Status            string   `json:"call_status"`
	InboxStatus       string   `json:"inbox_status"`
	VoicemailLeft     bool     `json:"voicemail_left"`
	SMSSent           bool     `json:"sms_sent"`
	RecordingURL      string   `json:"recording_url,omitempty"`
	RecordingDuration int      `json:"recording_duration"`
	Transcript        *string  `json:"transcript,omitempty"`
	Summary           *string  `json:"ai_summary,omitempty"`
	CallerName        *string  `json:"caller_name,omitempty"`
	NameConfidence    *float64 `json:"name_confidence,omitempty"`
	CreatedAt         string   `json:"created_at"`
}

func toView(c call.Call) callView {
	return callView{
		CallSid:           c.CallSid,
		CallerNumber:      c.CallerNumber,
		CallerType:        c.CallerType,
		Status:            string(c.Status),
		InboxStatus:       c.InboxStatus(),
		VoicemailLeft:     c.VoicemailLeft(),
		SMSSent:           c.SMSSent,
		RecordingURL:      c.RecordingURL,
		RecordingDuration: c.RecordingDuration,
		Transcript:        c.Transcript,
		Summary:           c.Summary,
		CallerName:        c.CallerName,
		NameConfidence:    c.NameConfidence,
		CreatedAt:         c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// authorizeTenant validates the portal token headers and returns the tenant.
func (h *Handlers) authorizeTenant(c *gin.Context) (tenant.Tenant, bool) {
	id := c.GetHeader(headerTenantID)
	token := c.GetHeader(headerAuthToken)
	if id == "" || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return tenant.Tenant{}, false
	}
	tn, err := h.Tenants.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return tenant.Tenant{}, false
	}
	if tn.PlaybackToken == "" || token != tn.PlaybackToken {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return tenant.Tenant{}, false
	}
	return tn, true
}

// ListCalls returns the tenant's most recent calls, newest first.
func (h *Handlers) ListCalls(c *gin.Context) {
	tn, ok := h.authorizeTenant(c)
	if !ok {
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxListLimit)
	}

	rows, err := h.Calls.ListByTenant(c.Request.Context(), tn.ID, limit)
	if err != nil {
		logger.FromGin(c).Error("list calls failed", "tenant_id", tn.ID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	views := make([]callView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toView(row))
	}
	c.JSON(http.StatusOK, gin.H{"calls": views})
}

// GetCall returns one call, scoped to the authenticated tenant.
func (h *Handlers) GetCall(c *gin.Context) {
	tn, ok := h.authorizeTenant(c)
	if !ok {
		return
	}

	row, err := h.Calls.GetBySid(c.Request.Context(), c.Param("call_sid"))
	if err != nil {
		if errors.Is(err, call.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if row.TenantID != tn.ID {
		// Cross-tenant probes get the same answer as a miss.
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, toView(row))
}
