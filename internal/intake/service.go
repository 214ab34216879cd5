package intake

import (
	"context"
	"errors"
	"time"

	"voicedesk-platform/internal/audit"
	"voicedesk-platform/internal/call"
	"voicedesk-platform/internal/greeting"
	"voicedesk-platform/internal/hours"
	"voicedesk-platform/internal/tenant"
	"voicedesk-platform/pkg/logger"
)

// Event is the call-start webhook reduced to the fields intake needs.
type Event struct {
	CallSid string
	From    string
	To      string
}

// Instruction tells the telephony boundary what to do with the live call:
// play the resolved greeting, then record with a completion callback.
type Instruction struct {
	TenantID            string
	Greeting            greeting.Selection
	RecordCallbackURL   string
	MaxRecordingSeconds int
}

// ErrMissingFields marks a webhook without the required identifiers.
// Rejected synchronously; no side effects.
var ErrMissingFields = errors.New("intake: missing required webhook fields")

// Service handles the call-start event: resolve the tenant, upsert the call
// row, evaluate business hours and pick the greeting.
type Service struct {
	tenants   *tenant.Resolver
	calls     call.Repository
	greetings greeting.Resolver
	audit     *audit.Service

	baseURL             string
	maxRecordingSeconds int
	now                 func() time.Time
}

func NewService(
	tenants *tenant.Resolver,
	calls call.Repository,
	greetings greeting.Resolver,
	auditSvc *audit.Service,
	baseURL string,
	maxRecordingSeconds int,
) *Service {
	if maxRecordingSeconds <= 0 {
		maxRecordingSeconds = 120
	}
	return &Service{
		tenants:             tenants,
		calls:               calls,
		greetings:           greetings,
		audit:               auditSvc,
		baseURL:             baseURL,
		maxRecordingSeconds: maxRecordingSeconds,
		now:                 time.Now,
	}
}

// WithClock overrides the clock for deterministic tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Handle processes one call-start event.
//
// Ordering matters: the tenant is resolved before any write, so an unknown
// destination leaves no row behind. The upsert is replay-safe; redelivery of
// the same CallSid neither duplicates nor resets the call.
func (s *Service) Handle(ctx context.Context, e Event) (Instruction, error) {
	if e.CallSid == "" || e.From == "" || e.To == "" {
		return Instruction{}, ErrMissingFields
	}

	tn, err := s.tenants.Resolve(ctx, e.To)
	if err != nil {
		return Instruction{}, err
	}

	err = s.calls.UpsertIncoming(ctx, call.Call{
		CallSid:      e.CallSid,
		TenantID:     tn.ID,
		CallerNumber: tenant.NormalizeNumber(e.From),
		InboundTo:    tn.InboundNumber,
		Status:       call.StatusIncoming,
	})
	if err != nil {
		return Instruction{}, err
	}

	open := hours.IsOpen(s.now(), tn.Timezone, tn.BusinessHours, tn.LegacyHours)
	sel := s.greetings.Select(tn, open)

	if s.audit != nil {
		if err := s.audit.LogCallReceived(ctx, tn.ID, e.CallSid, ""); err != nil {
			logger.From(ctx).Warn("audit append failed", "call_sid", e.CallSid, "err", err)
		}
	}

	logger.From(ctx).Info("inbound call accepted",
		"call_sid", e.CallSid,
		"tenant_id", tn.ID,
		"open", open,
		"slot", sel.Slot,
		"mode", sel.Mode,
	)

	return Instruction{
		TenantID:            tn.ID,
		Greeting:            sel,
		RecordCallbackURL:   s.baseURL + "/webhooks/twilio/recording",
		MaxRecordingSeconds: s.maxRecordingSeconds,
	}, nil
}
