package notify

import (
	"context"
	"strings"

	"voicedesk-platform/internal/audit"
	"voicedesk-platform/internal/call"
	"voicedesk-platform/pkg/logger"
)

// MinVoicemailSeconds is the SMS-eligibility threshold. It is intentionally
// one second below call.VoicemailDisplayMinSeconds; the mismatch is inherited
// behavior, tracked with product, and must not be silently unified.
const MinVoicemailSeconds = 2

// FollowUpBody is the fixed apology+callback message sent to mobile callers.
const FollowUpBody = "Sorry we missed your call. We'll get back to you as soon as possible."

const lineTypeMobile = "mobile"

// SMSSender sends one outbound message at the provider boundary.
type SMSSender interface {
	SendSMS(ctx context.Context, from, to, body string) error
}

// OnceGuard is a best-effort cross-instance claim used to thin out concurrent
// redeliveries. The database sms_sent flip stays the source of truth; a guard
// failure degrades to relying on it alone.
type OnceGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Dispatcher sends the single follow-up SMS per call.
//
// Failure here is never propagated: voicemail persistence already happened and
// must not be rolled back. A failed send leaves sms_sent false so a retry
// path stays open.
type Dispatcher struct {
	calls  call.Repository
	sender SMSSender
	guard  OnceGuard
	audit  *audit.Service
}

func NewDispatcher(calls call.Repository, sender SMSSender, guard OnceGuard, auditSvc *audit.Service) *Dispatcher {
	return &Dispatcher{calls: calls, sender: sender, guard: guard, audit: auditSvc}
}

// Dispatch evaluates eligibility and sends at most one SMS for the call.
//
// Eligible only when all hold: sms_sent is false, the recording lasted at
// least MinVoicemailSeconds, the caller's line type is mobile and a caller
// number is present.
func (d *Dispatcher) Dispatch(ctx context.Context, c call.Call) {
	log := logger.From(ctx).With("call_sid", c.CallSid)

	if c.SMSSent {
		return
	}
	if c.RecordingDuration < MinVoicemailSeconds {
		return
	}
	if !strings.EqualFold(c.CallerType, lineTypeMobile) {
		return
	}
	if c.CallerNumber == "" {
		return
	}

	key := "sms:once:" + c.CallSid
	if d.guard != nil {
		acquired, err := d.guard.Acquire(ctx, key)
		if err != nil {
			// Guard outage: fall through to the database flip.
			log.Warn("sms once-guard unavailable", "err", err)
		} else if !acquired {
			log.Info("sms already claimed by a concurrent delivery")
			return
		}
	}

	if err := d.sender.SendSMS(ctx, c.InboundTo, c.CallerNumber, FollowUpBody); err != nil {
		log.Error("follow-up sms send failed", "err", err)
		if d.guard != nil {
			_ = d.guard.Release(ctx, key)
		}
		return
	}

	flipped, err := d.calls.MarkSMSSent(ctx, c.CallSid)
	if err != nil {
		// The message went out but the flag write failed; surfacing the error
		// would re-run the whole webhook, so log loudly instead.
		log.Error("sms_sent persist failed after send", "err", err)
		return
	}
	if !flipped {
		log.Warn("sms_sent already set; duplicate send suppressed too late")
		return
	}

	if d.audit != nil {
		if err := d.audit.LogSMSSent(ctx, c.TenantID, c.CallSid); err != nil {
			log.Warn("audit append failed", "err", err)
		}
	}
	log.Info("follow-up sms sent", "to", c.CallerNumber)
}
