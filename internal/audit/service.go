package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records the processing trail of the voicemail pipeline.
// Callers treat it as best-effort: a lost audit row is logged and forgotten.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.TenantID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogCallReceived records an accepted call-start event.
func (s *Service) LogCallReceived(ctx context.Context, tenantID, callSid, metadata string) error {
	return s.Append(ctx, Event{
		TenantID: tenantID,
		Type:     EventTypeCallReceived,
		CallSid:  callSid,
		Message:  "inbound call accepted",
		Metadata: metadata,
	})
}

// LogRecordingProcessed records completion of the post-processing pipeline.
func (s *Service) LogRecordingProcessed(ctx context.Context, tenantID, callSid, metadata string) error {
	return s.Append(ctx, Event{
		TenantID: tenantID,
		Type:     EventTypeRecordingProcessed,
		CallSid:  callSid,
		Message:  "recording processed",
		Metadata: metadata,
	})
}

// LogSMSSent records a dispatched follow-up message.
func (s *Service) LogSMSSent(ctx context.Context, tenantID, callSid string) error {
	return s.Append(ctx, Event{
		TenantID: tenantID,
		Type:     EventTypeSMSSent,
		CallSid:  callSid,
		Message:  "follow-up sms sent",
	})
}
