package call

import (
	"context"
	"errors"
)

// Repository is the persistence contract for calls.
//
// Webhooks are delivered at-least-once, so every mutation must be replay-safe:
// - UpsertIncoming never duplicates a row or clobbers later enrichment.
// - SaveRecordingResult is keyed by CallSid and idempotent by construction.
// - MarkSMSSent performs the false->true flip conditionally and reports
//   whether this caller won; losers must not send.
type Repository interface {
	UpsertIncoming(ctx context.Context, c Call) error
	GetBySid(ctx context.Context, callSid string) (Call, error)
	SaveRecordingResult(ctx context.Context, u RecordingUpdate) error
	MarkSMSSent(ctx context.Context, callSid string) (bool, error)
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]Call, error)
}

var ErrNotFound = errors.New("call: not found")
