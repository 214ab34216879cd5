package call

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory call repository for tests.
// It mirrors the replay-safety semantics of the Postgres repo.
type MemoryRepo struct {
	mu    sync.Mutex
	calls map[string]Call
	clock func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{calls: make(map[string]Call), clock: time.Now}
}

func (r *MemoryRepo) UpsertIncoming(ctx context.Context, c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.calls[c.CallSid]; exists {
		// Redelivery: keep the existing row untouched.
		return nil
	}
	now := r.clock().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = StatusIncoming
	}
	if c.CallerType == "" {
		c.CallerType = CallerTypeUnknown
	}
	r.calls[c.CallSid] = c
	return nil
}

func (r *MemoryRepo) GetBySid(ctx context.Context, callSid string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callSid]
	if !ok {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) SaveRecordingResult(ctx context.Context, u RecordingUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[u.CallSid]
	if !ok {
		return ErrNotFound
	}
	c.RecordingURL = u.RecordingURL
	c.RecordingDuration = u.RecordingDuration
	transcript := u.Transcript
	summary := u.Summary
	c.Transcript = &transcript
	c.Summary = &summary
	c.CallerType = u.CallerType
	c.CallerName = u.CallerName
	c.NameSource = u.NameSource
	c.NameConfidence = u.NameConfidence
	c.Status = StatusCompleted
	c.UpdatedAt = r.clock().UTC()
	r.calls[u.CallSid] = c
	return nil
}

func (r *MemoryRepo) MarkSMSSent(ctx context.Context, callSid string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callSid]
	if !ok {
		return false, ErrNotFound
	}
	if c.SMSSent {
		return false, nil
	}
	c.SMSSent = true
	c.UpdatedAt = r.clock().UTC()
	r.calls[callSid] = c
	return true, nil
}

func (r *MemoryRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
