package tenant

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory tenant repository for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]Tenant
	byPhone map[string]Tenant
}

func NewMemoryRepo(tenants ...Tenant) *MemoryRepo {
	r := &MemoryRepo{
		byID:    make(map[string]Tenant),
		byPhone: make(map[string]Tenant),
	}
	for _, t := range tenants {
		r.Put(t)
	}
	return r
}

func (r *MemoryRepo) Put(t Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[t.ID] = t
	r.byPhone[t.InboundNumber] = t
}

func (r *MemoryRepo) GetByInboundNumber(ctx context.Context, number string) (Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byPhone[number]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}
