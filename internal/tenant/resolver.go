package tenant

import (
	"context"
	"errors"
	"strings"
)

// Repository is the persistence contract for tenants.
// The core never mutates tenants; settings writes belong to the portal.
type Repository interface {
	GetByInboundNumber(ctx context.Context, number string) (Tenant, error)
	GetByID(ctx context.Context, id string) (Tenant, error)
}

var ErrNotFound = errors.New("tenant: not found")

// Resolver maps an inbound destination number to its owning tenant.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve normalizes the dialed number and looks up the owning tenant.
// ErrNotFound is fatal for the call: the event is rejected and no row is written.
func (r *Resolver) Resolve(ctx context.Context, dialedNumber string) (Tenant, error) {
	n := NormalizeNumber(dialedNumber)
	if n == "" {
		return Tenant{}, ErrNotFound
	}
	return r.repo.GetByInboundNumber(ctx, n)
}

// NormalizeNumber strips everything but digits and the leading plus.
// Providers occasionally deliver formatted numbers ("+1 (555) 010-0000").
func NormalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
