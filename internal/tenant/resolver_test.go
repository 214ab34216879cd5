package tenant

import (
	"context"
	"errors"
	"testing"
)

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+15550100000", "+15550100000"},
		{"+1 (555) 010-0000", "+15550100000"},
		{"  +44 20 7946 0000 ", "+442079460000"},
		{"555.010.0000", "5550100000"},
		{"anonymous", ""},
	}
	for _, tc := range tests {
		if got := NormalizeNumber(tc.in); got != tc.want {
			t.Fatalf("NormalizeNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolver_MatchesAfterNormalization(t *testing.T) {
	repo := NewMemoryRepo(Tenant{ID: "t1", InboundNumber: "+15550100000", Plan: PlanPro})
	r := NewResolver(repo)

	got, err := r.Resolve(context.Background(), "+1 (555) 010-0000")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.ID != "t1" {
		t.Fatalf("resolved wrong tenant: %+v", got)
	}
}

func TestResolver_UnknownNumberIsNotFound(t *testing.T) {
	r := NewResolver(NewMemoryRepo())

	_, err := r.Resolve(context.Background(), "+15550109999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolver_EmptyNumberIsNotFound(t *testing.T) {
	r := NewResolver(NewMemoryRepo())
	if _, err := r.Resolve(context.Background(), "anonymous"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
