package ai

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestAcceptCallerName_ConfidenceBoundary(t *testing.T) {
	base := NameExtraction{Name: strPtr("Sarah Jones"), SelfIntroduction: true}

	base.Confidence = 0.84
	if _, ok := AcceptCallerName(base); ok {
		t.Fatalf("confidence 0.84 must be rejected")
	}
	base.Confidence = 0.85
	name, ok := AcceptCallerName(base)
	if !ok || name != "Sarah Jones" {
		t.Fatalf("confidence 0.85 must be accepted, got %q %v", name, ok)
	}
}

func TestAcceptCallerName_RequiresSelfIntroduction(t *testing.T) {
	x := NameExtraction{Name: strPtr("Sarah"), Confidence: 0.99, SelfIntroduction: false}
	if _, ok := AcceptCallerName(x); ok {
		t.Fatalf("names without a self-introduction must be rejected")
	}
}

func TestAcceptCallerName_NilName(t *testing.T) {
	x := NameExtraction{Name: nil, Confidence: 0.99, SelfIntroduction: true}
	if _, ok := AcceptCallerName(x); ok {
		t.Fatalf("nil name must be rejected")
	}
}

func TestAcceptCallerName_Validation(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		accept bool
	}{
		{"plain name", "Sarah", true},
		{"hyphenated", "Anne-Marie", true},
		{"apostrophe", "O'Brien", true},
		{"whitespace normalized", "  Sarah   Jones ", true},
		{"too short", "J", false},
		{"too long", strings.Repeat("a", 41), false},
		{"digits", "Agent 47", false},
		{"punctuation", "Sarah!", false},
		{"denylist word", "hello", false},
		{"denylist case-insensitive", "Thanks", false},
		{"denylist phrase", "no name", false},
		{"hyphens only", "--", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x := NameExtraction{Name: strPtr(tc.input), Confidence: 0.95, SelfIntroduction: true}
			_, ok := AcceptCallerName(x)
			if ok != tc.accept {
				t.Fatalf("AcceptCallerName(%q) ok = %v, want %v", tc.input, ok, tc.accept)
			}
		})
	}
}

func TestAcceptCallerName_NormalizesWhitespace(t *testing.T) {
	x := NameExtraction{Name: strPtr("  Sarah \t Jones "), Confidence: 0.9, SelfIntroduction: true}
	name, ok := AcceptCallerName(x)
	if !ok || name != "Sarah Jones" {
		t.Fatalf("got %q %v", name, ok)
	}
}
