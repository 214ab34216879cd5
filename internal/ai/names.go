package ai

import (
	"strings"
	"unicode"
)

// MinNameConfidence is the acceptance floor for extracted caller names.
const MinNameConfidence = 0.85

const (
	minNameLength = 2
	maxNameLength = 40
)

// Filler words the model occasionally mistakes for names.
var nameDenylist = map[string]struct{}{
	"yes": {}, "no": {}, "ok": {}, "okay": {},
	"hello": {}, "hi": {}, "hey": {},
	"thanks": {}, "thank you": {}, "please": {},
	"unknown": {}, "none": {}, "nobody": {}, "no name": {},
	"voicemail": {}, "test": {},
}

// AcceptCallerName applies the acceptance rules to an extraction result and
// returns the normalized name. Rejections return ok=false; callers persist
// NULL, never a placeholder.
//
// Rules: the model must assert a self-introduction, confidence must reach
// MinNameConfidence, and the normalized name must be 2-40 characters of
// letters (spaces, hyphens and apostrophes allowed) outside the denylist.
func AcceptCallerName(x NameExtraction) (string, bool) {
	if !x.SelfIntroduction || x.Confidence < MinNameConfidence {
		return "", false
	}
	if x.Name == nil {
		return "", false
	}

	name := normalizeName(*x.Name)
	if len([]rune(name)) < minNameLength || len([]rune(name)) > maxNameLength {
		return "", false
	}
	if !alphabeticName(name) {
		return "", false
	}
	if _, denied := nameDenylist[strings.ToLower(name)]; denied {
		return "", false
	}
	return name, true
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}

func alphabeticName(s string) bool {
	hasLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case r == ' ' || r == '-' || r == '\'':
		default:
			return false
		}
	}
	return hasLetter
}
