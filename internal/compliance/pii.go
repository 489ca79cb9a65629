// Package compliance detects and masks personal data in free text.
package compliance

import (
	"regexp"
)

// PIIKind names a category of personal data.
type PIIKind string

const (
	PIIEmail      PIIKind = "email"
	PIIPhone      PIIKind = "phone"
	PIISSN        PIIKind = "ssn"
	PIICreditCard PIIKind = "credit_card"
)

type piiRule struct {
	kind    PIIKind
	pattern *regexp.Regexp
	mask    string
}

// Applied in order; phone numbers are masked before SSNs so a ten digit
// number is never reported as both.
var rules = []piiRule{
	{PIIEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL_MASKED]"},
	{PIIPhone, regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`), "[PHONE_MASKED]"},
	{PIISSN, regexp.MustCompile(`\b\d{3}-?\d{2}-?\d{4}\b`), "[SSN_MASKED]"},
	{PIICreditCard, regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`), "[CC_MASKED]"},
}

// ScanPII returns the matches found per kind. Kinds without matches are omitted.
func ScanPII(text string) map[PIIKind][]string {
	found := make(map[PIIKind][]string)
	for _, r := range rules {
		if matches := r.pattern.FindAllString(text, -1); len(matches) > 0 {
			found[r.kind] = matches
		}
	}
	return found
}

// MaskPII replaces personal data with placeholders.
func MaskPII(text string) string {
	for _, r := range rules {
		text = r.pattern.ReplaceAllString(text, r.mask)
	}
	return text
}
