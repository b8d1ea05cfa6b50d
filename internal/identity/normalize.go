// Package identity canonicalizes contact identities (email, phone) into
// matching keys for deduplication and cross-referencing.
package identity

import "strings"

// countryPrefix is the Brazilian country code dropped from long dial strings.
const countryPrefix = "55"

// NormalizeEmail canonicalizes an email for matching: trim and lowercase.
// An empty result means "no identity" and must never be used as a match key.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizePhone canonicalizes a phone number for matching: strip every
// non-digit character, then drop the leading country code when the digit
// string is long enough to carry one (>= 12 digits starting with "55").
// An empty result means "no identity" and must never be used as a match key.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) >= 12 && strings.HasPrefix(digits, countryPrefix) {
		digits = digits[len(countryPrefix):]
	}
	return digits
}
