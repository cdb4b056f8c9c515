// Package normalize converts raw email and phone input into the canonical
// keys used for matching and lock derivation. All functions are pure; absent
// or effectively-empty input normalizes to nil.
package normalize

import "strings"

// Email trims surrounding whitespace and lowercases. Nil or empty input
// returns nil so that "" and absent are indistinguishable downstream.
func Email(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := strings.ToLower(strings.TrimSpace(*raw))
	if s == "" {
		return nil
	}
	return &s
}

// Phone strips every non-digit character. No length or format validation is
// applied; any digit string is accepted as-is. An input with no digits
// returns nil.
func Phone(raw *string) *string {
	if raw == nil {
		return nil
	}
	var b strings.Builder
	for _, r := range *raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return nil
	}
	return &s
}

// Fingerprint builds the serialization key for a normalized (email, phone)
// pair. Absent values collapse to the empty string; the separator keeps
// ("a|b", nil) and ("a", "b") distinct.
func Fingerprint(email, phone *string) string {
	e, p := "", ""
	if email != nil {
		e = *email
	}
	if phone != nil {
		p = *phone
	}
	return e + "|" + p
}
