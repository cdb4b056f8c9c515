package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestEmail(t *testing.T) {
	tests := []struct {
		name string
		in   *string
		want *string
	}{
		{"nil input", nil, nil},
		{"empty string", strPtr(""), nil},
		{"whitespace only", strPtr("   "), nil},
		{"lowercases", strPtr("Alice@Example.COM"), strPtr("alice@example.com")},
		{"trims whitespace", strPtr("  a@x.com  "), strPtr("a@x.com")},
		{"already canonical", strPtr("a@x.com"), strPtr("a@x.com")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Email(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		name string
		in   *string
		want *string
	}{
		{"nil input", nil, nil},
		{"empty string", strPtr(""), nil},
		{"no digits", strPtr("abc-+() "), nil},
		{"plain digits", strPtr("1234567890"), strPtr("1234567890")},
		{"strips formatting", strPtr("+1 (555) 123-4567"), strPtr("15551234567")},
		{"arbitrary digit string kept", strPtr("1"), strPtr("1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Phone(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "a@x.com|123", Fingerprint(strPtr("a@x.com"), strPtr("123")))
	assert.Equal(t, "a@x.com|", Fingerprint(strPtr("a@x.com"), nil))
	assert.Equal(t, "|123", Fingerprint(nil, strPtr("123")))
	assert.Equal(t, "|", Fingerprint(nil, nil))

	// An email containing the separator cannot collide with a distinct
	// (email, phone) pair.
	assert.NotEqual(t, Fingerprint(strPtr("a|b"), nil), Fingerprint(strPtr("a"), strPtr("b")))
}
