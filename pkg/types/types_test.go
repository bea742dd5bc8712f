package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("implement binary search", "code")
	b := Fingerprint("implement binary search", "code")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprintNormalization(t *testing.T) {
	base := Fingerprint("implement binary search", "code")

	tests := []struct {
		name string
		text string
	}{
		{"case insensitive", "Implement Binary Search"},
		{"leading and trailing whitespace", "  implement binary search  "},
		{"internal whitespace collapsed", "implement\t binary\n\nsearch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, base, Fingerprint(tt.text, "code"))
		})
	}
}

func TestFingerprintDistinguishes(t *testing.T) {
	base := Fingerprint("implement binary search", "code")

	assert.NotEqual(t, base, Fingerprint("implement linear search", "code"))
	assert.NotEqual(t, base, Fingerprint("implement binary search", "general"))
}

func TestFingerprintTypeBoundary(t *testing.T) {
	// The text/type boundary must be unambiguous: moving characters across
	// it changes the key.
	assert.NotEqual(t, Fingerprint("ab", "c"), Fingerprint("a", "bc"))
}

func TestFingerprintUnicodeComposition(t *testing.T) {
	precomposed := "café"
	decomposed := "café"
	require.Equal(t, Fingerprint(precomposed, "general"), Fingerprint(decomposed, "general"))
}

func TestRequestFingerprint(t *testing.T) {
	r := Request{Text: "explain monads", Type: "reasoning"}
	assert.Equal(t, Fingerprint("explain monads", "reasoning"), r.Fingerprint())
}
