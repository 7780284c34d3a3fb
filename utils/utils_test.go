package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableSecret(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := NewTableSecret()
		require.NoError(t, err)
		assert.Len(t, s, 43)
		assert.False(t, seen[s])
		seen[s] = true
	}
}

func TestNewActivationCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := NewActivationCode()
		require.NoError(t, err)
		require.Len(t, code, ActivationCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(activationAlphabet, r), "unexpected rune %q", r)
		}
	}
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 29.5, RoundCents(12.5*2+4.5))
	assert.Equal(t, 0.3, RoundCents(0.1+0.2))
	assert.Equal(t, "29.50", FormatPrice(29.5))
}

func TestTokenPrefix(t *testing.T) {
	assert.Equal(t, "abc", TokenPrefix("abc"))
	assert.Equal(t, "abcdef…", TokenPrefix("abcdefghij"))
}
