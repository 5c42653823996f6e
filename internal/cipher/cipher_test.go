package cipher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *AESCBC {
	t.Helper()
	c, err := New(Config{Key: "1234567890abcdef", IV: "abcdef1234567890"})
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadKeyMaterial(t *testing.T) {
	_, err := New(Config{Key: "short", IV: "abcdef1234567890"})
	assert.Error(t, err)

	_, err = New(Config{Key: "1234567890abcdef", IV: "short"})
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	inputs := []string{
		"",
		"hello",
		"exactly16bytes!!",
		"héllo wörld ✓",
		strings.Repeat("x", 1000),
	}
	for _, in := range inputs {
		enc, err := c.Encrypt(in)
		require.NoError(t, err)
		if in != "" {
			assert.NotEqual(t, in, enc)
		}
		assert.Zero(t, len(enc)%32, "hex ciphertext must be whole blocks")

		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, in, dec)
	}
}

func TestEncryptIsDeterministic(t *testing.T) {
	c := newTestCipher(t)

	a, err := c.Encrypt("same text")
	require.NoError(t, err)
	b, err := c.Encrypt("same text")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestFullBlockGetsExtraPaddingBlock(t *testing.T) {
	c := newTestCipher(t)

	enc, err := c.Encrypt("exactly16bytes!!")
	require.NoError(t, err)
	assert.Len(t, enc, 64)
}

func TestDecryptErrors(t *testing.T) {
	c := newTestCipher(t)
	other, err := New(Config{Key: "fedcba0987654321", IV: "abcdef1234567890"})
	require.NoError(t, err)

	enc, err := other.Encrypt("secret")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
	}{
		{"not hex", "zz"},
		{"empty", ""},
		{"partial block", "00112233"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decrypt(tt.in)
			assert.ErrorIs(t, err, ErrDecrypt)
		})
	}

	// A foreign key almost always yields invalid padding; if it happens to
	// unpad cleanly the plaintext must still differ.
	dec, err := c.Decrypt(enc)
	if err == nil {
		assert.NotEqual(t, "secret", dec)
	} else {
		assert.ErrorIs(t, err, ErrDecrypt)
	}
}
