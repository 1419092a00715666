package crypto

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := bytes.Repeat([]byte{0xA5}, 32)
	return key
}

func TestNewSealerRejectsBadKeySize(t *testing.T) {
	for _, size := range []int{0, 16, 31, 33, 64} {
		_, err := NewSealer(make([]byte, size))
		assert.Error(t, err, "key size %d must be rejected", size)
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	sealer, err := NewSealer(testKey(t))
	require.NoError(t, err)

	plaintext := []byte("eyJhbGciOiJIUzI1NiJ9.payload.signature")
	env, err := sealer.Seal(plaintext)
	require.NoError(t, err)

	opened, err := sealer.Open(env)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestSealUsesFreshNoncePerCall(t *testing.T) {
	sealer, err := NewSealer(testKey(t))
	require.NoError(t, err)

	first, err := sealer.Seal([]byte("same plaintext"))
	require.NoError(t, err)
	second, err := sealer.Seal([]byte("same plaintext"))
	require.NoError(t, err)

	assert.NotEqual(t, first.IV, second.IV)
	assert.NotEqual(t, first.Ciphertext, second.Ciphertext)
}

func TestOpenFailsClosedOnTampering(t *testing.T) {
	sealer, err := NewSealer(testKey(t))
	require.NoError(t, err)

	env, err := sealer.Seal([]byte("sensitive session material"))
	require.NoError(t, err)

	flipHexByte := func(s string) string {
		raw, err := hex.DecodeString(s)
		require.NoError(t, err)
		raw[0] ^= 0x01
		return hex.EncodeToString(raw)
	}

	tests := []struct {
		name   string
		mutate func(Envelope) Envelope
	}{
		{"ciphertext bit flip", func(e Envelope) Envelope {
			e.Ciphertext = flipHexByte(e.Ciphertext)
			return e
		}},
		{"auth tag bit flip", func(e Envelope) Envelope {
			e.AuthTag = flipHexByte(e.AuthTag)
			return e
		}},
		{"iv bit flip", func(e Envelope) Envelope {
			e.IV = flipHexByte(e.IV)
			return e
		}},
		{"non-hex ciphertext", func(e Envelope) Envelope {
			e.Ciphertext = "zz" + e.Ciphertext[2:]
			return e
		}},
		{"truncated tag", func(e Envelope) Envelope {
			e.AuthTag = e.AuthTag[:len(e.AuthTag)-2]
			return e
		}},
		{"wrong-size iv", func(e Envelope) Envelope {
			e.IV = e.IV[:len(e.IV)-2]
			return e
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mutated := tc.mutate(*env)
			plaintext, err := sealer.Open(&mutated)
			assert.ErrorIs(t, err, ErrIntegrity)
			assert.Nil(t, plaintext)
		})
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	sealer, err := NewSealer(testKey(t))
	require.NoError(t, err)
	other, err := NewSealer(bytes.Repeat([]byte{0x5A}, 32))
	require.NoError(t, err)

	env, err := sealer.Seal([]byte("sealed under the first key"))
	require.NoError(t, err)

	_, err = other.Open(env)
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestOpenRejectsNilEnvelope(t *testing.T) {
	sealer, err := NewSealer(testKey(t))
	require.NoError(t, err)

	_, err = sealer.Open(nil)
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sealer, err := NewSealer(testKey(t))
	require.NoError(t, err)

	env, err := sealer.Seal([]byte("transportable"))
	require.NoError(t, err)

	encoded, err := env.Encode()
	require.NoError(t, err)
	// Transport form stays cookie-safe.
	_, err = base64.RawURLEncoding.DecodeString(encoded)
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(encoded)
	require.NoError(t, err)
	assert.Equal(t, env, decoded)

	opened, err := sealer.Open(decoded)
	require.NoError(t, err)
	assert.Equal(t, []byte("transportable"), opened)
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not base64url", "%%%not-base64%%%"},
		{"base64 but not json", base64.RawURLEncoding.EncodeToString([]byte("plain text"))},
		{"json missing fields", base64.RawURLEncoding.EncodeToString([]byte(`{"iv":"00"}`))},
		{"json with empty fields", base64.RawURLEncoding.EncodeToString([]byte(`{"iv":"","ciphertext":"","authTag":""}`))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeEnvelope(tc.input)
			assert.ErrorIs(t, err, ErrIntegrity)
		})
	}
}
