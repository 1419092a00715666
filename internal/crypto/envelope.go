package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrIntegrity is returned when an envelope fails authentication or cannot be
// parsed into a well-formed structure. No plaintext is ever returned alongside it.
var ErrIntegrity = errors.New("envelope integrity check failed")

const keySize = 32

// Envelope carries the three parts of an AES-256-GCM sealed payload, each
// hex-encoded for transport.
type Envelope struct {
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
	AuthTag    string `json:"authTag"`
}

// Sealer performs authenticated encryption of opaque payloads with a fixed
// 256-bit key and a fresh random nonce per Seal call.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a sealer from a 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext under a freshly generated nonce. The nonce is never
// caller-supplied; reuse under a fixed key would void GCM's guarantees.
func (s *Sealer) Seal(plaintext []byte) (*Envelope, error) {
	iv := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	sealed := s.aead.Seal(nil, iv, plaintext, nil)
	tagStart := len(sealed) - s.aead.Overhead()

	return &Envelope{
		IV:         hex.EncodeToString(iv),
		Ciphertext: hex.EncodeToString(sealed[:tagStart]),
		AuthTag:    hex.EncodeToString(sealed[tagStart:]),
	}, nil
}

// Open verifies and decrypts an envelope. Any malformed component or failed
// tag verification yields ErrIntegrity without exposing partial plaintext.
func (s *Sealer) Open(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, ErrIntegrity
	}

	iv, err := hex.DecodeString(env.IV)
	if err != nil || len(iv) != s.aead.NonceSize() {
		return nil, ErrIntegrity
	}
	ciphertext, err := hex.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, ErrIntegrity
	}
	tag, err := hex.DecodeString(env.AuthTag)
	if err != nil || len(tag) != s.aead.Overhead() {
		return nil, ErrIntegrity
	}

	plaintext, err := s.aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}

// Encode serializes the envelope for embedding in a cookie or bearer header.
func (e *Envelope) Encode() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeEnvelope parses the transport encoding produced by Encode.
func DecodeEnvelope(encoded string) (*Envelope, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrIntegrity
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrIntegrity
	}
	if env.IV == "" || env.Ciphertext == "" || env.AuthTag == "" {
		return nil, ErrIntegrity
	}
	return &env, nil
}
