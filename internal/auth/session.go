package auth

import (
	"crypto/rand"
	"encoding/base64"
)

const sessionIDSize = 16

// NewSessionID returns a fresh 128-bit random session identifier encoded as
// compact base64url. One session id is valid per account at any time; rotating
// it invalidates every previously issued token for that account.
func NewSessionID() (string, error) {
	var raw [sessionIDSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
