package auth

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is the slow-hash work factor applied when the configured
// cost is out of bcrypt's valid range.
const DefaultBcryptCost = 12

// HashPassword derives a salted bcrypt hash from a plaintext password.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a candidate password against a stored hash. The
// comparison is constant-time inside bcrypt itself.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
