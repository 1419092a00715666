package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/booking-service/internal/crypto"
	"github.com/spec-kit/booking-service/internal/domain"
)

// TokenManager signs role/identity/session claims as a compact JWT, seals the
// signed token inside an AES-256-GCM envelope and emits the transportable
// base64url string carried in the accessToken cookie or bearer header.
// Decoding reverses the chain and classifies failures.
type TokenManager struct {
	signingSecret []byte
	sealer        *crypto.Sealer
	ttl           time.Duration
	leeway        time.Duration
	clock         Clock
}

// NewTokenManager builds a manager. The signing secret and the encryption key
// serve distinct purposes even when sourced from the same configuration block.
func NewTokenManager(signingSecret string, encryptionKey []byte, ttl, leeway time.Duration, clock Clock) (*TokenManager, error) {
	if signingSecret == "" {
		return nil, errors.New("signing secret required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if leeway < 0 || leeway > time.Minute {
		return nil, errors.New("invalid clock skew tolerance")
	}
	if clock == nil {
		clock = SystemClock()
	}

	sealer, err := crypto.NewSealer(encryptionKey)
	if err != nil {
		return nil, err
	}
	return &TokenManager{
		signingSecret: []byte(signingSecret),
		sealer:        sealer,
		ttl:           ttl,
		leeway:        leeway,
		clock:         clock,
	}, nil
}

// Claims is the signed payload embedded in every issued token.
type Claims struct {
	Role      domain.Role `json:"role"`
	UserID    string      `json:"userId"`
	Email     string      `json:"email"`
	SessionID string      `json:"sessionId"`
	jwt.RegisteredClaims
}

// TTL returns the configured token lifetime, which doubles as the absolute
// lifetime bound enforced by the authentication gate.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue signs claims for the account's current session and seals them for
// transport. The returned expiry reflects the declared JWT expiry.
func (tm *TokenManager) Issue(role domain.Role, accountID, email, sessionID string) (string, time.Time, error) {
	now := tm.clock.Now()
	expiresAt := now.Add(tm.ttl)

	claims := &Claims{
		Role:      role,
		UserID:    accountID,
		Email:     email,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.signingSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	env, err := tm.sealer.Seal([]byte(signed))
	if err != nil {
		return "", time.Time{}, err
	}
	token, err := env.Encode()
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Decode opens the envelope, verifies the inner signature and expiry, and
// enforces structural completeness of the claims. Errors map onto the gate's
// rejection taxonomy: crypto.ErrIntegrity, ErrSignature, ErrExpired, ErrMalformed.
func (tm *TokenManager) Decode(transportToken string) (*Claims, error) {
	env, err := crypto.DecodeEnvelope(transportToken)
	if err != nil {
		return nil, err
	}
	plaintext, err := tm.sealer.Open(env)
	if err != nil {
		return nil, err
	}

	parsed, err := jwt.ParseWithClaims(string(plaintext), &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return tm.signingSecret, nil
		},
		jwt.WithLeeway(tm.leeway),
		jwt.WithTimeFunc(tm.clock.Now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		default:
			return nil, ErrSignature
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrSignature
	}
	// A well-signed but structurally incomplete token is never trusted.
	if claims.UserID == "" || claims.Role == "" || claims.SessionID == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

// ExceedsMaxLifetime applies the absolute-lifetime bound on issuance time.
// Redundant with the JWT expiry when both are set; kept so a misconfigured
// expiry claim still cannot extend token validity.
func (tm *TokenManager) ExceedsMaxLifetime(claims *Claims, now time.Time) bool {
	if claims.IssuedAt == nil {
		return true
	}
	return now.Sub(claims.IssuedAt.Time) > tm.ttl
}
