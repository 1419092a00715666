package auth

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for authentication failures. Handlers collapse all of them
// into generic client responses; the precise kind is only logged server-side.
var (
	// ErrMissingToken indicates neither bearer header nor cookie carried a token.
	ErrMissingToken = errors.New("missing authentication token")
	// ErrSignature indicates the inner token signature did not verify.
	ErrSignature = errors.New("invalid token signature")
	// ErrExpired indicates the token is past its declared expiry.
	ErrExpired = errors.New("token expired")
	// ErrMalformed indicates required claims are absent or unparseable.
	ErrMalformed = errors.New("malformed token")
	// ErrMaxLifetime indicates the token's issuance time exceeds the absolute bound.
	ErrMaxLifetime = errors.New("token exceeded maximum lifetime")
	// ErrUnknownRole indicates the role claim maps to no account store.
	ErrUnknownRole = errors.New("unknown role")
	// ErrAccountNotFound indicates no account exists for the token's subject.
	ErrAccountNotFound = errors.New("account not found")
	// ErrSessionMismatch indicates the token was superseded by a later login or logout.
	ErrSessionMismatch = errors.New("session superseded")
	// ErrAccountDisabled indicates the account's status blocks authentication.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrInvalidCredentials is the enumeration-resistant login rejection.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the account is inside a lockout window.
	ErrAccountLocked = errors.New("account locked")
)

// LockedOutError carries the remaining lockout time for the legitimate owner.
type LockedOutError struct {
	Remaining time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minutes", e.RemainingMinutes())
}

func (e *LockedOutError) Unwrap() error { return ErrAccountLocked }

// RemainingMinutes rounds the remaining window up to whole minutes.
func (e *LockedOutError) RemainingMinutes() int {
	mins := int((e.Remaining + time.Minute - 1) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return mins
}

// CredentialsError is a wrong-password rejection carrying the updated attempt
// count, so callers can surface "N attempts remaining" without the verifier
// owning presentation.
type CredentialsError struct {
	AttemptsRemaining int
}

func (e *CredentialsError) Error() string { return ErrInvalidCredentials.Error() }

func (e *CredentialsError) Unwrap() error { return ErrInvalidCredentials }
