package auth

import (
	"time"

	"github.com/spec-kit/booking-service/internal/domain"
)

// LockoutPolicy governs failed-attempt counting and timed lockout. Expiry is
// evaluated lazily on the next attempt; no background sweep exists.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutPolicy mirrors the platform defaults: three consecutive
// failures lock the account for thirty minutes.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: 3, Duration: 30 * time.Minute}
}

// Locked reports whether the account is inside an active lockout window.
func (p LockoutPolicy) Locked(account *domain.Account, now time.Time) bool {
	return account.LockUntil != nil && now.Before(*account.LockUntil)
}

// Remaining returns how long the active lockout window still runs.
func (p LockoutPolicy) Remaining(account *domain.Account, now time.Time) time.Duration {
	if !p.Locked(account, now) {
		return 0
	}
	return account.LockUntil.Sub(now)
}

// Expired reports whether a previously set lockout window has elapsed and the
// counters should be reset before the attempt is evaluated.
func (p LockoutPolicy) Expired(account *domain.Account, now time.Time) bool {
	return account.LockUntil != nil && !now.Before(*account.LockUntil)
}

// ShouldLock reports whether the given consecutive-failure count reaches the
// lockout threshold.
func (p LockoutPolicy) ShouldLock(attempts int) bool {
	return attempts >= p.Threshold
}

// AttemptsRemaining returns how many failures are left before lockout.
func (p LockoutPolicy) AttemptsRemaining(attempts int) int {
	remaining := p.Threshold - attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

// LockUntil computes the end of a lockout window starting now.
func (p LockoutPolicy) LockUntil(now time.Time) time.Time {
	return now.Add(p.Duration)
}
