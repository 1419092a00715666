package domain

import "time"

// Role identifies which account store an authenticated subject belongs to.
type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAgency     Role = "AGENCY"
	RoleUser       Role = "USER"
)

// Valid reports whether the role is part of the closed enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAgency, RoleUser:
		return true
	}
	return false
}

// AccountStatus enumerates lifecycle states shared by all account variants.
type AccountStatus string

const (
	AccountStatusPending   AccountStatus = "PENDING"
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
	AccountStatusBanned    AccountStatus = "BANNED"
)

// Account is the shared auth shape for super-admins, agencies and end-users.
// Each role is persisted in its own table but carries identical auth columns.
type Account struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	Role          Role
	Status        AccountStatus
	LoginAttempts int
	LockUntil     *time.Time
	SessionID     *string
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Active reports whether the account may authenticate at all.
func (a *Account) Active() bool {
	return a.Status == AccountStatusActive
}
