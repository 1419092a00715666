package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/booking-service/internal/auth"
	"github.com/spec-kit/booking-service/internal/config"
	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/repository"
)

// AuthService coordinates registration, credential verification and the
// session lifecycle for all three account roles.
type AuthService struct {
	stores     map[domain.Role]repository.AccountStore
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	lockout    auth.LockoutPolicy
	clock      auth.Clock
	logger     *zap.Logger
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Stores            map[domain.Role]repository.AccountStore
	PasswordResetRepo repository.PasswordResetRepository
	TokenManager      *auth.TokenManager
	Clock             auth.Clock
	Logger            *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	clock := deps.Clock
	if clock == nil {
		clock = auth.SystemClock()
	}
	return &AuthService{
		stores:   deps.Stores,
		resets:   deps.PasswordResetRepo,
		tokenMgr: deps.TokenManager,
		lockout: auth.LockoutPolicy{
			Threshold: cfg.Auth.LockoutThreshold,
			Duration:  cfg.Auth.LockoutDuration(),
		},
		clock:      clock,
		logger:     deps.Logger,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   cfg.Auth.ResetTTL(),
	}
}

// LoginResult bundles the authenticated account with its issued token.
type LoginResult struct {
	Account   *domain.Account
	Token     string
	ExpiresAt time.Time
}

// Register creates a new account for the given role. Agencies start PENDING
// until a super-admin approves them; users start ACTIVE.
func (s *AuthService) Register(ctx context.Context, role domain.Role, name, email, password string) (*domain.Account, error) {
	store, ok := s.stores[role]
	if !ok {
		return nil, auth.ErrUnknownRole
	}

	email = normalizeEmail(email)
	if _, err := store.GetByEmail(ctx, email); err == nil {
		return nil, errors.New("email already registered")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	status := domain.AccountStatusActive
	if role == domain.RoleAgency {
		status = domain.AccountStatusPending
	}

	account := &domain.Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       status,
	}
	if err := store.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Login verifies credentials against the role's store, advances the lockout
// state machine and, on success, rotates the session id and issues a fresh
// sealed token bound to it.
func (s *AuthService) Login(ctx context.Context, role domain.Role, email, password string) (*LoginResult, error) {
	store, ok := s.stores[role]
	if !ok {
		return nil, auth.ErrUnknownRole
	}

	// An unknown email yields the same rejection as a wrong password so the
	// endpoint cannot be used to enumerate accounts.
	account, err := store.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.clock.Now()

	// Expired lockout windows are cleared lazily, then the attempt proceeds.
	if s.lockout.Expired(account, now) {
		if err := store.ClearLockout(ctx, account.ID); err != nil {
			return nil, err
		}
		account.LockUntil = nil
		account.LoginAttempts = 0
	}

	if s.lockout.Locked(account, now) {
		return nil, &auth.LockedOutError{Remaining: s.lockout.Remaining(account, now)}
	}

	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, s.recordFailedAttempt(ctx, store, account, now)
	}

	if !account.Active() {
		return nil, auth.ErrAccountDisabled
	}

	sessionID, err := auth.NewSessionID()
	if err != nil {
		return nil, err
	}
	if err := store.RecordLogin(ctx, account.ID, sessionID, now); err != nil {
		return nil, err
	}
	account.SessionID = &sessionID
	account.LastLogin = &now
	account.LoginAttempts = 0
	account.LockUntil = nil

	token, expiresAt, err := s.tokenMgr.Issue(role, account.ID, account.Email, sessionID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login succeeded",
		zap.String("role", string(role)),
		zap.String("account_id", account.ID),
	)
	return &LoginResult{Account: account, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) recordFailedAttempt(ctx context.Context, store repository.AccountStore, account *domain.Account, now time.Time) error {
	attempts, err := store.IncrementLoginAttempts(ctx, account.ID)
	if err != nil {
		return err
	}
	if s.lockout.ShouldLock(attempts) {
		until := s.lockout.LockUntil(now)
		if err := store.SetLockout(ctx, account.ID, until); err != nil {
			return err
		}
		s.logger.Warn("account locked after repeated failures",
			zap.String("role", string(account.Role)),
			zap.String("account_id", account.ID),
			zap.Time("lock_until", until),
		)
		return &auth.LockedOutError{Remaining: s.lockout.Duration}
	}
	return &auth.CredentialsError{AttemptsRemaining: s.lockout.AttemptsRemaining(attempts)}
}

// Logout rotates the account's session id, invalidating the token the client
// currently holds. Lockout counters are untouched.
func (s *AuthService) Logout(ctx context.Context, role domain.Role, accountID string) error {
	store, ok := s.stores[role]
	if !ok {
		return auth.ErrUnknownRole
	}
	sessionID, err := auth.NewSessionID()
	if err != nil {
		return err
	}
	return store.RotateSession(ctx, accountID, sessionID)
}

// ChangePassword verifies the current password before updating the hash, then
// rotates the session so outstanding tokens die.
func (s *AuthService) ChangePassword(ctx context.Context, role domain.Role, accountID, currentPassword, newPassword string) error {
	store, ok := s.stores[role]
	if !ok {
		return auth.ErrUnknownRole
	}
	account, err := store.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	// GetByID excludes the hash; re-read by email for verification.
	withHash, err := store.GetByEmail(ctx, account.Email)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(withHash.PasswordHash, currentPassword); err != nil {
		return auth.ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := store.UpdatePassword(ctx, accountID, hash); err != nil {
		return err
	}
	return s.Logout(ctx, role, accountID)
}

// RequestPasswordReset persists a reset token for whichever role owns the
// email. The lookup order is users, agencies, superadmins.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	email = normalizeEmail(email)

	var account *domain.Account
	for _, role := range []domain.Role{domain.RoleUser, domain.RoleAgency, domain.RoleSuperAdmin} {
		found, err := s.stores[role].GetByEmail(ctx, email)
		if err == nil {
			account = found
			break
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}
	if account == nil {
		return nil, pgx.ErrNoRows
	}

	token := &repository.PasswordResetToken{
		Role:      string(account.Role),
		AccountID: account.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.clock.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token, updates the password and
// rotates the session id so stolen tokens issued before the reset are dead.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		return err
	}
	if token.UsedAt != nil || s.clock.Now().After(token.ExpiresAt) {
		return errors.New("token expired or used")
	}

	role := domain.Role(token.Role)
	store, ok := s.stores[role]
	if !ok {
		return auth.ErrUnknownRole
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := store.UpdatePassword(ctx, token.AccountID, hash); err != nil {
		return err
	}
	if err := s.Logout(ctx, role, token.AccountID); err != nil {
		return err
	}
	return s.resets.MarkUsed(ctx, token.ID)
}

// TokenManager exposes the underlying token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
