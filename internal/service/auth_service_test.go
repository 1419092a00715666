package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/booking-service/internal/auth"
	"github.com/spec-kit/booking-service/internal/config"
	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/repository"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
}

// memoryAccountStore keeps accounts in a map, mirroring the per-role table
// semantics of the real store.
type memoryAccountStore struct {
	byID   map[string]*domain.Account
	nextID int
}

func newMemoryAccountStore() *memoryAccountStore {
	return &memoryAccountStore{byID: make(map[string]*domain.Account)}
}

func (s *memoryAccountStore) Create(ctx context.Context, account *domain.Account) error {
	s.nextID++
	account.ID = fmt.Sprintf("acc-%d", s.nextID)
	copied := *account
	s.byID[account.ID] = &copied
	return nil
}

func (s *memoryAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	for _, account := range s.byID {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memoryAccountStore) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	account, ok := s.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	copied.PasswordHash = ""
	return &copied, nil
}

func (s *memoryAccountStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	account, ok := s.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.PasswordHash = passwordHash
	return nil
}

func (s *memoryAccountStore) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	account, ok := s.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.Status = status
	return nil
}

func (s *memoryAccountStore) IncrementLoginAttempts(ctx context.Context, id string) (int, error) {
	account, ok := s.byID[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	account.LoginAttempts++
	return account.LoginAttempts, nil
}

func (s *memoryAccountStore) SetLockout(ctx context.Context, id string, until time.Time) error {
	account, ok := s.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.LockUntil = &until
	return nil
}

func (s *memoryAccountStore) ClearLockout(ctx context.Context, id string) error {
	account, ok := s.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.LockUntil = nil
	account.LoginAttempts = 0
	return nil
}

func (s *memoryAccountStore) RecordLogin(ctx context.Context, id, sessionID string, at time.Time) error {
	account, ok := s.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.SessionID = &sessionID
	account.LastLogin = &at
	account.LoginAttempts = 0
	account.LockUntil = nil
	return nil
}

func (s *memoryAccountStore) RotateSession(ctx context.Context, id, sessionID string) error {
	account, ok := s.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.SessionID = &sessionID
	return nil
}

func (s *memoryAccountStore) ListByStatus(ctx context.Context, status domain.AccountStatus, limit, offset int) ([]*domain.Account, error) {
	var out []*domain.Account
	for _, account := range s.byID {
		if account.Status == status {
			copied := *account
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memoryResetRepo struct {
	byToken map[string]*repository.PasswordResetToken
	nextID  int
}

func newMemoryResetRepo() *memoryResetRepo {
	return &memoryResetRepo{byToken: make(map[string]*repository.PasswordResetToken)}
}

func (r *memoryResetRepo) Create(ctx context.Context, token *repository.PasswordResetToken) error {
	r.nextID++
	token.ID = fmt.Sprintf("reset-%d", r.nextID)
	copied := *token
	r.byToken[token.Token] = &copied
	return nil
}

func (r *memoryResetRepo) GetByToken(ctx context.Context, token string) (*repository.PasswordResetToken, error) {
	stored, ok := r.byToken[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (r *memoryResetRepo) MarkUsed(ctx context.Context, id string) error {
	for _, stored := range r.byToken {
		if stored.ID == id {
			now := time.Now()
			stored.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

type authFixture struct {
	service *AuthService
	users   *memoryAccountStore
	agents  *memoryAccountStore
	admins  *memoryAccountStore
	resets  *memoryResetRepo
	clock   *fakeClock
	tokens  *auth.TokenManager
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	clock := newFakeClock()
	tokens, err := auth.NewTokenManager("test-secret", bytes.Repeat([]byte{0x42}, 32), time.Hour, 0, clock)
	require.NoError(t, err)

	users := newMemoryAccountStore()
	agents := newMemoryAccountStore()
	admins := newMemoryAccountStore()
	resets := newMemoryResetRepo()

	cfg := config.Config{}
	cfg.Auth.LockoutThreshold = 3
	cfg.Auth.LockoutMinutes = 30
	cfg.Auth.BcryptCost = 4
	cfg.Auth.ResetTTLMinutes = 30

	svc := NewAuthService(cfg, AuthDependencies{
		Stores: map[domain.Role]repository.AccountStore{
			domain.RoleUser:       users,
			domain.RoleAgency:     agents,
			domain.RoleSuperAdmin: admins,
		},
		PasswordResetRepo: resets,
		TokenManager:      tokens,
		Clock:             clock,
		Logger:            zap.NewNop(),
	})
	return &authFixture{service: svc, users: users, agents: agents, admins: admins, resets: resets, clock: clock, tokens: tokens}
}

func (f *authFixture) registerUser(t *testing.T, email, password string) *domain.Account {
	t.Helper()
	account, err := f.service.Register(context.Background(), domain.RoleUser, "Test User", email, password)
	require.NoError(t, err)
	return account
}

func TestRegisterStatusByRole(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.service.Register(ctx, domain.RoleUser, "User", "user@example.com", "pass1234")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusActive, user.Status)

	agency, err := f.service.Register(ctx, domain.RoleAgency, "Agency", "agency@example.com", "pass1234")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusPending, agency.Status, "agencies await approval")
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.registerUser(t, "dup@example.com", "pass1234")

	_, err := f.service.Register(context.Background(), domain.RoleUser, "Again", "DUP@example.com", "pass1234")
	assert.Error(t, err, "email comparison is case-insensitive")
}

func TestLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.registerUser(t, "known@example.com", "correct-pass")
	ctx := context.Background()

	_, unknownErr := f.service.Login(ctx, domain.RoleUser, "nobody@example.com", "whatever")
	assert.ErrorIs(t, unknownErr, auth.ErrInvalidCredentials)

	_, wrongErr := f.service.Login(ctx, domain.RoleUser, "known@example.com", "wrong-pass")
	assert.ErrorIs(t, wrongErr, auth.ErrInvalidCredentials)
}

func TestLoginSuccessRotatesSessionAndIssuesToken(t *testing.T) {
	f := newAuthFixture(t)
	account := f.registerUser(t, "user@example.com", "correct-pass")
	ctx := context.Background()

	result, err := f.service.Login(ctx, domain.RoleUser, "User@Example.com ", "correct-pass")
	require.NoError(t, err)
	require.NotNil(t, result.Account.SessionID)
	assert.NotEmpty(t, result.Token)

	claims, err := f.tokens.Decode(result.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.UserID)
	assert.Equal(t, *result.Account.SessionID, claims.SessionID)

	stored := f.users.byID[account.ID]
	require.NotNil(t, stored.SessionID)
	assert.Equal(t, claims.SessionID, *stored.SessionID)
	assert.Zero(t, stored.LoginAttempts)
}

func TestLoginFailureCountsDownAttempts(t *testing.T) {
	f := newAuthFixture(t)
	f.registerUser(t, "user@example.com", "correct-pass")
	ctx := context.Background()

	var credErr *auth.CredentialsError

	_, err := f.service.Login(ctx, domain.RoleUser, "user@example.com", "wrong")
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, 2, credErr.AttemptsRemaining)

	_, err = f.service.Login(ctx, domain.RoleUser, "user@example.com", "wrong")
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, 1, credErr.AttemptsRemaining)
}

func TestLoginLocksAfterThresholdFailures(t *testing.T) {
	f := newAuthFixture(t)
	account := f.registerUser(t, "user@example.com", "correct-pass")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.service.Login(ctx, domain.RoleUser, "user@example.com", "wrong")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}

	_, err := f.service.Login(ctx, domain.RoleUser, "user@example.com", "wrong")
	var lockedErr *auth.LockedOutError
	require.ErrorAs(t, err, &lockedErr)
	assert.Equal(t, 30, lockedErr.RemainingMinutes())

	stored := f.users.byID[account.ID]
	require.NotNil(t, stored.LockUntil)
	assert.True(t, stored.LockUntil.Equal(f.clock.Now().Add(30*time.Minute)))

	// Even the correct password is refused inside the window.
	_, err = f.service.Login(ctx, domain.RoleUser, "user@example.com", "correct-pass")
	require.ErrorAs(t, err, &lockedErr)
}

func TestLoginLockoutExpiresLazily(t *testing.T) {
	f := newAuthFixture(t)
	account := f.registerUser(t, "user@example.com", "correct-pass")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = f.service.Login(ctx, domain.RoleUser, "user@example.com", "wrong")
	}
	require.NotNil(t, f.users.byID[account.ID].LockUntil)

	f.clock.Advance(29 * time.Minute)
	_, err := f.service.Login(ctx, domain.RoleUser, "user@example.com", "correct-pass")
	var lockedErr *auth.LockedOutError
	require.ErrorAs(t, err, &lockedErr, "window still open a minute before expiry")

	f.clock.Advance(time.Minute)
	result, err := f.service.Login(ctx, domain.RoleUser, "user@example.com", "correct-pass")
	require.NoError(t, err, "window elapsed, counters reset on next attempt")
	assert.NotNil(t, result.Account.SessionID)
	assert.Zero(t, f.users.byID[account.ID].LoginAttempts)
}

func TestLoginAfterExpiredLockoutRestartsCounting(t *testing.T) {
	f := newAuthFixture(t)
	f.registerUser(t, "user@example.com", "correct-pass")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = f.service.Login(ctx, domain.RoleUser, "user@example.com", "wrong")
	}
	f.clock.Advance(31 * time.Minute)

	// First failure after expiry counts from a clean slate.
	_, err := f.service.Login(ctx, domain.RoleUser, "user@example.com", "wrong")
	var credErr *auth.CredentialsError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, 2, credErr.AttemptsRemaining)
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	account := f.registerUser(t, "user@example.com", "correct-pass")
	ctx := context.Background()

	require.NoError(t, f.users.UpdateStatus(ctx, account.ID, domain.AccountStatusSuspended))

	_, err := f.service.Login(ctx, domain.RoleUser, "user@example.com", "correct-pass")
	assert.ErrorIs(t, err, auth.ErrAccountDisabled)
}

func TestLoginPendingAgencyIsRejected(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.service.Register(ctx, domain.RoleAgency, "Agency", "agency@example.com", "pass1234")
	require.NoError(t, err)

	_, err = f.service.Login(ctx, domain.RoleAgency, "agency@example.com", "pass1234")
	assert.ErrorIs(t, err, auth.ErrAccountDisabled)
}

func TestReLoginInvalidatesPreviousSession(t *testing.T) {
	f := newAuthFixture(t)
	account := f.registerUser(t, "user@example.com", "correct-pass")
	ctx := context.Background()

	first, err := f.service.Login(ctx, domain.RoleUser, "user@example.com", "correct-pass")
	require.NoError(t, err)
	second, err := f.service.Login(ctx, domain.RoleUser, "user@example.com", "correct-pass")
	require.NoError(t, err)

	assert.NotEqual(t, *first.Account.SessionID, *second.Account.SessionID)

	stored := f.users.byID[account.ID]
	firstClaims, err := f.tokens.Decode(first.Token)
	require.NoError(t, err)
	assert.NotEqual(t, *stored.SessionID, firstClaims.SessionID, "older token no longer matches the stored session")
}

func TestLogoutRotatesSession(t *testing.T) {
	f := newAuthFixture(t)
	account := f.registerUser(t, "user@example.com", "correct-pass")
	ctx := context.Background()

	result, err := f.service.Login(ctx, domain.RoleUser, "user@example.com", "correct-pass")
	require.NoError(t, err)
	before := *f.users.byID[account.ID].SessionID

	require.NoError(t, f.service.Logout(ctx, domain.RoleUser, account.ID))
	after := *f.users.byID[account.ID].SessionID
	assert.NotEqual(t, before, after)

	claims, err := f.tokens.Decode(result.Token)
	require.NoError(t, err)
	assert.NotEqual(t, after, claims.SessionID)
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	account := f.registerUser(t, "user@example.com", "old-pass")
	ctx := context.Background()
	_, err := f.service.Login(ctx, domain.RoleUser, "user@example.com", "old-pass")
	require.NoError(t, err)
	oldSession := *f.users.byID[account.ID].SessionID

	err = f.service.ChangePassword(ctx, domain.RoleUser, account.ID, "not-the-password", "new-pass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	require.NoError(t, f.service.ChangePassword(ctx, domain.RoleUser, account.ID, "old-pass", "new-pass"))

	assert.NotEqual(t, oldSession, *f.users.byID[account.ID].SessionID, "outstanding tokens die with the session")

	_, err = f.service.Login(ctx, domain.RoleUser, "user@example.com", "old-pass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = f.service.Login(ctx, domain.RoleUser, "user@example.com", "new-pass")
	assert.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	account := f.registerUser(t, "user@example.com", "old-pass")
	ctx := context.Background()

	token, err := f.service.RequestPasswordReset(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, string(domain.RoleUser), token.Role)
	assert.Equal(t, account.ID, token.AccountID)

	require.NoError(t, f.service.ConfirmPasswordReset(ctx, token.Token, "new-pass"))

	_, err = f.service.Login(ctx, domain.RoleUser, "user@example.com", "new-pass")
	require.NoError(t, err)

	err = f.service.ConfirmPasswordReset(ctx, token.Token, "another-pass")
	assert.Error(t, err, "reset tokens are single use")
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.service.RequestPasswordReset(context.Background(), "nobody@example.com")
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
}

func TestPasswordResetExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	f.registerUser(t, "user@example.com", "old-pass")
	ctx := context.Background()

	token, err := f.service.RequestPasswordReset(ctx, "user@example.com")
	require.NoError(t, err)

	f.clock.Advance(31 * time.Minute)
	err = f.service.ConfirmPasswordReset(ctx, token.Token, "new-pass")
	assert.Error(t, err)
}
