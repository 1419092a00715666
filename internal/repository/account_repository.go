package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/booking-service/internal/domain"
)

// AccountStore defines persistence access shared by all three account
// variants. Each role has its own table with identical auth columns.
type AccountStore interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// GetByID excludes the password hash; it backs the authentication gate.
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error
	// IncrementLoginAttempts bumps the counter atomically at the storage
	// layer so concurrent failures never under-count, and returns the new value.
	IncrementLoginAttempts(ctx context.Context, id string) (int, error)
	SetLockout(ctx context.Context, id string, until time.Time) error
	ClearLockout(ctx context.Context, id string) error
	// RecordLogin resets the failure counters and rotates the session id in a
	// single statement, so a login racing another write resolves last-write-wins.
	RecordLogin(ctx context.Context, id, sessionID string, at time.Time) error
	// RotateSession replaces the session id without touching lockout state.
	RotateSession(ctx context.Context, id, sessionID string) error
	ListByStatus(ctx context.Context, status domain.AccountStatus, limit, offset int) ([]*domain.Account, error)
}

type accountRepository struct {
	pool  *pgxpool.Pool
	table string
	role  domain.Role
}

// NewSuperAdminRepository returns the store backing SUPERADMIN accounts.
func NewSuperAdminRepository(pool *pgxpool.Pool) AccountStore {
	return &accountRepository{pool: pool, table: "superadmins", role: domain.RoleSuperAdmin}
}

// NewAgencyRepository returns the store backing AGENCY accounts.
func NewAgencyRepository(pool *pgxpool.Pool) AccountStore {
	return &accountRepository{pool: pool, table: "agencies", role: domain.RoleAgency}
}

// NewUserRepository returns the store backing USER accounts.
func NewUserRepository(pool *pgxpool.Pool) AccountStore {
	return &accountRepository{pool: pool, table: "users", role: domain.RoleUser}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
        INSERT INTO ` + r.table + ` (name, email, password_hash, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	account.Role = r.role
	return r.pool.QueryRow(ctx, query,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.Status,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `
        SELECT id, name, email, password_hash, status, login_attempts, lock_until,
               session_id, last_login, created_at, updated_at
        FROM ` + r.table + ` WHERE email=$1`

	var account domain.Account
	if err := r.pool.QueryRow(ctx, query, email).Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.Status,
		&account.LoginAttempts,
		&account.LockUntil,
		&account.SessionID,
		&account.LastLogin,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	account.Role = r.role
	return &account, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `
        SELECT id, name, email, status, login_attempts, lock_until,
               session_id, last_login, created_at, updated_at
        FROM ` + r.table + ` WHERE id=$1`

	var account domain.Account
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.Status,
		&account.LoginAttempts,
		&account.LockUntil,
		&account.SessionID,
		&account.LastLogin,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	account.Role = r.role
	return &account, nil
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE ` + r.table + ` SET password_hash=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	query := `UPDATE ` + r.table + ` SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) IncrementLoginAttempts(ctx context.Context, id string) (int, error) {
	query := `
        UPDATE ` + r.table + ` SET login_attempts = login_attempts + 1, updated_at=NOW()
        WHERE id=$1
        RETURNING login_attempts`

	var attempts int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&attempts); err != nil {
		return 0, err
	}
	return attempts, nil
}

func (r *accountRepository) SetLockout(ctx context.Context, id string, until time.Time) error {
	query := `UPDATE ` + r.table + ` SET lock_until=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.pool.Exec(ctx, query, until, id)
	return err
}

func (r *accountRepository) ClearLockout(ctx context.Context, id string) error {
	query := `
        UPDATE ` + r.table + ` SET lock_until=NULL, login_attempts=0, updated_at=NOW()
        WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *accountRepository) RecordLogin(ctx context.Context, id, sessionID string, at time.Time) error {
	query := `
        UPDATE ` + r.table + `
        SET login_attempts=0, lock_until=NULL, session_id=$1, last_login=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, sessionID, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) RotateSession(ctx context.Context, id, sessionID string) error {
	query := `UPDATE ` + r.table + ` SET session_id=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, sessionID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) ListByStatus(ctx context.Context, status domain.AccountStatus, limit, offset int) ([]*domain.Account, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := `
        SELECT id, name, email, status, login_attempts, lock_until,
               session_id, last_login, created_at, updated_at
        FROM ` + r.table + ` WHERE status=$1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(
			&account.ID,
			&account.Name,
			&account.Email,
			&account.Status,
			&account.LoginAttempts,
			&account.LockUntil,
			&account.SessionID,
			&account.LastLogin,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, err
		}
		account.Role = r.role
		accounts = append(accounts, &account)
	}
	return accounts, rows.Err()
}
