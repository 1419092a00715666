package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/booking-service/internal/domain"
)

// BookingRepository defines persistence access for bookings.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, error)
	ListByAgency(ctx context.Context, agencyID string, limit, offset int) ([]*domain.Booking, error)
	UpdateStatus(ctx context.Context, id string, status domain.BookingStatus, cancelledAt *time.Time) error
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

// NewBookingRepository returns a Postgres-backed implementation.
func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingColumns = `id, reference, user_id, package_id, seats, total_cents, status,
        created_at, updated_at, cancelled_at`

func (r *bookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	const query = `
        INSERT INTO bookings (reference, user_id, package_id, seats, total_cents, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		booking.Reference,
		booking.UserID,
		booking.PackageID,
		booking.Seats,
		booking.TotalCents,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id=$1`
	return scanBooking(r.pool.QueryRow(ctx, query, id))
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, error) {
	const query = `
        SELECT ` + bookingColumns + `
        FROM bookings WHERE user_id=$1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	return r.list(ctx, query, userID, clampLimit(limit), offset)
}

func (r *bookingRepository) ListByAgency(ctx context.Context, agencyID string, limit, offset int) ([]*domain.Booking, error) {
	const query = `
        SELECT b.id, b.reference, b.user_id, b.package_id, b.seats, b.total_cents, b.status,
               b.created_at, b.updated_at, b.cancelled_at
        FROM bookings b
        JOIN travel_packages p ON p.id = b.package_id
        WHERE p.agency_id=$1
        ORDER BY b.created_at DESC
        LIMIT $2 OFFSET $3`
	return r.list(ctx, query, agencyID, clampLimit(limit), offset)
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus, cancelledAt *time.Time) error {
	const query = `
        UPDATE bookings SET status=$1, cancelled_at=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, status, cancelledAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *bookingRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var booking domain.Booking
	if err := row.Scan(
		&booking.ID,
		&booking.Reference,
		&booking.UserID,
		&booking.PackageID,
		&booking.Seats,
		&booking.TotalCents,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.CancelledAt,
	); err != nil {
		return nil, err
	}
	return &booking, nil
}
