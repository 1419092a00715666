package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/booking-service/internal/domain"
)

// PackageRepository defines persistence access for travel packages.
type PackageRepository interface {
	Create(ctx context.Context, pkg *domain.TravelPackage) error
	Update(ctx context.Context, pkg *domain.TravelPackage) error
	GetByID(ctx context.Context, id string) (*domain.TravelPackage, error)
	ListPublished(ctx context.Context, limit, offset int) ([]*domain.TravelPackage, error)
	ListByAgency(ctx context.Context, agencyID string, limit, offset int) ([]*domain.TravelPackage, error)
	// ReserveSeats decrements availability atomically; it fails without a row
	// update when the package is unpublished or has too few seats left.
	ReserveSeats(ctx context.Context, id string, seats int) error
	ReleaseSeats(ctx context.Context, id string, seats int) error
}

type packageRepository struct {
	pool *pgxpool.Pool
}

// NewPackageRepository returns a Postgres-backed implementation.
func NewPackageRepository(pool *pgxpool.Pool) PackageRepository {
	return &packageRepository{pool: pool}
}

const packageColumns = `id, agency_id, title, destination, description, price_cents,
        seats_total, seats_available, departure_date, status, created_at, updated_at`

func (r *packageRepository) Create(ctx context.Context, pkg *domain.TravelPackage) error {
	const query = `
        INSERT INTO travel_packages
            (agency_id, title, destination, description, price_cents, seats_total, seats_available, departure_date, status)
        VALUES ($1,$2,$3,$4,$5,$6,$6,$7,$8)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		pkg.AgencyID,
		pkg.Title,
		pkg.Destination,
		pkg.Description,
		pkg.PriceCents,
		pkg.SeatsTotal,
		pkg.DepartureDate,
		pkg.Status,
	).Scan(&pkg.ID, &pkg.CreatedAt, &pkg.UpdatedAt)
}

func (r *packageRepository) Update(ctx context.Context, pkg *domain.TravelPackage) error {
	const query = `
        UPDATE travel_packages
        SET title=$1, destination=$2, description=$3, price_cents=$4, departure_date=$5, status=$6, updated_at=NOW()
        WHERE id=$7 AND agency_id=$8`

	cmd, err := r.pool.Exec(ctx, query,
		pkg.Title,
		pkg.Destination,
		pkg.Description,
		pkg.PriceCents,
		pkg.DepartureDate,
		pkg.Status,
		pkg.ID,
		pkg.AgencyID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *packageRepository) GetByID(ctx context.Context, id string) (*domain.TravelPackage, error) {
	const query = `SELECT ` + packageColumns + ` FROM travel_packages WHERE id=$1`
	return scanPackage(r.pool.QueryRow(ctx, query, id))
}

func (r *packageRepository) ListPublished(ctx context.Context, limit, offset int) ([]*domain.TravelPackage, error) {
	const query = `
        SELECT ` + packageColumns + `
        FROM travel_packages WHERE status='PUBLISHED'
        ORDER BY departure_date ASC
        LIMIT $1 OFFSET $2`
	return r.list(ctx, query, clampLimit(limit), offset)
}

func (r *packageRepository) ListByAgency(ctx context.Context, agencyID string, limit, offset int) ([]*domain.TravelPackage, error) {
	const query = `
        SELECT ` + packageColumns + `
        FROM travel_packages WHERE agency_id=$1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	return r.list(ctx, query, agencyID, clampLimit(limit), offset)
}

func (r *packageRepository) ReserveSeats(ctx context.Context, id string, seats int) error {
	const query = `
        UPDATE travel_packages
        SET seats_available = seats_available - $1, updated_at=NOW()
        WHERE id=$2 AND status='PUBLISHED' AND seats_available >= $1`

	cmd, err := r.pool.Exec(ctx, query, seats, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *packageRepository) ReleaseSeats(ctx context.Context, id string, seats int) error {
	const query = `
        UPDATE travel_packages
        SET seats_available = LEAST(seats_available + $1, seats_total), updated_at=NOW()
        WHERE id=$2`
	_, err := r.pool.Exec(ctx, query, seats, id)
	return err
}

func (r *packageRepository) list(ctx context.Context, query string, args ...any) ([]*domain.TravelPackage, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var packages []*domain.TravelPackage
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}
	return packages, rows.Err()
}

func scanPackage(row pgx.Row) (*domain.TravelPackage, error) {
	var pkg domain.TravelPackage
	if err := row.Scan(
		&pkg.ID,
		&pkg.AgencyID,
		&pkg.Title,
		&pkg.Destination,
		&pkg.Description,
		&pkg.PriceCents,
		&pkg.SeatsTotal,
		&pkg.SeatsAvailable,
		&pkg.DepartureDate,
		&pkg.Status,
		&pkg.CreatedAt,
		&pkg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &pkg, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}
