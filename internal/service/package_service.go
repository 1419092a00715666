package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/persistence"
	"github.com/spec-kit/booking-service/internal/repository"
	apperrors "github.com/spec-kit/booking-service/pkg/util"
)

const catalogCacheKey = "catalog:published"

// PackageService coordinates the agency-facing package workflows and the
// public catalog, caching the published listing in Redis.
type PackageService struct {
	packages repository.PackageRepository
	cache    *persistence.Redis
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewPackageService builds the service.
func NewPackageService(packages repository.PackageRepository, cache *persistence.Redis, cacheTTL time.Duration, logger *zap.Logger) *PackageService {
	return &PackageService{packages: packages, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// PackageInput describes package creation/update payloads.
type PackageInput struct {
	Title         string
	Destination   string
	Description   string
	PriceCents    int64
	SeatsTotal    int
	DepartureDate time.Time
	Status        domain.PackageStatus
}

func (in PackageInput) validate() error {
	if in.Title == "" || in.Destination == "" {
		return apperrors.NewValidationError("title and destination required", nil)
	}
	if in.PriceCents <= 0 {
		return apperrors.NewValidationError("price must be positive", nil)
	}
	if in.SeatsTotal <= 0 {
		return apperrors.NewValidationError("seats must be positive", nil)
	}
	switch in.Status {
	case domain.PackageStatusDraft, domain.PackageStatusPublished, domain.PackageStatusArchived:
	default:
		return apperrors.NewValidationError("invalid status", nil)
	}
	return nil
}

// Create publishes a new package owned by the agency.
func (s *PackageService) Create(ctx context.Context, agencyID string, in PackageInput) (*domain.TravelPackage, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	pkg := &domain.TravelPackage{
		AgencyID:       agencyID,
		Title:          in.Title,
		Destination:    in.Destination,
		Description:    in.Description,
		PriceCents:     in.PriceCents,
		SeatsTotal:     in.SeatsTotal,
		SeatsAvailable: in.SeatsTotal,
		DepartureDate:  in.DepartureDate,
		Status:         in.Status,
	}
	if err := s.packages.Create(ctx, pkg); err != nil {
		return nil, err
	}
	s.invalidateCatalog(ctx)
	return pkg, nil
}

// Update modifies a package the agency owns.
func (s *PackageService) Update(ctx context.Context, agencyID, packageID string, in PackageInput) (*domain.TravelPackage, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("package", nil)
		}
		return nil, err
	}
	if pkg.AgencyID != agencyID {
		return nil, apperrors.NewForbidden("package belongs to another agency")
	}

	pkg.Title = in.Title
	pkg.Destination = in.Destination
	pkg.Description = in.Description
	pkg.PriceCents = in.PriceCents
	pkg.DepartureDate = in.DepartureDate
	pkg.Status = in.Status

	if err := s.packages.Update(ctx, pkg); err != nil {
		return nil, err
	}
	s.invalidateCatalog(ctx)
	return pkg, nil
}

// Get returns a single package.
func (s *PackageService) Get(ctx context.Context, packageID string) (*domain.TravelPackage, error) {
	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("package", nil)
		}
		return nil, err
	}
	return pkg, nil
}

// ListForAgency returns the agency's own packages, drafts included.
func (s *PackageService) ListForAgency(ctx context.Context, agencyID string, limit, offset int) ([]*domain.TravelPackage, error) {
	return s.packages.ListByAgency(ctx, agencyID, limit, offset)
}

// ListPublished returns the public catalog, served from the Redis cache when
// warm. Only the first page is cached; deeper pages go straight to Postgres.
func (s *PackageService) ListPublished(ctx context.Context, limit, offset int) ([]*domain.TravelPackage, error) {
	cacheable := offset == 0 && s.cache != nil
	key := fmt.Sprintf("%s:%d", catalogCacheKey, limit)

	if cacheable {
		if cached, err := s.cache.Client.Get(ctx, key).Result(); err == nil {
			var packages []*domain.TravelPackage
			if err := json.Unmarshal([]byte(cached), &packages); err == nil {
				return packages, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		}
	}

	packages, err := s.packages.ListPublished(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if data, err := json.Marshal(packages); err == nil {
			if err := s.cache.Client.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("catalog cache write failed", zap.Error(err))
			}
		}
	}
	return packages, nil
}

func (s *PackageService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	iter := s.cache.Client.Scan(ctx, 0, catalogCacheKey+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Client.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("catalog cache scan failed", zap.Error(err))
	}
}
