package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/events"
	"github.com/spec-kit/booking-service/internal/repository"
	apperrors "github.com/spec-kit/booking-service/pkg/util"
)

// BookingService coordinates reservations against published packages.
type BookingService struct {
	bookings   repository.BookingRepository
	packages   repository.PackageRepository
	dispatcher events.Dispatcher
}

// NewBookingService builds the service.
func NewBookingService(bookings repository.BookingRepository, packages repository.PackageRepository, dispatcher events.Dispatcher) *BookingService {
	return &BookingService{bookings: bookings, packages: packages, dispatcher: dispatcher}
}

// Book reserves seats on a published package for the user. Seat accounting is
// a single conditional decrement, so two racing bookings can never oversell.
func (s *BookingService) Book(ctx context.Context, userID, packageID string, seats int) (*domain.Booking, error) {
	if seats <= 0 {
		return nil, apperrors.NewValidationError("seats must be positive", nil)
	}

	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("package", nil)
		}
		return nil, err
	}

	if err := s.packages.ReserveSeats(ctx, packageID, seats); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("not enough seats available", nil)
		}
		return nil, err
	}

	booking := &domain.Booking{
		Reference:  uuid.NewString(),
		UserID:     userID,
		PackageID:  packageID,
		Seats:      seats,
		TotalCents: pkg.PriceCents * int64(seats),
		Status:     domain.BookingStatusConfirmed,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		// Give the seats back; the reservation never materialized.
		_ = s.packages.ReleaseSeats(ctx, packageID, seats)
		return nil, err
	}

	s.publish(ctx, events.EventBookingCreated, booking.ID, userID, events.BookingCreatedPayload{
		Reference:  booking.Reference,
		PackageID:  packageID,
		Seats:      seats,
		TotalCents: booking.TotalCents,
	})
	return booking, nil
}

// Cancel cancels the user's own booking and restores seat availability.
func (s *BookingService) Cancel(ctx context.Context, userID, bookingID string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("booking", nil)
		}
		return nil, err
	}
	if booking.UserID != userID {
		return nil, apperrors.NewForbidden("booking belongs to another user")
	}
	if booking.Status == domain.BookingStatusCancelled {
		return nil, apperrors.NewConflict("booking already cancelled", nil)
	}

	now := time.Now()
	if err := s.bookings.UpdateStatus(ctx, booking.ID, domain.BookingStatusCancelled, &now); err != nil {
		return nil, err
	}
	if err := s.packages.ReleaseSeats(ctx, booking.PackageID, booking.Seats); err != nil {
		return nil, err
	}

	booking.Status = domain.BookingStatusCancelled
	booking.CancelledAt = &now

	s.publish(ctx, events.EventBookingCancelled, booking.ID, userID, events.BookingCancelledPayload{
		Reference: booking.Reference,
		PackageID: booking.PackageID,
		Seats:     booking.Seats,
	})
	return booking, nil
}

// ListForUser returns the user's bookings.
func (s *BookingService) ListForUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, error) {
	return s.bookings.ListByUser(ctx, userID, limit, offset)
}

// ListForAgency returns bookings placed against the agency's packages.
func (s *BookingService) ListForAgency(ctx context.Context, agencyID string, limit, offset int) ([]*domain.Booking, error) {
	return s.bookings.ListByAgency(ctx, agencyID, limit, offset)
}

func (s *BookingService) publish(ctx context.Context, eventType events.EventType, subjectID, actorID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Actor:     events.Actor{Role: domain.RoleUser, AccountID: actorID},
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
