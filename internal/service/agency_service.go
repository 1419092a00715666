package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/booking-service/internal/auth"
	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/events"
	"github.com/spec-kit/booking-service/internal/repository"
	apperrors "github.com/spec-kit/booking-service/pkg/util"
)

// AgencyService implements the super-admin workflows over agency accounts.
type AgencyService struct {
	agencies   repository.AccountStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAgencyService builds the service.
func NewAgencyService(agencies repository.AccountStore, dispatcher events.Dispatcher, logger *zap.Logger) *AgencyService {
	return &AgencyService{agencies: agencies, dispatcher: dispatcher, logger: logger}
}

// ListByStatus returns agencies in the given lifecycle state.
func (s *AgencyService) ListByStatus(ctx context.Context, status domain.AccountStatus, limit, offset int) ([]*domain.Account, error) {
	return s.agencies.ListByStatus(ctx, status, limit, offset)
}

// Approve moves a pending agency to ACTIVE.
func (s *AgencyService) Approve(ctx context.Context, actorID, agencyID string) (*domain.Account, error) {
	agency, err := s.get(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	if agency.Status == domain.AccountStatusActive {
		return nil, apperrors.NewConflict("agency already active", nil)
	}

	oldStatus := agency.Status
	if err := s.agencies.UpdateStatus(ctx, agencyID, domain.AccountStatusActive); err != nil {
		return nil, err
	}
	agency.Status = domain.AccountStatusActive

	s.publish(ctx, events.EventAgencyApproved, agencyID, actorID, events.AgencyStatusPayload{
		OldStatus: oldStatus,
		NewStatus: domain.AccountStatusActive,
	})
	return agency, nil
}

// Suspend blocks the agency and rotates its session id so any token it holds
// dies on the next request rather than at natural expiry.
func (s *AgencyService) Suspend(ctx context.Context, actorID, agencyID string) (*domain.Account, error) {
	agency, err := s.get(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	if agency.Status == domain.AccountStatusSuspended {
		return nil, apperrors.NewConflict("agency already suspended", nil)
	}

	oldStatus := agency.Status
	if err := s.agencies.UpdateStatus(ctx, agencyID, domain.AccountStatusSuspended); err != nil {
		return nil, err
	}

	sessionID, err := auth.NewSessionID()
	if err != nil {
		return nil, err
	}
	if err := s.agencies.RotateSession(ctx, agencyID, sessionID); err != nil {
		return nil, err
	}
	agency.Status = domain.AccountStatusSuspended

	s.logger.Info("agency suspended",
		zap.String("agency_id", agencyID),
		zap.String("actor_id", actorID),
	)
	s.publish(ctx, events.EventAgencySuspended, agencyID, actorID, events.AgencyStatusPayload{
		OldStatus: oldStatus,
		NewStatus: domain.AccountStatusSuspended,
	})
	return agency, nil
}

func (s *AgencyService) get(ctx context.Context, agencyID string) (*domain.Account, error) {
	agency, err := s.agencies.GetByID(ctx, agencyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agency", nil)
		}
		return nil, err
	}
	return agency, nil
}

func (s *AgencyService) publish(ctx context.Context, eventType events.EventType, agencyID, actorID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: agencyID,
		Actor:     events.Actor{Role: domain.RoleSuperAdmin, AccountID: actorID},
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
