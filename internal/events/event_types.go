package events

import (
	"time"

	"github.com/spec-kit/booking-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventBookingCreated   EventType = "booking_created"
	EventBookingCancelled EventType = "booking_cancelled"
	EventAgencyApproved   EventType = "agency_approved"
	EventAgencySuspended  EventType = "agency_suspended"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role      domain.Role `json:"role"`
	AccountID string      `json:"account_id"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// BookingCreatedPayload payload.
type BookingCreatedPayload struct {
	Reference  string `json:"reference"`
	PackageID  string `json:"package_id"`
	Seats      int    `json:"seats"`
	TotalCents int64  `json:"total_cents"`
}

// BookingCancelledPayload payload.
type BookingCancelledPayload struct {
	Reference string `json:"reference"`
	PackageID string `json:"package_id"`
	Seats     int    `json:"seats"`
}

// AgencyStatusPayload payload for approval/suspension events.
type AgencyStatusPayload struct {
	OldStatus domain.AccountStatus `json:"old_status"`
	NewStatus domain.AccountStatus `json:"new_status"`
}
