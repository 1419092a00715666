package dto

import "time"

// BookingRequest payload for placing a booking.
type BookingRequest struct {
	PackageID string `json:"package_id"`
	Seats     int    `json:"seats"`
}

// BookingResponse is the outward representation of a booking.
type BookingResponse struct {
	ID          string     `json:"id"`
	Reference   string     `json:"reference"`
	PackageID   string     `json:"package_id"`
	Seats       int        `json:"seats"`
	TotalCents  int64      `json:"total_cents"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}
