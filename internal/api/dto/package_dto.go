package dto

import "time"

// PackageRequest payload for creating or updating a travel package.
type PackageRequest struct {
	Title         string    `json:"title"`
	Destination   string    `json:"destination"`
	Description   string    `json:"description"`
	PriceCents    int64     `json:"price_cents"`
	SeatsTotal    int       `json:"seats_total"`
	DepartureDate time.Time `json:"departure_date"`
	Status        string    `json:"status"`
}

// PackageResponse is the outward representation of a travel package.
type PackageResponse struct {
	ID             string    `json:"id"`
	AgencyID       string    `json:"agency_id"`
	Title          string    `json:"title"`
	Destination    string    `json:"destination"`
	Description    string    `json:"description"`
	PriceCents     int64     `json:"price_cents"`
	SeatsTotal     int       `json:"seats_total"`
	SeatsAvailable int       `json:"seats_available"`
	DepartureDate  time.Time `json:"departure_date"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
