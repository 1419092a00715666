package domain

import "time"

// PackageStatus enumerates lifecycle states for travel packages.
type PackageStatus string

const (
	PackageStatusDraft     PackageStatus = "DRAFT"
	PackageStatusPublished PackageStatus = "PUBLISHED"
	PackageStatusArchived  PackageStatus = "ARCHIVED"
)

// TravelPackage is an agency-published trip offering.
type TravelPackage struct {
	ID             string
	AgencyID       string
	Title          string
	Destination    string
	Description    string
	PriceCents     int64
	SeatsTotal     int
	SeatsAvailable int
	DepartureDate  time.Time
	Status         PackageStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
