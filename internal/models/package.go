package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a package's booking.
type BookingStatus string

const (
	BookingStatusUnset                BookingStatus = "unset"
	BookingStatusAwaitingAuth         BookingStatus = "awaiting_auth"
	BookingStatusAwaitingVerification BookingStatus = "awaiting_verification"
	BookingStatusPendingKYC           BookingStatus = "pending_kyc"
	BookingStatusBooked               BookingStatus = "booked"
)

// IsBooked reports whether the package has reached the terminal booked state.
func (s BookingStatus) IsBooked() bool {
	return s == BookingStatusBooked
}

// CostBreakdown splits a package price into its four components.
type CostBreakdown struct {
	Accommodation float64 `json:"accommodation"`
	Transport     float64 `json:"transport"`
	Activities    float64 `json:"activities"`
	Cab           float64 `json:"cab"`
}

// Total sums the breakdown.
func (b CostBreakdown) Total() float64 {
	return b.Accommodation + b.Transport + b.Activities + b.Cab
}

// MissingWeatherDay records which destination and date carry no forecast,
// and why.
type MissingWeatherDay struct {
	DayIndex      int       `json:"dayIndex"`
	DestinationID uuid.UUID `json:"destinationId"`
	Date          string    `json:"date"`
	Reason        string    `json:"reason"`
}

// PackageMetadata is the JSONB metadata stored on the header.
type PackageMetadata struct {
	WeatherNullDays []MissingWeatherDay `json:"weatherNullDays,omitempty"`
	ClonedFrom      *uuid.UUID          `json:"clonedFrom,omitempty"`
}

// GenerationParams are the inputs a package was generated from, kept so the
// package can be regenerated on reschedule or clone.
type GenerationParams struct {
	DestinationIDs     []uuid.UUID `json:"destination_ids"`
	StartDate          string      `json:"start_date"`
	PartySize          int         `json:"party_size"`
	Tier               PriceTier   `json:"tier"`
	ActivityCategory   string      `json:"activity_category,omitempty"`
	IncludeAttractions bool        `json:"include_attractions"`
}

// HotelOption is one priced hotel offer attached to a day.
type HotelOption struct {
	HotelID    string  `json:"hotel_id"`
	Name       string  `json:"name"`
	Rating     float64 `json:"rating"`
	DistanceKm float64 `json:"distance_km"`
	BoardType  string  `json:"board_type"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
}

// DayActivity is a scheduled, priced attraction on a day.
type DayActivity struct {
	AttractionID uuid.UUID `json:"attraction_id"`
	Name         string    `json:"name"`
	PricingType  string    `json:"pricing_type"`
	BasePrice    float64   `json:"base_price"`
	Cost         float64   `json:"cost"`
}

// PackageDay is one itinerary day.
type PackageDay struct {
	ID              uuid.UUID       `json:"id"`
	PackageID       uuid.UUID       `json:"-"`
	DayIndex        int             `json:"day_index"`
	Date            time.Time       `json:"date"`
	Title           string          `json:"title"`
	DestinationID   uuid.UUID       `json:"destination_id"`
	DestinationName string          `json:"destination_name"`
	AltitudeM       int             `json:"altitude_m"`
	Hotel           *HotelOption    `json:"hotel,omitempty"`
	HotelOptions    []HotelOption   `json:"hotel_options,omitempty"`
	Restaurants     []Restaurant    `json:"restaurants,omitempty"`
	Activities      []DayActivity   `json:"activities,omitempty"`
	TransportCost   float64         `json:"transport_cost"`
	Weather         *WeatherSnapshot `json:"weather,omitempty"`
}

// AccommodationCost returns the selected hotel's price, zero when none.
func (d *PackageDay) AccommodationCost() float64 {
	if d.Hotel == nil {
		return 0
	}
	return d.Hotel.Price
}

// ActivityCost sums the day's activity prices.
func (d *PackageDay) ActivityCost() float64 {
	var total float64
	for _, a := range d.Activities {
		total += a.Cost
	}
	return total
}

// PackageLeg is a road transfer between consecutive itinerary destinations.
// Distance and duration are nil when the route matrix has no entry.
type PackageLeg struct {
	ID                uuid.UUID  `json:"id"`
	PackageID         uuid.UUID  `json:"-"`
	Position          int        `json:"position"`
	FromDestinationID uuid.UUID  `json:"from_destination_id"`
	ToDestinationID   uuid.UUID  `json:"to_destination_id"`
	DistanceKm        *float64   `json:"distance_km"`
	DurationMin       *float64   `json:"duration_min"`
	CabCost           float64    `json:"cab_cost"`
}

// Package is the full generated itinerary aggregate.
type Package struct {
	ID             uuid.UUID        `json:"id"`
	Title          string           `json:"title"`
	StartDate      time.Time        `json:"start_date"`
	PartySize      int              `json:"party_size"`
	Tier           PriceTier        `json:"tier"`
	Days           []PackageDay     `json:"days"`
	Legs           []PackageLeg     `json:"legs"`
	Cab            *CabOption       `json:"cab,omitempty"`
	Breakdown      CostBreakdown    `json:"breakdown"`
	TotalPrice     float64          `json:"total_price"`
	PerPersonPrice float64          `json:"per_person_price"`
	Currency       string           `json:"currency"`
	OwnerID        *uuid.UUID       `json:"owner_id,omitempty"`
	BookingStatus  BookingStatus    `json:"booking_status"`
	IsPublic       bool             `json:"is_public"`
	Metadata       PackageMetadata  `json:"metadata"`
	Params         GenerationParams `json:"-"`
	AddOns         []Attraction     `json:"add_ons,omitempty"`
	CloneCount     int              `json:"clone_count"`
	IsPopular      bool             `json:"is_popular"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// IsOwnedBy reports whether the package belongs to the given user.
func (p *Package) IsOwnedBy(userID uuid.UUID) bool {
	return p.OwnerID != nil && *p.OwnerID == userID
}

// PackageSummary is the compact history listing row.
type PackageSummary struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	Title         string        `json:"title" db:"title"`
	StartDate     time.Time     `json:"start_date" db:"start_date"`
	EndDate       time.Time     `json:"end_date" db:"end_date"`
	BookingStatus BookingStatus `json:"booking_status" db:"booking_status"`
	TotalPrice    float64       `json:"total_price" db:"total_price"`
	Currency      string        `json:"currency" db:"currency"`
	ImageURL      string        `json:"image_url" db:"image_url"`
}
