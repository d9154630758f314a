package models

import "github.com/google/uuid"

// PriceTier selects the pricing bucket every facet of a package draws from.
type PriceTier string

const (
	TierBudget  PriceTier = "budget"
	TierOptimal PriceTier = "optimal"
	TierPremium PriceTier = "premium"
)

// IsValid reports whether the tier is one of the three supported buckets.
func (t PriceTier) IsValid() bool {
	switch t {
	case TierBudget, TierOptimal, TierPremium:
		return true
	}
	return false
}

// RestaurantPriceRange maps a package tier onto the restaurant catalog's
// price range labels.
func (t PriceTier) RestaurantPriceRange() string {
	switch t {
	case TierBudget:
		return "budget"
	case TierPremium:
		return "premium"
	default:
		return "mid-range"
	}
}

// Destination is a catalog destination. Hub destinations anchor the start of
// every itinerary that includes them.
type Destination struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Region    string    `json:"region" db:"region"`
	IsHub     bool      `json:"is_hub" db:"is_hub"`
	Latitude  float64   `json:"latitude" db:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude"`
	AltitudeM int       `json:"altitude_m" db:"altitude_m"`
	ImageURL  string    `json:"image_url" db:"image_url"`
}

// Attraction pricing types
const (
	AttractionPricingFree      = "free"
	AttractionPricingPerPerson = "per_person"
	AttractionPricingFlat      = "flat"
)

// Attraction is a catalog attraction; only purchasable attractions are
// scheduled into itineraries.
type Attraction struct {
	ID            uuid.UUID `json:"id" db:"id"`
	DestinationID uuid.UUID `json:"destination_id" db:"destination_id"`
	Name          string    `json:"name" db:"name"`
	Category      string    `json:"category" db:"category"`
	Rating        float64   `json:"rating" db:"rating"`
	ReviewCount   int       `json:"review_count" db:"review_count"`
	PricingType   string    `json:"pricing_type" db:"pricing_type"`
	BasePrice     float64   `json:"base_price" db:"base_price"`
	Purchasable   bool      `json:"purchasable" db:"purchasable"`
}

// Restaurant is a catalog restaurant suggestion attached to itinerary days.
type Restaurant struct {
	ID            uuid.UUID `json:"id" db:"id"`
	DestinationID uuid.UUID `json:"destination_id" db:"destination_id"`
	Name          string    `json:"name" db:"name"`
	Cuisine       string    `json:"cuisine" db:"cuisine"`
	PriceRange    string    `json:"price_range" db:"price_range"`
	Rating        float64   `json:"rating" db:"rating"`
	ReviewCount   int       `json:"review_count" db:"review_count"`
}

// PricingBucketRow is the per-destination, per-tier nightly price bucket.
type PricingBucketRow struct {
	DestinationID      uuid.UUID `json:"destination_id" db:"destination_id"`
	Tier               PriceTier `json:"tier" db:"tier"`
	AccommodationPrice float64   `json:"accommodation_price" db:"accommodation_price"`
	TransportPrice     float64   `json:"transport_price" db:"transport_price"`
}

// RouteMatrixEntry is a precomputed road distance/duration between two
// destinations.
type RouteMatrixEntry struct {
	FromDestinationID uuid.UUID `json:"from_destination_id" db:"from_destination_id"`
	ToDestinationID   uuid.UUID `json:"to_destination_id" db:"to_destination_id"`
	DistanceKm        float64   `json:"distance_km" db:"distance_km"`
	DurationMin       float64   `json:"duration_min" db:"duration_min"`
}

// Cab classes, chosen from party size.
const (
	CabClassSedan          = "sedan"
	CabClassSUV            = "suv"
	CabClassTempoTraveller = "tempo_traveller"
)

// CabOption is a bookable cab from the inventory.
type CabOption struct {
	ID         uuid.UUID `json:"id" db:"id"`
	CabClass   string    `json:"cab_class" db:"cab_class"`
	Make       string    `json:"make" db:"make"`
	Model      string    `json:"model" db:"model"`
	ModelYear  int       `json:"model_year" db:"model_year"`
	Capacity   int       `json:"capacity" db:"capacity"`
	PerDayRate float64   `json:"per_day_rate" db:"per_day_rate"`
	PerKmRate  float64   `json:"per_km_rate" db:"per_km_rate"`
	Available  bool      `json:"available" db:"available"`
}
