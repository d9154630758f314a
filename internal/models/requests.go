package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultStartOffsetDays is applied when a generation request omits the
// start date.
const DefaultStartOffsetDays = 3

// GeneratePackageRequest is the payload for package generation.
type GeneratePackageRequest struct {
	DestinationIDs     []uuid.UUID `json:"destination_ids"`
	StartDate          string      `json:"start_date,omitempty"`
	PartySize          int         `json:"party_size"`
	Tier               PriceTier   `json:"tier"`
	ActivityCategory   string      `json:"activity_category,omitempty"`
	IncludeAttractions bool        `json:"include_attractions"`
}

// Validate returns every violation in the request, empty when valid.
func (r *GeneratePackageRequest) Validate(now time.Time) []string {
	var violations []string

	if len(r.DestinationIDs) == 0 {
		violations = append(violations, "at least one destination is required")
	}
	if r.PartySize < 1 {
		violations = append(violations, "party_size must be at least 1")
	}
	if !r.Tier.IsValid() {
		violations = append(violations, fmt.Sprintf("tier must be one of %s, %s, %s", TierBudget, TierOptimal, TierPremium))
	}

	if r.StartDate != "" {
		parsed, err := time.Parse(WeatherDateFormat, r.StartDate)
		if err != nil {
			violations = append(violations, "start_date must be formatted as YYYY-MM-DD")
		} else if parsed.Before(now.UTC().Truncate(24 * time.Hour)) {
			violations = append(violations, "start_date must not be in the past")
		}
	}

	return violations
}

// ResolvedStartDate returns the requested start date, or the default offset
// from now when omitted. Call Validate first; a malformed date resolves to
// the default here.
func (r *GeneratePackageRequest) ResolvedStartDate(now time.Time) time.Time {
	if r.StartDate != "" {
		if parsed, err := time.Parse(WeatherDateFormat, r.StartDate); err == nil {
			return parsed
		}
	}
	return now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, DefaultStartOffsetDays)
}

// Params captures the request as persisted generation parameters.
func (r *GeneratePackageRequest) Params(startDate time.Time) GenerationParams {
	return GenerationParams{
		DestinationIDs:     r.DestinationIDs,
		StartDate:          startDate.Format(WeatherDateFormat),
		PartySize:          r.PartySize,
		Tier:               r.Tier,
		ActivityCategory:   r.ActivityCategory,
		IncludeAttractions: r.IncludeAttractions,
	}
}

// DayHotelOverride swaps the selected hotel of one day.
type DayHotelOverride struct {
	DayIndex int    `json:"day_index"`
	HotelID  string `json:"hotel_id"`
}

// DayActivityOverride replaces the scheduled attractions of one day.
type DayActivityOverride struct {
	DayIndex      int         `json:"day_index"`
	AttractionIDs []uuid.UUID `json:"attraction_ids"`
}

// UpdatePackageRequest is the payload for package configuration updates.
// A non-nil StartDate triggers a full reschedule before any overrides apply.
type UpdatePackageRequest struct {
	StartDate         *string               `json:"start_date,omitempty"`
	CabID             *uuid.UUID            `json:"cab_id,omitempty"`
	HotelOverrides    []DayHotelOverride    `json:"hotel_overrides,omitempty"`
	ActivityOverrides []DayActivityOverride `json:"activity_overrides,omitempty"`
	IsPublic          *bool                 `json:"is_public,omitempty"`
}

// IsReschedule reports whether the update moves the start date.
func (r *UpdatePackageRequest) IsReschedule() bool {
	return r.StartDate != nil
}

// IsEmpty reports whether the update changes nothing.
func (r *UpdatePackageRequest) IsEmpty() bool {
	return r.StartDate == nil && r.CabID == nil && r.IsPublic == nil &&
		len(r.HotelOverrides) == 0 && len(r.ActivityOverrides) == 0
}

// BookPackageRequest carries last-minute configuration applied atomically
// with a booking.
type BookPackageRequest struct {
	CabID             *uuid.UUID            `json:"cab_id,omitempty"`
	HotelOverrides    []DayHotelOverride    `json:"hotel_overrides,omitempty"`
	ActivityOverrides []DayActivityOverride `json:"activity_overrides,omitempty"`
}

// ClonePackageRequest optionally moves the clone to a new start date.
type ClonePackageRequest struct {
	StartDate *string `json:"start_date,omitempty"`
}
