package models

import (
	"time"

	"github.com/google/uuid"
)

// WeatherDateFormat is the canonical date layout for snapshot keys.
const WeatherDateFormat = "2006-01-02"

// Reasons recorded when a day has no weather attached.
const (
	WeatherMissingBeyondHorizon      = "beyond_forecast_horizon"
	WeatherMissingProviderUnavailable = "provider_unavailable"
)

// DailyForecast is the day-level summary from the forecast provider.
type DailyForecast struct {
	Condition     string  `json:"condition"`
	TempMinC      float64 `json:"temp_min_c"`
	TempMaxC      float64 `json:"temp_max_c"`
	PrecipChance  float64 `json:"precip_chance"`
	WindSpeedKmph float64 `json:"wind_speed_kmph"`
}

// HourlyForecast is one hour slot within a day.
type HourlyForecast struct {
	Hour         int     `json:"hour"`
	Condition    string  `json:"condition"`
	TempC        float64 `json:"temp_c"`
	PrecipChance float64 `json:"precip_chance"`
}

// WeatherSnapshot is a cached forecast for one (destination, date). A final
// snapshot is same-day weather that will no longer be refreshed.
type WeatherSnapshot struct {
	ID            uuid.UUID        `json:"id"`
	DestinationID uuid.UUID        `json:"destination_id"`
	Date          string           `json:"date"`
	Daily         DailyForecast    `json:"daily"`
	Hourly        []HourlyForecast `json:"hourly,omitempty"`
	IsFinal       bool             `json:"is_final"`
	FetchedAt     time.Time        `json:"fetched_at"`
}

// HasDailyData reports whether the snapshot carries a usable forecast.
func (s *WeatherSnapshot) HasDailyData() bool {
	return s != nil && s.Daily.Condition != ""
}
