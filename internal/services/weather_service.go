package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kashmirtrails/packages-backend/internal/models"
	"github.com/kashmirtrails/packages-backend/pkg/forecastapi"
)

// forecastProvider is the slice of the forecast client the cache needs.
type forecastProvider interface {
	FetchWindow(ctx context.Context, lat, lon float64, days int) ([]forecastapi.ForecastDay, error)
}

// WeatherSnapshotStore is the persistence interface the weather cache uses.
type WeatherSnapshotStore interface {
	GetSnapshot(destinationID uuid.UUID, date string) (*models.WeatherSnapshot, error)
	UpsertSnapshot(snapshot *models.WeatherSnapshot) error
}

// WeatherService is a read-through cache over stored forecast snapshots. A
// miss triggers a full-window backfill from the provider; a date that is
// still absent afterwards is beyond the provider's horizon.
type WeatherService struct {
	repo        WeatherSnapshotStore
	provider    forecastProvider
	horizonDays int
	logger      *logrus.Logger
}

// NewWeatherService creates a new WeatherService
func NewWeatherService(repo WeatherSnapshotStore, provider forecastProvider, horizonDays int, logger *logrus.Logger) *WeatherService {
	return &WeatherService{
		repo:        repo,
		provider:    provider,
		horizonDays: horizonDays,
		logger:      logger,
	}
}

// GetForDate returns the forecast snapshot for a destination and date, or nil
// plus a machine-readable reason when no forecast can be obtained. A missing
// forecast is an expected outcome, never an error.
func (s *WeatherService) GetForDate(ctx context.Context, destination models.Destination, date time.Time) (*models.WeatherSnapshot, string) {
	dateStr := date.Format(models.WeatherDateFormat)

	snapshot, err := s.repo.GetSnapshot(destination.ID, dateStr)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"destination": destination.Name,
			"date":        dateStr,
			"error":       err.Error(),
		}).Warn("Weather snapshot lookup failed, attempting backfill")
	}
	if snapshot.HasDailyData() {
		return snapshot, ""
	}

	if err := s.Backfill(ctx, destination); err != nil {
		s.logger.WithFields(logrus.Fields{
			"destination": destination.Name,
			"error":       err.Error(),
		}).Warn("Forecast backfill failed")
		return nil, models.WeatherMissingProviderUnavailable
	}

	snapshot, err = s.repo.GetSnapshot(destination.ID, dateStr)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"destination": destination.Name,
			"date":        dateStr,
			"error":       err.Error(),
		}).Warn("Weather snapshot re-query failed after backfill")
		return nil, models.WeatherMissingProviderUnavailable
	}
	if snapshot.HasDailyData() {
		return snapshot, ""
	}

	return nil, models.WeatherMissingBeyondHorizon
}

// Backfill fetches the provider's full forecast window for a destination and
// upserts every returned day as a snapshot. Today's snapshot is marked final.
func (s *WeatherService) Backfill(ctx context.Context, destination models.Destination) error {
	window, err := s.provider.FetchWindow(ctx, destination.Latitude, destination.Longitude, s.horizonDays)
	if err != nil {
		return err
	}

	today := time.Now().UTC().Format(models.WeatherDateFormat)

	for _, day := range window {
		snapshot := &models.WeatherSnapshot{
			DestinationID: destination.ID,
			Date:          day.Date,
			Daily: models.DailyForecast{
				Condition:     day.Condition,
				TempMinC:      day.TempMinC,
				TempMaxC:      day.TempMaxC,
				PrecipChance:  day.PrecipChance,
				WindSpeedKmph: day.WindSpeedKmph,
			},
			IsFinal: day.Date == today,
		}
		for _, hour := range day.Hourly {
			snapshot.Hourly = append(snapshot.Hourly, models.HourlyForecast{
				Hour:         hour.Hour,
				Condition:    hour.Condition,
				TempC:        hour.TempC,
				PrecipChance: hour.PrecipChance,
			})
		}

		if err := s.repo.UpsertSnapshot(snapshot); err != nil {
			s.logger.WithFields(logrus.Fields{
				"destination": destination.Name,
				"date":        day.Date,
				"error":       err.Error(),
			}).Warn("Failed to persist weather snapshot")
		}
	}

	return nil
}
