package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/kashmirtrails/packages-backend/internal/models"
)

// refreshJobTimeout bounds one full refresh pass.
const refreshJobTimeout = 10 * time.Minute

// destinationLister is the catalog slice the refresher needs.
type destinationLister interface {
	ListDestinations() ([]models.Destination, error)
}

// snapshotBackfiller is satisfied by WeatherService.
type snapshotBackfiller interface {
	Backfill(ctx context.Context, destination models.Destination) error
}

// WeatherRefreshService periodically re-fetches the forecast window for every
// destination so the snapshot cache stays warm. A destination failing its
// refresh is logged and skipped; the pass continues for the rest.
type WeatherRefreshService struct {
	cron         *cron.Cron
	catalog      destinationLister
	weather      snapshotBackfiller
	scheduleSpec string
	logger       *logrus.Logger
}

// NewWeatherRefreshService creates a new WeatherRefreshService
func NewWeatherRefreshService(catalog destinationLister, weather snapshotBackfiller, scheduleSpec string, logger *logrus.Logger) *WeatherRefreshService {
	return &WeatherRefreshService{
		cron:         cron.New(cron.WithSeconds()),
		catalog:      catalog,
		weather:      weather,
		scheduleSpec: scheduleSpec,
		logger:       logger,
	}
}

// Start schedules the refresh job and starts the scheduler.
func (s *WeatherRefreshService) Start() error {
	if _, err := s.cron.AddFunc(s.scheduleSpec, s.refreshJob); err != nil {
		return fmt.Errorf("failed to schedule weather refresh job: %w", err)
	}

	s.cron.Start()
	s.logger.WithField("schedule", s.scheduleSpec).Info("Weather refresh scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *WeatherRefreshService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Weather refresh scheduler stopped")
}

func (s *WeatherRefreshService) refreshJob() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshJobTimeout)
	defer cancel()

	refreshed, failed := s.RefreshAll(ctx)
	s.logger.WithFields(logrus.Fields{
		"refreshed": refreshed,
		"failed":    failed,
	}).Info("Weather refresh pass finished")
}

// RefreshAll backfills every destination once, tolerating per-destination
// failure. Returns the refreshed and failed counts. Also invoked manually
// through the admin trigger endpoint.
func (s *WeatherRefreshService) RefreshAll(ctx context.Context) (refreshed, failed int) {
	destinations, err := s.catalog.ListDestinations()
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("Weather refresh could not list destinations")
		return 0, 0
	}

	for _, destination := range destinations {
		if ctx.Err() != nil {
			s.logger.Warn("Weather refresh pass cancelled")
			return refreshed, failed + (len(destinations) - refreshed - failed)
		}

		if err := s.weather.Backfill(ctx, destination); err != nil {
			failed++
			s.logger.WithFields(logrus.Fields{
				"destination": destination.Name,
				"error":       err.Error(),
			}).Warn("Weather refresh failed for destination")
			continue
		}
		refreshed++
	}

	return refreshed, failed
}
