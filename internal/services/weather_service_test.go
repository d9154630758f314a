package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashmirtrails/packages-backend/internal/models"
	"github.com/kashmirtrails/packages-backend/pkg/forecastapi"
)

func TestWeatherGetForDate(t *testing.T) {
	destination := models.Destination{ID: uuid.New(), Name: "Srinagar", Latitude: 34.08, Longitude: 74.79}
	date := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)

	t.Run("Cache Hit Skips Provider", func(t *testing.T) {
		store := newFakeSnapshotStore()
		store.snapshots[destination.ID.String()+"|2026-09-03"] = &models.WeatherSnapshot{
			ID:            uuid.New(),
			DestinationID: destination.ID,
			Date:          "2026-09-03",
			Daily:         models.DailyForecast{Condition: "sunny"},
		}
		provider := &fakeForecastProvider{}
		svc := NewWeatherService(store, provider, 14, testLogger())

		snapshot, reason := svc.GetForDate(context.Background(), destination, date)
		require.NotNil(t, snapshot)
		assert.Empty(t, reason)
		assert.Equal(t, "sunny", snapshot.Daily.Condition)
		assert.Zero(t, provider.calls)
	})

	t.Run("Miss Triggers Backfill And Persists Window", func(t *testing.T) {
		store := newFakeSnapshotStore()
		provider := &fakeForecastProvider{
			window: []forecastapi.ForecastDay{
				{Date: "2026-09-03", Condition: "cloudy", TempMinC: 3, TempMaxC: 15},
				{Date: "2026-09-04", Condition: "rain", TempMinC: 5, TempMaxC: 12,
					Hourly: []forecastapi.ForecastHour{{Hour: 14, Condition: "rain", TempC: 10}}},
			},
		}
		svc := NewWeatherService(store, provider, 14, testLogger())

		snapshot, reason := svc.GetForDate(context.Background(), destination, date)
		require.NotNil(t, snapshot)
		assert.Empty(t, reason)
		assert.Equal(t, "cloudy", snapshot.Daily.Condition)
		assert.Equal(t, 1, provider.calls)

		// Every day of the window was persisted, not just the asked date.
		assert.Len(t, store.snapshots, 2)
		next := store.snapshots[destination.ID.String()+"|2026-09-04"]
		require.NotNil(t, next)
		assert.Len(t, next.Hourly, 1)
	})

	t.Run("Beyond Horizon Returns Reason", func(t *testing.T) {
		store := newFakeSnapshotStore()
		provider := &fakeForecastProvider{
			window: []forecastapi.ForecastDay{{Date: "2026-09-03", Condition: "sunny"}},
		}
		svc := NewWeatherService(store, provider, 14, testLogger())

		farDate := time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)
		snapshot, reason := svc.GetForDate(context.Background(), destination, farDate)
		assert.Nil(t, snapshot)
		assert.Equal(t, models.WeatherMissingBeyondHorizon, reason)
	})

	t.Run("Provider Failure Returns Reason", func(t *testing.T) {
		store := newFakeSnapshotStore()
		provider := &fakeForecastProvider{err: fmt.Errorf("provider down")}
		svc := NewWeatherService(store, provider, 14, testLogger())

		snapshot, reason := svc.GetForDate(context.Background(), destination, date)
		assert.Nil(t, snapshot)
		assert.Equal(t, models.WeatherMissingProviderUnavailable, reason)
	})
}

func TestWeatherBackfill(t *testing.T) {
	destination := models.Destination{ID: uuid.New(), Name: "Srinagar", Latitude: 34.08, Longitude: 74.79}

	t.Run("Marks Today Final", func(t *testing.T) {
		today := time.Now().UTC().Format(models.WeatherDateFormat)
		store := newFakeSnapshotStore()
		provider := &fakeForecastProvider{
			window: []forecastapi.ForecastDay{
				{Date: today, Condition: "sunny"},
				{Date: "2099-01-01", Condition: "snow"},
			},
		}
		svc := NewWeatherService(store, provider, 14, testLogger())

		require.NoError(t, svc.Backfill(context.Background(), destination))

		assert.True(t, store.snapshots[destination.ID.String()+"|"+today].IsFinal)
		assert.False(t, store.snapshots[destination.ID.String()+"|2099-01-01"].IsFinal)
	})

	t.Run("Provider Error Propagates", func(t *testing.T) {
		store := newFakeSnapshotStore()
		provider := &fakeForecastProvider{err: fmt.Errorf("provider down")}
		svc := NewWeatherService(store, provider, 14, testLogger())

		assert.Error(t, svc.Backfill(context.Background(), destination))
		assert.Empty(t, store.snapshots)
	})
}
