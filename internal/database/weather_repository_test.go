package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashmirtrails/packages-backend/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestGetSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWeatherRepository(db)

	destinationID := uuid.New()
	date := "2026-09-03"

	t.Run("Success", func(t *testing.T) {
		snapshotID := uuid.New()
		fetchedAt := time.Now()

		mock.ExpectQuery(`SELECT (.+) FROM weather_snapshots`).
			WithArgs(destinationID, date).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "destination_id", "date", "daily", "hourly", "is_final", "fetched_at",
			}).AddRow(
				snapshotID, destinationID, date,
				[]byte(`{"condition":"sunny","temp_min_c":4,"temp_max_c":18}`),
				[]byte(`[{"hour":9,"condition":"sunny","temp_c":11}]`),
				false, fetchedAt,
			))

		snapshot, err := repo.GetSnapshot(destinationID, date)
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, snapshotID, snapshot.ID)
		assert.Equal(t, "sunny", snapshot.Daily.Condition)
		assert.Equal(t, 18.0, snapshot.Daily.TempMaxC)
		assert.Len(t, snapshot.Hourly, 1)
		assert.False(t, snapshot.IsFinal)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM weather_snapshots`).
			WithArgs(destinationID, date).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "destination_id", "date", "daily", "hourly", "is_final", "fetched_at",
			}))

		snapshot, err := repo.GetSnapshot(destinationID, date)
		require.NoError(t, err)
		assert.Nil(t, snapshot)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM weather_snapshots`).
			WithArgs(destinationID, date).
			WillReturnError(fmt.Errorf("database error"))

		snapshot, err := repo.GetSnapshot(destinationID, date)
		assert.Error(t, err)
		assert.Nil(t, snapshot)
		assert.Contains(t, err.Error(), "failed to fetch weather snapshot")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpsertSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWeatherRepository(db)

	destinationID := uuid.New()

	t.Run("Insert Forecast", func(t *testing.T) {
		snapshot := &models.WeatherSnapshot{
			DestinationID: destinationID,
			Date:          "2026-09-03",
			Daily:         models.DailyForecast{Condition: "cloudy", TempMinC: 2, TempMaxC: 14},
		}

		mock.ExpectExec(`INSERT INTO weather_snapshots`).
			WithArgs(sqlmock.AnyArg(), destinationID, "2026-09-03", sqlmock.AnyArg(), sqlmock.AnyArg(), false, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpsertSnapshot(snapshot)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, snapshot.ID)
		assert.False(t, snapshot.FetchedAt.IsZero())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Final Snapshot Clears Previous Flag", func(t *testing.T) {
		snapshot := &models.WeatherSnapshot{
			DestinationID: destinationID,
			Date:          "2026-09-01",
			Daily:         models.DailyForecast{Condition: "snow"},
			IsFinal:       true,
		}

		mock.ExpectExec(`UPDATE weather_snapshots`).
			WithArgs(destinationID, "2026-09-01").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO weather_snapshots`).
			WithArgs(sqlmock.AnyArg(), destinationID, "2026-09-01", sqlmock.AnyArg(), sqlmock.AnyArg(), true, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpsertSnapshot(snapshot)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		snapshot := &models.WeatherSnapshot{
			DestinationID: destinationID,
			Date:          "2026-09-03",
		}

		mock.ExpectExec(`INSERT INTO weather_snapshots`).
			WithArgs(sqlmock.AnyArg(), destinationID, "2026-09-03", sqlmock.AnyArg(), sqlmock.AnyArg(), false, sqlmock.AnyArg()).
			WillReturnError(fmt.Errorf("database error"))

		err := repo.UpsertSnapshot(snapshot)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to upsert weather snapshot")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
