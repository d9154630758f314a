package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/kashmirtrails/packages-backend/internal/models"
)

// WeatherRepository handles weather snapshot persistence
type WeatherRepository struct {
	db *sqlx.DB
}

// NewWeatherRepository creates a new WeatherRepository
func NewWeatherRepository(db *sqlx.DB) *WeatherRepository {
	return &WeatherRepository{db: db}
}

// GetSnapshot returns the snapshot for exactly (destination, date).
// Returns nil without error when none is stored.
func (r *WeatherRepository) GetSnapshot(destinationID uuid.UUID, date string) (*models.WeatherSnapshot, error) {
	var (
		snapshot   models.WeatherSnapshot
		dailyJSON  []byte
		hourlyJSON []byte
	)

	query := `
		SELECT id, destination_id, date, daily, hourly, is_final, fetched_at
		FROM weather_snapshots
		WHERE destination_id = $1 AND date = $2`

	err := r.db.QueryRow(query, destinationID, date).Scan(
		&snapshot.ID, &snapshot.DestinationID, &snapshot.Date,
		&dailyJSON, &hourlyJSON, &snapshot.IsFinal, &snapshot.FetchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch weather snapshot: %w", err)
	}

	if len(dailyJSON) > 0 {
		if err := json.Unmarshal(dailyJSON, &snapshot.Daily); err != nil {
			return nil, fmt.Errorf("failed to unmarshal daily forecast: %w", err)
		}
	}
	if len(hourlyJSON) > 0 {
		if err := json.Unmarshal(hourlyJSON, &snapshot.Hourly); err != nil {
			return nil, fmt.Errorf("failed to unmarshal hourly forecast: %w", err)
		}
	}

	return &snapshot, nil
}

// UpsertSnapshot writes a snapshot keyed by (destination, date). A snapshot
// marked final first clears the final flag on any other row for the same
// destination and date; at most one final snapshot may exist per key.
func (r *WeatherRepository) UpsertSnapshot(snapshot *models.WeatherSnapshot) error {
	dailyJSON, err := json.Marshal(snapshot.Daily)
	if err != nil {
		return fmt.Errorf("failed to marshal daily forecast: %w", err)
	}
	hourlyJSON, err := json.Marshal(snapshot.Hourly)
	if err != nil {
		return fmt.Errorf("failed to marshal hourly forecast: %w", err)
	}

	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now().UTC()
	}

	if snapshot.IsFinal {
		clearQuery := `
			UPDATE weather_snapshots
			SET is_final = false
			WHERE destination_id = $1 AND date = $2 AND is_final = true`
		if _, err := r.db.Exec(clearQuery, snapshot.DestinationID, snapshot.Date); err != nil {
			return fmt.Errorf("failed to clear final flag: %w", err)
		}
	}

	query := `
		INSERT INTO weather_snapshots (id, destination_id, date, daily, hourly, is_final, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (destination_id, date) DO UPDATE
		SET daily = EXCLUDED.daily,
		    hourly = EXCLUDED.hourly,
		    is_final = EXCLUDED.is_final,
		    fetched_at = EXCLUDED.fetched_at`

	_, err = r.db.Exec(query,
		snapshot.ID, snapshot.DestinationID, snapshot.Date,
		dailyJSON, hourlyJSON, snapshot.IsFinal, snapshot.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert weather snapshot: %w", err)
	}

	return nil
}
