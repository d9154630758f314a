package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/kashmirtrails/packages-backend/internal/models"
)

// ProfileRepository reads the verification profile of a user. User CRUD
// itself lives in the identity service; this subsystem only needs the
// verification tiers that gate a booking.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID returns a user's verification profile. Returns nil without
// error when no profile exists.
func (r *ProfileRepository) GetByUserID(userID uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	query := `
		SELECT user_id, phone, phone_verified, kyc_verified, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1`

	err := r.db.Get(&profile, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}

	return &profile, nil
}
