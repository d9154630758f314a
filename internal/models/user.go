package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is the slice of a user record the booking workflow needs:
// contact phone plus the two verification tiers gating a booking.
type UserProfile struct {
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Phone         string    `json:"phone" db:"phone"`
	PhoneVerified bool      `json:"phone_verified" db:"phone_verified"`
	KYCVerified   bool      `json:"kyc_verified" db:"kyc_verified"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
