package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kashmirtrails/packages-backend/internal/models"
)

// BookingOutcome is the caller-facing result of a booking attempt. Every
// outcome is a legitimate terminal state, not a failure.
type BookingOutcome string

const (
	OutcomeAuthRequired         BookingOutcome = "authentication_required"
	OutcomeOwnershipConflict    BookingOutcome = "ownership_conflict"
	OutcomeVerificationRequired BookingOutcome = "verification_required"
	OutcomeKYCPending           BookingOutcome = "kyc_pending"
	OutcomeBooked               BookingOutcome = "booked"
)

// BookingDecision is the pure result of evaluating a booking attempt:
// the status the package should move to, the outcome to report, and whether
// the caller should be attached as owner.
type BookingDecision struct {
	Status     models.BookingStatus
	Outcome    BookingOutcome
	ClaimOwner bool
	Message    string
}

// EvaluateBooking derives the booking transition from the caller, their
// verification profile, and the package's current state. It is a pure
// function and idempotent: the same inputs always re-derive the same status.
func EvaluateBooking(callerID *uuid.UUID, profile *models.UserProfile, pkg *models.Package) BookingDecision {
	if callerID == nil {
		return BookingDecision{
			Status:  models.BookingStatusAwaitingAuth,
			Outcome: OutcomeAuthRequired,
			Message: "authentication required",
		}
	}

	if pkg.OwnerID != nil && *pkg.OwnerID != *callerID {
		return BookingDecision{
			Status:  pkg.BookingStatus,
			Outcome: OutcomeOwnershipConflict,
			Message: "package belongs to another user",
		}
	}

	claim := pkg.OwnerID == nil

	if profile == nil || !profile.PhoneVerified {
		return BookingDecision{
			Status:     models.BookingStatusAwaitingVerification,
			Outcome:    OutcomeVerificationRequired,
			ClaimOwner: claim,
			Message:    "phone verification required",
		}
	}

	if !profile.KYCVerified {
		return BookingDecision{
			Status:     models.BookingStatusPendingKYC,
			Outcome:    OutcomeKYCPending,
			ClaimOwner: claim,
			Message:    "KYC verification required, booking held",
		}
	}

	return BookingDecision{
		Status:     models.BookingStatusBooked,
		Outcome:    OutcomeBooked,
		ClaimOwner: claim,
		Message:    "package booked",
	}
}

// ProfileStore loads a caller's verification profile.
type ProfileStore interface {
	GetByUserID(userID uuid.UUID) (*models.UserProfile, error)
}

// bookingStateStore is the slice of the package store the workflow mutates.
type bookingStateStore interface {
	UpdateOwner(id, ownerID uuid.UUID) error
	UpdateBookingStatus(id uuid.UUID, status models.BookingStatus) error
}

// BookingService applies the pure booking transition to persisted state.
type BookingService struct {
	store    bookingStateStore
	profiles ProfileStore
	logger   *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(store bookingStateStore, profiles ProfileStore, logger *logrus.Logger) *BookingService {
	return &BookingService{store: store, profiles: profiles, logger: logger}
}

// Attempt evaluates and persists one booking attempt. A conflict outcome
// mutates nothing. The package value is updated in place to reflect the
// persisted state.
func (s *BookingService) Attempt(callerID *uuid.UUID, pkg *models.Package) (BookingDecision, error) {
	var profile *models.UserProfile
	if callerID != nil {
		var err error
		profile, err = s.profiles.GetByUserID(*callerID)
		if err != nil {
			return BookingDecision{}, fmt.Errorf("loading caller profile: %w", err)
		}
	}

	decision := EvaluateBooking(callerID, profile, pkg)
	if decision.Outcome == OutcomeOwnershipConflict {
		return decision, nil
	}

	if decision.ClaimOwner && callerID != nil {
		if err := s.store.UpdateOwner(pkg.ID, *callerID); err != nil {
			return BookingDecision{}, fmt.Errorf("claiming package ownership: %w", err)
		}
		ownerID := *callerID
		pkg.OwnerID = &ownerID
	}

	if decision.Status != pkg.BookingStatus {
		if err := s.store.UpdateBookingStatus(pkg.ID, decision.Status); err != nil {
			return BookingDecision{}, fmt.Errorf("persisting booking status: %w", err)
		}
		pkg.BookingStatus = decision.Status
	}

	s.logger.WithFields(logrus.Fields{
		"package_id": pkg.ID,
		"status":     decision.Status,
		"outcome":    decision.Outcome,
	}).Info("Booking attempt evaluated")

	return decision, nil
}
