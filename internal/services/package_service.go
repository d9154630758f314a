package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kashmirtrails/packages-backend/internal/database"
	"github.com/kashmirtrails/packages-backend/internal/models"
)

// PopularCloneThreshold is the clone count at which a package is flagged
// popular.
const PopularCloneThreshold = 5

// historyLimit caps the history listing.
const historyLimit = 20

// Sentinel errors mapped to HTTP statuses by the handler layer.
var (
	ErrPackageNotFound = errors.New("package not found")
	ErrForbidden       = errors.New("access to this package is not allowed")
	ErrPackageBooked   = errors.New("booked packages cannot be modified")
	ErrDayNotFound     = errors.New("no itinerary day with that index")
	ErrHotelNotOffered = errors.New("hotel is not among the day's recorded options")
	ErrCabNotFound     = errors.New("cab not found")
)

// PackageStore is the persistence interface for package aggregates.
type PackageStore interface {
	CreatePackage(pkg *models.Package) error
	GetPackageByID(id uuid.UUID) (*models.Package, error)
	CountClones(id uuid.UUID) (int, error)
	ReplaceItinerary(pkg *models.Package) error
	UpdateHeaderTotals(id uuid.UUID, breakdown models.CostBreakdown, totalPrice, perPersonPrice float64) error
	UpdateCab(id uuid.UUID, cab *models.CabOption) error
	UpdateLegCabCosts(updates []database.LegCostUpdate) error
	UpdateDayHotel(dayID uuid.UUID, hotel *models.HotelOption) error
	ReplaceDayActivities(dayID uuid.UUID, activities []models.DayActivity) error
	UpdateVisibility(id uuid.UUID, isPublic bool) error
	UpdateOwner(id, ownerID uuid.UUID) error
	UpdateBookingStatus(id uuid.UUID, status models.BookingStatus) error
	ListSummariesByOwner(ownerID uuid.UUID, limit int) ([]models.PackageSummary, error)
}

// packageAssembler is satisfied by ItineraryService.
type packageAssembler interface {
	Assemble(ctx context.Context, params models.GenerationParams) (*models.Package, error)
}

// PackageService drives the package lifecycle: generation with
// deduplication, reads with access control, configuration updates,
// rescheduling, cloning, booking, and history.
type PackageService struct {
	store     PackageStore
	catalog   CatalogStore
	assembler packageAssembler
	dedup     *DedupService
	booking   *BookingService
	logger    *logrus.Logger
}

// NewPackageService creates a new PackageService
func NewPackageService(store PackageStore, catalog CatalogStore, assembler packageAssembler, dedup *DedupService, booking *BookingService, logger *logrus.Logger) *PackageService {
	return &PackageService{
		store:     store,
		catalog:   catalog,
		assembler: assembler,
		dedup:     dedup,
		booking:   booking,
		logger:    logger,
	}
}

// Generate validates the request, coalesces it with identical in-flight
// requests, assembles the itinerary and persists it best-effort. A
// persistence failure is logged and leaves the returned package without a
// durable ID rather than failing the call.
func (s *PackageService) Generate(ctx context.Context, req *models.GeneratePackageRequest, callerID *uuid.UUID) (*models.Package, []string, error) {
	if violations := req.Validate(time.Now()); len(violations) > 0 {
		return nil, violations, nil
	}

	params := req.Params(req.ResolvedStartDate(time.Now()))

	pkg, err := s.dedup.Do(Fingerprint(params), func() (*models.Package, error) {
		assembled, err := s.assembler.Assemble(ctx, params)
		if err != nil {
			return nil, err
		}
		if callerID != nil {
			ownerID := *callerID
			assembled.OwnerID = &ownerID
		}
		s.persistBestEffort(assembled)
		return assembled, nil
	})
	if err != nil {
		return nil, nil, err
	}

	return pkg, nil, nil
}

func (s *PackageService) persistBestEffort(pkg *models.Package) {
	if err := s.store.CreatePackage(pkg); err != nil {
		s.logger.WithFields(logrus.Fields{
			"title": pkg.Title,
			"error": err.Error(),
		}).Error("Failed to persist generated package")
		pkg.ID = uuid.Nil
	}
}

// Get loads a package, enforcing that it is public or owned by the caller,
// and decorates it with clone statistics and optional add-on attractions.
func (s *PackageService) Get(ctx context.Context, id uuid.UUID, callerID *uuid.UUID) (*models.Package, error) {
	pkg, err := s.store.GetPackageByID(id)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, ErrPackageNotFound
	}

	if !pkg.IsPublic && (callerID == nil || !pkg.IsOwnedBy(*callerID)) {
		return nil, ErrForbidden
	}

	count, err := s.store.CountClones(id)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"package_id": id,
			"error":      err.Error(),
		}).Warn("Clone count lookup failed")
	} else {
		pkg.CloneCount = count
		pkg.IsPopular = count >= PopularCloneThreshold
	}

	s.attachAddOns(pkg)

	return pkg, nil
}

// attachAddOns recomputes the optional attractions not already scheduled.
func (s *PackageService) attachAddOns(pkg *models.Package) {
	if !pkg.Params.IncludeAttractions {
		return
	}

	scheduled := make(map[uuid.UUID]bool)
	for i := range pkg.Days {
		for _, a := range pkg.Days[i].Activities {
			scheduled[a.AttractionID] = true
		}
	}

	for i := range pkg.Days {
		attractions, err := s.catalog.ListPurchasableAttractions(pkg.Days[i].DestinationID, pkg.Params.ActivityCategory)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"destination_id": pkg.Days[i].DestinationID,
				"error":          err.Error(),
			}).Warn("Add-on attraction lookup failed")
			continue
		}
		for _, a := range attractions {
			if !scheduled[a.ID] {
				pkg.AddOns = append(pkg.AddOns, a)
			}
		}
	}
}

// Update applies a configuration patch. A patch carrying a start date is a
// full reschedule: the itinerary is regenerated from the original parameters
// and replaced, then remaining patch fields are re-applied best-effort.
// Booked packages reject every update.
func (s *PackageService) Update(ctx context.Context, id uuid.UUID, callerID *uuid.UUID, req *models.UpdatePackageRequest) (*models.Package, error) {
	pkg, err := s.store.GetPackageByID(id)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, ErrPackageNotFound
	}
	if pkg.BookingStatus.IsBooked() {
		return nil, ErrPackageBooked
	}
	if pkg.OwnerID != nil && (callerID == nil || !pkg.IsOwnedBy(*callerID)) {
		return nil, ErrForbidden
	}
	if req.IsEmpty() {
		return pkg, nil
	}

	if req.IsReschedule() {
		if pkg, err = s.reschedule(ctx, pkg, *req.StartDate); err != nil {
			return nil, err
		}
		// Remaining patch fields re-apply best-effort on the fresh
		// itinerary; a stale day index or hotel ID is skipped, not fatal.
		if err := s.applyTargetedEdits(pkg, req, true); err != nil {
			return nil, err
		}
		return pkg, nil
	}

	if err := s.applyTargetedEdits(pkg, req, false); err != nil {
		return nil, err
	}
	return pkg, nil
}

// reschedule regenerates the itinerary at a new start date and atomically
// replaces the persisted rows, preserving identity, ownership, status and
// clone provenance.
func (s *PackageService) reschedule(ctx context.Context, pkg *models.Package, startDate string) (*models.Package, error) {
	if _, err := time.Parse(models.WeatherDateFormat, startDate); err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}

	params := pkg.Params
	params.StartDate = startDate

	fresh, err := s.assembler.Assemble(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("rescheduling package: %w", err)
	}

	fresh.ID = pkg.ID
	fresh.OwnerID = pkg.OwnerID
	fresh.BookingStatus = pkg.BookingStatus
	fresh.IsPublic = pkg.IsPublic
	fresh.Metadata.ClonedFrom = pkg.Metadata.ClonedFrom
	fresh.CreatedAt = pkg.CreatedAt

	if err := s.store.ReplaceItinerary(fresh); err != nil {
		return nil, fmt.Errorf("persisting reschedule: %w", err)
	}

	return fresh, nil
}

// applyTargetedEdits handles the non-reschedule patch fields: cab swap, per-
// day hotel swap, per-day activity replacement and visibility. In best-effort
// mode unknown references are logged and skipped instead of failing.
func (s *PackageService) applyTargetedEdits(pkg *models.Package, req *models.UpdatePackageRequest, bestEffort bool) error {
	repriced := false

	if req.CabID != nil {
		if err := s.swapCab(pkg, *req.CabID, bestEffort); err != nil {
			return err
		}
		repriced = true
	}

	for _, override := range req.HotelOverrides {
		changed, err := s.swapDayHotel(pkg, override, bestEffort)
		if err != nil {
			return err
		}
		repriced = repriced || changed
	}

	for _, override := range req.ActivityOverrides {
		changed, err := s.replaceDayActivities(pkg, override, bestEffort)
		if err != nil {
			return err
		}
		repriced = repriced || changed
	}

	if req.IsPublic != nil {
		if err := s.store.UpdateVisibility(pkg.ID, *req.IsPublic); err != nil {
			return fmt.Errorf("updating visibility: %w", err)
		}
		pkg.IsPublic = *req.IsPublic
	}

	if repriced {
		return s.persistTotals(pkg)
	}
	return nil
}

func (s *PackageService) swapCab(pkg *models.Package, cabID uuid.UUID, bestEffort bool) error {
	cab, err := s.catalog.GetCabByID(cabID)
	if err != nil {
		return fmt.Errorf("loading cab: %w", err)
	}
	if cab == nil {
		if bestEffort {
			s.logger.WithField("cab_id", cabID).Warn("Skipping cab override, cab not found")
			return nil
		}
		return ErrCabNotFound
	}

	pkg.Cab = cab
	updates := make([]database.LegCostUpdate, 0, len(pkg.Legs))
	for i := range pkg.Legs {
		pkg.Legs[i].CabCost = LegCost(&pkg.Legs[i], cab)
		updates = append(updates, database.LegCostUpdate{LegID: pkg.Legs[i].ID, CabCost: pkg.Legs[i].CabCost})
	}

	if err := s.store.UpdateCab(pkg.ID, cab); err != nil {
		return fmt.Errorf("persisting cab swap: %w", err)
	}
	if err := s.store.UpdateLegCabCosts(updates); err != nil {
		return fmt.Errorf("persisting leg repricing: %w", err)
	}
	return nil
}

func (s *PackageService) swapDayHotel(pkg *models.Package, override models.DayHotelOverride, bestEffort bool) (bool, error) {
	day := dayByIndex(pkg, override.DayIndex)
	if day == nil {
		if bestEffort {
			s.logger.WithField("day_index", override.DayIndex).Warn("Skipping hotel override, day index not present")
			return false, nil
		}
		return false, ErrDayNotFound
	}

	var selected *models.HotelOption
	for i := range day.HotelOptions {
		if day.HotelOptions[i].HotelID == override.HotelID {
			selected = &day.HotelOptions[i]
			break
		}
	}
	if selected == nil {
		if bestEffort {
			s.logger.WithFields(logrus.Fields{
				"day_index": override.DayIndex,
				"hotel_id":  override.HotelID,
			}).Warn("Skipping hotel override, hotel not among day's options")
			return false, nil
		}
		return false, ErrHotelNotOffered
	}

	day.Hotel = selected
	if err := s.store.UpdateDayHotel(day.ID, selected); err != nil {
		return false, fmt.Errorf("persisting hotel swap: %w", err)
	}
	return true, nil
}

func (s *PackageService) replaceDayActivities(pkg *models.Package, override models.DayActivityOverride, bestEffort bool) (bool, error) {
	day := dayByIndex(pkg, override.DayIndex)
	if day == nil {
		if bestEffort {
			s.logger.WithField("day_index", override.DayIndex).Warn("Skipping activity override, day index not present")
			return false, nil
		}
		return false, ErrDayNotFound
	}

	attractions, err := s.catalog.GetAttractionsByIDs(override.AttractionIDs)
	if err != nil {
		return false, fmt.Errorf("resolving attractions: %w", err)
	}

	activities := make([]models.DayActivity, 0, len(attractions))
	for _, attraction := range attractions {
		activities = append(activities, priceActivity(attraction, pkg.PartySize))
	}

	day.Activities = activities
	if err := s.store.ReplaceDayActivities(day.ID, activities); err != nil {
		return false, fmt.Errorf("persisting activity replacement: %w", err)
	}
	return true, nil
}

// persistTotals recomputes the breakdown from the in-memory rows and writes
// the derived totals.
func (s *PackageService) persistTotals(pkg *models.Package) error {
	var breakdown models.CostBreakdown
	for i := range pkg.Days {
		breakdown.Accommodation += pkg.Days[i].AccommodationCost()
		breakdown.Transport += pkg.Days[i].TransportCost
		breakdown.Activities += pkg.Days[i].ActivityCost()
	}
	for i := range pkg.Legs {
		breakdown.Cab += pkg.Legs[i].CabCost
	}

	pkg.Breakdown = breakdown
	pkg.TotalPrice = breakdown.Total()
	if pkg.PartySize > 0 {
		pkg.PerPersonPrice = pkg.TotalPrice / float64(pkg.PartySize)
	}

	if err := s.store.UpdateHeaderTotals(pkg.ID, breakdown, pkg.TotalPrice, pkg.PerPersonPrice); err != nil {
		return fmt.Errorf("persisting totals: %w", err)
	}
	return nil
}

func dayByIndex(pkg *models.Package, index int) *models.PackageDay {
	for i := range pkg.Days {
		if pkg.Days[i].DayIndex == index {
			return &pkg.Days[i]
		}
	}
	return nil
}

// Clone regenerates a package from its original parameters at a new start
// date, recording provenance. The source must be public or owned by the
// caller.
func (s *PackageService) Clone(ctx context.Context, sourceID uuid.UUID, callerID *uuid.UUID, startDate string) (*models.Package, error) {
	source, err := s.store.GetPackageByID(sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, ErrPackageNotFound
	}
	if !source.IsPublic && (callerID == nil || !source.IsOwnedBy(*callerID)) {
		return nil, ErrForbidden
	}
	if _, err := time.Parse(models.WeatherDateFormat, startDate); err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}

	params := source.Params
	params.StartDate = startDate

	clone, err := s.assembler.Assemble(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("cloning package: %w", err)
	}

	src := sourceID
	clone.Metadata.ClonedFrom = &src
	if callerID != nil {
		ownerID := *callerID
		clone.OwnerID = &ownerID
	}

	s.persistBestEffort(clone)

	return clone, nil
}

// Book applies optional same-call configuration and then runs the booking
// workflow. Overrides apply only for an authenticated caller with access to
// the package; an anonymous or conflicting attempt mutates no configuration.
func (s *PackageService) Book(ctx context.Context, id uuid.UUID, callerID *uuid.UUID, req *models.BookPackageRequest) (*models.Package, BookingDecision, error) {
	pkg, err := s.store.GetPackageByID(id)
	if err != nil {
		return nil, BookingDecision{}, err
	}
	if pkg == nil {
		return nil, BookingDecision{}, ErrPackageNotFound
	}

	if callerID != nil && pkg.OwnerID != nil && !pkg.IsOwnedBy(*callerID) {
		return pkg, BookingDecision{
			Status:  pkg.BookingStatus,
			Outcome: OutcomeOwnershipConflict,
			Message: "package belongs to another user",
		}, nil
	}

	if req != nil && callerID != nil && !pkg.BookingStatus.IsBooked() {
		patch := &models.UpdatePackageRequest{
			CabID:             req.CabID,
			HotelOverrides:    req.HotelOverrides,
			ActivityOverrides: req.ActivityOverrides,
		}
		if !patch.IsEmpty() {
			if err := s.applyTargetedEdits(pkg, patch, true); err != nil {
				return nil, BookingDecision{}, err
			}
		}
	}

	decision, err := s.booking.Attempt(callerID, pkg)
	if err != nil {
		return nil, BookingDecision{}, err
	}

	return pkg, decision, nil
}

// History lists the caller's most recent packages.
func (s *PackageService) History(callerID uuid.UUID) ([]models.PackageSummary, error) {
	return s.store.ListSummariesByOwner(callerID, historyLimit)
}
