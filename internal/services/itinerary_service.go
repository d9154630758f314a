package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kashmirtrails/packages-backend/internal/config"
	"github.com/kashmirtrails/packages-backend/internal/models"
)

// maxIncludedAttractions caps auto-included paid activities per day; the rest
// become optional add-ons.
const maxIncludedAttractions = 3

// maxRestaurantSuggestions caps dining suggestions per day.
const maxRestaurantSuggestions = 3

// CatalogStore is the destination catalog access the assembler uses.
type CatalogStore interface {
	GetDestinationsByIDs(ids []uuid.UUID) ([]models.Destination, error)
	GetPricingBucket(destinationID uuid.UUID, tier models.PriceTier) (*models.PricingBucketRow, error)
	GetRouteMatrixEntry(from, to uuid.UUID) (*models.RouteMatrixEntry, error)
	ListAvailableCabs(classes []string) ([]models.CabOption, error)
	GetCabByID(id uuid.UUID) (*models.CabOption, error)
	ListPurchasableAttractions(destinationID uuid.UUID, category string) ([]models.Attraction, error)
	GetAttractionsByIDs(ids []uuid.UUID) ([]models.Attraction, error)
	ListRestaurants(destinationID uuid.UUID, priceRange string, limit int) ([]models.Restaurant, error)
}

// weatherCache is satisfied by WeatherService.
type weatherCache interface {
	GetForDate(ctx context.Context, destination models.Destination, date time.Time) (*models.WeatherSnapshot, string)
}

// hotelSourcer is satisfied by HotelSourcingService.
type hotelSourcer interface {
	SourceDay(ctx context.Context, destination models.Destination, tier models.PriceTier, checkIn time.Time, partySize int, nightlyCap float64) (*models.HotelOption, []models.HotelOption)
}

// ItineraryService assembles a fully priced package from a validated
// generation request. Per-day facet lookups run concurrently; any single
// facet failing degrades to an empty value rather than failing the package.
type ItineraryService struct {
	catalog CatalogStore
	weather weatherCache
	hotels  hotelSourcer
	cfg     config.EngineConfig
	logger  *logrus.Logger
}

// NewItineraryService creates a new ItineraryService
func NewItineraryService(catalog CatalogStore, weather weatherCache, hotels hotelSourcer, cfg config.EngineConfig, logger *logrus.Logger) *ItineraryService {
	return &ItineraryService{
		catalog: catalog,
		weather: weather,
		hotels:  hotels,
		cfg:     cfg,
		logger:  logger,
	}
}

// Assemble builds an unpersisted package for the request. The only hard
// failures are an unresolvable destination list; every sub-fetch failure
// degrades the affected facet instead.
func (s *ItineraryService) Assemble(ctx context.Context, params models.GenerationParams) (*models.Package, error) {
	destinations, err := s.orderedDestinations(params.DestinationIDs)
	if err != nil {
		return nil, err
	}

	startDate, err := time.Parse(models.WeatherDateFormat, params.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", params.StartDate, err)
	}

	pkg := &models.Package{
		Title:         buildTitle(destinations),
		StartDate:     startDate,
		PartySize:     params.PartySize,
		Tier:          params.Tier,
		Currency:      s.cfg.Currency,
		BookingStatus: models.BookingStatusUnset,
		Params:        params,
		Days:          make([]models.PackageDay, len(destinations)),
	}

	var (
		mu          sync.Mutex
		missingDays []models.MissingWeatherDay
		addOns      []models.Attraction
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.DayWorkerLimit)

	for i, destination := range destinations {
		i, destination := i, destination
		g.Go(func() error {
			day, missing, extras := s.buildDay(gCtx, destination, i, startDate.AddDate(0, 0, i), params)
			mu.Lock()
			pkg.Days[i] = day
			if missing != nil {
				missingDays = append(missingDays, *missing)
			}
			addOns = append(addOns, extras...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(missingDays, func(i, j int) bool { return missingDays[i].DayIndex < missingDays[j].DayIndex })
	pkg.Metadata.WeatherNullDays = missingDays
	pkg.AddOns = addOns

	s.buildLegs(pkg, destinations)
	s.selectCab(pkg)
	s.priceLegs(pkg)
	s.recomputeTotals(pkg)

	return pkg, nil
}

// orderedDestinations resolves the requested IDs preserving caller order,
// except a hub destination is always pinned to the first day.
func (s *ItineraryService) orderedDestinations(ids []uuid.UUID) ([]models.Destination, error) {
	found, err := s.catalog.GetDestinationsByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("resolving destinations: %w", err)
	}

	byID := make(map[uuid.UUID]models.Destination, len(found))
	for _, d := range found {
		byID[d.ID] = d
	}

	ordered := make([]models.Destination, 0, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			ordered = append(ordered, d)
		}
	}
	if len(ordered) == 0 {
		return nil, fmt.Errorf("none of the requested destinations exist")
	}

	for i, d := range ordered {
		if d.IsHub && i > 0 {
			hub := ordered[i]
			copy(ordered[1:i+1], ordered[0:i])
			ordered[0] = hub
			break
		}
	}

	return ordered, nil
}

// buildDay resolves every facet of one itinerary day. Facet failures degrade
// to empty values.
func (s *ItineraryService) buildDay(ctx context.Context, destination models.Destination, index int, date time.Time, params models.GenerationParams) (models.PackageDay, *models.MissingWeatherDay, []models.Attraction) {
	day := models.PackageDay{
		DayIndex:        index,
		Date:            date,
		Title:           destination.Name,
		DestinationID:   destination.ID,
		DestinationName: destination.Name,
		AltitudeM:       destination.AltitudeM,
	}

	var nightlyCap float64
	bucket, err := s.catalog.GetPricingBucket(destination.ID, params.Tier)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"destination": destination.Name,
			"tier":        params.Tier,
			"error":       err.Error(),
		}).Warn("Pricing bucket lookup failed")
	}
	if bucket != nil {
		nightlyCap = bucket.AccommodationPrice
		day.TransportCost = bucket.TransportPrice * float64(params.PartySize)
	}

	var missing *models.MissingWeatherDay
	if snapshot, reason := s.weather.GetForDate(ctx, destination, date); reason != "" {
		missing = &models.MissingWeatherDay{
			DayIndex:      index,
			DestinationID: destination.ID,
			Date:          date.Format(models.WeatherDateFormat),
			Reason:        reason,
		}
	} else {
		day.Weather = snapshot
	}

	day.Hotel, day.HotelOptions = s.hotels.SourceDay(ctx, destination, params.Tier, date, params.PartySize, nightlyCap)

	restaurants, err := s.catalog.ListRestaurants(destination.ID, params.Tier.RestaurantPriceRange(), maxRestaurantSuggestions)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"destination": destination.Name,
			"error":       err.Error(),
		}).Warn("Restaurant lookup failed")
	}
	day.Restaurants = restaurants

	var addOns []models.Attraction
	if params.IncludeAttractions {
		attractions, err := s.catalog.ListPurchasableAttractions(destination.ID, params.ActivityCategory)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"destination": destination.Name,
				"error":       err.Error(),
			}).Warn("Attraction lookup failed")
		}
		for i, attraction := range attractions {
			if i < maxIncludedAttractions {
				day.Activities = append(day.Activities, priceActivity(attraction, params.PartySize))
			} else {
				addOns = append(addOns, attraction)
			}
		}
	}

	return day, missing, addOns
}

// priceActivity applies the attraction's pricing model.
func priceActivity(attraction models.Attraction, partySize int) models.DayActivity {
	var cost float64
	switch attraction.PricingType {
	case models.AttractionPricingFree:
		cost = 0
	case models.AttractionPricingPerPerson:
		cost = attraction.BasePrice * float64(partySize)
	default:
		cost = attraction.BasePrice
	}

	return models.DayActivity{
		AttractionID: attraction.ID,
		Name:         attraction.Name,
		PricingType:  attraction.PricingType,
		BasePrice:    attraction.BasePrice,
		Cost:         cost,
	}
}

// buildLegs creates one leg per consecutive destination pair. A missing route
// matrix entry yields a leg with unknown distance and zero cab cost.
func (s *ItineraryService) buildLegs(pkg *models.Package, destinations []models.Destination) {
	for i := 1; i < len(destinations); i++ {
		leg := models.PackageLeg{
			Position:          i - 1,
			FromDestinationID: destinations[i-1].ID,
			ToDestinationID:   destinations[i].ID,
		}

		entry, err := s.catalog.GetRouteMatrixEntry(destinations[i-1].ID, destinations[i].ID)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"from":  destinations[i-1].Name,
				"to":    destinations[i].Name,
				"error": err.Error(),
			}).Warn("Route matrix lookup failed")
		}
		if entry != nil {
			distance, duration := entry.DistanceKm, entry.DurationMin
			leg.DistanceKm = &distance
			leg.DurationMin = &duration
		}

		pkg.Legs = append(pkg.Legs, leg)
	}
}

// CabClassForPartySize maps the party size onto the smallest class that fits.
func CabClassForPartySize(partySize int) string {
	switch {
	case partySize >= 7:
		return models.CabClassTempoTraveller
	case partySize >= 4:
		return models.CabClassSUV
	default:
		return models.CabClassSedan
	}
}

// selectCab picks an available cab of the class implied by party size, using
// the tier's ordering preference.
func (s *ItineraryService) selectCab(pkg *models.Package) {
	class := CabClassForPartySize(pkg.PartySize)

	cabs, err := s.catalog.ListAvailableCabs([]string{class})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"cab_class": class,
			"error":     err.Error(),
		}).Warn("Cab inventory lookup failed")
		return
	}
	if len(cabs) == 0 {
		return
	}

	RankCabs(cabs, pkg.Tier)
	pkg.Cab = &cabs[0]
}

// RankCabs orders cabs in place by the tier's selection preference: budget
// wants the cheapest, premium the newest, optimal the cheapest breaking ties
// by newness.
func RankCabs(cabs []models.CabOption, tier models.PriceTier) {
	sort.Slice(cabs, func(i, j int) bool {
		a, b := cabs[i], cabs[j]
		switch tier {
		case models.TierPremium:
			if a.ModelYear != b.ModelYear {
				return a.ModelYear > b.ModelYear
			}
			return a.PerKmRate < b.PerKmRate
		case models.TierOptimal:
			if a.PerKmRate != b.PerKmRate {
				return a.PerKmRate < b.PerKmRate
			}
			return a.ModelYear > b.ModelYear
		default:
			return a.PerKmRate < b.PerKmRate
		}
	})
}

// priceLegs prices each leg from the selected cab's per-km rate.
func (s *ItineraryService) priceLegs(pkg *models.Package) {
	for i := range pkg.Legs {
		pkg.Legs[i].CabCost = LegCost(&pkg.Legs[i], pkg.Cab)
	}
}

// LegCost prices one leg. Unknown distance or no cab prices to zero.
func LegCost(leg *models.PackageLeg, cab *models.CabOption) float64 {
	if leg.DistanceKm == nil || cab == nil {
		return 0
	}
	return *leg.DistanceKm * cab.PerKmRate
}

// recomputeTotals derives the breakdown and totals from the itinerary rows.
func (s *ItineraryService) recomputeTotals(pkg *models.Package) {
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
	pkg.PerPersonPrice = pkg.TotalPrice / float64(pkg.PartySize)
}

func buildTitle(destinations []models.Destination) string {
	names := make([]string, 0, len(destinations))
	for _, d := range destinations {
		names = append(names, d.Name)
	}
	if len(names) > 3 {
		names = append(names[:3], "more")
	}
	return fmt.Sprintf("%d-Day %s Trip", len(destinations), strings.Join(names, ", "))
}
