package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kashmirtrails/packages-backend/internal/database"
	"github.com/kashmirtrails/packages-backend/internal/models"
	"github.com/kashmirtrails/packages-backend/pkg/forecastapi"
	"github.com/kashmirtrails/packages-backend/pkg/hotelapi"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeCatalog is an in-memory CatalogStore.
type fakeCatalog struct {
	destinations []models.Destination
	buckets      map[uuid.UUID]models.PricingBucketRow
	routes       map[[2]uuid.UUID]models.RouteMatrixEntry
	cabs         []models.CabOption
	attractions  map[uuid.UUID][]models.Attraction
	restaurants  map[uuid.UUID][]models.Restaurant
	err          error
}

func (f *fakeCatalog) GetDestinationsByIDs(ids []uuid.UUID) ([]models.Destination, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Destination
	for _, d := range f.destinations {
		for _, id := range ids {
			if d.ID == id {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListDestinations() ([]models.Destination, error) {
	return f.destinations, f.err
}

func (f *fakeCatalog) GetPricingBucket(destinationID uuid.UUID, tier models.PriceTier) (*models.PricingBucketRow, error) {
	if row, ok := f.buckets[destinationID]; ok {
		return &row, nil
	}
	return nil, nil
}

func (f *fakeCatalog) GetRouteMatrixEntry(from, to uuid.UUID) (*models.RouteMatrixEntry, error) {
	if entry, ok := f.routes[[2]uuid.UUID{from, to}]; ok {
		return &entry, nil
	}
	return nil, nil
}

func (f *fakeCatalog) ListAvailableCabs(classes []string) ([]models.CabOption, error) {
	var out []models.CabOption
	for _, cab := range f.cabs {
		for _, class := range classes {
			if cab.CabClass == class && cab.Available {
				out = append(out, cab)
			}
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetCabByID(id uuid.UUID) (*models.CabOption, error) {
	for i := range f.cabs {
		if f.cabs[i].ID == id {
			cab := f.cabs[i]
			return &cab, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) ListPurchasableAttractions(destinationID uuid.UUID, category string) ([]models.Attraction, error) {
	return f.attractions[destinationID], nil
}

func (f *fakeCatalog) GetAttractionsByIDs(ids []uuid.UUID) ([]models.Attraction, error) {
	var out []models.Attraction
	for _, list := range f.attractions {
		for _, a := range list {
			for _, id := range ids {
				if a.ID == id {
					out = append(out, a)
				}
			}
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListRestaurants(destinationID uuid.UUID, priceRange string, limit int) ([]models.Restaurant, error) {
	list := f.restaurants[destinationID]
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// fakeWeather satisfies weatherCache.
type fakeWeather struct {
	mu        sync.Mutex
	calls     int
	snapshots map[string]*models.WeatherSnapshot // destID|date
	reason    string                             // returned when no snapshot
}

func (f *fakeWeather) GetForDate(ctx context.Context, destination models.Destination, date time.Time) (*models.WeatherSnapshot, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	key := destination.ID.String() + "|" + date.Format(models.WeatherDateFormat)
	if s, ok := f.snapshots[key]; ok {
		return s, ""
	}
	if f.reason != "" {
		return nil, f.reason
	}
	return nil, models.WeatherMissingBeyondHorizon
}

// fakeHotels satisfies hotelSourcer.
type fakeHotels struct {
	mu       sync.Mutex
	calls    int
	selected *models.HotelOption
	options  []models.HotelOption
}

func (f *fakeHotels) SourceDay(ctx context.Context, destination models.Destination, tier models.PriceTier, checkIn time.Time, partySize int, nightlyCap float64) (*models.HotelOption, []models.HotelOption) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.selected == nil {
		return nil, nil
	}
	selected := *f.selected
	return &selected, f.options
}

// fakePackageStore is an in-memory PackageStore recording mutations.
type fakePackageStore struct {
	mu             sync.Mutex
	packages       map[uuid.UUID]*models.Package
	cloneCounts    map[uuid.UUID]int
	createErr      error
	createCalls    int
	replacedIDs    []uuid.UUID
	legCostUpdates []database.LegCostUpdate
	statusUpdates  []models.BookingStatus
	ownerUpdates   []uuid.UUID
	totalsUpdates  int
	summaries      []models.PackageSummary
}

func newFakePackageStore() *fakePackageStore {
	return &fakePackageStore{
		packages:    make(map[uuid.UUID]*models.Package),
		cloneCounts: make(map[uuid.UUID]int),
	}
}

func (f *fakePackageStore) CreatePackage(pkg *models.Package) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	pkg.ID = uuid.New()
	for i := range pkg.Days {
		pkg.Days[i].ID = uuid.New()
		pkg.Days[i].PackageID = pkg.ID
	}
	for i := range pkg.Legs {
		pkg.Legs[i].ID = uuid.New()
		pkg.Legs[i].PackageID = pkg.ID
	}
	f.packages[pkg.ID] = pkg
	return nil
}

func (f *fakePackageStore) GetPackageByID(id uuid.UUID) (*models.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pkg, ok := f.packages[id]
	if !ok {
		return nil, nil
	}
	return pkg, nil
}

func (f *fakePackageStore) CountClones(id uuid.UUID) (int, error) {
	return f.cloneCounts[id], nil
}

func (f *fakePackageStore) ReplaceItinerary(pkg *models.Package) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replacedIDs = append(f.replacedIDs, pkg.ID)
	for i := range pkg.Days {
		if pkg.Days[i].ID == uuid.Nil {
			pkg.Days[i].ID = uuid.New()
		}
	}
	for i := range pkg.Legs {
		if pkg.Legs[i].ID == uuid.Nil {
			pkg.Legs[i].ID = uuid.New()
		}
	}
	f.packages[pkg.ID] = pkg
	return nil
}

func (f *fakePackageStore) UpdateHeaderTotals(id uuid.UUID, breakdown models.CostBreakdown, totalPrice, perPersonPrice float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totalsUpdates++
	return nil
}

func (f *fakePackageStore) UpdateCab(id uuid.UUID, cab *models.CabOption) error { return nil }

func (f *fakePackageStore) UpdateLegCabCosts(updates []database.LegCostUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.legCostUpdates = append(f.legCostUpdates, updates...)
	return nil
}

func (f *fakePackageStore) UpdateDayHotel(dayID uuid.UUID, hotel *models.HotelOption) error {
	return nil
}

func (f *fakePackageStore) ReplaceDayActivities(dayID uuid.UUID, activities []models.DayActivity) error {
	return nil
}

func (f *fakePackageStore) UpdateVisibility(id uuid.UUID, isPublic bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pkg, ok := f.packages[id]; ok {
		pkg.IsPublic = isPublic
	}
	return nil
}

func (f *fakePackageStore) UpdateOwner(id, ownerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ownerUpdates = append(f.ownerUpdates, ownerID)
	if pkg, ok := f.packages[id]; ok {
		owner := ownerID
		pkg.OwnerID = &owner
	}
	return nil
}

func (f *fakePackageStore) UpdateBookingStatus(id uuid.UUID, status models.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusUpdates = append(f.statusUpdates, status)
	if pkg, ok := f.packages[id]; ok {
		pkg.BookingStatus = status
	}
	return nil
}

func (f *fakePackageStore) ListSummariesByOwner(ownerID uuid.UUID, limit int) ([]models.PackageSummary, error) {
	return f.summaries, nil
}

// fakeProfiles satisfies ProfileStore.
type fakeProfiles struct {
	profiles map[uuid.UUID]*models.UserProfile
}

func (f *fakeProfiles) GetByUserID(userID uuid.UUID) (*models.UserProfile, error) {
	return f.profiles[userID], nil
}

// fakeAssembler satisfies packageAssembler and counts runs.
type fakeAssembler struct {
	mu    sync.Mutex
	calls int
	build func(params models.GenerationParams) (*models.Package, error)
}

func (f *fakeAssembler) Assemble(ctx context.Context, params models.GenerationParams) (*models.Package, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.build(params)
}

// fakeForecastProvider satisfies forecastProvider.
type fakeForecastProvider struct {
	mu     sync.Mutex
	calls  int
	window []forecastapi.ForecastDay
	err    error
}

func (f *fakeForecastProvider) FetchWindow(ctx context.Context, lat, lon float64, days int) ([]forecastapi.ForecastDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.window, f.err
}

// fakeSnapshotStore satisfies WeatherSnapshotStore.
type fakeSnapshotStore struct {
	mu        sync.Mutex
	snapshots map[string]*models.WeatherSnapshot
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{snapshots: make(map[string]*models.WeatherSnapshot)}
}

func (f *fakeSnapshotStore) GetSnapshot(destinationID uuid.UUID, date string) (*models.WeatherSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshots[destinationID.String()+"|"+date], nil
}

func (f *fakeSnapshotStore) UpsertSnapshot(snapshot *models.WeatherSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	f.snapshots[snapshot.DestinationID.String()+"|"+snapshot.Date] = snapshot
	return nil
}

// fakeHotelProvider satisfies hotelProvider with scripted stage results.
type fakeHotelProvider struct {
	mu           sync.Mutex
	searchCalls  []hotelapi.SearchParams
	offerCalls   []hotelapi.OfferParams
	searchResult func(params hotelapi.SearchParams) []hotelapi.Hotel
	offerResult  func(params hotelapi.OfferParams) []hotelapi.Offer
}

func (f *fakeHotelProvider) Search(ctx context.Context, params hotelapi.SearchParams) ([]hotelapi.Hotel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls = append(f.searchCalls, params)
	if f.searchResult == nil {
		return nil, nil
	}
	return f.searchResult(params), nil
}

func (f *fakeHotelProvider) Offers(ctx context.Context, params hotelapi.OfferParams) ([]hotelapi.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offerCalls = append(f.offerCalls, params)
	if f.offerResult == nil {
		return nil, nil
	}
	return f.offerResult(params), nil
}
