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

// PackageRepository persists generated itineraries in normalized form:
// a package header plus day, leg, activity and restaurant rows.
type PackageRepository struct {
	db *sqlx.DB
}

// NewPackageRepository creates a new PackageRepository
func NewPackageRepository(db *sqlx.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

// LegCostUpdate carries the re-priced cab cost for one leg.
type LegCostUpdate struct {
	LegID   uuid.UUID
	CabCost float64
}

// CreatePackage inserts the package header and all normalized child rows in
// one transaction. IDs are assigned here.
func (r *PackageRepository) CreatePackage(pkg *models.Package) error {
	pkg.ID = uuid.New()
	pkg.CreatedAt = time.Now().UTC()
	pkg.UpdatedAt = pkg.CreatedAt

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.insertHeader(tx, pkg); err != nil {
		return err
	}
	if err := r.insertItinerary(tx, pkg); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit package: %w", err)
	}

	return nil
}

func (r *PackageRepository) insertHeader(tx *sqlx.Tx, pkg *models.Package) error {
	metadataJSON, err := json.Marshal(pkg.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	paramsJSON, err := json.Marshal(pkg.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal generation params: %w", err)
	}
	var cabJSON interface{}
	if pkg.Cab != nil {
		cabJSON, err = json.Marshal(pkg.Cab)
		if err != nil {
			return fmt.Errorf("failed to marshal cab: %w", err)
		}
	}

	query := `
		INSERT INTO packages (
			id, title, start_date, party_size, tier, cab,
			accommodation_cost, transport_cost, activities_cost, cab_cost,
			total_price, per_person_price, currency,
			owner_id, booking_status, is_public, metadata, generation_params,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)`

	_, err = tx.Exec(query,
		pkg.ID, pkg.Title, pkg.StartDate, pkg.PartySize, pkg.Tier, cabJSON,
		pkg.Breakdown.Accommodation, pkg.Breakdown.Transport, pkg.Breakdown.Activities, pkg.Breakdown.Cab,
		pkg.TotalPrice, pkg.PerPersonPrice, pkg.Currency,
		pkg.OwnerID, pkg.BookingStatus, pkg.IsPublic, metadataJSON, paramsJSON,
		pkg.CreatedAt, pkg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert package header: %w", err)
	}

	return nil
}

func (r *PackageRepository) insertItinerary(tx *sqlx.Tx, pkg *models.Package) error {
	dayQuery := `
		INSERT INTO package_days (
			id, package_id, day_index, date, title,
			destination_id, destination_name, altitude_m,
			hotel, hotel_options, transport_cost, weather_snapshot_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	activityQuery := `
		INSERT INTO package_day_activities (
			id, day_id, attraction_id, name, pricing_type, base_price, cost, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	restaurantQuery := `
		INSERT INTO package_day_restaurants (day_id, restaurant_id, position)
		VALUES ($1, $2, $3)`

	for i := range pkg.Days {
		day := &pkg.Days[i]
		if day.ID == uuid.Nil {
			day.ID = uuid.New()
		}
		day.PackageID = pkg.ID

		var hotelJSON, optionsJSON interface{}
		var err error
		if day.Hotel != nil {
			hotelJSON, err = json.Marshal(day.Hotel)
			if err != nil {
				return fmt.Errorf("failed to marshal hotel for day %d: %w", day.DayIndex, err)
			}
		}
		if len(day.HotelOptions) > 0 {
			optionsJSON, err = json.Marshal(day.HotelOptions)
			if err != nil {
				return fmt.Errorf("failed to marshal hotel options for day %d: %w", day.DayIndex, err)
			}
		}

		var snapshotID interface{}
		if day.Weather != nil && day.Weather.ID != uuid.Nil {
			snapshotID = day.Weather.ID
		}

		_, err = tx.Exec(dayQuery,
			day.ID, pkg.ID, day.DayIndex, day.Date, day.Title,
			day.DestinationID, day.DestinationName, day.AltitudeM,
			hotelJSON, optionsJSON, day.TransportCost, snapshotID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert day %d: %w", day.DayIndex, err)
		}

		for pos, activity := range day.Activities {
			_, err = tx.Exec(activityQuery,
				uuid.New(), day.ID, activity.AttractionID, activity.Name,
				activity.PricingType, activity.BasePrice, activity.Cost, pos,
			)
			if err != nil {
				return fmt.Errorf("failed to insert activity for day %d: %w", day.DayIndex, err)
			}
		}

		for pos, restaurant := range day.Restaurants {
			_, err = tx.Exec(restaurantQuery, day.ID, restaurant.ID, pos)
			if err != nil {
				return fmt.Errorf("failed to insert restaurant ref for day %d: %w", day.DayIndex, err)
			}
		}
	}

	legQuery := `
		INSERT INTO package_legs (
			id, package_id, position, from_destination_id, to_destination_id,
			distance_km, duration_min, cab_cost
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for i := range pkg.Legs {
		leg := &pkg.Legs[i]
		if leg.ID == uuid.Nil {
			leg.ID = uuid.New()
		}
		leg.PackageID = pkg.ID

		_, err := tx.Exec(legQuery,
			leg.ID, pkg.ID, leg.Position, leg.FromDestinationID, leg.ToDestinationID,
			leg.DistanceKm, leg.DurationMin, leg.CabCost,
		)
		if err != nil {
			return fmt.Errorf("failed to insert leg %d: %w", leg.Position, err)
		}
	}

	return nil
}

// GetPackageByID reconstructs a full package with days ordered by day index.
// Returns nil without error when the package does not exist.
func (r *PackageRepository) GetPackageByID(id uuid.UUID) (*models.Package, error) {
	pkg, err := r.getHeader(id)
	if err != nil || pkg == nil {
		return pkg, err
	}

	if err := r.loadDays(pkg); err != nil {
		return nil, err
	}
	if err := r.loadLegs(pkg); err != nil {
		return nil, err
	}

	return pkg, nil
}

func (r *PackageRepository) getHeader(id uuid.UUID) (*models.Package, error) {
	var (
		pkg                              models.Package
		cabJSON, metadataJSON, paramsJSON []byte
	)

	query := `
		SELECT id, title, start_date, party_size, tier, cab,
		       accommodation_cost, transport_cost, activities_cost, cab_cost,
		       total_price, per_person_price, currency,
		       owner_id, booking_status, is_public, metadata, generation_params,
		       created_at, updated_at
		FROM packages
		WHERE id = $1`

	err := r.db.QueryRow(query, id).Scan(
		&pkg.ID, &pkg.Title, &pkg.StartDate, &pkg.PartySize, &pkg.Tier, &cabJSON,
		&pkg.Breakdown.Accommodation, &pkg.Breakdown.Transport, &pkg.Breakdown.Activities, &pkg.Breakdown.Cab,
		&pkg.TotalPrice, &pkg.PerPersonPrice, &pkg.Currency,
		&pkg.OwnerID, &pkg.BookingStatus, &pkg.IsPublic, &metadataJSON, &paramsJSON,
		&pkg.CreatedAt, &pkg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch package header: %w", err)
	}

	if len(cabJSON) > 0 {
		pkg.Cab = &models.CabOption{}
		if err := json.Unmarshal(cabJSON, pkg.Cab); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cab: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &pkg.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &pkg.Params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal generation params: %w", err)
		}
	}

	return &pkg, nil
}

func (r *PackageRepository) loadDays(pkg *models.Package) error {
	dayQuery := `
		SELECT d.id, d.day_index, d.date, d.title,
		       d.destination_id, d.destination_name, d.altitude_m,
		       d.hotel, d.hotel_options, d.transport_cost,
		       w.id, w.destination_id, w.date, w.daily, w.hourly, w.is_final, w.fetched_at
		FROM package_days d
		LEFT JOIN weather_snapshots w ON w.id = d.weather_snapshot_id
		WHERE d.package_id = $1
		ORDER BY d.day_index ASC`

	rows, err := r.db.Query(dayQuery, pkg.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch package days: %w", err)
	}
	defer rows.Close()

	dayByID := make(map[uuid.UUID]*models.PackageDay)
	for rows.Next() {
		var (
			day                    models.PackageDay
			hotelJSON, optionsJSON []byte
			wID, wDestID           *uuid.UUID
			wDate                  sql.NullString
			wDaily, wHourly        []byte
			wFinal                 sql.NullBool
			wFetchedAt             sql.NullTime
		)

		err := rows.Scan(
			&day.ID, &day.DayIndex, &day.Date, &day.Title,
			&day.DestinationID, &day.DestinationName, &day.AltitudeM,
			&hotelJSON, &optionsJSON, &day.TransportCost,
			&wID, &wDestID, &wDate, &wDaily, &wHourly, &wFinal, &wFetchedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan package day: %w", err)
		}

		day.PackageID = pkg.ID

		if len(hotelJSON) > 0 {
			day.Hotel = &models.HotelOption{}
			if err := json.Unmarshal(hotelJSON, day.Hotel); err != nil {
				return fmt.Errorf("failed to unmarshal hotel for day %d: %w", day.DayIndex, err)
			}
		}
		if len(optionsJSON) > 0 {
			if err := json.Unmarshal(optionsJSON, &day.HotelOptions); err != nil {
				return fmt.Errorf("failed to unmarshal hotel options for day %d: %w", day.DayIndex, err)
			}
		}

		if wID != nil {
			snapshot := models.WeatherSnapshot{
				ID:            *wID,
				DestinationID: *wDestID,
				Date:          wDate.String,
				IsFinal:       wFinal.Bool,
				FetchedAt:     wFetchedAt.Time,
			}
			if len(wDaily) > 0 {
				if err := json.Unmarshal(wDaily, &snapshot.Daily); err != nil {
					return fmt.Errorf("failed to unmarshal daily forecast: %w", err)
				}
			}
			if len(wHourly) > 0 {
				if err := json.Unmarshal(wHourly, &snapshot.Hourly); err != nil {
					return fmt.Errorf("failed to unmarshal hourly forecast: %w", err)
				}
			}
			day.Weather = &snapshot
		}

		pkg.Days = append(pkg.Days, day)
		dayByID[day.ID] = &pkg.Days[len(pkg.Days)-1]
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate package days: %w", err)
	}

	if err := r.loadDayActivities(pkg.ID, dayByID); err != nil {
		return err
	}
	return r.loadDayRestaurants(pkg.ID, dayByID)
}

func (r *PackageRepository) loadDayActivities(packageID uuid.UUID, dayByID map[uuid.UUID]*models.PackageDay) error {
	query := `
		SELECT a.day_id, a.attraction_id, a.name, a.pricing_type, a.base_price, a.cost
		FROM package_day_activities a
		JOIN package_days d ON d.id = a.day_id
		WHERE d.package_id = $1
		ORDER BY a.position ASC`

	rows, err := r.db.Query(query, packageID)
	if err != nil {
		return fmt.Errorf("failed to fetch day activities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			dayID    uuid.UUID
			activity models.DayActivity
		)
		if err := rows.Scan(&dayID, &activity.AttractionID, &activity.Name, &activity.PricingType, &activity.BasePrice, &activity.Cost); err != nil {
			return fmt.Errorf("failed to scan day activity: %w", err)
		}
		if day, ok := dayByID[dayID]; ok {
			day.Activities = append(day.Activities, activity)
		}
	}
	return rows.Err()
}

func (r *PackageRepository) loadDayRestaurants(packageID uuid.UUID, dayByID map[uuid.UUID]*models.PackageDay) error {
	query := `
		SELECT dr.day_id, rst.id, rst.destination_id, rst.name, rst.cuisine, rst.price_range, rst.rating, rst.review_count
		FROM package_day_restaurants dr
		JOIN package_days d ON d.id = dr.day_id
		JOIN restaurants rst ON rst.id = dr.restaurant_id
		WHERE d.package_id = $1
		ORDER BY dr.position ASC`

	rows, err := r.db.Query(query, packageID)
	if err != nil {
		return fmt.Errorf("failed to fetch day restaurants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			dayID      uuid.UUID
			restaurant models.Restaurant
		)
		if err := rows.Scan(&dayID, &restaurant.ID, &restaurant.DestinationID, &restaurant.Name, &restaurant.Cuisine, &restaurant.PriceRange, &restaurant.Rating, &restaurant.ReviewCount); err != nil {
			return fmt.Errorf("failed to scan day restaurant: %w", err)
		}
		if day, ok := dayByID[dayID]; ok {
			day.Restaurants = append(day.Restaurants, restaurant)
		}
	}
	return rows.Err()
}

func (r *PackageRepository) loadLegs(pkg *models.Package) error {
	query := `
		SELECT id, position, from_destination_id, to_destination_id, distance_km, duration_min, cab_cost
		FROM package_legs
		WHERE package_id = $1
		ORDER BY position ASC`

	rows, err := r.db.Query(query, pkg.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch package legs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var leg models.PackageLeg
		if err := rows.Scan(&leg.ID, &leg.Position, &leg.FromDestinationID, &leg.ToDestinationID, &leg.DistanceKm, &leg.DurationMin, &leg.CabCost); err != nil {
			return fmt.Errorf("failed to scan package leg: %w", err)
		}
		leg.PackageID = pkg.ID
		pkg.Legs = append(pkg.Legs, leg)
	}
	return rows.Err()
}

// CountClones returns how many packages record the given package as their
// clone source.
func (r *PackageRepository) CountClones(id uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM packages WHERE metadata->>'clonedFrom' = $1`
	if err := r.db.QueryRow(query, id.String()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count clones: %w", err)
	}
	return count, nil
}

// ReplaceItinerary atomically replaces every day/leg/activity/restaurant row
// of a package and rewrites the header's computed fields. Used by the full
// reschedule path.
func (r *PackageRepository) ReplaceItinerary(pkg *models.Package) error {
	pkg.UpdatedAt = time.Now().UTC()

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Child activity/restaurant rows cascade with their days.
	if _, err := tx.Exec(`DELETE FROM package_days WHERE package_id = $1`, pkg.ID); err != nil {
		return fmt.Errorf("failed to delete old days: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM package_legs WHERE package_id = $1`, pkg.ID); err != nil {
		return fmt.Errorf("failed to delete old legs: %w", err)
	}

	for i := range pkg.Days {
		pkg.Days[i].ID = uuid.Nil
	}
	for i := range pkg.Legs {
		pkg.Legs[i].ID = uuid.Nil
	}
	if err := r.insertItinerary(tx, pkg); err != nil {
		return err
	}

	metadataJSON, err := json.Marshal(pkg.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	var cabJSON interface{}
	if pkg.Cab != nil {
		cabJSON, err = json.Marshal(pkg.Cab)
		if err != nil {
			return fmt.Errorf("failed to marshal cab: %w", err)
		}
	}

	headerQuery := `
		UPDATE packages
		SET start_date = $2, cab = $3,
		    accommodation_cost = $4, transport_cost = $5, activities_cost = $6, cab_cost = $7,
		    total_price = $8, per_person_price = $9, metadata = $10, updated_at = $11
		WHERE id = $1`

	_, err = tx.Exec(headerQuery,
		pkg.ID, pkg.StartDate, cabJSON,
		pkg.Breakdown.Accommodation, pkg.Breakdown.Transport, pkg.Breakdown.Activities, pkg.Breakdown.Cab,
		pkg.TotalPrice, pkg.PerPersonPrice, metadataJSON, pkg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update package header: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reschedule: %w", err)
	}

	return nil
}

// UpdateHeaderTotals rewrites the breakdown and derived totals.
func (r *PackageRepository) UpdateHeaderTotals(id uuid.UUID, breakdown models.CostBreakdown, totalPrice, perPersonPrice float64) error {
	query := `
		UPDATE packages
		SET accommodation_cost = $2, transport_cost = $3, activities_cost = $4, cab_cost = $5,
		    total_price = $6, per_person_price = $7, updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(query, id,
		breakdown.Accommodation, breakdown.Transport, breakdown.Activities, breakdown.Cab,
		totalPrice, perPersonPrice,
	)
	if err != nil {
		return fmt.Errorf("failed to update package totals: %w", err)
	}
	return nil
}

// UpdateCab replaces the selected cab snapshot on the header.
func (r *PackageRepository) UpdateCab(id uuid.UUID, cab *models.CabOption) error {
	cabJSON, err := json.Marshal(cab)
	if err != nil {
		return fmt.Errorf("failed to marshal cab: %w", err)
	}

	query := `UPDATE packages SET cab = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(query, id, cabJSON); err != nil {
		return fmt.Errorf("failed to update cab: %w", err)
	}
	return nil
}

// UpdateLegCabCosts re-prices the given legs.
func (r *PackageRepository) UpdateLegCabCosts(updates []LegCostUpdate) error {
	query := `UPDATE package_legs SET cab_cost = $2 WHERE id = $1`
	for _, u := range updates {
		if _, err := r.db.Exec(query, u.LegID, u.CabCost); err != nil {
			return fmt.Errorf("failed to update leg cost: %w", err)
		}
	}
	return nil
}

// UpdateDayHotel replaces one day's selected hotel.
func (r *PackageRepository) UpdateDayHotel(dayID uuid.UUID, hotel *models.HotelOption) error {
	hotelJSON, err := json.Marshal(hotel)
	if err != nil {
		return fmt.Errorf("failed to marshal hotel: %w", err)
	}

	query := `UPDATE package_days SET hotel = $2 WHERE id = $1`
	if _, err := r.db.Exec(query, dayID, hotelJSON); err != nil {
		return fmt.Errorf("failed to update day hotel: %w", err)
	}
	return nil
}

// ReplaceDayActivities replaces one day's activity rows.
func (r *PackageRepository) ReplaceDayActivities(dayID uuid.UUID, activities []models.DayActivity) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM package_day_activities WHERE day_id = $1`, dayID); err != nil {
		return fmt.Errorf("failed to delete old activities: %w", err)
	}

	query := `
		INSERT INTO package_day_activities (
			id, day_id, attraction_id, name, pricing_type, base_price, cost, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for pos, activity := range activities {
		_, err := tx.Exec(query,
			uuid.New(), dayID, activity.AttractionID, activity.Name,
			activity.PricingType, activity.BasePrice, activity.Cost, pos,
		)
		if err != nil {
			return fmt.Errorf("failed to insert activity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit activity replacement: %w", err)
	}
	return nil
}

// UpdateVisibility toggles the public flag.
func (r *PackageRepository) UpdateVisibility(id uuid.UUID, isPublic bool) error {
	query := `UPDATE packages SET is_public = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(query, id, isPublic); err != nil {
		return fmt.Errorf("failed to update visibility: %w", err)
	}
	return nil
}

// UpdateOwner attaches an owner to a package.
func (r *PackageRepository) UpdateOwner(id, ownerID uuid.UUID) error {
	query := `UPDATE packages SET owner_id = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(query, id, ownerID); err != nil {
		return fmt.Errorf("failed to update owner: %w", err)
	}
	return nil
}

// UpdateBookingStatus persists a booking state transition.
func (r *PackageRepository) UpdateBookingStatus(id uuid.UUID, status models.BookingStatus) error {
	query := `UPDATE packages SET booking_status = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(query, id, status); err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return nil
}

// ListSummariesByOwner returns the caller's most recent packages, newest
// first, with the first day's destination image.
func (r *PackageRepository) ListSummariesByOwner(ownerID uuid.UUID, limit int) ([]models.PackageSummary, error) {
	query := `
		SELECT p.id, p.title, p.start_date,
		       p.start_date + ((SELECT COUNT(*) - 1 FROM package_days d WHERE d.package_id = p.id) * INTERVAL '1 day') AS end_date,
		       p.booking_status, p.total_price, p.currency,
		       COALESCE((
		           SELECT dst.image_url
		           FROM package_days d
		           JOIN destinations dst ON dst.id = d.destination_id
		           WHERE d.package_id = p.id
		           ORDER BY d.day_index ASC
		           LIMIT 1
		       ), '') AS image_url
		FROM packages p
		WHERE p.owner_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2`

	var summaries []models.PackageSummary
	if err := r.db.Select(&summaries, query, ownerID, limit); err != nil {
		return nil, fmt.Errorf("failed to list package history: %w", err)
	}

	return summaries, nil
}
