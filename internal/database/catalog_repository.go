package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/kashmirtrails/packages-backend/internal/models"
)

// CatalogRepository handles read-only lookups over the destination catalog:
// destinations, attractions, restaurants, pricing buckets, the route matrix
// and the cab inventory.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetDestinationsByIDs returns the destinations for the given IDs. Unknown
// IDs are simply absent from the result.
func (r *CatalogRepository) GetDestinationsByIDs(ids []uuid.UUID) ([]models.Destination, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, name, region, is_hub, latitude, longitude, altitude_m, image_url
		FROM destinations
		WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build destinations query: %w", err)
	}

	var destinations []models.Destination
	if err := r.db.Select(&destinations, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to fetch destinations: %w", err)
	}

	return destinations, nil
}

// ListDestinations returns every destination (used by the weather refresher).
func (r *CatalogRepository) ListDestinations() ([]models.Destination, error) {
	var destinations []models.Destination
	query := `
		SELECT id, name, region, is_hub, latitude, longitude, altitude_m, image_url
		FROM destinations
		ORDER BY name`
	if err := r.db.Select(&destinations, query); err != nil {
		return nil, fmt.Errorf("failed to list destinations: %w", err)
	}
	return destinations, nil
}

// GetPricingBucket returns the price bucket for a destination and tier.
// Returns nil without error when no row exists; the assembler treats a
// missing bucket as zero cost.
func (r *CatalogRepository) GetPricingBucket(destinationID uuid.UUID, tier models.PriceTier) (*models.PricingBucketRow, error) {
	var row models.PricingBucketRow
	query := `
		SELECT destination_id, tier, accommodation_price, transport_price
		FROM pricing_buckets
		WHERE destination_id = $1 AND tier = $2`

	err := r.db.Get(&row, query, destinationID, tier)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pricing bucket: %w", err)
	}

	return &row, nil
}

// GetRouteMatrixEntry returns the precomputed distance/duration between two
// destinations. Returns nil without error when the matrix has no entry.
func (r *CatalogRepository) GetRouteMatrixEntry(from, to uuid.UUID) (*models.RouteMatrixEntry, error) {
	var entry models.RouteMatrixEntry
	query := `
		SELECT from_destination_id, to_destination_id, distance_km, duration_min
		FROM route_matrix
		WHERE from_destination_id = $1 AND to_destination_id = $2`

	err := r.db.Get(&entry, query, from, to)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch route matrix entry: %w", err)
	}

	return &entry, nil
}

// ListAvailableCabs returns the available cabs of the given classes.
func (r *CatalogRepository) ListAvailableCabs(classes []string) ([]models.CabOption, error) {
	if len(classes) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, cab_class, make, model, model_year, capacity, per_day_rate, per_km_rate, available
		FROM cabs
		WHERE available = true AND cab_class IN (?)`, classes)
	if err != nil {
		return nil, fmt.Errorf("failed to build cabs query: %w", err)
	}

	var cabs []models.CabOption
	if err := r.db.Select(&cabs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to fetch cabs: %w", err)
	}

	return cabs, nil
}

// GetCabByID returns one cab. Returns nil without error when not found.
func (r *CatalogRepository) GetCabByID(id uuid.UUID) (*models.CabOption, error) {
	var cab models.CabOption
	query := `
		SELECT id, cab_class, make, model, model_year, capacity, per_day_rate, per_km_rate, available
		FROM cabs
		WHERE id = $1`

	err := r.db.Get(&cab, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cab: %w", err)
	}

	return &cab, nil
}

// ListPurchasableAttractions returns the purchasable attractions for a
// destination ordered by rating then review count descending, optionally
// filtered by category.
func (r *CatalogRepository) ListPurchasableAttractions(destinationID uuid.UUID, category string) ([]models.Attraction, error) {
	var attractions []models.Attraction
	var err error

	if category != "" {
		query := `
			SELECT id, destination_id, name, category, rating, review_count, pricing_type, base_price, purchasable
			FROM attractions
			WHERE destination_id = $1 AND purchasable = true AND category = $2
			ORDER BY rating DESC, review_count DESC`
		err = r.db.Select(&attractions, query, destinationID, category)
	} else {
		query := `
			SELECT id, destination_id, name, category, rating, review_count, pricing_type, base_price, purchasable
			FROM attractions
			WHERE destination_id = $1 AND purchasable = true
			ORDER BY rating DESC, review_count DESC`
		err = r.db.Select(&attractions, query, destinationID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch attractions: %w", err)
	}

	return attractions, nil
}

// GetAttractionsByIDs returns the attractions for the given IDs.
func (r *CatalogRepository) GetAttractionsByIDs(ids []uuid.UUID) ([]models.Attraction, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, destination_id, name, category, rating, review_count, pricing_type, base_price, purchasable
		FROM attractions
		WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build attractions query: %w", err)
	}

	var attractions []models.Attraction
	if err := r.db.Select(&attractions, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to fetch attractions: %w", err)
	}

	return attractions, nil
}

// ListRestaurants returns up to limit restaurants for a destination in the
// given price range, ordered by rating then review count descending.
func (r *CatalogRepository) ListRestaurants(destinationID uuid.UUID, priceRange string, limit int) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	query := `
		SELECT id, destination_id, name, cuisine, price_range, rating, review_count
		FROM restaurants
		WHERE destination_id = $1 AND price_range = $2
		ORDER BY rating DESC, review_count DESC
		LIMIT $3`

	if err := r.db.Select(&restaurants, query, destinationID, priceRange, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch restaurants: %w", err)
	}

	return restaurants, nil
}
