// Package hotelapi is a typed client for the StayScout hotel inventory
// provider. It exposes the two calls the sourcing pipeline needs: a geocoded
// radius search and batched offer pricing.
package hotelapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const httpTimeout = 10 * time.Second

// MaxOfferBatchSize is the provider's hard cap on hotel IDs per offer call.
const MaxOfferBatchSize = 5

// Hotel is one search result near a coordinate.
type Hotel struct {
	ID         string  `json:"hotel_id"`
	Name       string  `json:"name"`
	Rating     float64 `json:"rating"`
	DistanceKm float64 `json:"distance_km"`
}

// Offer is one priced offer for a hotel and date range.
type Offer struct {
	HotelID   string  `json:"hotel_id"`
	BoardType string  `json:"board_type"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
}

// SearchParams describe a geocoded hotel search. MinRating/MaxRating of zero
// means no rating filter on that bound.
type SearchParams struct {
	Latitude  float64
	Longitude float64
	RadiusKm  int
	MinRating float64
	MaxRating float64
}

// OfferParams describe a batched offer pricing call. PriceMin/PriceMax of
// zero means the bound is open.
type OfferParams struct {
	HotelIDs  []string
	CheckIn   string // YYYY-MM-DD
	CheckOut  string // YYYY-MM-DD
	Adults    int
	BoardType string
	PriceMin  float64
	PriceMax  float64
}

// Client calls the hotel inventory provider.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient constructs a Client for the given base URL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

func (c *Client) doGet(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

type searchResponse struct {
	Hotels []Hotel `json:"hotels"`
}

// Search returns hotels within the radius of a coordinate, optionally
// filtered by rating.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]Hotel, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(params.Latitude, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(params.Longitude, 'f', 6, 64))
	q.Set("radius_km", strconv.Itoa(params.RadiusKm))
	if params.MinRating > 0 {
		q.Set("min_rating", strconv.FormatFloat(params.MinRating, 'f', 1, 64))
	}
	if params.MaxRating > 0 {
		q.Set("max_rating", strconv.FormatFloat(params.MaxRating, 'f', 1, 64))
	}

	var raw searchResponse
	if err := c.doGet(ctx, c.baseURL+"/hotels/search?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("hotel search: %w", err)
	}

	return raw.Hotels, nil
}

type offersResponse struct {
	Offers []Offer `json:"offers"`
}

// Offers prices a batch of hotels for a date range. The provider rejects
// batches above MaxOfferBatchSize.
func (c *Client) Offers(ctx context.Context, params OfferParams) ([]Offer, error) {
	if len(params.HotelIDs) == 0 {
		return nil, nil
	}
	if len(params.HotelIDs) > MaxOfferBatchSize {
		return nil, fmt.Errorf("offer batch of %d exceeds provider limit of %d", len(params.HotelIDs), MaxOfferBatchSize)
	}

	q := url.Values{}
	q.Set("hotel_ids", strings.Join(params.HotelIDs, ","))
	q.Set("check_in", params.CheckIn)
	q.Set("check_out", params.CheckOut)
	q.Set("adults", strconv.Itoa(params.Adults))
	if params.BoardType != "" {
		q.Set("board_type", params.BoardType)
	}
	if params.PriceMin > 0 {
		q.Set("price_min", strconv.FormatFloat(params.PriceMin, 'f', 2, 64))
	}
	if params.PriceMax > 0 {
		q.Set("price_max", strconv.FormatFloat(params.PriceMax, 'f', 2, 64))
	}

	var raw offersResponse
	if err := c.doGet(ctx, c.baseURL+"/hotels/offers?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("hotel offers: %w", err)
	}

	return raw.Offers, nil
}
