// Package forecastapi is a typed client for the SkyCast forecast provider.
// One call returns the full multi-day window for a coordinate; callers split
// it into per-date snapshots.
package forecastapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const httpTimeout = 10 * time.Second

// ForecastDay is one calendar day of the provider's window.
type ForecastDay struct {
	Date          string
	Condition     string
	TempMinC      float64
	TempMaxC      float64
	PrecipChance  float64
	WindSpeedKmph float64
	Hourly        []ForecastHour
}

// ForecastHour is one hour slot within a forecast day.
type ForecastHour struct {
	Hour         int
	Condition    string
	TempC        float64
	PrecipChance float64
}

// Client calls the forecast provider.
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

type rawResponse struct {
	Daily []struct {
		Date   string `json:"date"`
		Summary struct {
			Condition     string  `json:"condition"`
			TempMinC      float64 `json:"temp_min_c"`
			TempMaxC      float64 `json:"temp_max_c"`
			PrecipChance  float64 `json:"precip_chance"`
			WindSpeedKmph float64 `json:"wind_speed_kmph"`
		} `json:"summary"`
		Hours []struct {
			Hour         int     `json:"hour"`
			Condition    string  `json:"condition"`
			TempC        float64 `json:"temp_c"`
			PrecipChance float64 `json:"precip_chance"`
		} `json:"hours"`
	} `json:"daily"`
}

// FetchWindow retrieves up to days days of forecast for the coordinate,
// starting today. The provider silently truncates at its own horizon; callers
// must treat absent dates as beyond-horizon.
func (c *Client) FetchWindow(ctx context.Context, lat, lon float64, days int) ([]ForecastDay, error) {
	endpoint := fmt.Sprintf("%s?lat=%f&lon=%f&days=%d&key=%s", c.baseURL, lat, lon, days, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating forecast request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast fetch returned status %d", resp.StatusCode)
	}

	var raw rawResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding forecast response: %w", err)
	}

	window := make([]ForecastDay, 0, len(raw.Daily))
	for _, d := range raw.Daily {
		if d.Date == "" {
			continue
		}
		day := ForecastDay{
			Date:          d.Date,
			Condition:     d.Summary.Condition,
			TempMinC:      d.Summary.TempMinC,
			TempMaxC:      d.Summary.TempMaxC,
			PrecipChance:  d.Summary.PrecipChance,
			WindSpeedKmph: d.Summary.WindSpeedKmph,
		}
		for _, h := range d.Hours {
			day.Hourly = append(day.Hourly, ForecastHour{
				Hour:         h.Hour,
				Condition:    h.Condition,
				TempC:        h.TempC,
				PrecipChance: h.PrecipChance,
			})
		}
		window = append(window, day)
	}

	return window, nil
}
