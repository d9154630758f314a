package forecastapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWindow(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "3", r.URL.Query().Get("days"))
			assert.Equal(t, "secret", r.URL.Query().Get("key"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"daily": [
					{
						"date": "2026-09-03",
						"summary": {"condition": "sunny", "temp_min_c": 4, "temp_max_c": 18, "precip_chance": 0.1, "wind_speed_kmph": 12},
						"hours": [{"hour": 9, "condition": "sunny", "temp_c": 11, "precip_chance": 0.05}]
					},
					{
						"date": "2026-09-04",
						"summary": {"condition": "cloudy", "temp_min_c": 3, "temp_max_c": 15}
					}
				]
			}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "secret")
		window, err := client.FetchWindow(context.Background(), 34.08, 74.79, 3)
		require.NoError(t, err)
		require.Len(t, window, 2)
		assert.Equal(t, "2026-09-03", window[0].Date)
		assert.Equal(t, "sunny", window[0].Condition)
		assert.Equal(t, 18.0, window[0].TempMaxC)
		require.Len(t, window[0].Hourly, 1)
		assert.Equal(t, 9, window[0].Hourly[0].Hour)
		assert.Empty(t, window[1].Hourly)
	})

	t.Run("Skips Days Without Date", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"daily": [{"date": ""}, {"date": "2026-09-03", "summary": {"condition": "rain"}}]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "secret")
		window, err := client.FetchWindow(context.Background(), 34.08, 74.79, 14)
		require.NoError(t, err)
		require.Len(t, window, 1)
		assert.Equal(t, "rain", window[0].Condition)
	})

	t.Run("Provider Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient(server.URL, "secret")
		window, err := client.FetchWindow(context.Background(), 34.08, 74.79, 14)
		assert.Error(t, err)
		assert.Nil(t, window)
		assert.Contains(t, err.Error(), "status 502")
	})
}
