package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashmirtrails/packages-backend/internal/models"
	"github.com/kashmirtrails/packages-backend/pkg/hotelapi"
)

func testDestination() models.Destination {
	return models.Destination{ID: uuid.New(), Name: "Gulmarg", Latitude: 34.05, Longitude: 74.38}
}

func makeHotels(prefix string, count int, startDistance float64) []hotelapi.Hotel {
	hotels := make([]hotelapi.Hotel, 0, count)
	for i := 0; i < count; i++ {
		hotels = append(hotels, hotelapi.Hotel{
			ID:         fmt.Sprintf("%s-%d", prefix, i),
			Name:       fmt.Sprintf("Hotel %s %d", prefix, i),
			Rating:     4.2,
			DistanceKm: startDistance + float64(i),
		})
	}
	return hotels
}

func TestSourceDay(t *testing.T) {
	checkIn := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)

	t.Run("Single Search When Narrow Stage Satisfies", func(t *testing.T) {
		provider := &fakeHotelProvider{
			searchResult: func(params hotelapi.SearchParams) []hotelapi.Hotel {
				return makeHotels("narrow", 6, 1)
			},
			offerResult: func(params hotelapi.OfferParams) []hotelapi.Offer {
				return []hotelapi.Offer{
					{HotelID: params.HotelIDs[1], BoardType: "breakfast", Price: 4800, Currency: "INR"},
					{HotelID: params.HotelIDs[0], BoardType: "breakfast", Price: 5200, Currency: "INR"},
				}
			},
		}
		svc := NewHotelSourcingService(provider, testEngineConfig(), testLogger())

		selected, options := svc.SourceDay(context.Background(), testDestination(), models.TierOptimal, checkIn, 2, 6000)
		require.NotNil(t, selected)
		assert.Equal(t, 4800.0, selected.Price)
		assert.Len(t, options, 2)

		// Six candidates from the narrow search satisfy every later stage.
		require.Len(t, provider.searchCalls, 1)
		assert.Equal(t, 5, provider.searchCalls[0].RadiusKm)
		assert.Equal(t, 4.0, provider.searchCalls[0].MinRating)
	})

	t.Run("Ladder Relaxes Radius Then Rating", func(t *testing.T) {
		provider := &fakeHotelProvider{
			searchResult: func(params hotelapi.SearchParams) []hotelapi.Hotel {
				if params.RadiusKm == 5 {
					return nil
				}
				if params.MinRating > 0 {
					return makeHotels("wide", 2, 3)
				}
				return makeHotels("any", 4, 8)
			},
			offerResult: func(params hotelapi.OfferParams) []hotelapi.Offer {
				return []hotelapi.Offer{{HotelID: params.HotelIDs[0], Price: 3100, Currency: "INR"}}
			},
		}
		svc := NewHotelSourcingService(provider, testEngineConfig(), testLogger())

		selected, _ := svc.SourceDay(context.Background(), testDestination(), models.TierBudget, checkIn, 2, 3500)
		require.NotNil(t, selected)

		require.Len(t, provider.searchCalls, 3)
		assert.Equal(t, 5, provider.searchCalls[0].RadiusKm)
		assert.Equal(t, 25, provider.searchCalls[1].RadiusKm)
		assert.Equal(t, 2.0, provider.searchCalls[1].MinRating)
		assert.Equal(t, 3.0, provider.searchCalls[1].MaxRating)
		assert.Zero(t, provider.searchCalls[2].MinRating)
	})

	t.Run("Offer Batches Stop At First Non Empty", func(t *testing.T) {
		provider := &fakeHotelProvider{
			searchResult: func(params hotelapi.SearchParams) []hotelapi.Hotel {
				return makeHotels("h", 12, 1)
			},
			offerResult: func(params hotelapi.OfferParams) []hotelapi.Offer {
				// First batch (h-0..h-4) has nothing; second batch prices.
				if params.HotelIDs[0] == "h-0" {
					return nil
				}
				return []hotelapi.Offer{{HotelID: params.HotelIDs[0], Price: 4400, Currency: "INR"}}
			},
		}
		svc := NewHotelSourcingService(provider, testEngineConfig(), testLogger())

		selected, _ := svc.SourceDay(context.Background(), testDestination(), models.TierOptimal, checkIn, 2, 6000)
		require.NotNil(t, selected)
		assert.Equal(t, "h-5", selected.HotelID)

		require.Len(t, provider.offerCalls, 2)
		assert.Len(t, provider.offerCalls[0].HotelIDs, 5)
		assert.Equal(t, "2026-09-03", provider.offerCalls[0].CheckIn)
		assert.Equal(t, "2026-09-04", provider.offerCalls[0].CheckOut)
	})

	t.Run("Premium Uses Price Floor", func(t *testing.T) {
		provider := &fakeHotelProvider{
			searchResult: func(params hotelapi.SearchParams) []hotelapi.Hotel {
				return makeHotels("lux", 5, 1)
			},
			offerResult: func(params hotelapi.OfferParams) []hotelapi.Offer {
				return []hotelapi.Offer{{HotelID: params.HotelIDs[0], Price: 14000, Currency: "INR"}}
			},
		}
		svc := NewHotelSourcingService(provider, testEngineConfig(), testLogger())

		selected, _ := svc.SourceDay(context.Background(), testDestination(), models.TierPremium, checkIn, 2, 9000)
		require.NotNil(t, selected)

		require.NotEmpty(t, provider.offerCalls)
		assert.Equal(t, 9000.0, provider.offerCalls[0].PriceMin)
		assert.Zero(t, provider.offerCalls[0].PriceMax)
		assert.Equal(t, 5.0, provider.searchCalls[0].MinRating)
	})

	t.Run("No Candidates Yields No Hotel", func(t *testing.T) {
		provider := &fakeHotelProvider{}
		svc := NewHotelSourcingService(provider, testEngineConfig(), testLogger())

		selected, options := svc.SourceDay(context.Background(), testDestination(), models.TierOptimal, checkIn, 2, 6000)
		assert.Nil(t, selected)
		assert.Nil(t, options)
		assert.Empty(t, provider.offerCalls)
	})

	t.Run("Unpriced Offers Yield No Hotel", func(t *testing.T) {
		provider := &fakeHotelProvider{
			searchResult: func(params hotelapi.SearchParams) []hotelapi.Hotel {
				return makeHotels("h", 5, 1)
			},
			offerResult: func(params hotelapi.OfferParams) []hotelapi.Offer {
				return []hotelapi.Offer{{HotelID: params.HotelIDs[0], Price: 0}}
			},
		}
		svc := NewHotelSourcingService(provider, testEngineConfig(), testLogger())

		selected, options := svc.SourceDay(context.Background(), testDestination(), models.TierOptimal, checkIn, 2, 6000)
		assert.Nil(t, selected)
		assert.Nil(t, options)
	})

	t.Run("Shortlist Bounded And Distance Ordered", func(t *testing.T) {
		provider := &fakeHotelProvider{
			searchResult: func(params hotelapi.SearchParams) []hotelapi.Hotel {
				// Far hotels first to prove distance reordering.
				return append(makeHotels("far", 10, 50), makeHotels("near", 10, 1)...)
			},
			offerResult: func(params hotelapi.OfferParams) []hotelapi.Offer {
				return []hotelapi.Offer{{HotelID: params.HotelIDs[0], Price: 4000, Currency: "INR"}}
			},
		}
		svc := NewHotelSourcingService(provider, testEngineConfig(), testLogger())

		selected, _ := svc.SourceDay(context.Background(), testDestination(), models.TierOptimal, checkIn, 2, 6000)
		require.NotNil(t, selected)
		assert.Equal(t, "near-0", selected.HotelID)
	})
}
