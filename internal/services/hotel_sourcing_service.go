package services

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kashmirtrails/packages-backend/internal/config"
	"github.com/kashmirtrails/packages-backend/internal/models"
	"github.com/kashmirtrails/packages-backend/pkg/hotelapi"
)

// hotelProvider is the slice of the inventory client the sourcing pipeline
// needs.
type hotelProvider interface {
	Search(ctx context.Context, params hotelapi.SearchParams) ([]hotelapi.Hotel, error)
	Offers(ctx context.Context, params hotelapi.OfferParams) ([]hotelapi.Offer, error)
}

// searchStage is one rung of the fallback ladder: run when fewer than
// minBefore candidates have accumulated so far.
type searchStage struct {
	name      string
	radiusKm  int
	minRating float64
	maxRating float64
	minBefore int
}

// HotelSourcingService finds a priced lodging offer near a destination using
// a progressively relaxed search ladder: narrow radius with a tier rating
// filter, wide radius with the filter, then wide radius unfiltered.
type HotelSourcingService struct {
	provider hotelProvider
	cfg      config.EngineConfig
	logger   *logrus.Logger
}

// NewHotelSourcingService creates a new HotelSourcingService
func NewHotelSourcingService(provider hotelProvider, cfg config.EngineConfig, logger *logrus.Logger) *HotelSourcingService {
	return &HotelSourcingService{provider: provider, cfg: cfg, logger: logger}
}

func tierRatingBounds(tier models.PriceTier) (min, max float64) {
	switch tier {
	case models.TierBudget:
		return 2, 3
	case models.TierPremium:
		return 5, 0
	default:
		return 4, 0
	}
}

func tierBoardType(tier models.PriceTier) string {
	if tier == models.TierBudget {
		return "room_only"
	}
	return "breakfast"
}

// SourceDay finds lodging for a one-night stay. It returns the cheapest
// priced offer as the selection plus every offer from the winning batch as
// alternatives. Both are nil when nothing could be priced; the day then has
// no hotel and zero accommodation cost.
func (s *HotelSourcingService) SourceDay(ctx context.Context, destination models.Destination, tier models.PriceTier, checkIn time.Time, partySize int, nightlyCap float64) (*models.HotelOption, []models.HotelOption) {
	shortlist := s.shortlist(ctx, destination, tier)
	if len(shortlist) == 0 {
		return nil, nil
	}

	offers := s.priceShortlist(ctx, shortlist, tier, checkIn, partySize, nightlyCap)
	if len(offers) == 0 {
		return nil, nil
	}

	byID := make(map[string]hotelapi.Hotel, len(shortlist))
	for _, h := range shortlist {
		byID[h.ID] = h
	}

	options := make([]models.HotelOption, 0, len(offers))
	for _, offer := range offers {
		if offer.Price <= 0 {
			continue
		}
		hotel := byID[offer.HotelID]
		options = append(options, models.HotelOption{
			HotelID:    offer.HotelID,
			Name:       hotel.Name,
			Rating:     hotel.Rating,
			DistanceKm: hotel.DistanceKm,
			BoardType:  offer.BoardType,
			Price:      offer.Price,
			Currency:   offer.Currency,
		})
	}
	if len(options) == 0 {
		return nil, nil
	}

	sort.Slice(options, func(i, j int) bool { return options[i].Price < options[j].Price })
	selected := options[0]
	return &selected, options
}

// shortlist runs the fallback ladder and returns up to the configured number
// of candidates, deduplicated and ordered by distance.
func (s *HotelSourcingService) shortlist(ctx context.Context, destination models.Destination, tier models.PriceTier) []hotelapi.Hotel {
	minRating, maxRating := tierRatingBounds(tier)

	stages := []searchStage{
		{name: "narrow_filtered", radiusKm: s.cfg.HotelNarrowRadiusKm, minRating: minRating, maxRating: maxRating, minBefore: 0},
		{name: "expanded_filtered", radiusKm: s.cfg.HotelWideRadiusKm, minRating: minRating, maxRating: maxRating, minBefore: 3},
		{name: "expanded_unfiltered", radiusKm: s.cfg.HotelWideRadiusKm, minBefore: 5},
	}

	seen := make(map[string]bool)
	var candidates []hotelapi.Hotel

	for _, stage := range stages {
		if stage.minBefore > 0 && len(candidates) >= stage.minBefore {
			continue
		}

		hotels, err := s.provider.Search(ctx, hotelapi.SearchParams{
			Latitude:  destination.Latitude,
			Longitude: destination.Longitude,
			RadiusKm:  stage.radiusKm,
			MinRating: stage.minRating,
			MaxRating: stage.maxRating,
		})
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"destination": destination.Name,
				"stage":       stage.name,
				"error":       err.Error(),
			}).Warn("Hotel search stage failed")
			continue
		}

		for _, h := range hotels {
			if h.ID == "" || seen[h.ID] {
				continue
			}
			seen[h.ID] = true
			candidates = append(candidates, h)
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].DistanceKm < candidates[j].DistanceKm })
	if len(candidates) > s.cfg.HotelShortlistSize {
		candidates = candidates[:s.cfg.HotelShortlistSize]
	}

	return candidates
}

// priceShortlist queries offers in bounded batches and stops at the first
// batch that returns anything.
func (s *HotelSourcingService) priceShortlist(ctx context.Context, shortlist []hotelapi.Hotel, tier models.PriceTier, checkIn time.Time, partySize int, nightlyCap float64) []hotelapi.Offer {
	checkOut := checkIn.AddDate(0, 0, 1)

	var priceMin, priceMax float64
	if tier == models.TierPremium {
		priceMin = nightlyCap
	} else {
		priceMax = nightlyCap
	}

	batchSize := s.cfg.HotelOfferBatchSize
	if batchSize > hotelapi.MaxOfferBatchSize {
		batchSize = hotelapi.MaxOfferBatchSize
	}

	for start := 0; start < len(shortlist); start += batchSize {
		end := start + batchSize
		if end > len(shortlist) {
			end = len(shortlist)
		}

		ids := make([]string, 0, end-start)
		for _, h := range shortlist[start:end] {
			ids = append(ids, h.ID)
		}

		offers, err := s.provider.Offers(ctx, hotelapi.OfferParams{
			HotelIDs:  ids,
			CheckIn:   checkIn.Format(models.WeatherDateFormat),
			CheckOut:  checkOut.Format(models.WeatherDateFormat),
			Adults:    partySize,
			BoardType: tierBoardType(tier),
			PriceMin:  priceMin,
			PriceMax:  priceMax,
		})
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"batch_start": start,
				"error":       err.Error(),
			}).Warn("Hotel offer batch failed")
			continue
		}
		if len(offers) > 0 {
			return offers
		}
	}

	return nil
}
