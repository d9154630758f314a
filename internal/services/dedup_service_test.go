package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashmirtrails/packages-backend/internal/models"
)

func TestFingerprint(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	base := models.GenerationParams{
		DestinationIDs: []uuid.UUID{a, b},
		StartDate:      "2026-09-03",
		PartySize:      2,
		Tier:           models.TierOptimal,
	}

	t.Run("Destination Order Normalized", func(t *testing.T) {
		permuted := base
		permuted.DestinationIDs = []uuid.UUID{b, a}
		assert.Equal(t, Fingerprint(base), Fingerprint(permuted))
	})

	t.Run("Distinct Parameters Differ", func(t *testing.T) {
		differentDate := base
		differentDate.StartDate = "2026-09-04"
		assert.NotEqual(t, Fingerprint(base), Fingerprint(differentDate))

		differentParty := base
		differentParty.PartySize = 3
		assert.NotEqual(t, Fingerprint(base), Fingerprint(differentParty))

		differentTier := base
		differentTier.Tier = models.TierPremium
		assert.NotEqual(t, Fingerprint(base), Fingerprint(differentTier))
	})
}

func TestDedupDo(t *testing.T) {
	t.Run("Concurrent Identical Requests Compute Once", func(t *testing.T) {
		svc := NewDedupService(10 * time.Second)

		var computations int32
		compute := func() (*models.Package, error) {
			atomic.AddInt32(&computations, 1)
			time.Sleep(20 * time.Millisecond)
			return &models.Package{Title: "shared"}, nil
		}

		var wg sync.WaitGroup
		results := make([]*models.Package, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				pkg, err := svc.Do("fp", compute)
				require.NoError(t, err)
				results[i] = pkg
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), atomic.LoadInt32(&computations))
		for _, pkg := range results {
			assert.Same(t, results[0], pkg)
		}
	})

	t.Run("Different Fingerprints Compute Separately", func(t *testing.T) {
		svc := NewDedupService(10 * time.Second)

		var computations int32
		compute := func() (*models.Package, error) {
			atomic.AddInt32(&computations, 1)
			return &models.Package{}, nil
		}

		_, err := svc.Do("one", compute)
		require.NoError(t, err)
		_, err = svc.Do("two", compute)
		require.NoError(t, err)

		assert.Equal(t, int32(2), atomic.LoadInt32(&computations))
	})

	t.Run("Completed Result Reused Within TTL", func(t *testing.T) {
		svc := NewDedupService(time.Minute)

		var computations int32
		compute := func() (*models.Package, error) {
			atomic.AddInt32(&computations, 1)
			return &models.Package{}, nil
		}

		first, err := svc.Do("fp", compute)
		require.NoError(t, err)
		second, err := svc.Do("fp", compute)
		require.NoError(t, err)

		assert.Equal(t, int32(1), atomic.LoadInt32(&computations))
		assert.Same(t, first, second)
	})

	t.Run("Expired Entry Recomputes", func(t *testing.T) {
		svc := NewDedupService(10 * time.Millisecond)

		var computations int32
		compute := func() (*models.Package, error) {
			atomic.AddInt32(&computations, 1)
			return &models.Package{}, nil
		}

		_, err := svc.Do("fp", compute)
		require.NoError(t, err)

		time.Sleep(25 * time.Millisecond)

		_, err = svc.Do("fp", compute)
		require.NoError(t, err)

		assert.Equal(t, int32(2), atomic.LoadInt32(&computations))
	})

	t.Run("Errors Shared With Coalesced Callers", func(t *testing.T) {
		svc := NewDedupService(time.Minute)

		pkg, err := svc.Do("fp", func() (*models.Package, error) {
			return nil, assert.AnError
		})
		assert.Nil(t, pkg)
		assert.ErrorIs(t, err, assert.AnError)

		// The failed result is also cached for the TTL window.
		pkg, err = svc.Do("fp", func() (*models.Package, error) {
			t.Fatal("should not recompute within TTL")
			return nil, nil
		})
		assert.Nil(t, pkg)
		assert.ErrorIs(t, err, assert.AnError)
	})
}
