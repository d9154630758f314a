package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kashmirtrails/packages-backend/internal/models"
)

// dedupEntry tracks one in-flight or recently completed generation. done is
// closed once result/err are set.
type dedupEntry struct {
	done      chan struct{}
	result    *models.Package
	err       error
	expiresAt time.Time
}

func (e *dedupEntry) expired(now time.Time) bool {
	select {
	case <-e.done:
		return now.After(e.expiresAt)
	default:
		// Still computing; never expire an in-flight entry.
		return false
	}
}

// DedupService coalesces concurrent identical generation requests into one
// underlying computation. Completed results linger for a short TTL; expired
// entries are purged lazily on each call. Best-effort only: an identical
// request arriving after expiry simply recomputes.
type DedupService struct {
	mu      sync.Mutex
	entries map[string]*dedupEntry
	ttl     time.Duration
}

// NewDedupService creates a new DedupService
func NewDedupService(ttl time.Duration) *DedupService {
	return &DedupService{
		entries: make(map[string]*dedupEntry),
		ttl:     ttl,
	}
}

// Fingerprint derives the deduplication key from a request's defining
// parameters. Destination order is normalized so permutations collide.
func Fingerprint(params models.GenerationParams) string {
	ids := make([]string, 0, len(params.DestinationIDs))
	for _, id := range params.DestinationIDs {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)

	payload := fmt.Sprintf("%s|%s|%d|%s", strings.Join(ids, ","), params.StartDate, params.PartySize, params.Tier)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Do returns the shared result for the fingerprint, running compute only when
// no live entry exists. Callers matching an in-flight entry block until it
// completes and receive the same result.
func (s *DedupService) Do(fingerprint string, compute func() (*models.Package, error)) (*models.Package, error) {
	now := time.Now()

	s.mu.Lock()
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
		}
	}

	if entry, ok := s.entries[fingerprint]; ok {
		s.mu.Unlock()
		<-entry.done
		return entry.result, entry.err
	}

	entry := &dedupEntry{done: make(chan struct{})}
	s.entries[fingerprint] = entry
	s.mu.Unlock()

	entry.result, entry.err = compute()

	s.mu.Lock()
	entry.expiresAt = time.Now().Add(s.ttl)
	s.mu.Unlock()

	close(entry.done)
	return entry.result, entry.err
}
