package snapshot

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/drug-reco-engine/internal/domain"
)

// DefaultHistoryCacheSize bounds the number of cached patient histories.
const DefaultHistoryCacheSize = 2048

type historyKey struct {
	snapshotID string
	patientID  string
}

// HistoryCache memoizes per-patient history tables. Entries are keyed by
// snapshot id, so publishing a new snapshot leaves older entries to age out.
// A nil cache is valid and caches nothing.
type HistoryCache struct {
	cache *lru.Cache[historyKey, *domain.PatientHistory]
}

// NewHistoryCache creates a cache holding up to size entries.
func NewHistoryCache(size int) (*HistoryCache, error) {
	if size <= 0 {
		size = DefaultHistoryCacheSize
	}
	cache, err := lru.New[historyKey, *domain.PatientHistory](size)
	if err != nil {
		return nil, err
	}
	return &HistoryCache{cache: cache}, nil
}

func (c *HistoryCache) get(snapshotID, patientID string) (*domain.PatientHistory, bool) {
	if c == nil {
		return nil, false
	}
	return c.cache.Get(historyKey{snapshotID, patientID})
}

func (c *HistoryCache) add(snapshotID, patientID string, h *domain.PatientHistory) {
	if c == nil {
		return
	}
	c.cache.Add(historyKey{snapshotID, patientID}, h)
}

// Len returns the number of cached entries.
func (c *HistoryCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
