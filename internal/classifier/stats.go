package classifier

import "sync/atomic"

type statsCounter struct {
	memoryHits atomic.Int64
	storeHits  atomic.Int64
	misses     atomic.Int64
}

func (s *statsCounter) memoryHit() { s.memoryHits.Add(1) }
func (s *statsCounter) storeHit()  { s.storeHits.Add(1) }
func (s *statsCounter) miss()      { s.misses.Add(1) }

func (s *statsCounter) snapshot() CacheStats {
	return CacheStats{
		MemoryHits: s.memoryHits.Load(),
		StoreHits:  s.storeHits.Load(),
		Misses:     s.misses.Load(),
	}
}
