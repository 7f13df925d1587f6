package types

// CacheStats is a snapshot of cache effectiveness counters.
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Size    int
	MaxSize int
}

// Requests returns the total number of lookups recorded.
func (s CacheStats) Requests() uint64 {
	return s.Hits + s.Misses
}

// HitRate returns hits/(hits+misses), or 0 before any lookup.
func (s CacheStats) HitRate() float64 {
	total := s.Requests()
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// EntityStats describes one entity's indexed corpus.
type EntityStats struct {
	EntityID       string
	ChunkCount     int
	FallbackActive bool // lexical retrieval latched on for this entity
}

// ManagerStats aggregates per-entity statistics for the context manager.
type ManagerStats struct {
	Entities    []EntityStats
	TotalChunks int
}
