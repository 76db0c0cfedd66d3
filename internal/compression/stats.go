package compression

import "context"

// Stats summarizes the current compression footprint across all vectors.
type Stats struct {
	TotalVectors      int
	TierCounts        map[Tier]int
	UncompressedBytes int64
	CompressedBytes   int64
	MemorySaved       float64 // (uncompressed - compressed) / uncompressed
}

// GetStats computes the current compression footprint by scanning every
// vector mapping's tier.
func (m *Manager) GetStats(ctx context.Context) (*Stats, error) {
	mappings, err := m.store.AllVectorMappings(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalVectors: len(mappings),
		TierCounts:   make(map[Tier]int, 5),
	}
	for _, mapping := range mappings {
		tier := Tier(mapping.CompressionTier)
		stats.TierCounts[tier]++
		stats.UncompressedBytes += int64(BytesPerVector(HOT, m.dimension))
		stats.CompressedBytes += int64(BytesPerVector(tier, m.dimension))
	}

	if stats.UncompressedBytes > 0 {
		stats.MemorySaved = float64(stats.UncompressedBytes-stats.CompressedBytes) / float64(stats.UncompressedBytes)
	}
	return stats, nil
}
