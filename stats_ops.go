package memcore

import (
	"context"
)

// GetCompressionStats reports the current per-tier vector footprint.
func (e *Engine) GetCompressionStats(ctx context.Context) (CompressionStats, error) {
	stats, err := e.compression.GetStats(ctx)
	if err != nil {
		return CompressionStats{}, err
	}
	tierCounts := make(map[string]int, len(stats.TierCounts))
	for tier, n := range stats.TierCounts {
		tierCounts[string(tier)] = n
	}
	return CompressionStats{
		TotalVectors:      stats.TotalVectors,
		TierCounts:        tierCounts,
		UncompressedBytes: stats.UncompressedBytes,
		CompressedBytes:   stats.CompressedBytes,
		MemorySaved:       stats.MemorySaved,
	}, nil
}

// CompressionStats is the public view of compression.Stats.
type CompressionStats struct {
	TotalVectors      int
	TierCounts        map[string]int
	UncompressedBytes int64
	CompressedBytes   int64
	MemorySaved       float64
}

// GetStats aggregates entry count, index size, and queue health into a
// single snapshot.
func (e *Engine) GetStats(ctx context.Context) (Stats, error) {
	entryCount, err := e.store.CountEntries(ctx)
	if err != nil {
		return Stats{}, err
	}
	qs := e.queue.GetStats()
	return Stats{
		EntryCount:   entryCount,
		VectorCount:  e.index.Count(),
		QueueDepth:   qs.Queued,
		QueueDropped: qs.TotalDropped > 0,
	}, nil
}

// EvaluateTiers runs one compression tier-evaluation sweep over every
// vector mapping, demoting vectors whose access frequency has fallen below
// their current tier's band. Exposed directly for callers (and the
// background scheduler) who want an on-demand sweep rather than waiting
// for the next tick.
func (e *Engine) EvaluateTiers(ctx context.Context) ([]TierTransition, error) {
	transitions, err := e.compression.EvaluateAndTransition(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TierTransition, len(transitions))
	for i, t := range transitions {
		out[i] = TierTransition{EntryID: t.EntryID, FromTier: string(t.FromTier), ToTier: string(t.ToTier)}
		e.metrics.RecordTierTransition(ctx, string(t.FromTier), string(t.ToTier))
	}
	return out, nil
}
