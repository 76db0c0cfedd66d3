package memcore

import (
	"context"
	"time"
)

// EnhanceEntry builds the 2-hop ego graph around id, aggregates neighbor
// embeddings with the center via message passing, and projects the result
// to the enhancer's output dimension. Returns nil if id has no embedding
// yet (pending_embedding).
func (e *Engine) EnhanceEntry(ctx context.Context, id string) (*EnhancementResult, error) {
	start := time.Now()
	defer func() { e.metrics.EnhanceDuration.Record(ctx, time.Since(start).Seconds()) }()

	result, err := e.enhancer.EnhanceEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	ids := make([]string, len(result.Graph))
	for i, n := range result.Graph {
		ids[i] = n.EntryID
	}
	return &EnhancementResult{EntryID: result.EntryID, Embedding: result.Embedding, NeighborIDs: ids, Cached: result.Cached}, nil
}

// EnhanceBatch enhances every id in the batch with bounded concurrency,
// honoring ctx's deadline. Partial results and cancelled=true are returned
// if the deadline expires before every id finishes.
func (e *Engine) EnhanceBatch(ctx context.Context, ids []string, maxConcurrent int) ([]EnhancementResult, bool) {
	raw, cancelled := e.enhancer.EnhanceBatch(ctx, ids, maxConcurrent)
	out := make([]EnhancementResult, 0, len(raw))
	for _, r := range raw {
		if r.Err != nil || r.Result == nil {
			continue
		}
		neighborIDs := make([]string, len(r.Result.Graph))
		for i, n := range r.Result.Graph {
			neighborIDs[i] = n.EntryID
		}
		out = append(out, EnhancementResult{
			EntryID: r.Result.EntryID, Embedding: r.Result.Embedding, NeighborIDs: neighborIDs, Cached: r.Result.Cached,
		})
	}
	return out, cancelled
}

// GetGNNStats reports the ego enhancer's configured neighborhood bounds,
// projection output dimension and aggregation method.
func (e *Engine) GetGNNStats() GNNStats {
	return GNNStats{
		MaxHops:            e.cfg.Ego.MaxHops,
		MaxNeighborsPerHop: e.cfg.Ego.MaxNeighborsPerHop,
		ProjectionOutDim:   e.cfg.Ego.ProjectionOutDim,
		AggregationMethod:  string(e.aggMethod),
	}
}

// GNNStats is the public view of the ego-graph enhancer's configuration.
type GNNStats struct {
	MaxHops            int
	MaxNeighborsPerHop int
	ProjectionOutDim   int
	AggregationMethod  string
}
