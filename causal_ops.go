package memcore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/memcore/internal/provenance"
	"github.com/fyrsmithlabs/memcore/internal/store"
)

// AddCausalRelation persists a new causal hyperedge between sources and
// targets. ttlMillis of 0 means the relation never expires.
func (e *Engine) AddCausalRelation(ctx context.Context, sources, targets []string, relType string, strength float64, ttlMillis int64) (*CausalRelation, error) {
	r := &store.CausalRelation{
		ID: uuid.NewString(), Type: store.RelationType(relType), Strength: strength,
		Sources: sources, Targets: targets, CreatedAt: time.Now(),
	}
	if ttlMillis > 0 {
		r.TTLMillis = sql.NullInt64{Int64: ttlMillis, Valid: true}
	}
	if err := e.store.InsertCausalRelation(ctx, r); err != nil {
		return nil, err
	}
	return toPublicRelation(r), nil
}

// QueryCausal performs a breadth-first traversal of the causal hypergraph
// from startIDs, following direction ("forward", "backward", or "both") up
// to maxDepth hops.
func (e *Engine) QueryCausal(ctx context.Context, startIDs []string, direction string, maxDepth int, relationTypes []string) ([]CausalPath, error) {
	start := time.Now()
	defer func() { e.metrics.CausalQueryDuration.Record(ctx, time.Since(start).Seconds()) }()

	paths, err := provenance.QueryCausal(ctx, e.edges, startIDs, provenance.Direction(direction), maxDepth, relationTypes)
	if err != nil {
		return nil, err
	}
	out := make([]CausalPath, len(paths))
	for i, p := range paths {
		out[i] = CausalPath{EntryID: p.EntryID, Depth: p.Depth, TotalStrength: p.TotalStrength}
	}
	return out, nil
}

// expireCausalRelations deletes every causal relation whose TTL has
// elapsed and reports how many were removed, for the background sweep.
func (e *Engine) expireCausalRelations(ctx context.Context) (int, error) {
	return provenance.ExpireCausal(ctx, e.store)
}

func toPublicRelation(r *store.CausalRelation) *CausalRelation {
	out := &CausalRelation{
		ID: r.ID, Type: string(r.Type), Strength: r.Strength,
		Sources: r.Sources, Targets: r.Targets, CreatedAt: r.CreatedAt,
	}
	if r.TTLMillis.Valid {
		out.TTLMillis = r.TTLMillis.Int64
	}
	return out
}
