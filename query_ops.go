package memcore

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memcore/internal/logging"
	"github.com/fyrsmithlabs/memcore/internal/store"
)

// defaultTopK is used when QueryOptions.TopK is unset (<= 0).
const defaultTopK = 10

// Query embeds text, searches the in-process vector index for its nearest
// neighbors, resolves the matching entries, and applies the requested
// filters post-search. Only HOT-tier (index-resident) vectors are
// searchable; demoted vectors are not decoded back for query-time
// comparison.
func (e *Engine) Query(ctx context.Context, text string, opts QueryOptions) ([]QueryResult, error) {
	start := time.Now()
	defer func() { e.metrics.QueryDuration.Record(ctx, time.Since(start).Seconds()) }()

	if opts.Filters.SessionID != "" {
		ctx = logging.WithSessionID(ctx, opts.Filters.SessionID)
	}
	if opts.Filters.AgentID != "" {
		ctx = logging.WithAgentID(ctx, opts.Filters.AgentID)
	}

	vec, err := embedOne(ctx, e.embedder, text)
	if err != nil {
		return nil, err
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	hits, err := e.index.Search(vec, topK)
	if err != nil {
		return nil, err
	}

	results := make([]QueryResult, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < opts.MinScore {
			continue
		}
		id, err := e.store.MappingByLabel(ctx, hit.Label)
		if err != nil {
			continue
		}
		entry, err := e.store.GetEntry(ctx, id)
		if err != nil {
			continue
		}
		if !matchesFilters(entry, opts.Filters) {
			continue
		}

		qr := QueryResult{
			Entry:    *toPublicEntry(entry, 0, 0),
			Score:    hit.Score,
			Distance: hit.Distance,
		}
		if opts.IncludeProvenance {
			if prov, err := e.store.GetProvenance(ctx, id); err == nil {
				parents, _ := e.store.Parents(ctx, id)
				qr.Provenance = &ProvenanceInfo{LScore: prov.LScore, LineageDepth: prov.LineageDepth, ParentIDs: parents}
				qr.Entry.LScore = prov.LScore
				qr.Entry.LineageDepth = prov.LineageDepth
			}
		}
		results = append(results, qr)
	}

	if opts.Rerank {
		rerankByLScore(ctx, e, results)
	}
	e.log.Debug(ctx, "query completed", zap.Int("hits", len(hits)), zap.Int("results", len(results)))
	return results, nil
}

func matchesFilters(entry *store.Entry, f QueryFilters) bool {
	if len(f.Sources) > 0 && !containsString(f.Sources, entry.Source) {
		return false
	}
	if entry.Importance < f.MinImportance {
		return false
	}
	if f.SessionID != "" && entry.SessionID.String != f.SessionID {
		return false
	}
	if f.AgentID != "" && entry.AgentID.String != f.AgentID {
		return false
	}
	if !f.After.IsZero() && entry.CreatedAt.Before(f.After) {
		return false
	}
	if !f.Before.IsZero() && entry.CreatedAt.After(f.Before) {
		return false
	}
	if len(f.Tags) > 0 {
		for _, want := range f.Tags {
			if !containsString(entry.Tags, want) {
				return false
			}
		}
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// rerankByLScore re-sorts results in place by L-Score descending (the stable
// sort keeps vector-search order among equal L-Scores), filling in LScore
// for any result that didn't already request provenance detail.
func rerankByLScore(ctx context.Context, e *Engine, results []QueryResult) {
	for i := range results {
		if results[i].Provenance != nil {
			continue
		}
		prov, err := e.store.GetProvenance(ctx, results[i].Entry.ID)
		if err != nil {
			continue
		}
		results[i].Entry.LScore = prov.LScore
		results[i].Entry.LineageDepth = prov.LineageDepth
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Entry.LScore > results[j].Entry.LScore
	})
}
