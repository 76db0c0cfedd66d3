package ego

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/memcore/internal/config"
	"github.com/fyrsmithlabs/memcore/internal/vectorindex"
)

// Result is the output of enhancing a single entry: its aggregated and
// projected embedding, plus the ego graph that produced it.
type Result struct {
	EntryID   string
	Embedding []float32
	Graph     []Node
	Cached    bool
}

// LabelSource resolves an entry id to its index label, letting the enhancer
// load neighbor embeddings from the index without depending on the
// persistent store directly.
type LabelSource interface {
	LabelFor(ctx context.Context, entryID string) (int64, bool, error)
}

// Enhancer wires ego-graph extraction, message-passing aggregation, MLP
// projection, and an LRU cache into the enhanceEntry operation.
type Enhancer struct {
	graphSrc   GraphSource
	labels     LabelSource
	index      *vectorindex.Index
	cache      *Cache
	cfg        config.EgoConfig
	method     Method
	attn       *AttentionWeights
	projection *Projection
}

// NewEnhancer constructs an Enhancer. attn may be nil unless method is
// attention; projection must be loaded (its weights set) before use.
func NewEnhancer(graphSrc GraphSource, labels LabelSource, index *vectorindex.Index, cfg config.EgoConfig, method Method, attn *AttentionWeights, projection *Projection) (*Enhancer, error) {
	cache, err := NewCache(cfg.CacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("new ego cache: %w", err)
	}
	return &Enhancer{
		graphSrc: graphSrc, labels: labels, index: index, cache: cache,
		cfg: cfg, method: method, attn: attn, projection: projection,
	}, nil
}

// EnhanceEntry builds the ego graph for id, aggregates neighbor embeddings
// with the center, projects 768->1024, and caches the result. A cache hit
// short-circuits graph extraction and projection entirely.
func (e *Enhancer) EnhanceEntry(ctx context.Context, id string) (*Result, error) {
	if cached, ok := e.cache.Get(id); ok {
		hit := *cached
		hit.Cached = true
		return &hit, nil
	}

	centerLabel, ok, err := e.labels.LabelFor(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil // pending_embedding entries have nothing to enhance yet.
	}
	center, ok := e.index.GetVector(centerLabel)
	if !ok {
		return nil, fmt.Errorf("label %d missing from index for entry %s", centerLabel, id)
	}

	nodes, err := BuildEgoGraph(ctx, e.graphSrc, id, e.cfg.MaxHops, e.cfg.MaxNeighborsPerHop)
	if err != nil {
		return nil, fmt.Errorf("build ego graph: %w", err)
	}

	for i := range nodes {
		label, ok, err := e.labels.LabelFor(ctx, nodes[i].EntryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if v, ok := e.index.GetVector(label); ok {
			nodes[i].Embedding = v
			nodes[i].HasEmbedding = true
		}
	}

	aggregated, err := Aggregate(center, nodes, e.method, e.cfg.DistanceDecay, e.cfg.SelfLoopWeight, e.attn)
	if err != nil {
		return nil, fmt.Errorf("aggregate neighbors: %w", err)
	}

	projected, err := e.projection.Forward(aggregated)
	if err != nil {
		return nil, fmt.Errorf("project embedding: %w", err)
	}

	result := &Result{EntryID: id, Embedding: projected, Graph: nodes}
	e.cache.Put(id, result)
	return result, nil
}

// Invalidate drops any cached enhancement for id, called when its embedding
// or neighborhood changes.
func (e *Enhancer) Invalidate(id string) {
	e.cache.Invalidate(id)
}
