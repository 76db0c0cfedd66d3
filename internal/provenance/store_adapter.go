package provenance

import (
	"context"

	"github.com/fyrsmithlabs/memcore/internal/store"
)

// StoreEdgeSource adapts *store.Store to the EdgeSource interface the BFS
// traversal depends on, translating between store.RelationType and the
// plain strings callers pass when restricting a causal query.
type StoreEdgeSource struct {
	Store *store.Store
}

func (s StoreEdgeSource) RelationsFrom(ctx context.Context, entryID string, relationTypes []string) ([]Edge, error) {
	relations, err := s.Store.RelationsFrom(ctx, entryID, toRelationTypes(relationTypes))
	if err != nil {
		return nil, err
	}
	return toEdges(relations), nil
}

func (s StoreEdgeSource) RelationsTo(ctx context.Context, entryID string, relationTypes []string) ([]Edge, error) {
	relations, err := s.Store.RelationsTo(ctx, entryID, toRelationTypes(relationTypes))
	if err != nil {
		return nil, err
	}
	return toEdges(relations), nil
}

func toRelationTypes(types []string) []store.RelationType {
	if len(types) == 0 {
		return nil
	}
	out := make([]store.RelationType, len(types))
	for i, t := range types {
		out[i] = store.RelationType(t)
	}
	return out
}

func toEdges(relations []*store.CausalRelation) []Edge {
	edges := make([]Edge, len(relations))
	for i, r := range relations {
		edges[i] = Edge{
			RelationID: r.ID,
			Type:       string(r.Type),
			Strength:   r.Strength,
			Sources:    r.Sources,
			Targets:    r.Targets,
		}
	}
	return edges
}

// ExpireCausal deletes causal relations whose TTL has elapsed and returns
// how many were removed.
func ExpireCausal(ctx context.Context, s *store.Store) (int, error) {
	return s.ExpireCausalRelations(ctx)
}
