// Package ego builds the bounded k-hop neighborhood of an entry ("ego
// graph"), aggregates its neighbors' embeddings via configurable message
// passing, and projects the result into a higher-dimensional enhanced
// representation for richer retrieval.
package ego

import (
	"context"

	"github.com/fyrsmithlabs/memcore/internal/store"
)

// Node is one member of an ego graph: a neighbor (or the center itself) with
// its hop distance, an edge weight proxy, and the relation that reached it.
type Node struct {
	EntryID      string
	HopDistance  int
	EdgeWeight   float64
	RelationType string // "provenance" for a provenance edge, else the causal relation type.
	Embedding    []float32
	HasEmbedding bool
}

// GraphSource resolves the edges an ego graph walks: causal relations in
// either direction and provenance parent/child links in either direction.
type GraphSource interface {
	Parents(ctx context.Context, entryID string) ([]string, error)
	Children(ctx context.Context, entryID string) ([]string, error)
	GetProvenance(ctx context.Context, entryID string) (*store.ProvenanceRecord, error)
	RelationsFrom(ctx context.Context, entryID string, relationTypes []store.RelationType) ([]*store.CausalRelation, error)
	RelationsTo(ctx context.Context, entryID string, relationTypes []store.RelationType) ([]*store.CausalRelation, error)
}

// BuildEgoGraph extracts the union of causal and provenance neighbors of
// center up to maxHops, capping each hop to maxNeighborsPerHop entries and
// visiting each node at most once (breadth-first, same discipline as causal
// traversal).
func BuildEgoGraph(ctx context.Context, src GraphSource, center string, maxHops, maxNeighborsPerHop int) ([]Node, error) {
	visited := map[string]bool{center: true}
	frontier := []string{center}
	var nodes []Node

	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			if len(next) >= maxNeighborsPerHop {
				break
			}
			select {
			case <-ctx.Done():
				return nodes, ctx.Err()
			default:
			}
			neighbors, err := neighborsOf(ctx, src, id)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if len(next) >= maxNeighborsPerHop {
					break
				}
				if visited[n.EntryID] {
					continue
				}
				visited[n.EntryID] = true
				n.HopDistance = hop
				nodes = append(nodes, n)
				next = append(next, n.EntryID)
			}
		}
		frontier = next
	}
	return nodes, nil
}

type candidateEdge struct {
	EntryID      string
	EdgeWeight   float64
	RelationType string
}

func neighborsOf(ctx context.Context, src GraphSource, id string) ([]Node, error) {
	var candidates []candidateEdge

	forward, err := src.RelationsFrom(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	for _, r := range forward {
		for _, target := range r.Targets {
			candidates = append(candidates, candidateEdge{EntryID: target, EdgeWeight: r.Strength, RelationType: string(r.Type)})
		}
	}

	backward, err := src.RelationsTo(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	for _, r := range backward {
		for _, source := range r.Sources {
			candidates = append(candidates, candidateEdge{EntryID: source, EdgeWeight: r.Strength, RelationType: string(r.Type)})
		}
	}

	parents, err := src.Parents(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, parentID := range parents {
		candidates = append(candidates, candidateEdge{EntryID: parentID, EdgeWeight: provenanceWeight(ctx, src, id), RelationType: "provenance"})
	}

	children, err := src.Children(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, childID := range children {
		candidates = append(candidates, candidateEdge{EntryID: childID, EdgeWeight: provenanceWeight(ctx, src, childID), RelationType: "provenance"})
	}

	nodes := make([]Node, len(candidates))
	for i, c := range candidates {
		nodes[i] = Node{EntryID: c.EntryID, EdgeWeight: c.EdgeWeight, RelationType: c.RelationType}
	}
	return nodes, nil
}

// provenanceWeight uses confidence*relevance recorded on entryID as the
// proxy edge weight for a provenance link touching it, per the component's
// "provenance confidence proxy" contract. A missing record (e.g. a root with
// no recorded confidence) defaults to a neutral weight of 1.0.
func provenanceWeight(ctx context.Context, src GraphSource, entryID string) float64 {
	p, err := src.GetProvenance(ctx, entryID)
	if err != nil {
		return 1.0
	}
	return p.Confidence * p.Relevance
}
