package provenance

import (
	"context"
	"fmt"
)

// Direction controls which edge endpoint a causal query follows.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
	DirectionBoth     Direction = "both"
)

// Edge is the minimal view of a causal relation a BFS traversal needs: the
// entries it connects, its strength, and its type.
type Edge struct {
	RelationID string
	Type       string
	Strength   float64
	Sources    []string
	Targets    []string
}

// EdgeSource resolves the live (non-expired) outgoing and incoming edges
// for an entry. It is implemented by internal/store's causal relation
// queries; kept as an interface here so the BFS can be tested without a
// real database.
type EdgeSource interface {
	RelationsFrom(ctx context.Context, entryID string, relationTypes []string) ([]Edge, error)
	RelationsTo(ctx context.Context, entryID string, relationTypes []string) ([]Edge, error)
}

// Path is one BFS result: the node reached, the hop count to reach it, and
// the cumulative product of edge strengths along the path that reached it
// first (BFS guarantees this is the shortest hop count, though not
// necessarily the max-strength path).
type Path struct {
	EntryID      string
	Depth        int
	TotalStrength float64
}

// QueryCausal performs a breadth-first traversal from startIDs following
// direction up to maxDepth hops, skipping expired edges (EdgeSource is
// expected to have already filtered those out) and visiting each node at
// most once. relationTypes, if non-empty, restricts which edge types are
// followed.
func QueryCausal(ctx context.Context, src EdgeSource, startIDs []string, direction Direction, maxDepth int, relationTypes []string) ([]Path, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("maxDepth must be >= 0, got %d", maxDepth)
	}

	visited := make(map[string]bool, len(startIDs))
	var frontier []Path
	for _, id := range startIDs {
		if visited[id] {
			continue
		}
		visited[id] = true
		frontier = append(frontier, Path{EntryID: id, Depth: 0, TotalStrength: 1.0})
	}

	var results []Path
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []Path
		for _, node := range frontier {
			neighbors, err := neighborsOf(ctx, src, node, direction, relationTypes)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if visited[n.EntryID] {
					continue
				}
				visited[n.EntryID] = true
				path := Path{EntryID: n.EntryID, Depth: node.Depth + 1, TotalStrength: node.TotalStrength * n.edgeStrength}
				next = append(next, path)
				results = append(results, path)
			}
		}
		frontier = next
	}

	return results, nil
}

type neighborHit struct {
	EntryID      string
	edgeStrength float64
}

func neighborsOf(ctx context.Context, src EdgeSource, node Path, direction Direction, relationTypes []string) ([]neighborHit, error) {
	var hits []neighborHit

	if direction == DirectionForward || direction == DirectionBoth {
		edges, err := src.RelationsFrom(ctx, node.EntryID, relationTypes)
		if err != nil {
			return nil, fmt.Errorf("relations from %s: %w", node.EntryID, err)
		}
		for _, e := range edges {
			for _, target := range e.Targets {
				hits = append(hits, neighborHit{EntryID: target, edgeStrength: e.Strength})
			}
		}
	}

	if direction == DirectionBackward || direction == DirectionBoth {
		edges, err := src.RelationsTo(ctx, node.EntryID, relationTypes)
		if err != nil {
			return nil, fmt.Errorf("relations to %s: %w", node.EntryID, err)
		}
		for _, e := range edges {
			for _, source := range e.Sources {
				hits = append(hits, neighborHit{EntryID: source, edgeStrength: e.Strength})
			}
		}
	}

	return hits, nil
}
