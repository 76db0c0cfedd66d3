package provenance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

func TestComputeRootHasNoParents(t *testing.T) {
	lScore, depth := Compute(nil, 0.85)
	require.Equal(t, RootLScore, lScore)
	require.Equal(t, 0, depth)
}

func TestComputeMiddleEntryAboveThreshold(t *testing.T) {
	edges := []ParentEdge{
		{Parent: ParentInfo{LScore: RootLScore, Depth: 0}, Confidence: 0.8, Relevance: 0.8},
	}
	lScore, depth := Compute(edges, 0.85)
	require.Equal(t, 1, depth)
	require.GreaterOrEqual(t, lScore, 0.3)
	require.NoError(t, Gate(lScore, 0.3, true))
}

func TestComputeLeafBelowThresholdIsRejected(t *testing.T) {
	middle := ParentInfo{LScore: 0.64, Depth: 1} // matches the prior scenario's rollup (aggregateQ=0.64, parentFactor=1, decay^0=1).
	edges := []ParentEdge{
		{Parent: middle, Confidence: 0.2, Relevance: 0.2},
	}
	lScore, depth := Compute(edges, 0.85)
	require.Equal(t, 2, depth)

	err := Gate(lScore, 0.3, true)
	var thresholdErr *memerr.ProvenanceThresholdError
	require.ErrorAs(t, err, &thresholdErr)
	require.Equal(t, 0.3, thresholdErr.Threshold)
}

func TestGateDisabledNeverRejects(t *testing.T) {
	require.NoError(t, Gate(0.0, 0.99, false))
}

func TestComputeMultipleParentsAveragesFactors(t *testing.T) {
	edges := []ParentEdge{
		{Parent: ParentInfo{LScore: 1.0, Depth: 0}, Confidence: 1.0, Relevance: 1.0},
		{Parent: ParentInfo{LScore: 0.5, Depth: 2}, Confidence: 0.5, Relevance: 0.5},
	}
	lScore, depth := Compute(edges, 1.0) // no decay, isolate the averaging.
	require.Equal(t, 3, depth)           // 1 + max(0, 2)

	wantAggregateQ := (1.0 + 0.25) / 2
	wantParentFactor := (1.0 + 0.5) / 2
	require.InDelta(t, wantAggregateQ*wantParentFactor, lScore, 1e-9)
}

// fakeEdgeSource is an in-memory EdgeSource for exercising the BFS without a
// real store.
type fakeEdgeSource struct {
	forward  map[string][]Edge
	backward map[string][]Edge
}

func (f fakeEdgeSource) RelationsFrom(_ context.Context, entryID string, _ []string) ([]Edge, error) {
	return f.forward[entryID], nil
}

func (f fakeEdgeSource) RelationsTo(_ context.Context, entryID string, _ []string) ([]Edge, error) {
	return f.backward[entryID], nil
}

func TestQueryCausalForwardBFS(t *testing.T) {
	src := fakeEdgeSource{
		forward: map[string][]Edge{
			"a": {{Strength: 0.9, Targets: []string{"b"}}},
			"b": {{Strength: 0.5, Targets: []string{"c"}}},
		},
	}

	paths, err := QueryCausal(context.Background(), src, []string{"a"}, DirectionForward, 2, nil)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	byID := make(map[string]Path, len(paths))
	for _, p := range paths {
		byID[p.EntryID] = p
	}
	require.Equal(t, 1, byID["b"].Depth)
	require.InDelta(t, 0.9, byID["b"].TotalStrength, 1e-9)
	require.Equal(t, 2, byID["c"].Depth)
	require.InDelta(t, 0.9*0.5, byID["c"].TotalStrength, 1e-9)
}

func TestQueryCausalVisitsEachNodeAtMostOnce(t *testing.T) {
	// a -> b, a -> c, b -> d, c -> d: d is reachable via two paths but must
	// appear exactly once in the results.
	src := fakeEdgeSource{
		forward: map[string][]Edge{
			"a": {{Strength: 1, Targets: []string{"b", "c"}}},
			"b": {{Strength: 1, Targets: []string{"d"}}},
			"c": {{Strength: 1, Targets: []string{"d"}}},
		},
	}

	paths, err := QueryCausal(context.Background(), src, []string{"a"}, DirectionForward, 5, nil)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, p := range paths {
		seen[p.EntryID]++
	}
	require.Equal(t, 1, seen["d"])
	require.Equal(t, 1, seen["b"])
	require.Equal(t, 1, seen["c"])
}

func TestQueryCausalHandlesCycles(t *testing.T) {
	// a -> b -> a: a cycle, which causal graphs permit but BFS must not loop on.
	src := fakeEdgeSource{
		forward: map[string][]Edge{
			"a": {{Strength: 0.9, Targets: []string{"b"}}},
			"b": {{Strength: 0.9, Targets: []string{"a"}}},
		},
	}

	paths, err := QueryCausal(context.Background(), src, []string{"a"}, DirectionForward, 10, nil)
	require.NoError(t, err)
	require.Len(t, paths, 1) // only "b" is newly reachable; "a" is the start node.
	require.Equal(t, "b", paths[0].EntryID)
}

func TestQueryCausalRespectsMaxDepth(t *testing.T) {
	src := fakeEdgeSource{
		forward: map[string][]Edge{
			"a": {{Strength: 1, Targets: []string{"b"}}},
			"b": {{Strength: 1, Targets: []string{"c"}}},
		},
	}

	paths, err := QueryCausal(context.Background(), src, []string{"a"}, DirectionForward, 1, nil)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.Equal(t, "b", paths[0].EntryID)
}

func TestQueryCausalBackwardDirection(t *testing.T) {
	src := fakeEdgeSource{
		backward: map[string][]Edge{
			"c": {{Strength: 0.7, Sources: []string{"b"}}},
			"b": {{Strength: 0.6, Sources: []string{"a"}}},
		},
	}

	paths, err := QueryCausal(context.Background(), src, []string{"c"}, DirectionBackward, 2, nil)
	require.NoError(t, err)
	require.Len(t, paths, 2)
}

func TestQueryCausalBothDirections(t *testing.T) {
	src := fakeEdgeSource{
		forward:  map[string][]Edge{"a": {{Strength: 1, Targets: []string{"b"}}}},
		backward: map[string][]Edge{"a": {{Strength: 1, Sources: []string{"z"}}}},
	}

	paths, err := QueryCausal(context.Background(), src, []string{"a"}, DirectionBoth, 1, nil)
	require.NoError(t, err)
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		ids = append(ids, p.EntryID)
	}
	require.ElementsMatch(t, []string{"b", "z"}, ids)
}

func TestQueryCausalRejectsNegativeDepth(t *testing.T) {
	_, err := QueryCausal(context.Background(), fakeEdgeSource{}, []string{"a"}, DirectionForward, -1, nil)
	require.Error(t, err)
}

func TestQueryCausalZeroDepthReturnsNoNeighbors(t *testing.T) {
	src := fakeEdgeSource{forward: map[string][]Edge{"a": {{Strength: 1, Targets: []string{"b"}}}}}
	paths, err := QueryCausal(context.Background(), src, []string{"a"}, DirectionForward, 0, nil)
	require.NoError(t, err)
	require.Empty(t, paths)
}
