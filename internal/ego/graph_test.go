package ego

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memcore/internal/store"
)

var errProvenanceNotFound = errors.New("provenance not found")

type fakeGraphSource struct {
	parents   map[string][]string
	children  map[string][]string
	causalOut map[string][]*store.CausalRelation
	causalIn  map[string][]*store.CausalRelation
	prov      map[string]*store.ProvenanceRecord
}

func (f fakeGraphSource) Parents(_ context.Context, id string) ([]string, error)  { return f.parents[id], nil }
func (f fakeGraphSource) Children(_ context.Context, id string) ([]string, error) { return f.children[id], nil }

func (f fakeGraphSource) GetProvenance(_ context.Context, id string) (*store.ProvenanceRecord, error) {
	if p, ok := f.prov[id]; ok {
		return p, nil
	}
	return nil, errProvenanceNotFound // caller defaults the edge weight on error.
}

func (f fakeGraphSource) RelationsFrom(_ context.Context, id string, _ []store.RelationType) ([]*store.CausalRelation, error) {
	return f.causalOut[id], nil
}

func (f fakeGraphSource) RelationsTo(_ context.Context, id string, _ []store.RelationType) ([]*store.CausalRelation, error) {
	return f.causalIn[id], nil
}

func TestBuildEgoGraphCombinesProvenanceAndCausal(t *testing.T) {
	src := fakeGraphSource{
		parents:  map[string][]string{"center": {"p1"}},
		children: map[string][]string{"center": {"c1"}},
		causalOut: map[string][]*store.CausalRelation{
			"center": {{Strength: 0.8, Type: store.RelationCauses, Targets: []string{"t1"}}},
		},
		prov: map[string]*store.ProvenanceRecord{},
	}

	nodes, err := BuildEgoGraph(context.Background(), src, "center", 2, 50)
	require.NoError(t, err)

	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.EntryID] = true
		require.Equal(t, 1, n.HopDistance)
	}
	require.True(t, ids["p1"])
	require.True(t, ids["c1"])
	require.True(t, ids["t1"])
}

func TestBuildEgoGraphRespectsPerHopCap(t *testing.T) {
	src := fakeGraphSource{
		causalOut: map[string][]*store.CausalRelation{
			"center": {{Strength: 1, Targets: []string{"a", "b", "c", "d"}}},
		},
	}

	nodes, err := BuildEgoGraph(context.Background(), src, "center", 1, 2)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
}

func TestBuildEgoGraphVisitsEachNodeOnce(t *testing.T) {
	src := fakeGraphSource{
		causalOut: map[string][]*store.CausalRelation{
			"center": {{Strength: 1, Targets: []string{"a", "b"}}},
			"a":      {{Strength: 1, Targets: []string{"c"}}},
			"b":      {{Strength: 1, Targets: []string{"c"}}},
		},
	}

	nodes, err := BuildEgoGraph(context.Background(), src, "center", 3, 50)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, n := range nodes {
		seen[n.EntryID]++
	}
	require.Equal(t, 1, seen["c"])
}
