package memcore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAddAndQueryCausalRelationForward(t *testing.T) {
	eng := newTestEngine(t, &fakeEmbedder{dim: 8})
	ctx := context.Background()

	cause, err := eng.Store(ctx, "cause event", StoreOptions{Source: "user", Importance: 0.5})
	require.NoError(t, err)
	effect, err := eng.Store(ctx, "effect event", StoreOptions{Source: "user", Importance: 0.5})
	require.NoError(t, err)

	rel, err := eng.AddCausalRelation(ctx, []string{cause.ID}, []string{effect.ID}, "causes", 0.8, 0)
	require.NoError(t, err)
	require.NotEmpty(t, rel.ID)

	paths, err := eng.QueryCausal(ctx, []string{cause.ID}, "forward", 3, nil)
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	found := false
	for _, p := range paths {
		if p.EntryID == effect.ID {
			found = true
			require.Equal(t, 1, p.Depth)
			require.InDelta(t, 0.8, p.TotalStrength, 1e-9)
		}
	}
	require.True(t, found, "expected effect entry reachable forward from cause")
}

func TestQueryCausalRespectsRelationTypeFilter(t *testing.T) {
	eng := newTestEngine(t, &fakeEmbedder{dim: 8})
	ctx := context.Background()

	a, err := eng.Store(ctx, "a", StoreOptions{Source: "user", Importance: 0.5})
	require.NoError(t, err)
	b, err := eng.Store(ctx, "b", StoreOptions{Source: "user", Importance: 0.5})
	require.NoError(t, err)

	_, err = eng.AddCausalRelation(ctx, []string{a.ID}, []string{b.ID}, "correlates", 0.5, 0)
	require.NoError(t, err)

	paths, err := eng.QueryCausal(ctx, []string{a.ID}, "forward", 3, []string{"causes"})
	require.NoError(t, err)
	for _, p := range paths {
		require.NotEqual(t, b.ID, p.EntryID)
	}
}

func TestExpireCausalRelationsRemovesElapsedTTL(t *testing.T) {
	eng := newTestEngine(t, &fakeEmbedder{dim: 8})
	ctx := context.Background()

	a, err := eng.Store(ctx, "a", StoreOptions{Source: "user", Importance: 0.5})
	require.NoError(t, err)
	b, err := eng.Store(ctx, "b", StoreOptions{Source: "user", Importance: 0.5})
	require.NoError(t, err)

	_, err = eng.AddCausalRelation(ctx, []string{a.ID}, []string{b.ID}, "causes", 0.5, 1)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond) // let the 1 ms TTL elapse.

	n, err := eng.expireCausalRelations(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, 1)
}
