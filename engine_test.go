package memcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memcore/internal/ego"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Vector.Dimension = 0

	_, err := New(context.Background(), cfg, &fakeEmbedder{dim: 8})
	require.Error(t, err)
}

func TestInitializeAndCloseIsIdempotentSafe(t *testing.T) {
	ctx := context.Background()
	eng, err := New(ctx, testConfig(t), &fakeEmbedder{dim: 8})
	require.NoError(t, err)

	require.NoError(t, eng.Initialize(ctx))
	require.NoError(t, eng.Initialize(ctx)) // starting twice is a no-op, not an error.
	require.NoError(t, eng.Close(ctx))
}

func TestEgoProjectionWeightsPersistAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	first, err := New(ctx, cfg, &fakeEmbedder{dim: 8})
	require.NoError(t, err)
	require.NoError(t, first.Initialize(ctx))

	raw, ok, err := first.store.GetMetadata(ctx, metaKeyProjectionWeights)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, raw)
	require.NoError(t, first.Close(ctx))

	second, err := New(ctx, cfg, &fakeEmbedder{dim: 8})
	require.NoError(t, err)
	defer second.Close(ctx)

	rawAgain, ok, err := second.store.GetMetadata(ctx, metaKeyProjectionWeights)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, raw, rawAgain) // reloaded, not regenerated.
}

func TestWithAggregationMethodAttentionLoadsAttentionWeights(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	eng, err := New(ctx, cfg, &fakeEmbedder{dim: 8}, WithAggregationMethod(ego.MethodAttention))
	require.NoError(t, err)
	defer eng.Close(ctx)

	_, ok, err := eng.store.GetMetadata(ctx, metaKeyAttentionWeights)
	require.NoError(t, err)
	require.True(t, ok)
}
