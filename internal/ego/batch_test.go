package ego

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memcore/internal/config"
	"github.com/fyrsmithlabs/memcore/internal/vectorindex"
)

func TestEnhanceBatchProcessesEveryID(t *testing.T) {
	dim := 8
	idx := vectorindex.New(dim, vectorindex.DefaultNormTolerance)
	require.NoError(t, idx.Add(1, unitVec(dim, 0.1)))
	require.NoError(t, idx.Add(2, unitVec(dim, 0.2)))
	require.NoError(t, idx.Add(3, unitVec(dim, 0.3)))

	labels := fakeLabelSource{labels: map[string]int64{"a": 1, "b": 2, "c": 3}}
	cfg := config.EgoConfig{
		MaxHops: 1, MaxNeighborsPerHop: 10, DistanceDecay: 0.7, SelfLoopWeight: 0.5,
		CacheCapacity: 10, ProjectionInputDim: dim, ProjectionHidden: dim, ProjectionOutDim: dim,
	}
	projection := testProjectionConfig(cfg)

	enh, err := NewEnhancer(fakeGraphSource{}, labels, idx, cfg, MethodMean, nil, projection)
	require.NoError(t, err)

	results, cancelled := enh.EnhanceBatch(context.Background(), []string{"a", "b", "c"}, 2)
	require.False(t, cancelled)
	require.Len(t, results, 3)
	for _, r := range results {
		require.NoError(t, r.Err)
		require.NotNil(t, r.Result)
	}
}

func TestEnhanceBatchStopsAtDeadline(t *testing.T) {
	dim := 8
	idx := vectorindex.New(dim, vectorindex.DefaultNormTolerance)
	require.NoError(t, idx.Add(1, unitVec(dim, 0.1)))

	labels := fakeLabelSource{labels: map[string]int64{"a": 1}}
	cfg := config.EgoConfig{
		MaxHops: 1, MaxNeighborsPerHop: 10, DistanceDecay: 0.7, SelfLoopWeight: 0.5,
		CacheCapacity: 10, ProjectionInputDim: dim, ProjectionHidden: dim, ProjectionOutDim: dim,
	}
	projection := testProjectionConfig(cfg)

	enh, err := NewEnhancer(fakeGraphSource{}, labels, idx, cfg, MethodMean, nil, projection)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, cancelled := enh.EnhanceBatch(ctx, []string{"a"}, 2)
	require.True(t, cancelled)
}
