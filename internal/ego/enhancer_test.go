package ego

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memcore/internal/config"
	"github.com/fyrsmithlabs/memcore/internal/store"
	"github.com/fyrsmithlabs/memcore/internal/vectorindex"
)

type fakeLabelSource struct {
	labels map[string]int64
}

func (f fakeLabelSource) LabelFor(_ context.Context, entryID string) (int64, bool, error) {
	label, ok := f.labels[entryID]
	return label, ok, nil
}

func unitVec(dim int, seed float32) []float32 {
	v := make([]float32, dim)
	v[0] = seed
	v[1] = 1
	var sumSq float64
	for _, f := range v {
		sumSq += float64(f) * float64(f)
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range v {
		v[i] /= norm
	}
	return v
}

func testProjectionConfig(cfg config.EgoConfig) *Projection {
	w1 := make([]float32, cfg.ProjectionHidden*cfg.ProjectionInputDim)
	for i := 0; i < cfg.ProjectionHidden && i < cfg.ProjectionInputDim; i++ {
		w1[i*cfg.ProjectionInputDim+i] = 1
	}
	w2 := make([]float32, cfg.ProjectionOutDim*cfg.ProjectionHidden)
	for i := 0; i < cfg.ProjectionOutDim && i < cfg.ProjectionHidden; i++ {
		w2[i*cfg.ProjectionHidden+i] = 1
	}
	return &Projection{
		InDim: cfg.ProjectionInputDim, Hidden: cfg.ProjectionHidden, OutDim: cfg.ProjectionOutDim,
		Activation: ActivationReLU,
		Weights1:   w1, Bias1: make([]float32, cfg.ProjectionHidden),
		Weights2:   w2, Bias2: make([]float32, cfg.ProjectionOutDim),
		Residual:  true,
		Normalize: true,
	}
}

func TestEnhanceEntryProducesNormalizedProjectedDimension(t *testing.T) {
	ctx := context.Background()
	dim := 768

	idx := vectorindex.New(dim, vectorindex.DefaultNormTolerance)
	require.NoError(t, idx.Add(1, unitVec(dim, 0.1)))
	require.NoError(t, idx.Add(2, unitVec(dim, 0.9)))

	src := fakeGraphSource{
		causalOut: map[string][]*store.CausalRelation{
			"center": {{Strength: 0.8, Targets: []string{"neighbor"}}},
		},
	}
	labels := fakeLabelSource{labels: map[string]int64{"center": 1, "neighbor": 2}}

	cfg := config.EgoConfig{
		MaxHops: 2, MaxNeighborsPerHop: 50, DistanceDecay: 0.7, SelfLoopWeight: 0.5,
		CacheCapacity: 10, ProjectionInputDim: dim, ProjectionHidden: 512, ProjectionOutDim: 1024,
	}
	projection := testProjectionConfig(cfg)

	enh, err := NewEnhancer(src, labels, idx, cfg, MethodMean, nil, projection)
	require.NoError(t, err)

	result, err := enh.EnhanceEntry(ctx, "center")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Embedding, 1024)

	var norm float64
	for _, f := range result.Embedding {
		norm += float64(f) * float64(f)
	}
	require.InDelta(t, 1.0, norm, 1e-6)
}

func TestEnhanceEntryCacheHitShortCircuits(t *testing.T) {
	ctx := context.Background()
	dim := 8

	idx := vectorindex.New(dim, vectorindex.DefaultNormTolerance)
	require.NoError(t, idx.Add(1, unitVec(dim, 0.1)))

	src := fakeGraphSource{}
	labels := fakeLabelSource{labels: map[string]int64{"center": 1}}
	cfg := config.EgoConfig{
		MaxHops: 2, MaxNeighborsPerHop: 50, DistanceDecay: 0.7, SelfLoopWeight: 0.5,
		CacheCapacity: 10, ProjectionInputDim: dim, ProjectionHidden: dim, ProjectionOutDim: dim,
	}
	projection := testProjectionConfig(cfg)

	enh, err := NewEnhancer(src, labels, idx, cfg, MethodMean, nil, projection)
	require.NoError(t, err)

	first, err := enh.EnhanceEntry(ctx, "center")
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := enh.EnhanceEntry(ctx, "center")
	require.NoError(t, err)
	require.True(t, second.Cached)
}

func TestEnhanceEntryReturnsNilForPendingEmbedding(t *testing.T) {
	ctx := context.Background()
	idx := vectorindex.New(8, vectorindex.DefaultNormTolerance)
	labels := fakeLabelSource{labels: map[string]int64{}}
	cfg := config.EgoConfig{MaxHops: 1, MaxNeighborsPerHop: 10, DistanceDecay: 0.7, SelfLoopWeight: 0.5, CacheCapacity: 10,
		ProjectionInputDim: 8, ProjectionHidden: 8, ProjectionOutDim: 8}
	projection := testProjectionConfig(cfg)

	enh, err := NewEnhancer(fakeGraphSource{}, labels, idx, cfg, MethodMean, nil, projection)
	require.NoError(t, err)

	result, err := enh.EnhanceEntry(ctx, "pending-entry")
	require.NoError(t, err)
	require.Nil(t, result)
}
