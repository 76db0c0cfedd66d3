package memcore

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memcore/internal/config"
)

// fakeEmbedder deterministically maps text to a unit vector so store/query
// round trips are reproducible without a real embedding backend.
type fakeEmbedder struct {
	dim       int
	failOn    map[string]bool
	callCount int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.callCount++
	if f.failOn[text] {
		return nil, errFakeEmbed
	}
	return hashedUnitVector(text, f.dim), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

var errFakeEmbed = errFake("fake embed failure")

type errFake string

func (e errFake) Error() string { return string(e) }

// hashedUnitVector expands text into a reproducible unit-norm vector: two
// distinct strings differ in at least one component unless their base-31
// hash collides modulo 2^31, which is good enough for test fixtures.
func hashedUnitVector(text string, dim int) []float32 {
	v := make([]float32, dim)
	seed := 1.0
	for _, b := range []byte(text) {
		seed = math.Mod(seed*31+float64(b), 1<<31)
	}
	var sumSq float64
	for i := 0; i < dim; i++ {
		seed = math.Mod(seed*1103515245+12345, 1<<31)
		x := float32(seed/float64(1<<31))*2 - 1
		v[i] = x
		sumSq += float64(x) * float64(x)
	}
	norm := float32(math.Sqrt(sumSq))
	if norm == 0 {
		norm = 1
	}
	for i := range v {
		v[i] /= norm
	}
	return v
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.DataDir = t.TempDir()
	cfg.Vector.Dimension = 8
	cfg.Compression.NumSubvectors = 4
	cfg.Compression.MinVectorsForCompression = 1_000_000 // keep every test vector HOT
	cfg.Compression.EvaluationInterval = config.Duration(time.Hour)
	cfg.Ego.ProjectionInputDim = 8
	cfg.Ego.ProjectionHidden = 16
	cfg.Ego.ProjectionOutDim = 8
	cfg.Ego.AttentionDim = 4
	cfg.Queue.MaxQueueSize = 100
	cfg.Queue.BatchSize = 10
	cfg.Queue.FlushInterval = config.Duration(20 * time.Millisecond)
	cfg.Queue.MaxFailures = 5
	return cfg
}

func newTestEngine(t *testing.T, embedder Embedder) *Engine {
	t.Helper()
	ctx := context.Background()
	eng, err := New(ctx, testConfig(t), embedder)
	require.NoError(t, err)
	require.NoError(t, eng.Initialize(ctx))
	t.Cleanup(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eng.Close(closeCtx)
	})
	return eng
}
