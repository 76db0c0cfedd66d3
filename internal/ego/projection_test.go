package ego

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func identityProjection(inDim, hidden, outDim int, activation Activation, residual, normalize bool) *Projection {
	w1 := make([]float32, hidden*inDim)
	for i := 0; i < hidden && i < inDim; i++ {
		w1[i*inDim+i] = 1
	}
	w2 := make([]float32, outDim*hidden)
	for i := 0; i < outDim && i < hidden; i++ {
		w2[i*hidden+i] = 1
	}
	return &Projection{
		InDim: inDim, Hidden: hidden, OutDim: outDim, Activation: activation,
		Weights1: w1, Bias1: make([]float32, hidden),
		Weights2: w2, Bias2: make([]float32, outDim),
		Residual: residual, Normalize: normalize,
	}
}

func TestProjectionForwardOutputDimension(t *testing.T) {
	p := identityProjection(768, 512, 1024, ActivationReLU, false, false)
	input := make([]float32, 768)
	input[0] = 1

	out, err := p.Forward(input)
	require.NoError(t, err)
	require.Len(t, out, 1024)
}

func TestProjectionForwardRejectsDimensionMismatch(t *testing.T) {
	p := identityProjection(768, 512, 1024, ActivationReLU, false, false)
	_, err := p.Forward(make([]float32, 10))
	require.Error(t, err)
}

func TestProjectionNormalizeProducesUnitVector(t *testing.T) {
	p := identityProjection(8, 8, 8, ActivationNone, false, true)
	input := []float32{3, 4, 0, 0, 0, 0, 0, 0}

	out, err := p.Forward(input)
	require.NoError(t, err)

	var norm float64
	for _, f := range out {
		norm += float64(f) * float64(f)
	}
	require.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestProjectionResidualAddsInputDims(t *testing.T) {
	p := identityProjection(4, 4, 4, ActivationNone, true, false)
	for i := range p.Weights1 {
		p.Weights1[i] = 0 // zero the hidden layer so the output is pure residual.
	}
	for i := range p.Weights2 {
		p.Weights2[i] = 0
	}
	input := []float32{1, 2, 3, 4}

	out, err := p.Forward(input)
	require.NoError(t, err)
	require.Equal(t, input, out)
}

func TestActivationFunctions(t *testing.T) {
	require.Equal(t, float32(0), activate(-1, ActivationReLU))
	require.Equal(t, float32(2), activate(2, ActivationReLU))
	require.Equal(t, float32(5), activate(5, ActivationNone))
	require.InDelta(t, math.Tanh(1), activate(1, ActivationTanh), 1e-6)
}
