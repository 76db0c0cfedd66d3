package ego

import (
	"fmt"
	"math"
)

// Activation is one of the supported MLP nonlinearities.
type Activation string

const (
	ActivationReLU Activation = "relu"
	ActivationGELU Activation = "gelu"
	ActivationTanh Activation = "tanh"
	ActivationNone Activation = "none"
)

// Projection is a two-layer MLP: Linear(inDim, hidden) -> activation ->
// Linear(hidden, outDim), with weights loaded as flat row-major matrices.
type Projection struct {
	InDim, Hidden, OutDim int
	Activation            Activation
	Weights1              []float32 // hidden x inDim
	Bias1                 []float32 // hidden
	Weights2              []float32 // outDim x hidden
	Bias2                 []float32 // outDim
	Residual              bool
	Normalize             bool
}

// Forward runs the projection on a single input vector of length InDim,
// returning a vector of length OutDim.
func (p *Projection) Forward(input []float32) ([]float32, error) {
	if len(input) != p.InDim {
		return nil, fmt.Errorf("projection input dim %d, want %d", len(input), p.InDim)
	}

	hidden := make([]float32, p.Hidden)
	for h := 0; h < p.Hidden; h++ {
		var sum float64
		row := p.Weights1[h*p.InDim : (h+1)*p.InDim]
		for i := 0; i < p.InDim; i++ {
			sum += float64(row[i]) * float64(input[i])
		}
		sum += float64(p.Bias1[h])
		hidden[h] = activate(float32(sum), p.Activation)
	}

	out := make([]float32, p.OutDim)
	for o := 0; o < p.OutDim; o++ {
		var sum float64
		row := p.Weights2[o*p.Hidden : (o+1)*p.Hidden]
		for h := 0; h < p.Hidden; h++ {
			sum += float64(row[h]) * float64(hidden[h])
		}
		sum += float64(p.Bias2[o])
		out[o] = float32(sum)
	}

	if p.Residual {
		for i := 0; i < p.InDim && i < p.OutDim; i++ {
			out[i] += input[i]
		}
	}

	if p.Normalize {
		normalizeInPlace(out)
	}
	return out, nil
}

func activate(x float32, a Activation) float32 {
	switch a {
	case ActivationReLU:
		if x < 0 {
			return 0
		}
		return x
	case ActivationGELU:
		// Tanh approximation of GELU.
		xf := float64(x)
		inner := math.Sqrt(2/math.Pi) * (xf + 0.044715*xf*xf*xf)
		return float32(0.5 * xf * (1 + math.Tanh(inner)))
	case ActivationTanh:
		return float32(math.Tanh(float64(x)))
	case ActivationNone:
		return x
	default:
		return x
	}
}

func normalizeInPlace(v []float32) {
	var sumSq float64
	for _, f := range v {
		sumSq += float64(f) * float64(f)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
