package ego

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
)

// weightsBlob is the flat serialization of a Projection's learned weights,
// matching the "loadable artifact" contract in the component design:
// weights1, bias1, weights2, bias2 persisted as one JSON row.
type weightsBlob struct {
	InDim      int        `json:"in_dim"`
	Hidden     int        `json:"hidden"`
	OutDim     int        `json:"out_dim"`
	Activation Activation `json:"activation"`
	Weights1   []float32  `json:"weights1"`
	Bias1      []float32  `json:"bias1"`
	Weights2   []float32  `json:"weights2"`
	Bias2      []float32  `json:"bias2"`
	Residual   bool       `json:"residual"`
	Normalize  bool       `json:"normalize"`
}

// MarshalWeights serializes p's weights to the flat JSON form stored in
// system_metadata.
func (p *Projection) MarshalWeights() ([]byte, error) {
	return json.Marshal(weightsBlob{
		InDim: p.InDim, Hidden: p.Hidden, OutDim: p.OutDim, Activation: p.Activation,
		Weights1: p.Weights1, Bias1: p.Bias1, Weights2: p.Weights2, Bias2: p.Bias2,
		Residual: p.Residual, Normalize: p.Normalize,
	})
}

// UnmarshalProjectionWeights loads a Projection from its flat JSON form.
func UnmarshalProjectionWeights(data []byte) (*Projection, error) {
	var blob weightsBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("unmarshal projection weights: %w", err)
	}
	return &Projection{
		InDim: blob.InDim, Hidden: blob.Hidden, OutDim: blob.OutDim, Activation: blob.Activation,
		Weights1: blob.Weights1, Bias1: blob.Bias1, Weights2: blob.Weights2, Bias2: blob.Bias2,
		Residual: blob.Residual, Normalize: blob.Normalize,
	}, nil
}

// NewProjection builds a fresh Projection with Xavier/Glorot-uniform
// initialized weights, sized inDim -> hidden -> outDim. Training the projection is out of
// scope (weights are a loadable artifact per the spec's non-goals); this
// gives a store its first usable set of weights before any are loaded from
// system_metadata.
func NewProjection(inDim, hidden, outDim int, activation Activation, residual, normalize bool, rng *rand.Rand) *Projection {
	return &Projection{
		InDim: inDim, Hidden: hidden, OutDim: outDim, Activation: activation,
		Weights1: glorotUniform(hidden, inDim, rng),
		Bias1:    make([]float32, hidden),
		Weights2: glorotUniform(outDim, hidden, rng),
		Bias2:    make([]float32, outDim),
		Residual: residual, Normalize: normalize,
	}
}

// NewAttentionWeights builds fresh attention query/key projections for
// attention-method aggregation, sized attentionDim x dim.
func NewAttentionWeights(attentionDim, dim int, rng *rand.Rand) *AttentionWeights {
	return &AttentionWeights{
		Query: glorotUniform(attentionDim, dim, rng),
		Key:   glorotUniform(attentionDim, dim, rng),
		Dim:   attentionDim,
	}
}

// glorotUniform fills a rows x cols row-major matrix with uniform values in
// [-limit, limit], limit = sqrt(6 / (fanIn + fanOut)).
func glorotUniform(rows, cols int, rng *rand.Rand) []float32 {
	limit := math.Sqrt(6.0 / float64(rows+cols))
	out := make([]float32, rows*cols)
	for i := range out {
		out[i] = float32((rng.Float64()*2 - 1) * limit)
	}
	return out
}
