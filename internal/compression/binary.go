package compression

import (
	"math"

	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

// frozenMagnitude is the fixed decode magnitude for the FROZEN tier: each
// dimension reconstructs to ±frozenMagnitude depending on its sign bit, and
// the result is re-normalized to unit length. Similarity computed on FROZEN
// vectors is therefore approximate.
const frozenMagnitude = 0.1

// EncodeBinary packs one sign bit per dimension, 8 dims per byte.
func EncodeBinary(v []float32) []byte {
	out := make([]byte, (len(v)+7)/8)
	for i, f := range v {
		if f >= 0 {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// DecodeBinary reconstructs an approximate unit vector from its FROZEN-tier
// sign bits: each dimension decodes to +frozenMagnitude or -frozenMagnitude,
// then the whole vector is re-normalized to unit length.
func DecodeBinary(data []byte, dimension int) ([]float32, error) {
	if len(data) != (dimension+7)/8 {
		return nil, &memerr.DimensionMismatch{Got: len(data) * 8, Want: dimension}
	}

	out := make([]float32, dimension)
	for i := 0; i < dimension; i++ {
		bit := data[i/8] >> uint(i%8) & 1
		if bit == 1 {
			out[i] = frozenMagnitude
		} else {
			out[i] = -frozenMagnitude
		}
	}

	var sumSq float64
	for _, f := range out {
		sumSq += float64(f) * float64(f)
	}
	norm := math.Sqrt(sumSq)
	if norm > 0 {
		for i := range out {
			out[i] = float32(float64(out[i]) / norm)
		}
	}
	return out, nil
}
