package compression

import (
	"github.com/x448/float16"

	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

// EncodeFloat16 converts a unit vector to IEEE half-precision for the WARM
// tier. Max elementwise reconstruction error stays within 0.01 for
// unit-normalized inputs, per half-precision's ~3 decimal digits.
func EncodeFloat16(v []float32) []byte {
	out := make([]byte, len(v)*2)
	for i, f := range v {
		bits := float16.Fromfloat32(f).Bits()
		out[i*2] = byte(bits)
		out[i*2+1] = byte(bits >> 8)
	}
	return out
}

// DecodeFloat16 reconstructs a float32 vector from its WARM-tier encoding.
func DecodeFloat16(data []byte, dimension int) ([]float32, error) {
	if len(data) != dimension*2 {
		return nil, &memerr.DimensionMismatch{Got: len(data) / 2, Want: dimension}
	}
	out := make([]float32, dimension)
	for i := range out {
		bits := uint16(data[i*2]) | uint16(data[i*2+1])<<8
		out[i] = float16.Frombits(bits).Float32()
	}
	return out, nil
}
