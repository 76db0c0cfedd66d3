package main

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// hashEmbedder is a deterministic, backend-free stand-in for a real
// embedding model: it expands a SHA-256 digest of the input text into a
// unit-norm vector of the configured dimension. The Memory Core's
// Non-goals exclude building an embedding model of its own; this exists
// only so the CLI is usable against a store with no external embedding
// service configured, and produces stable (if semantically meaningless)
// vectors for smoke-testing store/query round trips.
type hashEmbedder struct {
	dimension int
}

func (h hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return hashVector(text, h.dimension), nil
}

func (h hashEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t, h.dimension)
	}
	return out, nil
}

func hashVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(text)
	var sumSq float64
	for i := 0; i < dim; i += 8 {
		h := sha256.Sum256(append(seed, byte(i>>8), byte(i)))
		for j := 0; j < 8 && i+j < dim; j++ {
			bits := binary.LittleEndian.Uint32(h[j*4 : j*4+4])
			v := float32(bits)/float32(math.MaxUint32)*2 - 1
			vec[i+j] = v
			sumSq += float64(v) * float64(v)
		}
	}
	norm := float32(math.Sqrt(sumSq))
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
