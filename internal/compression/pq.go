package compression

import (
	"encoding/binary"
	"math"
	"math/rand"

	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

// ProductQuantizer splits a fixed-dimension vector into contiguous
// subvectors and encodes each independently against a trained codebook of
// centroids, per subvector.
type ProductQuantizer struct {
	Dimension     int
	NumSubvectors int
	SubvectorDim  int
	NumCentroids  int // 256 for PQ8 (one byte/subvector), 16 for PQ4 (packed nibbles).
	// Centroids is NumSubvectors * NumCentroids * SubvectorDim float32s,
	// laid out subvector-major then centroid-major.
	Centroids []float32
}

// NewProductQuantizer constructs an untrained quantizer shape. numCentroids
// should be 256 for the COOL (PQ8) tier or 16 for the COLD (PQ4) tier.
func NewProductQuantizer(dimension, numSubvectors, numCentroids int) (*ProductQuantizer, error) {
	if numSubvectors <= 0 || dimension%numSubvectors != 0 {
		return nil, &memerr.SubvectorShapeMismatch{Dimension: dimension, NumSubvectors: numSubvectors}
	}
	return &ProductQuantizer{
		Dimension:     dimension,
		NumSubvectors: numSubvectors,
		SubvectorDim:  dimension / numSubvectors,
		NumCentroids:  numCentroids,
	}, nil
}

// Train fits the codebook by k-means over vectors. When fewer than
// minTrainingSize vectors are supplied, centroids are seeded by random
// sampling from the data instead of iterating k-means to convergence.
func (pq *ProductQuantizer) Train(vectors [][]float32, iterations, minTrainingSize int, rng *rand.Rand) error {
	if len(vectors) == 0 {
		return &memerr.SubvectorShapeMismatch{Dimension: pq.Dimension, NumSubvectors: pq.NumSubvectors}
	}
	for _, v := range vectors {
		if len(v) != pq.Dimension {
			return &memerr.DimensionMismatch{Got: len(v), Want: pq.Dimension}
		}
	}

	pq.Centroids = make([]float32, pq.NumSubvectors*pq.NumCentroids*pq.SubvectorDim)

	for sub := 0; sub < pq.NumSubvectors; sub++ {
		subData := make([][]float32, len(vectors))
		for i, v := range vectors {
			subData[i] = v[sub*pq.SubvectorDim : (sub+1)*pq.SubvectorDim]
		}

		var centroids [][]float32
		if len(subData) < minTrainingSize {
			centroids = randomSampleCentroids(subData, pq.NumCentroids, rng)
		} else {
			centroids = kMeans(subData, pq.NumCentroids, iterations, rng)
		}

		for c, centroid := range centroids {
			copy(pq.centroidSlice(sub, c), centroid)
		}
	}
	return nil
}

// centroidSlice returns the mutable slice of floats for (subvector, centroid).
func (pq *ProductQuantizer) centroidSlice(sub, centroid int) []float32 {
	base := (sub*pq.NumCentroids + centroid) * pq.SubvectorDim
	return pq.Centroids[base : base+pq.SubvectorDim]
}

// Encode quantizes v into one centroid index per subvector.
func (pq *ProductQuantizer) Encode(v []float32) ([]int, error) {
	if pq.Centroids == nil {
		return nil, memerr.ErrCodebookNotLoaded
	}
	if len(v) != pq.Dimension {
		return nil, &memerr.DimensionMismatch{Got: len(v), Want: pq.Dimension}
	}

	codes := make([]int, pq.NumSubvectors)
	for sub := 0; sub < pq.NumSubvectors; sub++ {
		subvec := v[sub*pq.SubvectorDim : (sub+1)*pq.SubvectorDim]
		best, bestDist := 0, math.Inf(1)
		for c := 0; c < pq.NumCentroids; c++ {
			d := l2DistSq(subvec, pq.centroidSlice(sub, c))
			if d < bestDist {
				best, bestDist = c, d
			}
		}
		codes[sub] = best
	}
	return codes, nil
}

// Decode reconstructs an approximate vector by concatenating the centroids
// named by codes.
func (pq *ProductQuantizer) Decode(codes []int) ([]float32, error) {
	if pq.Centroids == nil {
		return nil, memerr.ErrCodebookNotLoaded
	}
	if len(codes) != pq.NumSubvectors {
		return nil, &memerr.SubvectorShapeMismatch{Dimension: pq.Dimension, NumSubvectors: len(codes)}
	}

	out := make([]float32, 0, pq.Dimension)
	for sub, code := range codes {
		out = append(out, pq.centroidSlice(sub, code)...)
	}
	return out, nil
}

// PackCodesPQ8 serializes one code per byte (COOL tier).
func PackCodesPQ8(codes []int) []byte {
	out := make([]byte, len(codes))
	for i, c := range codes {
		out[i] = byte(c)
	}
	return out
}

// UnpackCodesPQ8 is the inverse of PackCodesPQ8.
func UnpackCodesPQ8(data []byte) []int {
	codes := make([]int, len(data))
	for i, b := range data {
		codes[i] = int(b)
	}
	return codes
}

// PackCodesPQ4 packs two 4-bit codes per byte (COLD tier). Requires an even
// number of codes (96 subvectors satisfies this).
func PackCodesPQ4(codes []int) []byte {
	out := make([]byte, (len(codes)+1)/2)
	for i, c := range codes {
		nibble := byte(c) & 0x0F
		if i%2 == 0 {
			out[i/2] = nibble
		} else {
			out[i/2] |= nibble << 4
		}
	}
	return out
}

// UnpackCodesPQ4 is the inverse of PackCodesPQ4; n is the expected code count.
func UnpackCodesPQ4(data []byte, n int) []int {
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		b := data[i/2]
		if i%2 == 0 {
			codes[i] = int(b & 0x0F)
		} else {
			codes[i] = int(b >> 4)
		}
	}
	return codes
}

// SerializeCentroids flattens the codebook's float32 centroids into bytes
// for persistence (store.PQCodebook.Centroids).
func SerializeCentroids(centroids []float32) []byte {
	out := make([]byte, len(centroids)*4)
	for i, f := range centroids {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// DeserializeCentroids is the inverse of SerializeCentroids.
func DeserializeCentroids(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func l2DistSq(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// randomSampleCentroids seeds centroids by drawing k random samples from the
// data with replacement (a sample may be drawn more than once), used when too
// few vectors are available to run k-means.
func randomSampleCentroids(data [][]float32, k int, rng *rand.Rand) [][]float32 {
	centroids := make([][]float32, k)
	for i := 0; i < k; i++ {
		src := data[rng.Intn(len(data))]
		c := make([]float32, len(src))
		copy(c, src)
		centroids[i] = c
	}
	return centroids
}

// kMeans runs Lloyd's algorithm for a fixed iteration count starting from a
// random-sample initialization.
func kMeans(data [][]float32, k, iterations int, rng *rand.Rand) [][]float32 {
	centroids := randomSampleCentroids(data, k, rng)
	dim := len(data[0])

	for iter := 0; iter < iterations; iter++ {
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dim)
		}

		for _, v := range data {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				d := l2DistSq(v, centroid)
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			counts[best]++
			for d := 0; d < dim; d++ {
				sums[best][d] += float64(v[d])
			}
		}

		for c := range centroids {
			if counts[c] == 0 {
				continue // keep the previous centroid; an empty cluster contributes nothing to update.
			}
			for d := 0; d < dim; d++ {
				centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
			}
		}
	}
	return centroids
}
