// Package vectorindex implements the in-process dense vector container:
// an exact cosine-similarity k-NN index over (label -> unit vector) pairs,
// with the dimension and unit-norm invariants asserted at every boundary.
//
// The index itself holds no persistent state; a caller (the engine facade)
// is responsible for writing the corresponding vector_mappings row to the
// persistent store within the same transaction boundary as any mutating
// call here, per the durability contract in the data model.
package vectorindex

import (
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

// DefaultNormTolerance is the default maximum allowed deviation of a
// vector's L2 norm from 1.0 before the index re-normalizes it on insert.
const DefaultNormTolerance = 0.01

// Index is a concurrency-safe label -> unit vector map supporting add,
// update, delete, and exact k-NN search.
type Index struct {
	mu            sync.RWMutex
	dimension     int
	normTolerance float64
	vectors       map[int64][]float32
}

// New constructs an Index fixed to the given dimension for its lifetime.
func New(dimension int, normTolerance float64) *Index {
	if normTolerance <= 0 {
		normTolerance = DefaultNormTolerance
	}
	return &Index{
		dimension:     dimension,
		normTolerance: normTolerance,
		vectors:       make(map[int64][]float32),
	}
}

// Dimension returns the fixed vector dimension for this index.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Add inserts a new vector under label. It asserts len(v) == dimension,
// re-normalizes if the norm deviates from 1.0 by more than normTolerance,
// and fails with DuplicateLabel if the label is already present.
func (idx *Index) Add(label int64, v []float32) error {
	normalized, err := idx.prepare(v)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.vectors[label]; exists {
		return &memerr.DuplicateLabel{Label: strconv.FormatInt(label, 10)}
	}
	idx.vectors[label] = normalized
	return nil
}

// Update atomically replaces the vector at label. Returns false if the
// label is absent.
func (idx *Index) Update(label int64, v []float32) (bool, error) {
	normalized, err := idx.prepare(v)
	if err != nil {
		return false, err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.vectors[label]; !exists {
		return false, nil
	}
	idx.vectors[label] = normalized
	return true, nil
}

// Delete removes label from the index. Deleting an absent label is a no-op.
func (idx *Index) Delete(label int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, label)
}

// Has reports whether label is present.
func (idx *Index) Has(label int64) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.vectors[label]
	return ok
}

// GetVector returns a copy of the vector at label, or false if absent.
func (idx *Index) GetVector(label int64) ([]float32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	v, ok := idx.vectors[label]
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Count returns the number of vectors currently indexed.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Labels returns a snapshot of all labels currently indexed, in no
// particular order.
func (idx *Index) Labels() []int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]int64, 0, len(idx.vectors))
	for label := range idx.vectors {
		out = append(out, label)
	}
	return out
}

// SearchResult is one hit from Search, sorted ascending by distance.
type SearchResult struct {
	Label    int64
	Distance float64
	Score    float64
}

// Search returns at most k results nearest to query by cosine distance,
// sorted ascending by distance and tie-broken by smaller label.
func (idx *Index) Search(query []float32, k int) ([]SearchResult, error) {
	normalized, err := idx.prepare(query)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	results := make([]SearchResult, 0, len(idx.vectors))
	for label, v := range idx.vectors {
		dist := cosineDistance(normalized, v)
		results = append(results, SearchResult{Label: label, Distance: dist, Score: 1 - dist})
	}
	idx.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Label < results[j].Label
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// prepare validates dimension and normalizes v to unit length if its norm
// deviates from 1.0 by more than normTolerance. It always returns a fresh
// copy so the index never aliases caller-owned slices.
func (idx *Index) prepare(v []float32) ([]float32, error) {
	if len(v) != idx.dimension {
		return nil, &memerr.DimensionMismatch{Got: len(v), Want: idx.dimension}
	}

	out := make([]float32, len(v))
	copy(out, v)

	norm := l2Norm(out)
	if norm == 0 {
		return out, nil
	}
	if math.Abs(norm-1.0) > idx.normTolerance {
		for i := range out {
			out[i] = float32(float64(out[i]) / norm)
		}
	}
	return out, nil
}

func l2Norm(v []float32) float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	return math.Sqrt(sumSq)
}

// cosineDistance computes 1 - cosine_similarity(a, b). Both vectors are
// assumed unit-normalized, so the dot product alone gives the similarity.
func cosineDistance(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return 1 - dot
}
