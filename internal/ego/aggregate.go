package ego

import (
	"fmt"
	"math"
)

// Method is one of the four neighbor-aggregation strategies.
type Method string

const (
	MethodMean      Method = "mean"
	MethodSum       Method = "sum"
	MethodMax       Method = "max"
	MethodAttention Method = "attention"
)

// AttentionWeights are the learned query/key projection matrices for
// attention aggregation, each attentionDim x dimension, row-major.
type AttentionWeights struct {
	Query []float32
	Key   []float32
	Dim   int // dimension of center/neighbor embeddings
}

// Aggregate combines center with its weighted neighbor embeddings into a
// single vector of the same dimension, following:
//
//	weight_i = edgeWeight_i * distanceDecay^(hopDistance_i - 1)
//	out = selfLoopWeight*center + (1-selfLoopWeight)*neighborAgg
func Aggregate(center []float32, neighbors []Node, method Method, distanceDecay, selfLoopWeight float64, attn *AttentionWeights) ([]float32, error) {
	dim := len(center)
	weighted := make([]struct {
		vec    []float32
		weight float64
	}, 0, len(neighbors))

	for _, n := range neighbors {
		if !n.HasEmbedding || n.HopDistance == 0 {
			continue
		}
		w := n.EdgeWeight * math.Pow(distanceDecay, float64(n.HopDistance-1))
		weighted = append(weighted, struct {
			vec    []float32
			weight float64
		}{n.Embedding, w})
	}

	var neighborAgg []float32
	var err error
	switch method {
	case MethodMean:
		neighborAgg = weightedMean(weighted, dim)
	case MethodSum:
		neighborAgg = weightedSum(weighted, dim)
	case MethodMax:
		neighborAgg = elementwiseMax(weighted, dim)
	case MethodAttention:
		neighborAgg, err = attentionAggregate(center, weighted, attn, dim)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown aggregation method %q", method)
	}

	out := make([]float32, dim)
	for i := 0; i < dim; i++ {
		var neighborVal float32
		if neighborAgg != nil {
			neighborVal = neighborAgg[i]
		}
		out[i] = float32(selfLoopWeight)*center[i] + float32(1-selfLoopWeight)*neighborVal
	}
	return out, nil
}

func weightedMean(weighted []struct {
	vec    []float32
	weight float64
}, dim int) []float32 {
	if len(weighted) == 0 {
		return make([]float32, dim)
	}
	sum := make([]float64, dim)
	var totalWeight float64
	for _, w := range weighted {
		totalWeight += w.weight
		for i := 0; i < dim; i++ {
			sum[i] += w.weight * float64(w.vec[i])
		}
	}
	out := make([]float32, dim)
	if totalWeight == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(sum[i] / totalWeight)
	}
	return out
}

func weightedSum(weighted []struct {
	vec    []float32
	weight float64
}, dim int) []float32 {
	sum := make([]float64, dim)
	for _, w := range weighted {
		for i := 0; i < dim; i++ {
			sum[i] += w.weight * float64(w.vec[i])
		}
	}
	out := make([]float32, dim)
	for i := range out {
		out[i] = float32(sum[i])
	}
	return out
}

func elementwiseMax(weighted []struct {
	vec    []float32
	weight float64
}, dim int) []float32 {
	out := make([]float32, dim)
	if len(weighted) == 0 {
		return out
	}
	for i := range out {
		out[i] = weighted[0].vec[i]
	}
	for _, w := range weighted[1:] {
		for i := 0; i < dim; i++ {
			if w.vec[i] > out[i] {
				out[i] = w.vec[i]
			}
		}
	}
	return out
}

// attentionAggregate projects center through Query and each neighbor through
// Key, scores by scaled dot product, multiplies by weight_i before softmax,
// and combines neighbor embeddings by the resulting attention distribution.
func attentionAggregate(center []float32, weighted []struct {
	vec    []float32
	weight float64
}, attn *AttentionWeights, dim int) ([]float32, error) {
	if attn == nil {
		return nil, fmt.Errorf("attention aggregation requires AttentionWeights")
	}
	if len(weighted) == 0 {
		return make([]float32, dim), nil
	}

	q := projectMatVec(attn.Query, center, attn.Dim, dim)
	scale := 1.0 / math.Sqrt(float64(attn.Dim))

	scores := make([]float64, len(weighted))
	for i, w := range weighted {
		k := projectMatVec(attn.Key, w.vec, attn.Dim, dim)
		scores[i] = dot(q, k) * scale * w.weight
	}
	probs := softmax(scores)

	out := make([]float32, dim)
	for i, w := range weighted {
		for d := 0; d < dim; d++ {
			out[d] += float32(probs[i]) * w.vec[d]
		}
	}
	return out, nil
}

// projectMatVec computes W*v for a row-major (outDim x inDim) matrix W.
func projectMatVec(w []float32, v []float32, outDim, inDim int) []float32 {
	out := make([]float32, outDim)
	for o := 0; o < outDim; o++ {
		var sum float64
		row := w[o*inDim : (o+1)*inDim]
		for i := 0; i < inDim; i++ {
			sum += float64(row[i]) * float64(v[i])
		}
		out[o] = float32(sum)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func softmax(scores []float64) []float64 {
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	exp := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		exp[i] = math.Exp(s - maxScore)
		sum += exp[i]
	}
	out := make([]float64, len(scores))
	for i, e := range exp {
		out[i] = e / sum
	}
	return out
}
