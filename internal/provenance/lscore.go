// Package provenance computes the L-Score quality rollup over an entry's
// parent DAG and provides causal hypergraph traversal (BFS with cycle
// detection, since causal edges — unlike provenance — may form cycles).
package provenance

import (
	"math"

	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

// ParentInfo is the subset of a parent entry's provenance state needed to
// compute a child's L-Score: its own rollup score and lineage depth.
type ParentInfo struct {
	LScore float64
	Depth  int
}

// ParentEdge carries the confidence and relevance recorded on the child for
// one parent relationship, alongside that parent's own rollup state.
type ParentEdge struct {
	Parent     ParentInfo
	Confidence float64
	Relevance  float64
}

// RootLScore is the fixed quality score for an entry with no parents.
const RootLScore = 1.0

// Compute returns the deterministic L-Score rollup and lineage depth for an
// entry given its parent edges, per the closed-form contract:
//
//	quality_i     = confidence_i * relevance_i
//	aggregate_q   = mean_i(quality_i)
//	parent_factor = mean_i(parent_i.LScore)
//	depth         = 1 + max_i(parent_i.Depth)
//	L             = aggregate_q * parent_factor * depthDecay^(depth-1)
//
// With no parents, L = RootLScore and depth = 0.
func Compute(edges []ParentEdge, depthDecay float64) (lScore float64, depth int) {
	if len(edges) == 0 {
		return RootLScore, 0
	}

	var sumQuality, sumParentScore float64
	maxParentDepth := 0
	for _, e := range edges {
		sumQuality += e.Confidence * e.Relevance
		sumParentScore += e.Parent.LScore
		if e.Parent.Depth > maxParentDepth {
			maxParentDepth = e.Parent.Depth
		}
	}

	n := float64(len(edges))
	aggregateQ := sumQuality / n
	parentFactor := sumParentScore / n
	depth = 1 + maxParentDepth

	lScore = aggregateQ * parentFactor * math.Pow(depthDecay, float64(depth-1))
	return lScore, depth
}

// Gate checks a computed L-Score against the configured threshold. If
// enforcement is enabled and lScore is below threshold, it returns a
// ProvenanceThresholdError; the caller must not persist the entry.
func Gate(lScore, threshold float64, enforce bool) error {
	if enforce && lScore < threshold {
		return &memerr.ProvenanceThresholdError{LScore: lScore, Threshold: threshold}
	}
	return nil
}
