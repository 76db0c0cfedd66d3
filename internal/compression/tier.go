// Package compression implements the five-tier vector compression lifecycle
// (HOT, WARM, COOL, COLD, FROZEN), the product quantizer backing the middle
// tiers, and the access-frequency-driven evaluate-and-transition sweep.
//
// Tier demotion is strictly monotone: decompression is lossy, so a vector
// only ever moves to a lower-precision tier, never back.
package compression

import "github.com/fyrsmithlabs/memcore/internal/memerr"

// Tier is one of the five precision levels a vector may be stored at.
type Tier string

const (
	HOT    Tier = "HOT"
	WARM   Tier = "WARM"
	COOL   Tier = "COOL"
	COLD   Tier = "COLD"
	FROZEN Tier = "FROZEN"
)

// order ranks tiers by precision, ascending from lowest-precision to
// highest. Demotion requires order(target) < order(current).
var order = map[Tier]int{
	FROZEN: 0,
	COLD:   1,
	COOL:   2,
	WARM:   3,
	HOT:    4,
}

// Order returns a tier's precision rank; higher is more precise.
func Order(t Tier) (int, error) {
	o, ok := order[t]
	if !ok {
		return 0, memerr.ErrInvalidTier
	}
	return o, nil
}

// BytesPerVector is the accounted storage footprint of one vector of the
// given dimension at a tier: 4, 2, 1/2, 1/4 and 1/8 bytes per dimension from
// HOT down to FROZEN (3072, 1536, 384, 192 and 96 bytes at 768 dims).
func BytesPerVector(t Tier, dimension int) int {
	switch t {
	case HOT:
		return dimension * 4
	case WARM:
		return dimension * 2
	case COOL:
		return dimension / 2
	case COLD:
		return dimension / 4
	case FROZEN:
		return (dimension + 7) / 8 // one sign bit per dim, packed.
	default:
		return 0
	}
}

// frequencyBand maps an access-frequency fraction (access_count / max) to
// its target tier, per the component's frequency bands.
func frequencyBand(frequency float64) Tier {
	switch {
	case frequency > 0.80:
		return HOT
	case frequency > 0.40:
		return WARM
	case frequency > 0.10:
		return COOL
	case frequency > 0.01:
		return COLD
	default:
		return FROZEN
	}
}

// TargetTier computes the frequency for an entry (accessCount / maxAccessCount,
// treating a zero max as "everything is HOT" since there is no signal yet)
// and returns its target tier.
func TargetTier(accessCount, maxAccessCount int64) Tier {
	if maxAccessCount <= 0 {
		return HOT
	}
	frequency := float64(accessCount) / float64(maxAccessCount)
	return frequencyBand(frequency)
}
