package sim

import "math/rand"

// weightedIndex samples an index from the discrete distribution described
// by weights. Non-positive weights are treated as zero. If every weight
// is zero the index is drawn uniformly.
func weightedIndex(rng *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return rng.Intn(len(weights))
	}

	r := rng.Float64() * total
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		r -= w
		if r < 0 {
			return i
		}
	}
	// Float rounding can leave r at exactly zero past the last positive
	// weight; fall back to it.
	return last
}
