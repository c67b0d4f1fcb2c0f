package sim

import (
	"math"
	"math/rand"
	"time"
)

// swapCountWeights is the distribution of adjacent swaps per tick:
// 0 swaps 25%, 1 swap 55%, 2 swaps 20%.
var swapCountWeights = []float64{0.25, 0.55, 0.20}

// tickState is the bookkeeping half of the tick engine. A zero lastTick
// means no baseline has been recorded since the simulation was started
// or reset.
type tickState struct {
	lastTick time.Time
	count    int
}

// advance performs one lazy-advance step over grid. It is called on
// every live read, with the controller's lock held.
//
// The first call after start/reset only records now as the baseline, so
// turning the simulation on never reorders the field instantly. After
// that, a tick fires once at least interval has elapsed since the last
// one; the tick draws a swap count and applies that many independent
// adjacent swaps in place. Returns the updated state and whether a tick
// occurred.
func advance(grid []string, st tickState, now time.Time, interval time.Duration, rng *rand.Rand) (tickState, bool) {
	if st.lastTick.IsZero() {
		st.lastTick = now
		return st, false
	}
	if now.Sub(st.lastTick) < interval {
		return st, false
	}

	swaps := weightedIndex(rng, swapCountWeights)
	for i := 0; i < swaps; i++ {
		if idx := swapIndex(rng, len(grid)); idx >= 0 {
			swapAdjacent(grid, idx)
		}
	}

	st.count++
	st.lastTick = now
	return st, true
}

// swapAdjacent exchanges grid[i] and grid[i+1].
func swapAdjacent(grid []string, i int) {
	grid[i], grid[i+1] = grid[i+1], grid[i]
}

// swapIndex picks the initiator index for one adjacent swap, or -1 when
// the grid is too short to swap at all.
//
// For n > 3 the leader (index 0) is never an initiator and candidates
// are weighted toward the mid-pack: w = max(0.2, 1.5 - dist/mid) with
// mid = (n-1)/2, halved for candidates at index <= 1 to further damp
// changes near the front.
func swapIndex(rng *rand.Rand, n int) int {
	if n < 2 {
		return -1
	}
	if n <= 3 {
		return rng.Intn(n - 1)
	}

	mid := float64(n-1) / 2
	weights := make([]float64, n-2) // candidates [1, n-2]
	for i := range weights {
		idx := i + 1
		w := 1.5 - math.Abs(float64(idx)-mid)/mid
		if w < 0.2 {
			w = 0.2
		}
		if idx <= 1 {
			w *= 0.5
		}
		weights[i] = w
	}
	return 1 + weightedIndex(rng, weights)
}
