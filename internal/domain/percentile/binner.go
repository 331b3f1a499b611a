// Package percentile implements the percentile-conditioned forward-return
// engine: binning of rolling percentile ranks, per-bin/per-horizon
// aggregation of forward returns, significance classification, and zone
// roll-ups.
package percentile

import (
	"fmt"

	"github.com/marketstat/pctrun/internal/domain/stats"
)

// Unassigned marks observations without a valid percentile rank or past
// the qualifying cutoff.
const Unassigned = -1

// Binner partitions percentile-rank space [0,1] into K equal-width,
// ordered, non-overlapping bins. The edges are fixed for a run so bin
// membership is identical across every horizon.
type Binner struct {
	K int
}

// NewBinner builds a binner with K bins.
func NewBinner(k int) (Binner, error) {
	if k < 1 {
		return Binner{}, fmt.Errorf("bin count must be positive, got %d", k)
	}
	return Binner{K: k}, nil
}

// Assign maps a rank in [0,1] to its bin index, floor(rank*K) clipped to
// [0, K-1].
func (b Binner) Assign(rank float64) int {
	idx := int(rank * float64(b.K))
	if idx < 0 {
		return 0
	}
	if idx >= b.K {
		return b.K - 1
	}
	return idx
}

// Edges returns the [low, high) rank range of a bin, with the last bin
// closed at 1.
func (b Binner) Edges(bin int) (low, high float64) {
	return float64(bin) / float64(b.K), float64(bin+1) / float64(b.K)
}

// Assignments maps each index of a rank series to a bin, or Unassigned
// when the rank is undefined or the index is at or past cutoff. Pass
// cutoff = len(ranks) to disable the tail restriction.
func (b Binner) Assignments(ranks []stats.Value, cutoff int) []int {
	out := make([]int, len(ranks))
	for i, r := range ranks {
		if !r.Valid || i >= cutoff {
			out[i] = Unassigned
			continue
		}
		out[i] = b.Assign(r.Float)
	}
	return out
}
