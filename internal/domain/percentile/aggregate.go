package percentile

import (
	"math"

	"github.com/marketstat/pctrun/internal/domain"
	"github.com/marketstat/pctrun/internal/domain/stats"
)

// CellStats is the distributional summary of the forward returns pooled
// into one (bin, horizon) or (zone, horizon) cell. Median requires at
// least MinMedianSample observations; t-score requires n >= 2 and a
// non-zero standard error, degrading to undefined otherwise.
type CellStats struct {
	Count    int         `json:"count"`
	Mean     stats.Value `json:"mean"`
	Median   stats.Value `json:"median"`
	Std      stats.Value `json:"std"`
	StdErr   stats.Value `json:"se"`
	TScore   stats.Value `json:"t_score"`
	P5       stats.Value `json:"p5"`
	P95      stats.Value `json:"p95"`
	Upside   stats.Value `json:"upside"`
	Downside stats.Value `json:"downside"`
	WinRate  stats.Value `json:"win_rate"`
}

// MinMedianSample is the smallest pool for which a median is reported.
const MinMedianSample = 3

// ComputeCell aggregates a pool of forward returns into cell statistics.
// An empty pool yields a zero-count cell with every statistic undefined.
func ComputeCell(returns []float64) CellStats {
	cell := CellStats{Count: len(returns)}
	if len(returns) == 0 {
		return cell
	}

	cell.Mean = stats.Mean(returns)
	cell.Std = stats.StdDev(returns)
	if len(returns) >= MinMedianSample {
		cell.Median = stats.Median(returns)
	}
	cell.P5 = stats.Percentile(returns, 5)
	cell.P95 = stats.Percentile(returns, 95)

	if cell.Std.Valid {
		se := cell.Std.Float / math.Sqrt(float64(len(returns)))
		cell.StdErr = stats.Defined(se)
		if se > 0 {
			cell.TScore = stats.Defined(cell.Mean.Float / se)
		}
	}

	var upSum, downSum float64
	var ups, downs, wins int
	for _, r := range returns {
		if r > 0 {
			upSum += r
			ups++
			wins++
		} else if r < 0 {
			downSum += r
			downs++
		}
	}
	if ups > 0 {
		cell.Upside = stats.Defined(upSum / float64(ups))
	}
	if downs > 0 {
		// Signed: mean of negative returns, always <= 0.
		cell.Downside = stats.Defined(downSum / float64(downs))
	}
	cell.WinRate = stats.Defined(float64(wins) / float64(len(returns)))
	return cell
}

// BinStats is one percentile bin with its per-horizon cells.
type BinStats struct {
	Bin      int               `json:"bin"`
	RankLow  float64           `json:"rank_low"`
	RankHigh float64           `json:"rank_high"`
	Count    int               `json:"count"`
	Horizons map[int]CellStats `json:"horizons"`
}

// Aggregator pools forward returns per bin and horizon over one frozen
// series snapshot. Observations qualify when their percentile rank is
// defined and every configured horizon resolves inside the series, so all
// horizons share an identical observation set and bin membership.
type Aggregator struct {
	series   *domain.PriceSeries
	binner   Binner
	horizons []int
	assigned []int
	// byBin[b] lists the qualifying observation indices in bin b.
	byBin [][]int
}

// NewAggregator assigns qualifying observations to bins. The rank series
// must be index-aligned with the price series.
func NewAggregator(series *domain.PriceSeries, ranks []stats.Value, binner Binner, horizons []int) *Aggregator {
	maxH := 0
	for _, h := range horizons {
		if h > maxH {
			maxH = h
		}
	}
	cutoff := series.Len() - maxH
	if cutoff < 0 {
		cutoff = 0
	}

	a := &Aggregator{
		series:   series,
		binner:   binner,
		horizons: horizons,
		assigned: binner.Assignments(ranks, cutoff),
		byBin:    make([][]int, binner.K),
	}
	for i, b := range a.assigned {
		if b != Unassigned {
			a.byBin[b] = append(a.byBin[b], i)
		}
	}
	return a
}

// SampleSize returns the number of qualifying observations.
func (a *Aggregator) SampleSize() int {
	n := 0
	for _, idxs := range a.byBin {
		n += len(idxs)
	}
	return n
}

// Returns collects the forward returns at horizon h for the given
// observation indices.
func (a *Aggregator) Returns(indices []int, h int) []float64 {
	out := make([]float64, 0, len(indices))
	for _, t := range indices {
		if r, ok := a.series.ForwardReturn(t, h); ok {
			out = append(out, r)
		}
	}
	return out
}

// BinIndices returns the qualifying observation indices assigned to bin b.
func (a *Aggregator) BinIndices(b int) []int {
	if b < 0 || b >= len(a.byBin) {
		return nil
	}
	return a.byBin[b]
}

// Bins computes the full ordered bin table, one entry per bin with one
// cell per horizon. Empty bins are present with zero counts.
func (a *Aggregator) Bins() []BinStats {
	out := make([]BinStats, a.binner.K)
	for b := 0; b < a.binner.K; b++ {
		low, high := a.binner.Edges(b)
		bs := BinStats{
			Bin:      b,
			RankLow:  low,
			RankHigh: high,
			Count:    len(a.byBin[b]),
			Horizons: make(map[int]CellStats, len(a.horizons)),
		}
		for _, h := range a.horizons {
			bs.Horizons[h] = ComputeCell(a.Returns(a.byBin[b], h))
		}
		out[b] = bs
	}
	return out
}

// Pool computes the per-horizon cells for observations pooled across the
// given bins, recomputed from the raw forward returns.
func (a *Aggregator) Pool(bins []int) map[int]CellStats {
	var indices []int
	seen := make(map[int]bool, len(bins))
	for _, b := range bins {
		if b < 0 || b >= len(a.byBin) || seen[b] {
			continue
		}
		seen[b] = true
		indices = append(indices, a.byBin[b]...)
	}

	out := make(map[int]CellStats, len(a.horizons))
	for _, h := range a.horizons {
		out[h] = ComputeCell(a.Returns(indices, h))
	}
	return out
}
