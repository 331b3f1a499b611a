package percentile

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketstat/pctrun/internal/domain"
	"github.com/marketstat/pctrun/internal/domain/indicators"
	"github.com/marketstat/pctrun/internal/domain/stats"
)

func seriesFromCloses(t *testing.T, closes []float64) *domain.PriceSeries {
	t.Helper()
	bars := make([]domain.Bar, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = domain.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 1,
		}
	}
	s, err := domain.NewPriceSeries("TEST", bars)
	require.NoError(t, err)
	return s
}

func randomWalkCloses(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	p := 100.0
	for i := range out {
		p *= math.Exp(rng.NormFloat64() * 0.01)
		out[i] = p
	}
	return out
}

func TestBinner_Assign(t *testing.T) {
	b, err := NewBinner(8)
	require.NoError(t, err)

	assert.Equal(t, 0, b.Assign(0))
	assert.Equal(t, 0, b.Assign(0.124))
	assert.Equal(t, 1, b.Assign(0.125))
	assert.Equal(t, 7, b.Assign(0.999))
	assert.Equal(t, 7, b.Assign(1.0), "rank 1.0 clips into the top bin")
	assert.Equal(t, 0, b.Assign(-0.01), "negative clips into the bottom bin")
}

func TestBinner_EdgesPartition(t *testing.T) {
	b, err := NewBinner(8)
	require.NoError(t, err)

	prevHigh := 0.0
	for bin := 0; bin < 8; bin++ {
		low, high := b.Edges(bin)
		assert.Equal(t, prevHigh, low, "bins must tile the domain without gaps")
		assert.Greater(t, high, low)
		prevHigh = high
	}
	assert.Equal(t, 1.0, prevHigh)
}

func TestNewBinner_RejectsNonPositive(t *testing.T) {
	_, err := NewBinner(0)
	assert.Error(t, err)
}

func TestComputeCell_TScoreMatchesClosedForm(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.005, 0.015, 0.03, -0.01, 0.02, 0.005}
	cell := ComputeCell(returns)

	require.True(t, cell.Mean.Valid)
	require.True(t, cell.Std.Valid)
	require.True(t, cell.TScore.Valid)

	se := cell.Std.Float / math.Sqrt(float64(len(returns)))
	expected := cell.Mean.Float / se
	assert.InEpsilon(t, expected, cell.TScore.Float, 1e-9)
}

func TestComputeCell_DegenerateSamples(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		cell := ComputeCell(nil)
		assert.Equal(t, 0, cell.Count)
		assert.False(t, cell.Mean.Valid)
		assert.False(t, cell.TScore.Valid)
		assert.False(t, cell.WinRate.Valid)
	})

	t.Run("n=1", func(t *testing.T) {
		cell := ComputeCell([]float64{0.02})
		assert.Equal(t, 1, cell.Count)
		assert.True(t, cell.Mean.Valid)
		assert.False(t, cell.Std.Valid)
		assert.False(t, cell.TScore.Valid, "n=1 t-score must be undefined, not a fault")
		assert.False(t, cell.Median.Valid, "median suppressed below minimum sample")

		sig := ClassifyCell(cell)
		assert.Equal(t, LevelWeak, sig.Level)
		assert.False(t, sig.IsSignificant)
	})

	t.Run("zero variance", func(t *testing.T) {
		cell := ComputeCell([]float64{0.01, 0.01, 0.01})
		assert.True(t, cell.Std.Valid)
		assert.Equal(t, 0.0, cell.Std.Float)
		assert.False(t, cell.TScore.Valid, "se=0 must yield undefined, not +Inf")
	})
}

func TestComputeCell_UpsideDownsideWinRate(t *testing.T) {
	cell := ComputeCell([]float64{0.02, 0.04, -0.01, -0.03, 0.0})
	require.True(t, cell.Upside.Valid)
	assert.InDelta(t, 0.03, cell.Upside.Float, 1e-12)

	require.True(t, cell.Downside.Valid)
	assert.InDelta(t, -0.02, cell.Downside.Float, 1e-12, "downside is signed")

	require.True(t, cell.WinRate.Valid)
	assert.InDelta(t, 0.4, cell.WinRate.Float, 1e-12, "zero returns are not wins")
}

func TestClassify_Thresholds(t *testing.T) {
	cases := []struct {
		t     float64
		level Level
		sig   bool
	}{
		{0.0, LevelWeak, false},
		{1.49, LevelWeak, false},
		{1.5, LevelMarginal, false},
		{-1.7, LevelMarginal, false},
		{2.0, LevelSignificant, true},
		{-2.5, LevelSignificant, true},
		{3.0, LevelStrong, true},
		{4.0, LevelVeryStrong, true},
		{-9.9, LevelVeryStrong, true},
	}
	for _, tc := range cases {
		level, sig := Classify(stats.Defined(tc.t))
		assert.Equal(t, tc.level, level, "t=%v", tc.t)
		assert.Equal(t, tc.sig, sig, "t=%v", tc.t)
	}

	level, sig := Classify(stats.Undefined())
	assert.Equal(t, LevelWeak, level)
	assert.False(t, sig)
}

func TestClassify_MonotoneInMean(t *testing.T) {
	// Fixed n and std: growing |mean| must strictly grow |t| and never
	// weaken the level.
	const n, std = 25.0, 0.02
	se := std / math.Sqrt(n)

	prevT := -1.0
	prevRank := -1
	for _, mean := range []float64{0, 0.002, 0.005, 0.01, 0.02, 0.05} {
		tsc := mean / se
		level, _ := Classify(stats.Defined(tsc))
		assert.Greater(t, tsc, prevT)
		assert.GreaterOrEqual(t, level.Rank(), prevRank)
		prevT = tsc
		prevRank = level.Rank()
	}
}

func buildAggregator(t *testing.T, n int, seed int64, window int, k int, horizons []int) (*Aggregator, *domain.PriceSeries) {
	t.Helper()
	series := seriesFromCloses(t, randomWalkCloses(n, seed))
	ranks := indicators.PercentileRank(series.Closes(), window)
	binner, err := NewBinner(k)
	require.NoError(t, err)
	return NewAggregator(series, ranks, binner, horizons), series
}

func TestAggregator_BinCoverage(t *testing.T) {
	horizons := []int{1, 5, 21}
	agg, _ := buildAggregator(t, 420, 11, 300, 8, horizons)

	bins := agg.Bins()
	require.Len(t, bins, 8)

	total := 0
	for _, bs := range bins {
		total += bs.Count
	}
	assert.Equal(t, agg.SampleSize(), total, "every qualifying observation lands in exactly one bin")

	// Qualifying set: ranks defined from index 299, truncated 21 before
	// the end for the longest horizon.
	assert.Equal(t, 420-300+1-21, agg.SampleSize())
}

func TestAggregator_HorizonsShareObservationSet(t *testing.T) {
	horizons := []int{1, 7, 21}
	agg, _ := buildAggregator(t, 420, 12, 300, 8, horizons)

	for _, bs := range agg.Bins() {
		for h, cell := range bs.Horizons {
			assert.Equal(t, bs.Count, cell.Count,
				"bin %d horizon %d must use the same frozen observation set", bs.Bin, h)
		}
	}
}

func TestZones_AllEquivalence(t *testing.T) {
	horizons := []int{1, 5, 21}
	agg, series := buildAggregator(t, 420, 13, 300, 8, horizons)

	zones := AggregateZones(agg, DefaultZones(8))
	all, ok := zones[ZoneAll]
	require.True(t, ok)

	// Independent recomputation over the unfiltered qualifying sample.
	ranks := indicators.PercentileRank(series.Closes(), 300)
	for _, h := range horizons {
		var pool []float64
		for i, r := range ranks {
			if !r.Valid || i >= series.Len()-21 {
				continue
			}
			if fr, ok := series.ForwardReturn(i, h); ok {
				pool = append(pool, fr)
			}
		}
		cell := all.Horizons[h]
		assert.Equal(t, agg.SampleSize(), cell.Count, "horizon %d", h)
		assert.Equal(t, len(pool), cell.Count, "horizon %d", h)
		expected := stats.Mean(pool)
		require.True(t, cell.Mean.Valid)
		assert.InEpsilon(t, expected.Float, cell.Mean.Float, 1e-12, "horizon %d", h)
	}
}

func TestZones_PooledNotAveraged(t *testing.T) {
	// Two bins with very different sizes: pooled mean must weight by
	// observation, not average the two per-bin means.
	horizons := []int{1}
	agg, _ := buildAggregator(t, 420, 14, 300, 8, horizons)

	bins := agg.Bins()
	zone := ZoneSet{"low": []int{0, 1}}
	pooled := AggregateZones(agg, zone)["low"].Horizons[1]

	assert.Equal(t, bins[0].Count+bins[1].Count, pooled.Count)
}

func TestDefaultZones(t *testing.T) {
	z := DefaultZones(8)
	assert.Equal(t, []int{0, 1}, z[ZoneEntry])
	assert.Len(t, z[ZoneAll], 8)
	require.NoError(t, z.Validate(8))

	bad := ZoneSet{"x": []int{9}}
	assert.Error(t, bad.Validate(8))
	assert.Error(t, ZoneSet{"empty": nil}.Validate(8))
}

func TestZoneSet_WithAll(t *testing.T) {
	z := ZoneSet{ZoneEntry: []int{0, 1}}
	got := z.WithAll(4)
	assert.Equal(t, []int{0, 1}, got[ZoneEntry])
	assert.Equal(t, []int{0, 1, 2, 3}, got[ZoneAll])

	// The input set is not modified.
	assert.NotContains(t, z, ZoneAll)

	// A caller-provided "all" zone is left alone.
	custom := ZoneSet{ZoneAll: []int{0}}
	assert.Equal(t, []int{0}, custom.WithAll(4)[ZoneAll])
}
