package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSmoothingMode(t *testing.T) {
	for _, s := range []string{"simple-rolling", "wilder-exponential"} {
		mode, err := ParseSmoothingMode(s)
		require.NoError(t, err)
		assert.Equal(t, SmoothingMode(s), mode)
	}
	_, err := ParseSmoothingMode("ema")
	assert.Error(t, err)
}

func TestRSI_UndefinedHead(t *testing.T) {
	prices := []float64{100, 101, 102, 103, 104, 105, 106}
	for _, mode := range []SmoothingMode{SmoothSimpleRolling, SmoothWilderExponential} {
		rsi := RSI(prices, 3, mode)
		require.Len(t, rsi, len(prices))
		for i := 0; i < 3; i++ {
			assert.False(t, rsi[i].Valid, "mode %s index %d", mode, i)
		}
		for i := 3; i < len(prices); i++ {
			assert.True(t, rsi[i].Valid, "mode %s index %d", mode, i)
		}
	}
}

func TestRSI_AllGainsIs100(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 6}
	for _, mode := range []SmoothingMode{SmoothSimpleRolling, SmoothWilderExponential} {
		rsi := RSI(prices, 3, mode)
		v := rsi[len(rsi)-1]
		require.True(t, v.Valid)
		assert.Equal(t, 100.0, v.Float, "mode %s", mode)
	}
}

func TestRSI_AllLossesIs0(t *testing.T) {
	prices := []float64{6, 5, 4, 3, 2, 1}
	for _, mode := range []SmoothingMode{SmoothSimpleRolling, SmoothWilderExponential} {
		rsi := RSI(prices, 3, mode)
		v := rsi[len(rsi)-1]
		require.True(t, v.Valid)
		assert.Equal(t, 0.0, v.Float, "mode %s", mode)
	}
}

func TestRSI_SimpleRolling_KnownValue(t *testing.T) {
	// Changes: +2, -1, +2, -1. Window 2 at the last index: gain avg 1,
	// loss avg 0.5, RS=2, RSI = 100 - 100/3.
	prices := []float64{10, 12, 11, 13, 12}
	rsi := RSI(prices, 2, SmoothSimpleRolling)
	v := rsi[len(rsi)-1]
	require.True(t, v.Valid)
	assert.InDelta(t, 100-100.0/3, v.Float, 1e-9)
}

func TestRSI_ModesDiverge(t *testing.T) {
	prices := []float64{50, 52, 51, 55, 53, 56, 54, 58, 57, 60, 59, 62}
	rolling := RSI(prices, 4, SmoothSimpleRolling)
	wilder := RSI(prices, 4, SmoothWilderExponential)
	last := len(prices) - 1
	require.True(t, rolling[last].Valid)
	require.True(t, wilder[last].Valid)
	assert.NotEqual(t, rolling[last].Float, wilder[last].Float,
		"rolling and Wilder smoothing should diverge on mixed data")
}

func TestPercentileRank(t *testing.T) {
	series := []float64{5, 1, 4, 2, 3}
	ranks := PercentileRank(series, 3)
	require.Len(t, ranks, 5)

	assert.False(t, ranks[0].Valid)
	assert.False(t, ranks[1].Valid)

	// Window {5,1,4}: values <= 4 are {1,4} -> 2/3.
	require.True(t, ranks[2].Valid)
	assert.InDelta(t, 2.0/3, ranks[2].Float, 1e-12)

	// Window {1,4,2}: values <= 2 are {1,2} -> 2/3.
	require.True(t, ranks[3].Valid)
	assert.InDelta(t, 2.0/3, ranks[3].Float, 1e-12)

	// Window {4,2,3}: values <= 3 are {2,3} -> 2/3.
	require.True(t, ranks[4].Valid)
	assert.InDelta(t, 2.0/3, ranks[4].Float, 1e-12)
}

func TestPercentileRank_TieAware(t *testing.T) {
	series := []float64{2, 2, 2}
	ranks := PercentileRank(series, 3)
	require.True(t, ranks[2].Valid)
	assert.Equal(t, 1.0, ranks[2].Float, "ties count as at-or-below")
}

func TestMovingAverage_Simple(t *testing.T) {
	ma := MovingAverage([]float64{1, 2, 3, 4, 5}, 3, MASimple)
	assert.False(t, ma[1].Valid)
	require.True(t, ma[2].Valid)
	assert.InDelta(t, 2.0, ma[2].Float, 1e-12)
	require.True(t, ma[4].Valid)
	assert.InDelta(t, 4.0, ma[4].Float, 1e-12)
}

func TestMovingAverage_ExponentialInitializationsDiverge(t *testing.T) {
	series := []float64{10, 20, 30, 40}
	recursive := MovingAverage(series, 3, MAExpRecursive)
	weighted := MovingAverage(series, 3, MAExpWeighted)

	// alpha = 0.5. Recursive: 10, 15, 22.5, 31.25.
	require.True(t, recursive[3].Valid)
	assert.InDelta(t, 31.25, recursive[3].Float, 1e-12)

	// Weighted at index 1: (20 + 0.5*10) / 1.5.
	require.True(t, weighted[1].Valid)
	assert.InDelta(t, 25.0/1.5, weighted[1].Float, 1e-12)

	assert.NotEqual(t, recursive[1].Float, weighted[1].Float,
		"initializations must diverge in the early window")
}

func TestRSIWithMA(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 + float64(i%5)
	}
	rsi, rsiMA := RSIWithMA(prices, 5, 3, SmoothWilderExponential)
	require.Len(t, rsiMA, len(rsi))

	// MA defined only once 3 defined RSI values accumulated.
	assert.False(t, rsiMA[5].Valid)
	assert.False(t, rsiMA[6].Valid)
	assert.True(t, rsiMA[7].Valid)

	expected := (rsi[5].Float + rsi[6].Float + rsi[7].Float) / 3
	assert.InDelta(t, expected, rsiMA[7].Float, 1e-12)
}
