// Package indicators provides stateless technical indicator math over
// price sequences: RSI, moving averages, and rolling percentile rank.
package indicators

import (
	"fmt"

	"github.com/marketstat/pctrun/internal/domain/stats"
)

// SmoothingMode selects the averaging scheme used by RSI.
type SmoothingMode string

const (
	// SmoothSimpleRolling averages gains and losses over a plain
	// rolling window of the RSI period.
	SmoothSimpleRolling SmoothingMode = "simple-rolling"
	// SmoothWilderExponential seeds the averages with a period-length
	// simple mean, then applies Wilder's alpha=1/period recursion.
	SmoothWilderExponential SmoothingMode = "wilder-exponential"
)

// ParseSmoothingMode validates a configured mode string.
func ParseSmoothingMode(s string) (SmoothingMode, error) {
	switch SmoothingMode(s) {
	case SmoothSimpleRolling, SmoothWilderExponential:
		return SmoothingMode(s), nil
	}
	return "", fmt.Errorf("unknown smoothing mode %q", s)
}

// MAMode selects the moving-average variant.
type MAMode string

const (
	// MASimple is the plain rolling mean.
	MASimple MAMode = "simple"
	// MAExpRecursive is exponential smoothing seeded from the first
	// value: ema[0]=x[0], ema[i]=alpha*x[i]+(1-alpha)*ema[i-1].
	MAExpRecursive MAMode = "exp-recursive"
	// MAExpWeighted is exponential smoothing weighted over all history:
	// ema[i] = sum((1-alpha)^k * x[i-k]) / sum((1-alpha)^k).
	// Diverges from MAExpRecursive in roughly the first length periods.
	MAExpWeighted MAMode = "exp-weighted"
)

// RSI computes the Wilder-style relative strength index per index. The
// first period entries are undefined. When the average loss is zero the
// RSI is 100, when the average gain is zero it is 0.
func RSI(prices []float64, period int, mode SmoothingMode) []stats.Value {
	out := make([]stats.Value, len(prices))
	if period <= 0 || len(prices) < period+1 {
		return out
	}

	gains := make([]float64, len(prices)-1)
	losses := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	switch mode {
	case SmoothSimpleRolling:
		var gainSum, lossSum float64
		for i := range gains {
			gainSum += gains[i]
			lossSum += losses[i]
			if i >= period {
				gainSum -= gains[i-period]
				lossSum -= losses[i-period]
			}
			if i >= period-1 {
				out[i+1] = rsiFromAverages(gainSum/float64(period), lossSum/float64(period))
			}
		}
	default: // SmoothWilderExponential
		var avgGain, avgLoss float64
		for i := 0; i < period; i++ {
			avgGain += gains[i]
			avgLoss += losses[i]
		}
		avgGain /= float64(period)
		avgLoss /= float64(period)
		out[period] = rsiFromAverages(avgGain, avgLoss)

		alpha := 1.0 / float64(period)
		for i := period; i < len(gains); i++ {
			avgGain = avgGain*(1-alpha) + gains[i]*alpha
			avgLoss = avgLoss*(1-alpha) + losses[i]*alpha
			out[i+1] = rsiFromAverages(avgGain, avgLoss)
		}
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) stats.Value {
	if avgLoss == 0 {
		if avgGain == 0 {
			return stats.Defined(0)
		}
		return stats.Defined(100)
	}
	if avgGain == 0 {
		return stats.Defined(0)
	}
	rs := avgGain / avgLoss
	return stats.Defined(100 - 100/(1+rs))
}

// PercentileRank computes, for each index i >= window-1, the fraction of
// the trailing window values that are <= series[i], inclusive of itself.
// Earlier indices are undefined. Results are fractions in [0, 1].
func PercentileRank(series []float64, window int) []stats.Value {
	out := make([]stats.Value, len(series))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(series); i++ {
		cur := series[i]
		atOrBelow := 0
		for j := i - window + 1; j <= i; j++ {
			if series[j] <= cur {
				atOrBelow++
			}
		}
		out[i] = stats.Defined(float64(atOrBelow) / float64(window))
	}
	return out
}

// MovingAverage computes a moving average per index in the requested mode.
// For MASimple the first length-1 entries are undefined; the exponential
// modes are defined from the first index with alpha = 2/(length+1).
func MovingAverage(series []float64, length int, mode MAMode) []stats.Value {
	out := make([]stats.Value, len(series))
	if length <= 0 || len(series) == 0 {
		return out
	}
	alpha := 2.0 / (float64(length) + 1)

	switch mode {
	case MAExpRecursive:
		ema := series[0]
		out[0] = stats.Defined(ema)
		for i := 1; i < len(series); i++ {
			ema = alpha*series[i] + (1-alpha)*ema
			out[i] = stats.Defined(ema)
		}
	case MAExpWeighted:
		var num, den float64
		for i, x := range series {
			decay := 1 - alpha
			num = num*decay + x
			den = den*decay + 1
			out[i] = stats.Defined(num / den)
		}
	default: // MASimple
		sum := 0.0
		for i, x := range series {
			sum += x
			if i >= length {
				sum -= series[i-length]
			}
			if i >= length-1 {
				out[i] = stats.Defined(sum / float64(length))
			}
		}
	}
	return out
}

// RSIWithMA computes the RSI series and a simple moving average over the
// defined portion of that series. The MA entry at index i is undefined
// until maLength defined RSI values have accumulated.
func RSIWithMA(prices []float64, period, maLength int, mode SmoothingMode) (rsi, rsiMA []stats.Value) {
	rsi = RSI(prices, period, mode)
	rsiMA = make([]stats.Value, len(rsi))
	if maLength <= 0 {
		return rsi, rsiMA
	}

	window := make([]int, 0, maLength)
	sum := 0.0
	for i, v := range rsi {
		if !v.Valid {
			continue
		}
		window = append(window, i)
		sum += v.Float
		if len(window) > maLength {
			sum -= rsi[window[0]].Float
			window = window[1:]
		}
		if len(window) == maLength {
			rsiMA[i] = stats.Defined(sum / float64(maLength))
		}
	}
	return rsi, rsiMA
}
