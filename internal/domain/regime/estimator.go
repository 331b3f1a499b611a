// Package regime classifies market behavior as trending or mean-reverting
// from three estimators computed over a trailing window: the Hurst
// exponent, lag-1 autocorrelation, and the Lo-MacKinlay variance ratio.
package regime

import (
	"math"

	"github.com/marketstat/pctrun/internal/domain/stats"
)

// Label is the discrete regime classification derived from the composite
// score.
type Label string

const (
	LabelTrending      Label = "trending"
	LabelMeanReverting Label = "mean_reverting"
	LabelRandomWalk    Label = "random_walk"
	LabelUnknown       Label = "unknown"
)

// Config holds regime estimation parameters. Zero values fall back to
// Normalize defaults.
type Config struct {
	HurstLags []int `yaml:"hurst_lags" json:"hurst_lags"`
	// Window is the trailing window, in bars, over which each sub-score
	// is computed.
	Window int `yaml:"window" json:"window"`
	// VRShort and VRLong are the variance-ratio return periods.
	VRShort int `yaml:"vr_short" json:"vr_short"`
	VRLong  int `yaml:"vr_long" json:"vr_long"`
	// CompositeThreshold separates trending from mean-reverting; scores
	// within the threshold band classify as random walk.
	CompositeThreshold float64 `yaml:"composite_threshold" json:"composite_threshold"`
}

// DefaultConfig returns the standard regime estimation parameters.
func DefaultConfig() Config {
	return Config{
		HurstLags:          []int{2, 5, 10, 20, 50},
		Window:             100,
		VRShort:            1,
		VRLong:             10,
		CompositeThreshold: 0.1,
	}
}

// Normalize fills unset fields with defaults.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if len(c.HurstLags) == 0 {
		c.HurstLags = def.HurstLags
	}
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.VRShort <= 0 {
		c.VRShort = def.VRShort
	}
	if c.VRLong <= 0 {
		c.VRLong = def.VRLong
	}
	if c.CompositeThreshold <= 0 {
		c.CompositeThreshold = def.CompositeThreshold
	}
	return c
}

// HurstExponent estimates the Hurst exponent as the slope of log standard
// deviation of lag differences of log prices against log lag. Undefined
// when fewer than two lags fit inside the sample.
func HurstExponent(prices []float64, lags []int) stats.Value {
	logp := make([]float64, 0, len(prices))
	for _, p := range prices {
		if p <= 0 {
			return stats.Undefined()
		}
		logp = append(logp, math.Log(p))
	}

	var logLags, logStds []float64
	for _, lag := range lags {
		if lag < 1 || lag >= len(logp) {
			continue
		}
		diffs := make([]float64, len(logp)-lag)
		for i := lag; i < len(logp); i++ {
			diffs[i-lag] = logp[i] - logp[i-lag]
		}
		sd := stats.StdDev(diffs)
		if !sd.Valid || sd.Float <= 0 {
			continue
		}
		logLags = append(logLags, math.Log(float64(lag)))
		logStds = append(logStds, math.Log(sd.Float))
	}
	if len(logLags) < 2 {
		return stats.Undefined()
	}
	return stats.LinearSlope(logLags, logStds)
}

// RollingAutocorrelation computes the lag-1 autocorrelation of the return
// series over a trailing window, per index. Indices before window-1 are
// undefined.
func RollingAutocorrelation(returns []float64, window int) []stats.Value {
	out := make([]stats.Value, len(returns))
	if window < 3 {
		return out
	}
	for i := window - 1; i < len(returns); i++ {
		w := returns[i-window+1 : i+1]
		out[i] = stats.Correlation(w[:len(w)-1], w[1:])
	}
	return out
}

// VarianceRatio computes the Lo-MacKinlay variance ratio of long-period
// returns to short-period returns scaled by the period ratio. Values near
// 1 indicate a random walk, above 1 trending, below 1 mean reversion.
func VarianceRatio(prices []float64, short, long int) stats.Value {
	if short < 1 || long <= short || long >= len(prices) {
		return stats.Undefined()
	}
	shortVar := stats.Variance(periodReturns(prices, short))
	longVar := stats.Variance(periodReturns(prices, long))
	if !shortVar.Valid || !longVar.Valid || shortVar.Float == 0 {
		return stats.Undefined()
	}
	scale := float64(long) / float64(short)
	return stats.Defined(longVar.Float / (scale * shortVar.Float))
}

func periodReturns(prices []float64, period int) []float64 {
	if period >= len(prices) {
		return nil
	}
	rets := make([]float64, 0, len(prices)-period)
	for i := period; i < len(prices); i++ {
		base := prices[i-period]
		if base == 0 {
			continue
		}
		rets = append(rets, (prices[i]-base)/base)
	}
	return rets
}

// Snapshot summarizes the regime at one point in the series.
type Snapshot struct {
	Hurst           stats.Value `json:"hurst"`
	Autocorrelation stats.Value `json:"autocorrelation"`
	VarianceRatio   stats.Value `json:"variance_ratio"`
	Composite       stats.Value `json:"composite"`
	Label           Label       `json:"label"`
}

// Estimator computes regime scores over price series. Stateless; safe for
// concurrent use.
type Estimator struct {
	cfg Config
}

// NewEstimator builds an estimator, normalizing the config.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{cfg: cfg.Normalize()}
}

// Composite combines the three sub-scores for one trailing window of
// closes: Hurst deviation from 0.5 rescaled to [-1,1], autocorrelation
// as-is, variance ratio centered on 1. Missing components are excluded
// from the average, and the result is undefined only when all three are
// missing.
func (e *Estimator) Composite(window []float64) Snapshot {
	snap := Snapshot{
		Hurst:           HurstExponent(window, e.cfg.HurstLags),
		VarianceRatio:   VarianceRatio(window, e.cfg.VRShort, e.cfg.VRLong),
		Label:           LabelUnknown,
		Autocorrelation: stats.Undefined(),
	}
	if rets := simpleReturns(window); len(rets) >= 3 {
		snap.Autocorrelation = stats.Correlation(rets[:len(rets)-1], rets[1:])
	}

	var sum float64
	var n int
	if snap.Hurst.Valid {
		sum += (snap.Hurst.Float - 0.5) * 2
		n++
	}
	if snap.Autocorrelation.Valid {
		sum += snap.Autocorrelation.Float
		n++
	}
	if snap.VarianceRatio.Valid {
		sum += snap.VarianceRatio.Float - 1
		n++
	}
	if n == 0 {
		snap.Composite = stats.Undefined()
		return snap
	}
	snap.Composite = stats.Defined(sum / float64(n))

	switch {
	case snap.Composite.Float > e.cfg.CompositeThreshold:
		snap.Label = LabelTrending
	case snap.Composite.Float < -e.cfg.CompositeThreshold:
		snap.Label = LabelMeanReverting
	default:
		snap.Label = LabelRandomWalk
	}
	return snap
}

// Scores computes the composite regime score per index over trailing
// windows of the configured size. Indices before window-1 are undefined.
func (e *Estimator) Scores(closes []float64) []stats.Value {
	out := make([]stats.Value, len(closes))
	w := e.cfg.Window
	if w < 2 {
		return out
	}
	for i := w - 1; i < len(closes); i++ {
		out[i] = e.Composite(closes[i-w+1 : i+1]).Composite
	}
	return out
}

// Latest computes the snapshot over the final trailing window, or an
// all-undefined snapshot when the series is shorter than the window.
func (e *Estimator) Latest(closes []float64) Snapshot {
	w := e.cfg.Window
	if len(closes) < w {
		return Snapshot{
			Hurst:           stats.Undefined(),
			Autocorrelation: stats.Undefined(),
			VarianceRatio:   stats.Undefined(),
			Composite:       stats.Undefined(),
			Label:           LabelUnknown,
		}
	}
	return e.Composite(closes[len(closes)-w:])
}

func simpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		rets = append(rets, (prices[i]-prices[i-1])/prices[i-1])
	}
	return rets
}
