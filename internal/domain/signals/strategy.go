// Package signals defines the strategy capability contract and the
// percentile entry-zone strategies built on the analysis engine.
package signals

import (
	"time"

	"github.com/marketstat/pctrun/internal/domain"
	"github.com/marketstat/pctrun/internal/domain/stats"
)

// Direction is the stance a signal takes.
type Direction string

const (
	DirectionLong Direction = "long"
	DirectionFlat Direction = "flat"
)

// Signal marks one actionable observation in a series.
type Signal struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"ts"`
	Direction Direction `json:"direction"`
	Rank      float64   `json:"rank"`
	Reason    string    `json:"reason"`
}

// SignalSeries is the ordered signal output of one strategy pass.
type SignalSeries []Signal

// MetricsReport summarizes realized strategy performance over a series.
type MetricsReport struct {
	Strategy  string      `json:"strategy"`
	Horizon   int         `json:"horizon"`
	Signals   int         `json:"signals"`
	Evaluated int         `json:"evaluated"`
	WinRate   stats.Value `json:"win_rate"`
	AvgReturn stats.Value `json:"avg_return"`
	Best      stats.Value `json:"best"`
	Worst     stats.Value `json:"worst"`
}

// Strategy is the capability contract every concrete strategy implements.
// No inheritance hierarchy; variants are independent implementations.
type Strategy interface {
	Name() string
	GenerateSignals(series *domain.PriceSeries) (SignalSeries, error)
	CalculateMetrics(series *domain.PriceSeries) (MetricsReport, error)
}

// evaluate scores a signal series against realized forward returns at the
// given horizon. Signals whose horizon falls past the series end are
// skipped, not zero-filled.
func evaluate(name string, series *domain.PriceSeries, sigs SignalSeries, horizon int) MetricsReport {
	report := MetricsReport{Strategy: name, Horizon: horizon, Signals: len(sigs)}

	var rets []float64
	for _, s := range sigs {
		if s.Direction != DirectionLong {
			continue
		}
		if r, ok := series.ForwardReturn(s.Index, horizon); ok {
			rets = append(rets, r)
		}
	}
	report.Evaluated = len(rets)
	if len(rets) == 0 {
		return report
	}

	wins := 0
	best, worst := rets[0], rets[0]
	for _, r := range rets {
		if r > 0 {
			wins++
		}
		if r > best {
			best = r
		}
		if r < worst {
			worst = r
		}
	}
	report.WinRate = stats.Defined(float64(wins) / float64(len(rets)))
	report.AvgReturn = stats.Mean(rets)
	report.Best = stats.Defined(best)
	report.Worst = stats.Defined(worst)
	return report
}
