// Package analysis orchestrates the percentile engine over one price
// series: ranking, binning, forward-return aggregation, significance
// classification, zone roll-ups, and regime estimation, assembled into a
// single serializable report.
package analysis

import (
	"github.com/marketstat/pctrun/internal/domain/percentile"
	"github.com/marketstat/pctrun/internal/domain/regime"
	"github.com/marketstat/pctrun/internal/domain/stats"
)

// IndicatorSnapshot carries the latest oscillator readings alongside the
// percentile table.
type IndicatorSnapshot struct {
	RSI            stats.Value `json:"rsi"`
	RSIMA          stats.Value `json:"rsi_ma"`
	PercentileRank stats.Value `json:"percentile_rank"`
}

// Report is the full analysis output. Field names and nesting are the
// stable contract serialized verbatim by the HTTP and snapshot layers.
// The report contains no wall-clock fields so identical inputs produce
// byte-identical serializations.
type Report struct {
	Symbol     string `json:"symbol"`
	SampleSize int    `json:"sample_size"`
	Horizons   []int  `json:"horizons"`

	BinStats  []percentile.BinStats           `json:"bin_stats"`
	ZoneStats map[string]percentile.ZoneStats `json:"zone_stats"`

	// SignalStats maps bin index to horizon to the significance signal.
	SignalStats map[int]map[int]percentile.Signal `json:"signal_stats"`

	RegimeStats regime.Snapshot   `json:"regime_stats"`
	Indicators  IndicatorSnapshot `json:"indicators"`
}
