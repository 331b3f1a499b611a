package analysis

import (
	"fmt"
	"sort"

	"github.com/marketstat/pctrun/internal/domain"
	"github.com/marketstat/pctrun/internal/domain/indicators"
	"github.com/marketstat/pctrun/internal/domain/percentile"
	"github.com/marketstat/pctrun/internal/domain/regime"
	"github.com/marketstat/pctrun/internal/domain/stats"
)

// Config enumerates everything an analysis run depends on. All values
// are explicit; there is no module-global state.
type Config struct {
	// LookbackWindow is the trailing window for the rolling percentile
	// rank, in bars.
	LookbackWindow int `yaml:"lookback_window" json:"lookback_window"`
	// BinCount is the number of equal-width percentile bins.
	BinCount int `yaml:"bin_count" json:"bin_count"`
	// Horizons are the forward look-ahead distances in trading days.
	Horizons []int `yaml:"horizons" json:"horizons"`
	// Zones maps zone names to bin indices; empty means the documented
	// default of entry_zone (lowest two bins) plus all.
	Zones percentile.ZoneSet `yaml:"zones" json:"zones"`
	// SmoothingMode selects the RSI averaging scheme.
	SmoothingMode indicators.SmoothingMode `yaml:"smoothing_mode" json:"smoothing_mode"`

	RSIPeriod   int `yaml:"rsi_period" json:"rsi_period"`
	RSIMALength int `yaml:"rsi_ma_length" json:"rsi_ma_length"`

	Regime regime.Config `yaml:"regime" json:"regime"`

	// MinBuffer is the extra bars required past max(lookback, horizon)
	// before a run is accepted.
	MinBuffer int `yaml:"min_buffer" json:"min_buffer"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		LookbackWindow: 252,
		BinCount:       8,
		Horizons:       []int{1, 3, 5, 7, 14, 21},
		SmoothingMode:  indicators.SmoothWilderExponential,
		RSIPeriod:      14,
		RSIMALength:    9,
		Regime:         regime.DefaultConfig(),
		MinBuffer:      20,
	}
}

// Normalize fills unset fields with defaults and sorts horizons.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.LookbackWindow <= 0 {
		c.LookbackWindow = def.LookbackWindow
	}
	if c.BinCount <= 0 {
		c.BinCount = def.BinCount
	}
	if len(c.Horizons) == 0 {
		c.Horizons = def.Horizons
	}
	horizons := append([]int(nil), c.Horizons...)
	sort.Ints(horizons)
	c.Horizons = horizons
	if len(c.Zones) == 0 {
		c.Zones = percentile.DefaultZones(c.BinCount)
	}
	c.Zones = c.Zones.WithAll(c.BinCount)
	if c.SmoothingMode == "" {
		c.SmoothingMode = def.SmoothingMode
	}
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = def.RSIPeriod
	}
	if c.RSIMALength <= 0 {
		c.RSIMALength = def.RSIMALength
	}
	c.Regime = c.Regime.Normalize()
	if c.MinBuffer <= 0 {
		c.MinBuffer = def.MinBuffer
	}
	return c
}

// Validate rejects configs the driver cannot run.
func (c Config) Validate() error {
	if _, err := indicators.ParseSmoothingMode(string(c.SmoothingMode)); err != nil {
		return err
	}
	for _, h := range c.Horizons {
		if h < 1 {
			return fmt.Errorf("horizon must be positive, got %d", h)
		}
	}
	if err := c.Zones.Validate(c.BinCount); err != nil {
		return err
	}
	return nil
}

// MaxHorizon returns the largest configured horizon.
func (c Config) MaxHorizon() int {
	max := 0
	for _, h := range c.Horizons {
		if h > max {
			max = h
		}
	}
	return max
}

// MinSeriesLen is the shortest series the config accepts.
func (c Config) MinSeriesLen() int {
	need := c.LookbackWindow
	if h := c.MaxHorizon(); h > need {
		need = h
	}
	return need + c.MinBuffer
}

// Driver runs the composite analysis. Stateless after construction and
// safe for concurrent use; each Run works on its own frozen inputs.
type Driver struct {
	cfg       Config
	binner    percentile.Binner
	estimator *regime.Estimator
}

// NewDriver normalizes and validates the config.
func NewDriver(cfg Config) (*Driver, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}
	binner, err := percentile.NewBinner(cfg.BinCount)
	if err != nil {
		return nil, err
	}
	return &Driver{
		cfg:       cfg,
		binner:    binner,
		estimator: regime.NewEstimator(cfg.Regime),
	}, nil
}

// Config returns the normalized configuration the driver runs with.
func (d *Driver) Config() Config { return d.cfg }

// Run computes the full report for one series. Validation failures are
// fatal to the call and return no partial report; per-cell statistical
// degeneracies degrade to undefined markers inside a complete report.
func (d *Driver) Run(series *domain.PriceSeries) (*Report, error) {
	if series == nil || series.Len() == 0 {
		return nil, &domain.InsufficientDataError{Required: d.cfg.MinSeriesLen(), Actual: 0}
	}
	if series.Len() < d.cfg.MinSeriesLen() {
		return nil, &domain.InsufficientDataError{
			Required: d.cfg.MinSeriesLen(),
			Actual:   series.Len(),
		}
	}

	closes := series.Closes()
	ranks := indicators.PercentileRank(closes, d.cfg.LookbackWindow)

	agg := percentile.NewAggregator(series, ranks, d.binner, d.cfg.Horizons)
	bins := agg.Bins()

	signalStats := make(map[int]map[int]percentile.Signal, len(bins))
	for _, bs := range bins {
		cells := make(map[int]percentile.Signal, len(bs.Horizons))
		for h, cell := range bs.Horizons {
			cells[h] = percentile.ClassifyCell(cell)
		}
		signalStats[bs.Bin] = cells
	}

	rsi, rsiMA := indicators.RSIWithMA(closes, d.cfg.RSIPeriod, d.cfg.RSIMALength, d.cfg.SmoothingMode)

	report := &Report{
		Symbol:      series.Symbol,
		SampleSize:  agg.SampleSize(),
		Horizons:    append([]int(nil), d.cfg.Horizons...),
		BinStats:    bins,
		ZoneStats:   percentile.AggregateZones(agg, d.cfg.Zones),
		SignalStats: signalStats,
		RegimeStats: d.estimator.Latest(closes),
		Indicators: IndicatorSnapshot{
			RSI:            last(rsi),
			RSIMA:          last(rsiMA),
			PercentileRank: last(ranks),
		},
	}
	return report, nil
}

func last(vs []stats.Value) stats.Value {
	if len(vs) == 0 {
		return stats.Undefined()
	}
	return vs[len(vs)-1]
}
