package signals

import (
	"fmt"

	"github.com/marketstat/pctrun/internal/domain"
	"github.com/marketstat/pctrun/internal/domain/analysis"
	"github.com/marketstat/pctrun/internal/domain/indicators"
	"github.com/marketstat/pctrun/internal/domain/percentile"
	"github.com/marketstat/pctrun/internal/domain/regime"
)

// EntryZoneStrategy goes long when the rolling percentile rank falls in
// the configured entry zone and the historical forward-return cell for
// the signal horizon is statistically significant.
type EntryZoneStrategy struct {
	driver  *analysis.Driver
	horizon int
}

// NewEntryZoneStrategy builds the strategy. The horizon must be one of
// the config's horizons.
func NewEntryZoneStrategy(cfg analysis.Config, horizon int) (*EntryZoneStrategy, error) {
	driver, err := analysis.NewDriver(cfg)
	if err != nil {
		return nil, err
	}
	found := false
	for _, h := range driver.Config().Horizons {
		if h == horizon {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("signal horizon %d not in configured horizons", horizon)
	}
	return &EntryZoneStrategy{driver: driver, horizon: horizon}, nil
}

func (s *EntryZoneStrategy) Name() string { return "entry_zone" }

// GenerateSignals runs the analysis once, then walks the series emitting
// a long signal at each observation whose bin belongs to the entry zone
// and whose bin/horizon cell is significant.
func (s *EntryZoneStrategy) GenerateSignals(series *domain.PriceSeries) (SignalSeries, error) {
	report, err := s.driver.Run(series)
	if err != nil {
		return nil, err
	}

	cfg := s.driver.Config()
	entry := make(map[int]bool)
	for _, b := range cfg.Zones[percentile.ZoneEntry] {
		entry[b] = true
	}

	binner, err := percentile.NewBinner(cfg.BinCount)
	if err != nil {
		return nil, err
	}
	ranks := indicators.PercentileRank(series.Closes(), cfg.LookbackWindow)

	var sigs SignalSeries
	for i, r := range ranks {
		if !r.Valid {
			continue
		}
		bin := binner.Assign(r.Float)
		if !entry[bin] {
			continue
		}
		sig, ok := report.SignalStats[bin][s.horizon]
		if !ok || !sig.IsSignificant {
			continue
		}
		sigs = append(sigs, Signal{
			Index:     i,
			Timestamp: series.Bars[i].Timestamp,
			Direction: DirectionLong,
			Rank:      r.Float,
			Reason:    fmt.Sprintf("bin %d significant at horizon %d (%s)", bin, s.horizon, sig.Level),
		})
	}
	return sigs, nil
}

// CalculateMetrics evaluates the generated signals against realized
// forward returns at the strategy horizon.
func (s *EntryZoneStrategy) CalculateMetrics(series *domain.PriceSeries) (MetricsReport, error) {
	sigs, err := s.GenerateSignals(series)
	if err != nil {
		return MetricsReport{}, err
	}
	return evaluate(s.Name(), series, sigs, s.horizon), nil
}

// RegimeFilteredStrategy wraps EntryZoneStrategy and suppresses signals
// while the composite regime score indicates trending behavior, since
// the entry-zone premise is mean reversion.
type RegimeFilteredStrategy struct {
	inner     *EntryZoneStrategy
	estimator *regime.Estimator
	window    int
}

// NewRegimeFilteredStrategy builds the regime-gated variant.
func NewRegimeFilteredStrategy(cfg analysis.Config, horizon int) (*RegimeFilteredStrategy, error) {
	inner, err := NewEntryZoneStrategy(cfg, horizon)
	if err != nil {
		return nil, err
	}
	rcfg := inner.driver.Config().Regime
	return &RegimeFilteredStrategy{
		inner:     inner,
		estimator: regime.NewEstimator(rcfg),
		window:    rcfg.Normalize().Window,
	}, nil
}

func (s *RegimeFilteredStrategy) Name() string { return "entry_zone_regime_filtered" }

func (s *RegimeFilteredStrategy) GenerateSignals(series *domain.PriceSeries) (SignalSeries, error) {
	sigs, err := s.inner.GenerateSignals(series)
	if err != nil {
		return nil, err
	}

	scores := s.estimator.Scores(series.Closes())
	threshold := s.inner.driver.Config().Regime.Normalize().CompositeThreshold

	kept := make(SignalSeries, 0, len(sigs))
	for _, sig := range sigs {
		score := scores[sig.Index]
		if score.Valid && score.Float > threshold {
			continue // trending regime, skip reversion entries
		}
		kept = append(kept, sig)
	}
	return kept, nil
}

func (s *RegimeFilteredStrategy) CalculateMetrics(series *domain.PriceSeries) (MetricsReport, error) {
	sigs, err := s.GenerateSignals(series)
	if err != nil {
		return MetricsReport{}, err
	}
	return evaluate(s.Name(), series, sigs, s.inner.horizon), nil
}
