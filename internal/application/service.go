// Package application wires providers, cache, persistence, and the
// analysis driver into the operations the CLI and HTTP layers call.
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/marketstat/pctrun/internal/domain"
	"github.com/marketstat/pctrun/internal/domain/analysis"
	"github.com/marketstat/pctrun/internal/infrastructure/cache"
	"github.com/marketstat/pctrun/internal/infrastructure/providers"
	"github.com/marketstat/pctrun/internal/persistence"
)

// ErrPersistenceDisabled is returned by snapshot reads when no
// repository is configured.
var ErrPersistenceDisabled = errors.New("persistence is not enabled")

// AnalysisService runs analyses against provider-fetched or caller-
// supplied series, with optional caching and persistence around the pure
// core.
type AnalysisService struct {
	driver       *analysis.Driver
	provider     providers.Provider
	cache        *cache.Redis
	repo         persistence.ReportRepo
	lookbackDays int
}

// ServiceOption customizes an AnalysisService.
type ServiceOption func(*AnalysisService)

// WithCache attaches a report/series cache.
func WithCache(c *cache.Redis) ServiceOption {
	return func(s *AnalysisService) { s.cache = c }
}

// WithRepository attaches snapshot persistence.
func WithRepository(repo persistence.ReportRepo) ServiceOption {
	return func(s *AnalysisService) { s.repo = repo }
}

// NewAnalysisService builds the service. lookbackDays bounds provider
// fetches; it must cover the driver's minimum series length.
func NewAnalysisService(cfg analysis.Config, provider providers.Provider, lookbackDays int, opts ...ServiceOption) (*AnalysisService, error) {
	driver, err := analysis.NewDriver(cfg)
	if err != nil {
		return nil, err
	}
	if lookbackDays < driver.Config().MinSeriesLen() {
		return nil, fmt.Errorf("provider lookback %d is below the minimum series length %d",
			lookbackDays, driver.Config().MinSeriesLen())
	}

	s := &AnalysisService{
		driver:       driver,
		provider:     provider,
		lookbackDays: lookbackDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the normalized analysis configuration.
func (s *AnalysisService) Config() analysis.Config { return s.driver.Config() }

// AnalyzeSeries runs the pure core over a caller-supplied series.
func (s *AnalysisService) AnalyzeSeries(series *domain.PriceSeries) (*analysis.Report, error) {
	return s.driver.Run(series)
}

// AnalyzeSymbol resolves the series (cache, then provider), runs the
// analysis, and writes the report to the cache and repository when
// configured. Persistence failures are logged, not fatal: the report is
// already complete.
func (s *AnalysisService) AnalyzeSymbol(ctx context.Context, symbol string) (*analysis.Report, error) {
	if report, ok := s.cache.GetReport(ctx, symbol); ok {
		return report, nil
	}

	series, err := s.resolveSeries(ctx, symbol)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report, err := s.driver.Run(series)
	if err != nil {
		return nil, err
	}
	log.Info().Str("symbol", symbol).Int("sample_size", report.SampleSize).
		Dur("elapsed", time.Since(start)).Msg("analysis complete")

	s.cache.SetReport(ctx, report)
	s.persist(ctx, series, report)
	return report, nil
}

// LatestSnapshot returns the most recent persisted snapshot for the
// symbol.
func (s *AnalysisService) LatestSnapshot(ctx context.Context, symbol string) (*persistence.ReportSnapshot, error) {
	if s.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	return s.repo.Latest(ctx, symbol)
}

// History returns persisted snapshots for the symbol inside the time
// range, newest first.
func (s *AnalysisService) History(ctx context.Context, symbol string, tr persistence.TimeRange, limit int) ([]persistence.ReportSnapshot, error) {
	if s.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	return s.repo.History(ctx, symbol, tr, limit)
}

func (s *AnalysisService) resolveSeries(ctx context.Context, symbol string) (*domain.PriceSeries, error) {
	if series, ok := s.cache.GetSeries(ctx, symbol); ok {
		return series, nil
	}
	if s.provider == nil {
		return nil, fmt.Errorf("no provider configured for symbol fetch")
	}
	series, err := s.provider.FetchDailyBars(ctx, symbol, s.lookbackDays)
	if err != nil {
		return nil, err
	}
	s.cache.SetSeries(ctx, series)
	return series, nil
}

func (s *AnalysisService) persist(ctx context.Context, series *domain.PriceSeries, report *analysis.Report) {
	if s.repo == nil {
		return
	}
	asOf := series.Bars[series.Len()-1].Timestamp
	snap := persistence.ReportSnapshot{
		RunID:      uuid.NewString(),
		Symbol:     report.Symbol,
		AsOf:       asOf,
		SampleSize: report.SampleSize,
		Config:     s.driver.Config(),
		Report:     report,
	}
	if err := s.repo.Upsert(ctx, snap); err != nil {
		log.Error().Err(err).Str("symbol", report.Symbol).Msg("failed to persist report snapshot")
	}
}
