package application

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketstat/pctrun/internal/domain/analysis"
)

// TickerResult is the outcome of one symbol's analysis in a batch run.
type TickerResult struct {
	Symbol  string           `json:"symbol"`
	Report  *analysis.Report `json:"report,omitempty"`
	Err     error            `json:"-"`
	Error   string           `json:"error,omitempty"`
	Elapsed time.Duration    `json:"elapsed"`
}

// BatchConfig controls batch fan-out.
type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// DefaultBatchConfig bounds the pool at 4 workers.
func DefaultBatchConfig() BatchConfig { return BatchConfig{Workers: 4} }

// RunBatch analyzes each symbol on its own frozen snapshot through a
// bounded worker pool. Per-ticker failures are recorded and do not stop
// the batch; results arrive in completion order, no ordering guarantee
// between tickers.
func (s *AnalysisService) RunBatch(ctx context.Context, symbols []string, cfg BatchConfig) []TickerResult {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultBatchConfig().Workers
	}

	jobs := make(chan string)
	results := make(chan TickerResult)

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				start := time.Now()
				report, err := s.AnalyzeSymbol(ctx, symbol)
				res := TickerResult{
					Symbol:  symbol,
					Report:  report,
					Err:     err,
					Elapsed: time.Since(start),
				}
				if err != nil {
					res.Error = err.Error()
				}
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, symbol := range symbols {
			select {
			case jobs <- symbol:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]TickerResult, 0, len(symbols))
	for res := range results {
		if res.Err != nil {
			log.Warn().Err(res.Err).Str("symbol", res.Symbol).Msg("batch analysis failed")
		}
		out = append(out, res)
	}
	return out
}
