// Package providers supplies price history to the analysis layers. The
// statistical core never touches a provider; orchestration fetches a
// frozen series and hands it down.
package providers

import (
	"context"
	"fmt"

	"github.com/marketstat/pctrun/internal/domain"
)

// Provider fetches daily OHLCV history for a symbol. Implementations
// must return a validated series or an error, never a partial one.
type Provider interface {
	Name() string
	FetchDailyBars(ctx context.Context, symbol string, lookbackDays int) (*domain.PriceSeries, error)
}

// ErrSymbolNotFound wraps provider lookups that resolve no data.
type ErrSymbolNotFound struct {
	Symbol   string
	Provider string
}

func (e *ErrSymbolNotFound) Error() string {
	return fmt.Sprintf("symbol %s not found via provider %s", e.Symbol, e.Provider)
}
