package providers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketstat/pctrun/internal/domain"
)

// CSVProvider reads daily bars from per-symbol CSV files in a directory,
// for offline analysis and dry runs. Expected columns:
// date,open,high,low,close,volume with an ISO date.
type CSVProvider struct {
	dir string
}

// NewCSVProvider creates a provider rooted at dir.
func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

func (p *CSVProvider) Name() string { return "csv" }

// FetchDailyBars loads <dir>/<SYMBOL>.csv, keeping the trailing
// lookbackDays rows (0 keeps everything).
func (p *CSVProvider) FetchDailyBars(ctx context.Context, symbol string, lookbackDays int) (*domain.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(p.dir, strings.ToUpper(symbol)+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ErrSymbolNotFound{Symbol: symbol, Provider: p.Name()}
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	bars, err := parseBars(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if lookbackDays > 0 && len(bars) > lookbackDays {
		bars = bars[len(bars)-lookbackDays:]
	}

	series, err := domain.NewPriceSeries(strings.ToUpper(symbol), bars)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("symbol", series.Symbol).Int("bars", series.Len()).Str("path", path).
		Msg("loaded series from csv")
	return series, nil
}

func parseBars(r io.Reader) ([]domain.Bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	// Skip a header row if the first field is not a date.
	start := 0
	if _, err := time.Parse("2006-01-02", records[0][0]); err != nil {
		start = 1
	}

	bars := make([]domain.Bar, 0, len(records)-start)
	for i := start; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 6 {
			return nil, fmt.Errorf("row %d: expected 6 columns, got %d", i+1, len(rec))
		}
		ts, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad date %q: %w", i+1, rec[0], err)
		}
		vals := make([]float64, 5)
		for j := 1; j <= 5; j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", i+1, j+1, err)
			}
			vals[j-1] = v
		}
		bars = append(bars, domain.Bar{
			Timestamp: ts.UTC(),
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}
	return bars, nil
}
