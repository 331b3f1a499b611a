package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketstat/pctrun/internal/domain"
	"github.com/marketstat/pctrun/internal/domain/analysis"
	"github.com/marketstat/pctrun/internal/infrastructure/providers"
	"github.com/marketstat/pctrun/internal/persistence"
)

func testBars(n int, seed int64) []domain.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]domain.Bar, n)
	ts := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	p := 100.0
	for i := range bars {
		p *= math.Exp(rng.NormFloat64() * 0.01)
		bars[i] = domain.Bar{Timestamp: ts, Open: p, High: p, Low: p, Close: p, Volume: 1000}
		ts = ts.AddDate(0, 0, 1)
	}
	return bars
}

func writeCSV(t *testing.T, dir, symbol string, bars []domain.Bar) {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("date,open,high,low,close,volume\n")
	for _, b := range bars {
		fmt.Fprintf(&buf, "%s,%f,%f,%f,%f,%f\n",
			b.Timestamp.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, symbol+".csv"), buf.Bytes(), 0o644))
}

func testConfig() analysis.Config {
	return analysis.Config{
		LookbackWindow: 120,
		BinCount:       8,
		Horizons:       []int{1, 5, 21},
	}
}

func newCSVService(t *testing.T, symbols ...string) *AnalysisService {
	t.Helper()
	dir := t.TempDir()
	for i, s := range symbols {
		writeCSV(t, dir, s, testBars(400, int64(i+1)))
	}
	service, err := NewAnalysisService(testConfig(), providers.NewCSVProvider(dir), 600)
	require.NoError(t, err)
	return service
}

func TestNewAnalysisService_RejectsShortLookback(t *testing.T) {
	_, err := NewAnalysisService(testConfig(), providers.NewCSVProvider(t.TempDir()), 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minimum series length")
}

func TestAnalyzeSymbol(t *testing.T) {
	service := newCSVService(t, "SPY")

	report, err := service.AnalyzeSymbol(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, "SPY", report.Symbol)
	assert.Greater(t, report.SampleSize, 0)
}

func TestAnalyzeSymbol_NotFound(t *testing.T) {
	service := newCSVService(t, "SPY")

	_, err := service.AnalyzeSymbol(context.Background(), "QQQ")
	require.Error(t, err)
	var notFound *providers.ErrSymbolNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestSnapshotReads_PersistenceDisabled(t *testing.T) {
	service := newCSVService(t, "SPY")

	_, err := service.LatestSnapshot(context.Background(), "SPY")
	require.ErrorIs(t, err, ErrPersistenceDisabled)

	_, err = service.History(context.Background(), "SPY", persistence.TimeRange{}, 0)
	require.ErrorIs(t, err, ErrPersistenceDisabled)
}

func TestRunBatch(t *testing.T) {
	service := newCSVService(t, "SPY", "QQQ", "IWM")

	results := service.RunBatch(context.Background(),
		[]string{"SPY", "QQQ", "IWM", "MISSING"}, BatchConfig{Workers: 2})
	require.Len(t, results, 4)

	bySymbol := make(map[string]TickerResult, len(results))
	for _, r := range results {
		bySymbol[r.Symbol] = r
	}

	for _, s := range []string{"SPY", "QQQ", "IWM"} {
		res := bySymbol[s]
		require.NoError(t, res.Err, s)
		require.NotNil(t, res.Report)
		assert.Equal(t, s, res.Report.Symbol)
	}

	missing := bySymbol["MISSING"]
	require.Error(t, missing.Err)
	assert.Nil(t, missing.Report)
	assert.NotEmpty(t, missing.Error)
}

func TestRunBatch_DefaultsWorkers(t *testing.T) {
	service := newCSVService(t, "SPY")

	results := service.RunBatch(context.Background(), []string{"SPY"}, BatchConfig{})
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}

func TestRunBatch_CanceledContext(t *testing.T) {
	service := newCSVService(t, "SPY", "QQQ")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := service.RunBatch(ctx, []string{"SPY", "QQQ"}, BatchConfig{Workers: 1})
	assert.LessOrEqual(t, len(results), 2)
}

func TestSnapshotWriter(t *testing.T) {
	service := newCSVService(t, "SPY")
	report, err := service.AnalyzeSymbol(context.Background(), "SPY")
	require.NoError(t, err)

	dir := t.TempDir()
	writer, err := NewSnapshotWriter(filepath.Join(dir, "reports"))
	require.NoError(t, err)

	path, err := writer.Write(report)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reports", "SPY.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "SPY", decoded["symbol"])
	for _, field := range []string{"sample_size", "horizons", "bin_stats", "zone_stats", "signal_stats"} {
		assert.Contains(t, decoded, field)
	}

	// No leftover temp file after the atomic rename.
	entries, err := os.ReadDir(filepath.Join(dir, "reports"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSnapshotWriter_WriteBatch(t *testing.T) {
	service := newCSVService(t, "SPY", "QQQ")

	results := service.RunBatch(context.Background(),
		[]string{"SPY", "QQQ", "MISSING"}, BatchConfig{Workers: 2})

	writer, err := NewSnapshotWriter(t.TempDir())
	require.NoError(t, err)
	paths, err := writer.WriteBatch(results)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestSnapshotWriter_NilReport(t *testing.T) {
	writer, err := NewSnapshotWriter(t.TempDir())
	require.NoError(t, err)
	_, err = writer.Write(nil)
	require.Error(t, err)
}
