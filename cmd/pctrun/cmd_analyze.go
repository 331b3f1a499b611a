package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/marketstat/pctrun/internal/application"
	"github.com/marketstat/pctrun/internal/config"
	"github.com/marketstat/pctrun/internal/domain/analysis"
	"github.com/marketstat/pctrun/internal/domain/indicators"
	"github.com/marketstat/pctrun/internal/infrastructure/providers"
)

var (
	analyzeSymbol  string
	analyzeCSV     string
	analyzeOutput  string
	analyzeWindow  int
	analyzeBins    int
	analyzeSmooth  string
	analyzeHorizon []int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one symbol or CSV file",
	Long: `Run the percentile forward-return analysis for a single symbol (via
the configured provider) or a local CSV file, and print or write the
report JSON.

Examples:
  pctrun analyze --symbol SPY
  pctrun analyze --csv data/bars/SPY.csv --window 300 --bins 8
  pctrun analyze --symbol QQQ --output out/reports`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeSymbol, "symbol", "", "Ticker symbol to analyze")
	analyzeCmd.Flags().StringVar(&analyzeCSV, "csv", "", "Analyze a CSV file instead of a provider symbol")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "-", "Output directory, or - for stdout")
	analyzeCmd.Flags().IntVar(&analyzeWindow, "window", 0, "Override lookback window")
	analyzeCmd.Flags().IntVar(&analyzeBins, "bins", 0, "Override bin count")
	analyzeCmd.Flags().StringVar(&analyzeSmooth, "smoothing", "", "RSI smoothing mode (simple-rolling|wilder-exponential)")
	analyzeCmd.Flags().IntSliceVar(&analyzeHorizon, "horizons", nil, "Override forward horizons in days")
}

func loadConfigWithOverrides(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = cfg.LogLevel
	}
	setLogLevel(level)

	if analyzeWindow > 0 {
		cfg.Analysis.LookbackWindow = analyzeWindow
	}
	if analyzeBins > 0 {
		cfg.Analysis.BinCount = analyzeBins
	}
	if analyzeSmooth != "" {
		mode, err := indicators.ParseSmoothingMode(analyzeSmooth)
		if err != nil {
			return cfg, err
		}
		cfg.Analysis.SmoothingMode = mode
	}
	if len(analyzeHorizon) > 0 {
		cfg.Analysis.Horizons = analyzeHorizon
	}
	return cfg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeSymbol == "" && analyzeCSV == "" {
		return fmt.Errorf("one of --symbol or --csv is required")
	}

	cfg, err := loadConfigWithOverrides(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	report, err := analyzeOne(ctx, cfg)
	if err != nil {
		return err
	}

	if analyzeOutput == "-" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	writer, err := application.NewSnapshotWriter(analyzeOutput)
	if err != nil {
		return err
	}
	path, err := writer.Write(report)
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("report written")
	return nil
}

func analyzeOne(ctx context.Context, cfg config.Config) (*analysis.Report, error) {
	if analyzeCSV != "" {
		dir := filepath.Dir(analyzeCSV)
		symbol := strings.TrimSuffix(filepath.Base(analyzeCSV), filepath.Ext(analyzeCSV))
		provider := providers.NewCSVProvider(dir)

		series, err := provider.FetchDailyBars(ctx, symbol, cfg.Provider.LookbackDays)
		if err != nil {
			return nil, err
		}
		driver, err := analysis.NewDriver(cfg.Analysis)
		if err != nil {
			return nil, err
		}
		return driver.Run(series)
	}

	provider, err := cfg.BuildProvider()
	if err != nil {
		return nil, err
	}
	service, err := application.NewAnalysisService(cfg.Analysis, provider, cfg.Provider.LookbackDays)
	if err != nil {
		return nil, err
	}
	return service.AnalyzeSymbol(ctx, strings.ToUpper(analyzeSymbol))
}
