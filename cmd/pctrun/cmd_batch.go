package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/marketstat/pctrun/internal/application"
	"github.com/marketstat/pctrun/internal/config"
	"github.com/marketstat/pctrun/internal/infrastructure/cache"
)

var (
	batchSymbols []string
	batchFile    string
	batchOutput  string
	batchWorkers int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze a list of symbols concurrently",
	Long: `Run the analysis for every symbol in the list through a bounded
worker pool and write one report snapshot per symbol.

Examples:
  pctrun batch --symbols SPY,QQQ,IWM
  pctrun batch --file universe.txt --workers 8 --output out/reports`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringSliceVar(&batchSymbols, "symbols", nil, "Comma-separated ticker symbols")
	batchCmd.Flags().StringVar(&batchFile, "file", "", "File with one symbol per line")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "Output directory (default snapshot_dir from config)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "Override worker count")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = cfg.LogLevel
	}
	setLogLevel(level)

	symbols, err := collectSymbols()
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols given; use --symbols or --file")
	}

	if batchWorkers > 0 {
		cfg.Batch.Workers = batchWorkers
	}
	outDir := cfg.SnapshotDir
	if batchOutput != "" {
		outDir = batchOutput
	}

	provider, err := cfg.BuildProvider()
	if err != nil {
		return err
	}
	redisCache, err := cache.New(cfg.Redis)
	if err != nil {
		return err
	}
	defer redisCache.Close()

	service, err := application.NewAnalysisService(cfg.Analysis, provider, cfg.Provider.LookbackDays,
		application.WithCache(redisCache))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results := service.RunBatch(ctx, symbols, cfg.Batch)

	writer, err := application.NewSnapshotWriter(outDir)
	if err != nil {
		return err
	}
	paths, err := writer.WriteBatch(results)
	if err != nil {
		return err
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Warn().Str("symbol", r.Symbol).Err(r.Err).Msg("analysis failed")
		}
	}
	log.Info().Int("symbols", len(symbols)).Int("written", len(paths)).
		Int("failed", failed).Str("dir", outDir).Msg("batch complete")

	if failed == len(symbols) {
		return fmt.Errorf("all %d analyses failed", failed)
	}
	return nil
}

func collectSymbols() ([]string, error) {
	seen := make(map[string]bool)
	var symbols []string
	add := func(s string) {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || strings.HasPrefix(s, "#") || seen[s] {
			return
		}
		seen[s] = true
		symbols = append(symbols, s)
	}

	for _, s := range batchSymbols {
		add(s)
	}
	if batchFile != "" {
		data, err := os.ReadFile(batchFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read symbol file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			add(line)
		}
	}
	return symbols, nil
}
