package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	appName = "pctrun"
	version = "v1.2.0"
)

var configPath string

// rootCmd is the base command for the pctrun CLI.
var rootCmd = &cobra.Command{
	Use:     appName,
	Version: version,
	Short:   "Percentile-conditioned forward-return analysis",
	Long: `pctrun computes empirical forward-return statistics conditioned on
rolling percentile rank: given the market sits at percentile X today,
what happened N days later, historically, and is it significant.

Examples:
  pctrun analyze --symbol SPY
  pctrun analyze --csv data/bars/SPY.csv --output -
  pctrun batch --symbols SPY,QQQ,IWM --output out/reports
  pctrun serve --host 0.0.0.0 --port 8080`,
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override log level (debug|info|warn|error)")

	// Accept snake_case flag spellings matching the config keys.
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

func setLogLevel(level string) {
	if level == "" {
		return
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, keeping default")
		return
	}
	zerolog.SetGlobalLevel(parsed)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
