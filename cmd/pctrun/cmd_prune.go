package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/marketstat/pctrun/internal/config"
	"github.com/marketstat/pctrun/internal/infrastructure/db"
)

var pruneOlderThanDays int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old report snapshots from the database",
	Long: `Remove persisted report snapshots whose as-of date is older than the
retention window. Requires database persistence to be enabled in the
configuration.

Examples:
  pctrun prune --older-than-days 90
  pctrun prune --config config/analysis.yaml --older-than-days 30`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().IntVar(&pruneOlderThanDays, "older-than-days", 90, "Delete snapshots older than this many days")
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = cfg.LogLevel
	}
	setLogLevel(level)

	if pruneOlderThanDays < 1 {
		return fmt.Errorf("--older-than-days must be positive, got %d", pruneOlderThanDays)
	}

	manager, err := db.NewManager(cfg.Database)
	if err != nil {
		return err
	}
	defer manager.Close()
	if !manager.IsEnabled() {
		return fmt.Errorf("database persistence is not enabled; nothing to prune")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -pruneOlderThanDays)
	deleted, err := manager.Repository().Reports.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		return err
	}

	log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("prune complete")
	return nil
}
