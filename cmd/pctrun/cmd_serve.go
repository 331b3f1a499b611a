package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/marketstat/pctrun/internal/application"
	"github.com/marketstat/pctrun/internal/config"
	"github.com/marketstat/pctrun/internal/infrastructure/cache"
	"github.com/marketstat/pctrun/internal/infrastructure/db"
	httpapi "github.com/marketstat/pctrun/internal/interfaces/http"
	"github.com/marketstat/pctrun/internal/interfaces/http/handlers"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP analysis server",
	Long: `Start the HTTP server exposing the analysis, regime, health, and
metrics endpoints. Cache and persistence are attached when enabled in
the configuration.

Examples:
  pctrun serve
  pctrun serve --config config/analysis.yaml --port 9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Override listen host")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Override listen port")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = cfg.LogLevel
	}
	setLogLevel(level)

	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
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

	dbManager, err := db.NewManager(cfg.Database)
	if err != nil {
		return err
	}
	defer dbManager.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []application.ServiceOption{application.WithCache(redisCache)}
	if dbManager.IsEnabled() {
		if err := dbManager.Migrate(ctx); err != nil {
			return err
		}
		opts = append(opts, application.WithRepository(dbManager.Repository().Reports))
	}

	service, err := application.NewAnalysisService(cfg.Analysis, provider, cfg.Provider.LookbackDays, opts...)
	if err != nil {
		return err
	}

	server, err := httpapi.NewServer(cfg.Server, handlers.NewHandlers(service, redisCache))
	if err != nil {
		return err
	}

	log.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).
		Str("provider", provider.Name()).Bool("cache", redisCache != nil).
		Bool("database", dbManager.IsEnabled()).Msg("starting server")

	return server.Start(ctx)
}
