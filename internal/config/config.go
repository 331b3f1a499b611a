// Package config loads and validates the application configuration from
// YAML. Every tunable lives here or in a component config struct with
// documented defaults; there is no module-global mutable state.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/marketstat/pctrun/internal/application"
	"github.com/marketstat/pctrun/internal/domain/analysis"
	"github.com/marketstat/pctrun/internal/infrastructure/cache"
	"github.com/marketstat/pctrun/internal/infrastructure/db"
	"github.com/marketstat/pctrun/internal/infrastructure/providers"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DefaultServerConfig binds locally on 8080.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ProviderConfig selects and configures the price-history source.
type ProviderConfig struct {
	// Kind is "csv" or "http".
	Kind string `yaml:"kind"`
	// CSVDir is the bar-file directory for the csv provider.
	CSVDir string `yaml:"csv_dir"`
	// LookbackDays bounds history fetches.
	LookbackDays int                  `yaml:"lookback_days"`
	HTTP         providers.HTTPConfig `yaml:"http"`
}

// Config is the full application configuration.
type Config struct {
	Analysis analysis.Config         `yaml:"analysis"`
	Batch    application.BatchConfig `yaml:"batch"`
	Server   ServerConfig            `yaml:"server"`
	Provider ProviderConfig          `yaml:"provider"`
	Database db.Config               `yaml:"database"`
	Redis    cache.Config            `yaml:"redis"`
	// SnapshotDir receives report JSON files; empty disables snapshots.
	SnapshotDir string `yaml:"snapshot_dir"`
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// Default returns the complete default configuration.
func Default() Config {
	return Config{
		Analysis: analysis.DefaultConfig(),
		Batch:    application.DefaultBatchConfig(),
		Server:   DefaultServerConfig(),
		Provider: ProviderConfig{
			Kind:         "csv",
			CSVDir:       "data/bars",
			LookbackDays: 600,
			HTTP:         providers.DefaultHTTPConfig(),
		},
		Database:    db.DefaultConfig(),
		Redis:       cache.DefaultConfig(),
		SnapshotDir: "out/reports",
		LogLevel:    "info",
	}
}

// Load reads the YAML file at path over the defaults; an empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints the component configs cannot
// see on their own.
func (c Config) Validate() error {
	normalized := c.Analysis.Normalize()
	if err := normalized.Validate(); err != nil {
		return err
	}
	switch c.Provider.Kind {
	case "csv":
		if c.Provider.CSVDir == "" {
			return fmt.Errorf("provider.csv_dir is required for the csv provider")
		}
	case "http":
		if c.Provider.HTTP.BaseURL == "" {
			return fmt.Errorf("provider.http.base_url is required for the http provider")
		}
	default:
		return fmt.Errorf("unknown provider kind %q", c.Provider.Kind)
	}
	if c.Provider.LookbackDays < normalized.MinSeriesLen() {
		return fmt.Errorf("provider.lookback_days %d is below the minimum series length %d",
			c.Provider.LookbackDays, normalized.MinSeriesLen())
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	return nil
}

// BuildProvider constructs the configured provider.
func (c Config) BuildProvider() (providers.Provider, error) {
	switch c.Provider.Kind {
	case "csv":
		return providers.NewCSVProvider(c.Provider.CSVDir), nil
	case "http":
		return providers.NewHTTPProvider(c.Provider.HTTP)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", c.Provider.Kind)
	}
}
