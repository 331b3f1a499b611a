// Package db manages the PostgreSQL connection pool and wires the
// repository implementations.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/marketstat/pctrun/internal/persistence"
	"github.com/marketstat/pctrun/internal/persistence/postgres"
)

// Config holds database connection configuration.
type Config struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
	Enabled         bool          `yaml:"enabled"`
}

// DefaultConfig returns reasonable pool defaults. Persistence is off
// until a DSN is configured explicitly.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		QueryTimeout:    30 * time.Second,
		Enabled:         false,
	}
}

// Manager owns the connection pool and repository instances.
type Manager struct {
	db     *sqlx.DB
	config Config
	repos  *persistence.Repository
	health *healthChecker
}

// NewManager opens the pool and pings it. A disabled config yields a
// manager whose Repository() is nil; callers must check IsEnabled.
func NewManager(config Config) (*Manager, error) {
	if !config.Enabled {
		return &Manager{
			config: config,
			health: &healthChecker{enabled: false},
		}, nil
	}
	if config.DSN == "" {
		return nil, fmt.Errorf("database DSN is required when enabled")
	}

	db, err := sqlx.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Manager{
		db:     db,
		config: config,
		repos: &persistence.Repository{
			Reports: postgres.NewReportRepo(db, config.QueryTimeout),
		},
		health: &healthChecker{enabled: true, db: db, timeout: config.QueryTimeout},
	}, nil
}

// Repository returns the repository collection, or nil when disabled.
func (m *Manager) Repository() *persistence.Repository { return m.repos }

// Health returns the health checker.
func (m *Manager) Health() persistence.RepositoryHealth { return m.health }

// DB returns the underlying pool, for migrations.
func (m *Manager) DB() *sqlx.DB { return m.db }

// IsEnabled reports whether persistence is active.
func (m *Manager) IsEnabled() bool { return m.config.Enabled && m.db != nil }

// Close releases the pool.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Migrate creates the report snapshot table when missing.
func (m *Manager) Migrate(ctx context.Context) error {
	if !m.IsEnabled() {
		return nil
	}
	schema := `
		CREATE TABLE IF NOT EXISTS report_snapshots (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			as_of TIMESTAMPTZ NOT NULL,
			sample_size INT NOT NULL,
			config JSONB NOT NULL,
			report JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (symbol, as_of)
		);
		CREATE INDEX IF NOT EXISTS idx_report_snapshots_symbol_asof
			ON report_snapshots (symbol, as_of DESC);`
	if _, err := m.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

type healthChecker struct {
	enabled bool
	db      *sqlx.DB
	timeout time.Duration
}

func (h *healthChecker) Health(ctx context.Context) persistence.HealthCheck {
	check := persistence.HealthCheck{CheckedAt: time.Now()}
	if !h.enabled {
		check.Healthy = true
		check.Errors = []string{"database persistence disabled"}
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		check.Errors = []string{err.Error()}
		return check
	}
	check.Healthy = true
	check.Latency = time.Since(start)
	return check
}
