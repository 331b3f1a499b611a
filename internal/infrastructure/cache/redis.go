// Package cache provides an optional Redis layer for price series and
// analysis reports. A nil *Redis is a safe no-op so callers need no
// enabled checks.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/marketstat/pctrun/internal/domain"
	"github.com/marketstat/pctrun/internal/domain/analysis"
)

// Config holds Redis connection settings.
type Config struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	SeriesTTL time.Duration `yaml:"series_ttl"`
	ReportTTL time.Duration `yaml:"report_ttl"`
	Enabled   bool          `yaml:"enabled"`
}

// DefaultConfig returns the standard cache settings, disabled until
// configured.
func DefaultConfig() Config {
	return Config{
		Addr:      "localhost:6379",
		KeyPrefix: "pctrun:",
		SeriesTTL: 15 * time.Minute,
		ReportTTL: time.Hour,
		Enabled:   false,
	}
}

// Stats tracks cache effectiveness.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`
}

// Redis is the cache client.
type Redis struct {
	client *redis.Client
	cfg    Config

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
	errs   atomic.Int64
}

// New connects to Redis, or returns nil when the config is disabled.
func New(cfg Config) (*Redis, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return &Redis{client: client, cfg: cfg}, nil
}

// NewWithClient wraps an existing client, skipping the connection ping.
// Used with mock clients in tests.
func NewWithClient(client *redis.Client, cfg Config) *Redis {
	return &Redis{client: client, cfg: cfg}
}

func (r *Redis) seriesKey(symbol string) string {
	return r.cfg.KeyPrefix + "series:" + symbol
}

func (r *Redis) reportKey(symbol string) string {
	return r.cfg.KeyPrefix + "report:" + symbol
}

// GetSeries fetches a cached series; the bool reports a hit.
func (r *Redis) GetSeries(ctx context.Context, symbol string) (*domain.PriceSeries, bool) {
	if r == nil {
		return nil, false
	}
	var series domain.PriceSeries
	if !r.get(ctx, r.seriesKey(symbol), &series) {
		return nil, false
	}
	return &series, true
}

// SetSeries caches a series under the configured TTL.
func (r *Redis) SetSeries(ctx context.Context, series *domain.PriceSeries) {
	if r == nil || series == nil {
		return
	}
	r.set(ctx, r.seriesKey(series.Symbol), series, r.cfg.SeriesTTL)
}

// GetReport fetches a cached report; the bool reports a hit.
func (r *Redis) GetReport(ctx context.Context, symbol string) (*analysis.Report, bool) {
	if r == nil {
		return nil, false
	}
	var report analysis.Report
	if !r.get(ctx, r.reportKey(symbol), &report) {
		return nil, false
	}
	return &report, true
}

// SetReport caches a report under the configured TTL.
func (r *Redis) SetReport(ctx context.Context, report *analysis.Report) {
	if r == nil || report == nil {
		return
	}
	r.set(ctx, r.reportKey(report.Symbol), report, r.cfg.ReportTTL)
}

func (r *Redis) get(ctx context.Context, key string, dst any) bool {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.errs.Add(1)
			log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		r.misses.Add(1)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		r.errs.Add(1)
		log.Warn().Err(err).Str("key", key).Msg("cache entry corrupt, treating as miss")
		r.misses.Add(1)
		return false
	}
	r.hits.Add(1)
	return true
}

func (r *Redis) set(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		r.errs.Add(1)
		return
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		r.errs.Add(1)
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		return
	}
	r.sets.Add(1)
}

// Stats returns a point-in-time snapshot of cache counters.
func (r *Redis) Stats() Stats {
	if r == nil {
		return Stats{}
	}
	return Stats{
		Hits:   r.hits.Load(),
		Misses: r.misses.Load(),
		Sets:   r.sets.Load(),
		Errors: r.errs.Load(),
	}
}

// Healthy pings the server.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil {
		return false
	}
	return r.client.Ping(ctx).Err() == nil
}

// Close releases the client.
func (r *Redis) Close() error {
	if r == nil {
		return nil
	}
	return r.client.Close()
}
