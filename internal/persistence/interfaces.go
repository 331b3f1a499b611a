// Package persistence defines the repository contracts for durable
// analysis artifacts. Implementations live in subpackages; callers depend
// only on these interfaces.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/marketstat/pctrun/internal/domain/analysis"
)

// ErrNotFound is returned when no snapshot exists for the query.
var ErrNotFound = errors.New("report snapshot not found")

// ReportSnapshot is one persisted analysis run for a symbol.
type ReportSnapshot struct {
	ID         int64            `json:"id" db:"id"`
	RunID      string           `json:"run_id" db:"run_id"`
	Symbol     string           `json:"symbol" db:"symbol"`
	AsOf       time.Time        `json:"as_of" db:"as_of"`
	SampleSize int              `json:"sample_size" db:"sample_size"`
	Config     analysis.Config  `json:"config" db:"-"`
	Report     *analysis.Report `json:"report" db:"-"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// TimeRange bounds history queries.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ReportRepo persists and retrieves analysis reports. Upsert keys on
// (symbol, as_of) so re-running a day replaces that day's snapshot.
type ReportRepo interface {
	Upsert(ctx context.Context, snapshot ReportSnapshot) error
	Latest(ctx context.Context, symbol string) (*ReportSnapshot, error)
	History(ctx context.Context, symbol string, tr TimeRange, limit int) ([]ReportSnapshot, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// HealthCheck reports repository availability.
type HealthCheck struct {
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency"`
	Errors    []string      `json:"errors,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
}

// RepositoryHealth is implemented by storage backends that can be probed.
type RepositoryHealth interface {
	Health(ctx context.Context) HealthCheck
}

// Repository aggregates the available repositories.
type Repository struct {
	Reports ReportRepo
}
