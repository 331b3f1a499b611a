// Package postgres implements the report repository on PostgreSQL with
// JSONB payloads.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/marketstat/pctrun/internal/domain/analysis"
	"github.com/marketstat/pctrun/internal/persistence"
)

// ErrNotFound aliases the repository sentinel for package-local use.
var ErrNotFound = persistence.ErrNotFound

type reportRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewReportRepo creates a PostgreSQL report repository.
func NewReportRepo(db *sqlx.DB, timeout time.Duration) persistence.ReportRepo {
	return &reportRepo{db: db, timeout: timeout}
}

// Upsert inserts or replaces the snapshot for (symbol, as_of).
func (r *reportRepo) Upsert(ctx context.Context, snapshot persistence.ReportSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if snapshot.Symbol == "" {
		return fmt.Errorf("snapshot symbol is required")
	}
	if snapshot.Report == nil {
		return fmt.Errorf("snapshot report is required")
	}

	reportJSON, err := json.Marshal(snapshot.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	configJSON, err := json.Marshal(snapshot.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	query := `
		INSERT INTO report_snapshots
		(run_id, symbol, as_of, sample_size, config, report)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol, as_of) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			sample_size = EXCLUDED.sample_size,
			config = EXCLUDED.config,
			report = EXCLUDED.report`

	if _, err := r.db.ExecContext(ctx, query,
		snapshot.RunID, snapshot.Symbol, snapshot.AsOf,
		snapshot.SampleSize, configJSON, reportJSON); err != nil {
		return fmt.Errorf("failed to upsert report snapshot: %w", err)
	}
	return nil
}

type snapshotRow struct {
	ID         int64     `db:"id"`
	RunID      string    `db:"run_id"`
	Symbol     string    `db:"symbol"`
	AsOf       time.Time `db:"as_of"`
	SampleSize int       `db:"sample_size"`
	Config     []byte    `db:"config"`
	Report     []byte    `db:"report"`
	CreatedAt  time.Time `db:"created_at"`
}

func (row snapshotRow) toSnapshot() (persistence.ReportSnapshot, error) {
	snap := persistence.ReportSnapshot{
		ID:         row.ID,
		RunID:      row.RunID,
		Symbol:     row.Symbol,
		AsOf:       row.AsOf,
		SampleSize: row.SampleSize,
		CreatedAt:  row.CreatedAt,
	}
	if err := json.Unmarshal(row.Config, &snap.Config); err != nil {
		return snap, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	var report analysis.Report
	if err := json.Unmarshal(row.Report, &report); err != nil {
		return snap, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	snap.Report = &report
	return snap, nil
}

// Latest returns the most recent snapshot for a symbol.
func (r *reportRepo) Latest(ctx context.Context, symbol string) (*persistence.ReportSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row snapshotRow
	query := `
		SELECT id, run_id, symbol, as_of, sample_size, config, report, created_at
		FROM report_snapshots
		WHERE symbol = $1
		ORDER BY as_of DESC
		LIMIT 1`
	if err := r.db.GetContext(ctx, &row, query, symbol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	snap, err := row.toSnapshot()
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// History returns snapshots inside the time range, newest first.
func (r *reportRepo) History(ctx context.Context, symbol string, tr persistence.TimeRange, limit int) ([]persistence.ReportSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	var rows []snapshotRow
	query := `
		SELECT id, run_id, symbol, as_of, sample_size, config, report, created_at
		FROM report_snapshots
		WHERE symbol = $1 AND as_of >= $2 AND as_of <= $3
		ORDER BY as_of DESC
		LIMIT $4`
	if err := r.db.SelectContext(ctx, &rows, query, symbol, tr.From, tr.To, limit); err != nil {
		return nil, fmt.Errorf("failed to load snapshot history: %w", err)
	}

	out := make([]persistence.ReportSnapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := row.toSnapshot()
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// DeleteOlderThan removes snapshots before the cutoff, returning the
// number deleted.
func (r *reportRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM report_snapshots WHERE as_of < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}
	return res.RowsAffected()
}
