package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketstat/pctrun/internal/domain/analysis"
	"github.com/marketstat/pctrun/internal/persistence"
)

func newMockRepo(t *testing.T) (persistence.ReportRepo, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewReportRepo(sqlx.NewDb(mockDB, "postgres"), 5*time.Second), mock
}

func snapshotColumns() []string {
	return []string{"id", "run_id", "symbol", "as_of", "sample_size", "config", "report", "created_at"}
}

func TestReportRepo_Upsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	asOf := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	snap := persistence.ReportSnapshot{
		RunID:      "run-1",
		Symbol:     "SPY",
		AsOf:       asOf,
		SampleSize: 100,
		Config:     analysis.DefaultConfig(),
		Report:     &analysis.Report{Symbol: "SPY", SampleSize: 100},
	}

	mock.ExpectExec("INSERT INTO report_snapshots").
		WithArgs("run-1", "SPY", asOf, 100, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Upsert(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepo_UpsertValidation(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	err := repo.Upsert(ctx, persistence.ReportSnapshot{Report: &analysis.Report{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol")

	err = repo.Upsert(ctx, persistence.ReportSnapshot{Symbol: "SPY"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepo_Latest(t *testing.T) {
	repo, mock := newMockRepo(t)
	asOf := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	created := asOf.Add(2 * time.Hour)

	rows := sqlmock.NewRows(snapshotColumns()).
		AddRow(int64(7), "run-1", "SPY", asOf, 100, []byte(`{}`), []byte(`{"symbol":"SPY","sample_size":100}`), created)

	mock.ExpectQuery("SELECT (.+) FROM report_snapshots").
		WithArgs("SPY").
		WillReturnRows(rows)

	snap, err := repo.Latest(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, int64(7), snap.ID)
	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, asOf, snap.AsOf)
	require.NotNil(t, snap.Report)
	assert.Equal(t, "SPY", snap.Report.Symbol)
	assert.Equal(t, 100, snap.Report.SampleSize)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepo_LatestNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM report_snapshots").
		WithArgs("SPY").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Latest(context.Background(), "SPY")
	require.ErrorIs(t, err, persistence.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepo_History(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(snapshotColumns()).
		AddRow(int64(2), "run-2", "SPY", to.AddDate(0, 0, -1), 100, []byte(`{}`), []byte(`{"symbol":"SPY"}`), to).
		AddRow(int64(1), "run-1", "SPY", from.AddDate(0, 0, 1), 99, []byte(`{}`), []byte(`{"symbol":"SPY"}`), from)

	// Unset limit falls back to the default of 100.
	mock.ExpectQuery("SELECT (.+) FROM report_snapshots").
		WithArgs("SPY", from, to, 100).
		WillReturnRows(rows)

	snaps, err := repo.History(context.Background(), "SPY", persistence.TimeRange{From: from, To: to}, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "run-2", snaps[0].RunID)
	assert.Equal(t, 99, snaps[1].SampleSize)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepo_DeleteOlderThan(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("DELETE FROM report_snapshots").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
