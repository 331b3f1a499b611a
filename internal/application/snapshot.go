package application

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/marketstat/pctrun/internal/domain/analysis"
)

// SnapshotWriter persists report JSON files under an output directory,
// one file per symbol. The file content is exactly the serialized report
// contract; nothing is added or reordered.
type SnapshotWriter struct {
	dir string
}

// NewSnapshotWriter ensures the output directory exists.
func NewSnapshotWriter(dir string) (*SnapshotWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir %s: %w", dir, err)
	}
	return &SnapshotWriter{dir: dir}, nil
}

// Write stores the report as <dir>/<SYMBOL>.json, replacing any previous
// snapshot atomically via a temp file rename.
func (w *SnapshotWriter) Write(report *analysis.Report) (string, error) {
	if report == nil {
		return "", fmt.Errorf("nil report")
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	name := strings.ToUpper(report.Symbol) + ".json"
	path := filepath.Join(w.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize snapshot: %w", err)
	}

	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("wrote report snapshot")
	return path, nil
}

// WriteBatch stores every successful result, returning the paths written.
func (w *SnapshotWriter) WriteBatch(results []TickerResult) ([]string, error) {
	paths := make([]string, 0, len(results))
	for _, res := range results {
		if res.Err != nil || res.Report == nil {
			continue
		}
		path, err := w.Write(res.Report)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
