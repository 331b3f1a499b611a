package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/marketstat/pctrun/internal/application"
	"github.com/marketstat/pctrun/internal/persistence"
)

const dateLayout = "2006-01-02"

// LatestSnapshot serves the most recent persisted report snapshot for a
// symbol.
func (h *Handlers) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	snap, err := h.service.LatestSnapshot(r.Context(), symbol)
	if err != nil {
		h.writeSnapshotError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// History serves persisted snapshots for a symbol. Optional query
// parameters: from and to as YYYY-MM-DD dates, limit as a row cap.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	q := r.URL.Query()

	tr := persistence.TimeRange{To: time.Now().UTC()}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_from", "from must be a YYYY-MM-DD date")
			return
		}
		tr.From = from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_to", "to must be a YYYY-MM-DD date")
			return
		}
		tr.To = to
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	snaps, err := h.service.History(r.Context(), symbol, tr, limit)
	if err != nil {
		h.writeSnapshotError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"symbol":    symbol,
		"snapshots": snaps,
	})
}

func (h *Handlers) writeSnapshotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrPersistenceDisabled):
		h.writeError(w, http.StatusServiceUnavailable, "persistence_disabled",
			"snapshot persistence is not enabled on this server")
	case errors.Is(err, persistence.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "snapshot_not_found", err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, "storage_failed", err.Error())
	}
}
