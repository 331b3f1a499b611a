package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/marketstat/pctrun/internal/domain"
)

// seriesRequest is the POST /v1/analysis body: a raw series analyzed
// with the server's configured analysis settings.
type seriesRequest struct {
	Symbol string       `json:"symbol"`
	Bars   []domain.Bar `json:"bars"`
}

// AnalyzeSeries validates the submitted bars and runs the analysis. The
// response body is the report contract, serialized verbatim.
func (h *Handlers) AnalyzeSeries(w http.ResponseWriter, r *http.Request) {
	var req seriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}
	if req.Symbol == "" {
		h.writeError(w, http.StatusBadRequest, "missing_symbol", "symbol is required")
		return
	}

	series, err := domain.NewPriceSeries(strings.ToUpper(req.Symbol), req.Bars)
	if err != nil {
		h.writeAnalysisError(w, err)
		return
	}

	start := time.Now()
	report, err := h.service.AnalyzeSeries(series)
	if err != nil {
		h.observer.ObserveAnalysis("error", time.Since(start))
		h.writeAnalysisError(w, err)
		return
	}
	h.observer.ObserveAnalysis("ok", time.Since(start))
	h.writeJSON(w, http.StatusOK, report)
}

// AnalyzeSymbol fetches history through the provider chain and runs the
// analysis.
func (h *Handlers) AnalyzeSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	if symbol == "" {
		h.writeError(w, http.StatusBadRequest, "missing_symbol", "symbol is required")
		return
	}

	start := time.Now()
	report, err := h.service.AnalyzeSymbol(r.Context(), symbol)
	if err != nil {
		h.observer.ObserveAnalysis("error", time.Since(start))
		h.writeAnalysisError(w, err)
		return
	}
	h.observer.ObserveAnalysis("ok", time.Since(start))
	h.publishCacheRatio()
	h.writeJSON(w, http.StatusOK, report)
}

// Regime returns only the regime section for a symbol.
func (h *Handlers) Regime(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	if symbol == "" {
		h.writeError(w, http.StatusBadRequest, "missing_symbol", "symbol is required")
		return
	}

	report, err := h.service.AnalyzeSymbol(r.Context(), symbol)
	if err != nil {
		h.writeAnalysisError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"symbol":       report.Symbol,
		"regime_stats": report.RegimeStats,
	})
}
