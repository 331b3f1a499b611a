// Package handlers implements the HTTP endpoint handlers over the
// analysis service.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/marketstat/pctrun/internal/application"
	"github.com/marketstat/pctrun/internal/domain"
	"github.com/marketstat/pctrun/internal/infrastructure/cache"
	"github.com/marketstat/pctrun/internal/infrastructure/providers"
)

// Observer receives handler-level measurements; satisfied by the server's
// metrics registry.
type Observer interface {
	ObserveAnalysis(outcome string, d time.Duration)
	SetCacheHitRatio(ratio float64)
}

type noopObserver struct{}

func (noopObserver) ObserveAnalysis(string, time.Duration) {}
func (noopObserver) SetCacheHitRatio(float64)              {}

// Handlers manages the HTTP endpoint handlers.
type Handlers struct {
	service  *application.AnalysisService
	cache    *cache.Redis
	observer Observer
}

// NewHandlers wires the handler set; cache may be nil.
func NewHandlers(service *application.AnalysisService, c *cache.Redis) *Handlers {
	return &Handlers{service: service, cache: c, observer: noopObserver{}}
}

// SetObserver attaches metrics collection.
func (h *Handlers) SetObserver(o Observer) {
	if o != nil {
		h.observer = o
	}
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
	})
}

// writeAnalysisError maps domain errors to status codes: malformed input
// is the client's fault, insufficient data is unprocessable, provider
// failures are upstream.
func (h *Handlers) writeAnalysisError(w http.ResponseWriter, err error) {
	var malformed *domain.MalformedSeriesError
	var insufficient *domain.InsufficientDataError
	var notFound *providers.ErrSymbolNotFound

	switch {
	case errors.As(err, &malformed):
		h.writeError(w, http.StatusBadRequest, "malformed_series", err.Error())
	case errors.As(err, &insufficient):
		h.writeError(w, http.StatusUnprocessableEntity, "insufficient_data", err.Error())
	case errors.As(err, &notFound):
		h.writeError(w, http.StatusNotFound, "symbol_not_found", err.Error())
	default:
		h.writeError(w, http.StatusBadGateway, "analysis_failed", err.Error())
	}
}

// NotFound handles unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusNotFound, "endpoint_not_found",
		"the requested endpoint does not exist")
}

func (h *Handlers) publishCacheRatio() {
	stats := h.cache.Stats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return
	}
	h.observer.SetCacheHitRatio(float64(stats.Hits) / float64(total))
}
