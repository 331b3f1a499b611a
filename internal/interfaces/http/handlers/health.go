package handlers

import (
	"net/http"
	"time"
)

// healthResponse reports service liveness and cache effectiveness.
type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Cache     any       `json:"cache,omitempty"`
}

// Health is the liveness endpoint.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	}
	if h.cache != nil {
		resp.Cache = map[string]any{
			"healthy": h.cache.Healthy(r.Context()),
			"stats":   h.cache.Stats(),
		}
	}
	h.publishCacheRatio()
	h.writeJSON(w, http.StatusOK, resp)
}
