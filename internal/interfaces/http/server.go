// Package http serves the read-only analysis API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/marketstat/pctrun/internal/config"
	"github.com/marketstat/pctrun/internal/interfaces/http/handlers"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Server is the HTTP front end over the analysis service.
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *handlers.Handlers
	metrics  *MetricsRegistry
	config   config.ServerConfig
}

// NewServer wires routes, middleware, and metrics.
func NewServer(cfg config.ServerConfig, h *handlers.Handlers) (*Server, error) {
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		router:   mux.NewRouter(),
		handlers: h,
		metrics:  NewMetricsRegistry(),
		config:   cfg,
	}
	if err := s.metrics.Register(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	h.SetObserver(s.metrics)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handlers.Health).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(jsonContentTypeMiddleware)
	api.HandleFunc("/analysis", s.handlers.AnalyzeSeries).Methods(http.MethodPost)
	api.HandleFunc("/analysis/{symbol}", s.handlers.AnalyzeSymbol).Methods(http.MethodGet)
	api.HandleFunc("/analysis/{symbol}/latest", s.handlers.LatestSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/analysis/{symbol}/history", s.handlers.History).Methods(http.MethodGet)
	api.HandleFunc("/regime/{symbol}", s.handlers.Regime).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
}

// Start serves until the context is canceled, then drains with a 10s
// grace period.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.server.Addr).Msg("http server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		s.metrics.ObserveRequest(r.URL.Path, wrapper.status, time.Since(start))
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.status).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("http request")
	})
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
