// Package adminhttp exposes the distributor's operational surface: a
// health check, the Prometheus scrape endpoint, and a pool debug view.
// Grounded on flowpbx-flowpbx's internal/api.Server — chi router,
// request-id/recover/structured-log middleware stack, JSON envelope
// helpers — trimmed to the three routes this process needs instead of
// a full admin API.
package adminhttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sebas/distributor/internal/serializer"
)

type envelope struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Server is the admin HTTP handler.
type Server struct {
	router   *chi.Mux
	registry *serializer.Registry
	logger   *slog.Logger
	booted   func() bool
}

// New builds the admin HTTP handler. booted reports the distributor's
// boot-gate state for the health check.
func New(registry *serializer.Registry, booted func() bool, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{router: chi.NewRouter(), registry: registry, booted: booted, logger: logger}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.structuredLogger)
	r.Use(s.recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/debug/pool", s.handlePool)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	booted := s.booted != nil && s.booted()
	status := http.StatusOK
	if !booted {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"booted": booted})
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	names := s.registry.Names()
	depths := make(map[string]int, len(names))
	for _, name := range names {
		sr, ok := s.registry.ByName(name)
		if !ok {
			continue
		}
		depths[name] = sr.Depth()
		sr.Release()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"serializers": depths,
		"overloaded":  s.registry.Overloaded(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func (s *Server) structuredLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("admin http request",
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					"request_id", chimw.GetReqID(r.Context()),
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(envelope{Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
