// Package adminhttp exposes the ambient operator surface — health and
// Prometheus metrics only. Gameplay transport (HTTP/WebSocket action
// ingress) is explicitly out of scope (spec.md §1) and never touches
// this router.
package adminhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/duelforge/matchengine/internal/match"
)

// Server is the admin HTTP surface.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// New builds the chi router and wraps it in an http.Server bound to
// bindAddress. registry is consulted by /healthz to report active match
// counts; metricsGatherer backs /metrics — it must be the same
// *prometheus.Registry telemetry.New registered collectors against, not
// the global DefaultGatherer.
func New(bindAddress string, registry *match.Registry, metricsGatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		activeMatches := 0
		if registry != nil {
			activeMatches = registry.Len()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Status        string `json:"status"`
			ActiveMatches int    `json:"active_matches"`
		}{Status: "ok", ActiveMatches: activeMatches})
	})

	r.Handle("/metrics", promhttp.HandlerFor(metricsGatherer, promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{
			Addr:         bindAddress,
			Handler:      r,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		log: logger,
	}
}

func (s *Server) ListenAndServe() error {
	s.log.Info("admin http server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
