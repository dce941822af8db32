// Package adminhttp exposes the thin operational surface spec.md §6 and
// its ambient-stack expansion call for: a liveness endpoint, a Prometheus
// scrape endpoint, and a /stats device count, nothing else. Grounded on the teacher's
// cmd/snmpsim-api/main.go health/metrics wiring (plain net/http,
// promhttp.HandlerFor against an explicit registry), with the rest of
// that file's lab/engine/endpoint/user/dataset CRUD REST API dropped —
// spec.md has no resource-management surface, only the SNMP wire
// protocol and this admin/observability sliver of it.
package adminhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snmpfleet/simulator/internal/pool"
)

// Server is the admin HTTP listener.
type Server struct {
	httpServer *http.Server
}

// New builds a Server bound to addr, serving /healthz, /metrics, and
// /stats (a point-in-time device-pool count, useful for operators
// without a Prometheus scraper wired up).
func New(addr string, reg *prometheus.Registry, p *pool.Pool) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", statsHandler(p))

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// ListenAndServe blocks serving requests until the server is shut down.
// Callers should run it in its own goroutine.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func statsHandler(p *pool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"devices_open": p.Len(),
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
		})
	}
}
