// Package http exposes health, readiness, metrics and build-progress
// endpoints for long dataset builds. The server is optional; batch runs on
// a workstation typically leave it disabled.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Build phases, in order.
const (
	PhaseStarting = "starting"
	PhaseSetup    = "setup"
	PhaseMap      = "map"
	PhaseGather   = "gather"
	PhaseWrite    = "write"
	PhaseDone     = "done"
)

// Status is the externally visible state of a running build.
type Status struct {
	Phase   string `json:"phase"`
	Workers int    `json:"workers"`
	Units   int    `json:"units"`
}

// Tracker records build progress for the status and readiness endpoints.
// It is written by the coordinator and read by request handlers.
type Tracker struct {
	mu     sync.Mutex
	status Status
}

// NewTracker creates a tracker for a build with the given worker count.
func NewTracker(workers int) *Tracker {
	return &Tracker{status: Status{Phase: PhaseStarting, Workers: workers}}
}

// SetPhase advances the build phase.
func (t *Tracker) SetPhase(phase string) {
	t.mu.Lock()
	t.status.Phase = phase
	t.mu.Unlock()
}

// SetUnits records the enumerated unit count once known.
func (t *Tracker) SetUnits(n int) {
	t.mu.Lock()
	t.status.Units = n
	t.mu.Unlock()
}

// Status returns a snapshot of the build state.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Server exposes the observability endpoints.
type Server struct {
	httpServer *http.Server
	tracker    *Tracker
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /status, and
// /metrics routes.
func NewServer(addr string, tracker *Tracker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		tracker: tracker,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady reports ready once the build has left the starting phase:
// configuration parsed, worker group spawned.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.tracker.Status().Phase == PhaseStarting {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Status())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
