// Package health provides the liveness and readiness endpoints.
//
// /healthz answers 200 as long as the process serves HTTP. /readyz answers
// 200 only once the transports are up and the daemon is accepting commands,
// and 503 again while it drains on shutdown.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server is a lightweight HTTP server that exposes /healthz and /readyz.
type Server struct {
	port    int
	backend string
	ready   atomic.Bool
	server  *http.Server

	mu        sync.Mutex
	observers []func(bool)
}

type statusBody struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
}

// New creates a new health check server. backend names the inference
// backend reported in the response bodies.
func New(port int, backend string) *Server {
	return &Server{port: port, backend: backend}
}

// OnReadyChange registers fn to be called with every readiness change.
func (s *Server) OnReadyChange(fn func(bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// SetReady marks the daemon as ready (or no longer ready) to accept traffic.
func (s *Server) SetReady(ready bool) {
	if s.ready.Swap(ready) == ready {
		return
	}
	s.mu.Lock()
	observers := append([]func(bool){}, s.observers...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(ready)
	}
}

// Ready reports the current readiness.
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// Handler returns the health routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.write(w, http.StatusOK, "ok")
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			s.write(w, http.StatusServiceUnavailable, "not_ready")
			return
		}
		s.write(w, http.StatusOK, "ok")
	})

	return r
}

func (s *Server) write(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(statusBody{Status: status, Backend: s.backend})
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
