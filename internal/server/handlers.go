package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"time"
)

func (s *Server) respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleHealthCheck answers instance.HealthCheck's /healthz probe.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, map[string]interface{}{
		"status":         "ok",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"pid":            os.Getpid(),
		"port":           s.port,
	})
}

// handleSnapshot serves the cached board rollup (C11), computing one
// on first request if the background tick hasn't run yet.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.aggregator == nil {
		http.Error(w, "snapshot aggregator not configured", http.StatusServiceUnavailable)
		return
	}

	if snap, ok := s.aggregator.Cached(); ok {
		s.respondJSON(w, snap)
		return
	}

	snap, err := s.aggregator.Compute(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, snap)
}

// handleErrorHealth serves the process-wide error monitor's derived
// health score (C2), for the dashboard's health tile.
func (s *Server) handleErrorHealth(w http.ResponseWriter, r *http.Request) {
	if s.errors == nil {
		http.Error(w, "error monitor not configured", http.StatusServiceUnavailable)
		return
	}
	s.respondJSON(w, s.errors.HealthReport())
}

// handleShutdown requests a graceful shutdown, restricted to
// localhost callers the way instance.SendShutdownRequest calls it.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	if host != "127.0.0.1" && host != "::1" {
		http.Error(w, "shutdown can only be requested from localhost", http.StatusForbidden)
		return
	}

	s.respondJSON(w, map[string]string{"status": "shutting_down"})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		<-ctx.Done()
		s.RequestShutdown()
	}()
}
