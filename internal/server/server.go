// Package server hosts marcus's HTTP surface: the MCP Streamable HTTP
// endpoint, a JSON snapshot/health/shutdown API for the dashboard, and
// the gorilla/mux routing and security middleware the teacher's
// internal/server uses for its own dashboard API.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/marcus-mcp/marcus/internal/mcpserver"
	"github.com/marcus-mcp/marcus/internal/monitor"
	"github.com/marcus-mcp/marcus/internal/snapshot"
)

// Server is marcus's single HTTP listener: MCP traffic on /mcp,
// dashboard/status JSON on /api/*, and /healthz for instance.HealthCheck.
type Server struct {
	httpServer *http.Server
	router     *mux.Router

	mcp        *mcpserver.Server
	aggregator *snapshot.Aggregator
	errors     *monitor.Monitor
	logger     *log.Logger

	port      int
	startTime time.Time

	// ShutdownChan is closed once, by handleShutdown or RequestShutdown,
	// to tell cmd/marcus's main select loop to begin graceful teardown.
	ShutdownChan chan struct{}
}

func NewServer(mcpSrv *mcpserver.Server, aggregator *snapshot.Aggregator, errors *monitor.Monitor, port int, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		mcp:          mcpSrv,
		aggregator:   aggregator,
		errors:       errors,
		logger:       logger,
		port:         port,
		startTime:    time.Now(),
		ShutdownChan: make(chan struct{}),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()
	s.router.Use(SecurityHeadersMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealthCheck).Methods(http.MethodGet)
	s.router.HandleFunc("/mcp", s.mcp.ServeStreamableHTTP).Methods(http.MethodGet, http.MethodPost, http.MethodDelete)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/errors", s.handleErrorHealth).Methods(http.MethodGet)
	api.HandleFunc("/shutdown", s.handleShutdown).Methods(http.MethodPost)
}

// Start binds the listener and serves until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}
	s.logger.Printf("server: listening on :%d", s.port)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// RequestShutdown closes ShutdownChan exactly once, safe to call from
// concurrent handlers.
func (s *Server) RequestShutdown() {
	select {
	case <-s.ShutdownChan:
	default:
		close(s.ShutdownChan)
	}
}
