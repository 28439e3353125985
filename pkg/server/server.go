// Package server provides the telemetry HTTP server: Prometheus metrics,
// health probes and build information.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"mercator-hq/tagstream/pkg/config"
	"mercator-hq/tagstream/pkg/telemetry/health"
	"mercator-hq/tagstream/pkg/telemetry/tracing"
)

const (
	// VersionPath serves build information.
	VersionPath = "/version"

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// ErrAlreadyRunning is returned by Listen when the server is already
// listening.
var ErrAlreadyRunning = errors.New("server is already running")

// Server serves the telemetry endpoints on a single listener.
type Server struct {
	config     config.TelemetryConfig
	metrics    http.Handler
	checker    *health.Checker
	version    health.VersionInfo
	logger     *slog.Logger
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// New creates a server. metrics serves the Prometheus endpoint at
// cfg.Metrics.Path and checker backs the health endpoints.
func New(cfg config.TelemetryConfig, metrics http.Handler, checker *health.Checker, version health.VersionInfo, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config:  cfg,
		metrics: metrics,
		checker: checker,
		version: version,
		logger:  logger.With("component", "telemetry_server"),
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.config.Metrics.Path, s.metrics)
	mux.Handle(s.config.Health.LivenessPath, s.checker.LivenessHandler())
	mux.Handle(s.config.Health.ReadinessPath, s.checker.ReadinessHandler())
	mux.Handle(VersionPath, health.VersionHandler(s.version))

	var handler http.Handler = mux
	handler = tracing.HTTPMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	return handler
}

// Listen binds the configured address. It is separate from Serve so the
// bound address is known before serving begins.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return ErrAlreadyRunning
	}
	ln, err := net.Listen("tcp", s.config.Metrics.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Metrics.ListenAddress, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or "" before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve serves until ctx is cancelled, then shuts down gracefully. It calls
// Listen first if needed. A clean shutdown returns nil.
func (s *Server) Serve(ctx context.Context) error {
	if s.Addr() == "" {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting telemetry server", "address", ln.Addr().String())
		errc <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("telemetry server: %w", err)
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(sctx); err != nil {
		s.logger.Error("error during telemetry server shutdown", "error", err)
		return fmt.Errorf("telemetry server shutdown: %w", err)
	}
	s.logger.Info("telemetry server stopped")
	return nil
}
