// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

// Package observability provides HTTP endpoints for metrics and health checks.
package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// readinessTimeout bounds a single readiness probe.
const readinessTimeout = 2 * time.Second

// ReadinessChecker reports whether the service can take traffic. A nil
// error means ready.
type ReadinessChecker func(ctx context.Context) error

// Metrics contains the HTTP API metrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the HTTP API metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afa_http_requests_total",
				Help: "Total number of API requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "afa_http_request_duration_seconds",
				Help:    "API request duration in seconds by route and method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}

	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.RequestDuration)

	return m
}

// Server provides HTTP endpoints for observability (metrics and health probes).
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
	isReady    ReadinessChecker
	logger     *slog.Logger
	running    atomic.Bool
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new observability server listening on addr
// ("127.0.0.1:9100", or ":0" in tests). A nil readinessChecker is always ready.
func NewServer(addr string, readinessChecker ReadinessChecker, opts ...ServerOption) *Server {
	// A private registry keeps tests from colliding on the global one.
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry),
		isReady:  readinessChecker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the HTTP API metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Registerer returns the registry served on /metrics so other packages can
// add their collectors.
func (s *Server) Registerer() prometheus.Registerer {
	return s.registry
}

// Handler returns the observability routes without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)
	return mux
}

// Start begins serving observability endpoints.
// The returned channel receives a serve error if the listener fails after
// Start returns, and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the observability server. Stopping a server
// that is not running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}

	s.logger.Info("observability server stopped")
	return nil
}

// Addr returns the address the server is listening on, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, http.StatusOK, "ok\n")
}

// handleReadiness returns 200 when the checker passes and 503 otherwise.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.isReady == nil {
		writeProbe(w, http.StatusOK, "ok\n")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()
	if err := s.isReady(ctx); err != nil {
		s.logger.WarnContext(ctx, "readiness check failed", "error", err)
		writeProbe(w, http.StatusServiceUnavailable, "not ready\n")
		return
	}
	writeProbe(w, http.StatusOK, "ok\n")
}

func writeProbe(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte(body))
}
