// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

// Package web exposes the session service over a JSON HTTP API. The session
// token travels in an HTTP-only cookie; handlers never see a password hash.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/afa-platform/afa/internal/auth"
	"github.com/afa-platform/afa/internal/observability"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Sessions is the session service as the API uses it.
type Sessions interface {
	Register(ctx context.Context, profile auth.Profile, password string) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Resolve(ctx context.Context, token string) auth.Identity
	Logout(ctx context.Context) *auth.Session
}

// Directory lists users for administrators.
type Directory interface {
	List(ctx context.Context, limit, offset int) ([]auth.User, error)
}

// HealthCheck reports whether the database is reachable.
type HealthCheck func(ctx context.Context) error

// Server routes API requests to the session service.
type Server struct {
	sessions      Sessions
	directory     Directory
	health        HealthCheck
	secureCookies bool
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithSecureCookies marks the session cookie Secure. Enable it in production.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) { s.secureCookies = secure }
}

// WithHealthCheck sets the dependency check behind /api/health.
func WithHealthCheck(check HealthCheck) Option {
	return func(s *Server) { s.health = check }
}

// WithDirectory enables GET /api/admin/users.
func WithDirectory(directory Directory) Option {
	return func(s *Server) { s.directory = directory }
}

// WithMetrics records per-route request counts and latency.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) { s.metrics = metrics }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates an API server backed by sessions.
func NewServer(sessions Sessions, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API router. Routes are registered with their full
// paths on a single router so its 404 and 405 handlers cover every path.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(labelRoute)

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/me", s.handleMe).Methods(http.MethodGet)
	if s.directory != nil {
		r.HandleFunc("/api/admin/users", s.handleListUsers).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return s.instrument(r)
}

// HTTPServer wraps Handler in an *http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
