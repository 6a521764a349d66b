// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/afa-platform/afa/internal/auth"
	"github.com/afa-platform/afa/internal/auth/postgres"
	"github.com/afa-platform/afa/internal/config"
	"github.com/afa-platform/afa/internal/observability"
	"github.com/afa-platform/afa/internal/password"
	"github.com/afa-platform/afa/internal/store"
	"github.com/afa-platform/afa/internal/token"
	"github.com/afa-platform/afa/internal/web"
)

const defaultShutdownTimeout = 10 * time.Second

type serveConfig struct {
	autoMigrate     bool
	shutdownTimeout time.Duration
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API and the metrics/health listener. The server drains
in-flight requests on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.autoMigrate, "auto-migrate", false, "apply pending migrations before serving")
	cmd.Flags().DurationVar(&cfg.shutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "graceful shutdown timeout")

	return cmd
}

func runServe(cmd *cobra.Command, serveCfg *serveConfig) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := requireDatabaseURL(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting afa", "env", cfg.Env, "http_addr", cfg.HTTP.Addr)

	if serveCfg.autoMigrate {
		if err := migrateUp(cfg.Database.URL); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	pool, err := store.Connect(ctx, cfg.Database.URL, store.ConnectOptions{Logger: logger})
	if err != nil {
		return err //nolint:wrapcheck // coded by store
	}
	defer pool.Close()
	logger.Info("connected to database")

	a, err := newApp(cfg, pool, logger)
	if err != nil {
		return err
	}
	if err := a.listen(); err != nil {
		return err
	}
	cmd.Println("afa listening on " + a.addr())
	return a.serve(ctx, serveCfg.shutdownTimeout)
}

// app is the wired server process.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	api      *http.Server
	obs      *observability.Server
	listener net.Listener
}

// newApp wires the session stack on top of db.
func newApp(cfg *config.Config, db postgres.DB, logger *slog.Logger) (*app, error) {
	codec, err := token.NewCodec([]byte(cfg.Auth.Secret))
	if err != nil {
		return nil, oops.With("operation", "create token codec").Wrap(err)
	}

	users := postgres.NewUserRepository(db)
	sessions, err := auth.NewService(users,
		password.NewVerifier(password.WithLogger(logger)),
		codec,
		auth.WithSessionTTL(cfg.Auth.SessionTTL),
		auth.WithLogger(logger),
	)
	if err != nil {
		return nil, oops.With("operation", "create session service").Wrap(err)
	}

	obs := observability.NewServer(cfg.Metrics.Addr, users.Ping, observability.WithLogger(logger))
	auth.RegisterMetrics(obs.Registerer())

	api := web.NewServer(sessions,
		web.WithSecureCookies(cfg.SecureCookies()),
		web.WithHealthCheck(users.Ping),
		web.WithDirectory(users),
		web.WithMetrics(obs.Metrics()),
		web.WithLogger(logger),
	)

	return &app{
		cfg:    cfg,
		logger: logger,
		api:    api.HTTPServer(cfg.HTTP.Addr),
		obs:    obs,
	}, nil
}

func (a *app) listen() error {
	listener, err := net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", a.cfg.HTTP.Addr).Wrap(err)
	}
	a.listener = listener
	return nil
}

func (a *app) addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// serve runs until ctx is canceled or a listener fails, then shuts both
// servers down within timeout.
func (a *app) serve(ctx context.Context, timeout time.Duration) error {
	apiErr := make(chan error, 1)
	go func() {
		defer close(apiErr)
		if err := a.api.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			apiErr <- err
		}
	}()

	var obsErr <-chan error
	if a.cfg.Metrics.Addr != "" {
		ch, err := a.obs.Start()
		if err != nil {
			a.shutdown(timeout)
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		obsErr = ch
	}

	a.logger.Info("api server listening", "addr", a.addr())

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("received shutdown signal")
	case err := <-apiErr:
		if err != nil {
			runErr = oops.Code("HTTP_SERVE_FAILED").Wrap(err)
		}
	case err := <-obsErr:
		if err != nil {
			runErr = oops.Code("OBSERVABILITY_SERVE_FAILED").Wrap(err)
		}
	}

	a.shutdown(timeout)
	return runErr
}

func (a *app) shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.api.Shutdown(ctx); err != nil {
		a.logger.Warn("error stopping api server", "error", err)
	}
	if err := a.obs.Stop(ctx); err != nil {
		a.logger.Warn("error stopping observability server", "error", err)
	}
	a.logger.Info("shutdown complete")
}
