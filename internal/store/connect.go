// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection defaults.
const (
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 500 * time.Millisecond
)

// ConnectOptions configures Connect.
type ConnectOptions struct {
	// MaxConns caps the pool size; zero keeps the pgxpool default.
	MaxConns int32
	// Attempts is the number of pings tried before giving up.
	Attempts uint64
	// Backoff is the initial delay between attempts; it doubles each retry.
	Backoff time.Duration
	Logger  *slog.Logger
}

// pinger is the part of *pgxpool.Pool that waitForDatabase needs.
type pinger interface {
	Ping(ctx context.Context) error
}

// Connect opens a pool against databaseURL and waits until the database
// answers a ping.
func Connect(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}

	if err := waitForDatabase(ctx, pool, opts); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func waitForDatabase(ctx context.Context, db pinger, opts ConnectOptions) error {
	attempts := opts.Attempts
	if attempts == 0 {
		attempts = DefaultConnectAttempts
	}
	delay := opts.Backoff
	if delay <= 0 {
		delay = DefaultConnectBackoff
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var attempt uint64
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(delay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := db.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("attempts", attempt).Wrap(err)
	}
	return nil
}
