// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

//go:build integration

// Package integration provides end-to-end integration tests for afa.
package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/afa-platform/afa/internal/auth"
	authpg "github.com/afa-platform/afa/internal/auth/postgres"
	"github.com/afa-platform/afa/internal/password"
	"github.com/afa-platform/afa/internal/store"
	"github.com/afa-platform/afa/internal/token"
	"github.com/afa-platform/afa/internal/web"
)

func TestIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Integration Suite")
}

// testEnv holds the database and the API server wired on top of it.
type testEnv struct {
	ctx       context.Context
	container testcontainers.Container
	pool      *pgxpool.Pool
	users     *authpg.UserRepository
	api       *httptest.Server
}

var env *testEnv

var _ = BeforeSuite(func() {
	var err error
	env, err = setupTestEnv()
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if env != nil {
		env.cleanup()
	}
})

func setupTestEnv() (*testEnv, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("afa_test"),
		postgres.WithUsername("afa"),
		postgres.WithPassword("afa"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}
	e := &testEnv{ctx: ctx, container: container}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		e.cleanup()
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		e.cleanup()
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		e.cleanup()
		return nil, err
	}
	_ = migrator.Close()

	e.pool, err = store.Connect(ctx, connStr, store.ConnectOptions{})
	if err != nil {
		e.cleanup()
		return nil, err
	}
	e.users = authpg.NewUserRepository(e.pool)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec, err := token.NewCodec([]byte("integration-secret"))
	if err != nil {
		e.cleanup()
		return nil, err
	}
	sessions, err := auth.NewService(e.users,
		password.NewVerifier(password.WithLogger(logger)),
		codec,
		auth.WithSessionTTL(time.Hour),
		auth.WithLogger(logger),
	)
	if err != nil {
		e.cleanup()
		return nil, err
	}

	e.api = httptest.NewServer(web.NewServer(sessions,
		web.WithHealthCheck(e.users.Ping),
		web.WithDirectory(e.users),
		web.WithLogger(logger),
	).Handler())
	return e, nil
}

func (e *testEnv) cleanup() {
	if e.api != nil {
		e.api.Close()
	}
	if e.pool != nil {
		e.pool.Close()
	}
	if e.container != nil {
		_ = e.container.Terminate(e.ctx)
	}
}

// truncateUsers removes every account between specs.
func truncateUsers(ctx context.Context) {
	_, err := env.pool.Exec(ctx, "TRUNCATE users")
	Expect(err).NotTo(HaveOccurred())
}
