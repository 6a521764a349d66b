// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afa-platform/afa/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:  config.EnvTest,
		Auth: config.AuthConfig{Secret: "serve-test-secret", SessionTTL: time.Hour},
		HTTP: config.HTTPConfig{Addr: "127.0.0.1:0"},
		Log:  config.LogConfig{Format: "text", Level: "info"},
	}
}

func TestApp_ServesAndShutsDown(t *testing.T) {
	mock, err := pgxmock.NewPool() // pgxmock v4 always monitors pings
	require.NoError(t, err)
	defer mock.Close()
	mock.ExpectPing()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := newApp(testConfig(), mock, logger)
	require.NoError(t, err)
	require.NoError(t, a.listen())
	require.NotEmpty(t, a.addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, 5*time.Second) }()

	resp, err := http.Get("http://" + a.addr() + "/api/health")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true,"db":"ok"}`, string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApp_ListenFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	first, err := newApp(testConfig(), mock, logger)
	require.NoError(t, err)
	require.NoError(t, first.listen())
	defer first.listener.Close() //nolint:errcheck // test cleanup

	cfg := testConfig()
	cfg.HTTP.Addr = first.addr()
	second, err := newApp(cfg, mock, logger)
	require.NoError(t, err)

	err = second.listen()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
}

func TestNewApp_RequiresSecret(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := testConfig()
	cfg.Auth.Secret = ""
	_, err = newApp(cfg, mock, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
