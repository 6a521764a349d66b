// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afa-platform/afa/internal/store"
	"github.com/afa-platform/afa/pkg/errutil"
)

type fakeMigrator struct {
	calls  []string
	status *store.Status
	err    error
	closed bool
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.err
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return f.err
}

func (f *fakeMigrator) Steps(n int) error {
	if n == -1 {
		f.calls = append(f.calls, "steps -1")
	}
	return f.err
}

func (f *fakeMigrator) Force(version int) error {
	if version == 1 {
		f.calls = append(f.calls, "force 1")
	}
	return f.err
}

func (f *fakeMigrator) Status() (*store.Status, error) {
	f.calls = append(f.calls, "status")
	return f.status, f.err
}

func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}

// useFakeMigrator swaps openMigrator for the duration of the test.
func useFakeMigrator(t *testing.T, fake *fakeMigrator) *string {
	t.Helper()
	isolateEnv(t)
	t.Setenv("DATABASE_URL", "postgres://afa@localhost/afa")

	var gotURL string
	previous := openMigrator
	openMigrator = func(url string) (migrator, error) {
		gotURL = url
		return fake, nil
	}
	t.Cleanup(func() { openMigrator = previous })
	return &gotURL
}

func TestMigrateCommands(t *testing.T) {
	tests := []struct {
		args     []string
		wantCall string
		wantOut  string
	}{
		{[]string{"migrate", "up"}, "up", "Migrations completed successfully"},
		{[]string{"migrate", "down"}, "steps -1", "Reverted one migration"},
		{[]string{"migrate", "down", "--all"}, "down", "All migrations reverted"},
		{[]string{"migrate", "force", "1"}, "force 1", "Forced schema version to 1"},
	}
	for _, tt := range tests {
		t.Run(tt.wantCall, func(t *testing.T) {
			fake := &fakeMigrator{}
			url := useFakeMigrator(t, fake)

			out, _, err := execute(t, "", tt.args...)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.wantCall}, fake.calls)
			assert.Contains(t, out, tt.wantOut)
			assert.True(t, fake.closed)
			assert.Equal(t, "postgres://afa@localhost/afa", *url)
		})
	}
}

func TestMigrateVersion(t *testing.T) {
	fake := &fakeMigrator{status: &store.Status{
		Version: 1,
		Applied: []store.Migration{{Version: 1, Name: "create_users"}},
		Pending: []store.Migration{{Version: 2, Name: "users_role_index"}},
	}}
	useFakeMigrator(t, fake)

	out, _, err := execute(t, "", "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema version: 1 (clean)")
	assert.Contains(t, out, "[x] 000001_create_users")
	assert.Contains(t, out, "[ ] 000002_users_role_index")
}

func TestMigrateForce_InvalidVersion(t *testing.T) {
	fake := &fakeMigrator{}
	useFakeMigrator(t, fake)

	for _, arg := range []string{"-1", "abc"} {
		_, _, err := execute(t, "", "migrate", "force", "--", arg)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "INVALID_VERSION")
	}
	assert.Empty(t, fake.calls)
}

func TestMigrate_PropagatesErrors(t *testing.T) {
	fake := &fakeMigrator{err: errors.New("locked")}
	useFakeMigrator(t, fake)

	_, _, err := execute(t, "", "migrate", "up")
	require.Error(t, err)
	assert.True(t, fake.closed, "migrator is closed on failure")
}

func TestMigrateUp_ForServe(t *testing.T) {
	fake := &fakeMigrator{}
	useFakeMigrator(t, fake)

	require.NoError(t, migrateUp("postgres://afa@localhost/afa"))
	assert.Equal(t, []string{"up"}, fake.calls)
	assert.True(t, fake.closed)
}

func TestMigrate_ReadsXDGConfigFile(t *testing.T) {
	fake := &fakeMigrator{}
	url := useFakeMigrator(t, fake)
	t.Setenv("DATABASE_URL", "")

	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "afa")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("database:\n  url: postgres://xdg@localhost/afa\n"), 0o600))

	_, _, err := execute(t, "", "migrate", "up")
	require.NoError(t, err)
	assert.Equal(t, "postgres://xdg@localhost/afa", *url)
}
