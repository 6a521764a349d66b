// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package store

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	// Register the pgx/v5 driver with golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// schemaMigrations is the embedded migration set, parsed once.
var schemaMigrations = sync.OnceValues(func() ([]Migration, error) {
	return loadMigrations(migrationsFS)
})

// Migration is one embedded schema change.
type Migration struct {
	Version uint
	Name    string
}

// String returns the migration file stem, e.g. "000001_create_users".
func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

// Status reports where the database schema stands relative to the embedded
// migration set.
type Status struct {
	Version uint
	Dirty   bool
	Applied []Migration
	Pending []Migration
}

// migrationRunner is the subset of *migrate.Migrate the Migrator drives.
type migrationRunner interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// Migrator applies the embedded users schema.
type Migrator struct {
	runner migrationRunner
}

// NewMigrator opens a migrator against databaseURL. postgres:// and
// postgresql:// URLs are rewritten to the pgx5:// scheme golang-migrate
// registers for pgx/v5.
func NewMigrator(databaseURL string) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, migrationsDir)
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").Wrap(err)
	}

	runner, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(databaseURL))
	if err != nil {
		_ = source.Close() //nolint:errcheck // init error takes precedence
		return nil, oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}
	return &Migrator{runner: runner}, nil
}

func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(databaseURL, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	if err := m.runner.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_UP_FAILED").Wrap(err)
	}
	return nil
}

// Down reverts every applied migration, dropping the users table.
func (m *Migrator) Down() error {
	if err := m.runner.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_DOWN_FAILED").Wrap(err)
	}
	return nil
}

// Steps migrates n steps: up when positive, down when negative.
func (m *Migrator) Steps(n int) error {
	if err := m.runner.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_STEPS_FAILED").With("steps", n).Wrap(err)
	}
	return nil
}

// Version returns the applied version, 0 for an empty database.
// dirty is true when a migration failed halfway and needs Force.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = m.runner.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	return version, dirty, nil
}

// Force records version as applied without running anything. It is the
// recovery path for a dirty schema after a manual fix.
func (m *Migrator) Force(version int) error {
	if version < 0 {
		return oops.Code("INVALID_VERSION").Errorf("version must be non-negative, got %d", version)
	}
	if err := m.runner.Force(version); err != nil {
		return oops.Code("MIGRATION_FORCE_FAILED").With("version", version).Wrap(err)
	}
	return nil
}

// Status splits the embedded migrations into applied and pending.
func (m *Migrator) Status() (*Status, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return nil, oops.With("operation", "migration status").Wrap(err)
	}
	all, err := schemaMigrations()
	if err != nil {
		return nil, oops.With("operation", "migration status").Wrap(err)
	}

	status := &Status{Version: version, Dirty: dirty}
	for _, mig := range all {
		if mig.Version <= version {
			status.Applied = append(status.Applied, mig)
		} else {
			status.Pending = append(status.Pending, mig)
		}
	}
	return status, nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.runner.Close()
	switch {
	case srcErr != nil && dbErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").
			With("component", "both").
			Errorf("source: %v; database: %v", srcErr, dbErr)
	case srcErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "source").Wrap(srcErr)
	case dbErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "database").Wrap(dbErr)
	}
	return nil
}

// Migrations returns the embedded migrations in version order.
func Migrations() ([]Migration, error) {
	all, err := schemaMigrations()
	if err != nil {
		return nil, err
	}
	return slices.Clone(all), nil
}

// loadMigrations parses NNNNNN_name.up.sql files. Down files and anything
// not matching the pattern are ignored; migrate_embed_test.go guards the set.
func loadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return nil, oops.Code("MIGRATION_LIST_FAILED").Wrap(err)
	}

	var out []Migration
	for _, entry := range entries {
		stem, ok := strings.CutSuffix(entry.Name(), ".up.sql")
		if !ok {
			continue
		}
		rawVersion, name, ok := strings.Cut(stem, "_")
		if !ok || len(rawVersion) != 6 {
			continue
		}
		var version uint
		if _, err := fmt.Sscanf(rawVersion, "%d", &version); err != nil {
			continue
		}
		out = append(out, Migration{Version: version, Name: name})
	}
	slices.SortFunc(out, func(a, b Migration) int {
		switch {
		case a.Version < b.Version:
			return -1
		case a.Version > b.Version:
			return 1
		}
		return 0
	})
	return out, nil
}
