// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/afa-platform/afa/internal/store"
)

// migrator is the part of *store.Migrator the migrate commands drive.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// openMigrator is replaced in tests.
var openMigrator = func(databaseURL string) (migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate subcommand and its children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, revert and inspect the embedded PostgreSQL migrations.`,
	}

	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migration (--all reverts everything)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m migrator) error {
				if all {
					if err := m.Down(); err != nil {
						return err //nolint:wrapcheck // coded by store
					}
					cmd.Println("All migrations reverted")
					return nil
				}
				if err := m.Steps(-1); err != nil {
					return err //nolint:wrapcheck // coded by store
				}
				cmd.Println("Reverted one migration")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&all, "all", false, "revert every migration (drops all data)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m migrator) error {
					if err := m.Up(); err != nil {
						return err //nolint:wrapcheck // coded by store
					}
					cmd.Println("Migrations completed successfully")
					return nil
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m migrator) error {
					return printStatus(cmd, m)
				})
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Mark VERSION as applied without running it (dirty-state recovery)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil || version < 0 {
					return oops.Code("INVALID_VERSION").Errorf("version must be a non-negative integer, got %q", args[0])
				}
				return withMigrator(cmd, func(m migrator) error {
					if err := m.Force(version); err != nil {
						return err //nolint:wrapcheck // coded by store
					}
					cmd.Printf("Forced schema version to %d\n", version)
					return nil
				})
			},
		},
	)

	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(migrator) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := requireDatabaseURL(cfg); err != nil {
		return err
	}

	m, err := openMigrator(cfg.Database.URL)
	if err != nil {
		return err //nolint:wrapcheck // coded by store
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()
	return fn(m)
}

func printStatus(cmd *cobra.Command, m migrator) error {
	status, err := m.Status()
	if err != nil {
		return err //nolint:wrapcheck // coded by store
	}

	state := "clean"
	if status.Dirty {
		state = "dirty"
	}
	cmd.Printf("Schema version: %d (%s)\n", status.Version, state)
	for _, mig := range status.Applied {
		cmd.Printf("  [x] %s\n", mig)
	}
	for _, mig := range status.Pending {
		cmd.Printf("  [ ] %s\n", mig)
	}
	return nil
}

// migrateUp applies pending migrations for serve --auto-migrate.
func migrateUp(databaseURL string) (err error) {
	m, err := openMigrator(databaseURL)
	if err != nil {
		return err //nolint:wrapcheck // coded by store
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return m.Up() //nolint:wrapcheck // coded by store
}
