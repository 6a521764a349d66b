// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/afa-platform/afa/internal/config"
	"github.com/afa-platform/afa/internal/logging"
	"github.com/afa-platform/afa/internal/xdg"
)

const serviceName = "afa"

// NewRootCmd creates the root command for the afa CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "afa",
		Short: "afa - accounts and sessions service",
		Long: `afa serves the account API: registration, login, logout and session
lookup backed by PostgreSQL, plus the admin tools to manage its schema and users.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (YAML, default $XDG_CONFIG_HOME/afa/config.yaml if present)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewHashPasswordCmd())

	return cmd
}

// loadConfig reads configuration for cmd and installs the default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	file, err := cmd.Flags().GetString("config")
	if err != nil {
		file = ""
	}
	if file == "" {
		// Fall back to ~/.config/afa/config.yaml when it exists.
		if file, err = xdg.ExistingConfigFile(); err != nil {
			return nil, nil, err //nolint:wrapcheck // coded by xdg
		}
	}

	// Until the config is known, warnings go to a text logger on stderr.
	bootstrap := logging.Setup(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  "text",
		Writer:  cmd.ErrOrStderr(),
	})

	cfg, err := config.Load(config.LoadOptions{
		File:   file,
		Flags:  cmd.Flags(),
		Logger: bootstrap,
	})
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // already CONFIG_INVALID
	}

	logger := logging.SetDefault(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  cmd.ErrOrStderr(),
	})
	return cfg, logger, nil
}

// requireDatabaseURL rejects commands that need a database when none is set.
func requireDatabaseURL(cfg *config.Config) error {
	if cfg.Database.URL == "" {
		return oops.Code(config.CodeInvalid).
			Wrapf(config.ErrConfiguration, "database.url is required (set DATABASE_URL or AFA_DATABASE_URL)")
	}
	return nil
}
