// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/afa-platform/afa/internal/auth"
	"github.com/afa-platform/afa/internal/auth/postgres"
	"github.com/afa-platform/afa/internal/password"
	"github.com/afa-platform/afa/internal/store"
)

const defaultSeedTimeout = 30 * time.Second

type seedConfig struct {
	email    string
	name     string
	password string
	file     string
	timeout  time.Duration
}

// seedUser is one account to seed. Role and plan default to ADMIN and
// BUSINESS.
type seedUser struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Plan     string `yaml:"plan"`
}

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

// seedRepository is the part of the user repository seeding needs.
type seedRepository interface {
	GetByEmail(ctx context.Context, email string) (*auth.Credential, error)
	Create(ctx context.Context, profile auth.Profile, passwordHash string) (*auth.User, error)
	SetRoleAndPlan(ctx context.Context, id string, role auth.Role, plan auth.Plan) error
}

type hasher interface {
	Hash(plaintext string) (string, error)
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create or promote administrator accounts",
		Long: `Creates the given users with the ADMIN role and BUSINESS plan, or promotes
them if they already exist. Existing passwords are never changed, so the
command is safe to run repeatedly.

Users come from --email/--name/--password or from a YAML --file:

  users:
    - email: admin@example.com
      name: Admin
      password: change-me-please`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "admin email")
	cmd.Flags().StringVar(&cfg.name, "name", "", "admin display name (default: email local part)")
	cmd.Flags().StringVar(&cfg.password, "password", "", "admin password, used only when creating the user")
	cmd.Flags().StringVar(&cfg.file, "file", "", "YAML file listing users to seed")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.MarkFlagsMutuallyExclusive("file", "email")

	return cmd
}

func runSeed(cmd *cobra.Command, seedCfg *seedConfig) error {
	users, err := seedUsersFrom(seedCfg)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := requireDatabaseURL(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), seedCfg.timeout)
	defer cancel()

	pool, err := store.Connect(ctx, cfg.Database.URL, store.ConnectOptions{Logger: logger})
	if err != nil {
		return err //nolint:wrapcheck // coded by store
	}
	defer pool.Close()

	repo := postgres.NewUserRepository(pool)
	return seed(ctx, cmd.OutOrStdout(), repo, password.NewVerifier(password.WithLogger(logger)), users)
}

func seedUsersFrom(cfg *seedConfig) ([]seedUser, error) {
	if cfg.file != "" {
		raw, err := os.ReadFile(cfg.file)
		if err != nil {
			return nil, oops.Code("SEED_FILE_INVALID").With("file", cfg.file).Wrap(err)
		}
		return parseSeedFile(raw)
	}
	if cfg.email == "" {
		return nil, oops.Code("SEED_INPUT_INVALID").Errorf("--email or --file is required")
	}
	return []seedUser{{Email: cfg.email, Name: cfg.name, Password: cfg.password}}, nil
}

func parseSeedFile(raw []byte) ([]seedUser, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, oops.Code("SEED_FILE_INVALID").Wrap(err)
	}
	if len(f.Users) == 0 {
		return nil, oops.Code("SEED_FILE_INVALID").Errorf("seed file lists no users")
	}
	return f.Users, nil
}

// seed creates or promotes each user. Every entry is validated before any
// write so that a typo in the file does not leave a partial seed.
func seed(ctx context.Context, out io.Writer, repo seedRepository, hashes hasher, users []seedUser) error {
	profiles := make([]auth.Profile, len(users))
	for i, u := range users {
		profile, err := u.profile()
		if err != nil {
			return oops.With("email", u.Email).Wrap(err)
		}
		profiles[i] = profile
	}

	for i, profile := range profiles {
		cred, err := repo.GetByEmail(ctx, profile.Email)
		switch {
		case err == nil:
			if err := repo.SetRoleAndPlan(ctx, cred.ID, profile.Role, profile.Plan); err != nil {
				return oops.Code("SEED_FAILED").With("email", profile.Email).Wrap(err)
			}
			writeLine(out, "promoted %s to %s/%s", profile.Email, profile.Role, profile.Plan)
			continue
		case !errors.Is(err, auth.ErrNotFound):
			return oops.Code("SEED_FAILED").With("email", profile.Email).Wrap(err)
		}

		plaintext := users[i].Password
		if err := auth.ValidatePassword(plaintext); err != nil {
			return oops.With("email", profile.Email).Wrap(err)
		}
		hash, err := hashes.Hash(plaintext)
		if err != nil {
			return oops.Code("SEED_FAILED").With("email", profile.Email).Wrap(err)
		}
		user, err := repo.Create(ctx, profile, hash)
		if err != nil {
			return oops.Code("SEED_FAILED").With("email", profile.Email).Wrap(err)
		}
		writeLine(out, "created %s (%s) as %s/%s", user.Email, user.ID, user.Role, user.Plan)
	}
	return nil
}

func (u seedUser) profile() (auth.Profile, error) {
	role := auth.RoleAdmin
	if u.Role != "" {
		role = auth.Role(u.Role)
	}
	plan := auth.PlanBusiness
	if u.Plan != "" {
		parsed, err := auth.ParsePlan(u.Plan)
		if err != nil {
			return auth.Profile{}, err //nolint:wrapcheck // coded by auth
		}
		plan = parsed
	}
	return auth.Profile{Name: u.Name, Email: u.Email, Role: role, Plan: plan}.Normalize() //nolint:wrapcheck // coded by auth
}

func writeLine(out io.Writer, format string, args ...any) {
	//nolint:errcheck // best-effort progress output
	fmt.Fprintf(out, format+"\n", args...)
}
