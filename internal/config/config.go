// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

// Package config loads afa settings from defaults, an optional YAML file,
// the environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// CodeInvalid is the oops code of every configuration failure.
const CodeInvalid = "CONFIG_INVALID"

// ErrConfiguration is wrapped by every configuration failure. It is fatal at
// startup.
var ErrConfiguration = errors.New("configuration error")

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// DevelopmentSecret signs tokens when no secret is configured and env was
// explicitly set to development or test. Tokens signed with it are forgeable by anyone who reads this
// source.
//
//nolint:gosec // G101: intentionally public development value
const DevelopmentSecret = "dev-insecure-auth-secret-change-me"

// Config is the complete afa configuration.
type Config struct {
	Env      string         `koanf:"env"`
	Auth     AuthConfig     `koanf:"auth"`
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
}

// AuthConfig holds session signing settings.
type AuthConfig struct {
	Secret     string        `koanf:"secret"`
	SessionTTL time.Duration `koanf:"session_ttl"`
}

// HTTPConfig holds the API listener settings.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the observability listener settings. An empty Addr
// disables the listener.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// IsProduction returns true when running in the production environment.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// SecureCookies returns true if session cookies must carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return c.IsProduction()
}

// Defaults returns the built-in configuration values. env defaults to
// production so that the development secret fallback only engages when
// development or test is chosen explicitly.
func Defaults() map[string]any {
	return map[string]any{
		"env":              EnvProduction,
		"auth.secret":      "",
		"auth.session_ttl": "168h",
		"http.addr":        ":8080",
		"metrics.addr":     "127.0.0.1:9100",
		"database.url":     "",
		"log.format":       "json",
		"log.level":        "info",
	}
}

// envKeys maps AFA_-prefixed environment variables to config keys.
var envKeys = map[string]string{
	"AFA_ENV":              "env",
	"AFA_AUTH_SECRET":      "auth.secret",
	"AFA_AUTH_SESSION_TTL": "auth.session_ttl",
	"AFA_HTTP_ADDR":        "http.addr",
	"AFA_METRICS_ADDR":     "metrics.addr",
	"AFA_DATABASE_URL":     "database.url",
	"AFA_LOG_FORMAT":       "log.format",
	"AFA_LOG_LEVEL":        "log.level",
}

// nodeEnvKeys holds NODE_ENV, the production switch of existing
// deployments. It is loaded below compatEnvKeys so APP_ENV wins over it.
var nodeEnvKeys = map[string]string{
	"NODE_ENV": "env",
}

// compatEnvKeys are unprefixed names accepted for deployments that already
// export them. AFA_ names win when both are set.
var compatEnvKeys = map[string]string{
	"APP_ENV":      "env",
	"AUTH_SECRET":  "auth.secret",
	"DATABASE_URL": "database.url",
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"env":          "env",
	"session-ttl":  "auth.session_ttl",
	"http-addr":    "http.addr",
	"metrics-addr": "metrics.addr",
	"database-url": "database.url",
	"log-format":   "log.format",
	"log-level":    "log.level",
}

// RegisterFlags adds the config override flags to fs. The auth secret has no
// flag so that it never shows up in a process listing.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("env", EnvProduction, "environment (development, production or test)")
	fs.Duration("session-ttl", 7*24*time.Hour, "session lifetime")
	fs.String("http-addr", ":8080", "API listen address")
	fs.String("metrics-addr", "127.0.0.1:9100", "metrics/health listen address (empty = disabled)")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("log-format", "json", "log format (json or text)")
	fs.String("log-level", "info", "log level (debug, info, warn or error)")
}

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// File is an optional YAML file. A named file that cannot be read is an
	// error.
	File string
	// Flags, when set, overrides any key whose flag the user changed.
	Flags *pflag.FlagSet
	// Logger receives the development secret warning.
	Logger *slog.Logger
}

// Load builds and validates the configuration.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, invalid("load defaults", err)
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, invalid("load config file", err, "file", opts.File)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", mapEnv(nodeEnvKeys)), nil); err != nil {
		return nil, invalid("load environment", err)
	}
	if err := k.Load(env.ProviderWithValue("", ".", mapEnv(compatEnvKeys)), nil); err != nil {
		return nil, invalid("load environment", err)
	}
	if err := k.Load(env.ProviderWithValue("AFA_", ".", mapEnv(envKeys)), nil); err != nil {
		return nil, invalid("load environment", err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, invalid("load flags", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, invalid("decode config", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.finalize(logger); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mapEnv(keys map[string]string) func(string, string) (string, any) {
	return func(name, value string) (string, any) {
		key, ok := keys[name]
		if !ok || value == "" {
			return "", nil
		}
		return key, value
	}
}

// finalize validates cfg and applies the development secret fallback. Env
// is never empty here: it defaults to production.
func (c *Config) finalize(logger *slog.Logger) error {
	if !slices.Contains([]string{EnvDevelopment, EnvProduction, EnvTest}, c.Env) {
		return invalid("validate", errors.New("env must be development, production or test"), "env", c.Env)
	}
	if c.Auth.SessionTTL < time.Second {
		return invalid("validate", errors.New("auth.session_ttl must be at least 1s"),
			"session_ttl", c.Auth.SessionTTL.String())
	}
	if c.HTTP.Addr == "" {
		return invalid("validate", errors.New("http.addr is required"))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("validate", errors.New("log.format must be json or text"), "format", c.Log.Format)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		return invalid("validate", errors.New("log.level must be debug, info, warn or error"), "level", c.Log.Level)
	}

	if c.Auth.Secret == "" {
		if c.IsProduction() {
			return invalid("validate", errors.New("auth.secret is required in production"))
		}
		logger.Warn("auth secret not configured, using insecure development secret",
			"env", c.Env)
		c.Auth.Secret = DevelopmentSecret
	}
	return nil
}

// invalid wraps cause as a CONFIG_INVALID error that matches ErrConfiguration.
func invalid(operation string, cause error, kv ...any) error {
	return oops.Code(CodeInvalid).
		With("operation", operation).
		With(kv...).
		Wrap(fmt.Errorf("%w: %w", ErrConfiguration, cause))
}
