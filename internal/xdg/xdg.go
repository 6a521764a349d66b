// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

// Package xdg locates afa's files under the XDG Base Directory layout.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const (
	appName        = "afa"
	configFileName = "config.yaml"
)

// ConfigDir returns the XDG config directory for afa.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home := os.Getenv("HOME")
		if home == "" {
			return "", oops.Code("XDG_DIR_UNKNOWN").Errorf("neither XDG_CONFIG_HOME nor HOME is set")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName), nil
}

// ConfigFile returns the default config file path, whether or not it exists.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// ExistingConfigFile returns the default config file path if a regular file
// is there, and "" otherwise. Only stat failures other than "not found" are
// errors.
func ExistingConfigFile() (string, error) {
	path, err := ConfigFile()
	if err != nil {
		// No home directory means no default file.
		return "", nil
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", nil
	case err != nil:
		return "", oops.Code("XDG_STAT_FAILED").With("path", path).Wrap(err)
	case info.IsDir():
		return "", nil
	}
	return path, nil
}
