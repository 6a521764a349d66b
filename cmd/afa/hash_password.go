// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/afa-platform/afa/internal/auth"
	"github.com/afa-platform/afa/internal/password"
)

// NewHashPasswordCmd creates the hash-password subcommand.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin",
		Long: `Reads one password line from stdin and prints its bcrypt hash, for
provisioning users by hand. The password is never taken as an argument so it
does not end up in shell history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hash, err := hashPassword(cmd.InOrStdin(), password.NewVerifier())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err //nolint:wrapcheck // stdout write
		},
	}
}

func hashPassword(in io.Reader, hashes hasher) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", oops.Code("STDIN_READ_FAILED").Wrap(err)
	}
	plaintext := strings.TrimRight(line, "\r\n")
	if err := auth.ValidatePassword(plaintext); err != nil {
		return "", err //nolint:wrapcheck // coded by auth
	}

	hash, err := hashes.Hash(plaintext)
	if err != nil {
		return "", oops.Code("HASH_FAILED").Wrap(err)
	}
	return hash, nil
}
