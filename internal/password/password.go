// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

// Package password hashes and verifies user passwords.
//
// New credentials are always hashed with bcrypt. Verification also accepts
// the legacy scrypt format ("scrypt:<salt hex>:<key hex>") so that accounts
// created before the migration keep working. The scheme is chosen purely
// from the shape of the stored string.
package password

import (
	"log/slog"

	"github.com/samber/oops"
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// ErrPasswordTooLong is returned when a password exceeds what bcrypt can hash.
var ErrPasswordTooLong = oops.Code("AUTH_PASSWORD_TOO_LONG").Errorf("password cannot exceed %d bytes", MaxPasswordBytes)

// Scheme is one stored-hash format the verifier understands.
type Scheme interface {
	// Name identifies the scheme in logs and metrics. Scheme names are not secret.
	Name() string

	// Matches reports whether stored looks like a hash of this scheme.
	Matches(stored string) bool

	// Verify reports whether plaintext matches stored. It never returns an
	// error: malformed hashes simply do not match.
	Verify(plaintext, stored string) bool
}

// Verifier hashes new passwords with the modern scheme and verifies
// plaintext against any supported scheme.
// A Verifier is safe for concurrent use.
type Verifier struct {
	modern  *BcryptScheme
	schemes []Scheme
	logger  *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets the logger used to report recovered verification panics.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewVerifier creates a Verifier that hashes with bcrypt and verifies bcrypt
// and legacy scrypt hashes.
func NewVerifier(opts ...Option) *Verifier {
	modern := NewBcryptScheme(DefaultBcryptCost)
	v := &Verifier{
		modern: modern,
		// Order matters: the first scheme whose Matches accepts the hash wins.
		schemes: []Scheme{
			modern,
			NewScryptScheme(),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Hash produces a modern hash of plaintext with a fresh random salt.
func (v *Verifier) Hash(plaintext string) (string, error) {
	return v.modern.Hash(plaintext)
}

// Verify reports whether plaintext matches the stored hash.
// Unknown formats, corrupt hashes and internal failures all return false.
func (v *Verifier) Verify(plaintext, stored string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("password verification panicked", "scheme", v.Scheme(stored), "panic", r)
			ok = false
		}
	}()

	scheme := v.schemeFor(stored)
	if scheme == nil {
		return false
	}
	return scheme.Verify(plaintext, stored)
}

// NeedsUpgrade returns true if stored is not a modern hash.
func (v *Verifier) NeedsUpgrade(stored string) bool {
	return !v.modern.Matches(stored)
}

// Scheme returns the name of the scheme stored belongs to, or "unknown".
func (v *Verifier) Scheme(stored string) string {
	if scheme := v.schemeFor(stored); scheme != nil {
		return scheme.Name()
	}
	return "unknown"
}

func (v *Verifier) schemeFor(stored string) Scheme {
	for _, scheme := range v.schemes {
		if scheme.Matches(stored) {
			return scheme
		}
	}
	return nil
}
