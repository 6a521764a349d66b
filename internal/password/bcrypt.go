// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package password

import (
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost puts a verification at roughly 100-150ms on commodity hardware.
const DefaultBcryptCost = 11

// MaxPasswordBytes is bcrypt's input limit.
const MaxPasswordBytes = 72

// bcryptMarker prefixes every bcrypt hash ($2a$, $2b$, $2y$).
const bcryptMarker = "$2"

// BcryptScheme is the modern password scheme.
type BcryptScheme struct {
	cost int
}

// NewBcryptScheme creates a BcryptScheme hashing at cost.
// Costs outside bcrypt's accepted range fall back to DefaultBcryptCost.
func NewBcryptScheme(cost int) *BcryptScheme {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptScheme{cost: cost}
}

// Name returns "bcrypt".
func (s *BcryptScheme) Name() string {
	return "bcrypt"
}

// Matches reports whether stored carries the bcrypt marker.
func (s *BcryptScheme) Matches(stored string) bool {
	return strings.HasPrefix(stored, bcryptMarker)
}

// Hash produces a bcrypt hash of plaintext.
func (s *BcryptScheme) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").With("scheme", s.Name()).Wrap(err)
	}
	return string(hash), nil
}

// Verify compares plaintext against a bcrypt hash. The comparison inside
// bcrypt is constant-time; a malformed hash returns false.
func (s *BcryptScheme) Verify(plaintext, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext)) == nil
}
