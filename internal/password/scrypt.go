// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package password

import (
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// Legacy scrypt parameters. They are not stored in the hash, so they must
// never change while legacy hashes remain in the database.
const (
	ScryptTag     = "scrypt"
	ScryptN       = 16384
	ScryptR       = 8
	ScryptP       = 1
	ScryptKeyLen  = 64
	ScryptSaltLen = 16
)

// ScryptScheme verifies legacy "scrypt:<salt hex>:<key hex>" hashes.
// It has no Hash method: new credentials are never written in this format.
type ScryptScheme struct{}

// NewScryptScheme creates a ScryptScheme.
func NewScryptScheme() *ScryptScheme {
	return &ScryptScheme{}
}

// Name returns "scrypt".
func (s *ScryptScheme) Name() string {
	return ScryptTag
}

// Matches reports whether stored starts with the scrypt tag.
func (s *ScryptScheme) Matches(stored string) bool {
	return strings.HasPrefix(stored, ScryptTag+":")
}

// Verify derives a key from plaintext and the stored salt and compares it to
// the stored key in constant time.
func (s *ScryptScheme) Verify(plaintext, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 3 || parts[0] != ScryptTag {
		return false
	}

	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(parts[2])
	if err != nil || len(expected) == 0 {
		return false
	}

	derived, err := DeriveScryptKey(plaintext, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(derived, expected) == 1
}

// DeriveScryptKey computes the legacy scrypt key for plaintext and salt.
func DeriveScryptKey(plaintext string, salt []byte) ([]byte, error) {
	//nolint:wrapcheck // callers collapse every failure to a non-match
	return scrypt.Key([]byte(plaintext), salt, ScryptN, ScryptR, ScryptP, ScryptKeyLen)
}
