// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

// Package token issues and verifies compact HMAC-signed session tokens.
//
// A token has three dot-separated segments:
//
//	v1.<base64url(json payload)>.<base64url(HMAC-SHA256(v1.<payload>))>
//
// The payload carries only the user ID and an expiry in epoch seconds.
// Verification failures are never distinguished: a corrupt, tampered,
// expired or foreign-version token all yield "no session".
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Version is the protocol tag carried in the first token segment.
const Version = "v1"

// DefaultTTL is the session lifetime used when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

const separator = "."

var encoding = base64.RawURLEncoding

// Claims is the decoded content of a valid token.
type Claims struct {
	UserID    string
	ExpiresAt time.Time
}

// payload is the serialized token body. Field order is fixed by the struct.
type payload struct {
	UID string `json:"uid"`
	Exp int64  `json:"exp"`
}

// Codec signs and verifies session tokens with a single secret.
// A Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	secret []byte
	clock  Clock
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the clock used for expiry computation and checks.
func WithClock(clock Clock) Option {
	return func(c *Codec) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewCodec creates a Codec keyed with secret.
// The secret is copied; later changes to the caller's slice have no effect.
func NewCodec(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, oops.Code("CONFIG_INVALID").Errorf("token secret cannot be empty")
	}
	key := make([]byte, len(secret))
	copy(key, secret)

	c := &Codec{secret: key, clock: SystemClock{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue mints a token for userID that expires ttl from now.
// ttl is truncated to whole seconds and must be at least one second.
func (c *Codec) Issue(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", oops.Code("TOKEN_INVALID_SUBJECT").Errorf("user ID cannot be empty")
	}
	// JSON would replace invalid sequences, so the ID would not round-trip.
	if !utf8.ValidString(userID) {
		return "", oops.Code("TOKEN_INVALID_SUBJECT").Errorf("user ID must be valid UTF-8")
	}
	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		return "", oops.Code("TOKEN_INVALID_TTL").
			With("ttl", ttl.String()).
			Errorf("ttl must be at least one second")
	}

	body, err := json.Marshal(payload{
		UID: userID,
		Exp: c.clock.Now().Unix() + seconds,
	})
	if err != nil {
		return "", oops.Code("TOKEN_ENCODE_FAILED").Wrap(err)
	}

	signed := Version + separator + encoding.EncodeToString(body)
	return signed + separator + c.sign(signed), nil
}

// Verify checks token and returns its claims.
// The boolean is false for every kind of invalid token; no reason is exposed.
func (c *Codec) Verify(token string) (Claims, bool) {
	parts := strings.Split(token, separator)
	if len(parts) != 3 {
		return Claims{}, false
	}
	version, body, mac := parts[0], parts[1], parts[2]
	if version == "" || body == "" || mac == "" {
		return Claims{}, false
	}
	if version != Version {
		return Claims{}, false
	}

	expected := c.sign(version + separator + body)
	if !hmac.Equal([]byte(expected), []byte(mac)) {
		return Claims{}, false
	}

	raw, err := encoding.DecodeString(body)
	if err != nil {
		return Claims{}, false
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Claims{}, false
	}
	if p.UID == "" || p.Exp == 0 {
		return Claims{}, false
	}
	if p.Exp <= c.clock.Now().Unix() {
		return Claims{}, false
	}

	return Claims{UserID: p.UID, ExpiresAt: time.Unix(p.Exp, 0)}, true
}

func (c *Codec) sign(data string) string {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(data))
	return encoding.EncodeToString(h.Sum(nil))
}
