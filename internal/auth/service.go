// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/afa-platform/afa/internal/token"
	"github.com/afa-platform/afa/pkg/errutil"
)

// TokenCodec mints and verifies session tokens.
type TokenCodec interface {
	Issue(userID string, ttl time.Duration) (string, error)
	Verify(tok string) (token.Claims, bool)
}

// PasswordVerifier hashes and verifies passwords.
type PasswordVerifier interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, stored string) bool
	NeedsUpgrade(stored string) bool
	Scheme(stored string) string
}

// dummyPasswordHash is verified when the email is unknown so that a miss
// costs the same as a wrong password. It is a well-formed bcrypt hash at the
// default cost that matches no password.
//
//nolint:gosec // G101: not a credential
const dummyPasswordHash = "$2a$11$C6UzMDM.H6dfI/f/IKxGhu0Q2Yl2Ck3z9NfHvGQQxqVZLt8oZ1ZJ6"

// Session is the result of a successful login or registration, or a cleared
// session produced by Logout. The transport stores Token in a cookie with
// the given MaxAge.
type Session struct {
	Token     string
	User      *User
	ExpiresAt time.Time
	MaxAge    time.Duration
}

// Cleared returns true if the session instructs the client to drop its token.
func (s *Session) Cleared() bool {
	return s.Token == ""
}

// Identity is the outcome of resolving a token: either anonymous or
// authenticated as User.
type Identity struct {
	User *User
}

// Anonymous is the identity of a request without a valid session.
var Anonymous = Identity{}

// Authenticated returns true if the identity carries a user.
func (i Identity) Authenticated() bool {
	return i.User != nil
}

// Service provides session operations.
// A Service holds no mutable state and is safe for concurrent use.
type Service struct {
	users     UserRepository
	passwords PasswordVerifier
	tokens    TokenCodec
	ttl       time.Duration
	clock     token.Clock
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSessionTTL sets the lifetime of issued sessions.
// Values below one second are ignored.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl >= time.Second {
			s.ttl = ttl
		}
	}
}

// WithLogger sets the logger for best-effort failures.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used to report session expiry. It should be the
// clock the token codec uses.
func WithClock(clock token.Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService creates a new Service.
func NewService(users UserRepository, passwords PasswordVerifier, tokens TokenCodec, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if passwords == nil {
		return nil, oops.Errorf("password verifier is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token codec is required")
	}

	s := &Service{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		ttl:       token.DefaultTTL,
		clock:     token.SystemClock{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SessionTTL returns the lifetime of issued sessions.
func (s *Service) SessionTTL() time.Duration {
	return s.ttl
}

// Login verifies email and password and mints a session.
// An unknown email and a wrong password both return ErrInvalidCredentials,
// and both run a full password verification.
func (s *Service) Login(ctx context.Context, email, plaintext string) (*Session, error) {
	started := time.Now()
	email = NormalizeEmail(email)

	cred, lookupErr := s.users.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	exists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			recordLogin(ResultError, started)
			return nil, oops.Code(CodeLoginFailed).
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = cred.PasswordHash
		exists = true
	}

	// Always verify, even for unknown users, so response time does not reveal
	// whether the email is registered.
	valid := s.passwords.Verify(plaintext, targetHash)
	if !exists || !valid {
		recordLogin(ResultInvalid, started)
		return nil, oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
	}

	if s.passwords.NeedsUpgrade(cred.PasswordHash) {
		s.upgradeHash(ctx, cred, plaintext)
	}

	session, err := s.issue(&cred.User)
	if err != nil {
		recordLogin(ResultError, started)
		return nil, oops.Code(CodeLoginFailed).
			With("operation", "issue token").
			With("user_id", cred.ID).
			Wrap(err)
	}

	recordLogin(ResultSuccess, started)
	return session, nil
}

// upgradeHash rehashes a legacy credential with the modern scheme.
// Failures are logged; login succeeds regardless.
func (s *Service) upgradeHash(ctx context.Context, cred *Credential, plaintext string) {
	scheme := s.passwords.Scheme(cred.PasswordHash)

	newHash, err := s.passwords.Hash(plaintext)
	if err != nil {
		PasswordRehashes.WithLabelValues(scheme, ResultError).Inc()
		s.logger.WarnContext(ctx, "password rehash failed",
			"user_id", cred.ID, "scheme", scheme, "error", err)
		return
	}

	if err := s.users.UpdatePasswordHash(ctx, cred.ID, newHash); err != nil {
		PasswordRehashes.WithLabelValues(scheme, ResultError).Inc()
		errutil.LogErrorContext(ctx, s.logger, "password rehash not persisted",
			oops.With("user_id", cred.ID, "scheme", scheme).Wrap(err))
		return
	}

	PasswordRehashes.WithLabelValues(scheme, ResultSuccess).Inc()
	cred.PasswordHash = newHash
	s.logger.InfoContext(ctx, "password hash upgraded", "user_id", cred.ID, "scheme", scheme)
}

// Register creates a user and mints a session for it without re-verifying
// the password.
func (s *Service) Register(ctx context.Context, profile Profile, plaintext string) (*Session, error) {
	profile, err := profile.Normalize()
	if err != nil {
		Registrations.WithLabelValues(ResultInvalid).Inc()
		return nil, err
	}
	if err := ValidatePassword(plaintext); err != nil {
		Registrations.WithLabelValues(ResultInvalid).Inc()
		return nil, err
	}

	_, err = s.users.GetByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		Registrations.WithLabelValues(ResultInvalid).Inc()
		return nil, oops.Code(CodeEmailTaken).With("email", profile.Email).Wrap(ErrEmailTaken)
	case !errors.Is(err, ErrNotFound):
		Registrations.WithLabelValues(ResultError).Inc()
		return nil, oops.Code(CodeRegisterFailed).
			With("operation", "get user by email").
			Wrap(err)
	}

	hash, err := s.passwords.Hash(plaintext)
	if err != nil {
		Registrations.WithLabelValues(ResultError).Inc()
		return nil, oops.Code(CodeRegisterFailed).
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := s.users.Create(ctx, profile, hash)
	if err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, ErrEmailTaken) {
			Registrations.WithLabelValues(ResultInvalid).Inc()
			return nil, oops.Code(CodeEmailTaken).With("email", profile.Email).Wrap(ErrEmailTaken)
		}
		Registrations.WithLabelValues(ResultError).Inc()
		return nil, oops.Code(CodeRegisterFailed).
			With("operation", "create user").
			Wrap(err)
	}

	session, err := s.issue(user)
	if err != nil {
		Registrations.WithLabelValues(ResultError).Inc()
		return nil, oops.Code(CodeRegisterFailed).
			With("operation", "issue token").
			With("user_id", user.ID).
			Wrap(err)
	}

	Registrations.WithLabelValues(ResultSuccess).Inc()
	return session, nil
}

// Resolve returns the identity a token proves. Invalid tokens, deleted users
// and repository failures all resolve to Anonymous; failures are logged.
func (s *Service) Resolve(ctx context.Context, tok string) Identity {
	if tok == "" {
		SessionResolutions.WithLabelValues(ResultAnonymous).Inc()
		return Anonymous
	}

	claims, ok := s.tokens.Verify(tok)
	if !ok {
		SessionResolutions.WithLabelValues(ResultInvalid).Inc()
		return Anonymous
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			SessionResolutions.WithLabelValues(ResultAnonymous).Inc()
			return Anonymous
		}
		SessionResolutions.WithLabelValues(ResultError).Inc()
		errutil.LogErrorContext(ctx, s.logger, "session user lookup failed",
			oops.With("user_id", claims.UserID).Wrap(err))
		return Anonymous
	}

	SessionResolutions.WithLabelValues(ResultSuccess).Inc()
	return Identity{User: user}
}

// RequireAuthenticated resolves tok and returns ErrUnauthorized for an
// anonymous identity.
func (s *Service) RequireAuthenticated(ctx context.Context, tok string) (*User, error) {
	identity := s.Resolve(ctx, tok)
	if !identity.Authenticated() {
		return nil, oops.Code(CodeUnauthorized).Wrap(ErrUnauthorized)
	}
	return identity.User, nil
}

// Logout returns a cleared session. There is no server-side state; the
// transport overwrites the client's token with an already-expired one.
func (s *Service) Logout(_ context.Context) *Session {
	return &Session{}
}

func (s *Service) issue(user *User) (*Session, error) {
	tok, err := s.tokens.Issue(user.ID, s.ttl)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}
	ttl := s.ttl.Truncate(time.Second)
	return &Session{
		Token:     tok,
		User:      user,
		ExpiresAt: s.clock.Now().Add(ttl),
		MaxAge:    ttl,
	}, nil
}
