// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Password constraints applied at registration.
const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
	MaxNameLength     = 100
)

// Role is a user's authorization role.
type Role string

// Roles.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Plan is a user's subscription plan.
type Plan string

// Plans.
const (
	PlanFree     Plan = "FREE"
	PlanPro      Plan = "PRO"
	PlanBusiness Plan = "BUSINESS"
)

// ParsePlan maps a plan name in any case to a Plan. An empty name is PlanFree.
func ParsePlan(name string) (Plan, error) {
	switch Plan(strings.ToUpper(strings.TrimSpace(name))) {
	case "", PlanFree:
		return PlanFree, nil
	case PlanPro:
		return PlanPro, nil
	case PlanBusiness:
		return PlanBusiness, nil
	default:
		return "", oops.Code(CodeInvalidInput).
			With("plan", name).
			Wrapf(ErrInvalidInput, "unknown plan")
	}
}

// User is the public profile of an account. It never carries the password hash.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	Plan      Plan
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Credential is a user together with the stored password hash.
type Credential struct {
	User
	PasswordHash string
}

// Profile is the input for creating a user.
type Profile struct {
	Name  string
	Email string
	Role  Role
	Plan  Plan
}

// NormalizeEmail trims and lower-cases an email address.
// Emails are stored and looked up in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a bare address such as "a@b.example".
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code(CodeInvalidInput).Wrapf(ErrInvalidInput, "email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return oops.Code(CodeInvalidInput).
			With("email", email).
			Wrapf(ErrInvalidInput, "email is not a valid address")
	}
	return nil
}

// ValidatePassword checks a new password against the length rules.
// MaxPasswordBytes is the input limit of the modern hash scheme.
func ValidatePassword(plaintext string) error {
	if utf8.RuneCountInString(plaintext) < MinPasswordLength {
		return oops.Code(CodeInvalidInput).
			With("min", MinPasswordLength).
			Wrapf(ErrInvalidInput, "password must be at least %d characters", MinPasswordLength)
	}
	if len(plaintext) > MaxPasswordBytes {
		return oops.Code(CodeInvalidInput).
			With("max", MaxPasswordBytes).
			Wrapf(ErrInvalidInput, "password must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

// Normalize returns a validated copy of p with the email normalized, the
// name trimmed and defaults applied. A missing name is derived from the
// local part of the email.
func (p Profile) Normalize() (Profile, error) {
	p.Email = NormalizeEmail(p.Email)
	if err := ValidateEmail(p.Email); err != nil {
		return Profile{}, err
	}

	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		local, _, _ := strings.Cut(p.Email, "@")
		p.Name = local
	}
	if utf8.RuneCountInString(p.Name) > MaxNameLength {
		return Profile{}, oops.Code(CodeInvalidInput).
			With("max", MaxNameLength).
			Wrapf(ErrInvalidInput, "name must be at most %d characters", MaxNameLength)
	}

	if p.Role == "" {
		p.Role = RoleUser
	}
	if p.Role != RoleUser && p.Role != RoleAdmin {
		return Profile{}, oops.Code(CodeInvalidInput).
			With("role", string(p.Role)).
			Wrapf(ErrInvalidInput, "unknown role")
	}

	plan, err := ParsePlan(string(p.Plan))
	if err != nil {
		return Profile{}, err
	}
	p.Plan = plan
	return p, nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// GetByEmail retrieves a credential by normalized email.
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*Credential, error)

	// GetByID retrieves a user's public profile.
	// Returns ErrNotFound if the user does not exist.
	GetByID(ctx context.Context, id string) (*User, error)

	// Create stores a new user with the given password hash and returns it
	// with its assigned ID. Returns ErrEmailTaken if the email is in use.
	Create(ctx context.Context, profile Profile, passwordHash string) (*User, error)

	// UpdatePasswordHash replaces the stored hash for a user.
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}
