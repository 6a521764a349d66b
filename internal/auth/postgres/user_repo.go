// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/afa-platform/afa/internal/auth"
)

// DB is the subset of *pgxpool.Pool the repository uses.
// pgxmock.PgxPoolIface satisfies it in unit tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const userColumns = `id, email, name, role, plan, password_hash, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Ping checks that the database is reachable.
func (r *UserRepository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return oops.Code("DB_PING_FAILED").Wrap(err)
	}
	return nil
}

// GetByEmail retrieves a credential by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.Credential, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email)

	cred, err := scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			With("email", email).
			Wrap(err)
	}
	return cred, nil
}

// GetByID retrieves a user's public profile.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)

	cred, err := scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id).
			Wrap(err)
	}
	return &cred.User, nil
}

// Create stores a new user with a fresh ULID.
func (r *UserRepository) Create(ctx context.Context, profile auth.Profile, passwordHash string) (*auth.User, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &auth.User{
		ID:        ulid.Make().String(),
		Email:     strings.ToLower(profile.Email),
		Name:      profile.Name,
		Role:      profile.Role,
		Plan:      profile.Plan,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if user.Role == "" {
		user.Role = auth.RoleUser
	}
	if user.Plan == "" {
		user.Plan = auth.PlanFree
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, email, name, role, plan, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		user.ID,
		user.Email,
		user.Name,
		string(user.Role),
		string(user.Plan),
		passwordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, oops.Code("USER_EMAIL_TAKEN").
				With("email", user.Email).
				Wrap(auth.ErrEmailTaken)
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return user, nil
}

// UpdatePasswordHash replaces the stored hash for a user.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id, passwordHash, time.Now().UTC())
	if err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password hash").
			With("id", id).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

// SetRoleAndPlan updates a user's role and plan without touching the password.
func (r *UserRepository) SetRoleAndPlan(ctx context.Context, id string, role auth.Role, plan auth.Plan) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET role = $2, plan = $3, updated_at = $4
		WHERE id = $1
	`, id, string(role), string(plan), time.Now().UTC())
	if err != nil {
		return oops.Code("USER_UPDATE_ROLE_FAILED").
			With("operation", "update role and plan").
			With("id", id).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

// List returns a page of users ordered by creation time, oldest first.
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]auth.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").
			With("operation", "list users").
			Wrap(err)
	}
	defer rows.Close()

	users := make([]auth.User, 0, limit)
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, cred.User)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_LIST_FAILED").
			With("operation", "iterate users").
			Wrap(err)
	}
	return users, nil
}

// scanCredential scans a single users row.
// Callers are responsible for handling pgx.ErrNoRows.
func scanCredential(row pgx.Row) (*auth.Credential, error) {
	var (
		cred       auth.Credential
		role, plan string
	)
	err := row.Scan(
		&cred.ID,
		&cred.Email,
		&cred.Name,
		&role,
		&plan,
		&cred.PasswordHash,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}
	cred.Role = auth.Role(role)
	cred.Plan = auth.Plan(plan)
	return &cred, nil
}
