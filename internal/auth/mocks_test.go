// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package auth_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/afa-platform/afa/internal/auth"
)

// mockUserRepository is a testify mock of auth.UserRepository.
type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.Credential, error) {
	args := m.Called(ctx, email)
	cred, _ := args.Get(0).(*auth.Credential)
	return cred, args.Error(1)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *mockUserRepository) Create(ctx context.Context, profile auth.Profile, passwordHash string) (*auth.User, error) {
	args := m.Called(ctx, profile, passwordHash)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *mockUserRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// mockPasswordVerifier is a testify mock of auth.PasswordVerifier.
type mockPasswordVerifier struct {
	mock.Mock
}

func (m *mockPasswordVerifier) Hash(plaintext string) (string, error) {
	args := m.Called(plaintext)
	return args.String(0), args.Error(1)
}

func (m *mockPasswordVerifier) Verify(plaintext, stored string) bool {
	return m.Called(plaintext, stored).Bool(0)
}

func (m *mockPasswordVerifier) NeedsUpgrade(stored string) bool {
	return m.Called(stored).Bool(0)
}

func (m *mockPasswordVerifier) Scheme(stored string) string {
	return m.Called(stored).String(0)
}

// memoryUserRepository is an in-memory auth.UserRepository for end-to-end
// service tests.
type memoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*auth.Credential
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: make(map[string]*auth.Credential)}
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*auth.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cred := range r.users {
		if strings.EqualFold(cred.Email, email) {
			c := *cred
			return &c, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	u := cred.User
	return &u, nil
}

func (r *memoryUserRepository) Create(_ context.Context, profile auth.Profile, passwordHash string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cred := range r.users {
		if cred.Email == profile.Email {
			return nil, auth.ErrEmailTaken
		}
	}
	now := time.Now().UTC()
	cred := &auth.Credential{
		User: auth.User{
			ID:        ulid.Make().String(),
			Email:     profile.Email,
			Name:      profile.Name,
			Role:      profile.Role,
			Plan:      profile.Plan,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: passwordHash,
	}
	r.users[cred.ID] = cred
	u := cred.User
	return &u, nil
}

func (r *memoryUserRepository) UpdatePasswordHash(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	cred.PasswordHash = passwordHash
	return nil
}

func (r *memoryUserRepository) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

func (r *memoryUserRepository) put(cred auth.Credential) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[cred.ID] = &cred
}

func (r *memoryUserRepository) hashOf(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id].PasswordHash
}
