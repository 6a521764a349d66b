// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

// Package auth provides the session layer of afa.
//
// # Domain Types
//
// User is the public profile handed to route handlers. Credential adds the
// stored password hash and never leaves this package and its repository.
// Profile is the registration input.
//
// # Services
//
// Service composes a token codec, a password verifier and a UserRepository:
//   - Login, Register - verify or create credentials and mint a Session
//   - Resolve, RequireAuthenticated - turn a token back into a user
//   - Logout - produce a cleared Session for the transport to write
//
// Sessions are stateless. Nothing is stored server-side, so logout only
// instructs the client to drop its token.
package auth
