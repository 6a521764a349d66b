// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package auth

import "errors"

// Error codes attached to errors returned by this package.
const (
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeEmailTaken         = "AUTH_EMAIL_TAKEN"
	CodeUnauthorized       = "AUTH_UNAUTHORIZED"
	CodeInvalidInput       = "AUTH_INVALID_INPUT"
	CodeLoginFailed        = "AUTH_LOGIN_FAILED"
	CodeRegisterFailed     = "AUTH_REGISTER_FAILED"
)

// ErrNotFound is returned by repositories when a requested user does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong
// password. The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailTaken is returned when registering an email that already exists.
var ErrEmailTaken = errors.New("email already registered")

// ErrUnauthorized is returned by RequireAuthenticated when there is no valid session.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvalidInput is returned when registration input fails validation.
var ErrInvalidInput = errors.New("invalid input")
