// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

// Package store owns the PostgreSQL schema and connection pool: embedded
// golang-migrate migrations for the users table and a pgxpool connector that
// retries while the database comes up.
package store
