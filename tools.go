// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

//go:build tools
// +build tools

// Package main pins dependencies that only integration-tagged tests import,
// so go.mod keeps them for `go test -tags integration`.
package main

import (
	// Integration suites
	_ "github.com/onsi/ginkgo/v2"
	_ "github.com/onsi/gomega"
	_ "github.com/testcontainers/testcontainers-go"
	_ "github.com/testcontainers/testcontainers-go/modules/postgres"
)
