// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts that err is an oops error carrying code, either
// directly or through a wrapped cause.
func AssertErrorCode(t testing.TB, err error, code string) {
	t.Helper()
	require.Error(t, err)
	_, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	assert.Equal(t, code, Code(err), "unexpected code for %v", err)
}

// AssertErrorContext asserts that err carries key=value in its oops context.
func AssertErrorContext(t testing.TB, err error, key string, value any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	ctx := oopsErr.Context()
	require.Contains(t, ctx, key)
	assert.Equal(t, value, ctx[key])
}
