// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

// Package errutil holds helpers for working with oops-coded errors.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level without a request context.
func LogError(logger *slog.Logger, msg string, err error) {
	LogErrorContext(context.Background(), logger, msg, err)
}

// LogErrorContext logs err at error level. Passing the request context lets
// the logging handler attach trace and span IDs.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error) {
	logger.ErrorContext(ctx, msg, Attrs(err)...)
}

// Attrs returns the slog key/value pairs describing err. oops errors
// contribute their code and context as separate keys so they stay queryable.
func Attrs(err error) []any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err}
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := Code(err); code != "" {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	return attrs
}

// Code returns the oops code carried by err, or "" if there is none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// HasCode reports whether err is an oops error carrying code.
func HasCode(err error, code string) bool {
	return code != "" && Code(err) == code
}
