// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package token

import "time"

// Clock supplies the current time to the codec.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns f().
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock returns a Clock that always reports t.
// Useful for testing with deterministic time values.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
