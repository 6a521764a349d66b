// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for auth metrics.
const (
	ResultSuccess   = "success"
	ResultInvalid   = "invalid"
	ResultError     = "error"
	ResultAnonymous = "anonymous"
)

// LoginAttempts counts Login calls by result.
// Use RegisterMetrics to register this with a Prometheus registry.
var LoginAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "afa_auth_login_attempts_total",
		Help: "Total number of login attempts by result",
	},
	[]string{"result"},
)

// LoginDuration observes Login latency, which is dominated by the password KDF.
var LoginDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "afa_auth_login_duration_seconds",
		Help:    "Login duration in seconds",
		Buckets: []float64{.025, .05, .1, .2, .4, .8, 1.6},
	},
)

// Registrations counts Register calls by result.
var Registrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "afa_auth_registrations_total",
		Help: "Total number of registrations by result",
	},
	[]string{"result"},
)

// SessionResolutions counts Resolve calls by outcome.
var SessionResolutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "afa_auth_session_resolutions_total",
		Help: "Total number of session resolutions by result",
	},
	[]string{"result"},
)

// PasswordRehashes counts legacy hashes migrated to the modern scheme on login.
var PasswordRehashes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "afa_auth_password_rehashes_total",
		Help: "Total number of password rehashes by source scheme and result",
	},
	[]string{"scheme", "result"},
)

// RegisterMetrics registers auth metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(LoginAttempts)
	reg.MustRegister(LoginDuration)
	reg.MustRegister(Registrations)
	reg.MustRegister(SessionResolutions)
	reg.MustRegister(PasswordRehashes)
}

func recordLogin(result string, started time.Time) {
	LoginAttempts.WithLabelValues(result).Inc()
	LoginDuration.Observe(time.Since(started).Seconds())
}
