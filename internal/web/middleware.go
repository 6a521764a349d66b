// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// statusRecorder captures the status code a handler writes.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// unmatchedRoute labels requests that no route template matched.
const unmatchedRoute = "unmatched"

type routeLabelKey struct{}

// instrument logs every request and records route metrics, including those
// the router answers with 404 or 405. The route label is the path template so
// that label cardinality stays bounded.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		route := unmatchedRoute
		r = r.WithContext(context.WithValue(r.Context(), routeLabelKey{}, &route))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(started)

		if s.metrics != nil {
			s.metrics.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
			s.metrics.RequestDuration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())
		}
		s.logger.DebugContext(r.Context(), "request",
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"duration", elapsed)
	})
}

// labelRoute hands the matched path template back to instrument. mux runs it
// only for matched routes.
func labelRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if label, ok := r.Context().Value(routeLabelKey{}).(*string); ok {
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					*label = tmpl
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
