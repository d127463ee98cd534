// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

// Package middleware provides HTTP middleware for the API: request
// IDs, request logging, and Prometheus instrumentation. All middleware
// uses the func(http.Handler) http.Handler shape so it plugs into the
// chi router's Use chain.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/mfujimot/funnelcast/internal/logging"
)

type contextKey string

// RequestIDKey is the context key under which the request ID is stored.
const RequestIDKey contextKey = "request_id"

// RequestID generates a unique ID per request and adds it to both the
// response header and the request context. A request ID supplied by an
// upstream proxy via X-Request-ID is honored. The ID is also wired
// into the logging context together with a fresh correlation ID so
// every log line of the request carries both.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = logging.ContextWithRequestID(ctx, requestID)
		ctx = logging.ContextWithNewCorrelationID(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
