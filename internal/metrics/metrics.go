// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

// Package metrics provides Prometheus instrumentation for the
// recommendation pipeline, the DuckDB store, the HTTP API, and the
// history refresh bus. All collectors are registered with the default
// registry via promauto and exposed at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation pipeline metrics
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"}, // "success", "cache_hit", "validation_failed", "unavailable", "error"
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "End-to-end duration of recommendation computation in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	RecommendationCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_candidate_channels",
			Help:    "Number of candidate channels evaluated per request",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
	)

	RecommendationFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_fallbacks_total",
			Help: "Total number of requests answered from channel-wide fallback averages",
		},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	DBRowsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_rows_returned",
			Help:    "Rows returned per DuckDB query",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		},
		[]string{"table"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// History refresh bus metrics
	RefreshEventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refresh_events_published_total",
			Help: "Total number of history refresh events published",
		},
	)

	RefreshEventsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refresh_events_processed_total",
			Help: "Total number of history refresh events processed",
		},
	)

	RefreshProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refresh_processing_duration_seconds",
			Help:    "Duration of refresh event handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// System metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRecommendation records one recommendation request.
func RecordRecommendation(outcome string, duration time.Duration, candidates int) {
	RecommendationsTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" || outcome == "cache_hit" {
		RecommendationDuration.Observe(duration.Seconds())
		RecommendationCandidates.Observe(float64(candidates))
	}
}

// RecordBreakerTransition records a circuit breaker state change and
// updates the state gauge.
func RecordBreakerTransition(name, from, to string, stateValue float64) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(stateValue)
}

// StartUptimeTracking updates the uptime gauge once per interval until
// stop is closed.
func StartUptimeTracking(interval time.Duration, stop <-chan struct{}) {
	start := time.Now()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				AppUptime.Set(time.Since(start).Seconds())
			case <-stop:
				return
			}
		}
	}()
}
