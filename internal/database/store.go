// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mfujimot/funnelcast/internal/config"
	"github.com/mfujimot/funnelcast/internal/engine"
	"github.com/mfujimot/funnelcast/internal/logging"
	"github.com/mfujimot/funnelcast/internal/metrics"
)

// Store implements engine.DataView on top of the DuckDB database,
// guarded by a circuit breaker. When the breaker is open, queries fail
// fast with engine.ErrCollaboratorUnavailable so the engine can report
// the outage instead of stacking up timeouts.
//
// The breaker uses real time for its open/half-open transitions; tests
// that need deterministic behavior should exercise the DB methods
// directly.
type Store struct {
	db   *DB
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// NewStore wraps the database in a circuit breaker configured from the
// database config.
func NewStore(db *DB, cfg *config.DatabaseConfig) *Store {
	cbName := "duckdb"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Warn().Str("breaker", name).Str("from", fromStr).Str("to", toStr).
				Msg("circuit breaker state transition")
			metrics.RecordBreakerTransition(name, fromStr, toStr, stateToFloat(to))
		},
	})

	return &Store{db: db, cb: cb, name: cbName}
}

// DB returns the wrapped database.
func (s *Store) DB() *DB {
	return s.db
}

// QueryCampaigns returns campaign history matching the filter.
func (s *Store) QueryCampaigns(ctx context.Context, f engine.Filter) ([]engine.CampaignRecord, error) {
	return castResult[[]engine.CampaignRecord](s.execute(func() (interface{}, error) {
		return s.db.queryCampaigns(ctx, f)
	}))
}

// QueryMedia returns media catalog records matching the filter.
func (s *Store) QueryMedia(ctx context.Context, f engine.Filter) ([]engine.MediaRecord, error) {
	return castResult[[]engine.MediaRecord](s.execute(func() (interface{}, error) {
		return s.db.queryMedia(ctx, f)
	}))
}

// QueryKnowledge returns knowledge items matching the filter.
func (s *Store) QueryKnowledge(ctx context.Context, f engine.Filter) ([]engine.KnowledgeItem, error) {
	return castResult[[]engine.KnowledgeItem](s.execute(func() (interface{}, error) {
		return s.db.queryKnowledge(ctx, f)
	}))
}

// execute runs one query through the circuit breaker and translates
// breaker rejections into the engine's unavailability sentinel.
func (s *Store) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := s.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(s.name, "rejected").Inc()
			return nil, fmt.Errorf("database circuit open: %w", engine.ErrCollaboratorUnavailable)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(s.name, "failure").Inc()
		return nil, fmt.Errorf("%v: %w", err, engine.ErrCollaboratorUnavailable)
	}

	metrics.CircuitBreakerRequests.WithLabelValues(s.name, "success").Inc()
	return result, nil
}

// castResult type-asserts the breaker result.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
