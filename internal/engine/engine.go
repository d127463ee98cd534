// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

// Package engine implements the recommendation and prediction core:
// similarity matching against historical campaign and media records,
// performance prediction with confidence scoring, knowledge-based
// risk adjustment, budget-constrained channel allocation, and
// portfolio composition.
//
// Each recommendation run is a pure pipeline over an immutable
// EventRequest and a read-only DataView snapshot. No stage mutates
// shared state, so concurrent runs need no locking between them.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Note: this package depends on no other internal packages. The
// DataView interface lets the database layer plug in without creating
// circular imports.

// Engine runs the recommendation pipeline. It is safe for concurrent
// use.
type Engine struct {
	cfgMu  sync.RWMutex
	config *Config

	logger zerolog.Logger
	data   DataView

	cache   map[string]cacheEntry
	cacheMu sync.Mutex
}

// cacheEntry holds a cached portfolio result. Caching is sound
// because runs are idempotent for an unchanged snapshot; the cache is
// cleared whenever the snapshot refreshes or the config changes.
type cacheEntry struct {
	result    *PortfolioResult
	expiresAt time.Time
}

// New creates a recommendation engine over the given data view.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(data DataView, cfg *Config, logger zerolog.Logger) (*Engine, error) {
	if data == nil {
		return nil, fmt.Errorf("data view must not be nil")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		config: cfg.Clone(),
		logger: logger.With().Str("component", "engine").Logger(),
		data:   data,
		cache:  make(map[string]cacheEntry),
	}, nil
}

// Config returns a copy of the current configuration.
func (e *Engine) Config() *Config {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.config.Clone()
}

// SetConfig replaces the configuration after validating it, and
// clears the result cache since cached results embody the old
// tunables.
func (e *Engine) SetConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	e.cfgMu.Lock()
	e.config = cfg.Clone()
	e.cfgMu.Unlock()
	e.ClearCache()
	e.logger.Info().Msg("engine configuration replaced")
	return nil
}

// ClearCache drops all cached results. Called when the historical
// snapshot refreshes.
func (e *Engine) ClearCache() {
	e.cacheMu.Lock()
	e.cache = make(map[string]cacheEntry)
	e.cacheMu.Unlock()
}

// Recommend runs the full pipeline for one event request and returns
// the recommended portfolio. The result is pure given a fixed
// snapshot: calling twice with the same request and an unchanged
// DataView yields identical results.
func (e *Engine) Recommend(ctx context.Context, req *EventRequest) (*PortfolioResult, error) {
	start := time.Now()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	cfg := e.Config()
	logger := e.logger.With().
		Str("event_name", req.EventName).
		Str("category", string(req.EventCategory)).
		Float64("budget", req.Budget).
		Int("target_attendees", req.TargetAttendees).
		Logger()
	logger.Debug().Msg("processing recommendation request")

	key, keyErr := cacheKey(req)
	if keyErr == nil && cfg.Cache.Enabled {
		if result := e.cachedResult(key, start); result != nil {
			logger.Debug().Msg("served from result cache")
			return result, nil
		}
	}

	campaigns, media, knowledge, err := e.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	m := newMatcher(cfg.Similarity)
	matchedCampaigns := m.MatchCampaigns(req, campaigns)
	matchedMedia := m.MatchMedia(req, media)

	p := newPredictor(cfg.Prediction)
	candidates, caveats := p.Predict(matchedCampaigns, matchedMedia, campaigns)

	newAssessor(cfg.Risk).Assess(req, candidates, knowledge)

	al := newAllocator(cfg.Allocation)
	alloc := al.Allocate(candidates, req.Budget)

	result := newComposer(cfg.Composition, al).Compose(req, candidates, alloc, start)
	result.Caveats = append(caveats, result.Caveats...)
	result.Metadata = ResultMetadata{
		CandidateCount:   len(candidates),
		MatchedCampaigns: len(matchedCampaigns),
		MatchedMedia:     len(matchedMedia),
		LatencyMS:        time.Since(start).Milliseconds(),
		Timestamp:        start.UTC(),
	}

	if keyErr == nil && cfg.Cache.Enabled {
		e.storeResult(key, result, cfg.Cache)
	}

	logger.Debug().
		Int("candidates", len(candidates)).
		Int("selected", len(result.Channels)).
		Float64("total_conversions", result.TotalConversions).
		Float64("goal_probability", result.GoalProbability).
		Int64("latency_ms", result.Metadata.LatencyMS).
		Msg("recommendation complete")

	return result, nil
}

// loadSnapshot reads all three record kinds from the data view. A
// failing view is fatal for the run; the engine never guesses with no
// data at all.
func (e *Engine) loadSnapshot(ctx context.Context) ([]CampaignRecord, []MediaRecord, []KnowledgeItem, error) {
	campaigns, err := e.data.QueryCampaigns(ctx, Filter{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("query campaigns: %w", err)
	}
	media, err := e.data.QueryMedia(ctx, Filter{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("query media: %w", err)
	}
	knowledge, err := e.data.QueryKnowledge(ctx, Filter{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("query knowledge: %w", err)
	}
	return campaigns, media, knowledge, nil
}

// cacheKey derives a stable key from the full request.
func cacheKey(req *EventRequest) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	return string(raw), nil
}

func (e *Engine) cachedResult(key string, now time.Time) *PortfolioResult {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	entry, ok := e.cache[key]
	if !ok {
		return nil
	}
	if now.After(entry.expiresAt) {
		delete(e.cache, key)
		return nil
	}
	result := cloneResult(entry.result)
	result.Metadata.CacheHit = true
	return result
}

func (e *Engine) storeResult(key string, result *PortfolioResult, cfg CacheConfig) {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	if len(e.cache) >= cfg.MaxEntries {
		// Evict expired entries first; if none expired, drop the
		// whole map rather than tracking recency.
		now := time.Now()
		for k, entry := range e.cache {
			if now.After(entry.expiresAt) {
				delete(e.cache, k)
			}
		}
		if len(e.cache) >= cfg.MaxEntries {
			e.cache = make(map[string]cacheEntry)
		}
	}
	e.cache[key] = cacheEntry{
		result:    cloneResult(result),
		expiresAt: time.Now().Add(cfg.TTL),
	}
}

// cloneResult deep-copies a result so cached entries stay isolated
// from callers.
func cloneResult(r *PortfolioResult) *PortfolioResult {
	clone := *r
	clone.Channels = make([]CandidateChannel, len(r.Channels))
	for i := range r.Channels {
		clone.Channels[i] = cloneCandidate(&r.Channels[i])
	}
	clone.Suggestions = append([]string(nil), r.Suggestions...)
	clone.Scenarios = append([]Scenario(nil), r.Scenarios...)
	clone.Caveats = append([]string(nil), r.Caveats...)
	return &clone
}
