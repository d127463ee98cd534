// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package refresh

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/mfujimot/funnelcast/internal/logging"
	"github.com/mfujimot/funnelcast/internal/metrics"
)

// CacheClearer is what the refresher needs from the engine.
type CacheClearer interface {
	ClearCache()
}

// SnapshotBumper is what the refresher needs from the store.
type SnapshotBumper interface {
	BumpSnapshot() int64
}

// Refresher consumes history.updated events, advances the store's
// snapshot version, and invalidates the engine result cache. It
// implements suture.Service and restarts under the supervision tree on
// failure.
type Refresher struct {
	bus    *Bus
	engine CacheClearer
	store  SnapshotBumper
}

// NewRefresher creates the cache-invalidation subscriber. The store may
// be nil when no snapshot tracking is wanted.
func NewRefresher(bus *Bus, engine CacheClearer, store SnapshotBumper) *Refresher {
	return &Refresher{bus: bus, engine: engine, store: store}
}

// String names the service for supervision logs.
func (r *Refresher) String() string {
	return "refresh-subscriber"
}

// Serve subscribes and processes events until the context is canceled
// or the bus closes.
func (r *Refresher) Serve(ctx context.Context) error {
	messages, err := r.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	logging.Info().Str("topic", TopicHistoryUpdated).Msg("refresh subscriber started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				logging.Info().Msg("refresh subscription closed")
				return nil
			}

			start := time.Now()
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				// A malformed event still means the dataset changed.
				logging.Warn().Err(err).Str("message_id", msg.UUID).
					Msg("undecodable refresh event, clearing cache anyway")
			}

			var snapshot int64
			if r.store != nil {
				snapshot = r.store.BumpSnapshot()
			}
			r.engine.ClearCache()
			msg.Ack()

			metrics.RefreshEventsProcessed.Inc()
			metrics.RefreshProcessingDuration.Observe(time.Since(start).Seconds())
			logging.Debug().Str("reason", event.Reason).Int("record_count", event.RecordCount).
				Int64("snapshot_version", snapshot).
				Msg("engine cache cleared after dataset update")
		}
	}
}
