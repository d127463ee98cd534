// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

// Package refresh propagates dataset-changed notifications. The data
// management side publishes on the history.updated topic after loading
// new records; the subscriber invalidates the engine's result cache so
// the next recommendation run sees a fresh snapshot.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/mfujimot/funnelcast/internal/config"
	"github.com/mfujimot/funnelcast/internal/metrics"
)

// TopicHistoryUpdated carries dataset-changed events.
const TopicHistoryUpdated = "history.updated"

// Event is the payload published on TopicHistoryUpdated.
type Event struct {
	// Reason is a short free-text cause, e.g. "manual_refresh" or
	// "document_upload".
	Reason string `json:"reason"`

	// RecordCount is how many records the triggering load wrote. Zero
	// when unknown.
	RecordCount int `json:"record_count,omitempty"`

	// Timestamp is when the event was published.
	Timestamp time.Time `json:"timestamp"`
}

// Bus is an in-process pub/sub channel for refresh events.
type Bus struct {
	pubsub *gochannel.GoChannel
	mu     sync.Mutex
	closed bool
}

// NewBus creates the in-process refresh bus.
func NewBus(cfg *config.RefreshConfig, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = NewLoggerAdapter()
	}
	bufferSize := int64(64)
	if cfg != nil && cfg.BufferSize > 0 {
		bufferSize = int64(cfg.BufferSize)
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            bufferSize,
		BlockPublishUntilSubscriberAck: false,
	}, logger)

	return &Bus{pubsub: pubsub}
}

// PublishHistoryUpdated publishes a dataset-changed event.
func (b *Bus) PublishHistoryUpdated(ctx context.Context, event Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("refresh bus is closed")
	}
	b.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode refresh event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(TopicHistoryUpdated, msg); err != nil {
		return fmt.Errorf("failed to publish refresh event: %w", err)
	}

	metrics.RefreshEventsPublished.Inc()
	return nil
}

// Subscribe returns the message channel for the history.updated topic.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, TopicHistoryUpdated)
}

// Close shuts down the bus. In-flight subscribers see their channels
// closed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}
