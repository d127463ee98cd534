// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package refresh

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/mfujimot/funnelcast/internal/logging"
)

// LoggerAdapter bridges watermill's logging interface onto the
// application logger.
type LoggerAdapter struct {
	logger zerolog.Logger
}

// NewLoggerAdapter creates a watermill logger writing through the
// application logger with a component field.
func NewLoggerAdapter() *LoggerAdapter {
	return &LoggerAdapter{logger: logging.WithComponent("refresh")}
}

func fieldsToEvent(event *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	return event
}

// Error implements watermill.LoggerAdapter.
func (a *LoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	fieldsToEvent(a.logger.Error().Err(err), fields).Msg(msg)
}

// Info implements watermill.LoggerAdapter.
func (a *LoggerAdapter) Info(msg string, fields watermill.LogFields) {
	fieldsToEvent(a.logger.Info(), fields).Msg(msg)
}

// Debug implements watermill.LoggerAdapter.
func (a *LoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	fieldsToEvent(a.logger.Debug(), fields).Msg(msg)
}

// Trace implements watermill.LoggerAdapter.
func (a *LoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	fieldsToEvent(a.logger.Trace(), fields).Msg(msg)
}

// With implements watermill.LoggerAdapter.
func (a *LoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := a.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &LoggerAdapter{logger: ctx.Logger()}
}
