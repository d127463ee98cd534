// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package engine

import (
	"errors"
	"fmt"
)

// ErrCollaboratorUnavailable indicates the historical data view could
// not be reached. The run fails; the engine never guesses with no data
// at all.
var ErrCollaboratorUnavailable = errors.New("historical data view unavailable")

// ValidationError rejects a malformed EventRequest before any pipeline
// stage runs.
type ValidationError struct {
	// Field is the offending request field.
	Field string

	// Reason explains why the value was rejected.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event request: %s %s", e.Field, e.Reason)
}

// validateRequest checks an EventRequest before the pipeline runs.
func validateRequest(req *EventRequest) error {
	if req == nil {
		return &ValidationError{Field: "request", Reason: "is nil"}
	}
	if req.EventName == "" {
		return &ValidationError{Field: "event_name", Reason: "must not be empty"}
	}
	if !req.EventCategory.Valid() {
		return &ValidationError{Field: "event_category", Reason: fmt.Sprintf("unknown value %q", req.EventCategory)}
	}
	if !req.EventFormat.Valid() {
		return &ValidationError{Field: "event_format", Reason: fmt.Sprintf("unknown value %q", req.EventFormat)}
	}
	if req.TargetAttendees <= 0 {
		return &ValidationError{Field: "target_attendees", Reason: "must be positive"}
	}
	if req.Budget < 0 {
		return &ValidationError{Field: "budget", Reason: "must be non-negative"}
	}
	return nil
}
