// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package api

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/mfujimot/funnelcast/internal/engine"
)

// RecommendationRequest is the POST /api/v1/recommendations body. It
// mirrors engine.EventRequest with validation tags on the wire shape.
type RecommendationRequest struct {
	// EventName is the display name of the planned event.
	EventName string `json:"event_name" validate:"required,max=200"`

	// EventCategory classifies the event.
	EventCategory string `json:"event_category" validate:"required,event_category"`

	// EventTheme is a free-text description of the event topic.
	EventTheme string `json:"event_theme" validate:"max=2000"`

	// EventFormat is how attendees participate.
	EventFormat string `json:"event_format" validate:"required,event_format"`

	// TargetAudience describes who the event is aimed at.
	TargetAudience engine.TargetAudience `json:"target_audience"`

	// TargetAttendees is the desired attendee count.
	TargetAttendees int `json:"target_attendees" validate:"required,gt=0"`

	// Budget is the total marketing budget. Zero restricts the
	// portfolio to free channels.
	Budget float64 `json:"budget" validate:"gte=0"`

	// EventDate is when the event takes place.
	EventDate time.Time `json:"event_date"`

	// IsFreeEvent indicates whether attendance itself is free.
	IsFreeEvent bool `json:"is_free_event"`
}

// ToEventRequest converts the wire shape into the engine's input type.
func (r *RecommendationRequest) ToEventRequest() *engine.EventRequest {
	return &engine.EventRequest{
		EventName:       r.EventName,
		EventCategory:   engine.EventCategory(r.EventCategory),
		EventTheme:      r.EventTheme,
		EventFormat:     engine.EventFormat(r.EventFormat),
		TargetAudience:  r.TargetAudience,
		TargetAttendees: r.TargetAttendees,
		Budget:          r.Budget,
		EventDate:       r.EventDate,
		IsFreeEvent:     r.IsFreeEvent,
	}
}

// RefreshRequest is the optional POST /api/v1/history/refresh body.
type RefreshRequest struct {
	// Reason is a short free-text cause recorded on the refresh event.
	Reason string `json:"reason" validate:"max=200"`
}

// DocumentUploadRequest is the POST /api/v1/history/documents body: a
// named JSON document of tagged records to extract and store.
type DocumentUploadRequest struct {
	// Name identifies the document in error reports.
	Name string `json:"name" validate:"required,max=255"`

	// Content is the raw JSON document, carried as a JSON value.
	Content json.RawMessage `json:"content" validate:"required"`
}
