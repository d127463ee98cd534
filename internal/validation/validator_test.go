// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package validation

import (
	"strings"
	"testing"
)

type sampleRequest struct {
	EventName       string  `validate:"required,max=200"`
	EventCategory   string  `validate:"required,event_category"`
	EventFormat     string  `validate:"required,event_format"`
	TargetAttendees int     `validate:"gt=0"`
	Budget          float64 `validate:"gte=0"`
}

func validSample() sampleRequest {
	return sampleRequest{
		EventName:       "AI Engineering Summit",
		EventCategory:   "seminar",
		EventFormat:     "online",
		TargetAttendees: 100,
		Budget:          500000,
	}
}

func TestValidateStructPasses(t *testing.T) {
	req := validSample()
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
}

func TestEventCategoryValidator(t *testing.T) {
	for _, cat := range []string{"seminar", "conference", "webinar", "workshop", "exhibition", "meetup"} {
		req := validSample()
		req.EventCategory = cat
		if err := ValidateStruct(&req); err != nil {
			t.Errorf("category %q rejected: %v", cat, err)
		}
	}

	req := validSample()
	req.EventCategory = "festival"
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("unknown category accepted")
	}
	if !strings.Contains(err.Error(), "seminar") {
		t.Errorf("category error should list allowed values, got %q", err.Error())
	}
}

func TestEventFormatValidator(t *testing.T) {
	req := validSample()
	req.EventFormat = "metaverse"
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("unknown format accepted")
	}
	errs := err.Errors()
	if len(errs) != 1 || errs[0].Field() != "EventFormat" || errs[0].Tag() != "event_format" {
		t.Errorf("unexpected errors: %+v", errs)
	}
}

func TestToAPIErrorSingleField(t *testing.T) {
	req := validSample()
	req.Budget = -1
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("negative budget accepted")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_FAILED" {
		t.Errorf("code = %q", apiErr.Code)
	}
	if apiErr.Details["field"] != "Budget" {
		t.Errorf("details = %v", apiErr.Details)
	}
}

func TestToAPIErrorMultipleFields(t *testing.T) {
	req := sampleRequest{}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("empty request accepted")
	}
	if len(err.Errors()) < 3 {
		t.Fatalf("expected several field errors, got %d", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Errorf("multi-error details should carry a fields list, got %v", apiErr.Details)
	}
	if !strings.Contains(apiErr.Message, ";") {
		t.Errorf("multi-error message should join fields, got %q", apiErr.Message)
	}
}

func TestTranslatedMessages(t *testing.T) {
	req := validSample()
	req.EventName = ""
	req.TargetAttendees = 0
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("invalid request accepted")
	}

	msg := err.Error()
	if !strings.Contains(msg, "EventName is required") {
		t.Errorf("missing required message: %q", msg)
	}
	if !strings.Contains(msg, "greater than 0") {
		t.Errorf("missing gt message: %q", msg)
	}
}
