// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := CorrelationIDFromContext(ctx); got != "" {
		t.Errorf("empty context returned correlation ID %q", got)
	}

	id := GenerateCorrelationID()
	if len(id) != 8 {
		t.Errorf("correlation ID length = %d, want 8", len(id))
	}

	ctx = ContextWithCorrelationID(ctx, id)
	if got := CorrelationIDFromContext(ctx); got != id {
		t.Errorf("CorrelationIDFromContext = %q, want %q", got, id)
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("empty context returned request ID %q", got)
	}

	id := GenerateRequestID()
	ctx = ContextWithRequestID(ctx, id)
	if got := RequestIDFromContext(ctx); got != id {
		t.Errorf("RequestIDFromContext = %q, want %q", got, id)
	}
}

func TestGenerateIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate request ID %q", id)
		}
		seen[id] = true
	}
}

func TestCtxAttachesIDs(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	ctx := ContextWithCorrelationID(context.Background(), "abcd1234")
	ctx = ContextWithRequestID(ctx, "req-42")

	Ctx(ctx).Info().Msg("with ids")

	out := buf.String()
	if !strings.Contains(out, `"correlation_id":"abcd1234"`) {
		t.Errorf("correlation_id missing: %s", out)
	}
	if !strings.Contains(out, `"request_id":"req-42"`) {
		t.Errorf("request_id missing: %s", out)
	}
}

func TestCtxWithoutIDs(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Ctx(context.Background()).Info().Msg("bare")

	out := buf.String()
	if strings.Contains(out, "correlation_id") || strings.Contains(out, "request_id") {
		t.Errorf("IDs attached on an empty context: %s", out)
	}
}
