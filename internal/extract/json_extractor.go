// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package extract

import (
	"context"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mfujimot/funnelcast/internal/engine"
)

// StructuredRecord is the tagged union an extractor produces. Exactly
// one of the record pointers is non-nil, matching Kind.
type StructuredRecord struct {
	// Kind discriminates which record pointer is set.
	Kind RecordKind `json:"kind"`

	// Campaign is set when Kind is KindCampaign.
	Campaign *engine.CampaignRecord `json:"campaign,omitempty"`

	// Media is set when Kind is KindMedia.
	Media *engine.MediaRecord `json:"media,omitempty"`

	// Knowledge is set when Kind is KindKnowledge.
	Knowledge *engine.KnowledgeItem `json:"knowledge,omitempty"`
}

// JSONExtractor handles structured JSON uploads: a document holding a
// JSON array of tagged records. It is the only extractor shipped here;
// unstructured-document understanding lives behind the Extractor
// contract and outside this module.
type JSONExtractor struct {
	// MaxRecords caps how many records one document may carry.
	// Zero means DefaultMaxRecords.
	MaxRecords int
}

// DefaultMaxRecords bounds a single document upload.
const DefaultMaxRecords = 10000

// NewJSONExtractor creates a JSON document extractor.
func NewJSONExtractor() *JSONExtractor {
	return &JSONExtractor{MaxRecords: DefaultMaxRecords}
}

// Extract decodes and validates a JSON document of tagged records.
func (x *JSONExtractor) Extract(ctx context.Context, doc Document) ([]StructuredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(doc, "context canceled", err)
	}
	if len(doc.Content) == 0 {
		return nil, newError(doc, "document is empty", nil)
	}
	if ct := doc.ContentType; ct != "" && !strings.HasPrefix(ct, "application/json") {
		return nil, newError(doc, "unsupported content type "+ct, nil)
	}

	var records []StructuredRecord
	if err := json.Unmarshal(doc.Content, &records); err != nil {
		return nil, newError(doc, "not a JSON array of records", err)
	}

	maxRecords := x.MaxRecords
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	if len(records) > maxRecords {
		return nil, newError(doc, "too many records in one document", nil)
	}

	for i, rec := range records {
		if err := validateRecord(rec); err != nil {
			return nil, newError(doc, "record "+strconv.Itoa(i)+" invalid: "+err.Error(), nil)
		}
	}
	return records, nil
}

// validateRecord checks the tagged-union shape and the fields the store
// requires.
func validateRecord(rec StructuredRecord) error {
	if !rec.Kind.Valid() {
		return errInvalid("unknown kind " + string(rec.Kind))
	}

	set := 0
	if rec.Campaign != nil {
		set++
	}
	if rec.Media != nil {
		set++
	}
	if rec.Knowledge != nil {
		set++
	}
	if set != 1 {
		return errInvalid("exactly one record payload must be set")
	}

	switch rec.Kind {
	case KindCampaign:
		if rec.Campaign == nil {
			return errInvalid("kind campaign without campaign payload")
		}
		c := rec.Campaign
		if strings.TrimSpace(c.CampaignName) == "" {
			return errInvalid("campaign_name is required")
		}
		if strings.TrimSpace(c.Channel) == "" {
			return errInvalid("channel is required")
		}
		if c.Category != "" && !c.Category.Valid() {
			return errInvalid("unknown category " + string(c.Category))
		}
		if c.Format != "" && !c.Format.Valid() {
			return errInvalid("unknown format " + string(c.Format))
		}
		if c.DistributionCount < 0 || c.ClickCount < 0 || c.ConversionCount < 0 {
			return errInvalid("counts must be non-negative")
		}
		if c.Cost < 0 {
			return errInvalid("cost must be non-negative")
		}
	case KindMedia:
		if rec.Media == nil {
			return errInvalid("kind media without media payload")
		}
		m := rec.Media
		if strings.TrimSpace(m.MediaName) == "" {
			return errInvalid("media_name is required")
		}
		if m.ReachableCount < 0 {
			return errInvalid("reachable_count must be non-negative")
		}
		if m.Cost < 0 {
			return errInvalid("cost must be non-negative")
		}
	case KindKnowledge:
		if rec.Knowledge == nil {
			return errInvalid("kind knowledge without knowledge payload")
		}
		k := rec.Knowledge
		if strings.TrimSpace(k.Title) == "" {
			return errInvalid("title is required")
		}
		if k.Direction != engine.ImpactPositive && k.Direction != engine.ImpactNegative {
			return errInvalid("unknown direction " + string(k.Direction))
		}
		if k.ImpactDegree < 0 || k.ImpactDegree > 5 {
			return errInvalid("impact_degree must be in [0, 5]")
		}
		if k.Confidence < 0 || k.Confidence > 1 {
			return errInvalid("confidence must be in [0, 1]")
		}
	}
	return nil
}

type errInvalid string

func (e errInvalid) Error() string { return string(e) }
