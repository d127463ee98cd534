// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

// Package extract defines the boundary between raw uploaded documents
// and the structured records the store understands. The recommendation
// engine never calls into this package and functions with zero
// extracted records; extraction is strictly upstream of the store.
package extract

import (
	"context"
	"fmt"
)

// RecordKind discriminates what a structured record holds.
type RecordKind string

const (
	// KindCampaign is a historical campaign result.
	KindCampaign RecordKind = "campaign"
	// KindMedia is a media catalog entry.
	KindMedia RecordKind = "media"
	// KindKnowledge is a marketer-contributed knowledge rule.
	KindKnowledge RecordKind = "knowledge"
)

// Valid reports whether the kind is a known value.
func (k RecordKind) Valid() bool {
	switch k {
	case KindCampaign, KindMedia, KindKnowledge:
		return true
	default:
		return false
	}
}

// Document is a raw uploaded document before extraction.
type Document struct {
	// Name identifies the document for error reporting, usually the
	// upload filename.
	Name string

	// ContentType is the declared MIME type of the content.
	ContentType string

	// Content is the raw document bytes.
	Content []byte
}

// Extractor turns a raw document into structured records. Implementations
// must return an *ExtractionError for any content the document format
// cannot express as valid records.
type Extractor interface {
	Extract(ctx context.Context, doc Document) ([]StructuredRecord, error)
}

// ExtractionError is a typed extraction failure. Document names appear
// in API error details, so messages must not echo document content.
type ExtractionError struct {
	// Document is the name of the failing document.
	Document string

	// Reason is a short human-readable failure description.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed for %q: %s: %v", e.Document, e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed for %q: %s", e.Document, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func newError(doc Document, reason string, err error) *ExtractionError {
	return &ExtractionError{Document: doc.Name, Reason: reason, Err: err}
}
