// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/mfujimot/funnelcast/internal/database"
	"github.com/mfujimot/funnelcast/internal/engine"
	"github.com/mfujimot/funnelcast/internal/extract"
	"github.com/mfujimot/funnelcast/internal/logging"
	"github.com/mfujimot/funnelcast/internal/metrics"
	"github.com/mfujimot/funnelcast/internal/refresh"
	"github.com/mfujimot/funnelcast/internal/validation"
)

// maxBodyBytes caps request bodies. Document uploads carry whole
// datasets and get a larger cap.
const (
	maxBodyBytes         = 1 << 20  // 1 MiB
	maxDocumentBodyBytes = 32 << 20 // 32 MiB
)

// Handler holds the dependencies the HTTP handlers need.
type Handler struct {
	engine    *engine.Engine
	db        *database.DB
	bus       *refresh.Bus
	extractor extract.Extractor
}

// NewHandler creates the API handler set.
func NewHandler(eng *engine.Engine, db *database.DB, bus *refresh.Bus, extractor extract.Extractor) *Handler {
	return &Handler{engine: eng, db: db, bus: bus, extractor: extractor}
}

// decodeJSON reads and decodes a JSON request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

// Recommend handles POST /api/v1/recommendations.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	start := time.Now()

	var req RecommendationRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		metrics.RecordRecommendation("validation_failed", time.Since(start), 0)
		rw.BadRequest("request body is not valid JSON")
		return
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		metrics.RecordRecommendation("validation_failed", time.Since(start), 0)
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	result, err := h.engine.Recommend(r.Context(), req.ToEventRequest())
	if err != nil {
		h.writeRecommendError(rw, r, err, start)
		return
	}

	result.Metadata.RequestID = logging.RequestIDFromContext(r.Context())

	outcome := "success"
	if result.Metadata.CacheHit {
		outcome = "cache_hit"
	}
	metrics.RecordRecommendation(outcome, time.Since(start), result.Metadata.CandidateCount)

	rw.Success(result)
}

func (h *Handler) writeRecommendError(rw *ResponseWriter, r *http.Request, err error, start time.Time) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		metrics.RecordRecommendation("validation_failed", time.Since(start), 0)
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, verr.Error(),
			map[string]interface{}{"field": verr.Field})
	case errors.Is(err, engine.ErrCollaboratorUnavailable):
		metrics.RecordRecommendation("unavailable", time.Since(start), 0)
		logging.Ctx(r.Context()).Warn().Err(err).Msg("recommendation failed, data view unavailable")
		rw.CollaboratorUnavailable("historical data is temporarily unavailable")
	default:
		metrics.RecordRecommendation("error", time.Since(start), 0)
		logging.Ctx(r.Context()).Error().Err(err).Msg("recommendation failed")
		rw.InternalError("recommendation failed")
	}
}

// GetEngineConfig handles GET /api/v1/recommendations/config.
func (h *Handler) GetEngineConfig(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.engine.Config())
}

// UpdateEngineConfig handles PUT /api/v1/recommendations/config.
// Omitted fields keep their current values.
func (h *Handler) UpdateEngineConfig(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	cfg := h.engine.Config()
	if err := decodeJSON(w, r, maxBodyBytes, cfg); err != nil {
		rw.BadRequest("request body is not valid JSON")
		return
	}

	if err := h.engine.SetConfig(cfg); err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}

	logging.Ctx(r.Context()).Info().Msg("engine configuration updated via API")
	rw.Success(h.engine.Config())
}

// RefreshHistory handles POST /api/v1/history/refresh. It publishes a
// dataset-changed event; the subscriber clears the engine cache.
func (h *Handler) RefreshHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := RefreshRequest{Reason: "manual_refresh"}
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			rw.BadRequest("request body is not valid JSON")
			return
		}
		if req.Reason == "" {
			req.Reason = "manual_refresh"
		}
	}

	if err := h.bus.PublishHistoryUpdated(r.Context(), refresh.Event{Reason: req.Reason}); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to publish refresh event")
		rw.InternalError("failed to publish refresh event")
		return
	}

	rw.Accepted(map[string]string{"status": "refresh scheduled", "reason": req.Reason})
}

// HistoryStats handles GET /api/v1/history/stats.
func (h *Handler) HistoryStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	stats, err := h.db.Stats(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to compute history stats")
		rw.CollaboratorUnavailable("historical data is temporarily unavailable")
		return
	}
	rw.Success(stats)
}

// UploadDocuments handles POST /api/v1/history/documents: extract a
// structured JSON document and store its records.
func (h *Handler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req DocumentUploadRequest
	if err := decodeJSON(w, r, maxDocumentBodyBytes, &req); err != nil {
		rw.BadRequest("request body is not valid JSON")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	records, err := h.extractor.Extract(r.Context(), extract.Document{
		Name:        req.Name,
		ContentType: "application/json",
		Content:     req.Content,
	})
	if err != nil {
		var extErr *extract.ExtractionError
		if errors.As(err, &extErr) {
			rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeExtractionFailed, extErr.Reason,
				map[string]interface{}{"document": extErr.Document})
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("document extraction failed")
		rw.InternalError("document extraction failed")
		return
	}

	var campaigns []engine.CampaignRecord
	var media []engine.MediaRecord
	var knowledge []engine.KnowledgeItem
	for _, rec := range records {
		switch rec.Kind {
		case extract.KindCampaign:
			campaigns = append(campaigns, *rec.Campaign)
		case extract.KindMedia:
			media = append(media, *rec.Media)
		case extract.KindKnowledge:
			knowledge = append(knowledge, *rec.Knowledge)
		}
	}

	ctx := r.Context()
	if err := h.db.InsertCampaignRecords(ctx, campaigns); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to store extracted campaigns")
		rw.CollaboratorUnavailable("failed to store extracted records")
		return
	}
	if err := h.db.InsertMediaRecords(ctx, media); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to store extracted media")
		rw.CollaboratorUnavailable("failed to store extracted records")
		return
	}
	if err := h.db.InsertKnowledgeItems(ctx, knowledge); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to store extracted knowledge")
		rw.CollaboratorUnavailable("failed to store extracted records")
		return
	}

	if err := h.bus.PublishHistoryUpdated(ctx, refresh.Event{
		Reason:      "document_upload",
		RecordCount: len(records),
	}); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("records stored but refresh event failed")
	}

	rw.Success(map[string]int{
		"campaigns": len(campaigns),
		"media":     len(media),
		"knowledge": len(knowledge),
	})
}

// HealthLive handles GET /healthz.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady handles GET /readyz. Ready means the database answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		rw.CollaboratorUnavailable("database not ready")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}
