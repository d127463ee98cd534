// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/mfujimot/funnelcast/internal/config"
	"github.com/mfujimot/funnelcast/internal/database"
	"github.com/mfujimot/funnelcast/internal/engine"
	"github.com/mfujimot/funnelcast/internal/extract"
	"github.com/mfujimot/funnelcast/internal/refresh"
)

type testServer struct {
	router http.Handler
	db     *database.DB
	engine *engine.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dbCfg := &config.DatabaseConfig{
		Path:               ":memory:",
		MaxMemory:          "512MB",
		Threads:            2,
		BreakerMaxFailures: 5,
		BreakerTimeout:     time.Second,
	}
	db, err := database.New(dbCfg)
	if err != nil {
		t.Fatalf("database.New() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.SeedSampleData(context.Background()); err != nil {
		t.Fatalf("SeedSampleData() failed: %v", err)
	}

	store := database.NewStore(db, dbCfg)
	eng, err := engine.New(store, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("engine.New() failed: %v", err)
	}

	bus := refresh.NewBus(&config.RefreshConfig{BufferSize: 16}, nil)
	t.Cleanup(func() { _ = bus.Close() })

	handler := NewHandler(eng, db, bus, extract.NewJSONExtractor())
	router := NewRouter(handler, &config.ServerConfig{
		CORSOrigins:       []string{"*"},
		RateLimitDisabled: true,
	})

	return &testServer{router: router.Routes(), db: db, engine: eng}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not a valid envelope: %v\nbody: %s", err, rec.Body.String())
	}
	return resp
}

const validRecommendBody = `{
	"event_name": "Cloud Native Meetup",
	"event_category": "seminar",
	"event_theme": "machine learning in production",
	"event_format": "offline",
	"target_audience": {
		"industries": ["SaaS"],
		"job_titles": ["ML Engineer"],
		"company_sizes": ["1-50"]
	},
	"target_attendees": 50,
	"budget": 200000,
	"event_date": "2026-11-01T00:00:00Z",
	"is_free_event": true
}`

func TestRecommendEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/recommendations", validRecommendBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec)
	if !resp.Success || resp.Error != nil {
		t.Fatalf("envelope = %+v, want success", resp)
	}

	data, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var result engine.PortfolioResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("data is not a portfolio result: %v", err)
	}
	if len(result.Channels) == 0 {
		t.Error("expected at least one recommended channel against seeded data")
	}
	if result.TotalCost > 200000 {
		t.Errorf("TotalCost = %f exceeds budget", result.TotalCost)
	}
	if result.GoalProbability < 0 || result.GoalProbability > 1 {
		t.Errorf("GoalProbability = %f out of range", result.GoalProbability)
	}
}

func TestRecommendValidationFailure(t *testing.T) {
	s := newTestServer(t)

	body := strings.Replace(validRecommendBody, `"seminar"`, `"gala"`, 1)
	rec := s.do(t, http.MethodPost, "/api/v1/recommendations", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
		t.Errorf("error = %+v, want %s", resp.Error, ErrCodeValidationFailed)
	}
}

func TestRecommendMalformedJSON(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/recommendations", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

type failingView struct{}

func (failingView) QueryCampaigns(context.Context, engine.Filter) ([]engine.CampaignRecord, error) {
	return nil, engine.ErrCollaboratorUnavailable
}

func (failingView) QueryMedia(context.Context, engine.Filter) ([]engine.MediaRecord, error) {
	return nil, engine.ErrCollaboratorUnavailable
}

func (failingView) QueryKnowledge(context.Context, engine.Filter) ([]engine.KnowledgeItem, error) {
	return nil, engine.ErrCollaboratorUnavailable
}

func TestRecommendUnavailableDataView(t *testing.T) {
	s := newTestServer(t)

	eng, err := engine.New(failingView{}, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("engine.New() failed: %v", err)
	}
	bus := refresh.NewBus(&config.RefreshConfig{BufferSize: 1}, nil)
	t.Cleanup(func() { _ = bus.Close() })

	handler := NewHandler(eng, s.db, bus, extract.NewJSONExtractor())
	router := NewRouter(handler, &config.ServerConfig{RateLimitDisabled: true}).Routes()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations",
		strings.NewReader(validRecommendBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeCollaboratorUnavailable {
		t.Errorf("error = %+v, want %s", resp.Error, ErrCodeCollaboratorUnavailable)
	}
}

func TestEngineConfigRoundTrip(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/recommendations/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET config status = %d", rec.Code)
	}

	rec = s.do(t, http.MethodPut, "/api/v1/recommendations/config",
		`{"prediction": {"top_n": 5}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT config status = %d, body: %s", rec.Code, rec.Body.String())
	}

	if got := s.engine.Config().Prediction.TopN; got != 5 {
		t.Errorf("TopN after update = %d, want 5", got)
	}
	// Untouched fields keep their values.
	if got := s.engine.Config().Allocation.OverlapDiscount; got == 0 {
		t.Error("partial update wiped an unrelated field")
	}
}

func TestEngineConfigRejectsInvalid(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/v1/recommendations/config",
		`{"similarity": {"min_score": 7.0}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body: %s", rec.Code, rec.Body.String())
	}
}

func TestHistoryStatsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/history/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)

	data, _ := json.Marshal(resp.Data)
	var stats database.HistoryStats
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("data is not history stats: %v", err)
	}
	if stats.CampaignCount == 0 || stats.MediaCount == 0 {
		t.Errorf("stats = %+v, want seeded counts", stats)
	}
	if stats.SnapshotVersion < 1 {
		t.Errorf("SnapshotVersion = %d, want at least 1", stats.SnapshotVersion)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/history/refresh", `{"reason": "nightly_load"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body: %s", rec.Code, rec.Body.String())
	}

	// Empty body uses the default reason.
	rec = s.do(t, http.MethodPost, "/api/v1/history/refresh", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status without body = %d, want 202", rec.Code)
	}
}

func TestUploadDocuments(t *testing.T) {
	s := newTestServer(t)

	before, err := s.db.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}

	body := `{
		"name": "q3-results.json",
		"content": [
			{"kind": "campaign", "campaign": {
				"campaign_name": "q3 email push",
				"channel": "email",
				"distribution_count": 5000,
				"click_count": 200,
				"conversion_count": 40
			}},
			{"kind": "knowledge", "knowledge": {
				"title": "q3 note",
				"type": "general",
				"direction": "positive",
				"impact_degree": 1.0,
				"confidence": 0.5
			}}
		]
	}`
	rec := s.do(t, http.MethodPost, "/api/v1/history/documents", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	after, err := s.db.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if after.CampaignCount != before.CampaignCount+1 {
		t.Errorf("CampaignCount = %d, want %d", after.CampaignCount, before.CampaignCount+1)
	}
	if after.KnowledgeCount != before.KnowledgeCount+1 {
		t.Errorf("KnowledgeCount = %d, want %d", after.KnowledgeCount, before.KnowledgeCount+1)
	}
}

func TestUploadDocumentsExtractionFailure(t *testing.T) {
	s := newTestServer(t)

	body := `{"name": "bad.json", "content": [{"kind": "invoice"}]}`
	rec := s.do(t, http.MethodPost, "/api/v1/history/documents", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body: %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeExtractionFailed {
		t.Errorf("error = %+v, want %s", resp.Error, ErrCodeExtractionFailed)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rec.Code)
	}
}

func TestNotFoundEnvelope(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/nothing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v, want %s", resp.Error, ErrCodeNotFound)
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing from response")
	}
}
