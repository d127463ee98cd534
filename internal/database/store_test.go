// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mfujimot/funnelcast/internal/config"
	"github.com/mfujimot/funnelcast/internal/engine"
)

func testConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Path:               ":memory:",
		MaxMemory:          "512MB",
		Threads:            2,
		BreakerMaxFailures: 5,
		BreakerTimeout:     time.Second,
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() failed: %v", err)
		}
	})
	return db
}

func TestInsertAndQueryCampaigns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	records := []engine.CampaignRecord{
		{
			CampaignName: "spring email", Channel: "email",
			Category: engine.CategoryWebinar, Format: engine.FormatOnline,
			Industries: []string{"Fintech"}, JobTitles: []string{"Engineer"},
			DistributionCount: 1000, ClickCount: 50, ConversionCount: 10,
			Cost: 0, Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			CampaignName: "expo listing", Channel: "IndustryHub",
			Category: engine.CategoryExhibition, Format: engine.FormatOffline,
			Industries: []string{"Manufacturing"}, JobTitles: []string{"Plant Manager"},
			DistributionCount: 5000, ClickCount: 100, ConversionCount: 8,
			Cost: 300000, Date: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	if err := db.InsertCampaignRecords(ctx, records); err != nil {
		t.Fatalf("InsertCampaignRecords() failed: %v", err)
	}

	all, err := db.queryCampaigns(ctx, engine.Filter{})
	if err != nil {
		t.Fatalf("queryCampaigns() failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 campaigns, got %d", len(all))
	}
	// Ordered newest first.
	if all[0].CampaignName != "expo listing" {
		t.Errorf("expected newest campaign first, got %q", all[0].CampaignName)
	}
	if got := all[1].Industries; len(got) != 1 || got[0] != "Fintech" {
		t.Errorf("industries round trip failed: %v", got)
	}

	webinars, err := db.queryCampaigns(ctx, engine.Filter{Category: engine.CategoryWebinar})
	if err != nil {
		t.Fatalf("queryCampaigns(category) failed: %v", err)
	}
	if len(webinars) != 1 || webinars[0].Channel != "email" {
		t.Errorf("category filter returned %v", webinars)
	}

	byChannel, err := db.queryCampaigns(ctx, engine.Filter{Channel: "IndustryHub"})
	if err != nil {
		t.Fatalf("queryCampaigns(channel) failed: %v", err)
	}
	if len(byChannel) != 1 || byChannel[0].CampaignName != "expo listing" {
		t.Errorf("channel filter returned %v", byChannel)
	}
}

func TestQueryCampaignsAudienceOverlap(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	records := []engine.CampaignRecord{
		{CampaignName: "fintech run", Channel: "email", Industries: []string{"Fintech", "SaaS"}},
		{CampaignName: "retail run", Channel: "email", Industries: []string{"Retail"}},
		{CampaignName: "untargeted run", Channel: "email"},
	}
	if err := db.InsertCampaignRecords(ctx, records); err != nil {
		t.Fatalf("InsertCampaignRecords() failed: %v", err)
	}

	got, err := db.queryCampaigns(ctx, engine.Filter{Industries: []string{"fintech"}})
	if err != nil {
		t.Fatalf("queryCampaigns() failed: %v", err)
	}
	if len(got) != 1 || got[0].CampaignName != "fintech run" {
		t.Errorf("case-insensitive overlap filter returned %v", got)
	}

	// An empty filter set does not restrict.
	got, err = db.queryCampaigns(ctx, engine.Filter{})
	if err != nil {
		t.Fatalf("queryCampaigns() failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected all 3 records without audience filter, got %d", len(got))
	}
}

func TestInsertAndQueryMedia(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	records := []engine.MediaRecord{
		{MediaName: "Big Reach", MediaType: "newsletter", ReachableCount: 50000, Cost: 100000,
			Industries: []string{"SaaS"}},
		{MediaName: "Small Reach", MediaType: "community", ReachableCount: 2000, Cost: 10000,
			Industries: []string{"Healthcare"}},
	}
	if err := db.InsertMediaRecords(ctx, records); err != nil {
		t.Fatalf("InsertMediaRecords() failed: %v", err)
	}

	all, err := db.queryMedia(ctx, engine.Filter{})
	if err != nil {
		t.Fatalf("queryMedia() failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 media records, got %d", len(all))
	}
	if all[0].MediaName != "Big Reach" {
		t.Errorf("expected reach-descending order, got %q first", all[0].MediaName)
	}

	byName, err := db.queryMedia(ctx, engine.Filter{Channel: "Small Reach"})
	if err != nil {
		t.Fatalf("queryMedia(channel) failed: %v", err)
	}
	if len(byName) != 1 || byName[0].MediaType != "community" {
		t.Errorf("channel filter returned %v", byName)
	}

	saas, err := db.queryMedia(ctx, engine.Filter{Industries: []string{"SaaS"}})
	if err != nil {
		t.Fatalf("queryMedia(industries) failed: %v", err)
	}
	if len(saas) != 1 || saas[0].MediaName != "Big Reach" {
		t.Errorf("industry filter returned %v", saas)
	}
}

func TestInsertAndQueryKnowledge(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	items := []engine.KnowledgeItem{
		{
			Title: "mild note", Type: engine.KnowledgeGeneral,
			ImpactDegree: 1.5, Direction: engine.ImpactPositive, Confidence: 0.5,
		},
		{
			Title: "strong warning", Type: engine.KnowledgeAudience,
			ImpactDegree: 4.0, Direction: engine.ImpactNegative, Confidence: 0.8,
			Conditions: []engine.Condition{
				{Kind: engine.CondIndustryIn, Values: []string{"Retail"}},
				{Kind: engine.CondPaidOnly},
			},
		},
	}
	if err := db.InsertKnowledgeItems(ctx, items); err != nil {
		t.Fatalf("InsertKnowledgeItems() failed: %v", err)
	}

	got, err := db.queryKnowledge(ctx, engine.Filter{})
	if err != nil {
		t.Fatalf("queryKnowledge() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 knowledge items, got %d", len(got))
	}
	if got[0].Title != "strong warning" {
		t.Errorf("expected impact-descending order, got %q first", got[0].Title)
	}
	conds := got[0].Conditions
	if len(conds) != 2 || conds[0].Kind != engine.CondIndustryIn || conds[1].Kind != engine.CondPaidOnly {
		t.Errorf("conditions round trip failed: %+v", conds)
	}
	if len(conds) == 2 && (len(conds[0].Values) != 1 || conds[0].Values[0] != "Retail") {
		t.Errorf("condition values round trip failed: %+v", conds[0])
	}
}

func TestReplaceCampaignHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.InsertCampaignRecords(ctx, []engine.CampaignRecord{
		{CampaignName: "old one", Channel: "email"},
		{CampaignName: "old two", Channel: "web_ads"},
	}); err != nil {
		t.Fatalf("InsertCampaignRecords() failed: %v", err)
	}

	if err := db.ReplaceCampaignHistory(ctx, []engine.CampaignRecord{
		{CampaignName: "fresh", Channel: "email"},
	}); err != nil {
		t.Fatalf("ReplaceCampaignHistory() failed: %v", err)
	}

	got, err := db.queryCampaigns(ctx, engine.Filter{})
	if err != nil {
		t.Fatalf("queryCampaigns() failed: %v", err)
	}
	if len(got) != 1 || got[0].CampaignName != "fresh" {
		t.Errorf("expected only replacement data, got %v", got)
	}
}

func TestStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	stats, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() on empty database failed: %v", err)
	}
	if stats.CampaignCount != 0 || stats.LatestCampaign != nil {
		t.Errorf("empty stats = %+v", stats)
	}

	date1 := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	date2 := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	if err := db.InsertCampaignRecords(ctx, []engine.CampaignRecord{
		{CampaignName: "a", Channel: "email", ConversionCount: 10, Cost: 1000, Date: date1},
		{CampaignName: "b", Channel: "email", ConversionCount: 5, Cost: 500, Date: date2},
		{CampaignName: "c", Channel: "web_ads", ConversionCount: 3, Cost: 2000, Date: date2},
	}); err != nil {
		t.Fatalf("InsertCampaignRecords() failed: %v", err)
	}
	if err := db.InsertMediaRecords(ctx, []engine.MediaRecord{{MediaName: "m", MediaType: "newsletter"}}); err != nil {
		t.Fatalf("InsertMediaRecords() failed: %v", err)
	}

	stats, err = db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.CampaignCount != 3 {
		t.Errorf("CampaignCount = %d, want 3", stats.CampaignCount)
	}
	if stats.ChannelCount != 2 {
		t.Errorf("ChannelCount = %d, want 2", stats.ChannelCount)
	}
	if stats.TotalConversions != 18 {
		t.Errorf("TotalConversions = %d, want 18", stats.TotalConversions)
	}
	if stats.TotalHistorySpend != 3500 {
		t.Errorf("TotalHistorySpend = %f, want 3500", stats.TotalHistorySpend)
	}
	if stats.MediaCount != 1 {
		t.Errorf("MediaCount = %d, want 1", stats.MediaCount)
	}
	if stats.LatestCampaign == nil || !stats.LatestCampaign.Equal(date2) {
		t.Errorf("LatestCampaign = %v, want %v", stats.LatestCampaign, date2)
	}
	if stats.EarliestCampaign == nil || !stats.EarliestCampaign.Equal(date1) {
		t.Errorf("EarliestCampaign = %v, want %v", stats.EarliestCampaign, date1)
	}
	if stats.SnapshotVersion != 3 {
		t.Errorf("SnapshotVersion = %d, want 3 after two writes", stats.SnapshotVersion)
	}
}

func TestSeedSampleDataIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.SeedSampleData(ctx); err != nil {
		t.Fatalf("SeedSampleData() failed: %v", err)
	}
	stats, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.CampaignCount == 0 || stats.MediaCount == 0 || stats.KnowledgeCount == 0 {
		t.Fatalf("seed left tables empty: %+v", stats)
	}
	before := stats.CampaignCount

	if err := db.SeedSampleData(ctx); err != nil {
		t.Fatalf("second SeedSampleData() failed: %v", err)
	}
	stats, err = db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.CampaignCount != before {
		t.Errorf("seed is not idempotent: %d != %d", stats.CampaignCount, before)
	}
}

func TestStoreQueriesThroughBreaker(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.InsertCampaignRecords(ctx, []engine.CampaignRecord{
		{CampaignName: "one", Channel: "email"},
	}); err != nil {
		t.Fatalf("InsertCampaignRecords() failed: %v", err)
	}

	store := NewStore(db, testConfig())
	got, err := store.QueryCampaigns(ctx, engine.Filter{})
	if err != nil {
		t.Fatalf("QueryCampaigns() failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 record through the store, got %d", len(got))
	}
}

func TestStoreFailureMapsToUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.BreakerMaxFailures = 1

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	store := NewStore(db, cfg)

	// Closing the database makes every query fail.
	if err := db.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	ctx := context.Background()
	if _, err := store.QueryCampaigns(ctx, engine.Filter{}); !errors.Is(err, engine.ErrCollaboratorUnavailable) {
		t.Fatalf("expected ErrCollaboratorUnavailable, got %v", err)
	}

	// One failure trips the breaker; the next call is rejected without
	// touching the database and still maps to the same sentinel.
	if _, err := store.QueryMedia(ctx, engine.Filter{}); !errors.Is(err, engine.ErrCollaboratorUnavailable) {
		t.Fatalf("expected ErrCollaboratorUnavailable from open breaker, got %v", err)
	}
}
