// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package engine

import (
	"math"
	"strings"
	"testing"
)

func TestPredictKeepsRatiosConsistent(t *testing.T) {
	matches := []scoredCampaign{
		{
			Record: CampaignRecord{
				Channel: "email", DistributionCount: 1000, ClickCount: 100,
				ConversionCount: 10, Industries: []string{"IT"}, JobTitles: []string{"engineer"},
			},
			Score: 1.0,
		},
		{
			Record: CampaignRecord{
				Channel: "email", DistributionCount: 2000, ClickCount: 100,
				ConversionCount: 20, Industries: []string{"IT"}, JobTitles: []string{"engineer"},
			},
			Score: 0.5,
		},
	}

	p := newPredictor(DefaultConfig().Prediction)
	candidates, _ := p.Predict(matches, nil, nil)

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	c := candidates[0]

	// CTR and CVR must be derived from the aggregated counts, so
	// reach * CTR * CVR reproduces the aggregate conversions.
	if !approxEqual(c.EstimatedReach*c.EstimatedCTR*c.EstimatedCVR, c.EstimatedConversions, 1e-6) {
		t.Errorf("ratio consistency violated: reach=%f ctr=%f cvr=%f conv=%f",
			c.EstimatedReach, c.EstimatedCTR, c.EstimatedCVR, c.EstimatedConversions)
	}

	// Weighted aggregates: weights 2/3 and 1/3.
	wantReach := 1000*2.0/3.0 + 2000*1.0/3.0
	if !approxEqual(c.EstimatedReach, wantReach, 1e-6) {
		t.Errorf("reach = %f, want %f", c.EstimatedReach, wantReach)
	}
	wantConv := 10*2.0/3.0 + 20*1.0/3.0
	if !approxEqual(c.EstimatedConversions, wantConv, 1e-6) {
		t.Errorf("conversions = %f, want %f", c.EstimatedConversions, wantConv)
	}
}

func TestPredictCPAUndefinedOnZeroConversions(t *testing.T) {
	matches := []scoredCampaign{
		{
			Record: CampaignRecord{
				Channel: "web_ads", DistributionCount: 1000, ClickCount: 50,
				ConversionCount: 0, Cost: 30000,
			},
			Score: 0.8,
		},
	}

	p := newPredictor(DefaultConfig().Prediction)
	candidates, _ := p.Predict(matches, nil, nil)

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].CPADefined {
		t.Error("CPA must be undefined when predicted conversions are zero")
	}
}

func TestPredictFallbackOnNoMatches(t *testing.T) {
	all := []CampaignRecord{
		{Channel: "email", DistributionCount: 5000, ClickCount: 100, ConversionCount: 50},
		{Channel: "email", DistributionCount: 3000, ClickCount: 60, ConversionCount: 30},
		{Channel: "web_ads", DistributionCount: 10000, ClickCount: 200, ConversionCount: 20, Cost: 50000},
	}

	cfg := DefaultConfig().Prediction
	p := newPredictor(cfg)
	candidates, caveats := p.Predict(nil, nil, all)

	if len(candidates) != 2 {
		t.Fatalf("expected one fallback candidate per channel, got %d", len(candidates))
	}
	for _, c := range candidates {
		if !c.Fallback {
			t.Errorf("channel %q should be marked as fallback", c.Channel)
		}
		if c.Confidence != cfg.MinConfidence {
			t.Errorf("fallback channel %q confidence = %f, want minimum tier %f",
				c.Channel, c.Confidence, cfg.MinConfidence)
		}
	}
	if len(caveats) == 0 || !strings.Contains(caveats[0], "fall back") {
		t.Errorf("fallback should be recorded as a caveat, got %v", caveats)
	}
}

func TestPredictExcludesChannelsWithoutAnyData(t *testing.T) {
	p := newPredictor(DefaultConfig().Prediction)
	candidates, _ := p.Predict(nil, nil, nil)
	if len(candidates) != 0 {
		t.Errorf("no data at all should yield no candidates, got %d", len(candidates))
	}
}

func TestPredictConfidenceBoundsAndVariance(t *testing.T) {
	stable := []scoredCampaign{
		{Record: CampaignRecord{Channel: "email", ConversionCount: 50, DistributionCount: 1000}, Score: 0.9},
		{Record: CampaignRecord{Channel: "email", ConversionCount: 50, DistributionCount: 1000}, Score: 0.9},
		{Record: CampaignRecord{Channel: "email", ConversionCount: 50, DistributionCount: 1000}, Score: 0.9},
	}
	noisy := []scoredCampaign{
		{Record: CampaignRecord{Channel: "email", ConversionCount: 5, DistributionCount: 1000}, Score: 0.9},
		{Record: CampaignRecord{Channel: "email", ConversionCount: 140, DistributionCount: 1000}, Score: 0.9},
		{Record: CampaignRecord{Channel: "email", ConversionCount: 8, DistributionCount: 1000}, Score: 0.9},
	}

	p := newPredictor(DefaultConfig().Prediction)
	stableCand, _ := p.Predict(stable, nil, nil)
	noisyCand, _ := p.Predict(noisy, nil, nil)

	for _, c := range append(stableCand, noisyCand...) {
		if math.IsNaN(c.Confidence) || c.Confidence < 0 || c.Confidence > 1 {
			t.Fatalf("confidence out of bounds: %f", c.Confidence)
		}
	}
	if noisyCand[0].Confidence >= stableCand[0].Confidence {
		t.Errorf("higher conversion variance should lower confidence: noisy=%f stable=%f",
			noisyCand[0].Confidence, stableCand[0].Confidence)
	}
}

func TestPredictMediaCandidateUsesGlobalRates(t *testing.T) {
	all := []CampaignRecord{
		{Channel: "email", DistributionCount: 1000, ClickCount: 20, ConversionCount: 1},
	}
	media := []scoredMedia{
		{
			Record: MediaRecord{
				MediaName: "DevWeekly", ReachableCount: 50000, Cost: 100000,
				Industries: []string{"IT"}, JobTitles: []string{"engineer"},
			},
			Score: 1.0,
		},
	}

	cfg := DefaultConfig().Prediction
	p := newPredictor(cfg)
	candidates, _ := p.Predict(nil, media, all)

	var found *CandidateChannel
	for i := range candidates {
		if candidates[i].Channel == "DevWeekly" {
			found = &candidates[i]
		}
	}
	if found == nil {
		t.Fatal("media candidate missing")
	}

	// Global CTR 0.02, CVR 0.05 from the aggregate counts.
	wantConv := 50000 * 0.02 * 0.05
	if !approxEqual(found.EstimatedConversions, wantConv, 1e-6) {
		t.Errorf("media conversions = %f, want %f", found.EstimatedConversions, wantConv)
	}
	if !approxEqual(found.Confidence, 1.0*cfg.MediaConfidenceScale, 1e-9) {
		t.Errorf("media confidence = %f, want %f", found.Confidence, cfg.MediaConfidenceScale)
	}
	if !found.IsPaid {
		t.Error("costed media placement should be a paid candidate")
	}
}
