// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package engine

import (
	"testing"
)

func testCandidate(channel string, paid bool, confidence float64) CandidateChannel {
	return CandidateChannel{
		Channel:              channel,
		IsPaid:               paid,
		UnitCost:             50000,
		EstimatedConversions: 40,
		Confidence:           confidence,
		Industries:           []string{"it"},
		JobTitles:            []string{"engineer"},
	}
}

func TestAssessAdverseItemLowersConfidenceAndAnnotates(t *testing.T) {
	req := testRequest()
	candidates := []CandidateChannel{testCandidate("web_ads", true, 0.8)}
	items := []KnowledgeItem{
		{
			Title:        "display ads underperform for engineers",
			Content:      "banner campaigns targeting engineers convert poorly",
			Type:         KnowledgeCampaign,
			ImpactDegree: 4.5,
			Direction:    ImpactNegative,
			Confidence:   1.0,
			Conditions:   []Condition{{Kind: CondChannelIs, Values: []string{"web_ads"}}},
		},
	}

	a := newAssessor(DefaultConfig().Risk)
	a.Assess(req, candidates, items)

	// Factor 1 - 4.5/5 = 0.1, clamped up to the 0.5 floor.
	if !approxEqual(candidates[0].Confidence, 0.8*0.5, 1e-9) {
		t.Errorf("confidence = %f, want %f", candidates[0].Confidence, 0.8*0.5)
	}
	if len(candidates[0].Risks) != 1 {
		t.Fatalf("expected 1 risk annotation, got %d", len(candidates[0].Risks))
	}
	if candidates[0].Risks[0].Severity != SeverityHigh {
		t.Errorf("degree 4.5 should grade high severity, got %s", candidates[0].Risks[0].Severity)
	}
}

func TestAssessPositiveItemRaisesConfidenceWithoutAnnotation(t *testing.T) {
	req := testRequest()
	candidates := []CandidateChannel{testCandidate("email", false, 0.5)}
	items := []KnowledgeItem{
		{
			Title:        "email works well for IT audiences",
			Type:         KnowledgeAudience,
			ImpactDegree: 2.5,
			Direction:    ImpactPositive,
			Confidence:   0.8,
			Conditions:   []Condition{{Kind: CondIndustryIn, Values: []string{"IT"}}},
		},
	}

	a := newAssessor(DefaultConfig().Risk)
	a.Assess(req, candidates, items)

	// Factor 1 + 2.5/5 * 0.8 = 1.4.
	if !approxEqual(candidates[0].Confidence, 0.5*1.4, 1e-9) {
		t.Errorf("confidence = %f, want %f", candidates[0].Confidence, 0.5*1.4)
	}
	if len(candidates[0].Risks) != 0 {
		t.Errorf("positive items must not attach risk annotations, got %d", len(candidates[0].Risks))
	}
}

func TestAssessNonMatchingConditionsLeaveChannelUntouched(t *testing.T) {
	req := testRequest()
	candidates := []CandidateChannel{testCandidate("email", false, 0.5)}
	items := []KnowledgeItem{
		{
			Title:        "irrelevant rule",
			ImpactDegree: 5,
			Direction:    ImpactNegative,
			Confidence:   1,
			Conditions:   []Condition{{Kind: CondIndustryIn, Values: []string{"retail"}}},
		},
		{
			Title:        "paid-only rule on a free channel",
			ImpactDegree: 5,
			Direction:    ImpactNegative,
			Confidence:   1,
			Conditions:   []Condition{{Kind: CondPaidOnly}},
		},
		{
			Title:        "unknown condition kind never matches",
			ImpactDegree: 5,
			Direction:    ImpactNegative,
			Confidence:   1,
			Conditions:   []Condition{{Kind: ConditionKind("moon_phase")}},
		},
	}

	a := newAssessor(DefaultConfig().Risk)
	a.Assess(req, candidates, items)

	if candidates[0].Confidence != 0.5 {
		t.Errorf("confidence changed to %f despite no applicable item", candidates[0].Confidence)
	}
	if len(candidates[0].Risks) != 0 {
		t.Errorf("unexpected annotations: %v", candidates[0].Risks)
	}
}

func TestAssessFactorsComposeAndClampToCeiling(t *testing.T) {
	req := testRequest()
	candidates := []CandidateChannel{testCandidate("email", false, 0.4)}
	items := []KnowledgeItem{
		{Title: "a", ImpactDegree: 5, Direction: ImpactPositive, Confidence: 1},
		{Title: "b", ImpactDegree: 5, Direction: ImpactPositive, Confidence: 1},
	}

	a := newAssessor(DefaultConfig().Risk)
	a.Assess(req, candidates, items)

	// 2.0 * 2.0 = 4.0, clamped to the 1.5 ceiling.
	if !approxEqual(candidates[0].Confidence, 0.4*1.5, 1e-9) {
		t.Errorf("confidence = %f, want %f", candidates[0].Confidence, 0.4*1.5)
	}
}

func TestAssessResultStaysWithinUnitInterval(t *testing.T) {
	req := testRequest()
	candidates := []CandidateChannel{testCandidate("email", false, 0.9)}
	items := []KnowledgeItem{
		{Title: "boost", ImpactDegree: 5, Direction: ImpactPositive, Confidence: 1},
	}

	a := newAssessor(DefaultConfig().Risk)
	a.Assess(req, candidates, items)

	if candidates[0].Confidence > 1 {
		t.Errorf("confidence must stay within [0, 1], got %f", candidates[0].Confidence)
	}
}
