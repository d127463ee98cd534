// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package engine

import (
	"fmt"
	"time"
)

// Config contains all tunables for the recommendation engine.
type Config struct {
	// Similarity contains matcher parameters.
	Similarity SimilarityConfig `json:"similarity" koanf:"similarity"`

	// Prediction contains predictor parameters.
	Prediction PredictionConfig `json:"prediction" koanf:"prediction"`

	// Risk contains knowledge-adjustment parameters.
	Risk RiskConfig `json:"risk" koanf:"risk"`

	// Allocation contains budget-allocation parameters.
	Allocation AllocationConfig `json:"allocation" koanf:"allocation"`

	// Composition contains portfolio-assembly parameters.
	Composition CompositionConfig `json:"composition" koanf:"composition"`

	// Cache contains result-cache parameters.
	Cache CacheConfig `json:"cache" koanf:"cache"`
}

// SimilarityWeights defines the relative contribution of each
// similarity dimension. Weights are normalized at runtime, so they
// don't need to sum to 1.0.
type SimilarityWeights struct {
	// Industry is the weight of industry-set overlap.
	Industry float64 `json:"industry" koanf:"industry"`

	// JobTitle is the weight of job-title-set overlap.
	JobTitle float64 `json:"job_title" koanf:"job_title"`

	// CompanySize is the weight of company-size-set overlap.
	CompanySize float64 `json:"company_size" koanf:"company_size"`

	// Format is the weight of exact format match.
	Format float64 `json:"format" koanf:"format"`

	// Theme is the weight of theme/category token overlap. Kept below
	// the categorical weights; free text is a weaker signal.
	Theme float64 `json:"theme" koanf:"theme"`
}

// Normalize returns a copy with weights scaled to sum to 1.0.
func (w SimilarityWeights) Normalize() SimilarityWeights {
	sum := w.Industry + w.JobTitle + w.CompanySize + w.Format + w.Theme
	if sum == 0 {
		const equalWeight = 1.0 / 5.0
		return SimilarityWeights{
			Industry: equalWeight, JobTitle: equalWeight, CompanySize: equalWeight,
			Format: equalWeight, Theme: equalWeight,
		}
	}
	return SimilarityWeights{
		Industry:    w.Industry / sum,
		JobTitle:    w.JobTitle / sum,
		CompanySize: w.CompanySize / sum,
		Format:      w.Format / sum,
		Theme:       w.Theme / sum,
	}
}

// SimilarityConfig contains matcher parameters.
type SimilarityConfig struct {
	// Weights defines the per-dimension contribution.
	Weights SimilarityWeights `json:"weights" koanf:"weights"`

	// MinScore is the similarity threshold below which a record is
	// excluded from downstream stages.
	// Default: 0.1.
	MinScore float64 `json:"min_score" koanf:"min_score"`
}

// PredictionConfig contains predictor parameters.
type PredictionConfig struct {
	// TopN is the maximum number of matched records aggregated per
	// channel.
	// Default: 10.
	TopN int `json:"top_n" koanf:"top_n"`

	// CountSaturation controls how fast match count raises confidence.
	// The count term is n / (n + CountSaturation), so confidence from
	// count saturates around a handful of records.
	// Default: 3.0.
	CountSaturation float64 `json:"count_saturation" koanf:"count_saturation"`

	// VariancePenalty scales how much dispersion of conversions across
	// matches lowers confidence.
	// Default: 0.5.
	VariancePenalty float64 `json:"variance_penalty" koanf:"variance_penalty"`

	// MinConfidence is the minimum confidence tier, assigned to
	// fallback estimates. Kept at the free-channel confidence floor so
	// fallback portfolios still recommend free channels.
	// Default: 0.3.
	MinConfidence float64 `json:"min_confidence" koanf:"min_confidence"`

	// MinMatches is the match count below which a data-insufficiency
	// caveat is recorded.
	// Default: 3.
	MinMatches int `json:"min_matches" koanf:"min_matches"`

	// MediaConfidenceScale discounts media-derived candidates, whose
	// confidence rests on audience compatibility alone.
	// Default: 0.6.
	MediaConfidenceScale float64 `json:"media_confidence_scale" koanf:"media_confidence_scale"`
}

// RiskConfig contains knowledge-adjustment parameters.
type RiskConfig struct {
	// FactorFloor is the lower clamp on the composed adjustment factor.
	// Default: 0.5.
	FactorFloor float64 `json:"factor_floor" koanf:"factor_floor"`

	// FactorCeiling is the upper clamp on the composed adjustment
	// factor.
	// Default: 1.5.
	FactorCeiling float64 `json:"factor_ceiling" koanf:"factor_ceiling"`

	// MediumSeverityDegree is the impact degree at which an adverse
	// item grades medium.
	// Default: 2.5.
	MediumSeverityDegree float64 `json:"medium_severity_degree" koanf:"medium_severity_degree"`

	// HighSeverityDegree is the impact degree at which an adverse item
	// grades high.
	// Default: 4.0.
	HighSeverityDegree float64 `json:"high_severity_degree" koanf:"high_severity_degree"`
}

// AllocationConfig contains budget-allocation parameters.
type AllocationConfig struct {
	// FreeConfidenceFloor is the minimum confidence for a free channel
	// to be selected.
	// Default: 0.3.
	FreeConfidenceFloor float64 `json:"free_confidence_floor" koanf:"free_confidence_floor"`

	// ExhaustiveLimit is the paid-candidate count up to which the
	// allocator searches all subsets exactly. Above it an adaptive
	// greedy pass is used.
	// Default: 16.
	ExhaustiveLimit int `json:"exhaustive_limit" koanf:"exhaustive_limit"`

	// OverlapDiscount is the multiplier applied to the marginal
	// conversions of each additional channel targeting an overlapping
	// audience.
	// Default: 0.85.
	OverlapDiscount float64 `json:"overlap_discount" koanf:"overlap_discount"`

	// MinPartialRatio is the smallest fraction of a divisible
	// channel's unit cost that may be allocated as partial spend.
	// Default: 0.1.
	MinPartialRatio float64 `json:"min_partial_ratio" koanf:"min_partial_ratio"`
}

// CompositionConfig contains portfolio-assembly parameters.
type CompositionConfig struct {
	// ScenarioMultipliers are the alternative budget tiers reported
	// alongside the primary result.
	// Default: 0.5, 1.5, 2.0.
	ScenarioMultipliers []float64 `json:"scenario_multipliers" koanf:"scenario_multipliers"`

	// BaseSpread is the relative standard deviation of predicted
	// conversions at full confidence. Lower aggregate confidence
	// widens the spread up to BaseSpread + ConfidenceSpread.
	// Default: 0.2.
	BaseSpread float64 `json:"base_spread" koanf:"base_spread"`

	// ConfidenceSpread is the additional relative spread at zero
	// aggregate confidence.
	// Default: 0.6.
	ConfidenceSpread float64 `json:"confidence_spread" koanf:"confidence_spread"`

	// ConfidenceAdjustment is the goal-probability multiplier at zero
	// aggregate confidence; full confidence leaves the probability
	// unchanged.
	// Default: 0.85.
	ConfidenceAdjustment float64 `json:"confidence_adjustment" koanf:"confidence_adjustment"`

	// LowProbabilityThreshold triggers the raise-budget suggestion.
	// Default: 0.5.
	LowProbabilityThreshold float64 `json:"low_probability_threshold" koanf:"low_probability_threshold"`

	// OverAchievementRatio triggers the venue-capacity suggestion when
	// predicted conversions exceed the target by this ratio.
	// Default: 1.3.
	OverAchievementRatio float64 `json:"over_achievement_ratio" koanf:"over_achievement_ratio"`

	// BudgetHeadroomRatio triggers the unused-budget suggestion when
	// allocated spend is below this fraction of the budget.
	// Default: 0.7.
	BudgetHeadroomRatio float64 `json:"budget_headroom_ratio" koanf:"budget_headroom_ratio"`

	// PilotConfidenceThreshold triggers the pilot-spend suggestion for
	// selected channels below this confidence.
	// Default: 0.4.
	PilotConfidenceThreshold float64 `json:"pilot_confidence_threshold" koanf:"pilot_confidence_threshold"`

	// MinPaidChannels triggers the diversification suggestion when
	// fewer paid channels are selected and budget permits more.
	// Default: 2.
	MinPaidChannels int `json:"min_paid_channels" koanf:"min_paid_channels"`

	// MinLeadDays triggers the short-lead-time suggestion.
	// Default: 14.
	MinLeadDays int `json:"min_lead_days" koanf:"min_lead_days"`

	// MaxLeadDays triggers the long-lead-time suggestion.
	// Default: 90.
	MaxLeadDays int `json:"max_lead_days" koanf:"max_lead_days"`

	// MaxIndustries triggers the unfocused-targeting suggestion.
	// Default: 5.
	MaxIndustries int `json:"max_industries" koanf:"max_industries"`
}

// CacheConfig contains result-cache parameters.
type CacheConfig struct {
	// Enabled controls whether result caching is active.
	// Default: true.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// TTL is the cache entry time-to-live.
	// Default: 5m.
	TTL time.Duration `json:"ttl" koanf:"ttl"`

	// MaxEntries is the maximum number of cached results.
	// Default: 1024.
	MaxEntries int `json:"max_entries" koanf:"max_entries"`
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() *Config {
	return &Config{
		Similarity: SimilarityConfig{
			Weights: SimilarityWeights{
				Industry:    0.30,
				JobTitle:    0.25,
				CompanySize: 0.15,
				Format:      0.10,
				Theme:       0.20,
			},
			MinScore: 0.1,
		},
		Prediction: PredictionConfig{
			TopN:                 10,
			CountSaturation:      3.0,
			VariancePenalty:      0.5,
			MinConfidence:        0.3,
			MinMatches:           3,
			MediaConfidenceScale: 0.6,
		},
		Risk: RiskConfig{
			FactorFloor:          0.5,
			FactorCeiling:        1.5,
			MediumSeverityDegree: 2.5,
			HighSeverityDegree:   4.0,
		},
		Allocation: AllocationConfig{
			FreeConfidenceFloor: 0.3,
			ExhaustiveLimit:     16,
			OverlapDiscount:     0.85,
			MinPartialRatio:     0.1,
		},
		Composition: CompositionConfig{
			ScenarioMultipliers:      []float64{0.5, 1.5, 2.0},
			BaseSpread:               0.2,
			ConfidenceSpread:         0.6,
			ConfidenceAdjustment:     0.85,
			LowProbabilityThreshold:  0.5,
			OverAchievementRatio:     1.3,
			BudgetHeadroomRatio:      0.7,
			PilotConfidenceThreshold: 0.4,
			MinPaidChannels:          2,
			MinLeadDays:              14,
			MaxLeadDays:              90,
			MaxIndustries:            5,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 1024,
		},
	}
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	w := c.Similarity.Weights
	if w.Industry < 0 || w.JobTitle < 0 || w.CompanySize < 0 || w.Format < 0 || w.Theme < 0 {
		return fmt.Errorf("similarity.weights must be non-negative, got %+v", w)
	}
	if c.Similarity.MinScore < 0 || c.Similarity.MinScore > 1 {
		return fmt.Errorf("similarity.min_score must be in [0, 1], got %f", c.Similarity.MinScore)
	}

	if c.Prediction.TopN < 1 {
		return fmt.Errorf("prediction.top_n must be positive, got %d", c.Prediction.TopN)
	}
	if c.Prediction.CountSaturation <= 0 {
		return fmt.Errorf("prediction.count_saturation must be positive, got %f", c.Prediction.CountSaturation)
	}
	if c.Prediction.VariancePenalty < 0 {
		return fmt.Errorf("prediction.variance_penalty must be non-negative, got %f", c.Prediction.VariancePenalty)
	}
	if c.Prediction.MinConfidence < 0 || c.Prediction.MinConfidence > 1 {
		return fmt.Errorf("prediction.min_confidence must be in [0, 1], got %f", c.Prediction.MinConfidence)
	}
	if c.Prediction.MediaConfidenceScale <= 0 || c.Prediction.MediaConfidenceScale > 1 {
		return fmt.Errorf("prediction.media_confidence_scale must be in (0, 1], got %f", c.Prediction.MediaConfidenceScale)
	}

	if c.Risk.FactorFloor <= 0 {
		return fmt.Errorf("risk.factor_floor must be positive, got %f", c.Risk.FactorFloor)
	}
	if c.Risk.FactorCeiling < c.Risk.FactorFloor {
		return fmt.Errorf("risk.factor_ceiling must be >= risk.factor_floor, got %f < %f",
			c.Risk.FactorCeiling, c.Risk.FactorFloor)
	}
	if c.Risk.HighSeverityDegree < c.Risk.MediumSeverityDegree {
		return fmt.Errorf("risk.high_severity_degree must be >= risk.medium_severity_degree, got %f < %f",
			c.Risk.HighSeverityDegree, c.Risk.MediumSeverityDegree)
	}

	if c.Allocation.FreeConfidenceFloor < 0 || c.Allocation.FreeConfidenceFloor > 1 {
		return fmt.Errorf("allocation.free_confidence_floor must be in [0, 1], got %f", c.Allocation.FreeConfidenceFloor)
	}
	if c.Allocation.ExhaustiveLimit < 0 || c.Allocation.ExhaustiveLimit > 24 {
		return fmt.Errorf("allocation.exhaustive_limit must be in [0, 24], got %d", c.Allocation.ExhaustiveLimit)
	}
	if c.Allocation.OverlapDiscount <= 0 || c.Allocation.OverlapDiscount > 1 {
		return fmt.Errorf("allocation.overlap_discount must be in (0, 1], got %f", c.Allocation.OverlapDiscount)
	}
	if c.Allocation.MinPartialRatio < 0 || c.Allocation.MinPartialRatio > 1 {
		return fmt.Errorf("allocation.min_partial_ratio must be in [0, 1], got %f", c.Allocation.MinPartialRatio)
	}

	for _, m := range c.Composition.ScenarioMultipliers {
		if m <= 0 {
			return fmt.Errorf("composition.scenario_multipliers must be positive, got %f", m)
		}
	}
	if c.Composition.BaseSpread <= 0 {
		return fmt.Errorf("composition.base_spread must be positive, got %f", c.Composition.BaseSpread)
	}
	if c.Composition.ConfidenceSpread < 0 {
		return fmt.Errorf("composition.confidence_spread must be non-negative, got %f", c.Composition.ConfidenceSpread)
	}
	if c.Composition.ConfidenceAdjustment <= 0 || c.Composition.ConfidenceAdjustment > 1 {
		return fmt.Errorf("composition.confidence_adjustment must be in (0, 1], got %f", c.Composition.ConfidenceAdjustment)
	}

	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive, got %v", c.Cache.TTL)
		}
		if c.Cache.MaxEntries < 1 {
			return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
		}
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := &Config{
		Similarity:  c.Similarity,
		Prediction:  c.Prediction,
		Risk:        c.Risk,
		Allocation:  c.Allocation,
		Composition: c.Composition,
		Cache:       c.Cache,
	}
	clone.Composition.ScenarioMultipliers = make([]float64, len(c.Composition.ScenarioMultipliers))
	copy(clone.Composition.ScenarioMultipliers, c.Composition.ScenarioMultipliers)
	return clone
}
