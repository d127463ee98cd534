// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package engine

// assessor applies knowledge-base rules to candidate channels,
// adjusting confidence multiplicatively and attaching risk
// annotations for adverse items.
type assessor struct {
	cfg RiskConfig
}

func newAssessor(cfg RiskConfig) *assessor {
	return &assessor{cfg: cfg}
}

// Assess adjusts every candidate in place. Each applicable knowledge
// item contributes a factor 1 ± (degree/5)·confidence; factors
// multiply and the product is clamped to the configured floor and
// ceiling so a single strong item cannot run away with the score.
func (a *assessor) Assess(req *EventRequest, candidates []CandidateChannel, items []KnowledgeItem) {
	for i := range candidates {
		a.assessOne(req, &candidates[i], items)
	}
}

func (a *assessor) assessOne(req *EventRequest, cand *CandidateChannel, items []KnowledgeItem) {
	factor := 1.0
	for k := range items {
		item := &items[k]
		if !itemApplies(item, req, cand) {
			continue
		}
		strength := clamp(item.ImpactDegree, 0, 5) / 5 * clamp(item.Confidence, 0, 1)
		if item.Direction == ImpactNegative {
			factor *= 1 - strength
			cand.Risks = append(cand.Risks, RiskAnnotation{
				Source:   item.Title,
				Message:  item.Content,
				Severity: a.severity(item.ImpactDegree),
			})
		} else {
			factor *= 1 + strength
		}
	}
	factor = clamp(factor, a.cfg.FactorFloor, a.cfg.FactorCeiling)
	cand.Confidence = clamp(cand.Confidence*factor, 0, 1)
}

func (a *assessor) severity(degree float64) RiskSeverity {
	switch {
	case degree >= a.cfg.HighSeverityDegree:
		return SeverityHigh
	case degree >= a.cfg.MediumSeverityDegree:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// itemApplies evaluates the item's condition list as a conjunction.
// An item with no conditions applies to every channel.
func itemApplies(item *KnowledgeItem, req *EventRequest, cand *CandidateChannel) bool {
	for _, cond := range item.Conditions {
		if !condMatches(cond, req, cand) {
			return false
		}
	}
	return true
}

func condMatches(cond Condition, req *EventRequest, cand *CandidateChannel) bool {
	switch cond.Kind {
	case CondIndustryIn:
		return anyOverlap(cond.Values, req.TargetAudience.Industries)
	case CondJobTitleIn:
		return anyOverlap(cond.Values, req.TargetAudience.JobTitles)
	case CondCompanySizeIn:
		return anyOverlap(cond.Values, req.TargetAudience.CompanySizes)
	case CondCategoryIs:
		return containsTerm(cond.Values, string(req.EventCategory))
	case CondFormatIs:
		return containsTerm(cond.Values, string(req.EventFormat))
	case CondChannelIs:
		return containsTerm(cond.Values, cand.Channel)
	case CondPaidOnly:
		return cand.IsPaid
	case CondFreeOnly:
		return !cand.IsPaid
	default:
		// Unknown condition kinds never match, so a typo in the
		// knowledge base disables the item instead of widening it.
		return false
	}
}

func anyOverlap(values, attrs []string) bool {
	for _, v := range values {
		if containsTerm(attrs, v) {
			return true
		}
	}
	return false
}

func containsTerm(values []string, term string) bool {
	key := normalizeTerm(term)
	for _, v := range values {
		if normalizeTerm(v) == key {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
