// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package engine

import (
	"fmt"
	"math"
	"time"
)

// composer assembles the final portfolio: aggregate totals,
// goal-achievement probability, improvement suggestions, and
// alternative budget scenarios.
type composer struct {
	cfg   CompositionConfig
	alloc *allocator
}

func newComposer(cfg CompositionConfig, alloc *allocator) *composer {
	return &composer{cfg: cfg, alloc: alloc}
}

// Compose builds the PortfolioResult from the primary allocation.
// Scenarios re-run the allocator at the configured budget multipliers
// against the same candidate set without touching the primary result.
func (cp *composer) Compose(req *EventRequest, candidates []CandidateChannel, alloc allocation, now time.Time) *PortfolioResult {
	alloc = dedupeChannels(alloc)

	aggConf := aggregateConfidence(alloc.Selected)
	prob := cp.goalProbability(alloc.TotalConversions, req.TargetAttendees, aggConf)

	result := &PortfolioResult{
		Channels:         alloc.Selected,
		TotalReach:       alloc.TotalReach,
		TotalConversions: alloc.TotalConversions,
		TotalCost:        alloc.TotalCost,
		GoalProbability:  prob,
		Suggestions:      cp.suggestions(req, alloc, prob, now),
		Caveats:          alloc.Notes,
	}

	for _, m := range cp.cfg.ScenarioMultipliers {
		tier := cp.alloc.Allocate(candidates, req.Budget*m)
		tier = dedupeChannels(tier)
		result.Scenarios = append(result.Scenarios, Scenario{
			BudgetMultiplier: m,
			Budget:           req.Budget * m,
			TotalCost:        tier.TotalCost,
			TotalConversions: tier.TotalConversions,
			ChannelCount:     len(tier.Selected),
			GoalProbability:  cp.goalProbability(tier.TotalConversions, req.TargetAttendees, aggregateConfidence(tier.Selected)),
		})
	}

	return result
}

// goalProbability models aggregate conversions as a normal
// distribution around the predicted mean. Lower aggregate confidence
// widens the spread and scales the probability down, so a portfolio
// built on weak matches never scores as high as one built on strong
// history with the same mean.
func (cp *composer) goalProbability(mean float64, target int, aggConf float64) float64 {
	if target <= 0 {
		return 1
	}
	if mean <= 0 {
		return 0
	}
	spread := cp.cfg.BaseSpread + cp.cfg.ConfidenceSpread*(1-aggConf)
	sd := mean * spread
	p := 0.5 * math.Erfc((float64(target)-mean)/(sd*math.Sqrt2))
	mult := cp.cfg.ConfidenceAdjustment + (1-cp.cfg.ConfidenceAdjustment)*aggConf
	return clamp(p*mult, 0, 1)
}

// suggestions is a deterministic rule list; the same inputs always
// yield the same suggestions in the same order.
func (cp *composer) suggestions(req *EventRequest, alloc allocation, prob float64, now time.Time) []string {
	var out []string

	if prob < cp.cfg.LowProbabilityThreshold {
		out = append(out, "goal achievement probability is low; consider increasing the budget or broadening the target audience")
	}
	if req.TargetAttendees > 0 && alloc.TotalConversions > cp.cfg.OverAchievementRatio*float64(req.TargetAttendees) {
		out = append(out, "predicted conversions exceed the attendee target by a wide margin; confirm venue capacity before committing spend")
	}
	if req.Budget > 0 && alloc.TotalCost < cp.cfg.BudgetHeadroomRatio*req.Budget {
		out = append(out, "a significant share of the budget is left unallocated; consider adding channels or larger placements")
	}
	for i := range alloc.Selected {
		if alloc.Selected[i].Confidence < cp.cfg.PilotConfidenceThreshold {
			out = append(out, fmt.Sprintf("channel %q has low prediction confidence; validate it with a small pilot spend first", alloc.Selected[i].Channel))
		}
	}
	if req.Budget > 0 && countPaid(alloc.Selected) < cp.cfg.MinPaidChannels {
		out = append(out, fmt.Sprintf("fewer than %d paid channels selected; diversifying channels reduces dependence on a single audience", cp.cfg.MinPaidChannels))
	}
	if !req.EventDate.IsZero() {
		days := int(req.EventDate.Sub(now).Hours() / 24)
		if days < cp.cfg.MinLeadDays {
			out = append(out, "the event is less than two weeks out; lead time is too short for channels with long ramp-up")
		} else if days > cp.cfg.MaxLeadDays {
			out = append(out, "the event is more than three months out; plan a staged campaign to avoid early interest decaying")
		}
	}
	if len(req.TargetAudience.Industries) > cp.cfg.MaxIndustries {
		out = append(out, fmt.Sprintf("targeting more than %d industries dilutes messaging; consider splitting into focused campaigns", cp.cfg.MaxIndustries))
	}

	return out
}

// aggregateConfidence is the conversion-weighted mean confidence of
// the selected channels; an unweighted mean when predicted conversions
// are zero, and 0 for an empty selection.
func aggregateConfidence(selected []CandidateChannel) float64 {
	if len(selected) == 0 {
		return 0
	}
	var wSum, acc float64
	for i := range selected {
		w := selected[i].EstimatedConversions
		acc += w * selected[i].Confidence
		wSum += w
	}
	if wSum == 0 {
		for i := range selected {
			acc += selected[i].Confidence
		}
		return acc / float64(len(selected))
	}
	return acc / wSum
}

// dedupeChannels drops later duplicates of the same channel identity,
// keeping the higher-confidence entry and correcting the totals.
func dedupeChannels(alloc allocation) allocation {
	seen := make(map[string]int, len(alloc.Selected))
	kept := alloc.Selected[:0:0]
	for i := range alloc.Selected {
		c := alloc.Selected[i]
		key := normalizeTerm(c.Channel)
		if j, dup := seen[key]; dup {
			drop := c
			if c.Confidence > kept[j].Confidence {
				drop = kept[j]
				kept[j] = c
			}
			alloc.TotalCost -= drop.AllocatedSpend
			alloc.TotalReach -= drop.EstimatedReach
			alloc.TotalConversions -= drop.EstimatedConversions
			continue
		}
		seen[key] = len(kept)
		kept = append(kept, c)
	}
	alloc.Selected = kept
	return alloc
}

func countPaid(selected []CandidateChannel) int {
	n := 0
	for i := range selected {
		if selected[i].IsPaid {
			n++
		}
	}
	return n
}
