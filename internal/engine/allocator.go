// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package engine

import (
	"sort"
)

// allocation is the allocator's output before portfolio assembly.
type allocation struct {
	// Selected holds the chosen channels with spend allocated, paid
	// channels first in pick order, then free channels.
	Selected []CandidateChannel

	// TotalCost is the committed spend. Never exceeds the budget.
	TotalCost float64

	// TotalReach is the aggregate predicted reach.
	TotalReach float64

	// TotalConversions is the aggregate predicted conversions after
	// overlap discounting and partial-spend scaling.
	TotalConversions float64

	// Notes records allocation caveats (infeasible paid selection).
	Notes []string
}

// pick is a paid channel chosen by the allocator. Ratio is 1 for a
// full unit and the spend fraction for a partial allocation.
type pick struct {
	idx   int
	ratio float64
}

// allocator selects channels under a budget ceiling to maximize
// expected conversions. Free channels above the confidence floor are
// always included; paid channels go through an exact subset search
// when few enough, otherwise an adaptive greedy pass.
type allocator struct {
	cfg AllocationConfig
}

func newAllocator(cfg AllocationConfig) *allocator {
	return &allocator{cfg: cfg}
}

// Allocate selects a subset of candidates whose total spend fits the
// budget. The maximized objective is predicted conversions after the
// saturation discount on channels targeting overlapping audiences, the
// same quantity the portfolio reports as its total; confidence orders
// candidates, gates free channels, and breaks ties, but never enters
// the objective itself.
func (al *allocator) Allocate(candidates []CandidateChannel, budget float64) allocation {
	var free, paid []CandidateChannel
	for i := range candidates {
		c := cloneCandidate(&candidates[i])
		if !c.IsPaid || c.UnitCost == 0 {
			if c.Confidence >= al.cfg.FreeConfidenceFloor {
				free = append(free, c)
			}
			continue
		}
		paid = append(paid, c)
	}

	sort.SliceStable(free, func(i, j int) bool {
		vi, vj := free[i].EstimatedConversions*free[i].Confidence, free[j].EstimatedConversions*free[j].Confidence
		if vi != vj {
			return vi > vj
		}
		return free[i].Channel < free[j].Channel
	})
	sort.SliceStable(paid, func(i, j int) bool {
		ei := paid[i].EstimatedConversions * paid[i].Confidence / paid[i].UnitCost
		ej := paid[j].EstimatedConversions * paid[j].Confidence / paid[j].UnitCost
		if ei != ej {
			return ei > ej
		}
		if paid[i].Confidence != paid[j].Confidence {
			return paid[i].Confidence > paid[j].Confidence
		}
		if paid[i].UnitCost != paid[j].UnitCost {
			return paid[i].UnitCost < paid[j].UnitCost
		}
		return paid[i].Channel < paid[j].Channel
	})

	ov := overlapMatrix(free, paid)

	var picks []pick
	if len(paid) <= al.cfg.ExhaustiveLimit {
		picks = al.exhaustive(free, paid, ov, budget)
	} else {
		picks = al.greedy(free, paid, ov, budget)
	}

	result := al.finalize(free, paid, ov, picks)
	if len(result.Selected) == 0 && budget >= 0 {
		result.Notes = append(result.Notes,
			"budget cannot fund any paid channel and no free channel meets the confidence floor")
	} else if len(picks) == 0 && len(paid) > 0 && budget > 0 {
		result.Notes = append(result.Notes, "budget is too small for any paid channel")
	}
	return result
}

// exhaustive searches every paid subset that fits the budget,
// valuing each subset with overlap discounts plus the best partial
// top-up of the leftover budget. The value of a subset is the exact
// conversion total finalize would report for it, and the feasible set
// only grows with budget, which keeps total predicted conversions
// monotone in budget.
func (al *allocator) exhaustive(free, paid []CandidateChannel, ov [][]bool, budget float64) []pick {
	n := len(paid)
	if n == 0 {
		return nil
	}

	values := make([]float64, n)
	costs := make([]float64, n)
	for i := range paid {
		values[i] = paid[i].EstimatedConversions
		costs[i] = paid[i].UnitCost
	}
	freeValue := al.freeBaseValue(free, ov)

	bestValue := freeValue
	bestCost := 0.0
	bestMask := 0
	bestTop := -1
	bestRatio := 0.0
	found := false

	chosen := make([]int, 0, n)
	for mask := 0; mask < 1<<n; mask++ {
		cost := 0.0
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				cost += costs[i]
			}
		}
		if cost > budget {
			continue
		}

		chosen = chosen[:0]
		value := freeValue
		for i := 0; i < n; i++ {
			if mask&(1<<i) == 0 {
				continue
			}
			k := al.overlapCount(i, free, chosen, ov)
			value += values[i] * al.discountPow(k)
			chosen = append(chosen, i)
		}

		topIdx, topRatio, topValue := al.bestTopUp(paid, values, costs, free, chosen, ov, mask, budget-cost)
		value += topValue

		if !found || value > bestValue+1e-12 ||
			(value > bestValue-1e-12 && cost < bestCost) {
			found = true
			bestValue = value
			bestCost = cost
			bestMask = mask
			bestTop = topIdx
			bestRatio = topRatio
		}
	}

	var picks []pick
	for i := 0; i < n; i++ {
		if bestMask&(1<<i) != 0 {
			picks = append(picks, pick{idx: i, ratio: 1})
		}
	}
	if bestTop >= 0 {
		picks = append(picks, pick{idx: bestTop, ratio: bestRatio})
	}
	return picks
}

// greedy repeatedly adds the affordable paid channel with the best
// discounted marginal value per currency unit, then tops up leftover
// budget with a partial allocation if a divisible channel permits.
// The unit plan competes against a pure partial allocation of the
// whole budget: a cheap full unit must never displace a larger
// fraction of a stronger divisible channel that a smaller budget was
// already funding.
func (al *allocator) greedy(free, paid []CandidateChannel, ov [][]bool, budget float64) []pick {
	n := len(paid)
	values := make([]float64, n)
	costs := make([]float64, n)
	for i := range paid {
		values[i] = paid[i].EstimatedConversions
		costs[i] = paid[i].UnitCost
	}

	remaining := budget
	taken := make([]bool, n)
	chosen := make([]int, 0, n)
	var picks []pick
	for {
		best := -1
		bestEff := 0.0
		for i := 0; i < n; i++ {
			if taken[i] || costs[i] > remaining {
				continue
			}
			k := al.overlapCount(i, free, chosen, ov)
			eff := values[i] * al.discountPow(k) / costs[i]
			if best == -1 || eff > bestEff {
				best = i
				bestEff = eff
			}
		}
		if best == -1 {
			break
		}
		taken[best] = true
		chosen = append(chosen, best)
		remaining -= costs[best]
		picks = append(picks, pick{idx: best, ratio: 1})
	}

	mask := 0
	for i, t := range taken {
		if t {
			mask |= 1 << i
		}
	}
	if topIdx, topRatio, _ := al.bestTopUp(paid, values, costs, free, chosen, ov, mask, remaining); topIdx >= 0 {
		picks = append(picks, pick{idx: topIdx, ratio: topRatio})
	}

	if topIdx, topRatio, _ := al.bestTopUp(paid, values, costs, free, nil, ov, 0, budget); topIdx >= 0 {
		alt := []pick{{idx: topIdx, ratio: topRatio}}
		if al.planValue(free, paid, ov, alt) > al.planValue(free, paid, ov, picks) {
			return alt
		}
	}
	return picks
}

// planValue evaluates a pick plan with the same discount order
// finalize applies, so plan comparison and the reported totals agree.
func (al *allocator) planValue(free, paid []CandidateChannel, ov [][]bool, picks []pick) float64 {
	value := al.freeBaseValue(free, ov)
	chosen := make([]int, 0, len(picks))
	for _, p := range picks {
		k := al.overlapCount(p.idx, free, chosen, ov)
		value += paid[p.idx].EstimatedConversions * al.discountPow(k) * p.ratio
		chosen = append(chosen, p.idx)
	}
	return value
}

// bestTopUp finds the unselected divisible channel whose partial
// allocation of the leftover budget adds the most discounted value.
// Returns -1 when no channel clears the minimum partial ratio.
func (al *allocator) bestTopUp(paid []CandidateChannel, values, costs []float64,
	free []CandidateChannel, chosen []int, ov [][]bool, mask int, remaining float64,
) (int, float64, float64) {
	if remaining <= 0 || al.cfg.MinPartialRatio <= 0 {
		return -1, 0, 0
	}
	bestIdx := -1
	bestRatio := 0.0
	bestValue := 0.0
	for i := range paid {
		if mask&(1<<i) != 0 || !paid[i].Divisible || costs[i] <= 0 {
			continue
		}
		ratio := remaining / costs[i]
		if ratio >= 1 {
			// A full unit fits; the subset search or greedy loop
			// already had its chance to take it whole.
			continue
		}
		if ratio < al.cfg.MinPartialRatio {
			continue
		}
		k := al.overlapCount(i, free, chosen, ov)
		v := values[i] * al.discountPow(k) * ratio
		if bestIdx == -1 || v > bestValue {
			bestIdx = i
			bestRatio = ratio
			bestValue = v
		}
	}
	return bestIdx, bestRatio, bestValue
}

// finalize materializes the selection: overlap discounts are applied
// in processing order (free first, then paid picks), partial picks
// scale reach, conversions and spend proportionally, and totals are
// accumulated. Output order is paid picks first, then free channels.
func (al *allocator) finalize(free, paid []CandidateChannel, ov [][]bool, picks []pick) allocation {
	entries := make([]CandidateChannel, 0, len(free)+len(picks))
	indices := make([]int, 0, len(free)+len(picks)) // overlap-matrix index per entry

	discountFor := func(matrixIdx int) float64 {
		k := 0
		for _, prev := range indices {
			if ov[matrixIdx][prev] {
				k++
			}
		}
		return al.discountPow(k)
	}

	var out allocation
	for i := range free {
		c := free[i]
		c.EstimatedConversions *= discountFor(i)
		c.AllocatedSpend = 0
		if c.EstimatedConversions > 0 && c.UnitCost > 0 {
			c.EstimatedCPA = c.UnitCost / c.EstimatedConversions
			c.CPADefined = true
		}
		entries = append(entries, c)
		indices = append(indices, i)
	}
	freeCount := len(entries)

	for _, p := range picks {
		c := paid[p.idx]
		matrixIdx := len(free) + p.idx
		c.EstimatedConversions *= discountFor(matrixIdx) * p.ratio
		c.EstimatedReach *= p.ratio
		c.AllocatedSpend = c.UnitCost * p.ratio
		if c.EstimatedConversions > 0 {
			c.EstimatedCPA = c.AllocatedSpend / c.EstimatedConversions
			c.CPADefined = true
		} else {
			c.EstimatedCPA = 0
			c.CPADefined = false
		}
		entries = append(entries, c)
		indices = append(indices, matrixIdx)
	}

	// Paid picks lead the portfolio; free channels follow.
	out.Selected = append(out.Selected, entries[freeCount:]...)
	out.Selected = append(out.Selected, entries[:freeCount]...)
	for i := range out.Selected {
		out.TotalCost += out.Selected[i].AllocatedSpend
		out.TotalReach += out.Selected[i].EstimatedReach
		out.TotalConversions += out.Selected[i].EstimatedConversions
	}
	return out
}

// freeBaseValue is the discounted conversion value of the
// always-included free channels, the constant term of every subset
// evaluation.
func (al *allocator) freeBaseValue(free []CandidateChannel, ov [][]bool) float64 {
	value := 0.0
	for i := range free {
		k := 0
		for j := 0; j < i; j++ {
			if ov[i][j] {
				k++
			}
		}
		value += free[i].EstimatedConversions * al.discountPow(k)
	}
	return value
}

// overlapCount counts already-selected channels (all free plus the
// chosen paid ones) whose audience overlaps paid channel i.
func (al *allocator) overlapCount(i int, free []CandidateChannel, chosen []int, ov [][]bool) int {
	row := ov[len(free)+i]
	k := 0
	for j := range free {
		if row[j] {
			k++
		}
	}
	for _, c := range chosen {
		if row[len(free)+c] {
			k++
		}
	}
	return k
}

func (al *allocator) discountPow(k int) float64 {
	d := 1.0
	for ; k > 0; k-- {
		d *= al.cfg.OverlapDiscount
	}
	return d
}

// overlapMatrix precomputes pairwise audience overlap across all
// candidates, free channels first. Two channels overlap when they
// share at least one industry and at least one job title.
func overlapMatrix(free, paid []CandidateChannel) [][]bool {
	all := make([]*CandidateChannel, 0, len(free)+len(paid))
	for i := range free {
		all = append(all, &free[i])
	}
	for i := range paid {
		all = append(all, &paid[i])
	}
	ov := make([][]bool, len(all))
	for i := range all {
		ov[i] = make([]bool, len(all))
	}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if audienceOverlaps(all[i], all[j]) {
				ov[i][j] = true
				ov[j][i] = true
			}
		}
	}
	return ov
}

func audienceOverlaps(a, b *CandidateChannel) bool {
	return sharesAny(a.Industries, b.Industries) && sharesAny(a.JobTitles, b.JobTitles)
}

func sharesAny(a, b []string) bool {
	for _, v := range a {
		if containsTerm(b, v) {
			return true
		}
	}
	return false
}

func cloneCandidate(c *CandidateChannel) CandidateChannel {
	clone := *c
	clone.Risks = append([]RiskAnnotation(nil), c.Risks...)
	clone.Industries = append([]string(nil), c.Industries...)
	clone.JobTitles = append([]string(nil), c.JobTitles...)
	clone.CompanySizes = append([]string(nil), c.CompanySizes...)
	return clone
}
