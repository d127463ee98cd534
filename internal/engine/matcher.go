// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package engine

import (
	"sort"
	"strings"
	"unicode"
)

// scoredCampaign pairs a historical campaign with its similarity to
// the request.
type scoredCampaign struct {
	Record CampaignRecord
	Score  float64
}

// scoredMedia pairs a media record with its similarity to the request.
type scoredMedia struct {
	Record MediaRecord
	Score  float64
}

// matcher scores historical records against a request's attributes
// using a weighted overlap across a fixed set of dimensions.
type matcher struct {
	weights  SimilarityWeights
	minScore float64
}

// newMatcher normalizes the configured weights once so scores land in
// [0, 1] regardless of the raw weight magnitudes.
func newMatcher(cfg SimilarityConfig) *matcher {
	return &matcher{
		weights:  cfg.Weights.Normalize(),
		minScore: cfg.MinScore,
	}
}

// MatchCampaigns scores every campaign record against the request and
// returns the records that clear the minimum score, ranked by score.
// Ties are broken by higher conversion volume, then by more recent
// date: records with more conversions carry more reliable statistics.
func (m *matcher) MatchCampaigns(req *EventRequest, records []CampaignRecord) []scoredCampaign {
	matched := make([]scoredCampaign, 0, len(records))
	for i := range records {
		score := m.scoreCampaign(req, &records[i])
		if score < m.minScore || score == 0 {
			continue
		}
		matched = append(matched, scoredCampaign{Record: records[i], Score: score})
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Score != matched[j].Score {
			return matched[i].Score > matched[j].Score
		}
		if matched[i].Record.ConversionCount != matched[j].Record.ConversionCount {
			return matched[i].Record.ConversionCount > matched[j].Record.ConversionCount
		}
		return matched[i].Record.Date.After(matched[j].Record.Date)
	})
	return matched
}

// MatchMedia scores every media record against the request. Media
// records carry only audience sets, so the format and theme dimensions
// are excluded and the set weights renormalized among themselves.
func (m *matcher) MatchMedia(req *EventRequest, records []MediaRecord) []scoredMedia {
	setSum := m.weights.Industry + m.weights.JobTitle + m.weights.CompanySize
	if setSum == 0 {
		return nil
	}
	matched := make([]scoredMedia, 0, len(records))
	for i := range records {
		r := &records[i]
		score := (m.weights.Industry*jaccard(req.TargetAudience.Industries, r.Industries) +
			m.weights.JobTitle*jaccard(req.TargetAudience.JobTitles, r.JobTitles) +
			m.weights.CompanySize*jaccard(req.TargetAudience.CompanySizes, r.CompanySizes)) / setSum
		if score < m.minScore || score == 0 {
			continue
		}
		matched = append(matched, scoredMedia{Record: records[i], Score: score})
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Score != matched[j].Score {
			return matched[i].Score > matched[j].Score
		}
		return matched[i].Record.ReachableCount > matched[j].Record.ReachableCount
	})
	return matched
}

func (m *matcher) scoreCampaign(req *EventRequest, r *CampaignRecord) float64 {
	score := m.weights.Industry * jaccard(req.TargetAudience.Industries, r.Industries)
	score += m.weights.JobTitle * jaccard(req.TargetAudience.JobTitles, r.JobTitles)
	score += m.weights.CompanySize * jaccard(req.TargetAudience.CompanySizes, r.CompanySizes)
	if req.EventFormat == r.Format {
		score += m.weights.Format
	}
	score += m.weights.Theme * tokenOverlap(
		req.EventTheme+" "+string(req.EventCategory),
		r.Theme+" "+string(r.Category),
	)
	return score
}

// jaccard computes set overlap as |A ∩ B| / |A ∪ B|. Two empty sets
// are identical and score 1.0; one empty set scores 0.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[normalizeTerm(v)] = struct{}{}
	}
	union := len(set)
	inter := 0
	seen := make(map[string]struct{}, len(b))
	for _, v := range b {
		key := normalizeTerm(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := set[key]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}

// tokenOverlap computes Jaccard overlap over lowercased word tokens.
// Identical texts score 1.0; disjoint texts score 0.
func tokenOverlap(a, b string) float64 {
	return jaccard(tokenize(a), tokenize(b))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
