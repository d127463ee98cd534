// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package engine

import (
	"fmt"
	"math"
	"sort"
)

// Default response rates used for media placements when no campaign
// history exists to derive channel rates from.
const (
	defaultCTR = 0.02
	defaultCVR = 0.05
)

// predictor converts matched historical records into per-channel
// candidate estimates with confidence scores.
type predictor struct {
	cfg PredictionConfig
}

func newPredictor(cfg PredictionConfig) *predictor {
	return &predictor{cfg: cfg}
}

// Predict builds one CandidateChannel per distinct channel from the
// ranked matches, plus one per matched media record. When no campaign
// record matched at all, every channel present in the dataset falls
// back to its channel-wide average at the minimum confidence tier;
// channel types with no data are excluded entirely. The second return
// value lists data-insufficiency caveats.
func (p *predictor) Predict(matches []scoredCampaign, media []scoredMedia, all []CampaignRecord) ([]CandidateChannel, []string) {
	var candidates []CandidateChannel
	var caveats []string

	if len(matches) > 0 {
		candidates, caveats = p.fromMatches(matches)
	} else if len(all) > 0 {
		candidates, caveats = p.fromFallback(all)
	}

	gCTR, gCVR := globalRates(all)
	for _, sm := range media {
		candidates = append(candidates, p.fromMedia(sm, gCTR, gCVR))
	}

	return candidates, caveats
}

// fromMatches aggregates the top-N matches per channel with
// similarity-normalized weights. CTR and CVR are derived from the
// aggregated counts rather than averaged directly so the ratios stay
// consistent with each other.
func (p *predictor) fromMatches(matches []scoredCampaign) ([]CandidateChannel, []string) {
	byChannel := make(map[string][]scoredCampaign)
	for _, m := range matches {
		byChannel[m.Record.Channel] = append(byChannel[m.Record.Channel], m)
	}

	channels := make([]string, 0, len(byChannel))
	for ch := range byChannel {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	candidates := make([]CandidateChannel, 0, len(channels))
	var caveats []string
	for _, ch := range channels {
		group := byChannel[ch]
		if len(group) > p.cfg.TopN {
			group = group[:p.cfg.TopN]
		}
		cand := p.aggregate(ch, group)
		if len(group) < p.cfg.MinMatches {
			caveats = append(caveats, fmt.Sprintf(
				"only %d similar record(s) for channel %q; estimate may be unreliable", len(group), ch))
		}
		candidates = append(candidates, cand)
	}
	return candidates, caveats
}

func (p *predictor) aggregate(channel string, group []scoredCampaign) CandidateChannel {
	var wSum float64
	for _, m := range group {
		wSum += m.Score
	}

	var reach, clicks, conv, cost, simSum float64
	sig := newAudienceSignature()
	for _, m := range group {
		w := m.Score / wSum
		reach += w * float64(m.Record.DistributionCount)
		clicks += w * float64(m.Record.ClickCount)
		conv += w * float64(m.Record.ConversionCount)
		cost += w * m.Record.Cost
		simSum += m.Score
		sig.add(m.Record.Industries, m.Record.JobTitles, m.Record.CompanySizes)
	}
	meanSim := simSum / float64(len(group))

	cand := CandidateChannel{
		Channel:              channel,
		CampaignName:         channel + " campaign",
		IsPaid:               cost > 0,
		UnitCost:             cost,
		EstimatedReach:       reach,
		EstimatedConversions: conv,
		Confidence:           p.confidence(len(group), meanSim, conversionSpread(group)),
		Similarity:           meanSim,
		MatchCount:           len(group),
		Divisible:            cost > 0,
	}
	if reach > 0 {
		cand.EstimatedCTR = clicks / reach
	}
	if clicks > 0 {
		cand.EstimatedCVR = conv / clicks
	}
	if conv > 0 && cost > 0 {
		cand.EstimatedCPA = cost / conv
		cand.CPADefined = true
	}
	sig.fill(&cand)
	return cand
}

// fromFallback builds one candidate per distinct channel from
// channel-wide unweighted averages, marked at the minimum confidence
// tier.
func (p *predictor) fromFallback(all []CampaignRecord) ([]CandidateChannel, []string) {
	byChannel := make(map[string][]CampaignRecord)
	for i := range all {
		byChannel[all[i].Channel] = append(byChannel[all[i].Channel], all[i])
	}

	channels := make([]string, 0, len(byChannel))
	for ch := range byChannel {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	candidates := make([]CandidateChannel, 0, len(channels))
	caveats := []string{"no sufficiently similar history matched; estimates fall back to channel-wide averages"}
	for _, ch := range channels {
		group := byChannel[ch]
		n := float64(len(group))
		var reach, clicks, conv, cost float64
		sig := newAudienceSignature()
		for i := range group {
			reach += float64(group[i].DistributionCount) / n
			clicks += float64(group[i].ClickCount) / n
			conv += float64(group[i].ConversionCount) / n
			cost += group[i].Cost / n
			sig.add(group[i].Industries, group[i].JobTitles, group[i].CompanySizes)
		}

		cand := CandidateChannel{
			Channel:              ch,
			CampaignName:         ch + " campaign",
			IsPaid:               cost > 0,
			UnitCost:             cost,
			EstimatedReach:       reach,
			EstimatedConversions: conv,
			Confidence:           p.cfg.MinConfidence,
			MatchCount:           0,
			Fallback:             true,
			Divisible:            cost > 0,
		}
		if reach > 0 {
			cand.EstimatedCTR = clicks / reach
		}
		if clicks > 0 {
			cand.EstimatedCVR = conv / clicks
		}
		if conv > 0 && cost > 0 {
			cand.EstimatedCPA = cost / conv
			cand.CPADefined = true
		}
		sig.fill(&cand)
		candidates = append(candidates, cand)
	}
	return candidates, caveats
}

// fromMedia derives a candidate from a media placement. The estimate
// rests on audience compatibility alone, so confidence is scaled down
// relative to history-backed candidates.
func (p *predictor) fromMedia(sm scoredMedia, gCTR, gCVR float64) CandidateChannel {
	r := sm.Record
	reach := float64(r.ReachableCount)
	conv := reach * gCTR * gCVR

	conf := sm.Score * p.cfg.MediaConfidenceScale
	if conf < p.cfg.MinConfidence {
		conf = p.cfg.MinConfidence
	}
	if conf > 1 {
		conf = 1
	}

	cand := CandidateChannel{
		Channel:              r.MediaName,
		CampaignName:         r.MediaName + " placement",
		IsPaid:               r.Cost > 0,
		UnitCost:             r.Cost,
		EstimatedReach:       reach,
		EstimatedConversions: conv,
		EstimatedCTR:         gCTR,
		EstimatedCVR:         gCVR,
		Confidence:           conf,
		Similarity:           sm.Score,
		MatchCount:           0,
		Industries:           append([]string(nil), r.Industries...),
		JobTitles:            append([]string(nil), r.JobTitles...),
		CompanySizes:         append([]string(nil), r.CompanySizes...),
	}
	if conv > 0 && r.Cost > 0 {
		cand.EstimatedCPA = r.Cost / conv
		cand.CPADefined = true
	}
	return cand
}

// confidence combines match count (saturating), mean similarity, and
// the dispersion of conversions across matches. Always lands in
// [MinConfidence, 1] and never NaN.
func (p *predictor) confidence(matchCount int, meanSim, spread float64) float64 {
	countTerm := float64(matchCount) / (float64(matchCount) + p.cfg.CountSaturation)
	conf := (0.5*countTerm + 0.5*meanSim) / (1 + p.cfg.VariancePenalty*spread)
	if math.IsNaN(conf) || conf < p.cfg.MinConfidence {
		return p.cfg.MinConfidence
	}
	if conf > 1 {
		return 1
	}
	return conf
}

// conversionSpread returns the coefficient of variation of conversion
// counts across the matched records, 0 when the mean is zero.
func conversionSpread(group []scoredCampaign) float64 {
	n := float64(len(group))
	var mean float64
	for _, m := range group {
		mean += float64(m.Record.ConversionCount) / n
	}
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, m := range group {
		d := float64(m.Record.ConversionCount) - mean
		variance += d * d / n
	}
	return math.Sqrt(variance) / mean
}

// globalRates derives dataset-wide CTR and CVR from aggregate counts,
// falling back to fixed defaults on an empty dataset.
func globalRates(all []CampaignRecord) (ctr, cvr float64) {
	var dist, clicks, conv int
	for i := range all {
		dist += all[i].DistributionCount
		clicks += all[i].ClickCount
		conv += all[i].ConversionCount
	}
	ctr, cvr = defaultCTR, defaultCVR
	if dist > 0 {
		ctr = float64(clicks) / float64(dist)
	}
	if clicks > 0 {
		cvr = float64(conv) / float64(clicks)
	}
	return ctr, cvr
}

// audienceSignature accumulates the union of audience sets across the
// records backing a candidate, for overlap discounting downstream.
type audienceSignature struct {
	industries   map[string]struct{}
	jobTitles    map[string]struct{}
	companySizes map[string]struct{}
}

func newAudienceSignature() *audienceSignature {
	return &audienceSignature{
		industries:   make(map[string]struct{}),
		jobTitles:    make(map[string]struct{}),
		companySizes: make(map[string]struct{}),
	}
}

func (s *audienceSignature) add(industries, jobTitles, companySizes []string) {
	for _, v := range industries {
		s.industries[normalizeTerm(v)] = struct{}{}
	}
	for _, v := range jobTitles {
		s.jobTitles[normalizeTerm(v)] = struct{}{}
	}
	for _, v := range companySizes {
		s.companySizes[normalizeTerm(v)] = struct{}{}
	}
}

func (s *audienceSignature) fill(cand *CandidateChannel) {
	cand.Industries = sortedKeys(s.industries)
	cand.JobTitles = sortedKeys(s.jobTitles)
	cand.CompanySizes = sortedKeys(s.companySizes)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
