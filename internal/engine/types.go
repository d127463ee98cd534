// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package engine

import (
	"context"
	"time"
)

// EventCategory classifies the kind of event being promoted.
type EventCategory string

const (
	// CategorySeminar is a small-format educational event.
	CategorySeminar EventCategory = "seminar"
	// CategoryConference is a large multi-track event.
	CategoryConference EventCategory = "conference"
	// CategoryWebinar is an online-only presentation.
	CategoryWebinar EventCategory = "webinar"
	// CategoryWorkshop is a hands-on training session.
	CategoryWorkshop EventCategory = "workshop"
	// CategoryExhibition is a booth-based showcase event.
	CategoryExhibition EventCategory = "exhibition"
	// CategoryMeetup is an informal community gathering.
	CategoryMeetup EventCategory = "meetup"
)

// Valid reports whether the category is a known value.
func (c EventCategory) Valid() bool {
	switch c {
	case CategorySeminar, CategoryConference, CategoryWebinar,
		CategoryWorkshop, CategoryExhibition, CategoryMeetup:
		return true
	default:
		return false
	}
}

// EventFormat describes how attendees participate.
type EventFormat string

const (
	// FormatOnline is a fully remote event.
	FormatOnline EventFormat = "online"
	// FormatOffline is a fully in-person event.
	FormatOffline EventFormat = "offline"
	// FormatHybrid mixes remote and in-person attendance.
	FormatHybrid EventFormat = "hybrid"
)

// Valid reports whether the format is a known value.
func (f EventFormat) Valid() bool {
	switch f {
	case FormatOnline, FormatOffline, FormatHybrid:
		return true
	default:
		return false
	}
}

// TargetAudience describes who an event or campaign is aimed at.
// All three attributes are unordered sets.
type TargetAudience struct {
	// JobTitles is the set of targeted job titles.
	JobTitles []string `json:"job_titles"`

	// Industries is the set of targeted industries.
	Industries []string `json:"industries"`

	// CompanySizes is the set of targeted company-size buckets
	// (e.g. "1-50", "51-300", "301+").
	CompanySizes []string `json:"company_sizes"`
}

// EventRequest is the immutable input to a single recommendation run.
type EventRequest struct {
	// EventName is the display name of the planned event.
	EventName string `json:"event_name"`

	// EventCategory classifies the event.
	EventCategory EventCategory `json:"event_category"`

	// EventTheme is a free-text description of the event topic.
	EventTheme string `json:"event_theme"`

	// EventFormat is how attendees participate.
	EventFormat EventFormat `json:"event_format"`

	// TargetAudience describes who the event is aimed at.
	TargetAudience TargetAudience `json:"target_audience"`

	// TargetAttendees is the desired attendee count. Must be positive.
	TargetAttendees int `json:"target_attendees"`

	// Budget is the total marketing budget in currency units. Must be
	// non-negative; zero is valid and restricts the portfolio to free
	// channels.
	Budget float64 `json:"budget"`

	// EventDate is when the event takes place.
	EventDate time.Time `json:"event_date"`

	// IsFreeEvent indicates whether attendance itself is free.
	IsFreeEvent bool `json:"is_free_event"`
}

// CampaignRecord is a historical campaign result. Owned by the data
// subsystem; read-only to the engine.
type CampaignRecord struct {
	// CampaignName is the display name of the historical campaign.
	CampaignName string `json:"campaign_name"`

	// Channel identifies the marketing channel (e.g. "email",
	// "web_ads", a media name).
	Channel string `json:"channel"`

	// EventName is the event or conference the campaign promoted.
	EventName string `json:"event_name"`

	// Theme is the free-text topic of the promoted event.
	Theme string `json:"theme"`

	// Category classifies the promoted event.
	Category EventCategory `json:"category"`

	// Format is how the promoted event was attended.
	Format EventFormat `json:"format"`

	// Industries, JobTitles and CompanySizes are the audience sets the
	// campaign targeted.
	Industries   []string `json:"industries"`
	JobTitles    []string `json:"job_titles"`
	CompanySizes []string `json:"company_sizes"`

	// DistributionCount is how many people the campaign reached.
	DistributionCount int `json:"distribution_count"`

	// ClickCount is how many recipients clicked through.
	ClickCount int `json:"click_count"`

	// ConversionCount is how many recipients registered or attended.
	ConversionCount int `json:"conversion_count"`

	// Cost is the total campaign spend in currency units.
	Cost float64 `json:"cost"`

	// Date is when the campaign ran.
	Date time.Time `json:"date"`
}

// CTR returns clicks / distribution, or 0 when nothing was distributed.
func (r *CampaignRecord) CTR() float64 {
	if r.DistributionCount <= 0 {
		return 0
	}
	return float64(r.ClickCount) / float64(r.DistributionCount)
}

// CVR returns conversions / clicks, or 0 when nothing was clicked.
func (r *CampaignRecord) CVR() float64 {
	if r.ClickCount <= 0 {
		return 0
	}
	return float64(r.ConversionCount) / float64(r.ClickCount)
}

// CPA returns cost / conversions. The boolean is false when the ratio
// is undefined (zero conversions).
func (r *CampaignRecord) CPA() (float64, bool) {
	if r.ConversionCount <= 0 {
		return 0, false
	}
	return r.Cost / float64(r.ConversionCount), true
}

// MediaRecord is a purchasable media placement (newsletter slot, ad
// listing, community post). Read-only to the engine.
type MediaRecord struct {
	// MediaName identifies the media outlet.
	MediaName string `json:"media_name"`

	// MediaType classifies the outlet (newsletter, web_media,
	// community, sns).
	MediaType string `json:"media_type"`

	// ReachableCount is the audience size the placement can reach.
	ReachableCount int `json:"reachable_count"`

	// Industries, JobTitles and CompanySizes are the audience sets the
	// outlet reaches.
	Industries   []string `json:"industries"`
	JobTitles    []string `json:"job_titles"`
	CompanySizes []string `json:"company_sizes"`

	// Cost is the placement price in currency units.
	Cost float64 `json:"cost"`

	// Description is free-text metadata about the outlet.
	Description string `json:"description,omitempty"`
}

// KnowledgeType classifies what a knowledge item is about.
type KnowledgeType string

const (
	// KnowledgeGeneral applies regardless of channel or audience.
	KnowledgeGeneral KnowledgeType = "general"
	// KnowledgeCampaign is about a specific campaign channel.
	KnowledgeCampaign KnowledgeType = "campaign"
	// KnowledgeMedia is about a specific media outlet.
	KnowledgeMedia KnowledgeType = "media"
	// KnowledgeAudience is about an audience segment.
	KnowledgeAudience KnowledgeType = "audience"
	// KnowledgeTiming is about scheduling and lead time.
	KnowledgeTiming KnowledgeType = "timing"
)

// ImpactDirection is the sign of a knowledge item's effect.
type ImpactDirection string

const (
	// ImpactPositive raises confidence in matching channels.
	ImpactPositive ImpactDirection = "positive"
	// ImpactNegative lowers confidence and attaches a risk annotation.
	ImpactNegative ImpactDirection = "negative"
)

// ConditionKind is the discriminator for a knowledge applicability
// predicate.
type ConditionKind string

const (
	// CondIndustryIn matches when the request targets any listed industry.
	CondIndustryIn ConditionKind = "industry_in"
	// CondJobTitleIn matches when the request targets any listed job title.
	CondJobTitleIn ConditionKind = "job_title_in"
	// CondCompanySizeIn matches when the request targets any listed size bucket.
	CondCompanySizeIn ConditionKind = "company_size_in"
	// CondCategoryIs matches when the request's category is listed.
	CondCategoryIs ConditionKind = "category_is"
	// CondFormatIs matches when the request's format is listed.
	CondFormatIs ConditionKind = "format_is"
	// CondChannelIs matches when the candidate channel is listed.
	CondChannelIs ConditionKind = "channel_is"
	// CondPaidOnly matches paid candidate channels.
	CondPaidOnly ConditionKind = "paid_only"
	// CondFreeOnly matches free candidate channels.
	CondFreeOnly ConditionKind = "free_only"
)

// Condition is a single structured applicability predicate. Values is
// interpreted per Kind; the paid/free kinds ignore it.
type Condition struct {
	Kind   ConditionKind `json:"kind"`
	Values []string      `json:"values,omitempty"`
}

// KnowledgeItem is a qualitative rule contributed by marketers.
// Read-only to the engine.
type KnowledgeItem struct {
	// Title is a short rule name, reused in risk annotations.
	Title string `json:"title"`

	// Content is the free-text explanation of the rule.
	Content string `json:"content"`

	// Type classifies what the rule is about.
	Type KnowledgeType `json:"type"`

	// ImpactDegree is the strength of the effect, in [0, 5].
	ImpactDegree float64 `json:"impact_degree"`

	// Direction is whether the effect helps or hurts.
	Direction ImpactDirection `json:"direction"`

	// Scope is free-text metadata about where the rule was observed.
	Scope string `json:"scope,omitempty"`

	// Frequency is free-text metadata about how often it was observed.
	Frequency string `json:"frequency,omitempty"`

	// Conditions decide applicability. All conditions must match
	// (conjunction). An empty list applies to every channel.
	Conditions []Condition `json:"conditions,omitempty"`

	// Confidence is how much the rule is trusted, in [0, 1].
	Confidence float64 `json:"confidence"`
}

// RiskSeverity grades a risk annotation.
type RiskSeverity string

const (
	// SeverityLow marks a minor concern.
	SeverityLow RiskSeverity = "low"
	// SeverityMedium marks a concern worth reviewing.
	SeverityMedium RiskSeverity = "medium"
	// SeverityHigh marks a concern that should change the plan.
	SeverityHigh RiskSeverity = "high"
)

// RiskAnnotation is an explanation attached to a candidate channel by
// an adverse knowledge item.
type RiskAnnotation struct {
	// Source is the title of the knowledge item that produced the
	// annotation.
	Source string `json:"source"`

	// Message is the free-text explanation.
	Message string `json:"message"`

	// Severity is derived from the knowledge item's impact degree.
	Severity RiskSeverity `json:"severity"`
}

// CandidateChannel is a per-run estimate of a marketing channel's
// expected performance. Created during a recommendation run and
// discarded afterwards.
type CandidateChannel struct {
	// Channel identifies the marketing channel or media outlet.
	Channel string `json:"channel"`

	// CampaignName is a display name for the proposed campaign.
	CampaignName string `json:"campaign_name"`

	// IsPaid indicates whether the channel costs money.
	IsPaid bool `json:"is_paid"`

	// UnitCost is the estimated cost of running the channel once.
	UnitCost float64 `json:"estimated_cost"`

	// AllocatedSpend is the budget assigned by the allocator. Zero for
	// free channels; at most UnitCost. Set only on selected channels.
	AllocatedSpend float64 `json:"allocated_spend"`

	// EstimatedReach is the predicted audience size.
	EstimatedReach float64 `json:"estimated_reach"`

	// EstimatedConversions is the predicted registration count.
	EstimatedConversions float64 `json:"estimated_conversions"`

	// EstimatedCTR is the predicted click-through rate.
	EstimatedCTR float64 `json:"estimated_ctr"`

	// EstimatedCVR is the predicted conversion rate.
	EstimatedCVR float64 `json:"estimated_cvr"`

	// EstimatedCPA is the predicted cost per acquisition. Meaningful
	// only when CPADefined is true.
	EstimatedCPA float64 `json:"estimated_cpa,omitempty"`

	// CPADefined is false when predicted conversions are zero and CPA
	// has no defined value.
	CPADefined bool `json:"cpa_defined"`

	// Confidence is the prediction confidence, in [0, 1].
	Confidence float64 `json:"confidence_score"`

	// Similarity is the mean similarity of the historical records the
	// estimate was derived from, in [0, 1].
	Similarity float64 `json:"similarity_score"`

	// MatchCount is how many historical records backed the estimate.
	MatchCount int `json:"match_count"`

	// Fallback is true when no record matched and the estimate is a
	// dataset-wide average at the minimum confidence tier.
	Fallback bool `json:"fallback"`

	// Divisible indicates the channel supports partial spend with
	// proportionally scaled predictions.
	Divisible bool `json:"-"`

	// Risks are annotations attached by adverse knowledge items.
	Risks []RiskAnnotation `json:"risks,omitempty"`

	// Industries, JobTitles and CompanySizes form the audience
	// signature used for overlap discounting.
	Industries   []string `json:"-"`
	JobTitles    []string `json:"-"`
	CompanySizes []string `json:"-"`
}

// Scenario is the outcome of re-running the allocator at an
// alternative budget tier.
type Scenario struct {
	// BudgetMultiplier is the tier relative to the requested budget.
	BudgetMultiplier float64 `json:"budget_multiplier"`

	// Budget is the absolute budget for the tier.
	Budget float64 `json:"budget"`

	// TotalCost is the spend the allocator committed at this tier.
	TotalCost float64 `json:"total_cost"`

	// TotalConversions is the predicted conversions at this tier.
	TotalConversions float64 `json:"total_conversions"`

	// ChannelCount is how many channels were selected.
	ChannelCount int `json:"channel_count"`

	// GoalProbability is the goal-achievement probability at this tier.
	GoalProbability float64 `json:"goal_achievement_probability"`
}

// PortfolioResult is the output of a recommendation run.
type PortfolioResult struct {
	// Channels is the ordered list of selected channels with allocated
	// spend, paid channels first by efficiency, then free channels.
	Channels []CandidateChannel `json:"recommended_campaigns"`

	// TotalReach is the aggregate predicted reach of the portfolio.
	TotalReach float64 `json:"total_reach"`

	// TotalConversions is the aggregate predicted conversions.
	TotalConversions float64 `json:"total_conversions"`

	// TotalCost is the aggregate allocated spend. Never exceeds the
	// request budget.
	TotalCost float64 `json:"total_cost"`

	// GoalProbability estimates the likelihood that predicted
	// conversions meet the attendee target, in [0, 1].
	GoalProbability float64 `json:"goal_achievement_probability"`

	// Suggestions is a deterministic rule-based list of improvements.
	Suggestions []string `json:"suggestions,omitempty"`

	// Scenarios are allocator outcomes at alternative budget tiers.
	Scenarios []Scenario `json:"scenarios,omitempty"`

	// Caveats records non-fatal degradations, such as fallbacks to
	// global averages or an infeasible paid allocation.
	Caveats []string `json:"caveats,omitempty"`

	// Metadata contains timing and diagnostic information.
	Metadata ResultMetadata `json:"metadata"`
}

// ResultMetadata contains timing and diagnostic information for a run.
type ResultMetadata struct {
	// RequestID is the unique request identifier.
	RequestID string `json:"request_id,omitempty"`

	// CandidateCount is how many candidate channels were considered
	// before allocation.
	CandidateCount int `json:"candidate_count"`

	// MatchedCampaigns is how many historical campaign records cleared
	// the similarity threshold.
	MatchedCampaigns int `json:"matched_campaigns"`

	// MatchedMedia is how many media records cleared the threshold.
	MatchedMedia int `json:"matched_media"`

	// LatencyMS is the run duration in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// CacheHit indicates the result was served from the result cache.
	CacheHit bool `json:"cache_hit"`

	// Timestamp is when the result was generated.
	Timestamp time.Time `json:"timestamp"`
}

// Filter restricts a DataView query. Zero-valued fields do not
// restrict; set-valued fields match records overlapping any element.
type Filter struct {
	Industries   []string      `json:"industries,omitempty"`
	JobTitles    []string      `json:"job_titles,omitempty"`
	CompanySizes []string      `json:"company_sizes,omitempty"`
	Category     EventCategory `json:"category,omitempty"`
	Format       EventFormat   `json:"format,omitempty"`
	Channel      string        `json:"channel,omitempty"`
}

// DataView is the read-only snapshot of historical data the engine
// runs against. Results are snapshot-consistent within one call but
// not across calls; the engine never assumes stability between runs.
type DataView interface {
	// QueryCampaigns returns historical campaign records matching the
	// filter.
	QueryCampaigns(ctx context.Context, f Filter) ([]CampaignRecord, error)

	// QueryMedia returns media records matching the filter.
	QueryMedia(ctx context.Context, f Filter) ([]MediaRecord, error)

	// QueryKnowledge returns knowledge items matching the filter.
	QueryKnowledge(ctx context.Context, f Filter) ([]KnowledgeItem, error)
}
