// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mfujimot/funnelcast/internal/engine"
	"github.com/mfujimot/funnelcast/internal/logging"
)

// SeedSampleData loads a small realistic dataset for demos and local
// development. It is a no-op when campaign history already exists.
func (db *DB) SeedSampleData(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM campaign_history").Scan(&count); err != nil {
		return fmt.Errorf("failed to check existing data: %w", err)
	}
	if count > 0 {
		logging.Debug().Int("campaigns", count).Msg("sample data skipped, history already present")
		return nil
	}

	if err := db.InsertCampaignRecords(ctx, sampleCampaigns()); err != nil {
		return fmt.Errorf("failed to seed campaigns: %w", err)
	}
	if err := db.InsertMediaRecords(ctx, sampleMedia()); err != nil {
		return fmt.Errorf("failed to seed media: %w", err)
	}
	if err := db.InsertKnowledgeItems(ctx, sampleKnowledge()); err != nil {
		return fmt.Errorf("failed to seed knowledge: %w", err)
	}

	logging.Info().Msg("sample data seeded")
	return nil
}

func sampleDate(daysAgo int) time.Time {
	return time.Now().AddDate(0, 0, -daysAgo).Truncate(24 * time.Hour)
}

func sampleCampaigns() []engine.CampaignRecord {
	return []engine.CampaignRecord{
		{
			CampaignName: "CloudOps Summit email blast", Channel: "email",
			EventName: "CloudOps Summit 2025", Theme: "cloud infrastructure operations",
			Category: engine.CategoryConference, Format: engine.FormatHybrid,
			Industries: []string{"SaaS", "Fintech"}, JobTitles: []string{"SRE", "Platform Engineer"},
			CompanySizes:      []string{"51-300", "301+"},
			DistributionCount: 42000, ClickCount: 1260, ConversionCount: 189,
			Cost: 0, Date: sampleDate(120),
		},
		{
			CampaignName: "CloudOps Summit search ads", Channel: "web_ads",
			EventName: "CloudOps Summit 2025", Theme: "cloud infrastructure operations",
			Category: engine.CategoryConference, Format: engine.FormatHybrid,
			Industries: []string{"SaaS"}, JobTitles: []string{"SRE", "DevOps Engineer"},
			CompanySizes:      []string{"51-300"},
			DistributionCount: 85000, ClickCount: 1700, ConversionCount: 102,
			Cost: 450000, Date: sampleDate(115),
		},
		{
			CampaignName: "Data Platform Webinar email", Channel: "email",
			EventName: "Data Platform Deep Dive", Theme: "data warehouse modernization",
			Category: engine.CategoryWebinar, Format: engine.FormatOnline,
			Industries: []string{"Retail", "Fintech"}, JobTitles: []string{"Data Engineer", "Analyst"},
			CompanySizes:      []string{"51-300", "301+"},
			DistributionCount: 30000, ClickCount: 1500, ConversionCount: 330,
			Cost: 0, Date: sampleDate(95),
		},
		{
			CampaignName: "Data Platform Webinar ads", Channel: "web_ads",
			EventName: "Data Platform Deep Dive", Theme: "data warehouse modernization",
			Category: engine.CategoryWebinar, Format: engine.FormatOnline,
			Industries: []string{"Retail"}, JobTitles: []string{"Data Engineer"},
			CompanySizes:      []string{"301+"},
			DistributionCount: 60000, ClickCount: 900, ConversionCount: 72,
			Cost: 300000, Date: sampleDate(92),
		},
		{
			CampaignName: "Security Workshop newsletter slot", Channel: "TechPress Weekly",
			EventName: "Zero Trust Workshop", Theme: "application security hardening",
			Category: engine.CategoryWorkshop, Format: engine.FormatOffline,
			Industries: []string{"Fintech", "Healthcare"}, JobTitles: []string{"Security Engineer"},
			CompanySizes:      []string{"301+"},
			DistributionCount: 25000, ClickCount: 875, ConversionCount: 70,
			Cost: 180000, Date: sampleDate(80),
		},
		{
			CampaignName: "AI Product Seminar email", Channel: "email",
			EventName: "Applied AI Seminar", Theme: "machine learning in production",
			Category: engine.CategorySeminar, Format: engine.FormatOffline,
			Industries: []string{"SaaS", "Manufacturing"}, JobTitles: []string{"ML Engineer", "Product Manager"},
			CompanySizes:      []string{"1-50", "51-300"},
			DistributionCount: 18000, ClickCount: 720, ConversionCount: 108,
			Cost: 0, Date: sampleDate(70),
		},
		{
			CampaignName: "AI Product Seminar community post", Channel: "DevCircle Community",
			EventName: "Applied AI Seminar", Theme: "machine learning in production",
			Category: engine.CategorySeminar, Format: engine.FormatOffline,
			Industries: []string{"SaaS"}, JobTitles: []string{"ML Engineer"},
			CompanySizes:      []string{"1-50"},
			DistributionCount: 9000, ClickCount: 540, ConversionCount: 81,
			Cost: 60000, Date: sampleDate(68),
		},
		{
			CampaignName: "Frontend Meetup social push", Channel: "email",
			EventName: "Frontend Friday Meetup", Theme: "frontend frameworks and tooling",
			Category: engine.CategoryMeetup, Format: engine.FormatOffline,
			Industries: []string{"SaaS", "Media"}, JobTitles: []string{"Frontend Engineer"},
			CompanySizes:      []string{"1-50", "51-300"},
			DistributionCount: 12000, ClickCount: 600, ConversionCount: 150,
			Cost: 0, Date: sampleDate(55),
		},
		{
			CampaignName: "Manufacturing Expo listing", Channel: "IndustryHub Directory",
			EventName: "Smart Factory Expo", Theme: "factory automation and IoT",
			Category: engine.CategoryExhibition, Format: engine.FormatOffline,
			Industries: []string{"Manufacturing"}, JobTitles: []string{"Plant Manager", "Engineer"},
			CompanySizes:      []string{"301+"},
			DistributionCount: 40000, ClickCount: 800, ConversionCount: 64,
			Cost: 520000, Date: sampleDate(45),
		},
		{
			CampaignName: "Fintech Webinar newsletter slot", Channel: "TechPress Weekly",
			EventName: "Payments API Webinar", Theme: "payments infrastructure",
			Category: engine.CategoryWebinar, Format: engine.FormatOnline,
			Industries: []string{"Fintech"}, JobTitles: []string{"Backend Engineer", "Architect"},
			CompanySizes:      []string{"51-300"},
			DistributionCount: 25000, ClickCount: 1000, ConversionCount: 160,
			Cost: 180000, Date: sampleDate(35),
		},
		{
			CampaignName: "Payments Webinar email", Channel: "email",
			EventName: "Payments API Webinar", Theme: "payments infrastructure",
			Category: engine.CategoryWebinar, Format: engine.FormatOnline,
			Industries: []string{"Fintech"}, JobTitles: []string{"Backend Engineer"},
			CompanySizes:      []string{"51-300", "301+"},
			DistributionCount: 36000, ClickCount: 1440, ConversionCount: 288,
			Cost: 0, Date: sampleDate(33),
		},
		{
			CampaignName: "SRE Conference retargeting", Channel: "web_ads",
			EventName: "Reliability Con", Theme: "incident response and observability",
			Category: engine.CategoryConference, Format: engine.FormatOnline,
			Industries: []string{"SaaS", "Fintech"}, JobTitles: []string{"SRE"},
			CompanySizes:      []string{"301+"},
			DistributionCount: 70000, ClickCount: 2100, ConversionCount: 147,
			Cost: 380000, Date: sampleDate(20),
		},
	}
}

func sampleMedia() []engine.MediaRecord {
	return []engine.MediaRecord{
		{
			MediaName: "TechPress Weekly", MediaType: "newsletter", ReachableCount: 25000,
			Industries: []string{"SaaS", "Fintech", "Healthcare"}, JobTitles: []string{"Backend Engineer", "SRE", "Security Engineer"},
			CompanySizes: []string{"51-300", "301+"},
			Cost:         180000, Description: "Weekly engineering newsletter with sponsored slots",
		},
		{
			MediaName: "DevCircle Community", MediaType: "community", ReachableCount: 9000,
			Industries: []string{"SaaS"}, JobTitles: []string{"ML Engineer", "Frontend Engineer"},
			CompanySizes: []string{"1-50", "51-300"},
			Cost:         60000, Description: "Practitioner community with pinned event posts",
		},
		{
			MediaName: "IndustryHub Directory", MediaType: "web_media", ReachableCount: 40000,
			Industries: []string{"Manufacturing"}, JobTitles: []string{"Plant Manager", "Engineer"},
			CompanySizes: []string{"301+"},
			Cost:         520000, Description: "Industrial trade directory with event listings",
		},
		{
			MediaName: "FinStack Digest", MediaType: "newsletter", ReachableCount: 15000,
			Industries: []string{"Fintech"}, JobTitles: []string{"Backend Engineer", "Architect", "Product Manager"},
			CompanySizes: []string{"51-300", "301+"},
			Cost:         140000, Description: "Fintech engineering digest, biweekly",
		},
		{
			MediaName: "DataStream Blog", MediaType: "web_media", ReachableCount: 22000,
			Industries: []string{"Retail", "Fintech"}, JobTitles: []string{"Data Engineer", "Analyst"},
			CompanySizes: []string{"51-300", "301+"},
			Cost:         200000, Description: "Data engineering blog with sponsored articles",
		},
		{
			MediaName: "LaunchPad SNS", MediaType: "sns", ReachableCount: 55000,
			Industries: []string{"SaaS", "Media"}, JobTitles: []string{"Product Manager", "Frontend Engineer"},
			CompanySizes: []string{"1-50", "51-300"},
			Cost:         250000, Description: "Promoted posts on a product-builder social network",
		},
	}
}

func sampleKnowledge() []engine.KnowledgeItem {
	return []engine.KnowledgeItem{
		{
			Title:   "Email works best with two weeks of lead time",
			Content: "Registration rates drop sharply when the first email lands less than two weeks before the event.",
			Type:    engine.KnowledgeTiming, ImpactDegree: 3.0, Direction: engine.ImpactPositive,
			Scope: "all email campaigns", Frequency: "consistent",
			Conditions: []engine.Condition{{Kind: engine.CondChannelIs, Values: []string{"email"}}},
			Confidence: 0.8,
		},
		{
			Title:   "Web ads underperform for small-company audiences",
			Content: "Paid search converts poorly when targeting companies under 50 people; organic channels do better.",
			Type:    engine.KnowledgeAudience, ImpactDegree: 4.2, Direction: engine.ImpactNegative,
			Scope: "web_ads", Frequency: "frequent",
			Conditions: []engine.Condition{
				{Kind: engine.CondChannelIs, Values: []string{"web_ads"}},
				{Kind: engine.CondCompanySizeIn, Values: []string{"1-50"}},
			},
			Confidence: 0.7,
		},
		{
			Title:   "Newsletter slots convert well for fintech readers",
			Content: "Sponsored newsletter placements consistently outperform ads for fintech engineering audiences.",
			Type:    engine.KnowledgeMedia, ImpactDegree: 2.5, Direction: engine.ImpactPositive,
			Scope: "fintech newsletters", Frequency: "consistent",
			Conditions: []engine.Condition{{Kind: engine.CondIndustryIn, Values: []string{"Fintech"}}},
			Confidence: 0.75,
		},
		{
			Title:   "Paid channels saturate for webinar promotion",
			Content: "Past webinar pushes saw diminishing returns on paid spend; free channels carried most registrations.",
			Type:    engine.KnowledgeCampaign, ImpactDegree: 2.0, Direction: engine.ImpactNegative,
			Scope: "webinars", Frequency: "occasional",
			Conditions: []engine.Condition{
				{Kind: engine.CondCategoryIs, Values: []string{"webinar"}},
				{Kind: engine.CondPaidOnly},
			},
			Confidence: 0.6,
		},
		{
			Title:   "Community posts drive meetup turnout",
			Content: "Community channels fill small in-person events faster than any paid placement.",
			Type:    engine.KnowledgeGeneral, ImpactDegree: 2.8, Direction: engine.ImpactPositive,
			Scope: "meetups and seminars", Frequency: "consistent",
			Conditions: []engine.Condition{{Kind: engine.CondCategoryIs, Values: []string{"meetup", "seminar"}}},
			Confidence: 0.65,
		},
	}
}
