// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/mfujimot/funnelcast/internal/engine"
	"github.com/mfujimot/funnelcast/internal/metrics"
)

// setSeparator joins audience set elements in storage.
const setSeparator = ","

// joinSet serializes an audience set for storage.
func joinSet(values []string) string {
	trimmed := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			trimmed = append(trimmed, v)
		}
	}
	return strings.Join(trimmed, setSeparator)
}

// splitSet deserializes an audience set from storage.
func splitSet(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, setSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// setsOverlap reports whether the stored set shares any element with
// the wanted set, comparing case-insensitively. An empty wanted set
// does not restrict.
func setsOverlap(stored []string, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, w := range wanted {
		for _, s := range stored {
			if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(w)) {
				return true
			}
		}
	}
	return false
}

// buildEqualityConditions turns the filter's scalar fields into SQL.
// Set-overlap filtering happens in Go after the scan; the audience
// columns hold comma-joined strings.
func buildEqualityConditions(f engine.Filter, hasCategory, hasChannel bool) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if hasCategory && f.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, string(f.Category))
	}
	if hasCategory && f.Format != "" {
		conditions = append(conditions, "format = ?")
		args = append(args, string(f.Format))
	}
	if hasChannel && f.Channel != "" {
		conditions = append(conditions, "channel = ?")
		args = append(args, f.Channel)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// matchesAudience applies the filter's set fields.
func matchesAudience(f engine.Filter, industries, jobTitles, companySizes []string) bool {
	return setsOverlap(industries, f.Industries) &&
		setsOverlap(jobTitles, f.JobTitles) &&
		setsOverlap(companySizes, f.CompanySizes)
}

func (db *DB) queryCampaigns(ctx context.Context, f engine.Filter) ([]engine.CampaignRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
	SELECT
		campaign_name, channel, COALESCE(event_name, ''), COALESCE(theme, ''),
		COALESCE(category, ''), COALESCE(format, ''),
		industries, job_titles, company_sizes,
		distribution_count, click_count, conversion_count, cost, campaign_date
	FROM campaign_history`

	conditions, args := buildEqualityConditions(f, true, true)
	query += conditions + `
	ORDER BY campaign_date DESC`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "campaign_history", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign history: %w", err)
	}
	defer closeWithLog(rows, "campaign history rows")

	var records []engine.CampaignRecord
	for rows.Next() {
		var r engine.CampaignRecord
		var industries, jobTitles, companySizes string
		var category, format string
		var date sql.NullTime

		if err := rows.Scan(
			&r.CampaignName, &r.Channel, &r.EventName, &r.Theme,
			&category, &format,
			&industries, &jobTitles, &companySizes,
			&r.DistributionCount, &r.ClickCount, &r.ConversionCount, &r.Cost, &date,
		); err != nil {
			return nil, fmt.Errorf("failed to scan campaign record: %w", err)
		}

		r.Category = engine.EventCategory(category)
		r.Format = engine.EventFormat(format)
		r.Industries = splitSet(industries)
		r.JobTitles = splitSet(jobTitles)
		r.CompanySizes = splitSet(companySizes)
		if date.Valid {
			r.Date = date.Time
		}

		if !matchesAudience(f, r.Industries, r.JobTitles, r.CompanySizes) {
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("campaign history iteration failed: %w", err)
	}

	metrics.DBRowsReturned.WithLabelValues("campaign_history").Observe(float64(len(records)))
	return records, nil
}

func (db *DB) queryMedia(ctx context.Context, f engine.Filter) ([]engine.MediaRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
	SELECT
		media_name, media_type, reachable_count,
		industries, job_titles, company_sizes,
		cost, COALESCE(description, '')
	FROM media_catalog`

	// Media rows carry no category or format; only the channel filter
	// applies, matching on the media name.
	var args []interface{}
	if f.Channel != "" {
		query += " WHERE media_name = ?"
		args = append(args, f.Channel)
	}
	query += `
	ORDER BY reachable_count DESC`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "media_catalog", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query media catalog: %w", err)
	}
	defer closeWithLog(rows, "media catalog rows")

	var records []engine.MediaRecord
	for rows.Next() {
		var r engine.MediaRecord
		var industries, jobTitles, companySizes string

		if err := rows.Scan(
			&r.MediaName, &r.MediaType, &r.ReachableCount,
			&industries, &jobTitles, &companySizes,
			&r.Cost, &r.Description,
		); err != nil {
			return nil, fmt.Errorf("failed to scan media record: %w", err)
		}

		r.Industries = splitSet(industries)
		r.JobTitles = splitSet(jobTitles)
		r.CompanySizes = splitSet(companySizes)

		if !matchesAudience(f, r.Industries, r.JobTitles, r.CompanySizes) {
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("media catalog iteration failed: %w", err)
	}

	metrics.DBRowsReturned.WithLabelValues("media_catalog").Observe(float64(len(records)))
	return records, nil
}

// queryKnowledge returns all knowledge items. Applicability is
// evaluated per-candidate inside the engine, so the filter's set
// fields do not restrict here.
func (db *DB) queryKnowledge(ctx context.Context, _ engine.Filter) ([]engine.KnowledgeItem, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
	SELECT
		title, COALESCE(content, ''), type, impact_degree, direction,
		COALESCE(scope, ''), COALESCE(frequency, ''), conditions, confidence
	FROM knowledge_items
	ORDER BY impact_degree DESC`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query)
	metrics.RecordDBQuery("select", "knowledge_items", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge items: %w", err)
	}
	defer closeWithLog(rows, "knowledge item rows")

	var items []engine.KnowledgeItem
	for rows.Next() {
		var item engine.KnowledgeItem
		var itemType, direction, conditions string

		if err := rows.Scan(
			&item.Title, &item.Content, &itemType, &item.ImpactDegree, &direction,
			&item.Scope, &item.Frequency, &conditions, &item.Confidence,
		); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge item: %w", err)
		}

		item.Type = engine.KnowledgeType(itemType)
		item.Direction = engine.ImpactDirection(direction)
		if conditions != "" {
			if err := json.Unmarshal([]byte(conditions), &item.Conditions); err != nil {
				return nil, fmt.Errorf("failed to decode conditions for %q: %w", item.Title, err)
			}
		}

		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge item iteration failed: %w", err)
	}

	metrics.DBRowsReturned.WithLabelValues("knowledge_items").Observe(float64(len(items)))
	return items, nil
}
