// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/mfujimot/funnelcast/internal/engine"
	"github.com/mfujimot/funnelcast/internal/metrics"
)

// InsertCampaignRecords appends campaign history rows in one
// transaction.
func (db *DB) InsertCampaignRecords(ctx context.Context, records []engine.CampaignRecord) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO campaign_history (
			campaign_name, channel, event_name, theme, category, format,
			industries, job_titles, company_sizes,
			distribution_count, click_count, conversion_count, cost, campaign_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare campaign insert: %w", err)
	}
	defer closeWithLog(stmt, "campaign insert statement")

	start := time.Now()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.CampaignName, r.Channel, r.EventName, r.Theme,
			string(r.Category), string(r.Format),
			joinSet(r.Industries), joinSet(r.JobTitles), joinSet(r.CompanySizes),
			r.DistributionCount, r.ClickCount, r.ConversionCount, r.Cost, r.Date,
		); err != nil {
			return fmt.Errorf("failed to insert campaign %q: %w", r.CampaignName, err)
		}
	}
	metrics.RecordDBQuery("insert", "campaign_history", time.Since(start), nil)

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit campaign insert: %w", err)
	}
	db.BumpSnapshot()
	return nil
}

// InsertMediaRecords appends media catalog rows in one transaction.
func (db *DB) InsertMediaRecords(ctx context.Context, records []engine.MediaRecord) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO media_catalog (
			media_name, media_type, reachable_count,
			industries, job_titles, company_sizes, cost, description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare media insert: %w", err)
	}
	defer closeWithLog(stmt, "media insert statement")

	start := time.Now()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.MediaName, r.MediaType, r.ReachableCount,
			joinSet(r.Industries), joinSet(r.JobTitles), joinSet(r.CompanySizes),
			r.Cost, r.Description,
		); err != nil {
			return fmt.Errorf("failed to insert media %q: %w", r.MediaName, err)
		}
	}
	metrics.RecordDBQuery("insert", "media_catalog", time.Since(start), nil)

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit media insert: %w", err)
	}
	db.BumpSnapshot()
	return nil
}

// InsertKnowledgeItems appends knowledge base rows in one transaction.
// Conditions are stored as JSON.
func (db *DB) InsertKnowledgeItems(ctx context.Context, items []engine.KnowledgeItem) error {
	if len(items) == 0 {
		return nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO knowledge_items (
			title, content, type, impact_degree, direction,
			scope, frequency, conditions, confidence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare knowledge insert: %w", err)
	}
	defer closeWithLog(stmt, "knowledge insert statement")

	start := time.Now()
	for _, item := range items {
		conditions, err := json.Marshal(item.Conditions)
		if err != nil {
			return fmt.Errorf("failed to encode conditions for %q: %w", item.Title, err)
		}
		if _, err := stmt.ExecContext(ctx,
			item.Title, item.Content, string(item.Type), item.ImpactDegree, string(item.Direction),
			item.Scope, item.Frequency, string(conditions), item.Confidence,
		); err != nil {
			return fmt.Errorf("failed to insert knowledge item %q: %w", item.Title, err)
		}
	}
	metrics.RecordDBQuery("insert", "knowledge_items", time.Since(start), nil)

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit knowledge insert: %w", err)
	}
	db.BumpSnapshot()
	return nil
}

// HistoryStats summarizes the stored dataset for the stats endpoint.
type HistoryStats struct {
	SnapshotVersion   int64      `json:"snapshot_version"`
	CampaignCount     int        `json:"campaign_count"`
	MediaCount        int        `json:"media_count"`
	KnowledgeCount    int        `json:"knowledge_count"`
	ChannelCount      int        `json:"channel_count"`
	TotalConversions  int        `json:"total_conversions"`
	EarliestCampaign  *time.Time `json:"earliest_campaign,omitempty"`
	LatestCampaign    *time.Time `json:"latest_campaign,omitempty"`
	TotalHistorySpend float64    `json:"total_history_spend"`
}

// Stats computes dataset summary statistics.
func (db *DB) Stats(ctx context.Context) (*HistoryStats, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	stats := &HistoryStats{SnapshotVersion: db.SnapshotVersion()}

	query := `
	SELECT
		COUNT(*),
		COUNT(DISTINCT channel),
		COALESCE(SUM(conversion_count), 0),
		COALESCE(SUM(cost), 0),
		MIN(campaign_date),
		MAX(campaign_date)
	FROM campaign_history`

	start := time.Now()
	var earliest, latest sql.NullTime
	err := db.conn.QueryRowContext(ctx, query).Scan(
		&stats.CampaignCount, &stats.ChannelCount,
		&stats.TotalConversions, &stats.TotalHistorySpend,
		&earliest, &latest,
	)
	metrics.RecordDBQuery("select", "campaign_history", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign stats: %w", err)
	}
	if earliest.Valid {
		stats.EarliestCampaign = &earliest.Time
	}
	if latest.Valid {
		stats.LatestCampaign = &latest.Time
	}

	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM media_catalog").Scan(&stats.MediaCount); err != nil {
		return nil, fmt.Errorf("failed to count media catalog: %w", err)
	}
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM knowledge_items").Scan(&stats.KnowledgeCount); err != nil {
		return nil, fmt.Errorf("failed to count knowledge items: %w", err)
	}

	return stats, nil
}

// ReplaceCampaignHistory atomically replaces the campaign history with
// a freshly extracted dataset.
func (db *DB) ReplaceCampaignHistory(ctx context.Context, records []engine.CampaignRecord) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	if _, err := tx.ExecContext(ctx, "DELETE FROM campaign_history"); err != nil {
		return fmt.Errorf("failed to clear campaign history: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO campaign_history (
			campaign_name, channel, event_name, theme, category, format,
			industries, job_titles, company_sizes,
			distribution_count, click_count, conversion_count, cost, campaign_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare campaign insert: %w", err)
	}
	defer closeWithLog(stmt, "campaign insert statement")

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.CampaignName, r.Channel, r.EventName, r.Theme,
			string(r.Category), string(r.Format),
			joinSet(r.Industries), joinSet(r.JobTitles), joinSet(r.CompanySizes),
			r.DistributionCount, r.ClickCount, r.ConversionCount, r.Cost, r.Date,
		); err != nil {
			return fmt.Errorf("failed to insert campaign %q: %w", r.CampaignName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history replacement: %w", err)
	}
	db.BumpSnapshot()
	return nil
}

// rollbackQuietly rolls back a transaction, ignoring the "already
// committed" error from the deferred path.
func rollbackQuietly(tx *sql.Tx) {
	_ = tx.Rollback()
}
