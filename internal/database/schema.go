// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package database

import (
	"context"
	"fmt"
	"time"
)

// Audience sets are stored as comma-joined canonical strings and split
// on scan. DuckDB LIST columns would push overlap filtering into SQL,
// but the driver's list scanning goes through interface{} conversions
// that cost more than splitting a short string, and every query here
// reads whole small tables anyway.

// createTables creates the schema if it does not exist yet.
func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	statements := []string{
		`CREATE SEQUENCE IF NOT EXISTS campaign_history_seq`,
		`CREATE TABLE IF NOT EXISTS campaign_history (
			id BIGINT PRIMARY KEY DEFAULT nextval('campaign_history_seq'),
			campaign_name VARCHAR NOT NULL,
			channel VARCHAR NOT NULL,
			event_name VARCHAR,
			theme VARCHAR,
			category VARCHAR,
			format VARCHAR,
			industries VARCHAR DEFAULT '',
			job_titles VARCHAR DEFAULT '',
			company_sizes VARCHAR DEFAULT '',
			distribution_count INTEGER NOT NULL DEFAULT 0,
			click_count INTEGER NOT NULL DEFAULT 0,
			conversion_count INTEGER NOT NULL DEFAULT 0,
			cost DOUBLE NOT NULL DEFAULT 0,
			campaign_date TIMESTAMP,
			created_at TIMESTAMP DEFAULT current_timestamp
		)`,
		`CREATE SEQUENCE IF NOT EXISTS media_catalog_seq`,
		`CREATE TABLE IF NOT EXISTS media_catalog (
			id BIGINT PRIMARY KEY DEFAULT nextval('media_catalog_seq'),
			media_name VARCHAR NOT NULL,
			media_type VARCHAR NOT NULL,
			reachable_count INTEGER NOT NULL DEFAULT 0,
			industries VARCHAR DEFAULT '',
			job_titles VARCHAR DEFAULT '',
			company_sizes VARCHAR DEFAULT '',
			cost DOUBLE NOT NULL DEFAULT 0,
			description VARCHAR,
			created_at TIMESTAMP DEFAULT current_timestamp
		)`,
		`CREATE SEQUENCE IF NOT EXISTS knowledge_items_seq`,
		`CREATE TABLE IF NOT EXISTS knowledge_items (
			id BIGINT PRIMARY KEY DEFAULT nextval('knowledge_items_seq'),
			title VARCHAR NOT NULL,
			content VARCHAR,
			type VARCHAR NOT NULL,
			impact_degree DOUBLE NOT NULL DEFAULT 0,
			direction VARCHAR NOT NULL,
			scope VARCHAR,
			frequency VARCHAR,
			conditions VARCHAR DEFAULT '[]',
			confidence DOUBLE NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT current_timestamp
		)`,
		`CREATE INDEX IF NOT EXISTS idx_campaign_history_channel ON campaign_history(channel)`,
		`CREATE INDEX IF NOT EXISTS idx_campaign_history_category ON campaign_history(category)`,
		`CREATE INDEX IF NOT EXISTS idx_campaign_history_date ON campaign_history(campaign_date)`,
		`CREATE INDEX IF NOT EXISTS idx_media_catalog_type ON media_catalog(media_type)`,
		`CREATE INDEX IF NOT EXISTS idx_knowledge_items_type ON knowledge_items(type)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
