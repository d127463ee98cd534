// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

// Package database provides the DuckDB-backed store for campaign
// history, the media catalog, and the knowledge base. The Store type
// implements engine.DataView behind a circuit breaker so a failing
// database degrades into engine.ErrCollaboratorUnavailable instead of
// cascading.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/mfujimot/funnelcast/internal/config"
	"github.com/mfujimot/funnelcast/internal/logging"
)

// defaultQueryTimeout bounds queries whose context carries no deadline.
const defaultQueryTimeout = 30 * time.Second

// DB wraps the DuckDB connection and owns the schema.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	// snapshot counts dataset generations. Writes and refresh events
	// bump it; the stats endpoint reports it so clients can detect
	// that recommendations were produced against a newer dataset.
	snapshot atomic.Int64
}

// New opens (or creates) the DuckDB database and initializes the
// schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure the parent directory exists for file-backed databases.
	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	// Disable auto-install/auto-load of extensions to prevent hangs in
	// restricted network environments.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	db.snapshot.Store(1)

	// DuckDB is an in-process engine; a small pool avoids write
	// contention while still letting reads overlap.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(0)

	if err := db.createTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Int("threads", numThreads).Msg("database opened")
	return db, nil
}

// Conn returns the underlying SQL connection for packages needing
// direct access.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// SnapshotVersion returns the current dataset generation.
func (db *DB) SnapshotVersion() int64 {
	return db.snapshot.Load()
}

// BumpSnapshot advances the dataset generation and returns the new
// value.
func (db *DB) BumpSnapshot() int64 {
	return db.snapshot.Add(1)
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Checkpoint flushes the WAL into the main database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "CHECKPOINT")
	return err
}

// Close checkpoints and closes the database. The checkpoint is best
// effort; a failure is logged but does not block shutdown.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("failed to checkpoint database before close")
	}

	return db.conn.Close()
}

// ensureContext attaches the default timeout when the caller's context
// carries no deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// closeQuietly closes a resource and explicitly ignores any error.
// Use in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// closeWithLog closes a resource and logs any error.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("failed to close resource")
	}
}
