// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package config

import (
	"fmt"
	"time"

	"github.com/mfujimot/funnelcast/internal/engine"
)

// Config holds all application configuration.
//
// Loading order (Koanf v2):
//  1. Defaults: built-in sensible defaults for every setting
//  2. Config file: optional YAML file (config.yaml) for persistent settings
//  3. Environment variables: override any setting
//
// Config is immutable after Load() and safe for concurrent reads. The
// engine section can additionally be replaced at runtime through the
// configuration API, which goes through engine.SetConfig rather than
// this struct.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Refresh  RefreshConfig  `koanf:"refresh"`
	Engine   engine.Config  `koanf:"engine"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port is the HTTP listen port.
	// Default: 8460
	Port int `koanf:"port"`

	// Host is the bind address.
	// Default: 0.0.0.0
	Host string `koanf:"host"`

	// Timeout bounds request read/write and per-request handling.
	// Default: 30s
	Timeout time.Duration `koanf:"timeout"`

	// CORSOrigins lists allowed CORS origins.
	// Default: ["*"]
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the request budget per client per window.
	// Default: 100
	RateLimitReqs int `koanf:"rate_limit_reqs"`

	// RateLimitWindow is the rate limit window.
	// Default: 1m
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// RateLimitDisabled turns off rate limiting entirely.
	// Default: false
	RateLimitDisabled bool `koanf:"rate_limit_disabled"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the DuckDB database file. ":memory:" runs in-memory.
	// Default: /data/funnelcast.duckdb
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage (e.g. "2GB").
	// Default: 2GB
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 means runtime.NumCPU().
	// Default: 0
	Threads int `koanf:"threads"`

	// SeedSampleData loads bundled sample history into an empty
	// database on startup. Intended for demos and local development.
	// Default: false
	SeedSampleData bool `koanf:"seed_sample_data"`

	// BreakerMaxFailures is the consecutive-failure count that opens
	// the circuit breaker around the store.
	// Default: 5
	BreakerMaxFailures uint32 `koanf:"breaker_max_failures"`

	// BreakerTimeout is how long the breaker stays open before probing.
	// Default: 30s
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// RefreshConfig holds history-refresh event bus settings.
type RefreshConfig struct {
	// BufferSize is the in-process pub/sub channel buffer.
	// Default: 64
	BufferSize int `koanf:"buffer_size"`

	// CloseTimeout bounds graceful shutdown of the bus.
	// Default: 10s
	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line in log output.
	// Default: false
	Caller bool `koanf:"caller"`
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
