// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/mfujimot/funnelcast/internal/engine"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/funnelcast/config.yaml",
	"/etc/funnelcast/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8460,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
		},
		Database: DatabaseConfig{
			Path:               "/data/funnelcast.duckdb",
			MaxMemory:          "2GB",
			Threads:            0, // 0 = runtime.NumCPU()
			SeedSampleData:     false,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Refresh: RefreshConfig{
			BufferSize:   64,
			CloseTimeout: 10 * time.Second,
		},
		Engine: *engine.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// HTTP_PORT -> server.port, DUCKDB_PATH -> database.path, etc.
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches the env override and the default paths,
// returning the first file that exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// stringSlicePaths are config paths parsed as comma-separated string
// slices when they arrive from the environment.
var stringSlicePaths = []string{
	"server.cors_origins",
}

// floatSlicePaths are config paths parsed as comma-separated float
// slices when they arrive from the environment.
var floatSlicePaths = []string{
	"engine.composition.scenario_multipliers",
}

// processSliceFields converts comma-separated env values into slices.
// Values that already arrived as slices from the YAML file are left
// alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range stringSlicePaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := splitTrimmed(strVal)
		if len(parts) > 0 {
			if err := k.Set(path, parts); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}

	for _, path := range floatSlicePaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := splitTrimmed(strVal)
		floats := make([]float64, 0, len(parts))
		for _, p := range parts {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return fmt.Errorf("invalid float %q in %s: %w", p, path, err)
			}
			floats = append(floats, f)
		}
		if len(floats) > 0 {
			if err := k.Set(path, floats); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}

	return nil
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			trimmed = append(trimmed, p)
		}
	}
	return trimmed
}

// envTransformFunc maps environment variable names to koanf config
// paths. Unmapped variables are skipped so random environment noise
// never pollutes the config.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - DUCKDB_PATH -> database.path
//   - ENGINE_CACHE_TTL -> engine.cache.ttl
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_port":          "server.port",
		"http_host":          "server.host",
		"http_timeout":       "server.timeout",
		"cors_origins":       "server.cors_origins",
		"rate_limit_reqs":    "server.rate_limit_reqs",
		"rate_limit_window":  "server.rate_limit_window",
		"disable_rate_limit": "server.rate_limit_disabled",

		// Database mappings
		"duckdb_path":          "database.path",
		"duckdb_max_memory":    "database.max_memory",
		"duckdb_threads":       "database.threads",
		"seed_sample_data":     "database.seed_sample_data",
		"breaker_max_failures": "database.breaker_max_failures",
		"breaker_timeout":      "database.breaker_timeout",

		// Refresh bus mappings
		"refresh_buffer_size":   "refresh.buffer_size",
		"refresh_close_timeout": "refresh.close_timeout",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Engine mappings (most-tuned knobs; the rest are file-only)
		"engine_min_score":            "engine.similarity.min_score",
		"engine_weight_industry":      "engine.similarity.weights.industry",
		"engine_weight_job_title":     "engine.similarity.weights.job_title",
		"engine_weight_company_size":  "engine.similarity.weights.company_size",
		"engine_weight_format":        "engine.similarity.weights.format",
		"engine_weight_theme":         "engine.similarity.weights.theme",
		"engine_top_n":                "engine.prediction.top_n",
		"engine_min_confidence":       "engine.prediction.min_confidence",
		"engine_overlap_discount":     "engine.allocation.overlap_discount",
		"engine_exhaustive_limit":     "engine.allocation.exhaustive_limit",
		"engine_scenario_multipliers": "engine.composition.scenario_multipliers",
		"engine_cache_enabled":        "engine.cache.enabled",
		"engine_cache_ttl":            "engine.cache.ttl",
		"engine_cache_max_entries":    "engine.cache.max_entries",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// WatchConfigFile sets up a file watcher for hot reload. The caller is
// responsible for mutex protection when swapping configuration.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)
	return provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
