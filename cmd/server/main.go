// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

// Package main is the entry point for the Funnelcast server.
//
// Funnelcast recommends marketing channel portfolios for planned
// events and predicts their performance from historical campaign
// results, a purchasable media catalog, and marketer-contributed
// knowledge rules.
//
// The server initializes components in the following order:
//
//  1. Configuration: koanf v2 layered defaults, YAML file, environment
//  2. Database: DuckDB store for history, media, and knowledge
//  3. Engine: the recommendation pipeline over the store
//  4. Refresh bus: in-process pub/sub for dataset-changed events
//  5. HTTP server: chi REST API with Prometheus metrics
//
// All components run under a suture supervision tree; SIGINT/SIGTERM
// trigger graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/mfujimot/funnelcast/internal/api"
	"github.com/mfujimot/funnelcast/internal/config"
	"github.com/mfujimot/funnelcast/internal/database"
	"github.com/mfujimot/funnelcast/internal/engine"
	"github.com/mfujimot/funnelcast/internal/extract"
	"github.com/mfujimot/funnelcast/internal/logging"
	"github.com/mfujimot/funnelcast/internal/metrics"
	"github.com/mfujimot/funnelcast/internal/refresh"
	"github.com/mfujimot/funnelcast/internal/supervisor"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("db_path", cfg.Database.Path).
		Str("listen", cfg.Server.ListenAddr()).
		Msg("starting funnelcast")

	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing database")
		}
	}()

	if cfg.Database.SeedSampleData {
		logging.Info().Msg("sample data seeding enabled (SEED_SAMPLE_DATA=true)")
		if err := db.SeedSampleData(context.Background()); err != nil {
			logging.Error().Err(err).Msg("failed to seed sample data")
			return
		}
	}

	store := database.NewStore(db, &cfg.Database)

	eng, err := engine.New(store, &cfg.Engine, logging.WithComponent("engine"))
	if err != nil {
		logging.Error().Err(err).Msg("failed to create recommendation engine")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := refresh.NewBus(&cfg.Refresh, refresh.NewLoggerAdapter())
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing refresh bus")
		}
	}()

	handler := api.NewHandler(eng, db, bus, extract.NewJSONExtractor())
	router := api.NewRouter(handler, &cfg.Server)

	server := &http.Server{
		Addr:              cfg.Server.ListenAddr(),
		Handler:           router.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(refresh.NewRefresher(bus, eng, db))
	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))

	stopUptime := make(chan struct{})
	metrics.StartUptimeTracking(15*time.Second, stopUptime)
	defer close(stopUptime)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
	}

	logging.Info().Msg("stopped gracefully")
}
