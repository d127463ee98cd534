// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mfujimot/funnelcast/internal/config"
	"github.com/mfujimot/funnelcast/internal/middleware"
)

// Router assembles the HTTP routes and middleware stack.
type Router struct {
	handler *Handler
	cfg     *config.ServerConfig
}

// NewRouter creates the API router.
func NewRouter(handler *Handler, cfg *config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Routes builds the chi handler tree.
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.PrometheusMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))

	// Operational endpoints stay outside the rate limiter so probes and
	// scrapes never get throttled.
	r.Get("/healthz", rt.handler.HealthLive)
	r.Get("/readyz", rt.handler.HealthReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if !rt.cfg.RateLimitDisabled {
			requests := rt.cfg.RateLimitReqs
			if requests <= 0 {
				requests = 100
			}
			window := rt.cfg.RateLimitWindow
			if window <= 0 {
				window = time.Minute
			}
			r.Use(httprate.LimitByRealIP(requests, window))
		}

		r.Post("/recommendations", rt.handler.Recommend)
		r.Get("/recommendations/config", rt.handler.GetEngineConfig)
		r.Put("/recommendations/config", rt.handler.UpdateEngineConfig)

		r.Post("/history/refresh", rt.handler.RefreshHistory)
		r.Get("/history/stats", rt.handler.HistoryStats)
		r.Post("/history/documents", rt.handler.UploadDocuments)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("no such endpoint")
	})

	return r
}
