// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

// Package api exposes the Semantune HTTP API: recommendations, taste
// profiles, play ingestion, catalog sync, and health/metrics endpoints.
// Routing is chi with a middleware stack of request IDs, structured
// access logging, Prometheus instrumentation, CORS, and rate limiting.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/RiverAge/semantune/internal/config"
)

// NewRouter assembles the full route tree.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRouter(cfg config.APIConfig, handler *Handler, logger zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(accessLog(logger))
	r.Use(instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		MaxAge:         300,
	}))
	if cfg.RateLimitReqs > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
	}
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/recommendations", handler.GetRecommendations)
		r.Get("/profile/{userID}", handler.GetProfile)
		r.Post("/plays", handler.PostPlay)
		r.Put("/stars/{userID}/{trackID}", handler.PutStar)
		r.Put("/playlists/{userID}/{trackID}", handler.PutPlaylistMembership)

		r.Route("/catalog", func(r chi.Router) {
			r.Put("/tracks", handler.PutCatalogTracks)
			r.Get("/tracks/{trackID}", handler.GetCatalogTrack)
			r.Delete("/tracks/{trackID}", handler.DeleteCatalogTrack)
		})

		r.Get("/status", handler.GetStatus)
		r.Route("/health", func(r chi.Router) {
			r.Get("/", handler.GetHealthReady)
			r.Get("/live", handler.GetHealthLive)
			r.Get("/ready", handler.GetHealthReady)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
