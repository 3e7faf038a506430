// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

// Package metrics provides Prometheus instrumentation for Semantune:
// recommendation latency and outcomes, profile builds, store operations,
// play event flow, and API endpoint throughput. All collectors register
// on the default registry via promauto and are served at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation engine metrics.
	RecommendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"outcome"}, // "ok", "empty", "error"
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_duration_seconds",
			Help:    "End-to-end recommendation latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	RecommendMemoHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_memo_hits_total",
			Help: "Total number of recommendation memo cache hits",
		},
	)

	RecommendMemoMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_memo_misses_total",
			Help: "Total number of recommendation memo cache misses",
		},
	)

	RecommendCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_candidates",
			Help:    "Number of candidates surviving filtering per request",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8), // 10 .. ~163k
		},
	)

	// Profile builder metrics.
	ProfileBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_builds_total",
			Help: "Total number of taste profile builds",
		},
		[]string{"outcome"}, // "ok", "empty", "error"
	)

	ProfileBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "profile_build_duration_seconds",
			Help:    "Taste profile build latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Embedded store metrics.
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Total number of embedded store operations",
		},
		[]string{"store", "operation", "success"}, // store: "catalog", "signals"
	)

	StoreEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "store_entries",
			Help: "Current number of entries per embedded store",
		},
		[]string{"store"},
	)

	// Play event metrics.
	EventsPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "play_events_published_total",
			Help: "Total number of play events published to the bus",
		},
	)

	EventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "play_events_consumed_total",
			Help: "Total number of play events consumed from the bus",
		},
		[]string{"success"},
	)

	// API endpoint metrics.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)
)

// RecordRecommendRequest records one recommendation request.
func RecordRecommendRequest(outcome string, duration time.Duration, candidates int) {
	RecommendRequestsTotal.WithLabelValues(outcome).Inc()
	RecommendDuration.Observe(duration.Seconds())
	if candidates > 0 {
		RecommendCandidates.Observe(float64(candidates))
	}
}

// RecordProfileBuild records one taste profile build.
func RecordProfileBuild(outcome string, duration time.Duration) {
	ProfileBuildsTotal.WithLabelValues(outcome).Inc()
	ProfileBuildDuration.Observe(duration.Seconds())
}

// RecordStoreOperation records one embedded store operation.
func RecordStoreOperation(store, operation string, err error) {
	success := "true"
	if err != nil {
		success = "false"
	}
	StoreOperationsTotal.WithLabelValues(store, operation, success).Inc()
}

// SetStoreEntries updates the entry gauge for a store.
func SetStoreEntries(store string, count int64) {
	StoreEntries.WithLabelValues(store).Set(float64(count))
}

// RecordEventPublished records a play event publication.
func RecordEventPublished() {
	EventsPublishedTotal.Inc()
}

// RecordEventConsumed records a play event consumption.
func RecordEventConsumed(err error) {
	success := "true"
	if err != nil {
		success = "false"
	}
	EventsConsumedTotal.WithLabelValues(success).Inc()
}

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
