// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package recommend

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RiverAge/semantune/internal/vocab"
)

// defaultSeed keeps exploration reproducible when no seed is configured.
const defaultSeed = 42

// Engine orchestrates the recommendation pipeline: profile building,
// scoring, filtering, sampling, and diversity selection. It is safe for
// concurrent use; all per-request state is request-scoped, and the only
// cross-request state is the advisory memo cache.
type Engine struct {
	config  *Config
	logger  zerolog.Logger
	signals SignalProvider
	catalog CatalogProvider
	voc     *vocab.Vocabulary

	builder *ProfileBuilder
	sampler *Sampler

	// Advisory memo cache: a miss is functionally equivalent to a hit.
	memo   map[string]memoEntry
	memoMu sync.RWMutex

	requestCount atomic.Int64
	memoHits     atomic.Int64
	memoMisses   atomic.Int64
	errorCount   atomic.Int64
}

// memoEntry holds a memoized recommendation response.
type memoEntry struct {
	response  *Response
	expiresAt time.Time
}

// Metrics contains engine counters for observability.
type Metrics struct {
	// RequestCount is the total number of recommendation requests.
	RequestCount int64 `json:"request_count"`

	// MemoHits is the number of memo cache hits.
	MemoHits int64 `json:"memo_hits"`

	// MemoMisses is the number of memo cache misses.
	MemoMisses int64 `json:"memo_misses"`

	// ErrorCount is the total number of failed requests.
	ErrorCount int64 `json:"error_count"`
}

// NewEngine creates a recommendation engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, signals SignalProvider, catalog CatalogProvider, voc *vocab.Vocabulary, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if signals == nil {
		return nil, fmt.Errorf("signal provider not set")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog provider not set")
	}
	if voc == nil {
		voc = vocab.Default()
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = defaultSeed
	}

	engineLogger := logger.With().Str("component", "recommend").Logger()

	return &Engine{
		config:  cfg,
		logger:  engineLogger,
		signals: signals,
		catalog: catalog,
		voc:     voc,
		builder: NewProfileBuilder(signals, catalog, voc, cfg.Signal, engineLogger),
		sampler: NewSampler(cfg.Sampler, rand.New(rand.NewSource(seed))), //nolint:gosec // math/rand is fine for exploration shuffling
		memo:    make(map[string]memoEntry),
	}, nil
}

// Recommend generates recommendations for a user. No results is not an
// error: an empty signal, empty catalog, or fully filtered candidate set
// all yield an empty response. Collaborator failures propagate unchanged.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	e.requestCount.Add(1)

	req = e.prepareRequest(req)
	logger := e.logger.With().
		Str("request_id", req.RequestID).
		Str("user_id", req.UserID).
		Logger()
	logger.Debug().
		Int("limit", req.Limit).
		Bool("filter_recent", req.FilterRecent).
		Bool("diversity", req.Diversity).
		Msg("processing recommendation request")

	if resp := e.checkMemo(req, start); resp != nil {
		logger.Debug().Msg("memo hit")
		return resp, nil
	}

	profile, err := e.builder.Build(ctx, req.UserID)
	if err != nil {
		e.errorCount.Add(1)
		return nil, fmt.Errorf("build profile: %w", err)
	}

	// Empty signal recovers locally to an empty result set: with no
	// taste to match against there is nothing meaningful to rank.
	if profile.Taste.IsZero() {
		logger.Debug().Msg("empty signal, returning no recommendations")
		return e.emptyResponse(req, start), nil
	}

	candidates, err := e.gatherCandidates(ctx, req)
	if err != nil {
		e.errorCount.Add(1)
		return nil, err
	}
	if len(candidates) == 0 {
		logger.Debug().Msg("no candidates after filtering")
		return e.emptyResponse(req, start), nil
	}

	ranked := e.scoreCandidates(profile.Taste, candidates)

	pool := ranked
	if len(ranked) > req.Limit && e.config.Sampler.ExplorationRatio > 0 {
		exploitation, exploration := e.sampler.Split(ranked, req.Limit)
		pool = make([]ScoredCandidate, 0, len(exploitation)+len(exploration))
		pool = append(pool, exploitation...)
		// The band can overlap the over-fetched exploitation pool; skip
		// exploration picks already present so the pool stays duplicate-free.
		pooled := make(map[string]struct{}, len(exploitation))
		for _, c := range exploitation {
			pooled[c.Track.ID] = struct{}{}
		}
		for _, c := range exploration {
			if _, ok := pooled[c.Track.ID]; ok {
				continue
			}
			pool = append(pool, c)
		}
	}

	var recs []Recommendation
	if req.Diversity {
		recs = SelectDiverse(pool, req.Limit, e.config.Diversity.MaxPerArtist, e.config.Diversity.MaxPerAlbum)
	} else {
		recs = topN(pool, req.Limit)
	}

	resp := &Response{
		Recommendations: recs,
		TotalCandidates: len(candidates),
		Metadata: ResponseMetadata{
			RequestID: req.RequestID,
			UserID:    req.UserID,
			LatencyMS: time.Since(start).Milliseconds(),
			Timestamp: time.Now(),
		},
	}
	e.storeMemo(req, resp)

	logger.Debug().
		Int("candidates", len(candidates)).
		Int("returned", len(recs)).
		Int64("latency_ms", resp.Metadata.LatencyMS).
		Msg("recommendation complete")

	return resp, nil
}

// BuildProfile exposes the profile builder for the profile endpoint.
func (e *Engine) BuildProfile(ctx context.Context, userID string) (*Profile, error) {
	return e.builder.Build(ctx, userID)
}

// GetMetrics returns the engine's request counters.
func (e *Engine) GetMetrics() Metrics {
	return Metrics{
		RequestCount: e.requestCount.Load(),
		MemoHits:     e.memoHits.Load(),
		MemoMisses:   e.memoMisses.Load(),
		ErrorCount:   e.errorCount.Load(),
	}
}

// GetConfig returns a copy of the engine configuration.
func (e *Engine) GetConfig() *Config {
	return e.config.Clone()
}

// prepareRequest applies limit defaults and generates a request ID.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(req Request) Request {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.Limit <= 0 {
		req.Limit = e.config.Limits.DefaultLimit
	}
	if req.Limit > e.config.Limits.MaxLimit {
		req.Limit = e.config.Limits.MaxLimit
	}
	return req
}

// gatherCandidates loads the catalog and removes played/recent tracks.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) gatherCandidates(ctx context.Context, req Request) ([]Track, error) {
	history, err := e.signals.GetPlayHistory(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("get play history: %w", err)
	}
	alreadyPlayed := make(map[string]struct{}, len(history))
	for id, sig := range history {
		if sig.PlayCount > 0 {
			alreadyPlayed[id] = struct{}{}
		}
	}

	var recentlyPlayed map[string]struct{}
	if req.FilterRecent {
		recentlyPlayed, err = e.signals.GetRecentlyPlayed(ctx, req.UserID, e.config.Limits.RecentWindow)
		if err != nil {
			return nil, fmt.Errorf("get recently played: %w", err)
		}
	}

	catalog, err := e.catalog.GetCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("get catalog: %w", err)
	}

	return FilterCandidates(catalog, alreadyPlayed, recentlyPlayed, req.FilterRecent), nil
}

// scoreCandidates scores every candidate and sorts descending by
// similarity. The sort is stable over catalog order so equal scores keep
// a deterministic ranking.
func (e *Engine) scoreCandidates(taste TasteVector, candidates []Track) []ScoredCandidate {
	ranked := make([]ScoredCandidate, 0, len(candidates))
	for i := range candidates {
		vec := Vectorize(&candidates[i], e.voc)
		ranked = append(ranked, ScoredCandidate{
			Track:      candidates[i],
			Similarity: Score(taste, vec, e.config.Dimensions),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	return ranked
}

// topN converts the best limit candidates into ranked recommendations.
// The pool is re-sorted first: appended exploration picks are not in
// ranking order.
func topN(pool []ScoredCandidate, limit int) []Recommendation {
	sorted := make([]ScoredCandidate, len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Similarity > sorted[j].Similarity
	})

	if limit > len(sorted) {
		limit = len(sorted)
	}
	out := make([]Recommendation, limit)
	for i := 0; i < limit; i++ {
		out[i] = Recommendation{
			Track:      sorted[i].Track,
			Similarity: sorted[i].Similarity,
			Rank:       i + 1,
		}
	}
	return out
}

// emptyResponse builds a response with no recommendations.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) emptyResponse(req Request, start time.Time) *Response {
	return &Response{
		Recommendations: []Recommendation{},
		TotalCandidates: 0,
		Metadata: ResponseMetadata{
			RequestID: req.RequestID,
			UserID:    req.UserID,
			LatencyMS: time.Since(start).Milliseconds(),
			Timestamp: time.Now(),
		},
	}
}

// memoKey builds the memo cache key for a request. The request ID is
// excluded: two requests differing only in ID are the same computation.
//
//nolint:gocritic // hugeParam: req passed by value for simplicity
func (e *Engine) memoKey(req Request) string {
	return fmt.Sprintf("rec:%s:%d:%t:%t", req.UserID, req.Limit, req.FilterRecent, req.Diversity)
}

// checkMemo returns a copy of a valid memoized response, or nil.
//
//nolint:gocritic // hugeParam: req passed by value for simplicity
func (e *Engine) checkMemo(req Request, start time.Time) *Response {
	if !e.config.Memo.Enabled {
		return nil
	}

	e.memoMu.RLock()
	entry, ok := e.memo[e.memoKey(req)]
	e.memoMu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		e.memoMisses.Add(1)
		return nil
	}
	e.memoHits.Add(1)

	recs := make([]Recommendation, len(entry.response.Recommendations))
	copy(recs, entry.response.Recommendations)

	return &Response{
		Recommendations: recs,
		TotalCandidates: entry.response.TotalCandidates,
		Metadata: ResponseMetadata{
			RequestID: req.RequestID,
			UserID:    req.UserID,
			LatencyMS: time.Since(start).Milliseconds(),
			MemoHit:   true,
			Timestamp: time.Now(),
		},
	}
}

// storeMemo memoizes a response if the memo is enabled.
//
//nolint:gocritic // hugeParam: req passed by value for simplicity
func (e *Engine) storeMemo(req Request, resp *Response) {
	if !e.config.Memo.Enabled {
		return
	}

	e.memoMu.Lock()
	defer e.memoMu.Unlock()

	if len(e.memo) >= e.config.Memo.MaxEntries {
		now := time.Now()
		for key, entry := range e.memo {
			if now.After(entry.expiresAt) {
				delete(e.memo, key)
			}
		}
		// Still full of live entries: drop the memo rather than grow.
		if len(e.memo) >= e.config.Memo.MaxEntries {
			return
		}
	}

	e.memo[e.memoKey(req)] = memoEntry{
		response:  resp,
		expiresAt: time.Now().Add(e.config.Memo.TTL),
	}
}

// InvalidateMemo clears the advisory memo cache, e.g. after a signal
// store update. Safe to call at any time; a cleared memo only costs a
// recomputation.
func (e *Engine) InvalidateMemo() {
	e.memoMu.Lock()
	defer e.memoMu.Unlock()
	e.memo = make(map[string]memoEntry)
}
