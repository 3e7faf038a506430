// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

// Package recommend implements the content-based recommendation core of
// Semantune.
//
// # Architecture
//
// Given a catalog of tracks pre-tagged along closed dimensions (mood,
// energy, genre, region) and per-user play/playlist signals, the engine
// produces a ranked list of suggested tracks through a fixed pipeline:
//
//   - Profile building: play history, stars, and playlist memberships are
//     folded into a decayed, normalized taste vector.
//   - Scoring: a weighted per-dimension match between the taste vector and
//     each track's multi-hot tag vector, bounded to [0, 1].
//   - Filtering: already-played and (optionally) recently-played tracks
//     are removed before scoring.
//   - Sampling: the ranked list splits into a deterministic exploitation
//     pool and a randomized exploration pool drawn from a mid-percentile
//     band.
//   - Diversity selection: greedy per-artist/per-album capped selection
//     with a back-fill pass when the pool runs short.
//
// # Design Principles
//
//   - No I/O inside scoring, sampling, or selection: collaborators are
//     consulted only at the orchestrator boundary.
//   - Request-scoped state: taste vectors and candidate lists live and die
//     within a single Recommend call. Concurrent calls need no
//     coordination beyond the advisory memo cache.
//   - Injectable randomness: exploration uses a seeded generator so tests
//     can assert membership deterministically.
//   - Fail-fast: collaborator errors propagate unchanged; empty signal and
//     empty catalog recover locally to empty results.
//
// # Usage
//
//	cfg := recommend.DefaultConfig()
//	engine, err := recommend.NewEngine(cfg, signals, catalog, vocab.Default(), logger)
//	if err != nil { ... }
//
//	resp, err := engine.Recommend(ctx, recommend.Request{
//	    UserID:       userID,
//	    Limit:        30,
//	    FilterRecent: true,
//	    Diversity:    true,
//	})
package recommend
