// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/RiverAge/semantune/internal/vocab"
)

// ProfileBuilder folds a user's listening signals into a taste vector.
// Profiles are built fresh per request; the builder holds no per-user
// state and is safe for concurrent use.
type ProfileBuilder struct {
	signals SignalProvider
	catalog CatalogProvider
	voc     *vocab.Vocabulary
	weights SignalWeights
	logger  zerolog.Logger

	// now is injectable so decay tests can pin the clock.
	now func() time.Time
}

// NewProfileBuilder creates a profile builder.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewProfileBuilder(signals SignalProvider, catalog CatalogProvider, voc *vocab.Vocabulary, weights SignalWeights, logger zerolog.Logger) *ProfileBuilder {
	return &ProfileBuilder{
		signals: signals,
		catalog: catalog,
		voc:     voc,
		weights: weights,
		logger:  logger.With().Str("component", "profile").Logger(),
		now:     time.Now,
	}
}

// Build constructs the user's taste vector from play history and playlist
// memberships. A user with no signals yields an all-zero profile, not an
// error; collaborator failures propagate unchanged.
func (b *ProfileBuilder) Build(ctx context.Context, userID string) (*Profile, error) {
	history, err := b.signals.GetPlayHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get play history: %w", err)
	}

	playlists, err := b.signals.GetPlaylistMemberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get playlist memberships: %w", err)
	}

	// Union of play-history and playlist track IDs, sorted so the
	// accumulation order is stable and identical inputs produce
	// bit-identical profiles.
	ids := unionTrackIDs(history, playlists)

	tracks, err := b.catalog.GetTracks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get tracks: %w", err)
	}

	taste := make(TasteVector)
	stats := ProfileStats{
		PlaylistTracks: len(playlists),
		UniqueTracks:   len(ids),
	}

	var total float64
	for _, id := range ids {
		track, ok := tracks[id]
		if !ok || !track.Tagged() {
			stats.SkippedTracks++
			continue
		}

		sig := history[id]
		sig.PlaylistCount = playlists[id]
		weight := b.trackWeight(sig)

		// Single accumulation pass: bucket by dimension while summing,
		// so no second vocabulary re-scan is needed after normalization.
		for dim, values := range track.Tags {
			for _, v := range values {
				if vocab.IsPlaceholder(v) {
					continue
				}
				if !b.voc.Contains(dim, v) {
					// Unvalidated stragglers are dropped, not fatal.
					continue
				}
				bucket := taste[dim]
				if bucket == nil {
					bucket = make(map[string]float64)
					taste[dim] = bucket
				}
				bucket[v] += weight
				total += weight
			}
		}

		stats.TotalPlays += sig.PlayCount
		if sig.Starred {
			stats.StarredCount++
		}
		stats.TaggedTracks++
	}

	if total > 0 {
		for _, bucket := range taste {
			for v := range bucket {
				bucket[v] /= total
			}
		}
	}

	b.logger.Debug().
		Str("user_id", userID).
		Int("unique_tracks", stats.UniqueTracks).
		Int("tagged", stats.TaggedTracks).
		Int("skipped", stats.SkippedTracks).
		Msg("profile built")

	return &Profile{
		UserID:      userID,
		Taste:       taste,
		Stats:       stats,
		GeneratedAt: b.now(),
	}, nil
}

// trackWeight computes the combined signal weight for one track:
// plays, star bonus, and playlist bonus, scaled by time decay.
func (b *ProfileBuilder) trackWeight(sig PlaySignal) float64 {
	w := float64(sig.PlayCount) * b.weights.PlayCount
	if sig.Starred {
		w += b.weights.Starred
	}
	if sig.PlaylistCount > 0 {
		w += b.weights.Playlist * float64(sig.PlaylistCount)
	}
	return w * b.decay(sig.LastPlayed)
}

// decay returns the time-decay factor in [MinDecay, 1]. An absent
// timestamp bottoms out at the floor; a future timestamp clamps to 1.
func (b *ProfileBuilder) decay(lastPlayed time.Time) float64 {
	if lastPlayed.IsZero() {
		return b.weights.MinDecay
	}
	days := b.now().Sub(lastPlayed).Hours() / 24
	d := 1 - days/b.weights.DecayWindowDays
	if d < b.weights.MinDecay {
		return b.weights.MinDecay
	}
	if d > 1 {
		return 1
	}
	return d
}

// unionTrackIDs merges the key sets of both signal maps, sorted.
func unionTrackIDs(history map[string]PlaySignal, playlists map[string]int) []string {
	seen := make(map[string]struct{}, len(history)+len(playlists))
	ids := make([]string, 0, len(history)+len(playlists))
	for id := range history {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for id := range playlists {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
