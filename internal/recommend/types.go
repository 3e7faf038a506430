// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package recommend

import (
	"context"
	"sort"
	"time"

	"github.com/RiverAge/semantune/internal/vocab"
)

// Track is a catalog entry with validated semantic tags. The core treats
// tracks as read-only; tags have already passed whitelist validation in
// the tagging pipeline.
type Track struct {
	// ID is the unique track identifier (media file ID).
	ID string `json:"id"`

	// Title is the track title.
	Title string `json:"title"`

	// Artist is the primary artist name.
	Artist string `json:"artist"`

	// Album is the album name.
	Album string `json:"album"`

	// Tags maps dimension -> tag values (single or multi valued).
	Tags map[string][]string `json:"tags"`

	// Confidence is the classifier confidence for the tag set (0-1).
	Confidence float64 `json:"confidence,omitempty"`
}

// TagValues returns the tag values for a dimension, nil if untagged.
func (t *Track) TagValues(dimension string) []string {
	return t.Tags[dimension]
}

// Tagged reports whether the track carries at least one non-placeholder tag.
func (t *Track) Tagged() bool {
	for _, values := range t.Tags {
		for _, v := range values {
			if !vocab.IsPlaceholder(v) {
				return true
			}
		}
	}
	return false
}

// PlaySignal is the per-(user, track) listening signal.
type PlaySignal struct {
	// PlayCount is the total number of plays (>= 0).
	PlayCount int `json:"play_count"`

	// Starred indicates the user has favorited the track.
	Starred bool `json:"starred"`

	// LastPlayed is the most recent play time. The zero value means the
	// timestamp is absent or was unparseable; decay then bottoms out at
	// the configured minimum.
	LastPlayed time.Time `json:"last_played,omitempty"`

	// PlaylistCount is the number of the user's playlists containing the
	// track (>= 0).
	PlaylistCount int `json:"playlist_count,omitempty"`
}

// TrackVector is a multi-hot vector over tag values: 1.0 for every
// non-placeholder tag the track carries. Unnormalized by design.
type TrackVector map[string]float64

// Vectorize converts a track's tags into a TrackVector. Placeholder
// values and values outside the vocabulary are excluded.
func Vectorize(t *Track, voc *vocab.Vocabulary) TrackVector {
	vec := make(TrackVector)
	for dim, values := range t.Tags {
		for _, v := range values {
			if vocab.IsPlaceholder(v) {
				continue
			}
			if !voc.Contains(dim, v) {
				continue
			}
			vec[v] = 1.0
		}
	}
	return vec
}

// TasteVector is a user's normalized preference distribution over tag
// values, bucketed by dimension. All weights are in [0, 1] and sum to 1
// across the whole vector (or the vector is empty). Derived fresh per
// request; never persisted.
type TasteVector map[string]map[string]float64

// Weight returns the taste weight for a value in a dimension, 0 if absent.
func (tv TasteVector) Weight(dimension, value string) float64 {
	return tv[dimension][value]
}

// IsZero reports whether the vector carries no weight at all.
func (tv TasteVector) IsZero() bool {
	for _, bucket := range tv {
		for _, w := range bucket {
			if w > 0 {
				return false
			}
		}
	}
	return true
}

// TagWeight pairs a tag value with its taste weight, for presentation.
type TagWeight struct {
	Value  string  `json:"value"`
	Weight float64 `json:"weight"`
}

// Ranked returns a dimension's bucket sorted by descending weight (ties
// broken by value for stable output). Presentation only; scoring does not
// depend on ordering.
func (tv TasteVector) Ranked(dimension string) []TagWeight {
	bucket := tv[dimension]
	out := make([]TagWeight, 0, len(bucket))
	for value, w := range bucket {
		out = append(out, TagWeight{Value: value, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Profile is a user's taste vector plus advisory listening statistics.
type Profile struct {
	// UserID is the user the profile describes.
	UserID string `json:"user_id"`

	// Taste is the normalized preference distribution.
	Taste TasteVector `json:"taste"`

	// Stats summarizes the signals that produced the profile.
	Stats ProfileStats `json:"stats"`

	// GeneratedAt is when the profile was built.
	GeneratedAt time.Time `json:"generated_at"`
}

// ProfileStats summarizes the raw signals behind a profile.
type ProfileStats struct {
	// TotalPlays is the sum of play counts across signal tracks.
	TotalPlays int `json:"total_plays"`

	// StarredCount is the number of starred tracks in the signal set.
	StarredCount int `json:"starred_count"`

	// PlaylistTracks is the number of distinct tracks in the user's playlists.
	PlaylistTracks int `json:"playlist_tracks"`

	// UniqueTracks is the size of the union of play and playlist tracks.
	UniqueTracks int `json:"unique_tracks"`

	// TaggedTracks is how many signal tracks had usable tags.
	TaggedTracks int `json:"tagged_tracks"`

	// SkippedTracks is how many signal tracks lacked tags entirely.
	SkippedTracks int `json:"skipped_tracks"`
}

// ScoredCandidate is a transient (track, similarity) pair produced by the
// scoring stage. Discarded at the end of each Recommend call.
type ScoredCandidate struct {
	Track      Track   `json:"track"`
	Similarity float64 `json:"similarity"`
}

// Recommendation is one entry of the final ranked output.
type Recommendation struct {
	// Track is the recommended track's metadata.
	Track Track `json:"track"`

	// Similarity is the bounded [0, 1] match against the user's taste.
	Similarity float64 `json:"similarity"`

	// Rank is the 1-based position in the final list.
	Rank int `json:"rank"`
}

// SignalProvider supplies per-user listening signals. Implementations are
// read-only external collaborators; a missing user yields empty maps, not
// an error.
type SignalProvider interface {
	// GetPlayHistory returns play signals keyed by track ID.
	GetPlayHistory(ctx context.Context, userID string) (map[string]PlaySignal, error)

	// GetPlaylistMemberships returns, per track ID, the number of the
	// user's playlists containing the track.
	GetPlaylistMemberships(ctx context.Context, userID string) (map[string]int, error)

	// GetRecentlyPlayed returns the user's most recently played track
	// IDs, bounded by window.
	GetRecentlyPlayed(ctx context.Context, userID string, window int) (map[string]struct{}, error)
}

// CatalogProvider supplies the tagged track catalog.
type CatalogProvider interface {
	// GetCatalog returns every tagged track.
	GetCatalog(ctx context.Context) ([]Track, error)

	// GetTracks returns tracks by ID; IDs without catalog entries are
	// simply absent from the result.
	GetTracks(ctx context.Context, ids []string) (map[string]Track, error)
}

// Request is a single recommendation request.
type Request struct {
	// UserID is the user to recommend for.
	UserID string `json:"user_id"`

	// Limit is the maximum number of recommendations. Defaults to
	// Config.Limits.DefaultLimit when zero, capped at MaxLimit.
	Limit int `json:"limit,omitempty"`

	// FilterRecent additionally excludes recently played tracks.
	FilterRecent bool `json:"filter_recent"`

	// Diversity enables per-artist/per-album capped selection.
	Diversity bool `json:"diversity"`

	// RequestID is a unique identifier for tracing; generated if empty.
	RequestID string `json:"request_id,omitempty"`
}

// Response is the result of a recommendation request.
type Response struct {
	// Recommendations is the final list, sorted by descending similarity.
	Recommendations []Recommendation `json:"recommendations"`

	// TotalCandidates is the number of tracks that survived filtering.
	TotalCandidates int `json:"total_candidates"`

	// Metadata carries timing and diagnostic information.
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata carries timing and diagnostic information.
type ResponseMetadata struct {
	// RequestID is the unique request identifier.
	RequestID string `json:"request_id"`

	// UserID is the user the recommendations are for.
	UserID string `json:"user_id"`

	// LatencyMS is the total recommendation latency in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// MemoHit indicates the response came from the advisory memo cache.
	MemoHit bool `json:"memo_hit"`

	// Timestamp is when the response was generated.
	Timestamp time.Time `json:"timestamp"`
}
