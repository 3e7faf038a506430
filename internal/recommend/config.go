// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package recommend

import (
	"fmt"
	"time"

	"github.com/RiverAge/semantune/internal/vocab"
)

// Config contains all configuration for the recommendation engine.
// Validation happens once in NewEngine; the scoring path still guards
// against degenerate weight sets defensively.
type Config struct {
	// Signal controls how listening signals fold into a taste vector.
	Signal SignalWeights `json:"signal"`

	// Dimensions maps dimension name -> scoring weight. Weights must be
	// non-negative and at least one must be positive.
	Dimensions map[string]float64 `json:"dimensions"`

	// Sampler controls the exploitation/exploration split.
	Sampler SamplerConfig `json:"sampler"`

	// Diversity controls per-artist/per-album caps.
	Diversity DiversityConfig `json:"diversity"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits"`

	// Memo controls the advisory response memo cache. A miss is
	// functionally equivalent to a hit.
	Memo MemoConfig `json:"memo"`

	// Seed is the random seed for the exploration sampler and request ID
	// suffixes. Zero selects a fixed default for reproducibility.
	Seed int64 `json:"seed"`
}

// SignalWeights controls taste vector accumulation and time decay.
type SignalWeights struct {
	// PlayCount is the weight contributed per play.
	PlayCount float64 `json:"play_count"`

	// Starred is the fixed bonus for a starred track.
	Starred float64 `json:"starred"`

	// Playlist is the bonus per playlist membership.
	Playlist float64 `json:"playlist"`

	// DecayWindowDays is the span over which a play's weight decays
	// linearly toward MinDecay.
	DecayWindowDays float64 `json:"decay_window_days"`

	// MinDecay is the decay floor in (0, 1]. Absent or unparseable
	// timestamps decay straight to this floor.
	MinDecay float64 `json:"min_decay"`
}

// SamplerConfig controls the exploitation/exploration split.
type SamplerConfig struct {
	// ExplorationRatio is the fraction of the limit reserved for
	// exploration picks, in [0, 1]. Zero disables exploration.
	ExplorationRatio float64 `json:"exploration_ratio"`

	// PoolMultiplier over-fetches the exploitation pool so the diversity
	// selector has slack to skip capped candidates.
	PoolMultiplier int `json:"pool_multiplier"`

	// BandStart and BandEnd bound the mid-percentile band (fractions of
	// the ranked list) the exploration sample is drawn from. The band
	// deliberately avoids the tail so discovery never surfaces the worst
	// matches.
	BandStart float64 `json:"band_start"`
	BandEnd   float64 `json:"band_end"`
}

// DiversityConfig controls the greedy capped selection.
type DiversityConfig struct {
	// MaxPerArtist caps recommendations sharing an artist.
	MaxPerArtist int `json:"max_per_artist"`

	// MaxPerAlbum caps recommendations sharing an (artist, album) pair.
	MaxPerAlbum int `json:"max_per_album"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// DefaultLimit is used when a request does not specify a limit.
	DefaultLimit int `json:"default_limit"`

	// MaxLimit caps requested limits.
	MaxLimit int `json:"max_limit"`

	// RecentWindow is how many recently played tracks the recent filter
	// considers.
	RecentWindow int `json:"recent_window"`
}

// MemoConfig controls the advisory response memo cache.
type MemoConfig struct {
	// Enabled turns the memo on.
	Enabled bool `json:"enabled"`

	// TTL is how long a memo entry stays valid.
	TTL time.Duration `json:"ttl"`

	// MaxEntries bounds the memo size; expired entries are evicted when
	// the bound is hit.
	MaxEntries int `json:"max_entries"`
}

// DefaultConfig returns the stock configuration. The constants mirror the
// tuning the tagging pipeline ships with: mood dominates scoring, stars
// and playlist membership outweigh individual plays, and a play's
// influence fades over a 90 day window down to a 0.3 floor.
func DefaultConfig() *Config {
	return &Config{
		Signal: SignalWeights{
			PlayCount:       1.0,
			Starred:         10.0,
			Playlist:        8.0,
			DecayWindowDays: 90,
			MinDecay:        0.3,
		},
		Dimensions: map[string]float64{
			vocab.DimMood:   2.0,
			vocab.DimEnergy: 1.5,
			vocab.DimGenre:  1.2,
			vocab.DimRegion: 0.8,
		},
		Sampler: SamplerConfig{
			ExplorationRatio: 0.25,
			PoolMultiplier:   3,
			BandStart:        0.25,
			BandEnd:          0.50,
		},
		Diversity: DiversityConfig{
			MaxPerArtist: 1,
			MaxPerAlbum:  1,
		},
		Limits: LimitsConfig{
			DefaultLimit: 30,
			MaxLimit:     200,
			RecentWindow: 100,
		},
		Memo: MemoConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 256,
		},
	}
}

// Validate checks the configuration for degenerate values.
func (c *Config) Validate() error {
	if c.Signal.PlayCount < 0 || c.Signal.Starred < 0 || c.Signal.Playlist < 0 {
		return fmt.Errorf("signal weights must be non-negative")
	}
	if c.Signal.DecayWindowDays <= 0 {
		return fmt.Errorf("decay_window_days must be positive, got %v", c.Signal.DecayWindowDays)
	}
	if c.Signal.MinDecay <= 0 || c.Signal.MinDecay > 1 {
		return fmt.Errorf("min_decay must be in (0, 1], got %v", c.Signal.MinDecay)
	}

	var weightSum float64
	for dim, w := range c.Dimensions {
		if w < 0 {
			return fmt.Errorf("dimension weight %q must be non-negative, got %v", dim, w)
		}
		weightSum += w
	}
	if weightSum == 0 {
		return fmt.Errorf("at least one dimension weight must be positive")
	}

	if c.Sampler.ExplorationRatio < 0 || c.Sampler.ExplorationRatio > 1 {
		return fmt.Errorf("exploration_ratio must be in [0, 1], got %v", c.Sampler.ExplorationRatio)
	}
	if c.Sampler.PoolMultiplier < 1 {
		return fmt.Errorf("pool_multiplier must be >= 1, got %d", c.Sampler.PoolMultiplier)
	}
	if c.Sampler.BandStart < 0 || c.Sampler.BandEnd > 1 || c.Sampler.BandStart >= c.Sampler.BandEnd {
		return fmt.Errorf("exploration band [%v, %v) must satisfy 0 <= start < end <= 1",
			c.Sampler.BandStart, c.Sampler.BandEnd)
	}

	if c.Diversity.MaxPerArtist < 1 {
		return fmt.Errorf("max_per_artist must be >= 1, got %d", c.Diversity.MaxPerArtist)
	}
	if c.Diversity.MaxPerAlbum < 1 {
		return fmt.Errorf("max_per_album must be >= 1, got %d", c.Diversity.MaxPerAlbum)
	}

	if c.Limits.DefaultLimit < 1 {
		return fmt.Errorf("default_limit must be >= 1, got %d", c.Limits.DefaultLimit)
	}
	if c.Limits.MaxLimit < c.Limits.DefaultLimit {
		return fmt.Errorf("max_limit %d must be >= default_limit %d", c.Limits.MaxLimit, c.Limits.DefaultLimit)
	}
	if c.Limits.RecentWindow < 0 {
		return fmt.Errorf("recent_window must be >= 0, got %d", c.Limits.RecentWindow)
	}

	if c.Memo.Enabled {
		if c.Memo.TTL <= 0 {
			return fmt.Errorf("memo ttl must be positive when memo is enabled")
		}
		if c.Memo.MaxEntries < 1 {
			return fmt.Errorf("memo max_entries must be >= 1 when memo is enabled")
		}
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Dimensions = make(map[string]float64, len(c.Dimensions))
	for dim, w := range c.Dimensions {
		out.Dimensions[dim] = w
	}
	return &out
}
