// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package recommend

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/RiverAge/semantune/internal/vocab"
)

func newTestBuilder(signals SignalProvider, catalog CatalogProvider, now time.Time) *ProfileBuilder {
	b := NewProfileBuilder(signals, catalog, vocab.Default(), DefaultConfig().Signal, zerolog.Nop())
	b.now = func() time.Time { return now }
	return b
}

func TestBuildProfileNormalization(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signals := &mockSignalProvider{
		history: map[string]map[string]PlaySignal{
			"u1": {
				"t1": {PlayCount: 4, LastPlayed: now},
				"t2": {PlayCount: 1, Starred: true, LastPlayed: now},
			},
		},
	}
	catalog := &mockCatalogProvider{tracks: []Track{
		makeTrack("t1", "A", "L", "Happy", "High", "Pop", ""),
		makeTrack("t2", "B", "M", "Sad", "Low", "Folk", ""),
	}}

	b := newTestBuilder(signals, catalog, now)
	p, err := b.Build(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	var sum float64
	for _, bucket := range p.Taste {
		for _, w := range bucket {
			if w < 0 || w > 1 {
				t.Errorf("taste weight %v outside [0, 1]", w)
			}
			sum += w
		}
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("taste weights sum to %v, want 1.0", sum)
	}

	// t2 carries the star bonus (1 + 10 = 11 vs 4 per tag), so its
	// values must outweigh t1's.
	if p.Taste[vocab.DimMood]["Sad"] <= p.Taste[vocab.DimMood]["Happy"] {
		t.Errorf("starred track mood weight %v not above unstarred %v",
			p.Taste[vocab.DimMood]["Sad"], p.Taste[vocab.DimMood]["Happy"])
	}
}

func TestBuildProfileIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signals := &mockSignalProvider{
		history: map[string]map[string]PlaySignal{
			"u1": {
				"t1": {PlayCount: 7, LastPlayed: now.Add(-24 * time.Hour)},
				"t2": {PlayCount: 2, Starred: true, LastPlayed: now.Add(-40 * 24 * time.Hour)},
				"t3": {PlayCount: 1, LastPlayed: now.Add(-200 * 24 * time.Hour)},
			},
		},
		playlists: map[string]map[string]int{
			"u1": {"t2": 2, "t4": 1},
		},
	}
	catalog := &mockCatalogProvider{tracks: []Track{
		makeTrack("t1", "A", "L1", "Happy", "High", "Pop", "Western"),
		makeTrack("t2", "B", "L2", "Emotional", "Low", "Folk", "Chinese"),
		makeTrack("t3", "C", "L3", "Dark", "Medium", "Metal", ""),
		makeTrack("t4", "D", "L4", "Chill", "Low", "Electronic", ""),
	}}

	b := newTestBuilder(signals, catalog, now)
	first, err := b.Build(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	second, err := b.Build(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	// Bit-identical, not merely approximately equal: the accumulation
	// order is pinned by sorted track IDs.
	if !reflect.DeepEqual(first.Taste, second.Taste) {
		t.Error("repeated builds over identical signals diverged")
	}
	if first.Stats != second.Stats {
		t.Errorf("stats diverged: %+v vs %+v", first.Stats, second.Stats)
	}
}

func TestBuildProfileMonotonicity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	catalog := &mockCatalogProvider{tracks: []Track{
		makeTrack("t1", "A", "L1", "Happy", "", "", ""),
		makeTrack("t2", "B", "L2", "Sad", "", "", ""),
	}}

	build := func(happyPlays int) *Profile {
		signals := &mockSignalProvider{
			history: map[string]map[string]PlaySignal{
				"u1": {
					"t1": {PlayCount: happyPlays, LastPlayed: now},
					"t2": {PlayCount: 3, LastPlayed: now},
				},
			},
		}
		p, err := newTestBuilder(signals, catalog, now).Build(context.Background(), "u1")
		if err != nil {
			t.Fatalf("Build() error: %v", err)
		}
		return p
	}

	before := build(2).Taste[vocab.DimMood]["Happy"]
	after := build(5).Taste[vocab.DimMood]["Happy"]
	if after < before {
		t.Errorf("Happy weight dropped from %v to %v after more plays", before, after)
	}
}

func TestBuildProfileEmptySignal(t *testing.T) {
	b := newTestBuilder(&mockSignalProvider{}, &mockCatalogProvider{}, time.Now())
	p, err := b.Build(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !p.Taste.IsZero() {
		t.Error("empty signal produced a non-zero taste vector")
	}
	if p.Stats.UniqueTracks != 0 || p.Stats.TotalPlays != 0 {
		t.Errorf("empty signal produced non-zero stats: %+v", p.Stats)
	}
}

func TestBuildProfileDropsUnknownValues(t *testing.T) {
	now := time.Now()
	track := makeTrack("t1", "A", "L", "Happy", "", "", "")
	track.Tags[vocab.DimMood] = append(track.Tags[vocab.DimMood], "Bogus", "None")
	track.Tags["tempo"] = []string{"Fast"}

	signals := &mockSignalProvider{
		history: map[string]map[string]PlaySignal{
			"u1": {"t1": {PlayCount: 1, LastPlayed: now}},
		},
	}
	catalog := &mockCatalogProvider{tracks: []Track{track}}

	p, err := newTestBuilder(signals, catalog, now).Build(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if _, ok := p.Taste[vocab.DimMood]["Bogus"]; ok {
		t.Error("out-of-vocabulary value accumulated into taste")
	}
	if _, ok := p.Taste[vocab.DimMood]["None"]; ok {
		t.Error("placeholder value accumulated into taste")
	}
	if _, ok := p.Taste["tempo"]; ok {
		t.Error("unknown dimension accumulated into taste")
	}
	if math.Abs(p.Taste[vocab.DimMood]["Happy"]-1.0) > 1e-9 {
		t.Errorf("Happy weight = %v, want 1.0 after dropping invalid values", p.Taste[vocab.DimMood]["Happy"])
	}
}

func TestBuildProfileSkipsUntaggedTracks(t *testing.T) {
	now := time.Now()
	signals := &mockSignalProvider{
		history: map[string]map[string]PlaySignal{
			"u1": {
				"t1": {PlayCount: 1, LastPlayed: now},
				"t2": {PlayCount: 9, LastPlayed: now},
			},
		},
	}
	catalog := &mockCatalogProvider{tracks: []Track{
		makeTrack("t1", "A", "L", "Happy", "", "", ""),
		{ID: "t2", Artist: "B", Album: "M"}, // no tags
	}}

	p, err := newTestBuilder(signals, catalog, now).Build(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if p.Stats.SkippedTracks != 1 {
		t.Errorf("SkippedTracks = %d, want 1", p.Stats.SkippedTracks)
	}
	if p.Stats.TaggedTracks != 1 {
		t.Errorf("TaggedTracks = %d, want 1", p.Stats.TaggedTracks)
	}
}

func TestBuildProfileErrorPropagation(t *testing.T) {
	wantErr := errors.New("signal store down")
	b := newTestBuilder(&mockSignalProvider{historyErr: wantErr}, &mockCatalogProvider{}, time.Now())
	if _, err := b.Build(context.Background(), "u1"); !errors.Is(err, wantErr) {
		t.Errorf("Build() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestDecay(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := newTestBuilder(&mockSignalProvider{}, &mockCatalogProvider{}, now)

	tests := []struct {
		name       string
		lastPlayed time.Time
		want       float64
	}{
		{"absent timestamp", time.Time{}, 0.3},
		{"played today", now, 1.0},
		{"mid window", now.Add(-45 * 24 * time.Hour), 0.5},
		{"past window", now.Add(-400 * 24 * time.Hour), 0.3},
		{"future clamps to one", now.Add(24 * time.Hour), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.decay(tt.lastPlayed)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("decay(%v) = %v, want %v", tt.lastPlayed, got, tt.want)
			}
		})
	}
}

func TestTrackWeight(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := newTestBuilder(&mockSignalProvider{}, &mockCatalogProvider{}, now)

	tests := []struct {
		name string
		sig  PlaySignal
		want float64
	}{
		{"plays only", PlaySignal{PlayCount: 3, LastPlayed: now}, 3.0},
		{"starred bonus", PlaySignal{PlayCount: 1, Starred: true, LastPlayed: now}, 11.0},
		{"playlist bonus", PlaySignal{PlayCount: 1, PlaylistCount: 2, LastPlayed: now}, 17.0},
		{"decayed to floor", PlaySignal{PlayCount: 10}, 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.trackWeight(tt.sig)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("trackWeight(%+v) = %v, want %v", tt.sig, got, tt.want)
			}
		})
	}
}
