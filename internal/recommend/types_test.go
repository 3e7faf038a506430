// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package recommend

import (
	"testing"

	"github.com/RiverAge/semantune/internal/vocab"
)

func TestVectorizeExcludesPlaceholders(t *testing.T) {
	track := Track{
		ID: "t1",
		Tags: map[string][]string{
			vocab.DimMood:       {"Happy", "Upbeat"},
			vocab.DimScene:      {"None"},
			vocab.DimSubculture: {""},
			vocab.DimGenre:      {"Pop", "Totally-Made-Up"},
		},
	}

	vec := Vectorize(&track, vocab.Default())

	for _, want := range []string{"Happy", "Upbeat", "Pop"} {
		if vec[want] != 1.0 {
			t.Errorf("vec[%q] = %v, want 1.0", want, vec[want])
		}
	}
	for _, absent := range []string{"None", "", "Totally-Made-Up"} {
		if _, ok := vec[absent]; ok {
			t.Errorf("vec contains excluded value %q", absent)
		}
	}
}

func TestTaggedIgnoresPlaceholders(t *testing.T) {
	onlyPlaceholders := Track{Tags: map[string][]string{
		vocab.DimScene:      {"None"},
		vocab.DimSubculture: {""},
	}}
	if onlyPlaceholders.Tagged() {
		t.Error("track with only placeholder tags reported as tagged")
	}

	tagged := Track{Tags: map[string][]string{vocab.DimMood: {"Happy"}}}
	if !tagged.Tagged() {
		t.Error("track with a real tag reported as untagged")
	}

	var empty Track
	if empty.Tagged() {
		t.Error("track without tags reported as tagged")
	}
}

func TestTasteVectorIsZero(t *testing.T) {
	if !(TasteVector{}).IsZero() {
		t.Error("empty vector not zero")
	}
	if !(TasteVector{vocab.DimMood: {}}).IsZero() {
		t.Error("vector with empty bucket not zero")
	}
	if (TasteVector{vocab.DimMood: {"Happy": 0.5}}).IsZero() {
		t.Error("weighted vector reported zero")
	}
}

func TestTasteVectorRanked(t *testing.T) {
	tv := TasteVector{vocab.DimMood: {
		"Happy": 0.2,
		"Sad":   0.5,
		"Chill": 0.2,
		"Dark":  0.1,
	}}

	got := tv.Ranked(vocab.DimMood)
	want := []TagWeight{
		{Value: "Sad", Weight: 0.5},
		{Value: "Chill", Weight: 0.2}, // tie with Happy, broken by value
		{Value: "Happy", Weight: 0.2},
		{Value: "Dark", Weight: 0.1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if ranked := tv.Ranked("missing"); len(ranked) != 0 {
		t.Errorf("unknown dimension returned %d entries", len(ranked))
	}
}
