// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package vocab

import "testing"

func TestDefaultDimensions(t *testing.T) {
	v := Default()

	want := []string{DimMood, DimEnergy, DimGenre, DimRegion, DimScene, DimSubculture}
	got := v.Dimensions()

	if len(got) != len(want) {
		t.Fatalf("Dimensions() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Dimensions()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestContains(t *testing.T) {
	v := Default()

	tests := []struct {
		dimension string
		value     string
		want      bool
	}{
		{DimMood, "Happy", true},
		{DimMood, "Sad", true},
		{DimMood, "High", false}, // energy value, not a mood
		{DimEnergy, "High", true},
		{DimGenre, "J-Rock", true},
		{DimRegion, "Western", true},
		{DimMood, "Melancholy", false},
		{"tempo", "Fast", false}, // unknown dimension
	}

	for _, tt := range tests {
		if got := v.Contains(tt.dimension, tt.value); got != tt.want {
			t.Errorf("Contains(%q, %q) = %v, want %v", tt.dimension, tt.value, got, tt.want)
		}
	}
}

func TestDimensionOf(t *testing.T) {
	v := Default()

	if dim, ok := v.DimensionOf("Groovy"); !ok || dim != DimMood {
		t.Errorf("DimensionOf(Groovy) = %q, %v, want mood, true", dim, ok)
	}
	if dim, ok := v.DimensionOf("Electronic"); !ok || dim != DimGenre {
		t.Errorf("DimensionOf(Electronic) = %q, %v, want genre, true", dim, ok)
	}
	if _, ok := v.DimensionOf("Nonexistent"); ok {
		t.Error("DimensionOf(Nonexistent) resolved, want false")
	}
	// Placeholder appears in scene and subculture but must never resolve.
	if _, ok := v.DimensionOf(Placeholder); ok {
		t.Error("DimensionOf(None) resolved, want false")
	}
}

func TestIsPlaceholder(t *testing.T) {
	if !IsPlaceholder("None") || !IsPlaceholder("") {
		t.Error("None and empty string should be placeholders")
	}
	if IsPlaceholder("Happy") {
		t.Error("Happy should not be a placeholder")
	}
}

func TestImmutability(t *testing.T) {
	v := Default()

	dims := v.Dimensions()
	dims[0] = "tampered"
	if v.Dimensions()[0] != DimMood {
		t.Error("mutating Dimensions() result affected the vocabulary")
	}

	vals := v.Values(DimEnergy)
	vals[0] = "tampered"
	if got := v.Values(DimEnergy); got[0] == "tampered" {
		t.Error("mutating Values() result affected the vocabulary")
	}
}

func TestNewCollapsesDuplicates(t *testing.T) {
	v := New([]Definition{
		{Name: "mood", Values: []string{"Happy", "Happy", "Sad"}},
		{Name: "mood", Values: []string{"Dark"}}, // duplicate dimension ignored
	})

	if got := len(v.Dimensions()); got != 1 {
		t.Fatalf("len(Dimensions()) = %d, want 1", got)
	}
	if v.Contains("mood", "Dark") {
		t.Error("duplicate dimension redefinition should be ignored")
	}
	if v.Size() != 2 {
		t.Errorf("Size() = %d, want 2", v.Size())
	}
}
