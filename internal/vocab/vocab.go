// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

// Package vocab defines the closed tag vocabulary used by the catalog
// and the recommendation engine. Every track tag is drawn from a fixed
// whitelist of canonical values per dimension; the vocabulary is
// immutable after construction.
package vocab

import "sort"

// Well-known dimension names.
const (
	DimMood       = "mood"
	DimEnergy     = "energy"
	DimGenre      = "genre"
	DimRegion     = "region"
	DimScene      = "scene"
	DimSubculture = "subculture"
)

// Placeholder is the value used by the tagging pipeline when no label
// applies. Placeholder values never enter vectors or profiles.
const Placeholder = "None"

// IsPlaceholder reports whether a tag value carries no information.
func IsPlaceholder(value string) bool {
	return value == "" || value == Placeholder
}

// Definition declares one dimension and its allowed values.
type Definition struct {
	Name   string
	Values []string
}

// Vocabulary is an immutable dimension -> allowed-value mapping.
// The zero value is empty; construct with New or Default.
type Vocabulary struct {
	order []string
	dims  map[string]map[string]struct{}
}

// New builds a Vocabulary from dimension definitions. Dimension order is
// preserved as declared; duplicate values within a dimension collapse.
func New(defs []Definition) *Vocabulary {
	v := &Vocabulary{
		order: make([]string, 0, len(defs)),
		dims:  make(map[string]map[string]struct{}, len(defs)),
	}
	for _, def := range defs {
		if _, ok := v.dims[def.Name]; ok {
			continue
		}
		set := make(map[string]struct{}, len(def.Values))
		for _, val := range def.Values {
			set[val] = struct{}{}
		}
		v.order = append(v.order, def.Name)
		v.dims[def.Name] = set
	}
	return v
}

// Default returns the stock vocabulary shipped with Semantune. It matches
// the whitelist enforced by the tag validation pipeline.
func Default() *Vocabulary {
	return New([]Definition{
		{Name: DimMood, Values: []string{
			"Energetic", "Epic", "Emotional", "Sad", "Chill", "Dark",
			"Happy", "Peaceful", "Romantic", "Dreamy", "Upbeat", "Groovy",
		}},
		{Name: DimEnergy, Values: []string{"Low", "Medium", "High"}},
		{Name: DimGenre, Values: []string{
			"Pop", "Indie", "Rock", "Electronic", "Hip-Hop",
			"Classical", "Folk", "J-Rock", "Metal",
		}},
		{Name: DimRegion, Values: []string{"Chinese", "Western", "Japanese", "Korean"}},
		{Name: DimScene, Values: []string{
			"Workout", "Study", "Night", "Driving", "Gaming",
			"Sleep", "Morning", Placeholder,
		}},
		{Name: DimSubculture, Values: []string{Placeholder, "Anime", "Game", "Vocaloid", "Idol"}},
	})
}

// Dimensions returns the dimension names in declaration order.
func (v *Vocabulary) Dimensions() []string {
	out := make([]string, len(v.order))
	copy(out, v.order)
	return out
}

// Has reports whether the vocabulary declares the given dimension.
func (v *Vocabulary) Has(dimension string) bool {
	_, ok := v.dims[dimension]
	return ok
}

// Contains reports whether value is an allowed label for dimension.
func (v *Vocabulary) Contains(dimension, value string) bool {
	set, ok := v.dims[dimension]
	if !ok {
		return false
	}
	_, ok = set[value]
	return ok
}

// DimensionOf returns the first dimension (in declaration order) that
// allows the given value. Placeholder values never resolve.
func (v *Vocabulary) DimensionOf(value string) (string, bool) {
	if IsPlaceholder(value) {
		return "", false
	}
	for _, dim := range v.order {
		if _, ok := v.dims[dim][value]; ok {
			return dim, true
		}
	}
	return "", false
}

// Values returns the allowed values for a dimension, sorted for stable
// presentation. Returns nil for unknown dimensions.
func (v *Vocabulary) Values(dimension string) []string {
	set, ok := v.dims[dimension]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for val := range set {
		out = append(out, val)
	}
	sort.Strings(out)
	return out
}

// Size returns the total number of allowed values across all dimensions.
func (v *Vocabulary) Size() int {
	n := 0
	for _, set := range v.dims {
		n += len(set)
	}
	return n
}
