// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package recommend

import (
	"fmt"
	"math/rand"
	"testing"
)

func rankedCandidates(n int) []ScoredCandidate {
	out := make([]ScoredCandidate, n)
	for i := 0; i < n; i++ {
		out[i] = ScoredCandidate{
			Track:      Track{ID: fmt.Sprintf("t%03d", i)},
			Similarity: 1 - float64(i)/float64(n),
		}
	}
	return out
}

func TestSplitZeroRatio(t *testing.T) {
	cfg := SamplerConfig{ExplorationRatio: 0, PoolMultiplier: 3, BandStart: 0.25, BandEnd: 0.5}
	s := NewSampler(cfg, nil)

	exploitation, exploration := s.Split(rankedCandidates(100), 20)
	if len(exploration) != 0 {
		t.Errorf("zero ratio produced %d exploration picks", len(exploration))
	}
	if len(exploitation) != 60 {
		t.Errorf("exploitation pool = %d, want 60 (20 * multiplier 3)", len(exploitation))
	}
	for i, c := range exploitation {
		if c.Track.ID != fmt.Sprintf("t%03d", i) {
			t.Fatalf("exploitation pool not the ranking head at %d", i)
		}
	}
}

func TestSplitPoolSizes(t *testing.T) {
	cfg := SamplerConfig{ExplorationRatio: 0.25, PoolMultiplier: 3, BandStart: 0.25, BandEnd: 0.5}
	s := NewSampler(cfg, rand.New(rand.NewSource(1)))

	ranked := rankedCandidates(100)
	exploitation, exploration := s.Split(ranked, 20)

	// exploitationCount = 15, over-fetched x3 = 45.
	if len(exploitation) != 45 {
		t.Errorf("exploitation pool = %d, want 45", len(exploitation))
	}
	// explorationCount = 5, sampled x2 = 10.
	if len(exploration) != 10 {
		t.Errorf("exploration pool = %d, want 10", len(exploration))
	}

	// Every exploration pick must come from the [25%, 50%) band.
	band := make(map[string]struct{})
	for _, c := range ranked[25:50] {
		band[c.Track.ID] = struct{}{}
	}
	for _, c := range exploration {
		if _, ok := band[c.Track.ID]; !ok {
			t.Errorf("exploration pick %q outside the percentile band", c.Track.ID)
		}
	}
}

func TestSplitDeterministicWithSeed(t *testing.T) {
	cfg := SamplerConfig{ExplorationRatio: 0.25, PoolMultiplier: 3, BandStart: 0.25, BandEnd: 0.5}
	ranked := rankedCandidates(100)

	_, first := NewSampler(cfg, rand.New(rand.NewSource(7))).Split(ranked, 20)
	_, second := NewSampler(cfg, rand.New(rand.NewSource(7))).Split(ranked, 20)

	if len(first) != len(second) {
		t.Fatalf("same seed produced different sample sizes: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Track.ID != second[i].Track.ID {
			t.Errorf("same seed diverged at %d: %q vs %q", i, first[i].Track.ID, second[i].Track.ID)
		}
	}
}

func TestSplitDoesNotMutateRanking(t *testing.T) {
	cfg := SamplerConfig{ExplorationRatio: 0.25, PoolMultiplier: 3, BandStart: 0.25, BandEnd: 0.5}
	s := NewSampler(cfg, rand.New(rand.NewSource(1)))

	ranked := rankedCandidates(100)
	s.Split(ranked, 20)

	for i, c := range ranked {
		if c.Track.ID != fmt.Sprintf("t%03d", i) {
			t.Fatalf("Split mutated the ranked list at %d", i)
		}
	}
}

func TestSplitSmallPool(t *testing.T) {
	cfg := SamplerConfig{ExplorationRatio: 0.25, PoolMultiplier: 3, BandStart: 0.25, BandEnd: 0.5}
	s := NewSampler(cfg, rand.New(rand.NewSource(1)))

	// Far fewer candidates than the pool sizes call for.
	exploitation, exploration := s.Split(rankedCandidates(5), 20)
	if len(exploitation) > 5 {
		t.Errorf("exploitation pool %d exceeds candidate count", len(exploitation))
	}
	if len(exploration) > 5 {
		t.Errorf("exploration pool %d exceeds candidate count", len(exploration))
	}
}

func TestSplitEmptyInput(t *testing.T) {
	s := NewSampler(SamplerConfig{ExplorationRatio: 0.25, PoolMultiplier: 3, BandStart: 0.25, BandEnd: 0.5}, nil)

	if exploitation, exploration := s.Split(nil, 20); exploitation != nil || exploration != nil {
		t.Error("nil ranking produced non-nil pools")
	}
	if exploitation, exploration := s.Split(rankedCandidates(10), 0); exploitation != nil || exploration != nil {
		t.Error("zero limit produced non-nil pools")
	}
}
