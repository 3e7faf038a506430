// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package recommend

import (
	"math/rand"
	"sync"
)

// Sampler splits a ranked candidate list into a deterministic
// exploitation pool and a randomized exploration pool. The exploration
// sample is drawn from a mid-percentile band of the ranked list rather
// than the tail, so discovery picks are moderate matches, never the
// worst ones.
type Sampler struct {
	cfg SamplerConfig

	// rng drives exploration shuffling. Injectable so tests can assert
	// exploration membership deterministically.
	rng *rand.Rand
	mu  sync.Mutex
}

// NewSampler creates a sampler with the given seeded generator. A nil
// generator selects a fixed default seed.
func NewSampler(cfg SamplerConfig, rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewSource(defaultSeed)) //nolint:gosec // math/rand is fine for exploration shuffling
	}
	return &Sampler{cfg: cfg, rng: rng}
}

// Split divides the ranked list into pools for up to limit picks.
//
// The exploitation pool is the top of the ranking, over-fetched by
// PoolMultiplier so the diversity selector has slack to skip capped
// candidates; it is fully deterministic. The exploration pool is a
// shuffled sample from the [BandStart, BandEnd) percentile band, sized
// at twice the exploration quota for the same reason.
func (s *Sampler) Split(ranked []ScoredCandidate, limit int) (exploitation, exploration []ScoredCandidate) {
	if limit <= 0 || len(ranked) == 0 {
		return nil, nil
	}

	exploitationCount := int(float64(limit) * (1 - s.cfg.ExplorationRatio))
	explorationCount := limit - exploitationCount

	poolSize := exploitationCount * s.cfg.PoolMultiplier
	if poolSize > len(ranked) {
		poolSize = len(ranked)
	}
	exploitation = ranked[:poolSize]

	if explorationCount == 0 {
		return exploitation, nil
	}

	bandStart := int(float64(len(ranked)) * s.cfg.BandStart)
	bandEnd := int(float64(len(ranked)) * s.cfg.BandEnd)
	if bandEnd <= bandStart {
		return exploitation, nil
	}

	band := make([]ScoredCandidate, bandEnd-bandStart)
	copy(band, ranked[bandStart:bandEnd])

	s.mu.Lock()
	s.rng.Shuffle(len(band), func(i, j int) {
		band[i], band[j] = band[j], band[i]
	})
	s.mu.Unlock()

	sampleSize := explorationCount * 2
	if sampleSize > len(band) {
		sampleSize = len(band)
	}
	return exploitation, band[:sampleSize]
}
