// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package recommend

// Score computes the weighted similarity between a taste vector and a
// track vector.
//
// For each weighted dimension d, the match is the dot product of the
// taste bucket and the track's multi-hot vector:
//
//	match_d = sum over v of taste[d][v] * track[v]
//
// Matches combine by dimension weight and normalize by the weight sum,
// guaranteeing a [0, 1] result given clamped inputs. This keeps
// downstream sampling thresholds meaningful across weight configurations.
//
// A degenerate weight set (sum <= 0) scores 0 rather than dividing by
// zero; absent dimensions contribute 0. Score never fails.
func Score(taste TasteVector, track TrackVector, weights map[string]float64) float64 {
	var weightSum float64
	for _, w := range weights {
		if w > 0 {
			weightSum += w
		}
	}
	if weightSum <= 0 {
		return 0
	}

	var raw float64
	for dim, w := range weights {
		if w <= 0 {
			continue
		}
		bucket := taste[dim]
		if len(bucket) == 0 {
			continue
		}
		var match float64
		for value, tw := range bucket {
			match += tw * track[value]
		}
		raw += match * w
	}

	s := raw / weightSum
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
