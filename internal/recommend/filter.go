// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package recommend

// FilterCandidates removes tracks the user has already played, and,
// when excludeRecent is set, tracks in the recently-played set. Tracks
// that would score zero are not special-cased here; ranking handles them.
func FilterCandidates(tracks []Track, alreadyPlayed, recentlyPlayed map[string]struct{}, excludeRecent bool) []Track {
	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if _, played := alreadyPlayed[t.ID]; played {
			continue
		}
		if excludeRecent {
			if _, recent := recentlyPlayed[t.ID]; recent {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}
