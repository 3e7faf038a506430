// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package recommend

import "sort"

// albumKey identifies an album by (artist, album) so identically named
// albums by different artists count separately.
type albumKey struct {
	artist string
	album  string
}

// SelectDiverse greedily selects up to limit candidates from the pool,
// capping how many may share an artist or an (artist, album) pair.
//
// If the capped pass exhausts the pool before reaching limit, a
// back-fill pass appends further candidates from the pool in order,
// skipping already-accepted tracks, until the limit is reached or
// candidates run out. The back-fill trades strict diversity for
// completeness. The final list is re-sorted by descending similarity
// and ranked 1..n.
func SelectDiverse(pool []ScoredCandidate, limit, maxPerArtist, maxPerAlbum int) []Recommendation {
	if limit <= 0 || len(pool) == 0 {
		return []Recommendation{}
	}

	selected := make([]ScoredCandidate, 0, limit)
	accepted := make(map[string]struct{}, limit)
	artistCount := make(map[string]int)
	albumCount := make(map[albumKey]int)

	for _, c := range pool {
		if len(selected) >= limit {
			break
		}
		if _, dup := accepted[c.Track.ID]; dup {
			continue
		}
		key := albumKey{artist: c.Track.Artist, album: c.Track.Album}
		if artistCount[c.Track.Artist] >= maxPerArtist {
			continue
		}
		if albumCount[key] >= maxPerAlbum {
			continue
		}
		selected = append(selected, c)
		accepted[c.Track.ID] = struct{}{}
		artistCount[c.Track.Artist]++
		albumCount[key]++
	}

	// Back-fill from the pool when the caps left us short.
	if len(selected) < limit {
		for _, c := range pool {
			if len(selected) >= limit {
				break
			}
			if _, dup := accepted[c.Track.ID]; dup {
				continue
			}
			selected = append(selected, c)
			accepted[c.Track.ID] = struct{}{}
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Similarity > selected[j].Similarity
	})

	out := make([]Recommendation, len(selected))
	for i, c := range selected {
		out[i] = Recommendation{
			Track:      c.Track,
			Similarity: c.Similarity,
			Rank:       i + 1,
		}
	}
	return out
}
