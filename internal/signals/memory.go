// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package signals

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RiverAge/semantune/internal/recommend"
)

// MemoryStore is a map-backed signal store for tests and evaluation
// runs. It implements recommend.SignalProvider.
type MemoryStore struct {
	mu        sync.RWMutex
	plays     map[string]map[string]recommend.PlaySignal
	playlists map[string]map[string]int
	recent    map[string][]string
}

// NewMemoryStore creates an empty in-memory signal store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		plays:     make(map[string]map[string]recommend.PlaySignal),
		playlists: make(map[string]map[string]int),
		recent:    make(map[string][]string),
	}
}

// RecordPlay increments a track's play count and recency.
func (s *MemoryStore) RecordPlay(_ context.Context, userID, trackID string, playedAt time.Time) error {
	if userID == "" || trackID == "" {
		return fmt.Errorf("user ID and track ID required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.plays[userID] == nil {
		s.plays[userID] = make(map[string]recommend.PlaySignal)
	}
	sig := s.plays[userID][trackID]
	sig.PlayCount++
	if playedAt.After(sig.LastPlayed) {
		sig.LastPlayed = playedAt
	}
	s.plays[userID][trackID] = sig

	updated := []string{trackID}
	for _, id := range s.recent[userID] {
		if id != trackID {
			updated = append(updated, id)
		}
	}
	if len(updated) > recentCap {
		updated = updated[:recentCap]
	}
	s.recent[userID] = updated
	return nil
}

// SetStarred sets or clears a track's star for a user.
func (s *MemoryStore) SetStarred(_ context.Context, userID, trackID string, starred bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plays[userID] == nil {
		s.plays[userID] = make(map[string]recommend.PlaySignal)
	}
	sig := s.plays[userID][trackID]
	sig.Starred = starred
	s.plays[userID][trackID] = sig
	return nil
}

// SetPlaylistMembership records a track's playlist membership count.
func (s *MemoryStore) SetPlaylistMembership(_ context.Context, userID, trackID string, count int) error {
	if count < 0 {
		return fmt.Errorf("playlist count must be >= 0, got %d", count)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if count == 0 {
		delete(s.playlists[userID], trackID)
		return nil
	}
	if s.playlists[userID] == nil {
		s.playlists[userID] = make(map[string]int)
	}
	s.playlists[userID][trackID] = count
	return nil
}

// GetPlayHistory returns a copy of the user's play signals.
func (s *MemoryStore) GetPlayHistory(_ context.Context, userID string) (map[string]recommend.PlaySignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]recommend.PlaySignal, len(s.plays[userID]))
	for id, sig := range s.plays[userID] {
		out[id] = sig
	}
	return out, nil
}

// GetPlaylistMemberships returns a copy of the user's playlist counts.
func (s *MemoryStore) GetPlaylistMemberships(_ context.Context, userID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.playlists[userID]))
	for id, count := range s.playlists[userID] {
		out[id] = count
	}
	return out, nil
}

// GetRecentlyPlayed returns the user's most recent track IDs, bounded
// by window.
func (s *MemoryStore) GetRecentlyPlayed(_ context.Context, userID string, window int) (map[string]struct{}, error) {
	if window <= 0 {
		return map[string]struct{}{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	recent := s.recent[userID]
	if len(recent) > window {
		recent = recent[:window]
	}
	out := make(map[string]struct{}, len(recent))
	for _, id := range recent {
		out[id] = struct{}{}
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
