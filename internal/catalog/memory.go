// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/RiverAge/semantune/internal/recommend"
)

// MemoryStore is a map-backed catalog for tests and evaluation runs. It
// implements recommend.CatalogProvider.
type MemoryStore struct {
	mu     sync.RWMutex
	tracks map[string]recommend.Track
	order  []string
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tracks: make(map[string]recommend.Track)}
}

// Put upserts one track.
func (s *MemoryStore) Put(_ context.Context, track recommend.Track) error {
	if track.ID == "" {
		return fmt.Errorf("track ID required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tracks[track.ID]; !exists {
		s.order = append(s.order, track.ID)
	}
	s.tracks[track.ID] = track
	return nil
}

// PutBatch upserts tracks one by one.
func (s *MemoryStore) PutBatch(ctx context.Context, tracks []recommend.Track) error {
	for i := range tracks {
		if err := s.Put(ctx, tracks[i]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns one track by ID, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (recommend.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	track, ok := s.tracks[id]
	if !ok {
		return recommend.Track{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return track, nil
}

// GetCatalog returns every stored track in insertion order.
func (s *MemoryStore) GetCatalog(_ context.Context) ([]recommend.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]recommend.Track, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tracks[id])
	}
	return out, nil
}

// GetTracks returns the stored tracks among the given IDs.
func (s *MemoryStore) GetTracks(_ context.Context, ids []string) (map[string]recommend.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]recommend.Track, len(ids))
	for _, id := range ids {
		if track, ok := s.tracks[id]; ok {
			out[id] = track
		}
	}
	return out, nil
}

// Delete removes a track.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracks[id]; !ok {
		return nil
	}
	delete(s.tracks, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of stored tracks.
func (s *MemoryStore) Count() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tracks)), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
