// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

// Package catalog persists the tagged track catalog in an embedded
// BadgerDB store and serves it to the recommendation engine. Tracks are
// stored as JSON under a "track:" key prefix; the whole catalog fits in
// memory for scoring, so reads iterate the prefix rather than maintain
// secondary indexes.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/RiverAge/semantune/internal/metrics"
	"github.com/RiverAge/semantune/internal/recommend"
)

// ErrNotFound is returned when a track ID has no catalog entry.
var ErrNotFound = errors.New("track not found")

const keyPrefix = "track:"

// storeName labels this store in metrics.
const storeName = "catalog"

// Options configures the catalog store.
type Options struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory runs Badger without disk persistence.
	InMemory bool

	// Logger is the parent logger; a component field is added.
	Logger zerolog.Logger
}

// BadgerStore is a BadgerDB-backed track catalog. It implements
// recommend.CatalogProvider and is safe for concurrent use.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens (or creates) the catalog store.
func Open(opts Options) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	badgerOpts.InMemory = opts.InMemory
	badgerOpts.Logger = nil

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open catalog store: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		logger: opts.Logger.With().Str("component", "catalog").Logger(),
	}

	count, err := s.Count()
	if err == nil {
		metrics.SetStoreEntries(storeName, count)
		s.logger.Info().Int64("tracks", count).Str("path", opts.Path).Msg("catalog store opened")
	}
	return s, nil
}

// Put upserts one track.
func (s *BadgerStore) Put(_ context.Context, track recommend.Track) (err error) {
	defer func() { metrics.RecordStoreOperation(storeName, "put", err) }()

	if track.ID == "" {
		return fmt.Errorf("track ID required")
	}
	data, err := json.Marshal(track)
	if err != nil {
		return fmt.Errorf("marshal track %s: %w", track.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(trackKey(track.ID), data)
	})
	if err != nil {
		return fmt.Errorf("put track %s: %w", track.ID, err)
	}
	return nil
}

// PutBatch upserts tracks in a single write batch. Used by catalog sync.
func (s *BadgerStore) PutBatch(_ context.Context, tracks []recommend.Track) (err error) {
	defer func() { metrics.RecordStoreOperation(storeName, "put_batch", err) }()

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range tracks {
		if tracks[i].ID == "" {
			return fmt.Errorf("track at index %d has no ID", i)
		}
		data, merr := json.Marshal(tracks[i])
		if merr != nil {
			return fmt.Errorf("marshal track %s: %w", tracks[i].ID, merr)
		}
		if werr := wb.Set(trackKey(tracks[i].ID), data); werr != nil {
			return fmt.Errorf("batch set track %s: %w", tracks[i].ID, werr)
		}
	}
	if err = wb.Flush(); err != nil {
		return fmt.Errorf("flush track batch: %w", err)
	}

	if count, cerr := s.Count(); cerr == nil {
		metrics.SetStoreEntries(storeName, count)
	}
	s.logger.Debug().Int("tracks", len(tracks)).Msg("catalog batch written")
	return nil
}

// Get returns one track by ID, or ErrNotFound.
func (s *BadgerStore) Get(_ context.Context, id string) (recommend.Track, error) {
	var track recommend.Track
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(trackKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &track)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return recommend.Track{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return recommend.Track{}, fmt.Errorf("get track %s: %w", id, err)
	}
	return track, nil
}

// GetCatalog returns every stored track.
func (s *BadgerStore) GetCatalog(_ context.Context) (tracks []recommend.Track, err error) {
	defer func() { metrics.RecordStoreOperation(storeName, "get_catalog", err) }()

	err = s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var track recommend.Track
			verr := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &track)
			})
			if verr != nil {
				return verr
			}
			tracks = append(tracks, track)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan catalog: %w", err)
	}
	return tracks, nil
}

// GetTracks returns the stored tracks among the given IDs. IDs without
// entries are absent from the result, not errors.
func (s *BadgerStore) GetTracks(_ context.Context, ids []string) (map[string]recommend.Track, error) {
	out := make(map[string]recommend.Track, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get(trackKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var track recommend.Track
			if verr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &track)
			}); verr != nil {
				return verr
			}
			out[id] = track
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get tracks: %w", err)
	}
	return out, nil
}

// Delete removes a track. Deleting an absent track is not an error.
func (s *BadgerStore) Delete(_ context.Context, id string) (err error) {
	defer func() { metrics.RecordStoreOperation(storeName, "delete", err) }()

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(trackKey(id))
	})
	if err != nil {
		return fmt.Errorf("delete track %s: %w", id, err)
	}
	return nil
}

// Count returns the number of stored tracks.
func (s *BadgerStore) Count() (int64, error) {
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(keyPrefix)
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}
	return n, nil
}

// RunGC runs one round of Badger value-log garbage collection.
// badger.ErrNoRewrite (nothing to collect) is not an error.
func (s *BadgerStore) RunGC(ratio float64) error {
	err := s.db.RunValueLogGC(ratio)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return fmt.Errorf("catalog gc: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	s.logger.Debug().Msg("closing catalog store")
	return s.db.Close()
}

func trackKey(id string) []byte {
	return []byte(keyPrefix + id)
}
