// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

// Package signals persists per-user listening signals (plays, stars,
// playlist memberships, recency) in an embedded BadgerDB store and
// serves them to the recommendation engine. The write side is fed by
// the play event bus; reads implement recommend.SignalProvider.
//
// Key layout:
//
//	play:<user>:<track>     JSON recommend.PlaySignal
//	playlist:<user>:<track> JSON int (membership count)
//	recent:<user>           JSON []string, most recent first, capped
package signals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/RiverAge/semantune/internal/metrics"
	"github.com/RiverAge/semantune/internal/recommend"
)

const (
	prefixPlay     = "play:"
	prefixPlaylist = "playlist:"
	prefixRecent   = "recent:"

	// recentCap bounds the stored recent-play list per user.
	recentCap = 500
)

const storeName = "signals"

// Options configures the signal store.
type Options struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory runs Badger without disk persistence.
	InMemory bool

	// Logger is the parent logger; a component field is added.
	Logger zerolog.Logger
}

// BadgerStore is a BadgerDB-backed signal store. It implements
// recommend.SignalProvider and is safe for concurrent use.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens (or creates) the signal store.
func Open(opts Options) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	badgerOpts.InMemory = opts.InMemory
	badgerOpts.Logger = nil

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open signal store: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		logger: opts.Logger.With().Str("component", "signals").Logger(),
	}
	s.logger.Info().Str("path", opts.Path).Msg("signal store opened")
	return s, nil
}

// RecordPlay increments a track's play count, stamps the play time, and
// pushes the track onto the user's recent list.
func (s *BadgerStore) RecordPlay(_ context.Context, userID, trackID string, playedAt time.Time) (err error) {
	defer func() { metrics.RecordStoreOperation(storeName, "record_play", err) }()

	if userID == "" || trackID == "" {
		return fmt.Errorf("user ID and track ID required")
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		sig, terr := readSignal(txn, playKey(userID, trackID))
		if terr != nil {
			return terr
		}
		sig.PlayCount++
		if playedAt.After(sig.LastPlayed) {
			sig.LastPlayed = playedAt
		}
		if werr := writeSignal(txn, playKey(userID, trackID), sig); werr != nil {
			return werr
		}
		return pushRecent(txn, userID, trackID)
	})
	if err != nil {
		return fmt.Errorf("record play %s/%s: %w", userID, trackID, err)
	}
	return nil
}

// SetStarred sets or clears a track's star for a user.
func (s *BadgerStore) SetStarred(_ context.Context, userID, trackID string, starred bool) (err error) {
	defer func() { metrics.RecordStoreOperation(storeName, "set_starred", err) }()

	err = s.db.Update(func(txn *badger.Txn) error {
		sig, terr := readSignal(txn, playKey(userID, trackID))
		if terr != nil {
			return terr
		}
		sig.Starred = starred
		return writeSignal(txn, playKey(userID, trackID), sig)
	})
	if err != nil {
		return fmt.Errorf("set starred %s/%s: %w", userID, trackID, err)
	}
	return nil
}

// SetPlaylistMembership records in how many of the user's playlists a
// track appears. Zero removes the entry.
func (s *BadgerStore) SetPlaylistMembership(_ context.Context, userID, trackID string, count int) (err error) {
	defer func() { metrics.RecordStoreOperation(storeName, "set_playlist", err) }()

	if count < 0 {
		return fmt.Errorf("playlist count must be >= 0, got %d", count)
	}
	key := playlistKey(userID, trackID)
	err = s.db.Update(func(txn *badger.Txn) error {
		if count == 0 {
			return txn.Delete(key)
		}
		data, merr := json.Marshal(count)
		if merr != nil {
			return merr
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("set playlist membership %s/%s: %w", userID, trackID, err)
	}
	return nil
}

// GetPlayHistory returns the user's play signals keyed by track ID. A
// user with no history yields an empty map.
func (s *BadgerStore) GetPlayHistory(_ context.Context, userID string) (map[string]recommend.PlaySignal, error) {
	out := make(map[string]recommend.PlaySignal)
	prefix := prefixPlay + userID + ":"

	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(prefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			trackID := strings.TrimPrefix(string(it.Item().Key()), prefix)
			var sig recommend.PlaySignal
			verr := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sig)
			})
			if verr != nil {
				return verr
			}
			out[trackID] = sig
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get play history %s: %w", userID, err)
	}
	return out, nil
}

// GetPlaylistMemberships returns, per track ID, the number of the user's
// playlists containing the track.
func (s *BadgerStore) GetPlaylistMemberships(_ context.Context, userID string) (map[string]int, error) {
	out := make(map[string]int)
	prefix := prefixPlaylist + userID + ":"

	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(prefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			trackID := strings.TrimPrefix(string(it.Item().Key()), prefix)
			var count int
			verr := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &count)
			})
			if verr != nil {
				return verr
			}
			out[trackID] = count
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get playlist memberships %s: %w", userID, err)
	}
	return out, nil
}

// GetRecentlyPlayed returns the user's most recently played track IDs,
// bounded by window.
func (s *BadgerStore) GetRecentlyPlayed(_ context.Context, userID string, window int) (map[string]struct{}, error) {
	if window <= 0 {
		return map[string]struct{}{}, nil
	}

	var recent []string
	err := s.db.View(func(txn *badger.Txn) error {
		item, terr := txn.Get(recentKey(userID))
		if errors.Is(terr, badger.ErrKeyNotFound) {
			return nil
		}
		if terr != nil {
			return terr
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &recent)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get recently played %s: %w", userID, err)
	}

	if len(recent) > window {
		recent = recent[:window]
	}
	out := make(map[string]struct{}, len(recent))
	for _, id := range recent {
		out[id] = struct{}{}
	}
	return out, nil
}

// RunGC runs one round of Badger value-log garbage collection.
func (s *BadgerStore) RunGC(ratio float64) error {
	err := s.db.RunValueLogGC(ratio)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return fmt.Errorf("signals gc: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	s.logger.Debug().Msg("closing signal store")
	return s.db.Close()
}

// readSignal loads a play signal inside a transaction; an absent key
// yields the zero signal.
func readSignal(txn *badger.Txn, key []byte) (recommend.PlaySignal, error) {
	var sig recommend.PlaySignal
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return sig, nil
	}
	if err != nil {
		return sig, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &sig)
	})
	return sig, err
}

func writeSignal(txn *badger.Txn, key []byte, sig recommend.PlaySignal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// pushRecent moves trackID to the front of the user's recent list,
// deduplicating and capping the stored length.
func pushRecent(txn *badger.Txn, userID, trackID string) error {
	var recent []string
	item, err := txn.Get(recentKey(userID))
	if err == nil {
		if verr := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &recent)
		}); verr != nil {
			return verr
		}
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}

	updated := make([]string, 0, len(recent)+1)
	updated = append(updated, trackID)
	for _, id := range recent {
		if id != trackID {
			updated = append(updated, id)
		}
	}
	if len(updated) > recentCap {
		updated = updated[:recentCap]
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return err
	}
	return txn.Set(recentKey(userID), data)
}

func playKey(userID, trackID string) []byte {
	return []byte(prefixPlay + userID + ":" + trackID)
}

func playlistKey(userID, trackID string) []byte {
	return []byte(prefixPlaylist + userID + ":" + trackID)
}

func recentKey(userID string) []byte {
	return []byte(prefixRecent + userID)
}
