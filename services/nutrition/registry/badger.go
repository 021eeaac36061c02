// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
)

// =============================================================================
// Badger-Backed Store
// =============================================================================

// profilePrefix namespaces profile keys inside the database.
const profilePrefix = "profile/"

// BadgerConfig holds configuration for a Badger-backed store.
type BadgerConfig struct {
	// Path is the directory for database files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	// Default: true for production, false for testing.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging.
	// If nil, internal logging is disabled.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns production defaults for the given path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryBadgerConfig returns configuration optimized for testing:
// in-memory mode, no sync writes.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// badgerSlogAdapter adapts slog.Logger to BadgerDB's Logger interface.
type badgerSlogAdapter struct {
	logger *slog.Logger
}

func (l *badgerSlogAdapter) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerSlogAdapter) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerSlogAdapter) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerSlogAdapter) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore implements Store on an embedded BadgerDB.
//
// # Description
//
// Profiles are stored JSON-encoded under "profile/<id>" keys. Badger
// transactions make individual reads and writes atomic; the per-id lock
// table is what linearizes a Mutate's read-modify-write so concurrent
// mutations of the same user cannot lose updates. Distinct ids hold
// distinct locks and proceed in parallel.
//
// # Thread Safety
//
// Safe for concurrent use.
type BadgerStore struct {
	db    *badger.DB
	locks sync.Map // id -> *sync.Mutex
}

// OpenBadger creates and opens a Badger-backed store.
//
// # Description
//
// Opens the database at the configured path, creating the directory if
// needed, or in memory when InMemory is set. The caller owns the returned
// store and must Close() it.
//
// # Inputs
//
//   - cfg: Store configuration. Path is required unless InMemory is true.
//
// # Outputs
//
//   - *BadgerStore: The opened store.
//   - error: Non-nil if the path is invalid or the database cannot open.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent registry")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create registry directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerSlogAdapter{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Create inserts a new profile, failing with already-exists if present.
// The per-id lock makes the existence check and insert atomic with respect
// to concurrent creates and mutates of the same id.
func (s *BadgerStore) Create(_ context.Context, profile datatypes.UserProfile) error {
	lock := s.idLock(profile.ID)
	lock.Lock()
	defer lock.Unlock()

	key := profileKey(profile.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return datatypes.AlreadyExists(profile.ID)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return fmt.Errorf("check profile %s: %w", profile.ID, err)
		}

		encoded, err := json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("encode profile %s: %w", profile.ID, err)
		}
		return txn.Set(key, encoded)
	})
}

// Get returns the stored profile.
func (s *BadgerStore) Get(_ context.Context, id string) (datatypes.UserProfile, error) {
	var profile datatypes.UserProfile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(profileKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return datatypes.NotFound(id)
		}
		if err != nil {
			return fmt.Errorf("read profile %s: %w", id, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &profile)
		})
	})
	if err != nil {
		return datatypes.UserProfile{}, err
	}
	return profile, nil
}

// Mutate applies fn under the id's lock and persists the result only when
// fn succeeds.
func (s *BadgerStore) Mutate(ctx context.Context, id string, fn func(*datatypes.UserProfile) error) (datatypes.UserProfile, error) {
	lock := s.idLock(id)
	lock.Lock()
	defer lock.Unlock()

	profile, err := s.Get(ctx, id)
	if err != nil {
		return datatypes.UserProfile{}, err
	}
	if err := fn(&profile); err != nil {
		return datatypes.UserProfile{}, err
	}

	encoded, err := json.Marshal(profile)
	if err != nil {
		return datatypes.UserProfile{}, fmt.Errorf("encode profile %s: %w", id, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(profileKey(id), encoded)
	})
	if err != nil {
		return datatypes.UserProfile{}, fmt.Errorf("write profile %s: %w", id, err)
	}
	return profile, nil
}

// ForEach visits every stored profile under the profile prefix.
func (s *BadgerStore) ForEach(_ context.Context, fn func(datatypes.UserProfile) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(profilePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var profile datatypes.UserProfile
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &profile)
			})
			if err != nil {
				return fmt.Errorf("decode profile %s: %w", it.Item().Key(), err)
			}
			if err := fn(profile); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of stored profiles.
func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(profilePrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) idLock(id string) *sync.Mutex {
	actual, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func profileKey(id string) []byte {
	return []byte(profilePrefix + id)
}

// Compile-time interface compliance.
var _ Store = (*BadgerStore)(nil)
