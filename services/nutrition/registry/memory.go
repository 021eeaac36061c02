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
	"sync"

	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
)

// =============================================================================
// In-Memory Store
// =============================================================================

// MemoryStore implements Store with an in-process map.
//
// # Description
//
// The map-level RWMutex protects membership only (the existence-check-and-
// insert in Create, lookups, iteration snapshots). Each entry carries its
// own mutex, so Mutate on one user never blocks Mutate on another. The
// per-entry mutex is what linearizes the read-modify-write of a profile.
//
// # Thread Safety
//
// Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

// memoryEntry pairs a profile with the lock that linearizes its mutations.
type memoryEntry struct {
	mu      sync.Mutex
	profile datatypes.UserProfile
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

// Create inserts a new profile, failing with already-exists if the id is
// present. The check and insert happen under a single write lock.
func (s *MemoryStore) Create(_ context.Context, profile datatypes.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[profile.ID]; ok {
		return datatypes.AlreadyExists(profile.ID)
	}
	s.entries[profile.ID] = &memoryEntry{profile: profile.Clone()}
	return nil
}

// Get returns a copy of the stored profile.
func (s *MemoryStore) Get(_ context.Context, id string) (datatypes.UserProfile, error) {
	entry, ok := s.lookup(id)
	if !ok {
		return datatypes.UserProfile{}, datatypes.NotFound(id)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.profile.Clone(), nil
}

// Mutate applies fn to a working copy under the entry lock and commits it
// only when fn succeeds.
func (s *MemoryStore) Mutate(_ context.Context, id string, fn func(*datatypes.UserProfile) error) (datatypes.UserProfile, error) {
	entry, ok := s.lookup(id)
	if !ok {
		return datatypes.UserProfile{}, datatypes.NotFound(id)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	work := entry.profile.Clone()
	if err := fn(&work); err != nil {
		return datatypes.UserProfile{}, err
	}
	entry.profile = work
	return work.Clone(), nil
}

// ForEach visits a snapshot of the membership; profiles added after the
// snapshot are not visited, removed ones are skipped.
func (s *MemoryStore) ForEach(_ context.Context, fn func(datatypes.UserProfile) error) error {
	s.mu.RLock()
	snapshot := make([]*memoryEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		snapshot = append(snapshot, entry)
	}
	s.mu.RUnlock()

	for _, entry := range snapshot {
		entry.mu.Lock()
		profile := entry.profile.Clone()
		entry.mu.Unlock()
		if err := fn(profile); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of stored profiles.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) lookup(id string) (*memoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	return entry, ok
}

// Compile-time interface compliance.
var _ Store = (*MemoryStore)(nil)
