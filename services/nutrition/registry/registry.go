// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package registry provides the authoritative per-user profile store for
// the nutrition orchestration engine.
//
// # Description
//
// The Store contract linearizes all operations on a given user id while
// keeping operations on distinct ids fully parallel. Two implementations
// are provided: MemoryStore (map with per-entry locks) and BadgerStore
// (embedded BadgerDB with a per-id lock table, JSON-encoded profiles).
//
// The store is an injected, lifecycle-scoped instance — never a process
// singleton — so independent systems can run side by side in tests.
//
// # Thread Safety
//
// All implementations are safe for concurrent use.
package registry

import (
	"context"

	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
)

// =============================================================================
// Store Contract
// =============================================================================

// Store is the per-user profile registry contract.
//
// # Description
//
// Operations on a single id are linearized relative to each other: a
// Mutate's read-modify-write can never interleave with another Mutate or
// Create on the same id. Operations on different ids never block one
// another beyond brief map-membership locking.
//
// # Limitations
//
//   - Mutate's closure runs while the per-id lock is held; it must not
//     perform blocking I/O or collaborator calls. Apply external-call
//     results as a mutation after the call returns.
type Store interface {
	// Create inserts a new profile. Fails with an already-exists error if
	// the id is present. The existence check and insert are atomic.
	Create(ctx context.Context, profile datatypes.UserProfile) error

	// Get returns a copy of the stored profile, or a not-found error.
	Get(ctx context.Context, id string) (datatypes.UserProfile, error)

	// Mutate atomically applies fn to the stored profile and persists the
	// result, returning a copy of the updated profile. If fn returns an
	// error, the stored profile is left unchanged and the error is
	// returned verbatim. Fails with a not-found error if the id is absent.
	Mutate(ctx context.Context, id string, fn func(*datatypes.UserProfile) error) (datatypes.UserProfile, error)

	// ForEach calls fn with a copy of every stored profile. Iteration
	// order is unspecified; a non-nil error from fn stops the iteration
	// and is returned.
	ForEach(ctx context.Context, fn func(datatypes.UserProfile) error) error

	// Count returns the number of stored profiles.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
