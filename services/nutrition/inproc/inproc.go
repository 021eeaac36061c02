// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package inproc provides in-process reference implementations of every
// collaborator capability.
//
// # Description
//
// These implementations back the demo CLI and integration tests: a
// validating sensor pipeline, a threshold-based nutrition analyzer, a
// catalog recommender, an intake tracker with compliance accounting, an
// AES-GCM data-security component, and a recording UI sink. They hold
// all state in memory; production deployments substitute remote
// collaborators behind the same capability interfaces.
//
// # Thread Safety
//
// All implementations are safe for concurrent use.
package inproc

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/AleutianAI/NutriCore/services/nutrition/capability"
	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
)

// =============================================================================
// Shared Component Base
// =============================================================================

// component provides the lifecycle half of the Component contract.
type component struct {
	name capability.Name

	mu      sync.Mutex
	running bool
}

func (c *component) Name() capability.Name { return c.name }

func (c *component) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	return nil
}

func (c *component) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// =============================================================================
// Shared Membership Roster
// =============================================================================

// roster provides the Registrar half of the collaborator contracts:
// token-issuing registration, tolerant deregistration, and settings
// recording.
type roster struct {
	mu       sync.Mutex
	tokens   map[string]string
	settings map[string][]datatypes.RawUserData
}

func newRoster() *roster {
	return &roster{
		tokens:   make(map[string]string),
		settings: make(map[string][]datatypes.RawUserData),
	}
}

func (r *roster) RegisterUser(_ context.Context, userID string, _ datatypes.RawUserData) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token := uuid.NewString()
	r.tokens[userID] = token
	return token, nil
}

// DeregisterUser tolerates ids it has never seen; it is called as
// registration compensation and must not fail rollback.
func (r *roster) DeregisterUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, userID)
	delete(r.settings, userID)
	return nil
}

func (r *roster) UpdateUserSettings(_ context.Context, userID string, settings datatypes.RawUserData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[userID] = append(r.settings[userID], settings)
	return nil
}

// Registered reports whether the user holds a token.
func (r *roster) Registered(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tokens[userID]
	return ok
}

// SettingsHistory returns the settings patches received for a user.
func (r *roster) SettingsHistory(userID string) []datatypes.RawUserData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]datatypes.RawUserData(nil), r.settings[userID]...)
}
