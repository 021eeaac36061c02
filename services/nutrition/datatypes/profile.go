// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the data model shared by the nutrition
// orchestration engine: user profiles, sensor payloads, analysis results,
// health alerts, report windows, and the engine-wide error taxonomy.
//
// # Description
//
// The engine treats most collaborator-produced artifacts as opaque value
// objects; the types here give them names and the minimal structure the
// orchestrator needs for routing (alert severity, the update-recommendation
// gate, report date windows). Nothing in this package performs I/O.
//
// # Thread Safety
//
// All types are plain values. UserProfile carries maps and a byte slice;
// use Clone() before handing a stored profile to a caller.
package datatypes

import (
	"maps"
	"time"
)

// =============================================================================
// Opaque Payloads
// =============================================================================

// RawUserData is the plaintext registration/profile payload supplied by the
// caller. The orchestrator only inspects it transiently around encryption.
type RawUserData = map[string]any

// RawSensorPayload is an unvalidated sensor reading as received from a
// device. Only the sensor collaborator interprets its structure.
type RawSensorPayload = map[string]any

// NormalizedPayload is the sensor collaborator's validated, normalized form
// of a reading. Opaque to the orchestrator; forwarded to the analyzer as-is.
type NormalizedPayload = map[string]any

// EncryptedPayload is an opaque ciphertext blob produced by the security
// collaborator. The orchestrator never inspects its contents.
type EncryptedPayload []byte

// =============================================================================
// Update Intents
// =============================================================================

// UpdateIntent enumerates the per-collaborator settings-update flags a
// profile patch may carry.
//
// # Description
//
// A patch key matching one of these intents (with value true) asks the
// orchestrator to forward the patch to the corresponding collaborator's
// UpdateUserSettings. The orchestrator holds an ordered intent-to-
// collaborator table, so adding a collaborator means adding a table row,
// not another branch.
type UpdateIntent string

const (
	IntentSensorSettings         UpdateIntent = "update_sensor_settings"
	IntentAnalysisSettings       UpdateIntent = "update_analysis_settings"
	IntentRecommendationSettings UpdateIntent = "update_recommendation_settings"
	IntentIntakeSettings         UpdateIntent = "update_intake_settings"
	IntentUISettings             UpdateIntent = "update_ui_settings"
)

// RequestedIn reports whether the patch sets this intent flag to true.
//
// Only a boolean true counts; absent keys and non-boolean values do not
// trigger a settings forward.
func (i UpdateIntent) RequestedIn(patch RawUserData) bool {
	v, ok := patch[string(i)]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// =============================================================================
// User Profile
// =============================================================================

// SettingsKeyNotifyProvider is the raw-data key controlling healthcare
// provider escalation for high-severity alerts.
const SettingsKeyNotifyProvider = "notify_healthcare_provider"

// Settings holds the profile flags the orchestrator branches on directly.
//
// Everything else a user configures lives inside the encrypted payload and
// is only meaningful to collaborators.
type Settings struct {
	// NotifyHealthcareProvider gates provider escalation for high alerts.
	NotifyHealthcareProvider bool `json:"notify_healthcare_provider"`
}

// SettingsFromRaw extracts the orchestrator-visible flags from a raw user
// payload. Missing or non-boolean values default to false.
func SettingsFromRaw(data RawUserData) Settings {
	var s Settings
	if v, ok := data[SettingsKeyNotifyProvider].(bool); ok {
		s.NotifyHealthcareProvider = v
	}
	return s
}

// ApplyPatch overlays any recognized flag present in the patch.
func (s *Settings) ApplyPatch(patch RawUserData) {
	if v, ok := patch[SettingsKeyNotifyProvider].(bool); ok {
		s.NotifyHealthcareProvider = v
	}
}

// UserProfile is the registry's authoritative per-user state record.
//
// # Description
//
// A profile exists in the registry iff registration succeeded in every
// collaborator; Components maps each collaborator's name to the opaque
// registration token it issued, correlating this user across collaborators.
// LastActivity is refreshed by every successful operation touching the user.
//
// # Fields
//
//   - ID: opaque unique identifier, immutable once created.
//   - EncryptedData: ciphertext blob from the security collaborator.
//   - RegisteredAt / LastActivity: lifecycle timestamps.
//   - Components: collaborator name -> registration token.
//   - Settings: flags the orchestrator branches on (provider escalation).
type UserProfile struct {
	ID            string            `json:"id"`
	EncryptedData EncryptedPayload  `json:"encrypted_data"`
	RegisteredAt  time.Time         `json:"registered_at"`
	LastActivity  time.Time         `json:"last_activity"`
	Components    map[string]string `json:"components"`
	Settings      Settings          `json:"settings"`
}

// Clone returns a deep copy safe to hand outside the registry.
func (p UserProfile) Clone() UserProfile {
	out := p
	if p.EncryptedData != nil {
		out.EncryptedData = append(EncryptedPayload(nil), p.EncryptedData...)
	}
	if p.Components != nil {
		out.Components = maps.Clone(p.Components)
	}
	return out
}

// Touch updates the last-activity timestamp.
func (p *UserProfile) Touch(now time.Time) {
	p.LastActivity = now
}
