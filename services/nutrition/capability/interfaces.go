// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package capability declares the collaborator contracts the nutrition
// orchestration engine depends on but does not implement.
//
// # Description
//
// Each collaborator (sensor handling, nutrition analysis, supplement
// recommendation, intake tracking, data security, UI notification) is an
// external subsystem the orchestrator drives through one of these
// interfaces. Implementations may be in-process (see the inproc package),
// remote services, or test doubles — the engine only sees the contract.
//
// Every potentially blocking call takes a context.Context; the orchestrator
// bounds each call with a timeout and classifies failures as upstream
// failures attributed to the collaborator's Name.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use: stages for independent
// users run fully in parallel.
package capability

import (
	"context"
	"time"

	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
)

// =============================================================================
// Collaborator Names
// =============================================================================

// Name identifies a collaborator in logs, errors, metrics, and profile
// component-token maps.
type Name string

const (
	NameSensor      Name = "sensor"
	NameAnalyzer    Name = "analyzer"
	NameRecommender Name = "recommender"
	NameIntake      Name = "intake_manager"
	NameSecurity    Name = "security"
	NameUI          Name = "ui"
)

// =============================================================================
// Shared Surfaces
// =============================================================================

// Component is the lifecycle surface shared by all collaborators.
//
// Start and Stop are driven by the system's own start/stop: components come
// up in registration order and shut down in reverse.
type Component interface {
	// Name returns the collaborator's stable identity.
	Name() Name

	// Start brings the collaborator up. Idempotency is the collaborator's
	// choice; the system calls it once per system start.
	Start(ctx context.Context) error

	// Stop shuts the collaborator down.
	Stop(ctx context.Context) error
}

// Registrar is the per-user membership surface shared by collaborators that
// track users.
//
// # Description
//
// RegisterUser returns an opaque registration token the orchestrator stores
// on the profile to correlate the user across collaborators. DeregisterUser
// exists for compensating rollback when a later collaborator's registration
// fails; the engine has no user-facing deletion path.
type Registrar interface {
	// RegisterUser enrolls the user and returns a collaborator-issued token.
	RegisterUser(ctx context.Context, userID string, data datatypes.RawUserData) (string, error)

	// DeregisterUser removes the user. Called only as registration
	// compensation; must tolerate ids it has never seen.
	DeregisterUser(ctx context.Context, userID string) error

	// UpdateUserSettings forwards a settings patch to the collaborator.
	UpdateUserSettings(ctx context.Context, userID string, settings datatypes.RawUserData) error
}

// =============================================================================
// Capability Contracts
// =============================================================================

// SensorManager validates and normalizes raw biometric sensor payloads.
type SensorManager interface {
	Component
	Registrar

	// Process validates and normalizes a raw reading.
	//
	// Malformed input fails with a datatypes error of kind
	// invalid_sensor_data; any other failure is treated as a collaborator
	// outage by the caller.
	Process(ctx context.Context, userID string, raw datatypes.RawSensorPayload) (datatypes.NormalizedPayload, error)
}

// NutritionAnalyzer derives health findings and alerts from normalized
// sensor data and serves historical health data for reports.
type NutritionAnalyzer interface {
	Component
	Registrar

	// Analyze computes an analysis result from a normalized reading.
	Analyze(ctx context.Context, userID string, normalized datatypes.NormalizedPayload) (datatypes.AnalysisResult, error)

	// HealthData returns stored health data for [start, end]. Zero bounds
	// mean the collaborator's full retention window.
	HealthData(ctx context.Context, userID string, start, end time.Time) (any, error)

	// Trends returns trend data for [start, end].
	Trends(ctx context.Context, userID string, start, end time.Time) (any, error)
}

// SupplementRecommender scores analysis results into recommendation sets.
type SupplementRecommender interface {
	Component
	Registrar

	// Recommend derives a recommendation set from an analysis result.
	Recommend(ctx context.Context, userID string, result datatypes.AnalysisResult) (datatypes.RecommendationSet, error)
}

// IntakeManager owns supplement schedules, intake records, and compliance.
type IntakeManager interface {
	Component
	Registrar

	// UpdateSchedule replaces the user's schedule with the given set.
	UpdateSchedule(ctx context.Context, userID string, set datatypes.RecommendationSet) error

	// RecordIntake records one supplement intake at the given time.
	RecordIntake(ctx context.Context, userID, supplementID string, takenAt time.Time) (datatypes.IntakeRecord, error)

	// Schedule returns the user's current schedule.
	Schedule(ctx context.Context, userID string) (any, error)

	// ComplianceRate returns the compliance figure for [start, end].
	// Zero bounds mean the collaborator's default window.
	ComplianceRate(ctx context.Context, userID string, start, end time.Time) (any, error)

	// IntakeHistory returns intake records within [start, end].
	IntakeHistory(ctx context.Context, userID string, start, end time.Time) (any, error)
}

// DataSecurity encrypts and decrypts personal data payloads. The
// orchestrator never inspects ciphertext and holds plaintext only
// transiently during a profile update.
type DataSecurity interface {
	Component

	// EncryptUserData seals a plaintext payload.
	EncryptUserData(ctx context.Context, data datatypes.RawUserData) (datatypes.EncryptedPayload, error)

	// DecryptUserData opens a payload previously sealed by this
	// collaborator.
	DecryptUserData(ctx context.Context, payload datatypes.EncryptedPayload) (datatypes.RawUserData, error)
}

// UIManager is the notification and presentation sink.
//
// Forwards from the ingestion pipeline are fire-and-forget: the
// orchestrator logs failures from the Update* methods without failing the
// operation that produced the data.
type UIManager interface {
	Component
	Registrar

	UpdateHealthData(ctx context.Context, userID string, result datatypes.AnalysisResult) error
	UpdateSupplementData(ctx context.Context, userID string, set datatypes.RecommendationSet) error
	UpdateIntakeStatus(ctx context.Context, userID string, record datatypes.IntakeRecord) error

	// SendUrgentNotification delivers a high-severity alert immediately.
	SendUrgentNotification(ctx context.Context, userID string, alert datatypes.Alert) error

	// SendNotification delivers a standard (medium) alert.
	SendNotification(ctx context.Context, userID string, alert datatypes.Alert) error

	// AddToHealthReport appends a low-severity alert to the report log
	// without notifying the user.
	AddToHealthReport(ctx context.Context, userID string, alert datatypes.Alert) error
}

// ProviderNotifier escalates high-severity alerts to a healthcare provider.
//
// Optional: when absent, provider escalation is skipped even for users who
// enabled it. Implementations dedup by Alert.ID — the engine guarantees a
// stable identity per alert instance but does not itself keep a seen-set.
type ProviderNotifier interface {
	NotifyProvider(ctx context.Context, userID string, alert datatypes.Alert) error
}
