// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package nutrition

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/AleutianAI/NutriCore/services/nutrition/capability"
	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
	"github.com/AleutianAI/NutriCore/services/nutrition/observability"
)

// profileKeyPassword is scrubbed from decrypted payloads before they
// leave the engine.
const profileKeyPassword = "password"

// =============================================================================
// Registration
// =============================================================================

// RegisterUser creates a profile and enrolls the user with every
// collaborator.
//
// # Description
//
// The raw payload is encrypted first; the plaintext is never stored. The
// user is then registered with each collaborator in the fixed order
// sensor, analyzer, recommender, intake, ui. If any registration fails,
// the collaborators already registered are asked to deregister in
// reverse order and no profile is created; rollback failures are logged
// without masking the root cause. A concurrent registration of the same
// id loses the registry insert and is rolled back the same way.
//
// # Inputs
//
//   - ctx: Cancellation context.
//   - userID: The new user's id. Must be unused.
//   - data: Plaintext registration payload. The
//     notify_healthcare_provider flag, when present, seeds the profile's
//     escalation setting.
//
// # Outputs
//
//   - string: The registered user's id.
//   - error: Already-exists for a taken id, or the failing
//     collaborator's upstream failure.
func (s *System) RegisterUser(ctx context.Context, userID string, data datatypes.RawUserData) (string, error) {
	if _, err := s.store.Get(ctx, userID); err == nil {
		return "", datatypes.AlreadyExists(userID)
	} else if !errors.Is(err, datatypes.ErrNotFound) {
		return "", err
	}

	encrypted, err := callCollab(ctx, s, capability.NameSecurity, func(ctx context.Context) (datatypes.EncryptedPayload, error) {
		return s.collab.Security.EncryptUserData(ctx, data)
	})
	if err != nil {
		return "", err
	}

	components := make(map[string]string, len(s.registrars))
	registered := 0
	for _, handle := range s.registrars {
		token, err := callCollab(ctx, s, handle.name, func(ctx context.Context) (string, error) {
			return handle.registrar.RegisterUser(ctx, userID, data)
		})
		if err != nil {
			s.rollbackRegistrations(ctx, userID, registered)
			return "", err
		}
		components[string(handle.name)] = token
		registered++
	}

	now := s.clock.Now()
	profile := datatypes.UserProfile{
		ID:            userID,
		EncryptedData: encrypted,
		RegisteredAt:  now,
		LastActivity:  now,
		Components:    components,
		Settings:      datatypes.SettingsFromRaw(data),
	}
	if err := s.store.Create(ctx, profile); err != nil {
		// Lost a registration race; undo the collaborator enrollments.
		s.rollbackRegistrations(ctx, userID, registered)
		return "", err
	}

	s.metrics.UserRegistered()
	s.logger.Info("user registered", "user_id", userID, "collaborators", registered)
	return userID, nil
}

// rollbackRegistrations deregisters the first n registrars in reverse
// order. Failures are logged; compensation never masks the root cause.
func (s *System) rollbackRegistrations(ctx context.Context, userID string, n int) {
	for i := n - 1; i >= 0; i-- {
		handle := s.registrars[i]
		err := callCollabErr(ctx, s, handle.name, func(ctx context.Context) error {
			return handle.registrar.DeregisterUser(ctx, userID)
		})
		if err != nil {
			s.logger.Error("registration rollback failed",
				"user_id", userID, "collaborator", string(handle.name), "error", err)
		}
	}
	s.logger.Warn("user registration rolled back", "user_id", userID, "deregistered", n)
}

// =============================================================================
// Sensor Ingestion Pipeline
// =============================================================================

// IngestSensorData runs the full pipeline for one sensor reading.
//
// # Description
//
// Stages, in order: refresh last-activity (failing with not-found for
// unknown ids), validate and normalize the raw payload, analyze the
// normalized reading, conditionally refresh recommendations when the
// analyzer asks for it, route each alert by severity, and forward the
// analysis to the UI. Alert routing is independent per alert: a dispatch
// failure is collected in the result, not fatal, and does not stop later
// alerts. The UI forward is fire-and-forget; its failure is logged only.
//
// # Inputs
//
//   - ctx: Cancellation context.
//   - userID: A registered user's id.
//   - raw: The unvalidated device payload.
//
// # Outputs
//
//   - datatypes.IngestResult: The analysis plus any alert dispatch
//     failures.
//   - error: Not-found, invalid-sensor-data (nothing mutated beyond the
//     activity touch), or an upstream failure from a pipeline stage.
func (s *System) IngestSensorData(ctx context.Context, userID string, raw datatypes.RawSensorPayload) (datatypes.IngestResult, error) {
	started := time.Now()

	profile, err := s.touch(ctx, userID)
	if err != nil {
		s.metrics.RecordIngest(observability.StatusNotFound)
		return datatypes.IngestResult{}, err
	}

	normalized, err := callCollab(ctx, s, capability.NameSensor, func(ctx context.Context) (datatypes.NormalizedPayload, error) {
		return s.collab.Sensor.Process(ctx, userID, raw)
	})
	if err != nil {
		if errors.Is(err, datatypes.ErrInvalidSensorData) {
			s.metrics.RecordIngest(observability.StatusInvalidData)
		} else {
			s.metrics.RecordIngest(observability.StatusUpstreamFailure)
		}
		return datatypes.IngestResult{}, err
	}

	result, err := callCollab(ctx, s, capability.NameAnalyzer, func(ctx context.Context) (datatypes.AnalysisResult, error) {
		return s.collab.Analyzer.Analyze(ctx, userID, normalized)
	})
	if err != nil {
		s.metrics.RecordIngest(observability.StatusUpstreamFailure)
		return datatypes.IngestResult{}, err
	}

	// Every routed alert carries a stable identity; provider-side dedup
	// relies on it.
	for i := range result.Alerts {
		result.Alerts[i] = result.Alerts[i].WithIdentity()
	}

	if result.UpdateRecommendation {
		if _, err := s.UpdateRecommendations(ctx, userID, result); err != nil {
			s.metrics.RecordIngest(observability.StatusUpstreamFailure)
			return datatypes.IngestResult{}, err
		}
	}

	var failures []datatypes.AlertFailure
	for _, alert := range result.Alerts {
		s.metrics.RecordAlertRouted(alert.Severity.String())
		if err := s.router.Route(ctx, userID, alert, profile.Settings.NotifyHealthcareProvider); err != nil {
			s.logger.Error("alert dispatch failed",
				"user_id", userID, "alert_id", alert.ID,
				"severity", alert.Severity.String(), "error", err)
			failures = append(failures, datatypes.AlertFailure{Alert: alert, Err: err})
		}
	}

	if err := callCollabErr(ctx, s, capability.NameUI, func(ctx context.Context) error {
		return s.collab.UI.UpdateHealthData(ctx, userID, result)
	}); err != nil {
		s.logger.Warn("ui health-data forward failed", "user_id", userID, "error", err)
	}

	s.metrics.RecordIngest(observability.StatusSuccess)
	s.metrics.ObservePipeline(time.Since(started))
	return datatypes.IngestResult{Analysis: result, AlertFailures: failures}, nil
}

// UpdateRecommendations recomputes the user's supplement plan from an
// analysis result.
//
// # Description
//
// The recommender derives a set, the intake manager adopts it as the
// new schedule (replacing the prior one), and the UI is notified.
// Recommender and intake failures are fatal; the UI forward is logged
// only.
func (s *System) UpdateRecommendations(ctx context.Context, userID string, result datatypes.AnalysisResult) (datatypes.RecommendationSet, error) {
	if _, err := s.touch(ctx, userID); err != nil {
		return datatypes.RecommendationSet{}, err
	}

	set, err := callCollab(ctx, s, capability.NameRecommender, func(ctx context.Context) (datatypes.RecommendationSet, error) {
		return s.collab.Recommender.Recommend(ctx, userID, result)
	})
	if err != nil {
		return datatypes.RecommendationSet{}, err
	}

	if err := callCollabErr(ctx, s, capability.NameIntake, func(ctx context.Context) error {
		return s.collab.Intake.UpdateSchedule(ctx, userID, set)
	}); err != nil {
		return datatypes.RecommendationSet{}, err
	}

	if err := callCollabErr(ctx, s, capability.NameUI, func(ctx context.Context) error {
		return s.collab.UI.UpdateSupplementData(ctx, userID, set)
	}); err != nil {
		s.logger.Warn("ui supplement forward failed", "user_id", userID, "error", err)
	}

	s.logger.Info("recommendations updated", "user_id", userID, "items", len(set.Items))
	return set, nil
}

// =============================================================================
// Intake
// =============================================================================

// RecordSupplementIntake records one supplement intake.
//
// # Description
//
// A zero takenAt defaults to the current time. The intake manager owns
// the record; the UI forward is logged only.
func (s *System) RecordSupplementIntake(ctx context.Context, userID, supplementID string, takenAt time.Time) (datatypes.IntakeRecord, error) {
	if _, err := s.touch(ctx, userID); err != nil {
		return nil, err
	}

	if takenAt.IsZero() {
		takenAt = s.clock.Now()
	}

	record, err := callCollab(ctx, s, capability.NameIntake, func(ctx context.Context) (datatypes.IntakeRecord, error) {
		return s.collab.Intake.RecordIntake(ctx, userID, supplementID, takenAt)
	})
	if err != nil {
		return nil, err
	}

	if err := callCollabErr(ctx, s, capability.NameUI, func(ctx context.Context) error {
		return s.collab.UI.UpdateIntakeStatus(ctx, userID, record)
	}); err != nil {
		s.logger.Warn("ui intake forward failed", "user_id", userID, "error", err)
	}

	return record, nil
}

// =============================================================================
// Composed Reads
// =============================================================================

// GetUserDashboard composes the at-a-glance view: current health data,
// the active supplement schedule, and the default-window compliance
// figure. Any collaborator failure fails the read.
func (s *System) GetUserDashboard(ctx context.Context, userID string) (datatypes.Dashboard, error) {
	if _, err := s.touch(ctx, userID); err != nil {
		return datatypes.Dashboard{}, err
	}

	health, err := callCollab(ctx, s, capability.NameAnalyzer, func(ctx context.Context) (any, error) {
		return s.collab.Analyzer.HealthData(ctx, userID, time.Time{}, time.Time{})
	})
	if err != nil {
		return datatypes.Dashboard{}, err
	}

	schedule, err := callCollab(ctx, s, capability.NameIntake, func(ctx context.Context) (any, error) {
		return s.collab.Intake.Schedule(ctx, userID)
	})
	if err != nil {
		return datatypes.Dashboard{}, err
	}

	compliance, err := callCollab(ctx, s, capability.NameIntake, func(ctx context.Context) (any, error) {
		return s.collab.Intake.ComplianceRate(ctx, userID, time.Time{}, time.Time{})
	})
	if err != nil {
		return datatypes.Dashboard{}, err
	}

	return datatypes.Dashboard{
		HealthData:     health,
		SupplementData: schedule,
		ComplianceData: compliance,
	}, nil
}

// GetHealthReport composes a windowed report.
//
// # Description
//
// The window is derived from the report type at date granularity:
// daily is [today, today], weekly [today-7d, today], monthly
// [today-30d, today]. Unknown ids fail with not-found before the report
// type is inspected; unrecognized types fail with invalid-report-type.
func (s *System) GetHealthReport(ctx context.Context, userID string, reportType datatypes.ReportType) (datatypes.HealthReport, error) {
	if _, err := s.touch(ctx, userID); err != nil {
		return datatypes.HealthReport{}, err
	}

	start, end, err := reportType.Window(s.clock.Now())
	if err != nil {
		return datatypes.HealthReport{}, err
	}

	health, err := callCollab(ctx, s, capability.NameAnalyzer, func(ctx context.Context) (any, error) {
		return s.collab.Analyzer.HealthData(ctx, userID, start, end)
	})
	if err != nil {
		return datatypes.HealthReport{}, err
	}

	supplements, err := callCollab(ctx, s, capability.NameIntake, func(ctx context.Context) (any, error) {
		return s.collab.Intake.IntakeHistory(ctx, userID, start, end)
	})
	if err != nil {
		return datatypes.HealthReport{}, err
	}

	compliance, err := callCollab(ctx, s, capability.NameIntake, func(ctx context.Context) (any, error) {
		return s.collab.Intake.ComplianceRate(ctx, userID, start, end)
	})
	if err != nil {
		return datatypes.HealthReport{}, err
	}

	trends, err := callCollab(ctx, s, capability.NameAnalyzer, func(ctx context.Context) (any, error) {
		return s.collab.Analyzer.Trends(ctx, userID, start, end)
	})
	if err != nil {
		return datatypes.HealthReport{}, err
	}

	return datatypes.HealthReport{
		UserID:         userID,
		ReportType:     reportType,
		StartDate:      start,
		EndDate:        end,
		GeneratedAt:    s.clock.Now(),
		HealthData:     health,
		SupplementData: supplements,
		ComplianceData: compliance,
		Trends:         trends,
	}, nil
}

// GetUserProfile returns the decrypted profile payload with credentials
// scrubbed and registry timestamps overlaid.
func (s *System) GetUserProfile(ctx context.Context, userID string) (datatypes.RawUserData, error) {
	profile, err := s.touch(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := callCollab(ctx, s, capability.NameSecurity, func(ctx context.Context) (datatypes.RawUserData, error) {
		return s.collab.Security.DecryptUserData(ctx, profile.EncryptedData)
	})
	if err != nil {
		return nil, err
	}

	delete(data, profileKeyPassword)
	data["registered_at"] = profile.RegisteredAt
	data["last_activity"] = profile.LastActivity
	return data, nil
}

// UpdateUserProfile applies a patch to the encrypted payload and forwards
// settings updates to interested collaborators.
//
// # Description
//
// The stored payload is decrypted, patch keys are merged over it
// last-writer-wins, and the result is re-encrypted and committed
// together with the orchestrator-visible setting flags. The ordered
// update-intent table is then walked: each collaborator whose intent
// flag is set true in the patch receives the patch via
// UpdateUserSettings. A forwarding failure is returned as that
// collaborator's upstream failure; the committed profile is not rolled
// back.
func (s *System) UpdateUserProfile(ctx context.Context, userID string, patch datatypes.RawUserData) error {
	profile, err := s.store.Get(ctx, userID)
	if err != nil {
		return err
	}

	current, err := callCollab(ctx, s, capability.NameSecurity, func(ctx context.Context) (datatypes.RawUserData, error) {
		return s.collab.Security.DecryptUserData(ctx, profile.EncryptedData)
	})
	if err != nil {
		return err
	}

	merged := maps.Clone(current)
	if merged == nil {
		merged = datatypes.RawUserData{}
	}
	maps.Copy(merged, patch)

	encrypted, err := callCollab(ctx, s, capability.NameSecurity, func(ctx context.Context) (datatypes.EncryptedPayload, error) {
		return s.collab.Security.EncryptUserData(ctx, merged)
	})
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if _, err := s.store.Mutate(ctx, userID, func(p *datatypes.UserProfile) error {
		p.EncryptedData = encrypted
		p.Settings.ApplyPatch(patch)
		p.Touch(now)
		return nil
	}); err != nil {
		return err
	}

	for _, handle := range s.registrars {
		if !handle.intent.RequestedIn(patch) {
			continue
		}
		err := callCollabErr(ctx, s, handle.name, func(ctx context.Context) error {
			return handle.registrar.UpdateUserSettings(ctx, userID, patch)
		})
		if err != nil {
			return err
		}
	}

	s.logger.Info("user profile updated", "user_id", userID, "patch_keys", len(patch))
	return nil
}
