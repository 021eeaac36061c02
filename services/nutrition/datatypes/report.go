// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"time"
)

// =============================================================================
// Report Windows
// =============================================================================

// ReportType selects the date window for a health report.
type ReportType string

const (
	ReportDaily   ReportType = "daily"
	ReportWeekly  ReportType = "weekly"
	ReportMonthly ReportType = "monthly"
)

// Window computes the [start, end] date range for this report type.
//
// # Description
//
// The window is computed at date granularity in now's location: end is
// today, start is today minus 0, 7, or 30 days for daily, weekly, and
// monthly respectively. Any other report type fails with
// ErrInvalidReportType.
//
// # Inputs
//
//   - now: Reference instant; only its date component matters.
//
// # Outputs
//
//   - start, end: Inclusive window bounds at midnight.
//   - error: ErrInvalidReportType for unrecognized types.
func (rt ReportType) Window(now time.Time) (start, end time.Time, err error) {
	end = midnight(now)
	switch rt {
	case ReportDaily:
		start = end
	case ReportWeekly:
		start = end.AddDate(0, 0, -7)
	case ReportMonthly:
		start = end.AddDate(0, 0, -30)
	default:
		return time.Time{}, time.Time{}, InvalidReportType(string(rt))
	}
	return start, end, nil
}

// midnight truncates t to the start of its day, preserving the location.
func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// =============================================================================
// Composed Read Models
// =============================================================================

// Dashboard is the composed at-a-glance view returned by GetUserDashboard.
// All three sections are collaborator-owned artifacts the orchestrator
// forwards without interpretation.
type Dashboard struct {
	HealthData     any `json:"health_data"`
	SupplementData any `json:"supplement_data"`
	ComplianceData any `json:"compliance_data"`
}

// HealthReport is the composed windowed report returned by GetHealthReport.
type HealthReport struct {
	UserID         string     `json:"user_id"`
	ReportType     ReportType `json:"report_type"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        time.Time  `json:"end_date"`
	GeneratedAt    time.Time  `json:"generated_at"`
	HealthData     any        `json:"health_data"`
	SupplementData any        `json:"supplement_data"`
	ComplianceData any        `json:"compliance_data"`
	Trends         any        `json:"trends"`
}

// =============================================================================
// Collaborator Artifacts
// =============================================================================

// Recommendation is a single supplement recommendation item. Opaque beyond
// presence; the orchestrator forwards items without reading them.
type Recommendation = map[string]any

// RecommendationSet is the recommender's output for one analysis result.
// It replaces, not merges, the user's prior intake schedule.
type RecommendationSet struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Items       []Recommendation `json:"items"`
}

// Empty reports whether the set carries no recommendations. Emptiness is
// the only structure the orchestrator reads out of a set.
func (r RecommendationSet) Empty() bool {
	return len(r.Items) == 0
}

// IntakeRecord is the intake manager's record of one supplement intake.
// Opaque to the orchestrator; forwarded to the UI collaborator as-is.
type IntakeRecord = map[string]any
