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
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Alert Severity
// =============================================================================

// Severity is a health alert's escalation level.
//
// # Description
//
// Severities are ordered by escalation weight, not lexically:
// SeverityLow < SeverityMedium < SeverityHigh. The zero value is
// SeverityLow; producers that omit a severity get SeverityMedium via
// ParseSeverity and the JSON decoder — that fallback is deliberate policy,
// not silent failure, so an alert with a garbled severity still notifies.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

// severityNames is the canonical wire form for each level.
var severityNames = map[Severity]string{
	SeverityLow:    "low",
	SeverityMedium: "medium",
	SeverityHigh:   "high",
}

// String returns "low", "medium", or "high". Out-of-range values render as
// "medium", matching the parse fallback.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "medium"
}

// ParseSeverity maps a severity string to its level.
//
// Unknown or empty strings map to SeverityMedium. This is the engine's
// default-severity policy for alerts that arrive without a usable severity.
func ParseSeverity(s string) Severity {
	switch s {
	case "low":
		return SeverityLow
	case "high":
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// MarshalJSON encodes the severity as its canonical string.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity string, applying the medium fallback for
// unknown values. A non-string value is also treated as medium rather than
// failing the whole analysis result.
func (s *Severity) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		*s = SeverityMedium
		return nil
	}
	*s = ParseSeverity(raw)
	return nil
}

// =============================================================================
// Alerts
// =============================================================================

// Alert is a health alert raised by the analysis stage.
//
// # Description
//
// ID is the alert's stable identity. Collaborators that must be idempotent
// per alert instance (the healthcare-provider notifier in particular) dedup
// by this id; the orchestrator guarantees every routed alert carries one.
type Alert struct {
	ID       string    `json:"id"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	RaisedAt time.Time `json:"raised_at,omitzero"`
}

// NewAlert builds an alert with a fresh identity.
func NewAlert(message string, severity Severity, raisedAt time.Time) Alert {
	return Alert{
		ID:       uuid.NewString(),
		Message:  message,
		Severity: severity,
		RaisedAt: raisedAt,
	}
}

// WithIdentity returns the alert with an id assigned if the producer left it
// empty. Existing ids are preserved so retries keep the same identity.
func (a Alert) WithIdentity() Alert {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return a
}

// =============================================================================
// Analysis Results
// =============================================================================

// AnalysisResult is the analyzer collaborator's output for one sensor
// reading.
//
// # Description
//
// Findings are opaque to the orchestrator beyond the two routing fields:
// UpdateRecommendation gates the recommendation stage, and Alerts feed the
// severity router in order.
type AnalysisResult struct {
	Findings             map[string]any `json:"findings,omitempty"`
	UpdateRecommendation bool           `json:"update_recommendation"`
	Alerts               []Alert        `json:"alerts,omitempty"`
}

// AlertFailure records one alert whose dispatch failed during ingestion.
//
// Per-alert dispatch failures are collected, not fatal: the remaining
// alerts are still attempted and the ingestion succeeds.
type AlertFailure struct {
	Alert Alert
	Err   error
}

// IngestResult is the outcome of a successful sensor ingestion: the
// analysis result plus any non-fatal alert dispatch failures.
type IngestResult struct {
	Analysis      AnalysisResult
	AlertFailures []AlertFailure
}
