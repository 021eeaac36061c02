// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package inproc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AleutianAI/NutriCore/services/nutrition/capability"
	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
)

// =============================================================================
// Nutrition Analyzer
// =============================================================================

// deficiencyThresholds maps impedance nutrient keys to the level below
// which the nutrient counts as deficient.
var deficiencyThresholds = map[string]float64{
	"vitamin_d":   30.0, // ng/mL
	"iron":        60.0, // mcg/dL
	"vitamin_b12": 300.0, // pg/mL
	"magnesium":   1.7,  // mg/dL
	"zinc":        60.0, // mcg/dL
	"omega_3":     4.0,  // %
}

// Vital alert thresholds.
const (
	lowBloodOxygen   = 92.0  // %
	highGlucose      = 180.0 // mg/dL
	highRestingPulse = 120.0 // bpm
)

// historyEntry is one analyzed reading retained for reports.
type historyEntry struct {
	at       time.Time
	findings map[string]any
}

// Analyzer implements capability.NutritionAnalyzer with fixed thresholds
// over normalized readings. Analyzed findings are retained per user for
// the health-data and trend queries.
type Analyzer struct {
	component
	*roster

	clock func() time.Time

	mu      sync.Mutex
	history map[string][]historyEntry
}

// NewAnalyzer creates an analyzer using the real time source.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithClock(time.Now)
}

// NewAnalyzerWithClock creates an analyzer with an injected time source
// for deterministic tests.
func NewAnalyzerWithClock(clock func() time.Time) *Analyzer {
	return &Analyzer{
		component: component{name: capability.NameAnalyzer},
		roster:    newRoster(),
		clock:     clock,
		history:   make(map[string][]historyEntry),
	}
}

// Analyze derives findings and alerts from one normalized reading.
//
// # Description
//
// Impedance nutrients below their thresholds are reported as
// deficiencies and set the update-recommendation flag. Vital signs
// outside safe ranges raise alerts: critically low blood oxygen and high
// glucose are high severity, an elevated pulse is medium, and each
// detected deficiency is recorded as a low-severity report entry.
func (a *Analyzer) Analyze(_ context.Context, userID string, normalized datatypes.NormalizedPayload) (datatypes.AnalysisResult, error) {
	now := a.clock()

	deficiencies := map[string]float64{}
	if impedance, ok := normalized["impedance_measurements"].(map[string]any); ok {
		for nutrient, threshold := range deficiencyThresholds {
			if level, ok := impedance[nutrient].(float64); ok && level < threshold {
				deficiencies[nutrient] = level
			}
		}
	}

	var alerts []datatypes.Alert
	if oxygen, ok := normalized["blood_oxygen"].(float64); ok && oxygen < lowBloodOxygen {
		alerts = append(alerts, datatypes.NewAlert(
			fmt.Sprintf("blood oxygen critically low: %.1f%%", oxygen),
			datatypes.SeverityHigh, now))
	}
	if impedance, ok := normalized["impedance_measurements"].(map[string]any); ok {
		if glucose, ok := impedance["glucose"].(float64); ok && glucose > highGlucose {
			alerts = append(alerts, datatypes.NewAlert(
				fmt.Sprintf("glucose critically high: %.0f mg/dL", glucose),
				datatypes.SeverityHigh, now))
		}
	}
	if pulse, ok := normalized["heart_rate"].(float64); ok && pulse > highRestingPulse {
		alerts = append(alerts, datatypes.NewAlert(
			fmt.Sprintf("elevated resting heart rate: %.0f bpm", pulse),
			datatypes.SeverityMedium, now))
	}
	for nutrient, level := range deficiencies {
		alerts = append(alerts, datatypes.NewAlert(
			fmt.Sprintf("%s below target: %.1f", nutrient, level),
			datatypes.SeverityLow, now))
	}

	findings := map[string]any{
		"analyzed_at":  now,
		"deficiencies": deficiencies,
		"vitals":       vitalsOf(normalized),
	}

	a.mu.Lock()
	a.history[userID] = append(a.history[userID], historyEntry{at: now, findings: findings})
	a.mu.Unlock()

	return datatypes.AnalysisResult{
		Findings:             findings,
		UpdateRecommendation: len(deficiencies) > 0,
		Alerts:               alerts,
	}, nil
}

// HealthData returns the findings recorded within [start, end]; zero
// bounds return the full history.
func (a *Analyzer) HealthData(_ context.Context, userID string, start, end time.Time) (any, error) {
	entries := a.window(userID, start, end)
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.findings)
	}
	return out, nil
}

// Trends compares the first and last reading in the window per nutrient
// and labels each "improving", "declining", or "stable".
func (a *Analyzer) Trends(_ context.Context, userID string, start, end time.Time) (any, error) {
	entries := a.window(userID, start, end)
	if len(entries) < 2 {
		return map[string]string{}, nil
	}

	first := deficiencyLevels(entries[0])
	last := deficiencyLevels(entries[len(entries)-1])

	trends := map[string]string{}
	for nutrient, early := range first {
		late, ok := last[nutrient]
		switch {
		case !ok:
			trends[nutrient] = "improving" // no longer deficient
		case late > early:
			trends[nutrient] = "improving"
		case late < early:
			trends[nutrient] = "declining"
		default:
			trends[nutrient] = "stable"
		}
	}
	return trends, nil
}

func (a *Analyzer) window(userID string, start, end time.Time) []historyEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []historyEntry
	for _, e := range a.history[userID] {
		if !start.IsZero() && e.at.Before(start) {
			continue
		}
		// end is inclusive at date granularity; accept the whole end day
		// but nothing from the next midnight on.
		if !end.IsZero() && !e.at.Before(end.AddDate(0, 0, 1)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func deficiencyLevels(e historyEntry) map[string]float64 {
	levels, _ := e.findings["deficiencies"].(map[string]float64)
	return levels
}

func vitalsOf(normalized datatypes.NormalizedPayload) map[string]any {
	vitals := map[string]any{}
	for _, key := range []string{"heart_rate", "blood_oxygen", "body_temperature", "blood_pressure"} {
		if v, ok := normalized[key]; ok {
			vitals[key] = v
		}
	}
	return vitals
}

var _ capability.NutritionAnalyzer = (*Analyzer)(nil)
