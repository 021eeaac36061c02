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
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/NutriCore/services/nutrition/capability"
	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
)

// =============================================================================
// Intake Manager
// =============================================================================

// Intake implements capability.IntakeManager: per-user schedules, intake
// records, and compliance accounting, all in memory.
type Intake struct {
	component
	*roster

	mu        sync.Mutex
	schedules map[string]datatypes.RecommendationSet
	records   map[string][]datatypes.IntakeRecord
}

// NewIntake creates an intake manager.
func NewIntake() *Intake {
	return &Intake{
		component: component{name: capability.NameIntake},
		roster:    newRoster(),
		schedules: make(map[string]datatypes.RecommendationSet),
		records:   make(map[string][]datatypes.IntakeRecord),
	}
}

// UpdateSchedule replaces the user's schedule wholesale; the prior
// schedule is discarded, not merged.
func (i *Intake) UpdateSchedule(_ context.Context, userID string, set datatypes.RecommendationSet) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.schedules[userID] = set
	return nil
}

// RecordIntake appends one intake record with a fresh id.
func (i *Intake) RecordIntake(_ context.Context, userID, supplementID string, takenAt time.Time) (datatypes.IntakeRecord, error) {
	record := datatypes.IntakeRecord{
		"id":            uuid.NewString(),
		"supplement_id": supplementID,
		"taken_at":      takenAt,
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.records[userID] = append(i.records[userID], record)
	return record, nil
}

// Schedule returns the user's current schedule items.
func (i *Intake) Schedule(_ context.Context, userID string) (any, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.schedules[userID].Items, nil
}

// ComplianceRate returns the share of scheduled doses covered by intake
// records in [start, end].
//
// # Description
//
// Expected doses are schedule items times the number of days in the
// window (one day for zero bounds). A user with no schedule is fully
// compliant. The rate is capped at 1.
func (i *Intake) ComplianceRate(_ context.Context, userID string, start, end time.Time) (any, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	scheduled := len(i.schedules[userID].Items)
	if scheduled == 0 {
		return 1.0, nil
	}

	days := 1
	if !start.IsZero() && !end.IsZero() && end.After(start) {
		days = int(end.Sub(start).Hours()/24) + 1
	}

	taken := len(i.windowedRecords(userID, start, end))
	rate := float64(taken) / float64(scheduled*days)
	if rate > 1 {
		rate = 1
	}
	return rate, nil
}

// IntakeHistory returns intake records within [start, end]; zero bounds
// return everything.
func (i *Intake) IntakeHistory(_ context.Context, userID string, start, end time.Time) (any, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.windowedRecords(userID, start, end), nil
}

// windowedRecords filters records by the inclusive date window. Callers
// hold i.mu.
func (i *Intake) windowedRecords(userID string, start, end time.Time) []datatypes.IntakeRecord {
	out := make([]datatypes.IntakeRecord, 0, len(i.records[userID]))
	for _, record := range i.records[userID] {
		takenAt, ok := record["taken_at"].(time.Time)
		if !ok {
			continue
		}
		if !start.IsZero() && takenAt.Before(start) {
			continue
		}
		if !end.IsZero() && !takenAt.Before(end.AddDate(0, 0, 1)) {
			continue
		}
		out = append(out, record)
	}
	return out
}

var _ capability.IntakeManager = (*Intake)(nil)
