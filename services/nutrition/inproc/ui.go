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

	"github.com/AleutianAI/NutriCore/pkg/logging"
	"github.com/AleutianAI/NutriCore/services/nutrition/capability"
	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
)

// =============================================================================
// UI Manager
// =============================================================================

// Notification is one delivered user notification.
type Notification struct {
	UserID string
	Alert  datatypes.Alert
	Urgent bool
}

// UI implements capability.UIManager by recording everything it is
// handed and logging notifications. The recorded state is inspectable,
// which is what the demo CLI and integration tests need from a UI.
type UI struct {
	component

	*roster
	logger *logging.Logger

	mu            sync.Mutex
	notifications []Notification
	reportEntries map[string][]datatypes.Alert
	healthData    map[string]datatypes.AnalysisResult
	supplements   map[string]datatypes.RecommendationSet
	intakes       map[string][]datatypes.IntakeRecord
}

// NewUI creates a recording UI manager.
func NewUI(logger *logging.Logger) *UI {
	if logger == nil {
		logger = logging.Default()
	}
	return &UI{
		component:     component{name: capability.NameUI},
		roster:        newRoster(),
		logger:        logger,
		reportEntries: make(map[string][]datatypes.Alert),
		healthData:    make(map[string]datatypes.AnalysisResult),
		supplements:   make(map[string]datatypes.RecommendationSet),
		intakes:       make(map[string][]datatypes.IntakeRecord),
	}
}

func (u *UI) UpdateHealthData(_ context.Context, userID string, result datatypes.AnalysisResult) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.healthData[userID] = result
	return nil
}

func (u *UI) UpdateSupplementData(_ context.Context, userID string, set datatypes.RecommendationSet) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.supplements[userID] = set
	return nil
}

func (u *UI) UpdateIntakeStatus(_ context.Context, userID string, record datatypes.IntakeRecord) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.intakes[userID] = append(u.intakes[userID], record)
	return nil
}

func (u *UI) SendUrgentNotification(_ context.Context, userID string, alert datatypes.Alert) error {
	u.logger.Warn("urgent notification",
		"user_id", userID, "alert_id", alert.ID, "message", alert.Message)
	u.record(Notification{UserID: userID, Alert: alert, Urgent: true})
	return nil
}

func (u *UI) SendNotification(_ context.Context, userID string, alert datatypes.Alert) error {
	u.logger.Info("notification",
		"user_id", userID, "alert_id", alert.ID, "message", alert.Message)
	u.record(Notification{UserID: userID, Alert: alert})
	return nil
}

func (u *UI) AddToHealthReport(_ context.Context, userID string, alert datatypes.Alert) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.reportEntries[userID] = append(u.reportEntries[userID], alert)
	return nil
}

func (u *UI) record(n Notification) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.notifications = append(u.notifications, n)
}

// Notifications returns every notification delivered so far.
func (u *UI) Notifications() []Notification {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Notification(nil), u.notifications...)
}

// ReportEntries returns the low-severity alerts recorded for a user.
func (u *UI) ReportEntries(userID string) []datatypes.Alert {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]datatypes.Alert(nil), u.reportEntries[userID]...)
}

// LatestHealthData returns the last analysis forwarded for a user.
func (u *UI) LatestHealthData(userID string) (datatypes.AnalysisResult, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	result, ok := u.healthData[userID]
	return result, ok
}

var _ capability.UIManager = (*UI)(nil)
