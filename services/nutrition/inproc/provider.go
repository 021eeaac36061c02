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
// Healthcare Provider Notifier
// =============================================================================

// Provider implements capability.ProviderNotifier, deduplicating by
// alert id so a re-routed alert reaches the provider at most once.
type Provider struct {
	logger *logging.Logger

	mu     sync.Mutex
	seen   map[string]bool
	alerts []datatypes.Alert
}

// NewProvider creates a recording provider notifier.
func NewProvider(logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.Default()
	}
	return &Provider{
		logger: logger,
		seen:   make(map[string]bool),
	}
}

// NotifyProvider records the escalation unless this alert id was already
// delivered.
func (p *Provider) NotifyProvider(_ context.Context, userID string, alert datatypes.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if alert.ID != "" && p.seen[alert.ID] {
		return nil
	}
	p.seen[alert.ID] = true
	p.alerts = append(p.alerts, alert)

	p.logger.Warn("healthcare provider notified",
		"user_id", userID, "alert_id", alert.ID, "message", alert.Message)
	return nil
}

// Escalations returns the alerts delivered so far.
func (p *Provider) Escalations() []datatypes.Alert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]datatypes.Alert(nil), p.alerts...)
}

var _ capability.ProviderNotifier = (*Provider)(nil)
