// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package alerts routes analysis alerts to notification channels by
// severity.
//
// # Description
//
// The router maps each alert's severity to a delivery policy: high
// severity alerts become urgent notifications (optionally escalated to a
// healthcare provider), medium severity alerts become standard
// notifications, and low severity alerts are recorded in the user's
// health report only. Unknown severities are treated as medium.
//
// The router never deduplicates. An alert's ID is its identity; channels
// that need at-most-once escalation (the provider notifier, typically)
// dedup on that ID themselves.
package alerts

import (
	"context"
	"errors"
	"time"

	"github.com/AleutianAI/NutriCore/pkg/logging"
	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
)

// =============================================================================
// Channel Contracts
// =============================================================================

// Sink receives routed alerts on behalf of the user. The UI collaborator
// satisfies this contract.
type Sink interface {
	// SendUrgentNotification delivers a high-severity alert.
	SendUrgentNotification(ctx context.Context, userID string, alert datatypes.Alert) error

	// SendNotification delivers a standard-severity alert.
	SendNotification(ctx context.Context, userID string, alert datatypes.Alert) error

	// AddToHealthReport records a low-severity alert for later reporting.
	AddToHealthReport(ctx context.Context, userID string, alert datatypes.Alert) error
}

// ProviderNotifier escalates high-severity alerts to a healthcare
// provider. Implementations dedup on Alert.ID.
type ProviderNotifier interface {
	NotifyProvider(ctx context.Context, userID string, alert datatypes.Alert) error
}

// =============================================================================
// Router
// =============================================================================

// Config configures a Router.
type Config struct {
	// Sink receives routed alerts. Required.
	Sink Sink

	// Provider escalates high-severity alerts when the user has opted in.
	// Optional; when nil, escalation is skipped silently.
	Provider ProviderNotifier

	// Logger records routing decisions. Defaults to logging.Default().
	Logger *logging.Logger

	// DispatchTimeout bounds each channel call. Defaults to 5s.
	DispatchTimeout time.Duration
}

// Router dispatches alerts per severity policy.
//
// # Thread Safety
//
// Safe for concurrent use; the router holds no mutable state.
type Router struct {
	sink     Sink
	provider ProviderNotifier
	logger   *logging.Logger
	timeout  time.Duration
}

// NewRouter creates a Router for the given configuration.
func NewRouter(cfg Config) (*Router, error) {
	if cfg.Sink == nil {
		return nil, errors.New("alert sink is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 5 * time.Second
	}
	return &Router{
		sink:     cfg.Sink,
		provider: cfg.Provider,
		logger:   cfg.Logger,
		timeout:  cfg.DispatchTimeout,
	}, nil
}

// Route dispatches one alert according to its severity.
//
// # Description
//
// High severity sends an urgent notification and, when notifyProvider is
// set and a provider is configured, escalates to the provider as well;
// both channels are attempted even if one fails, and their errors are
// joined. Medium severity (and any unrecognized severity) sends a
// standard notification. Low severity is appended to the health report
// without notifying the user.
//
// # Inputs
//
//   - ctx: Cancellation context; each channel call is additionally
//     bounded by the router's dispatch timeout.
//   - userID: The alert's subject.
//   - alert: The alert to dispatch. Must carry an ID.
//   - notifyProvider: The user's provider-escalation setting.
//
// # Outputs
//
//   - error: The channel failure(s), or nil. A routing failure never
//     means partial state: each channel either received the alert or
//     reported the error returned here.
func (r *Router) Route(ctx context.Context, userID string, alert datatypes.Alert, notifyProvider bool) error {
	switch alert.Severity {
	case datatypes.SeverityHigh:
		urgentErr := r.dispatch(ctx, func(ctx context.Context) error {
			return r.sink.SendUrgentNotification(ctx, userID, alert)
		})
		var providerErr error
		if notifyProvider && r.provider != nil {
			providerErr = r.dispatch(ctx, func(ctx context.Context) error {
				return r.provider.NotifyProvider(ctx, userID, alert)
			})
			if providerErr == nil {
				r.logger.Info("alert escalated to provider",
					"user_id", userID, "alert_id", alert.ID)
			}
		}
		return errors.Join(urgentErr, providerErr)

	case datatypes.SeverityLow:
		return r.dispatch(ctx, func(ctx context.Context) error {
			return r.sink.AddToHealthReport(ctx, userID, alert)
		})

	default:
		// Medium, and anything unrecognized.
		return r.dispatch(ctx, func(ctx context.Context) error {
			return r.sink.SendNotification(ctx, userID, alert)
		})
	}
}

func (r *Router) dispatch(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return fn(ctx)
}
