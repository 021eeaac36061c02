// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package nutrition implements the orchestration engine coordinating the
// biometric-sensor-to-supplement-recommendation pipeline.
//
// # Description
//
// The System sequences six collaborators (sensor, analyzer, recommender,
// intake manager, security, UI) behind a small set of public operations:
// register a user, ingest a sensor reading, record a supplement intake,
// and compose dashboards, reports, and profile views. All authoritative
// per-user state lives in an injected registry.Store; the engine itself
// holds no user data.
//
// Every collaborator call is bounded by a timeout and classified as an
// upstream failure attributed to the collaborator's name. Operations on
// the same user are linearized through the registry's per-id locking;
// operations on distinct users run fully in parallel.
//
// # Thread Safety
//
// System is safe for concurrent use after New returns.
package nutrition

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AleutianAI/NutriCore/pkg/logging"
	"github.com/AleutianAI/NutriCore/services/nutrition/alerts"
	"github.com/AleutianAI/NutriCore/services/nutrition/capability"
	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
	"github.com/AleutianAI/NutriCore/services/nutrition/observability"
	"github.com/AleutianAI/NutriCore/services/nutrition/registry"
)

// =============================================================================
// Clock
// =============================================================================

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// systemClock implements Clock with the real time source.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// =============================================================================
// Configuration
// =============================================================================

// DefaultCollaboratorTimeout bounds each collaborator call unless the
// config overrides it.
const DefaultCollaboratorTimeout = 10 * time.Second

// Collaborators bundles the six capability implementations the engine
// drives. All fields are required.
type Collaborators struct {
	Sensor      capability.SensorManager
	Analyzer    capability.NutritionAnalyzer
	Recommender capability.SupplementRecommender
	Intake      capability.IntakeManager
	Security    capability.DataSecurity
	UI          capability.UIManager
}

func (c Collaborators) validate() error {
	switch {
	case c.Sensor == nil:
		return errors.New("sensor collaborator is required")
	case c.Analyzer == nil:
		return errors.New("analyzer collaborator is required")
	case c.Recommender == nil:
		return errors.New("recommender collaborator is required")
	case c.Intake == nil:
		return errors.New("intake collaborator is required")
	case c.Security == nil:
		return errors.New("security collaborator is required")
	case c.UI == nil:
		return errors.New("ui collaborator is required")
	}
	return nil
}

// Config configures a System.
type Config struct {
	// Collaborators are the six capability implementations. Required.
	Collaborators Collaborators

	// Store is the user registry. Defaults to an in-memory store.
	Store registry.Store

	// Provider escalates high-severity alerts to a healthcare provider.
	// Optional; when nil, escalation is skipped even for opted-in users.
	Provider capability.ProviderNotifier

	// Logger defaults to logging.Default().
	Logger *logging.Logger

	// Metrics is optional; nil disables metric recording.
	Metrics *observability.Metrics

	// Clock defaults to the real time source.
	Clock Clock

	// CollaboratorTimeout bounds each collaborator call.
	// Defaults to DefaultCollaboratorTimeout.
	CollaboratorTimeout time.Duration
}

// =============================================================================
// System
// =============================================================================

// registrarHandle names one collaborator's membership surface and the
// update-intent flag that forwards settings to it. The system iterates
// the ordered handle list for registration, rollback, and settings
// forwarding instead of hardcoding call sequences.
type registrarHandle struct {
	name      capability.Name
	registrar capability.Registrar
	intent    datatypes.UpdateIntent
}

// System is the orchestration engine.
type System struct {
	collab  Collaborators
	store   registry.Store
	router  *alerts.Router
	logger  *logging.Logger
	metrics *observability.Metrics
	clock   Clock
	timeout time.Duration

	// registrars is the fixed registration order; rollback and shutdown
	// walk it in reverse.
	registrars []registrarHandle

	// components is the lifecycle start order.
	components []capability.Component

	mu      sync.Mutex
	running bool
}

// New creates a System for the given configuration.
//
// # Inputs
//
//   - cfg: System configuration. Collaborators are required; everything
//     else has a default.
//
// # Outputs
//
//   - *System: The engine, stopped. Call Start before serving traffic.
//   - error: Non-nil if a required collaborator is missing.
func New(cfg Config) (*System, error) {
	if err := cfg.Collaborators.validate(); err != nil {
		return nil, err
	}
	if cfg.Store == nil {
		cfg.Store = registry.NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.CollaboratorTimeout <= 0 {
		cfg.CollaboratorTimeout = DefaultCollaboratorTimeout
	}

	router, err := alerts.NewRouter(alerts.Config{
		Sink:            cfg.Collaborators.UI,
		Provider:        cfg.Provider,
		Logger:          cfg.Logger,
		DispatchTimeout: cfg.CollaboratorTimeout,
	})
	if err != nil {
		return nil, err
	}

	c := cfg.Collaborators
	return &System{
		collab:  c,
		store:   cfg.Store,
		router:  router,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		clock:   cfg.Clock,
		timeout: cfg.CollaboratorTimeout,
		registrars: []registrarHandle{
			{capability.NameSensor, c.Sensor, datatypes.IntentSensorSettings},
			{capability.NameAnalyzer, c.Analyzer, datatypes.IntentAnalysisSettings},
			{capability.NameRecommender, c.Recommender, datatypes.IntentRecommendationSettings},
			{capability.NameIntake, c.Intake, datatypes.IntentIntakeSettings},
			{capability.NameUI, c.UI, datatypes.IntentUISettings},
		},
		components: []capability.Component{
			c.Sensor, c.Analyzer, c.Recommender, c.Intake, c.Security, c.UI,
		},
	}, nil
}

// =============================================================================
// Lifecycle
// =============================================================================

// Start brings every collaborator up in registration order.
//
// # Description
//
// Idempotent: returns false with no error when already running. If a
// collaborator fails to start, the ones already started are stopped in
// reverse order (compensation) and the start error is returned; stop
// failures during compensation are logged, not returned.
//
// # Outputs
//
//   - bool: True if this call performed the start.
//   - error: The first component's start failure, if any.
func (s *System) Start(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false, nil
	}

	for i, component := range s.components {
		if err := component.Start(ctx); err != nil {
			s.logger.Error("component failed to start",
				"component", string(component.Name()), "error", err)
			for j := i - 1; j >= 0; j-- {
				if stopErr := s.components[j].Stop(ctx); stopErr != nil {
					s.logger.Error("compensating stop failed",
						"component", string(s.components[j].Name()), "error", stopErr)
				}
			}
			return false, datatypes.UpstreamFailure(string(component.Name()), err)
		}
	}

	s.running = true
	s.logger.Info("nutrition system started", "components", len(s.components))
	return true, nil
}

// Stop shuts every collaborator down in reverse start order.
//
// # Description
//
// Idempotent: returns false with no error when already stopped. All
// components are attempted even if some fail; failures are joined.
func (s *System) Stop(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false, nil
	}

	var errs []error
	for i := len(s.components) - 1; i >= 0; i-- {
		if err := s.components[i].Stop(ctx); err != nil {
			s.logger.Error("component failed to stop",
				"component", string(s.components[i].Name()), "error", err)
			errs = append(errs, datatypes.UpstreamFailure(string(s.components[i].Name()), err))
		}
	}

	s.running = false
	s.logger.Info("nutrition system stopped")
	return true, errors.Join(errs...)
}

// Running reports whether the system is started.
func (s *System) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// UserCount returns the registry population.
func (s *System) UserCount(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// =============================================================================
// Collaborator Call Helpers
// =============================================================================

// callCollab bounds one collaborator call with the configured timeout and
// classifies any failure as an upstream failure attributed to name.
// Errors already carrying an engine kind pass through unchanged, so the
// sensor pipeline's invalid-data classification survives the wrapper.
func callCollab[T any](ctx context.Context, s *System, name capability.Name, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := fn(ctx)
	if err != nil {
		var zero T
		var engineErr *datatypes.Error
		if errors.As(err, &engineErr) && engineErr.Kind != datatypes.KindUpstreamFailure {
			// An engine classification (invalid payload, unknown id) is the
			// caller's fault, not a collaborator outage.
			return zero, err
		}
		s.metrics.RecordCollaboratorFailure(string(name))
		return zero, datatypes.UpstreamFailure(string(name), err)
	}
	return out, nil
}

// callCollabErr is callCollab for calls without a payload.
func callCollabErr(ctx context.Context, s *System, name capability.Name, fn func(context.Context) error) error {
	_, err := callCollab(ctx, s, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// touch refreshes the user's last-activity timestamp, doubling as the
// registration check: it fails with not-found for unknown ids.
func (s *System) touch(ctx context.Context, userID string) (datatypes.UserProfile, error) {
	now := s.clock.Now()
	return s.store.Mutate(ctx, userID, func(p *datatypes.UserProfile) error {
		p.Touch(now)
		return nil
	})
}
