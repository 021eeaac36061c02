// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the
// nutrition orchestration engine.
//
// # Description
//
// This package implements Prometheus metrics for monitoring the ingest
// pipeline and collaborator health. Metrics include:
//   - Ingest counters (by outcome)
//   - Alert routing counters (by severity)
//   - Collaborator failure counters (by collaborator)
//   - Registered user gauge
//   - Pipeline latency histogram
//
// # Integration
//
// Pass a prometheus.Registerer at construction; expose it via a /metrics
// endpoint in the hosting process. Use with Prometheus + Grafana for
// dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "nutricore"

// Subsystem for orchestration metrics
const engineSubsystem = "engine"

// Metrics holds all Prometheus metrics for the orchestration engine.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring pipeline
// throughput and collaborator health. Initialize once per engine via
// NewMetrics(). A nil *Metrics is valid: every recording method is a
// no-op, so callers never need to branch on whether metrics are enabled.
//
// # Thread Safety
//
// All operations are thread-safe.
type Metrics struct {
	// IngestsTotal counts sensor ingests by outcome.
	// Labels: status (success, invalid_data, upstream_failure, not_found)
	IngestsTotal *prometheus.CounterVec

	// AlertsRoutedTotal counts routed alerts by severity.
	// Labels: severity (low, medium, high)
	AlertsRoutedTotal *prometheus.CounterVec

	// CollaboratorFailuresTotal counts failed collaborator calls.
	// Labels: collaborator (sensor, analyzer, recommender, intake_manager,
	// security, ui)
	CollaboratorFailuresTotal *prometheus.CounterVec

	// RegisteredUsers tracks the current registry population.
	RegisteredUsers prometheus.Gauge

	// PipelineDurationSeconds measures end-to-end ingest latency.
	PipelineDurationSeconds prometheus.Histogram
}

// NewMetrics creates and registers all engine metrics on the given
// registerer.
//
// # Inputs
//
//   - reg: Target registry. prometheus.DefaultRegisterer for production,
//     a fresh prometheus.NewRegistry() in tests.
//
// # Outputs
//
//   - *Metrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if the same metrics are registered twice on one registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		IngestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "ingests_total",
				Help:      "Total sensor data ingests by outcome",
			},
			[]string{"status"},
		),

		AlertsRoutedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "alerts_routed_total",
				Help:      "Total alerts routed by severity",
			},
			[]string{"severity"},
		),

		CollaboratorFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "collaborator_failures_total",
				Help:      "Total failed collaborator calls by collaborator",
			},
			[]string{"collaborator"},
		),

		RegisteredUsers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "registered_users",
				Help:      "Number of currently registered users",
			},
		),

		PipelineDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "pipeline_duration_seconds",
				Help:      "End-to-end sensor ingest pipeline latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
		),
	}
}

// =============================================================================
// Recording Helpers
// =============================================================================

// Ingest outcome label values.
const (
	StatusSuccess         = "success"
	StatusInvalidData     = "invalid_data"
	StatusUpstreamFailure = "upstream_failure"
	StatusNotFound        = "not_found"
)

// RecordIngest increments the ingest counter for the given outcome.
func (m *Metrics) RecordIngest(status string) {
	if m == nil {
		return
	}
	m.IngestsTotal.WithLabelValues(status).Inc()
}

// RecordAlertRouted increments the routed-alert counter for a severity.
func (m *Metrics) RecordAlertRouted(severity string) {
	if m == nil {
		return
	}
	m.AlertsRoutedTotal.WithLabelValues(severity).Inc()
}

// RecordCollaboratorFailure increments the failure counter for a
// collaborator.
func (m *Metrics) RecordCollaboratorFailure(collaborator string) {
	if m == nil {
		return
	}
	m.CollaboratorFailuresTotal.WithLabelValues(collaborator).Inc()
}

// UserRegistered increments the registered-user gauge.
func (m *Metrics) UserRegistered() {
	if m == nil {
		return
	}
	m.RegisteredUsers.Inc()
}

// UserDeregistered decrements the registered-user gauge.
func (m *Metrics) UserDeregistered() {
	if m == nil {
		return
	}
	m.RegisteredUsers.Dec()
}

// ObservePipeline records one pipeline run's duration.
func (m *Metrics) ObservePipeline(d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineDurationSeconds.Observe(d.Seconds())
}
