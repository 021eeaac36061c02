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
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AleutianAI/NutriCore/pkg/logging"
	"github.com/AleutianAI/NutriCore/services/nutrition/capability"
	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
	"github.com/AleutianAI/NutriCore/services/nutrition/observability"
)

// =============================================================================
// Shared Test Doubles
// =============================================================================

// fakeClock returns a fixed instant, advanced manually.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeComponent implements capability.Component with recorded lifecycle
// calls and injectable failures.
type fakeComponent struct {
	name capability.Name

	mu       sync.Mutex
	started  int
	stopped  int
	startErr error
	stopErr  error

	// lifecycleLog, when set, receives "<name>:start" / "<name>:stop"
	// entries so tests can assert ordering across components.
	lifecycleLog *lifecycleLog
}

type lifecycleLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *lifecycleLog) add(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func (l *lifecycleLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (c *fakeComponent) Name() capability.Name { return c.name }

func (c *fakeComponent) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.started++
	if c.lifecycleLog != nil {
		c.lifecycleLog.add(string(c.name) + ":start")
	}
	return nil
}

func (c *fakeComponent) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopErr != nil {
		return c.stopErr
	}
	c.stopped++
	if c.lifecycleLog != nil {
		c.lifecycleLog.add(string(c.name) + ":stop")
	}
	return nil
}

func (c *fakeComponent) startCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

func (c *fakeComponent) stopCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// fakeRegistrar implements capability.Registrar with recorded membership.
type fakeRegistrar struct {
	name capability.Name

	mu           sync.Mutex
	registered   []string
	deregistered []string
	settings     []datatypes.RawUserData
	registerErr  error
	tokenSeq     int
}

func (r *fakeRegistrar) RegisterUser(_ context.Context, userID string, _ datatypes.RawUserData) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registerErr != nil {
		return "", r.registerErr
	}
	r.registered = append(r.registered, userID)
	r.tokenSeq++
	return fmt.Sprintf("%s-token-%d", r.name, r.tokenSeq), nil
}

func (r *fakeRegistrar) DeregisterUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deregistered = append(r.deregistered, userID)
	return nil
}

func (r *fakeRegistrar) UpdateUserSettings(_ context.Context, _ string, settings datatypes.RawUserData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = append(r.settings, settings)
	return nil
}

func (r *fakeRegistrar) settingsCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.settings)
}

func (r *fakeRegistrar) deregisteredIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.deregistered...)
}

// =============================================================================
// Collaborator Fakes
// =============================================================================

type fakeSensor struct {
	fakeComponent
	fakeRegistrar

	mu         sync.Mutex
	processed  int
	normalized datatypes.NormalizedPayload
	processErr error
}

func (f *fakeSensor) Name() capability.Name { return f.fakeComponent.name }

func (f *fakeSensor) Process(_ context.Context, _ string, raw datatypes.RawSensorPayload) (datatypes.NormalizedPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.processErr != nil {
		return nil, f.processErr
	}
	f.processed++
	if f.normalized != nil {
		return f.normalized, nil
	}
	return datatypes.NormalizedPayload(raw), nil
}

func (f *fakeSensor) processCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processed
}

type fakeAnalyzer struct {
	fakeComponent
	fakeRegistrar

	mu         sync.Mutex
	analyzed   int
	result     datatypes.AnalysisResult
	analyzeErr error
	healthData any
	trendData  any

	// windows records the [start, end] pairs HealthData was called with.
	windows [][2]time.Time
}

func (f *fakeAnalyzer) Name() capability.Name { return f.fakeComponent.name }

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string, _ datatypes.NormalizedPayload) (datatypes.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.analyzeErr != nil {
		return datatypes.AnalysisResult{}, f.analyzeErr
	}
	f.analyzed++
	return f.result, nil
}

func (f *fakeAnalyzer) HealthData(_ context.Context, _ string, start, end time.Time) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, [2]time.Time{start, end})
	return f.healthData, nil
}

func (f *fakeAnalyzer) Trends(_ context.Context, _ string, _, _ time.Time) (any, error) {
	return f.trendData, nil
}

func (f *fakeAnalyzer) analyzeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.analyzed
}

func (f *fakeAnalyzer) healthWindows() [][2]time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]time.Time(nil), f.windows...)
}

type fakeRecommender struct {
	fakeComponent
	fakeRegistrar

	mu           sync.Mutex
	recommended  int
	set          datatypes.RecommendationSet
	recommendErr error
}

func (f *fakeRecommender) Name() capability.Name { return f.fakeComponent.name }

func (f *fakeRecommender) Recommend(_ context.Context, _ string, _ datatypes.AnalysisResult) (datatypes.RecommendationSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recommendErr != nil {
		return datatypes.RecommendationSet{}, f.recommendErr
	}
	f.recommended++
	return f.set, nil
}

type fakeIntake struct {
	fakeComponent
	fakeRegistrar

	mu          sync.Mutex
	schedules   []datatypes.RecommendationSet
	records     []datatypes.IntakeRecord
	schedule    any
	compliance  any
	history     any
	scheduleErr error
	recordErr   error
}

func (f *fakeIntake) Name() capability.Name { return f.fakeComponent.name }

func (f *fakeIntake) UpdateSchedule(_ context.Context, _ string, set datatypes.RecommendationSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scheduleErr != nil {
		return f.scheduleErr
	}
	f.schedules = append(f.schedules, set)
	return nil
}

func (f *fakeIntake) RecordIntake(_ context.Context, _ string, supplementID string, takenAt time.Time) (datatypes.IntakeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	record := datatypes.IntakeRecord{"supplement_id": supplementID, "taken_at": takenAt}
	f.records = append(f.records, record)
	return record, nil
}

func (f *fakeIntake) Schedule(context.Context, string) (any, error) {
	return f.schedule, nil
}

func (f *fakeIntake) ComplianceRate(context.Context, string, time.Time, time.Time) (any, error) {
	return f.compliance, nil
}

func (f *fakeIntake) IntakeHistory(context.Context, string, time.Time, time.Time) (any, error) {
	return f.history, nil
}

func (f *fakeIntake) scheduleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.schedules)
}

// fakeSecurity round-trips payloads through JSON so tests can verify the
// stored ciphertext actually decodes to the merged payload.
type fakeSecurity struct {
	fakeComponent

	encryptErr error
	decryptErr error
}

func (f *fakeSecurity) Name() capability.Name { return f.fakeComponent.name }

func (f *fakeSecurity) EncryptUserData(_ context.Context, data datatypes.RawUserData) (datatypes.EncryptedPayload, error) {
	if f.encryptErr != nil {
		return nil, f.encryptErr
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return datatypes.EncryptedPayload(encoded), nil
}

func (f *fakeSecurity) DecryptUserData(_ context.Context, payload datatypes.EncryptedPayload) (datatypes.RawUserData, error) {
	if f.decryptErr != nil {
		return nil, f.decryptErr
	}
	var data datatypes.RawUserData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, err
	}
	return data, nil
}

type fakeUI struct {
	fakeComponent
	fakeRegistrar

	mu            sync.Mutex
	urgent        []datatypes.Alert
	standard      []datatypes.Alert
	report        []datatypes.Alert
	healthUpdates int
	suppUpdates   int
	intakeUpdates int
	urgentErr     error
	healthErr     error
}

func (f *fakeUI) Name() capability.Name { return f.fakeComponent.name }

func (f *fakeUI) UpdateHealthData(context.Context, string, datatypes.AnalysisResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.healthErr != nil {
		return f.healthErr
	}
	f.healthUpdates++
	return nil
}

func (f *fakeUI) UpdateSupplementData(context.Context, string, datatypes.RecommendationSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suppUpdates++
	return nil
}

func (f *fakeUI) UpdateIntakeStatus(context.Context, string, datatypes.IntakeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intakeUpdates++
	return nil
}

func (f *fakeUI) SendUrgentNotification(_ context.Context, _ string, alert datatypes.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.urgentErr != nil {
		return f.urgentErr
	}
	f.urgent = append(f.urgent, alert)
	return nil
}

func (f *fakeUI) SendNotification(_ context.Context, _ string, alert datatypes.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.standard = append(f.standard, alert)
	return nil
}

func (f *fakeUI) AddToHealthReport(_ context.Context, _ string, alert datatypes.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.report = append(f.report, alert)
	return nil
}

func (f *fakeUI) counts() (urgent, standard, report int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.urgent), len(f.standard), len(f.report)
}

type fakeProvider struct {
	mu     sync.Mutex
	alerts []datatypes.Alert
}

func (p *fakeProvider) NotifyProvider(_ context.Context, _ string, alert datatypes.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
	return nil
}

func (p *fakeProvider) notified() []datatypes.Alert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]datatypes.Alert(nil), p.alerts...)
}

// =============================================================================
// System Fixture
// =============================================================================

// fixture bundles a System with the fakes behind it.
type fixture struct {
	system      *System
	sensor      *fakeSensor
	analyzer    *fakeAnalyzer
	recommender *fakeRecommender
	intake      *fakeIntake
	security    *fakeSecurity
	ui          *fakeUI
	provider    *fakeProvider
	clock       *fakeClock
	metrics     *observability.Metrics
}

func testTime() time.Time {
	return time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
}

func newFixture(t testingT) *fixture {
	f := &fixture{
		sensor:      &fakeSensor{fakeComponent: fakeComponent{name: capability.NameSensor}, fakeRegistrar: fakeRegistrar{name: capability.NameSensor}},
		analyzer:    &fakeAnalyzer{fakeComponent: fakeComponent{name: capability.NameAnalyzer}, fakeRegistrar: fakeRegistrar{name: capability.NameAnalyzer}},
		recommender: &fakeRecommender{fakeComponent: fakeComponent{name: capability.NameRecommender}, fakeRegistrar: fakeRegistrar{name: capability.NameRecommender}},
		intake:      &fakeIntake{fakeComponent: fakeComponent{name: capability.NameIntake}, fakeRegistrar: fakeRegistrar{name: capability.NameIntake}},
		security:    &fakeSecurity{fakeComponent: fakeComponent{name: capability.NameSecurity}},
		ui:          &fakeUI{fakeComponent: fakeComponent{name: capability.NameUI}, fakeRegistrar: fakeRegistrar{name: capability.NameUI}},
		provider:    &fakeProvider{},
		clock:       newFakeClock(testTime()),
		metrics:     observability.NewMetrics(prometheus.NewRegistry()),
	}

	system, err := New(Config{
		Collaborators: Collaborators{
			Sensor:      f.sensor,
			Analyzer:    f.analyzer,
			Recommender: f.recommender,
			Intake:      f.intake,
			Security:    f.security,
			UI:          f.ui,
		},
		Provider: f.provider,
		Logger:   logging.New(logging.Config{Quiet: true}),
		Metrics:  f.metrics,
		Clock:    f.clock,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.system = system
	return f
}

// testingT is the subset of *testing.T the fixture needs.
type testingT interface {
	Fatalf(format string, args ...any)
	Helper()
}

// register enrolls a user or fails the test.
func (f *fixture) register(t testingT, userID string, data datatypes.RawUserData) {
	t.Helper()
	if data == nil {
		data = datatypes.RawUserData{"name": "John Doe"}
	}
	if _, err := f.system.RegisterUser(context.Background(), userID, data); err != nil {
		t.Fatalf("RegisterUser(%s): %v", userID, err)
	}
}
