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
	"errors"
	"testing"

	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
)

// TestNew_RequiresCollaborators verifies construction fails when any of
// the six collaborators is missing.
func TestNew_RequiresCollaborators(t *testing.T) {
	f := newFixture(t)

	cfg := Config{Collaborators: Collaborators{
		Sensor:      f.sensor,
		Analyzer:    f.analyzer,
		Recommender: f.recommender,
		Intake:      f.intake,
		Security:    f.security,
		UI:          f.ui,
	}}

	missing := []func(*Collaborators){
		func(c *Collaborators) { c.Sensor = nil },
		func(c *Collaborators) { c.Analyzer = nil },
		func(c *Collaborators) { c.Recommender = nil },
		func(c *Collaborators) { c.Intake = nil },
		func(c *Collaborators) { c.Security = nil },
		func(c *Collaborators) { c.UI = nil },
	}
	for i, blank := range missing {
		broken := cfg
		blank(&broken.Collaborators)
		if _, err := New(broken); err == nil {
			t.Errorf("case %d: New accepted a missing collaborator", i)
		}
	}
}

// TestSystem_StartStop verifies the happy lifecycle path and its
// idempotency: the second Start and second Stop are no-ops returning
// false.
func TestSystem_StartStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	performed, err := f.system.Start(ctx)
	if err != nil || !performed {
		t.Fatalf("Start = (%v, %v), want (true, nil)", performed, err)
	}
	if !f.system.Running() {
		t.Error("system not running after Start")
	}

	performed, err = f.system.Start(ctx)
	if err != nil || performed {
		t.Errorf("second Start = (%v, %v), want (false, nil)", performed, err)
	}
	if f.sensor.startCount() != 1 {
		t.Errorf("sensor started %d times, want 1", f.sensor.startCount())
	}

	performed, err = f.system.Stop(ctx)
	if err != nil || !performed {
		t.Fatalf("Stop = (%v, %v), want (true, nil)", performed, err)
	}
	if f.system.Running() {
		t.Error("system still running after Stop")
	}

	performed, err = f.system.Stop(ctx)
	if err != nil || performed {
		t.Errorf("second Stop = (%v, %v), want (false, nil)", performed, err)
	}
	if f.ui.stopCount() != 1 {
		t.Errorf("ui stopped %d times, want 1", f.ui.stopCount())
	}
}

// TestSystem_LifecycleOrder verifies components start in registration
// order and stop in reverse.
func TestSystem_LifecycleOrder(t *testing.T) {
	f := newFixture(t)
	log := &lifecycleLog{}
	for _, c := range []*fakeComponent{
		&f.sensor.fakeComponent, &f.analyzer.fakeComponent,
		&f.recommender.fakeComponent, &f.intake.fakeComponent,
		&f.security.fakeComponent, &f.ui.fakeComponent,
	} {
		c.lifecycleLog = log
	}

	ctx := context.Background()
	if _, err := f.system.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.system.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	want := []string{
		"sensor:start", "analyzer:start", "recommender:start",
		"intake_manager:start", "security:start", "ui:start",
		"ui:stop", "security:stop", "intake_manager:stop",
		"recommender:stop", "analyzer:stop", "sensor:stop",
	}
	got := log.snapshot()
	if len(got) != len(want) {
		t.Fatalf("lifecycle log = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("lifecycle[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

// TestSystem_StartCompensation verifies a mid-start failure stops the
// components that already started and leaves the system stopped.
func TestSystem_StartCompensation(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("port in use")
	f.recommender.fakeComponent.startErr = boom

	performed, err := f.system.Start(context.Background())
	if performed {
		t.Error("Start reported success despite a component failure")
	}
	if !errors.Is(err, boom) {
		t.Errorf("Start error = %v, want the component's failure", err)
	}
	if !errors.Is(err, datatypes.ErrUpstreamFailure) {
		t.Errorf("Start error not classified upstream: %v", err)
	}

	if f.sensor.stopCount() != 1 || f.analyzer.stopCount() != 1 {
		t.Error("already-started components were not stopped")
	}
	if f.intake.stopCount() != 0 {
		t.Error("never-started component was stopped")
	}
	if f.system.Running() {
		t.Error("system running after failed Start")
	}
}

// TestSystem_StopCollectsFailures verifies every component is attempted
// on Stop even when one fails, and the failure surfaces.
func TestSystem_StopCollectsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.system.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	boom := errors.New("flush failed")
	f.intake.fakeComponent.stopErr = boom

	performed, err := f.system.Stop(ctx)
	if !performed {
		t.Error("Stop did not perform despite running state")
	}
	if !errors.Is(err, boom) {
		t.Errorf("Stop error = %v, want the component's failure", err)
	}
	if f.sensor.stopCount() != 1 {
		t.Error("components after the failing one were skipped")
	}
	if f.system.Running() {
		t.Error("system still running after Stop with failures")
	}
}
