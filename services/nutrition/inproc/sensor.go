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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/NutriCore/services/nutrition/capability"
	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
)

// =============================================================================
// Sensor Manager
// =============================================================================

// reading is the accepted wire shape of one biometric sample. Vital
// bounds are physiological plausibility limits, not health thresholds;
// out-of-bound values indicate a malfunctioning device, not a sick user.
type reading struct {
	Timestamp       float64            `json:"timestamp" validate:"required,gt=0"`
	HeartRate       *float64           `json:"heart_rate,omitempty" validate:"omitempty,gte=20,lte=260"`
	BloodOxygen     *float64           `json:"blood_oxygen,omitempty" validate:"omitempty,gte=50,lte=100"`
	BodyTemperature *float64           `json:"body_temperature,omitempty" validate:"omitempty,gte=30,lte=45"`
	BloodPressure   *bloodPressure     `json:"blood_pressure,omitempty"`
	Impedance       map[string]float64 `json:"impedance_measurements,omitempty" validate:"omitempty,dive,gte=0"`
}

type bloodPressure struct {
	Systolic  float64 `json:"systolic" validate:"required,gte=60,lte=260"`
	Diastolic float64 `json:"diastolic" validate:"required,gte=30,lte=160"`
}

// Sensor implements capability.SensorManager: it validates raw device
// payloads against the reading schema and normalizes them to canonical
// keys and float64 values.
type Sensor struct {
	component
	*roster

	validate *validator.Validate
}

// NewSensor creates a sensor manager.
func NewSensor() *Sensor {
	return &Sensor{
		component: component{name: capability.NameSensor},
		roster:    newRoster(),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Process validates and normalizes one raw payload.
//
// # Description
//
// The raw map is decoded into the reading schema (rejecting wrong-typed
// fields), validated against the physiological bounds, and re-encoded to
// a canonical map. Unknown keys are dropped during normalization.
// Validation failures are classified invalid-sensor-data so the pipeline
// can distinguish a bad payload from a sensor outage.
func (s *Sensor) Process(_ context.Context, userID string, raw datatypes.RawSensorPayload) (datatypes.NormalizedPayload, error) {
	if !s.Registered(userID) {
		return nil, fmt.Errorf("user %q has no sensor enrollment", userID)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, datatypes.InvalidSensorData("payload is not encodable", err)
	}

	var r reading
	if err := json.Unmarshal(encoded, &r); err != nil {
		return nil, datatypes.InvalidSensorData("payload does not match the reading schema", err)
	}

	if err := s.validate.Struct(r); err != nil {
		return nil, datatypes.InvalidSensorData(describeValidation(err), err)
	}
	if r.BloodPressure != nil && r.BloodPressure.Diastolic >= r.BloodPressure.Systolic {
		return nil, datatypes.InvalidSensorData("diastolic pressure must be below systolic", nil)
	}

	canonical, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("normalize reading: %w", err)
	}
	var normalized datatypes.NormalizedPayload
	if err := json.Unmarshal(canonical, &normalized); err != nil {
		return nil, fmt.Errorf("normalize reading: %w", err)
	}
	return normalized, nil
}

// describeValidation flattens validator errors into one readable line.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid sensor reading"
	}
	first := verrs[0]
	return fmt.Sprintf("field %s failed %s validation", first.Field(), first.Tag())
}

var _ capability.SensorManager = (*Sensor)(nil)
