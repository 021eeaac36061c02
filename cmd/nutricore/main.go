// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command nutricore runs the nutrition orchestration engine with the
// in-process reference collaborators.
//
// Usage:
//
//	go run ./cmd/nutricore demo
//	go run ./cmd/nutricore demo --config config.yaml
//
// The demo subcommand walks the full pipeline: it registers a user,
// ingests a sensor reading, prints the composed dashboard, records a
// supplement intake, and prints a weekly health report.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/NutriCore/pkg/logging"
	"github.com/AleutianAI/NutriCore/services/nutrition"
	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
	"github.com/AleutianAI/NutriCore/services/nutrition/inproc"
	"github.com/AleutianAI/NutriCore/services/nutrition/registry"
)

var (
	configPath string
	config     Config

	rootCmd = &cobra.Command{
		Use:   "nutricore",
		Short: "Biometric-driven supplement recommendation engine",
		Long: `NutriCore orchestrates biometric sensor ingestion, nutrition
analysis, supplement recommendation, and intake tracking behind a
single engine with pluggable collaborators.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				config = DefaultConfig()
				return nil
			}
			loaded, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			config = loaded
			return nil
		},
	}

	demoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Run the end-to-end pipeline with in-process collaborators",
		RunE:  runDemo,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config")
	rootCmd.AddCommand(demoCmd)
}

// buildSystem wires an engine from the loaded configuration.
func buildSystem(logger *logging.Logger) (*nutrition.System, registry.Store, error) {
	var store registry.Store
	switch config.Registry.Backend {
	case "badger":
		badgerStore, err := registry.OpenBadger(registry.BadgerConfig{
			Path:       config.Registry.Path,
			SyncWrites: true,
			Logger:     logger.Slog(),
		})
		if err != nil {
			return nil, nil, err
		}
		store = badgerStore
	default:
		store = registry.NewMemoryStore()
	}

	security, err := inproc.NewSecurity()
	if err != nil {
		return nil, nil, err
	}

	system, err := nutrition.New(nutrition.Config{
		Collaborators: nutrition.Collaborators{
			Sensor:      inproc.NewSensor(),
			Analyzer:    inproc.NewAnalyzer(),
			Recommender: inproc.NewRecommender(),
			Intake:      inproc.NewIntake(),
			Security:    security,
			UI:          inproc.NewUI(logger),
		},
		Provider:            inproc.NewProvider(logger),
		Store:               store,
		Logger:              logger,
		CollaboratorTimeout: config.CollaboratorTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return system, store, nil
}

func runDemo(cmd *cobra.Command, _ []string) error {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(config.Logging.Level),
		Service: "nutricore",
		JSON:    config.Logging.JSON,
		LogDir:  config.Logging.Dir,
	})
	defer logger.Close()

	system, store, err := buildSystem(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if _, err := system.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if _, err := system.Stop(context.Background()); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	const userID = "user123"
	if _, err := system.RegisterUser(ctx, userID, datatypes.RawUserData{
		"name":                       "John Doe",
		"email":                      "john.doe@example.com",
		"age":                        35,
		"gender":                     "male",
		"height":                     175,
		"weight":                     70,
		"notify_healthcare_provider": true,
		"healthcare_provider": map[string]any{
			"name":  "Dr. Smith",
			"email": "dr.smith@example.com",
		},
	}); err != nil {
		return fmt.Errorf("register user: %w", err)
	}

	result, err := system.IngestSensorData(ctx, userID, datatypes.RawSensorPayload{
		"timestamp":        float64(time.Now().Unix()),
		"heart_rate":       72,
		"blood_pressure":   map[string]any{"systolic": 120, "diastolic": 80},
		"blood_oxygen":     98,
		"body_temperature": 36.7,
		"impedance_measurements": map[string]any{
			"vitamin_d":   25,
			"iron":        60,
			"vitamin_b12": 500,
			"magnesium":   1.8,
			"zinc":        70,
			"omega_3":     3.5,
			"glucose":     95,
		},
	})
	if err != nil {
		return fmt.Errorf("ingest sensor data: %w", err)
	}
	logger.Info("sensor data processed",
		"alerts", len(result.Analysis.Alerts),
		"recommendation_update", result.Analysis.UpdateRecommendation)

	dashboard, err := system.GetUserDashboard(ctx, userID)
	if err != nil {
		return fmt.Errorf("get dashboard: %w", err)
	}
	if err := printJSON("dashboard", dashboard); err != nil {
		return err
	}

	if _, err := system.RecordSupplementIntake(ctx, userID, "vd001", time.Time{}); err != nil {
		return fmt.Errorf("record intake: %w", err)
	}

	report, err := system.GetHealthReport(ctx, userID, datatypes.ReportWeekly)
	if err != nil {
		return fmt.Errorf("get health report: %w", err)
	}
	return printJSON("weekly report", report)
}

func printJSON(label string, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", label, err)
	}
	fmt.Printf("%s:\n%s\n", label, encoded)
	return nil
}
