// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the nutricore CLI configuration, loaded from YAML.
type Config struct {
	Logging struct {
		// Level is debug, info, warn, or error.
		Level string `yaml:"level"`
		// JSON switches stderr logging to JSON.
		JSON bool `yaml:"json"`
		// Dir enables file logging when set.
		Dir string `yaml:"dir"`
	} `yaml:"logging"`

	Registry struct {
		// Backend selects the profile store: "memory" or "badger".
		Backend string `yaml:"backend"`
		// Path is the badger database directory.
		Path string `yaml:"path"`
	} `yaml:"registry"`

	// CollaboratorTimeoutRaw bounds each collaborator call, in
	// time.ParseDuration syntax, e.g. "10s".
	CollaboratorTimeoutRaw string `yaml:"collaborator_timeout"`

	// CollaboratorTimeout is the parsed form of CollaboratorTimeoutRaw.
	CollaboratorTimeout time.Duration `yaml:"-"`
}

// DefaultConfig returns the configuration used when no file is given:
// info logging to stderr and an in-memory registry.
func DefaultConfig() Config {
	var cfg Config
	cfg.Logging.Level = "info"
	cfg.Registry.Backend = "memory"
	cfg.CollaboratorTimeoutRaw = "10s"
	cfg.CollaboratorTimeout = 10 * time.Second
	return cfg
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	switch cfg.Registry.Backend {
	case "memory":
	case "badger":
		if cfg.Registry.Path == "" {
			return Config{}, fmt.Errorf("registry backend %q requires a path", cfg.Registry.Backend)
		}
	default:
		return Config{}, fmt.Errorf("unknown registry backend %q", cfg.Registry.Backend)
	}
	timeout, err := time.ParseDuration(cfg.CollaboratorTimeoutRaw)
	if err != nil {
		return Config{}, fmt.Errorf("parse collaborator_timeout: %w", err)
	}
	if timeout <= 0 {
		return Config{}, fmt.Errorf("collaborator_timeout must be positive")
	}
	cfg.CollaboratorTimeout = timeout
	return cfg, nil
}
