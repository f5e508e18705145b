// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config provides operator-facing configuration for the
// pairwise/group session engines: rotation and retention thresholds,
// look-ahead windows, and the ambient logging/metrics/store knobs.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration tree.
type Config struct {
	Environment  string             `yaml:"environment" json:"environment"`
	Session      SessionConfig      `yaml:"session" json:"session"`
	GroupSession GroupSessionConfig `yaml:"group_session" json:"group_session"`
	Store        StoreConfig        `yaml:"store" json:"store"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics" json:"metrics"`
}

// SessionConfig carries the pairwise-engine knobs spec §9 leaves as
// operator-tunable: archived-state cap, receiver chain cap, skipped-key
// bookkeeping, and the look-ahead window past the current receiver
// counter.
type SessionConfig struct {
	MaxArchivedStates      int  `yaml:"max_archived_states" json:"max_archived_states"`
	MaxReceiverChains      int  `yaml:"max_receiver_chains" json:"max_receiver_chains"`
	MaxSkippedKeysPerChain int  `yaml:"max_skipped_keys_per_chain" json:"max_skipped_keys_per_chain"`
	MaxLookAhead           int  `yaml:"max_look_ahead" json:"max_look_ahead"`
	StrictKyberPreKeyID    bool `yaml:"strict_kyber_pre_key_id" json:"strict_kyber_pre_key_id"`
}

// GroupSessionConfig carries the sender-key engine's equivalent knobs.
type GroupSessionConfig struct {
	MaxHistoricalChains    int `yaml:"max_historical_chains" json:"max_historical_chains"`
	MaxSkippedKeysPerChain int `yaml:"max_skipped_keys_per_chain" json:"max_skipped_keys_per_chain"`
	MaxLookAhead           int `yaml:"max_look_ahead" json:"max_look_ahead"`
}

// StoreConfig selects and configures the backing store implementation.
// The core library only ships an in-memory reference store; Type exists
// so a host application can select its own persistent implementation
// without the session/groupsession engines knowing about it.
type StoreConfig struct {
	Type string `yaml:"type" json:"type"` // memory, or a host-defined backend name
}

// LoggingConfig mirrors internal/logger's options.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, pretty
	Output string `yaml:"output" json:"output"` // stdout, stderr, file path
}

// MetricsConfig controls the internal/metrics Prometheus registry.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile saves configuration to a file, choosing JSON or YAML by
// the file extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if len(path) > 5 && path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// setDefaults fills zero-valued fields with the defaults spec §9 names.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Session.MaxArchivedStates == 0 {
		cfg.Session.MaxArchivedStates = 40
	}
	if cfg.Session.MaxReceiverChains == 0 {
		cfg.Session.MaxReceiverChains = 5
	}
	if cfg.Session.MaxSkippedKeysPerChain == 0 {
		cfg.Session.MaxSkippedKeysPerChain = 2000
	}
	if cfg.Session.MaxLookAhead == 0 {
		cfg.Session.MaxLookAhead = 25000
	}

	if cfg.GroupSession.MaxHistoricalChains == 0 {
		cfg.GroupSession.MaxHistoricalChains = 5
	}
	if cfg.GroupSession.MaxSkippedKeysPerChain == 0 {
		cfg.GroupSession.MaxSkippedKeysPerChain = 2000
	}
	if cfg.GroupSession.MaxLookAhead == 0 {
		cfg.GroupSession.MaxLookAhead = 25000
	}

	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// sessionLookAheadBound is the hard ceiling session/groupsession
// validation enforces regardless of operator overrides; see
// ValidateConfiguration.
const sessionLookAheadBound = 100000
