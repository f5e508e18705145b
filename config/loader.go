// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// LoaderOptions configures the configuration loader.
type LoaderOptions struct {
	// ConfigDir is the directory containing config files (default: ./config)
	ConfigDir string
	// Environment overrides automatic environment detection
	Environment string
	// DotenvPath, if set, is loaded before config files and environment
	// overrides are applied. Empty means "try ./.env, ignore if absent".
	DotenvPath string
	// SkipValidation disables configuration validation
	SkipValidation bool
}

// DefaultLoaderOptions returns default loader options.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{
		ConfigDir: "config",
	}
}

// Load loads configuration with automatic environment detection: a
// local .env file, then an environment-named config file (falling back
// to default.yaml / config.yaml / built-in defaults), then
// SIGNALCORE_*-prefixed environment variable overrides, which always
// win.
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	loadDotenv(options.DotenvPath)

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	cfg, err := loadConfigFile(filepath.Join(options.ConfigDir, fmt.Sprintf("%s.yaml", env)))
	if err != nil {
		cfg, err = loadConfigFile(filepath.Join(options.ConfigDir, "default.yaml"))
		if err != nil {
			cfg, err = loadConfigFile(filepath.Join(options.ConfigDir, "config.yaml"))
			if err != nil {
				cfg = &Config{Environment: env}
				setDefaults(cfg)
			}
		}
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}

	applyEnvironmentOverrides(cfg)

	if !options.SkipValidation {
		for _, e := range ValidateConfiguration(cfg) {
			if e.Level == "error" {
				return nil, fmt.Errorf("configuration validation failed: %s - %s", e.Field, e.Message)
			}
		}
	}

	return cfg, nil
}

func loadDotenv(path string) {
	if path != "" {
		_ = godotenv.Load(path)
		return
	}
	_ = godotenv.Load()
}

func loadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return LoadFromFile(path)
}

// applyEnvironmentOverrides overrides config fields with
// SIGNALCORE_*-prefixed environment variables; these always win over
// file-sourced values.
func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("SIGNALCORE_SESSION_MAX_ARCHIVED_STATES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.MaxArchivedStates = n
		}
	}
	if v := os.Getenv("SIGNALCORE_SESSION_MAX_LOOK_AHEAD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.MaxLookAhead = n
		}
	}
	if v := os.Getenv("SIGNALCORE_SESSION_STRICT_KYBER_PRE_KEY_ID"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Session.StrictKyberPreKeyID = b
		}
	}
	if v := os.Getenv("SIGNALCORE_GROUP_MAX_HISTORICAL_CHAINS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GroupSession.MaxHistoricalChains = n
		}
	}
	if v := os.Getenv("SIGNALCORE_STORE_TYPE"); v != "" {
		cfg.Store.Type = v
	}
	if v := os.Getenv("SIGNALCORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SIGNALCORE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SIGNALCORE_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
}

// LoadForEnvironment loads configuration for a specific environment.
func LoadForEnvironment(environment string) (*Config, error) {
	return Load(LoaderOptions{ConfigDir: "config", Environment: environment})
}

// MustLoad loads configuration or panics on error.
func MustLoad(opts ...LoaderOptions) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
