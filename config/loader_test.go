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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithNoConfigFilesUsesDefaults(t *testing.T) {
	cfg, err := Load(LoaderOptions{ConfigDir: t.TempDir(), Environment: "test"})
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, 40, cfg.Session.MaxArchivedStates)
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	os.Setenv("SIGNALCORE_LOG_LEVEL", "debug")
	os.Setenv("SIGNALCORE_SESSION_MAX_LOOK_AHEAD", "777")
	defer os.Unsetenv("SIGNALCORE_LOG_LEVEL")
	defer os.Unsetenv("SIGNALCORE_SESSION_MAX_LOOK_AHEAD")

	cfg, err := Load(LoaderOptions{ConfigDir: t.TempDir(), Environment: "test"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 777, cfg.Session.MaxLookAhead)
}

func TestLoadRejectsLookAheadOverHardCeiling(t *testing.T) {
	os.Setenv("SIGNALCORE_SESSION_MAX_LOOK_AHEAD", "999999999")
	defer os.Unsetenv("SIGNALCORE_SESSION_MAX_LOOK_AHEAD")

	_, err := Load(LoaderOptions{ConfigDir: t.TempDir(), Environment: "test"})
	assert.Error(t, err)
}

func TestLoadSkipValidation(t *testing.T) {
	os.Setenv("SIGNALCORE_SESSION_MAX_LOOK_AHEAD", "999999999")
	defer os.Unsetenv("SIGNALCORE_SESSION_MAX_LOOK_AHEAD")

	cfg, err := Load(LoaderOptions{ConfigDir: t.TempDir(), Environment: "test", SkipValidation: true})
	require.NoError(t, err)
	assert.Equal(t, 999999999, cfg.Session.MaxLookAhead)
}

func TestLoadPrefersEnvironmentNamedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "staging.yaml"), []byte("environment: staging\nsession:\n  max_archived_states: 7\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), []byte("environment: default\nsession:\n  max_archived_states: 99\n"), 0o644))

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "staging"})
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 7, cfg.Session.MaxArchivedStates)
}

func TestMustLoadPanicsOnInvalidConfig(t *testing.T) {
	os.Setenv("SIGNALCORE_SESSION_MAX_LOOK_AHEAD", "999999999")
	defer os.Unsetenv("SIGNALCORE_SESSION_MAX_LOOK_AHEAD")

	assert.Panics(t, func() {
		MustLoad(LoaderOptions{ConfigDir: t.TempDir(), Environment: "test"})
	})
}
