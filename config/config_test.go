package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `environment: "staging"

session:
  max_archived_states: 10
  max_look_ahead: 5000

group_session:
  max_historical_chains: 3

logging:
  level: "debug"
  format: "json"
  output: "stdout"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	cfg, err := LoadFromFile(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 10, cfg.Session.MaxArchivedStates)
	assert.Equal(t, 5000, cfg.Session.MaxLookAhead)
	assert.Equal(t, 3, cfg.GroupSession.MaxHistoricalChains)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Defaults fill in anything the file didn't set.
	assert.Equal(t, 5, cfg.Session.MaxReceiverChains)
	assert.Equal(t, "memory", cfg.Store.Type)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 40, cfg.Session.MaxArchivedStates)
	assert.Equal(t, 5, cfg.Session.MaxReceiverChains)
	assert.Equal(t, 2000, cfg.Session.MaxSkippedKeysPerChain)
	assert.Equal(t, 25000, cfg.Session.MaxLookAhead)
	assert.Equal(t, 5, cfg.GroupSession.MaxHistoricalChains)
	assert.Equal(t, 2000, cfg.GroupSession.MaxSkippedKeysPerChain)
	assert.Equal(t, 25000, cfg.GroupSession.MaxLookAhead)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	cfg := &Config{Environment: "production"}
	setDefaults(cfg)
	cfg.Session.MaxLookAhead = 1234

	path := filepath.Join(t.TempDir(), "roundtrip.yaml")
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "production", loaded.Environment)
	assert.Equal(t, 1234, loaded.Session.MaxLookAhead)
}

func TestSaveToFileJSON(t *testing.T) {
	cfg := &Config{Environment: "production"}
	setDefaults(cfg)

	path := filepath.Join(t.TempDir(), "roundtrip.json")
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "production", loaded.Environment)
}
