package config

import (
	"os"
	"path/filepath"
	"testing"

	"energy-flow-monitor-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.TickIntervalSec)
	assert.Equal(t, 16, cfg.ObserverBuffer)
	assert.False(t, cfg.ResumeState, "a fresh config must start the ledger from zero")

	// Every kind must have a draw profile, filled from the defaults.
	require.Len(t, cfg.Profiles, len(models.Kinds))
	assert.Equal(t, models.Profile{Mean: 50, StdDev: 10}, cfg.Profiles[models.Solar])
	assert.Equal(t, models.Profile{Mean: 90, StdDev: 10}, cfg.Profiles[models.Nuclear])
}

func TestLoadConfigKeepsOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"listen_addr": ":9090",
		"tick_interval_sec": 1,
		"profiles": {
			"Solar": {"mean": 80, "stddev": 5}
		}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 1, cfg.TickIntervalSec)
	assert.Equal(t, models.Profile{Mean: 80, StdDev: 5}, cfg.Profiles[models.Solar])
	// The untouched kinds still fall back to defaults.
	assert.Equal(t, models.Profile{Mean: 40, StdDev: 8}, cfg.Profiles[models.Wind])
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, `{"database": {"driver": "oracle"}}`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestLoadConfigRejectsUnknownKind(t *testing.T) {
	path := writeConfig(t, `{"profiles": {"Fusion": {"mean": 1, "std_dev": 1}}}`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
