package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 5*time.Minute, cfg.TimeControl().InitialTime)
	assert.Equal(t, 2*time.Second, cfg.TimeControl().Increment)
	assert.Equal(t, time.Duration(0), cfg.TimeControl().Delay)
	assert.Equal(t, time.Minute, cfg.EloExpandInterval())
	assert.Equal(t, time.Second, cfg.TimeoutSweepInterval())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ARENA_PORT", "9090")
	t.Setenv("ARENA_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ARENA_INITIAL_TIME_SEC", "180")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 3*time.Minute, cfg.TimeControl().InitialTime)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"port: \"7000\"\nincrement_sec: 5\nfrontend_origin: https://arena.example\n",
	), 0o600))
	t.Setenv("ARENA_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.TimeControl().Increment)
	assert.Equal(t, "https://arena.example", cfg.FrontendOrigin)
}

func TestEnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7000\"\n"), 0o600))
	t.Setenv("ARENA_CONFIG", path)
	t.Setenv("ARENA_PORT", "7001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7001", cfg.Port)
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("ARENA_INITIAL_TIME_SEC", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Setenv("ARENA_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
