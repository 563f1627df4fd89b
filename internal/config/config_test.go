package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.Equal(t, 10, c.Belt.Slots)
	require.Equal(t, 3, c.Trucks.Count)
	require.Equal(t, 3, c.Workers.Count)
	require.Equal(t, 5, c.Session.Rows)
	require.Equal(t, 200, c.Dispatcher.BackoffMs)
	require.Equal(t, 100, c.Workers.ThinkTimeMs)
	require.GreaterOrEqual(t, c.Trucks.MinVolumeM3, 99.7,
		"volume floor must admit the largest package type on an empty truck")
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, 10, c.Belt.Slots)
}

func TestLoad_YamlOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warehouse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("belt:\n  slots: 25\ntrucks:\n  count: 7\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 25, c.Belt.Slots)
	require.Equal(t, 7, c.Trucks.Count)
	require.Equal(t, 3, c.Workers.Count)
}

func TestLoad_EnvOverlayTakesPrecedence(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_TO_FILE", "true")

	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "debug", c.Env.LogLevel)
	require.True(t, c.Env.LogToFile)
}
