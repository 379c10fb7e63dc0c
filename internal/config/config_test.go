package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: 127.0.0.1:9100
download:
  concurrency: 0
  max_retries: 5
  timeout: 10s
remote:
  resources: https://mirror.test/assets/
cache:
  root: /data/games
metrics:
  pushgateway: http://127.0.0.1:9091
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", cfg.Server.Address)
	assert.Equal(t, "release", cfg.Server.Mode)
	// clamped to one worker
	assert.Equal(t, 1, cfg.Download.Concurrency)
	assert.Equal(t, 5, cfg.Download.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Download.Timeout)
	assert.Equal(t, "https://mirror.test/assets", cfg.Remote.Resources)
	assert.Equal(t, "https://libraries.minecraft.net", cfg.Remote.Libraries)
	assert.Equal(t, "/data/games", cfg.Cache.Root)
	assert.Equal(t, "http://127.0.0.1:9091", cfg.Metrics.Pushgateway)
	assert.Equal(t, time.Minute, cfg.Metrics.Interval)
}

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("CRAFT_KEEPER_DOWNLOAD_CONCURRENCY", "3")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Download.Concurrency)
	assert.Equal(t, 3, cfg.Download.MaxRetries)
	assert.Equal(t, "craft-keeper", cfg.Launcher.Name)
	assert.NotEmpty(t, cfg.Cache.Root)
	assert.NotEmpty(t, cfg.Remote.VersionManifest)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
