package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 32, cfg.Oracle.MaxBatchSize)
	assert.Equal(t, 10, cfg.Pipeline.DefaultTopK)
	assert.InDelta(t, 0.5, cfg.Pipeline.DefaultThreshold, 1e-9)
	assert.True(t, cfg.Pipeline.Normalizer.MaskPHI)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 7000
log:
  level: debug
oracle:
  base_url: http://model:9000
  max_batch_size: 8
cache:
  enabled: true
  addr: redis:6379
pipeline:
  default_top_k: 7
  default_threshold: 0.25
  normalizer:
    mask_phi: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http://model:9000", cfg.Oracle.BaseURL)
	assert.Equal(t, 8, cfg.Oracle.MaxBatchSize)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis:6379", cfg.Cache.Addr)
	assert.Equal(t, 7, cfg.Pipeline.DefaultTopK)
	assert.InDelta(t, 0.25, cfg.Pipeline.DefaultThreshold, 1e-9)
	assert.False(t, cfg.Pipeline.Normalizer.MaskPHI)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CLINSIGNAL_SERVER_PORT", "6060")
	t.Setenv("CLINSIGNAL_ORACLE_BASE_URL", "http://env-model:8500")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 6060, cfg.Server.Port)
	assert.Equal(t, "http://env-model:8500", cfg.Oracle.BaseURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		ApplyDefaults(cfg)
		return cfg
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Server.Port = -1
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Oracle.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Pipeline.DefaultTopK = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Pipeline.DefaultThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Cache.Enabled = true
	cfg.Cache.Addr = ""
	assert.Error(t, cfg.Validate())
}

func TestMustLoadPanicsOnError(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "absent.yaml"))
	})
}
