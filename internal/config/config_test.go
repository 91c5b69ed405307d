package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/archive-go/pkg/codec"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
	"github.com/lk2023060901/archive-go/pkg/util/viper"
)

func load(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv(EnvPrefix)
	if yaml != "" {
		path := filepath.Join(t.TempDir(), "archive.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
		require.NoError(t, v.LoadFile(path))
	}
	return Load(v)
}

func TestDefaults(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)
	assert.Equal(t, codec.Formats(), cfg.FormatList())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Envelope.Enable)
	assert.True(t, cfg.Envelope.Compress)
	assert.Equal(t, 256, cfg.Envelope.MinCompressSize)
	assert.Greater(t, cfg.WorkerNum(), 0)
	assert.Equal(t, PoolConfig{}, cfg.Pool)
	assert.Len(t, cfg.PoolOptions(), 3)
}

func TestLoadFile(t *testing.T) {
	cfg, err := load(t, `
formats: [xml, json]
workers: 3
pool:
  nonblocking: true
  expiry: 2s
envelope:
  enable: true
  compress: false
  min_compress_size: 16
log:
  level: debug
logging:
  codec:
    level: warn
`)
	require.NoError(t, err)
	assert.Equal(t, []codec.Format{codec.FormatXML, codec.FormatJSON}, cfg.FormatList())
	assert.Equal(t, 3, cfg.WorkerNum())
	assert.True(t, cfg.Pool.NonBlocking)
	assert.Equal(t, 2*time.Second, cfg.Pool.Expiry)
	assert.Len(t, cfg.PoolOptions(), 4)
	assert.True(t, cfg.Envelope.Enable)
	assert.False(t, cfg.Envelope.Compress)
	assert.Equal(t, 16, cfg.Envelope.MinCompressSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "warn", cfg.Logging["codec"].Level)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ARCHIVE_LOG_LEVEL", "error")
	t.Setenv("ARCHIVE_WORKERS", "5")

	cfg, err := load(t, "log:\n  level: debug\n")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 5, cfg.Workers)
}

func TestInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown format":   "formats: [json, yaml]",
		"duplicate format": "formats: [json, JSON]",
		"empty formats":    "formats: []",
		"negative workers": "workers: -1",
		"negative expiry":  "pool:\n  expiry: -1s",
		"negative size":    "envelope:\n  min_compress_size: -8",
	}
	for name, yaml := range cases {
		_, err := load(t, yaml)
		assert.ErrorIs(t, err, merr.ErrConfigInvalid, name)
	}
}
