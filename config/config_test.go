package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/docforge/cache"
	"github.com/docforge/docforge/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "docforge", cfg.App.Name)
	assert.Equal(t, config.EnvDevelopment, cfg.App.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, config.BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 10000, cfg.Cache.MaxEntries)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SweepInterval)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Parser)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL.AI)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL.Session)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL.Recovery)
	assert.Equal(t, 3, cfg.Recovery.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Recovery.RetryDelay)
	assert.True(t, cfg.Recovery.CacheResults)
	assert.Equal(t, "markdown", cfg.Docs.Format)
	assert.NotNil(t, cfg.Raw())
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
app:
  env: production
cache:
  max_entries: 500
  ttl:
    parser: 10m
recovery:
  max_retries: 5
docs:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL.Parser)
	assert.Equal(t, 5, cfg.Recovery.MaxRetries)
	assert.Equal(t, "json", cfg.Docs.Format)
	// Untouched keys keep their defaults.
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL.AI)
}

func TestLoadEnvOverridesAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	t.Setenv("DOCFORGE_LOG_LEVEL", "warn")
	t.Setenv("DOCFORGE_CACHE_BACKEND", "redis")
	t.Setenv("DOCFORGE_CACHE_REDIS_HOST", "redis.internal")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, config.BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "redis.internal", cfg.Cache.Redis.Host)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad env", "DOCFORGE_APP_ENV", "dogfood"},
		{"bad backend", "DOCFORGE_CACHE_BACKEND", "etcd"},
		{"bad log level", "DOCFORGE_LOG_LEVEL", "loud"},
		{"bad format", "DOCFORGE_DOCS_FORMAT", "pdf"},
		{"zero max entries", "DOCFORGE_CACHE_MAX_ENTRIES", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache: [not a map"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestCacheManagerConfigConversion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
cache:
  max_entries: 42
  key_prefix: "test:"
  ttl:
    session: 1m
  health:
    min_hit_rate: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	mc := cfg.CacheManagerConfig()
	assert.Equal(t, 42, mc.MaxEntries)
	assert.Equal(t, "test:", mc.KeyPrefix)
	assert.Equal(t, 0.5, mc.MinHitRate)
	assert.Equal(t, time.Minute, mc.TTLOverrides[cache.CategorySession])
	assert.Equal(t, 2*time.Hour, mc.TTLOverrides[cache.CategoryAI])
}

func TestHandlerConfigConversion(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	hc := cfg.HandlerConfig()
	assert.True(t, hc.CacheResults)
	assert.Equal(t, 5*time.Minute, hc.CacheResultsFor)
	assert.Equal(t, 3, hc.Strategist.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, hc.Strategist.RetryDelay)
	assert.Equal(t, 10, hc.Thresholds.ErrorRate)
	assert.Equal(t, 5, hc.Thresholds.SameErrorCount)
}

func TestValidateSwappedHealthThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
cache:
  health:
    min_hit_rate: 0.95
    max_utilization: 0.6
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	_, err := config.Load(path)
	assert.ErrorContains(t, err, "min_hit_rate")
}
