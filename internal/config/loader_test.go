package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30000, cfg.Backends.QueryTimeout)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 128, cfg.Cache.Capacity)
	assert.Equal(t, "/metrics", cfg.Monitoring.MetricsPath)
	assert.Contains(t, cfg.CORS.ExposedHeaders, "X-Cache")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PULSE_PORT", "9090")
	t.Setenv("PULSE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port:     8080,
			Backends: BackendsConfig{QueryTimeout: 30000},
		}
	}

	cfg := base()
	cfg.Port = 0
	assert.Error(t, validateConfig(cfg))

	cfg = base()
	cfg.Port = 70000
	assert.Error(t, validateConfig(cfg))

	cfg = base()
	cfg.Backends.QueryTimeout = 0
	assert.Error(t, validateConfig(cfg))

	cfg = base()
	cfg.Backends.Environments = map[string]EnvironmentConfig{"staging": {}}
	assert.Error(t, validateConfig(cfg))

	cfg = base()
	cfg.Backends.Environments = map[string]EnvironmentConfig{
		"prod": {Postgres: PostgresConfig{MaxConns: -1}},
	}
	assert.Error(t, validateConfig(cfg))

	cfg = base()
	cfg.Backends.Environments = map[string]EnvironmentConfig{"prod": {}, "test": {}}
	assert.NoError(t, validateConfig(cfg))
}
