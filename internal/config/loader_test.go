package config

import (
	"os"
	"path/filepath"
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
	assert.Equal(t, 100, cfg.Alerting.HistoryLimit)
	assert.Equal(t, 20, cfg.Intelligence.Anomaly.WindowSize)
	assert.Equal(t, 60, cfg.Intelligence.Predict.HorizonMinutes)
	assert.Equal(t, 168, cfg.Intelligence.Capacity.HistoryWindowHours)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("VIGIL_PORT", "9090")
	t.Setenv("VIGIL_LOG_LEVEL", "debug")
	t.Setenv("VIGIL_CACHE_ADDR", "localhost:6379")
	t.Setenv("VIGIL_ALERTING_HISTORY_LIMIT", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "localhost:6379", cfg.Cache.Addr)
	assert.Equal(t, 50, cfg.Alerting.HistoryLimit)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
environment: production
port: 7070
alerting:
  rules_path: /tmp/rules.yaml
  watch_rules: false
intelligence:
  predict:
    min_probability: 0.85
    thresholds:
      cpu_usage_percent: 85
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "/tmp/rules.yaml", cfg.Alerting.RulesPath)
	assert.False(t, cfg.Alerting.WatchRules)
	assert.InEpsilon(t, 0.85, cfg.Intelligence.Predict.MinProbability, 1e-9)
	assert.Equal(t, 85.0, cfg.Intelligence.Predict.Thresholds["cpu_usage_percent"])
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Port = -1 },
			wantErr: "invalid port",
		},
		{
			name:    "negative history limit",
			mutate:  func(c *Config) { c.Alerting.HistoryLimit = -5 },
			wantErr: "history_limit",
		},
		{
			name:    "failure rate out of range",
			mutate:  func(c *Config) { c.Alerting.Transport.FailureRate = 1.5 },
			wantErr: "failure_rate",
		},
		{
			name:    "tracing without endpoint",
			mutate:  func(c *Config) { c.Tracing.Enabled = true; c.Tracing.OTLPEndpoint = "" },
			wantErr: "otlp_endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			err = validateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
