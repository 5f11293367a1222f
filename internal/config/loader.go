package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from various sources with priority order:
// 1. Environment variables (VIGIL_ prefix)
// 2. Configuration file (config.yaml)
// 3. Default values
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/vigil/")
	v.AddConfigPath("./configs/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("VIGIL")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("environment", "development")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")

	// Cache defaults: empty addr means in-memory fallback
	v.SetDefault("cache.addr", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 300)

	// Alerting defaults
	v.SetDefault("alerting.rules_path", "/etc/vigil/alert-rules.yaml")
	v.SetDefault("alerting.watch_rules", true)
	v.SetDefault("alerting.history_limit", 100)
	v.SetDefault("alerting.transport.failure_rate", 0.1)
	v.SetDefault("alerting.transport.max_jitter_ms", 180)

	// Intelligence defaults
	v.SetDefault("intelligence.anomaly.window_size", 20)
	v.SetDefault("intelligence.anomaly.threshold", 0.5)
	v.SetDefault("intelligence.predict.horizon_minutes", 60)
	v.SetDefault("intelligence.predict.default_threshold", 90)
	v.SetDefault("intelligence.predict.min_probability", 0.7)
	v.SetDefault("intelligence.rca.overlap_window_minutes", 30)
	v.SetDefault("intelligence.rca.cluster_window_minutes", 5)
	v.SetDefault("intelligence.capacity.history_window_hours", 168)
	v.SetDefault("intelligence.capacity.scale_up_at", 80)
	v.SetDefault("intelligence.capacity.scale_down_at", 30)
	v.SetDefault("intelligence.capacity.safety_margin", 0.2)
	v.SetDefault("intelligence.cache_ttl", 300)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "vigil-core")
}

func validateConfig(c *Config) error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Alerting.HistoryLimit < 0 {
		return fmt.Errorf("alerting.history_limit must not be negative")
	}
	if c.Alerting.Transport.FailureRate < 0 || c.Alerting.Transport.FailureRate > 1 {
		return fmt.Errorf("alerting.transport.failure_rate must be within [0,1]")
	}
	if c.Intelligence.Anomaly.Threshold < 0 || c.Intelligence.Anomaly.Threshold > 1 {
		return fmt.Errorf("intelligence.anomaly.threshold must be within [0,1]")
	}
	if c.Intelligence.Predict.MinProbability < 0 || c.Intelligence.Predict.MinProbability > 1 {
		return fmt.Errorf("intelligence.predict.min_probability must be within [0,1]")
	}
	if c.Tracing.Enabled && c.Tracing.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint required when tracing is enabled")
	}
	return nil
}
