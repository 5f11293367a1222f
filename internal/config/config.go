package config

type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Port        int    `mapstructure:"port" yaml:"port"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	CORS         CORSConfig         `mapstructure:"cors" yaml:"cors"`
	Alerting     AlertingConfig     `mapstructure:"alerting" yaml:"alerting"`
	Intelligence IntelligenceConfig `mapstructure:"intelligence" yaml:"intelligence"`
	Tracing      TracingConfig      `mapstructure:"tracing" yaml:"tracing"`
}

// CacheConfig handles Valkey caching configuration. An empty addr falls back
// to the in-memory noop cache.
type CacheConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Password string `mapstructure:"password" yaml:"password"`
	TTL      int    `mapstructure:"ttl" yaml:"ttl"` // seconds
}

// CORSConfig handles Cross-Origin Resource Sharing
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

// AlertingConfig drives the alert manager and the rules file.
type AlertingConfig struct {
	RulesPath    string          `mapstructure:"rules_path" yaml:"rules_path"`
	WatchRules   bool            `mapstructure:"watch_rules" yaml:"watch_rules"`
	HistoryLimit int             `mapstructure:"history_limit" yaml:"history_limit"`
	Transport    TransportConfig `mapstructure:"transport" yaml:"transport"`
}

// TransportConfig tunes the simulated notification transport.
type TransportConfig struct {
	Seed        int64   `mapstructure:"seed" yaml:"seed"` // 0 seeds from the clock
	FailureRate float64 `mapstructure:"failure_rate" yaml:"failure_rate"`
	MaxJitterMS int     `mapstructure:"max_jitter_ms" yaml:"max_jitter_ms"`
}

// IntelligenceConfig groups the analytic engines' tunables.
type IntelligenceConfig struct {
	Anomaly  AnomalyConfig  `mapstructure:"anomaly" yaml:"anomaly"`
	Predict  PredictConfig  `mapstructure:"predict" yaml:"predict"`
	RCA      RCAConfig      `mapstructure:"rca" yaml:"rca"`
	Capacity CapacityConfig `mapstructure:"capacity" yaml:"capacity"`
	// CacheTTL is how long handlers cache analysis outputs, in seconds.
	CacheTTL int `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

type AnomalyConfig struct {
	WindowSize int     `mapstructure:"window_size" yaml:"window_size"`
	Threshold  float64 `mapstructure:"threshold" yaml:"threshold"`
}

type PredictConfig struct {
	HorizonMinutes   int                `mapstructure:"horizon_minutes" yaml:"horizon_minutes"`
	DefaultThreshold float64            `mapstructure:"default_threshold" yaml:"default_threshold"`
	MinProbability   float64            `mapstructure:"min_probability" yaml:"min_probability"`
	Thresholds       map[string]float64 `mapstructure:"thresholds" yaml:"thresholds"`
}

type RCAConfig struct {
	OverlapWindowMinutes int `mapstructure:"overlap_window_minutes" yaml:"overlap_window_minutes"`
	ClusterWindowMinutes int `mapstructure:"cluster_window_minutes" yaml:"cluster_window_minutes"`
}

type CapacityConfig struct {
	HistoryWindowHours int     `mapstructure:"history_window_hours" yaml:"history_window_hours"`
	ScaleUpAt          float64 `mapstructure:"scale_up_at" yaml:"scale_up_at"`
	ScaleDownAt        float64 `mapstructure:"scale_down_at" yaml:"scale_down_at"`
	SafetyMargin       float64 `mapstructure:"safety_margin" yaml:"safety_margin"`
	SimulationSeed     int64   `mapstructure:"simulation_seed" yaml:"simulation_seed"`
}

// TracingConfig enables OTLP trace export when an endpoint is set.
type TracingConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name" yaml:"service_name"`
}
