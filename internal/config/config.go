package config

// Config is the root PULSE-CORE configuration.
type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Port        int    `mapstructure:"port" yaml:"port"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	Backends   BackendsConfig   `mapstructure:"backends" yaml:"backends"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	CORS       CORSConfig       `mapstructure:"cors" yaml:"cors"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket" yaml:"websocket"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" yaml:"monitoring"`
}

// BackendsConfig holds the telemetry backends, partitioned by target
// environment (prod/test). PULSE-CORE queries both environments from one
// process; the target is selected per request.
type BackendsConfig struct {
	// QueryTimeout bounds every backend query, milliseconds.
	QueryTimeout int                          `mapstructure:"query_timeout" yaml:"query_timeout"`
	Environments map[string]EnvironmentConfig `mapstructure:"environments" yaml:"environments"`
}

// EnvironmentConfig is one target environment's backend connection settings.
type EnvironmentConfig struct {
	Postgres     PostgresConfig     `mapstructure:"postgres" yaml:"postgres"`
	LogEngine    LogEngineConfig    `mapstructure:"log_engine" yaml:"log_engine"`
	MetricsAPI   MetricsAPIConfig   `mapstructure:"metrics_api" yaml:"metrics_api"`
	QueueAdmin   QueueAdminConfig   `mapstructure:"queue_admin" yaml:"queue_admin"`
	AppResources AppResourcesConfig `mapstructure:"app_resources" yaml:"app_resources"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
	// MaxConns bounds the per-environment pool; backends are shared
	// infrastructure and the aggregator is read-only.
	MaxConns int `mapstructure:"max_conns" yaml:"max_conns"`
	// IdleTimeout evicts idle pool connections, seconds.
	IdleTimeout int `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

type LogEngineConfig struct {
	Endpoints []string `mapstructure:"endpoints" yaml:"endpoints"`
	Username  string   `mapstructure:"username" yaml:"username"`
	Password  string   `mapstructure:"password" yaml:"password"`
}

type MetricsAPIConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	// Resources lists the cloud resource IDs to fetch CPU/memory series for.
	Resources []string `mapstructure:"resources" yaml:"resources"`
}

type QueueAdminConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
}

type AppResourcesConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
}

// CacheConfig controls the in-memory endpoint caches.
type CacheConfig struct {
	Enabled  bool `mapstructure:"enabled" yaml:"enabled"`
	Capacity int  `mapstructure:"capacity" yaml:"capacity"`
}

// CORSConfig handles Cross-Origin Resource Sharing for the dashboard UI.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

// WebSocketConfig controls the live overview stream.
type WebSocketConfig struct {
	Enabled         bool `mapstructure:"enabled" yaml:"enabled"`
	PushInterval    int  `mapstructure:"push_interval" yaml:"push_interval"` // seconds
	ReadBufferSize  int  `mapstructure:"read_buffer_size" yaml:"read_buffer_size"`
	WriteBufferSize int  `mapstructure:"write_buffer_size" yaml:"write_buffer_size"`
}

// MonitoringConfig handles self-monitoring.
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	MetricsPath string `mapstructure:"metrics_path" yaml:"metrics_path"`
}
