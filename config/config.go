package config

import (
	"fmt"
	"time"
)

// Config is the complete service configuration. It is built once at startup
// by the Loader; nothing mutates it afterwards.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	AI         AIConfig         `yaml:"ai"`
	Cache      CacheConfig      `yaml:"cache"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port"`
	MetricsPort     int           `yaml:"metrics_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Environment gates the diagnostic routes: "development" exposes cache
	// stats and monitoring endpoints, anything else refuses them.
	Environment string `yaml:"environment"`

	// RateLimitRPS and RateLimitBurst tune the token-bucket request
	// limiter; zero RPS disables it.
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// IsDevelopment reports whether diagnostic routes may be served.
func (s ServerConfig) IsDevelopment() bool {
	return s.Environment == "development"
}

// ProviderSettings holds one LLM backend's credentials and tuning.
type ProviderSettings struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// AIConfig holds provider selection and resilience tuning.
type AIConfig struct {
	// DefaultProvider is a provider id or "auto". Under "auto" the
	// lowest-cost provider with a present credential wins (see
	// SelectProvider).
	DefaultProvider string `yaml:"default_provider"`

	Gemini ProviderSettings `yaml:"gemini"`
	OpenAI ProviderSettings `yaml:"openai"`

	MaxRetries        int           `yaml:"max_retries"`
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay"`
	RetryMaxDelay     time.Duration `yaml:"retry_max_delay"`

	CircuitBreakerThreshold    int           `yaml:"circuit_breaker_threshold"`
	CircuitBreakerResetTimeout time.Duration `yaml:"circuit_breaker_reset_timeout"`
}

// CacheConfig holds response-cache tuning.
type CacheConfig struct {
	TTL         time.Duration `yaml:"ttl"`
	MaxEntries  int           `yaml:"max_entries"`
	EnableRedis bool          `yaml:"enable_redis"`
	RedisTTL    time.Duration `yaml:"redis_ttl"`
}

// RedisConfig holds the shared cache tier connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MonitoringConfig holds event retention and alerting settings.
type MonitoringConfig struct {
	RetentionPeriod       time.Duration `yaml:"retention_period"`
	CleanupInterval       time.Duration `yaml:"cleanup_interval"`
	EnableAlerts          bool          `yaml:"enable_alerts"`
	ErrorRateThreshold    float64       `yaml:"error_rate_threshold"`
	ResponseTimeThreshold time.Duration `yaml:"response_time_threshold"`
}

// DatabaseConfig holds the optional request-log store. With Enabled false
// the service runs without persistence.
type DatabaseConfig struct {
	Enabled bool `yaml:"enabled"`
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	// DSN is the driver-specific connection string; for sqlite it is the
	// database file path.
	DSN string `yaml:"dsn"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format: json or console.
	Format string `yaml:"format"`
}

// TelemetryConfig holds OpenTelemetry settings. Disabled means noop
// providers and no exporter connections.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// Validate checks invariants that must hold before the service starts.
// Provider credential invariants are checked separately by ResolveProviders
// since they decide which backends are enabled.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort != 0 && (c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535) {
		return fmt.Errorf("invalid metrics_port %d", c.Server.MetricsPort)
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.AI.CircuitBreakerThreshold <= 0 {
		return fmt.Errorf("circuit_breaker_threshold must be positive")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max_entries must be positive")
	}
	if c.Database.Enabled && c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}
