package config

import "time"

// Defaults returns the baseline configuration. YAML and environment
// overrides are layered on top by the Loader.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			MetricsPort:     9090,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "production",
			RateLimitRPS:    10,
			RateLimitBurst:  20,
		},
		AI: AIConfig{
			DefaultProvider: "auto",
			Gemini: ProviderSettings{
				Model:   "gemini-2.0-flash",
				Timeout: 30 * time.Second,
			},
			OpenAI: ProviderSettings{
				Model:   "gpt-4o-mini",
				Timeout: 30 * time.Second,
			},
			MaxRetries:                 2,
			RetryInitialDelay:          500 * time.Millisecond,
			RetryMaxDelay:              8 * time.Second,
			CircuitBreakerThreshold:    5,
			CircuitBreakerResetTimeout: 60 * time.Second,
		},
		Cache: CacheConfig{
			TTL:        time.Hour,
			MaxEntries: 1000,
			RedisTTL:   6 * time.Hour,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Monitoring: MonitoringConfig{
			RetentionPeriod:       24 * time.Hour,
			CleanupInterval:       10 * time.Minute,
			EnableAlerts:          true,
			ErrorRateThreshold:    50,
			ResponseTimeThreshold: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "gaesaju.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "gaesaju",
			SampleRate:  1.0,
		},
	}
}
