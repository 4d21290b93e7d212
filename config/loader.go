package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader builds a Config from defaults, an optional YAML file, and
// environment overrides, in that precedence order.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    Load()
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a Loader with the GAESAJU env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "GAESAJU"}
}

// WithConfigPath sets the YAML file to load.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves the configuration. A missing config file is an error only
// when a path was explicitly given.
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	l.applyEnvOverrides(cfg)
	return cfg, nil
}

func (l *Loader) applyEnvOverrides(cfg *Config) {
	l.envString("ENVIRONMENT", &cfg.Server.Environment)
	l.envInt("SERVER_HTTP_PORT", &cfg.Server.HTTPPort)
	l.envInt("SERVER_METRICS_PORT", &cfg.Server.MetricsPort)

	l.envString("AI_DEFAULT_PROVIDER", &cfg.AI.DefaultProvider)
	l.envString("AI_GEMINI_API_KEY", &cfg.AI.Gemini.APIKey)
	l.envString("AI_GEMINI_MODEL", &cfg.AI.Gemini.Model)
	l.envString("AI_OPENAI_API_KEY", &cfg.AI.OpenAI.APIKey)
	l.envString("AI_OPENAI_MODEL", &cfg.AI.OpenAI.Model)
	l.envInt("AI_MAX_RETRIES", &cfg.AI.MaxRetries)
	l.envInt("AI_CIRCUIT_BREAKER_THRESHOLD", &cfg.AI.CircuitBreakerThreshold)
	l.envDuration("AI_CIRCUIT_BREAKER_RESET_TIMEOUT", &cfg.AI.CircuitBreakerResetTimeout)

	l.envBool("CACHE_ENABLE_REDIS", &cfg.Cache.EnableRedis)
	l.envDuration("CACHE_TTL", &cfg.Cache.TTL)
	l.envInt("CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries)

	l.envString("REDIS_ADDR", &cfg.Redis.Addr)
	l.envString("REDIS_PASSWORD", &cfg.Redis.Password)
	l.envInt("REDIS_DB", &cfg.Redis.DB)

	l.envBool("MONITORING_ENABLE_ALERTS", &cfg.Monitoring.EnableAlerts)
	l.envDuration("MONITORING_RETENTION_PERIOD", &cfg.Monitoring.RetentionPeriod)

	l.envBool("DATABASE_ENABLED", &cfg.Database.Enabled)
	l.envString("DATABASE_DRIVER", &cfg.Database.Driver)
	l.envString("DATABASE_DSN", &cfg.Database.DSN)

	l.envString("LOG_LEVEL", &cfg.Log.Level)
	l.envString("LOG_FORMAT", &cfg.Log.Format)

	l.envBool("TELEMETRY_ENABLED", &cfg.Telemetry.Enabled)
	l.envString("TELEMETRY_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)
}

func (l *Loader) envString(key string, dst *string) {
	if v, ok := os.LookupEnv(l.envPrefix + "_" + key); ok {
		*dst = v
	}
}

func (l *Loader) envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(l.envPrefix + "_" + key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (l *Loader) envBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(l.envPrefix + "_" + key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func (l *Loader) envDuration(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(l.envPrefix + "_" + key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
