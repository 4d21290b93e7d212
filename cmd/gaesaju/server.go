package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gaesaju/gaesaju/ai"
	"github.com/gaesaju/gaesaju/ai/cache"
	"github.com/gaesaju/gaesaju/ai/monitoring"
	"github.com/gaesaju/gaesaju/ai/providers/gemini"
	"github.com/gaesaju/gaesaju/ai/providers/openai"
	"github.com/gaesaju/gaesaju/ai/retry"
	"github.com/gaesaju/gaesaju/ai/service"
	"github.com/gaesaju/gaesaju/api/handlers"
	"github.com/gaesaju/gaesaju/config"
	"github.com/gaesaju/gaesaju/internal/metrics"
	"github.com/gaesaju/gaesaju/internal/server"
	"github.com/gaesaju/gaesaju/internal/telemetry"
	"github.com/gaesaju/gaesaju/internal/usagelog"
)

// Server is the composition root: it wires config, providers, resilience,
// cache, monitoring, persistence, and HTTP into one process.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	collector *metrics.Collector
	monitor   *monitoring.Monitor
	manager   *service.Manager
	enhancer  *service.Enhancer
	store     *usagelog.Store
	rdb       *redis.Client

	otelProviders *telemetry.Providers

	rateLimiterCancel context.CancelFunc
}

// NewServer creates an unwired server; Start performs the wiring.
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		otelProviders: otelProviders,
	}
}

// Start wires all components and brings up the HTTP and metrics listeners.
func (s *Server) Start() error {
	s.collector = metrics.NewCollector("gaesaju", nil, s.logger)

	if err := s.initStore(); err != nil {
		// Persistence is optional; run degraded rather than refuse to start.
		s.logger.Warn("request log store unavailable", zap.Error(err))
	}

	s.initMonitor()

	if err := s.initAIService(); err != nil {
		return err
	}

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("environment", s.cfg.Server.Environment),
	)
	return nil
}

func (s *Server) initStore() error {
	if !s.cfg.Database.Enabled {
		return nil
	}
	store, err := usagelog.Open(s.cfg.Database.Driver, s.cfg.Database.DSN, s.collector, s.logger)
	if err != nil {
		return err
	}
	s.store = store
	return nil
}

func (s *Server) initMonitor() {
	s.monitor = monitoring.New(&monitoring.Config{
		RetentionPeriod: s.cfg.Monitoring.RetentionPeriod,
		CleanupInterval: s.cfg.Monitoring.CleanupInterval,
		EnableAlerts:    s.cfg.Monitoring.EnableAlerts,
		Thresholds: monitoring.Thresholds{
			ErrorRate:    s.cfg.Monitoring.ErrorRateThreshold,
			ResponseTime: s.cfg.Monitoring.ResponseTimeThreshold,
		},
		AlertCallback: s.onAlert,
		Persister:     s.persister(),
	}, s.logger)
}

// persister returns the store as a monitoring.Persister, avoiding a typed
// nil when persistence is disabled.
func (s *Server) persister() monitoring.Persister {
	if s.store == nil {
		return nil
	}
	return s.store
}

func (s *Server) onAlert(alert monitoring.Alert) {
	s.logger.Warn("monitoring alert",
		zap.String("type", string(alert.Type)),
		zap.String("provider", string(alert.Provider)),
		zap.Float64("error_rate", alert.ErrorRate),
		zap.Duration("response_time", alert.ResponseTime),
	)
}

func (s *Server) initAIService() error {
	resolved, err := s.cfg.AI.ResolveProviders()
	if err != nil {
		return err
	}

	runtimes := make(map[ai.ProviderID]service.ProviderRuntime, len(resolved.Providers))
	for id, p := range resolved.Providers {
		rt := service.ProviderRuntime{
			Enabled: p.Enabled,
			Model:   p.Model,
			Timeout: p.Timeout,
		}
		if p.Enabled {
			rt.Client = s.buildClient(id, p)
		}
		runtimes[id] = rt
	}

	mgrCfg := service.ManagerConfig{
		Default:   resolved.Default,
		Providers: runtimes,
		Retry: &retry.Strategy{
			MaxRetries:   s.cfg.AI.MaxRetries,
			InitialDelay: s.cfg.AI.RetryInitialDelay,
			MaxDelay:     s.cfg.AI.RetryMaxDelay,
			Multiplier:   2.0,
			Jitter:       true,
		},
		BreakerThreshold:    s.cfg.AI.CircuitBreakerThreshold,
		BreakerResetTimeout: s.cfg.AI.CircuitBreakerResetTimeout,
	}
	if fallback, ok := resolved.Fallback(); ok {
		mgrCfg.Fallback = fallback
	}

	s.manager = service.NewManager(mgrCfg, s.monitor, s.collector, s.logger)

	s.enhancer = service.NewEnhancer(s.manager, s.buildCache(), s.logger)

	s.logger.Info("ai service initialized",
		zap.String("default_provider", string(resolved.Default)),
		zap.String("fallback_provider", string(mgrCfg.Fallback)),
	)
	return nil
}

func (s *Server) buildClient(id ai.ProviderID, p config.ResolvedProvider) ai.Client {
	switch id {
	case ai.ProviderGemini:
		return gemini.New(gemini.Config{
			APIKey:  p.APIKey,
			Model:   p.Model,
			Timeout: p.Timeout,
		}, s.logger)
	case ai.ProviderOpenAI:
		return openai.New(openai.Config{
			APIKey:  p.APIKey,
			Model:   p.Model,
			Timeout: p.Timeout,
		}, s.logger)
	default:
		return nil
	}
}

func (s *Server) buildCache() *cache.ResponseCache {
	if s.cfg.Cache.EnableRedis {
		s.rdb = redis.NewClient(&redis.Options{
			Addr:     s.cfg.Redis.Addr,
			Password: s.cfg.Redis.Password,
			DB:       s.cfg.Redis.DB,
		})
	}
	return cache.New(&cache.Config{
		TTL:         s.cfg.Cache.TTL,
		MaxEntries:  s.cfg.Cache.MaxEntries,
		EnableRedis: s.cfg.Cache.EnableRedis,
		RedisTTL:    s.cfg.Cache.RedisTTL,
		KeyPrefix:   "gaesaju:ai:interp:",
	}, s.rdb, s.logger)
}

func (s *Server) startHTTPServer() error {
	development := s.cfg.Server.IsDevelopment()

	enhanceHandler := handlers.NewEnhanceHandler(s.enhancer, development, s.logger)
	healthHandler := handlers.NewHealthHandler(s.manager, Version, s.logger)
	monitoringHandler := handlers.NewMonitoringHandler(s.monitor, development, s.logger)
	usageHandler := handlers.NewUsageHandler(s.store, development, s.logger)

	mux := http.NewServeMux()
	mux.Handle("/healthz", healthHandler)
	mux.Handle("/api/ai/health", healthHandler)
	mux.Handle("/api/ai/enhance-interpretation", enhanceHandler)
	mux.Handle("/api/ai/monitoring/", monitoringHandler)
	mux.Handle("/api/ai/usage", usageHandler)

	rateLimiterCtx, cancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = cancel

	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		RateLimiter(rateLimiterCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)

	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.httpManager.Start()
}

func (s *Server) startMetricsServer() error {
	if s.cfg.Server.MetricsPort == 0 {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.metricsManager = server.NewManager(mux, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.metricsManager.Start()
}

// WaitForShutdown blocks until a signal or serve error, then tears the
// process down in reverse dependency order.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown stops the listeners and releases all resources.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown")

	ctx := context.Background()

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}
	if s.manager != nil {
		s.manager.Shutdown()
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			s.logger.Error("redis close error", zap.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("request log store close error", zap.Error(err))
		}
	}
	if s.otelProviders != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.otelProviders.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("graceful shutdown completed")
}
