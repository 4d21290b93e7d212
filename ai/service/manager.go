package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gaesaju/gaesaju/ai"
	"github.com/gaesaju/gaesaju/ai/circuitbreaker"
	"github.com/gaesaju/gaesaju/ai/monitoring"
	"github.com/gaesaju/gaesaju/ai/retry"
)

// ProviderRuntime bundles one enabled backend's client and tuning.
type ProviderRuntime struct {
	Client  ai.Client
	Enabled bool
	Model   string
	Timeout time.Duration
}

// MetricsRecorder mirrors request outcomes into an external metrics system
// (Prometheus in production). Implementations must never block.
type MetricsRecorder interface {
	RecordAIRequest(provider, model, status string, duration time.Duration)
}

// ManagerConfig configures the service manager.
type ManagerConfig struct {
	Default   ai.ProviderID
	Providers map[ai.ProviderID]ProviderRuntime

	// Fallback, when set, receives the payload after the primary provider
	// fails with a breaker-eligible error. Caller-attributable failures
	// never trigger fallback.
	Fallback ai.ProviderID

	Retry               *retry.Strategy
	BreakerThreshold    int
	BreakerResetTimeout time.Duration
}

type providerState struct {
	runtime  ProviderRuntime
	breaker  *circuitbreaker.Breaker
	executor *retry.Executor
}

// Manager owns one client, one circuit breaker, and one retry executor per
// provider and performs provider selection and fallback. The Monitor is
// injected explicitly; there is no package-level singleton.
type Manager struct {
	cfg     ManagerConfig
	states  map[ai.ProviderID]*providerState
	monitor *monitoring.Monitor
	metrics MetricsRecorder
	logger  *zap.Logger

	shutdownOnce sync.Once
}

// NewManager constructs the per-provider breaker and executor instances.
// monitor is required; metrics may be nil.
func NewManager(cfg ManagerConfig, monitor *monitoring.Monitor, metrics MetricsRecorder, logger *zap.Logger) *Manager {
	m := &Manager{
		cfg:     cfg,
		states:  make(map[ai.ProviderID]*providerState, len(cfg.Providers)),
		monitor: monitor,
		metrics: metrics,
		logger:  logger,
	}

	for id, rt := range cfg.Providers {
		if !rt.Enabled {
			m.states[id] = &providerState{runtime: rt}
			continue
		}

		provider := id
		breaker := circuitbreaker.New(&circuitbreaker.Config{
			Threshold:    cfg.BreakerThreshold,
			ResetTimeout: cfg.BreakerResetTimeout,
			Eligible:     ai.CountsTowardBreaker,
			OnStateChange: func(from, to circuitbreaker.State) {
				switch to {
				case circuitbreaker.StateOpen:
					monitor.RecordBreakerStateChange(provider, true)
				case circuitbreaker.StateClosed:
					monitor.RecordBreakerStateChange(provider, false)
				}
			},
		}, logger.With(zap.String("provider", string(id))))

		m.states[id] = &providerState{
			runtime:  rt,
			breaker:  breaker,
			executor: retry.NewExecutor(id, cfg.Retry, breaker, logger),
		}
	}

	return m
}

// Request executes the payload against the named provider (or the
// configured default) through the retry+breaker wrapper, falling back to
// the secondary provider on infrastructure failures.
func (m *Manager) Request(ctx context.Context, provider ai.ProviderID, req *ai.ProviderRequest) (*ai.ProviderResponse, error) {
	if provider == "" || provider == ai.ProviderDefault {
		provider = m.cfg.Default
	}

	requestID := uuid.NewString()

	resp, err := m.execute(ctx, provider, req, requestID)
	if err == nil {
		return resp, nil
	}

	fallback := m.cfg.Fallback
	if fallback == "" || fallback == provider || !ai.CountsTowardBreaker(err) {
		return nil, err
	}
	if st, ok := m.states[fallback]; !ok || !st.runtime.Enabled {
		return nil, err
	}

	m.logger.Warn("falling back to secondary provider",
		zap.String("from", string(provider)),
		zap.String("to", string(fallback)),
		zap.String("error_code", string(ai.CodeOf(err))),
	)
	// The fallback attempt keeps the primary's request ID so its events
	// correlate with the failed request in the event log.
	m.monitor.RecordFallback(provider, fallback, requestID)

	resp, fbErr := m.execute(ctx, fallback, req, requestID)
	if fbErr != nil {
		// Surface the primary failure; the fallback outcome is already in
		// the monitoring log.
		return nil, err
	}
	return resp, nil
}

func (m *Manager) execute(ctx context.Context, provider ai.ProviderID, req *ai.ProviderRequest, requestID string) (*ai.ProviderResponse, error) {
	st, ok := m.states[provider]
	if !ok {
		return nil, ai.NewError(ai.ErrValidationInvalid,
			fmt.Sprintf("unknown provider %q", provider))
	}
	if !st.runtime.Enabled {
		return nil, ai.NewError(ai.ErrServerUnavailable,
			fmt.Sprintf("provider %s is not configured", provider)).
			WithProvider(provider)
	}

	call := *req
	if call.Model == "" {
		call.Model = st.runtime.Model
	}
	if call.Timeout <= 0 {
		call.Timeout = st.runtime.Timeout
	}

	m.monitor.RecordRequestStart(provider, requestID)
	start := time.Now()

	resp, err := retry.ExecuteWithResult(ctx, st.executor, func() (*ai.ProviderResponse, error) {
		return st.runtime.Client.Complete(ctx, &call)
	})
	elapsed := time.Since(start)

	if err != nil {
		st.breaker.RecordFailure(err)
		m.monitor.RecordRequestFailed(provider, requestID, elapsed, ai.CodeOf(err))
		m.recordMetrics(provider, call.Model, "error", elapsed)
		return nil, err
	}

	st.breaker.RecordSuccess()
	m.monitor.RecordRequestCompleted(provider, requestID, elapsed)
	m.recordMetrics(provider, call.Model, "success", elapsed)
	return resp, nil
}

func (m *Manager) recordMetrics(provider ai.ProviderID, model, status string, d time.Duration) {
	if m.metrics != nil {
		m.metrics.RecordAIRequest(string(provider), model, status, d)
	}
}

// HealthStatus reports, per provider, whether it is configured and its
// breaker currently admits calls.
func (m *Manager) HealthStatus() map[ai.ProviderID]bool {
	out := make(map[ai.ProviderID]bool, len(m.states))
	for id, st := range m.states {
		healthy := st.runtime.Enabled
		if healthy && st.breaker != nil {
			healthy = st.breaker.CanExecute()
		}
		out[id] = healthy
	}
	return out
}

// SupportedProviders lists every enabled provider.
func (m *Manager) SupportedProviders() []ai.ProviderID {
	out := make([]ai.ProviderID, 0, len(m.states))
	for id, st := range m.states {
		if st.runtime.Enabled {
			out = append(out, id)
		}
	}
	return out
}

// DefaultProvider returns the provider selected at startup.
func (m *Manager) DefaultProvider() ai.ProviderID {
	return m.cfg.Default
}

// Monitor exposes the injected monitor for the diagnostic routes.
func (m *Manager) Monitor() *monitoring.Monitor {
	return m.monitor
}

// Shutdown releases the monitoring timer. Idempotent.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.monitor.Stop()
		m.logger.Info("ai service manager stopped")
	})
}
