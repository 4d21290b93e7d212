package monitoring

import (
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gaesaju/gaesaju/ai"
)

// EventType enumerates the monitoring event kinds.
type EventType string

const (
	EventRequestStarted       EventType = "request_started"
	EventRequestCompleted     EventType = "request_completed"
	EventRequestFailed        EventType = "request_failed"
	EventCircuitBreakerOpened EventType = "circuit_breaker_opened"
	EventCircuitBreakerClosed EventType = "circuit_breaker_closed"
	EventFallbackActivated    EventType = "fallback_activated"
)

// Event is one append-only monitoring record. Events are pruned once they
// age past the retention period.
type Event struct {
	Type         EventType      `json:"type"`
	Provider     ai.ProviderID  `json:"provider"`
	RequestID    string         `json:"requestId"`
	Timestamp    time.Time      `json:"timestamp"`
	ResponseTime time.Duration  `json:"responseTime,omitempty"`
	ErrorCode    ai.ErrorCode   `json:"errorCode,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// ProviderMetrics is derived on demand from retained events; it is never
// stored.
type ProviderMetrics struct {
	Provider            ai.ProviderID `json:"provider"`
	TotalRequests       int           `json:"totalRequests"`
	SuccessfulRequests  int           `json:"successfulRequests"`
	FailedRequests      int           `json:"failedRequests"`
	ErrorRate           float64       `json:"errorRate"`
	AverageResponseTime time.Duration `json:"averageResponseTime"`
	P99ResponseTime     time.Duration `json:"p99ResponseTime"`
}

// HourlyStat aggregates one clock hour of traffic for a provider.
type HourlyStat struct {
	Hour                time.Time     `json:"hour"`
	TotalRequests       int           `json:"totalRequests"`
	FailedRequests      int           `json:"failedRequests"`
	AverageResponseTime time.Duration `json:"averageResponseTime"`
}

// SystemOverview is the cross-provider aggregate.
type SystemOverview struct {
	Providers      map[ai.ProviderID]ProviderMetrics `json:"providers"`
	TotalRequests  int                               `json:"totalRequests"`
	TotalFailures  int                               `json:"totalFailures"`
	RetainedEvents int                               `json:"retainedEvents"`
}

// AlertType enumerates threshold alerts.
type AlertType string

const (
	AlertHighErrorRate AlertType = "high_error_rate"
	AlertSlowResponse  AlertType = "slow_response"
)

// Alert is delivered to the configured callback. Alerts are level-triggered:
// each qualifying event may refire the same alert.
type Alert struct {
	Type         AlertType     `json:"type"`
	Provider     ai.ProviderID `json:"provider"`
	ErrorRate    float64       `json:"errorRate,omitempty"`
	ResponseTime time.Duration `json:"responseTime,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// AlertCallback receives threshold alerts. It is invoked outside the
// monitor's lock and must not block for long.
type AlertCallback func(Alert)

// Thresholds configure alerting.
type Thresholds struct {
	// ErrorRate in percent (0-100).
	ErrorRate float64
	// ResponseTime flags any single completed request slower than this.
	ResponseTime time.Duration
}

// Persister receives completed/failed events for durable storage. Writes
// are best-effort and run on a background worker: a slow or failing store
// never delays request handling. When the queue is full the event is
// dropped with a warning.
type Persister interface {
	PersistEvent(e Event) error
}

// persistQueueSize bounds the persistence backlog before events are dropped.
const persistQueueSize = 256

// Config tunes the monitor.
type Config struct {
	RetentionPeriod time.Duration
	CleanupInterval time.Duration
	EnableAlerts    bool
	Thresholds      Thresholds
	AlertCallback   AlertCallback
	Persister       Persister
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		RetentionPeriod: 24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
		Thresholds: Thresholds{
			ErrorRate:    50,
			ResponseTime: 10 * time.Second,
		},
	}
}

// Monitor owns the event log. It is the only mutable, unbounded-but-pruned
// state in the pipeline and is constructed explicitly at the composition
// root, never as a package-level singleton.
type Monitor struct {
	config *Config
	logger *zap.Logger

	mu     sync.Mutex
	events []Event

	persistCh chan Event
	persistWG sync.WaitGroup

	stopOnce sync.Once
	done     chan struct{}

	now func() time.Time // swapped in tests
}

// New creates a Monitor and starts its cleanup timer when a cleanup
// interval is configured.
func New(config *Config, logger *zap.Logger) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	if config.RetentionPeriod <= 0 {
		config.RetentionPeriod = 24 * time.Hour
	}

	m := &Monitor{
		config: config,
		logger: logger,
		done:   make(chan struct{}),
		now:    time.Now,
	}

	if config.Persister != nil {
		m.persistCh = make(chan Event, persistQueueSize)
		m.persistWG.Add(1)
		go m.persistLoop()
	}

	if config.CleanupInterval > 0 {
		go m.cleanupLoop()
	}

	return m
}

// RecordRequestStart appends a request_started event.
func (m *Monitor) RecordRequestStart(provider ai.ProviderID, requestID string) {
	m.append(Event{
		Type:      EventRequestStarted,
		Provider:  provider,
		RequestID: requestID,
	})
}

// RecordRequestCompleted appends a request_completed event carrying the
// response time, then re-evaluates alert thresholds.
func (m *Monitor) RecordRequestCompleted(provider ai.ProviderID, requestID string, responseTime time.Duration) {
	m.append(Event{
		Type:         EventRequestCompleted,
		Provider:     provider,
		RequestID:    requestID,
		ResponseTime: responseTime,
	})
	m.evaluateAlerts(provider, responseTime, true)
}

// RecordRequestFailed appends a request_failed event carrying the response
// time and error code, then re-evaluates alert thresholds.
func (m *Monitor) RecordRequestFailed(provider ai.ProviderID, requestID string, responseTime time.Duration, code ai.ErrorCode) {
	m.append(Event{
		Type:         EventRequestFailed,
		Provider:     provider,
		RequestID:    requestID,
		ResponseTime: responseTime,
		ErrorCode:    code,
	})
	m.evaluateAlerts(provider, 0, false)
}

// RecordBreakerStateChange appends a breaker transition event. Only
// transitions into and out of the open state are recorded.
func (m *Monitor) RecordBreakerStateChange(provider ai.ProviderID, opened bool) {
	typ := EventCircuitBreakerClosed
	if opened {
		typ = EventCircuitBreakerOpened
	}
	m.append(Event{Type: typ, Provider: provider})
}

// RecordFallback appends a fallback_activated event naming the provider
// being abandoned and the one taking over.
func (m *Monitor) RecordFallback(from, to ai.ProviderID, requestID string) {
	m.append(Event{
		Type:      EventFallbackActivated,
		Provider:  from,
		RequestID: requestID,
		Payload:   map[string]any{"fallback_provider": string(to)},
	})
}

func (m *Monitor) append(e Event) {
	e.Timestamp = m.now()

	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()

	if m.persistCh != nil && (e.Type == EventRequestCompleted || e.Type == EventRequestFailed) {
		select {
		case m.persistCh <- e:
		default:
			m.logger.Warn("persistence queue full, dropping event",
				zap.String("provider", string(e.Provider)),
				zap.String("request_id", e.RequestID),
			)
		}
	}
}

// persistLoop drains the persistence queue off the request path. On Stop it
// flushes whatever is still buffered before exiting.
func (m *Monitor) persistLoop() {
	defer m.persistWG.Done()
	for {
		select {
		case <-m.done:
			for {
				select {
				case e := <-m.persistCh:
					m.persist(e)
				default:
					return
				}
			}
		case e := <-m.persistCh:
			m.persist(e)
		}
	}
}

func (m *Monitor) persist(e Event) {
	if err := m.config.Persister.PersistEvent(e); err != nil {
		m.logger.Warn("event persistence failed",
			zap.String("provider", string(e.Provider)),
			zap.Error(err),
		)
	}
}

// GetMetrics computes rolling metrics for one provider from the retained
// events. Error rate is failed/total*100 over terminal events; p99 uses the
// nearest-rank method over completed response times.
func (m *Monitor) GetMetrics(provider ai.ProviderID) ProviderMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	var completed, failed int
	var durations []time.Duration
	var sum time.Duration

	for _, e := range m.events {
		if e.Provider != provider {
			continue
		}
		switch e.Type {
		case EventRequestCompleted:
			completed++
			durations = append(durations, e.ResponseTime)
			sum += e.ResponseTime
		case EventRequestFailed:
			failed++
		}
	}

	metrics := ProviderMetrics{
		Provider:           provider,
		TotalRequests:      completed + failed,
		SuccessfulRequests: completed,
		FailedRequests:     failed,
	}
	if metrics.TotalRequests > 0 {
		metrics.ErrorRate = float64(failed) / float64(metrics.TotalRequests) * 100
	}
	if completed > 0 {
		metrics.AverageResponseTime = sum / time.Duration(completed)
		metrics.P99ResponseTime = percentile(durations, 99)
	}
	return metrics
}

// GetHourlyStats buckets a provider's terminal events by clock hour, oldest
// first.
func (m *Monitor) GetHourlyStats(provider ai.ProviderID) []HourlyStat {
	m.mu.Lock()
	defer m.mu.Unlock()

	type bucket struct {
		total  int
		failed int
		sum    time.Duration
		timed  int
	}
	buckets := make(map[time.Time]*bucket)

	for _, e := range m.events {
		if e.Provider != provider {
			continue
		}
		if e.Type != EventRequestCompleted && e.Type != EventRequestFailed {
			continue
		}
		hour := e.Timestamp.Truncate(time.Hour)
		b := buckets[hour]
		if b == nil {
			b = &bucket{}
			buckets[hour] = b
		}
		b.total++
		if e.Type == EventRequestFailed {
			b.failed++
		} else {
			b.sum += e.ResponseTime
			b.timed++
		}
	}

	stats := make([]HourlyStat, 0, len(buckets))
	for hour, b := range buckets {
		s := HourlyStat{Hour: hour, TotalRequests: b.total, FailedRequests: b.failed}
		if b.timed > 0 {
			s.AverageResponseTime = b.sum / time.Duration(b.timed)
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Hour.Before(stats[j].Hour) })
	return stats
}

// GetRecentEvents returns up to limit events for a provider, most recent
// first.
func (m *Monitor) GetRecentEvents(provider ai.ProviderID, limit int) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if m.events[i].Provider == provider {
			out = append(out, m.events[i])
		}
	}
	return out
}

// GetSystemOverview aggregates metrics across every provider seen in the
// retained events.
func (m *Monitor) GetSystemOverview() SystemOverview {
	m.mu.Lock()
	providers := make(map[ai.ProviderID]struct{})
	retained := len(m.events)
	for _, e := range m.events {
		if e.Provider != "" {
			providers[e.Provider] = struct{}{}
		}
	}
	m.mu.Unlock()

	overview := SystemOverview{
		Providers:      make(map[ai.ProviderID]ProviderMetrics, len(providers)),
		RetainedEvents: retained,
	}
	for p := range providers {
		pm := m.GetMetrics(p)
		overview.Providers[p] = pm
		overview.TotalRequests += pm.TotalRequests
		overview.TotalFailures += pm.FailedRequests
	}
	return overview
}

// CleanupExpiredEvents drops events older than the retention period and
// returns how many were removed.
func (m *Monitor) CleanupExpiredEvents() int {
	cutoff := m.now().Add(-m.config.RetentionPeriod)

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	for _, e := range m.events {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := len(m.events) - len(kept)
	m.events = kept
	return removed
}

// Stop cancels the cleanup timer and flushes the persistence queue.
// Idempotent.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.persistWG.Wait()
	})
}

func (m *Monitor) cleanupLoop() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			if removed := m.CleanupExpiredEvents(); removed > 0 {
				m.logger.Debug("pruned expired monitoring events",
					zap.Int("removed", removed),
				)
			}
		}
	}
}

// evaluateAlerts recomputes thresholds after a terminal event and fires the
// callback for each breach. completedTime is the latest completed request's
// response time, used for the slow_response check.
func (m *Monitor) evaluateAlerts(provider ai.ProviderID, completedTime time.Duration, completed bool) {
	if !m.config.EnableAlerts || m.config.AlertCallback == nil {
		return
	}

	metrics := m.GetMetrics(provider)

	if m.config.Thresholds.ErrorRate > 0 && metrics.ErrorRate > m.config.Thresholds.ErrorRate {
		m.config.AlertCallback(Alert{
			Type:      AlertHighErrorRate,
			Provider:  provider,
			ErrorRate: metrics.ErrorRate,
			Timestamp: m.now(),
		})
	}

	if completed && m.config.Thresholds.ResponseTime > 0 && completedTime > m.config.Thresholds.ResponseTime {
		m.config.AlertCallback(Alert{
			Type:         AlertSlowResponse,
			Provider:     provider,
			ResponseTime: completedTime,
			Timestamp:    m.now(),
		})
	}
}

// percentile returns the p-th percentile (nearest-rank) of the samples.
func percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
