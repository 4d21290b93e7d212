package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector("gaesaju", reg, zap.NewNop()), reg
}

func findMetric(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// HTTP metrics
// ---------------------------------------------------------------------------

func TestRecordHTTPRequest(t *testing.T) {
	c, reg := newTestCollector(t)

	c.RecordHTTPRequest("POST", "/api/ai/enhance-interpretation", 200, 150*time.Millisecond)
	c.RecordHTTPRequest("POST", "/api/ai/enhance-interpretation", 200, 250*time.Millisecond)
	c.RecordHTTPRequest("POST", "/api/ai/enhance-interpretation", 502, 100*time.Millisecond)

	mf := findMetric(t, reg, "gaesaju_http_requests_total")
	require.NotNil(t, mf)
	require.Len(t, mf.GetMetric(), 2, "status classes become separate series")

	for _, m := range mf.GetMetric() {
		switch labelValue(m, "status") {
		case "2xx":
			assert.Equal(t, 2.0, m.GetCounter().GetValue())
		case "5xx":
			assert.Equal(t, 1.0, m.GetCounter().GetValue())
		default:
			t.Fatalf("unexpected status label %q", labelValue(m, "status"))
		}
	}

	hist := findMetric(t, reg, "gaesaju_http_request_duration_seconds")
	require.NotNil(t, hist)
	require.Len(t, hist.GetMetric(), 1, "duration is not partitioned by status")
	assert.Equal(t, uint64(3), hist.GetMetric()[0].GetHistogram().GetSampleCount())
}

// ---------------------------------------------------------------------------
// AI metrics
// ---------------------------------------------------------------------------

func TestRecordAIRequest(t *testing.T) {
	c, reg := newTestCollector(t)

	c.RecordAIRequest("gemini", "gemini-2.0-flash", "success", 2*time.Second)
	c.RecordAIRequest("gemini", "gemini-2.0-flash", "error", time.Second)

	mf := findMetric(t, reg, "gaesaju_ai_requests_total")
	require.NotNil(t, mf)
	assert.Len(t, mf.GetMetric(), 2)

	hist := findMetric(t, reg, "gaesaju_ai_request_duration_seconds")
	require.NotNil(t, hist)
	assert.Equal(t, uint64(2), hist.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestRecordTokenUsage(t *testing.T) {
	c, reg := newTestCollector(t)

	c.RecordTokenUsage("gemini", "gemini-2.0-flash", 100, 250)
	c.RecordTokenUsage("gemini", "gemini-2.0-flash", 50, 150)

	mf := findMetric(t, reg, "gaesaju_ai_tokens_used_total")
	require.NotNil(t, mf)
	require.Len(t, mf.GetMetric(), 2)

	for _, m := range mf.GetMetric() {
		switch labelValue(m, "type") {
		case "prompt":
			assert.Equal(t, 150.0, m.GetCounter().GetValue())
		case "completion":
			assert.Equal(t, 400.0, m.GetCounter().GetValue())
		}
	}
}

// ---------------------------------------------------------------------------
// Cache and breaker metrics
// ---------------------------------------------------------------------------

func TestRecordCacheHitAndMiss(t *testing.T) {
	c, reg := newTestCollector(t)

	c.RecordCacheHit("local")
	c.RecordCacheHit("local")
	c.RecordCacheMiss("redis")

	hits := findMetric(t, reg, "gaesaju_cache_hits_total")
	require.NotNil(t, hits)
	assert.Equal(t, 2.0, hits.GetMetric()[0].GetCounter().GetValue())

	misses := findMetric(t, reg, "gaesaju_cache_misses_total")
	require.NotNil(t, misses)
	assert.Equal(t, 1.0, misses.GetMetric()[0].GetCounter().GetValue())
}

func TestRecordBreakerState(t *testing.T) {
	c, reg := newTestCollector(t)

	c.RecordBreakerState("gemini", true)
	mf := findMetric(t, reg, "gaesaju_circuit_breaker_open")
	require.NotNil(t, mf)
	assert.Equal(t, 1.0, mf.GetMetric()[0].GetGauge().GetValue())

	c.RecordBreakerState("gemini", false)
	mf = findMetric(t, reg, "gaesaju_circuit_breaker_open")
	assert.Equal(t, 0.0, mf.GetMetric()[0].GetGauge().GetValue())
}

// ---------------------------------------------------------------------------
// DB metrics
// ---------------------------------------------------------------------------

func TestRecordDBQuery(t *testing.T) {
	c, reg := newTestCollector(t)

	c.RecordDBQuery("insert", 5*time.Millisecond)
	c.RecordDBQuery("insert", 7*time.Millisecond)

	mf := findMetric(t, reg, "gaesaju_db_query_duration_seconds")
	require.NotNil(t, mf)
	assert.Equal(t, uint64(2), mf.GetMetric()[0].GetHistogram().GetSampleCount())
	assert.Equal(t, "insert", labelValue(mf.GetMetric()[0], "operation"))
}

// ---------------------------------------------------------------------------
// statusClass
// ---------------------------------------------------------------------------

func TestStatusClass(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"},
		{204, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{500, "5xx"},
		{502, "5xx"},
		{100, "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusClass(tt.code))
	}
}
