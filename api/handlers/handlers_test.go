package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gaesaju/gaesaju/ai"
	"github.com/gaesaju/gaesaju/ai/monitoring"
	"github.com/gaesaju/gaesaju/ai/retry"
	"github.com/gaesaju/gaesaju/ai/service"
	"github.com/gaesaju/gaesaju/internal/usagelog"
	"github.com/gaesaju/gaesaju/saju"
)

// stubClient returns a fixed outcome for every completion call.
type stubClient struct {
	id   ai.ProviderID
	resp *ai.ProviderResponse
	err  error
}

func (s *stubClient) Name() ai.ProviderID { return s.id }

func (s *stubClient) Complete(context.Context, *ai.ProviderRequest) (*ai.ProviderResponse, error) {
	return s.resp, s.err
}

func newManager(t *testing.T, client ai.Client) *service.Manager {
	t.Helper()
	monitorCfg := monitoring.DefaultConfig()
	monitorCfg.CleanupInterval = 0
	m := service.NewManager(service.ManagerConfig{
		Default: ai.ProviderGemini,
		Providers: map[ai.ProviderID]service.ProviderRuntime{
			ai.ProviderGemini: {Client: client, Enabled: true, Model: "gemini-2.0-flash"},
		},
		Retry: &retry.Strategy{
			MaxRetries:   0,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   2.0,
		},
		BreakerThreshold:    5,
		BreakerResetTimeout: time.Minute,
	}, monitoring.New(monitorCfg, zap.NewNop()), nil, zap.NewNop())
	t.Cleanup(m.Shutdown)
	return m
}

func successClient() *stubClient {
	return &stubClient{
		id: ai.ProviderGemini,
		resp: &ai.ProviderResponse{
			Sections: ai.EnhancedInterpretation{Personality: "steady", Summary: "fine"},
			Model:    "gemini-2.0-flash",
		},
	}
}

func enhanceBody(t *testing.T) string {
	t.Helper()
	body, err := json.Marshal(ai.InterpretationRequest{
		SajuResult: &saju.Result{
			Pillars: saju.Pillars{
				Year:  saju.Pillar{Stem: "gap", Branch: "ja"},
				Month: saju.Pillar{Stem: "eul", Branch: "chuk"},
				Day:   saju.Pillar{Stem: "byeong", Branch: "in"},
				Hour:  saju.Pillar{Stem: "jeong", Branch: "myo"},
			},
			Elements: map[string]int{"wood": 3},
		},
	})
	require.NoError(t, err)
	return string(body)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ---------------------------------------------------------------------------
// StatusForCode
// ---------------------------------------------------------------------------

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code ai.ErrorCode
		want int
	}{
		{ai.ErrValidationInvalid, http.StatusBadRequest},
		{ai.ErrValidationContentFilt, http.StatusBadRequest},
		{ai.ErrRateLimitExceeded, http.StatusTooManyRequests},
		{ai.ErrAuthQuotaExceeded, http.StatusTooManyRequests},
		{ai.ErrTimeout, http.StatusBadGateway},
		{ai.ErrNetworkConnection, http.StatusBadGateway},
		{ai.ErrServerInternal, http.StatusBadGateway},
		{ai.ErrServerUnavailable, http.StatusBadGateway},
		{ai.ErrAuthInvalidAPIKey, http.StatusInternalServerError},
		{ai.ErrUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusForCode(tt.code))
		})
	}
}

// ---------------------------------------------------------------------------
// WriteError / DecodeJSONBody
// ---------------------------------------------------------------------------

func TestWriteError_ServiceError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ai.NewError(ai.ErrRateLimitExceeded, "slow down"), zap.NewNop())

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", resp.Error.Code)
	assert.True(t, resp.Error.Retryable)
}

func TestWriteError_PlainErrorBecomesUnknown(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, assert.AnError, zap.NewNop())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "UNKNOWN_ERROR", resp.Error.Code)
	assert.False(t, resp.Error.Retryable)
}

func TestDecodeJSONBody_RejectsUnknownFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"bogus": true}`))

	var dst ai.InterpretationRequest
	err := DecodeJSONBody(rec, req, &dst, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---------------------------------------------------------------------------
// EnhanceHandler
// ---------------------------------------------------------------------------

func TestEnhance_Success(t *testing.T) {
	enhancer := service.NewEnhancer(newManager(t, successClient()), nil, zap.NewNop())
	h := NewEnhanceHandler(enhancer, false, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/enhance-interpretation", strings.NewReader(enhanceBody(t))))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var out ai.InterpretationResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "steady", out.Enhanced.Personality)
	assert.Equal(t, "gemini-2.0-flash", out.Metadata.Model)
}

func TestEnhance_MissingChart(t *testing.T) {
	enhancer := service.NewEnhancer(newManager(t, successClient()), nil, zap.NewNop())
	h := NewEnhanceHandler(enhancer, false, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/enhance-interpretation", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "MISSING_SAJU_RESULT", resp.Error.Code)
}

func TestEnhance_MalformedBody(t *testing.T) {
	enhancer := service.NewEnhancer(newManager(t, successClient()), nil, zap.NewNop())
	h := NewEnhanceHandler(enhancer, false, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/enhance-interpretation", strings.NewReader(`{"sajuResult":`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_INVALID_REQUEST", decodeResponse(t, rec).Error.Code)
}

func TestEnhance_ProviderFailureMapsToGateway(t *testing.T) {
	client := &stubClient{id: ai.ProviderGemini, err: ai.NewError(ai.ErrServerUnavailable, "down").WithProvider(ai.ProviderGemini)}
	enhancer := service.NewEnhancer(newManager(t, client), nil, zap.NewNop())
	h := NewEnhanceHandler(enhancer, false, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/enhance-interpretation", strings.NewReader(enhanceBody(t))))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "SERVER_UNAVAILABLE", resp.Error.Code)
	assert.True(t, resp.Error.Retryable)
}

func TestEnhance_CacheStatsGatedByEnvironment(t *testing.T) {
	enhancer := service.NewEnhancer(newManager(t, successClient()), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	NewEnhanceHandler(enhancer, false, zap.NewNop()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ai/enhance-interpretation", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeResponse(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	NewEnhanceHandler(enhancer, true, zap.NewNop()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ai/enhance-interpretation", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEnhance_MethodNotAllowed(t *testing.T) {
	enhancer := service.NewEnhancer(newManager(t, successClient()), nil, zap.NewNop())
	h := NewEnhanceHandler(enhancer, false, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/ai/enhance-interpretation", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// ---------------------------------------------------------------------------
// HealthHandler
// ---------------------------------------------------------------------------

func TestHealth_Healthy(t *testing.T) {
	h := NewHealthHandler(newManager(t, successClient()), "1.2.3", zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(data, &status))

	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, ai.ProviderGemini, status.DefaultProvider)
	assert.Equal(t, "1.2.3", status.Version)
	assert.True(t, status.Providers[ai.ProviderGemini])
}

func TestHealth_DegradedWhenBreakerOpen(t *testing.T) {
	client := &stubClient{id: ai.ProviderGemini, err: ai.NewError(ai.ErrServerUnavailable, "down")}
	manager := newManager(t, client)
	h := NewHealthHandler(manager, "1.2.3", zap.NewNop())

	// Trip the breaker.
	for i := 0; i < 5; i++ {
		_, _ = manager.Request(context.Background(), ai.ProviderDefault, &ai.ProviderRequest{})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code, "health always answers 200")

	data, err := json.Marshal(decodeResponse(t, rec).Data)
	require.NoError(t, err)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, "degraded", status.Status)
}

// ---------------------------------------------------------------------------
// MonitoringHandler
// ---------------------------------------------------------------------------

func TestMonitoring_ForbiddenOutsideDevelopment(t *testing.T) {
	manager := newManager(t, successClient())
	h := NewMonitoringHandler(manager.Monitor(), false, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ai/monitoring/metrics", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMonitoring_Views(t *testing.T) {
	manager := newManager(t, successClient())
	_, err := manager.Request(context.Background(), ai.ProviderDefault, &ai.ProviderRequest{})
	require.NoError(t, err)

	h := NewMonitoringHandler(manager.Monitor(), true, zap.NewNop())

	for _, path := range []string{
		"/api/ai/monitoring/metrics?provider=gemini",
		"/api/ai/monitoring/events?provider=gemini&limit=5",
		"/api/ai/monitoring/hourly?provider=gemini",
		"/api/ai/monitoring/overview",
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, decodeResponse(t, rec).Success, path)
	}
}

func TestMonitoring_UnknownView(t *testing.T) {
	manager := newManager(t, successClient())
	h := NewMonitoringHandler(manager.Monitor(), true, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ai/monitoring/nonsense", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---------------------------------------------------------------------------
// UsageHandler
// ---------------------------------------------------------------------------

func TestUsage_NotFoundWithoutStore(t *testing.T) {
	h := NewUsageHandler(nil, true, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ai/usage", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsage_ForbiddenOutsideDevelopment(t *testing.T) {
	h := NewUsageHandler(nil, false, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ai/usage", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUsage_ReturnsRecentLogs(t *testing.T) {
	store, err := usagelog.Open("sqlite", filepath.Join(t.TempDir(), "usage.db"), nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.PersistEvent(monitoring.Event{
		Type:         monitoring.EventRequestCompleted,
		Provider:     ai.ProviderGemini,
		RequestID:    "req-1",
		ResponseTime: 1200 * time.Millisecond,
	}))

	h := NewUsageHandler(store, true, zap.NewNop())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ai/usage?limit=10", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	data, err := json.Marshal(decodeResponse(t, rec).Data)
	require.NoError(t, err)
	var logs []usagelog.RequestLog
	require.NoError(t, json.Unmarshal(data, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "req-1", logs[0].RequestID)
	assert.Equal(t, "completed", logs[0].Status)
}
