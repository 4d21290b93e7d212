package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/gaesaju/gaesaju/ai"
	"github.com/gaesaju/gaesaju/ai/monitoring"
)

const defaultEventLimit = 50

// MonitoringHandler exposes the in-memory monitoring views. All routes are
// development-only diagnostics.
type MonitoringHandler struct {
	monitor     *monitoring.Monitor
	development bool
	logger      *zap.Logger
}

// NewMonitoringHandler creates the handler.
func NewMonitoringHandler(monitor *monitoring.Monitor, development bool, logger *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{
		monitor:     monitor,
		development: development,
		logger:      logger.With(zap.String("handler", "monitoring")),
	}
}

// ServeHTTP routes /monitoring/{metrics,events,hourly,overview}.
func (h *MonitoringHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if !h.development {
		WriteErrorMessage(w, http.StatusForbidden, "FORBIDDEN", "monitoring endpoints are only available in development")
		return
	}

	switch view(r.URL.Path) {
	case "metrics":
		WriteSuccess(w, h.monitor.GetMetrics(providerParam(r)))
	case "events":
		WriteSuccess(w, h.monitor.GetRecentEvents(providerParam(r), limitParam(r)))
	case "hourly":
		WriteSuccess(w, h.monitor.GetHourlyStats(providerParam(r)))
	case "overview":
		WriteSuccess(w, h.monitor.GetSystemOverview())
	default:
		WriteErrorMessage(w, http.StatusNotFound, "NOT_FOUND", "unknown monitoring view")
	}
}

func view(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

func providerParam(r *http.Request) ai.ProviderID {
	return ai.ProviderID(r.URL.Query().Get("provider"))
}

func limitParam(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultEventLimit
}
