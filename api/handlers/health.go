package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/gaesaju/gaesaju/ai"
	"github.com/gaesaju/gaesaju/ai/service"
)

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Status          string                 `json:"status"` // healthy or degraded
	DefaultProvider ai.ProviderID          `json:"defaultProvider"`
	Providers       map[ai.ProviderID]bool `json:"providers"`
	Version         string                 `json:"version"`
}

// HealthHandler reports per-provider availability. The endpoint always
// answers 200; "degraded" in the body means at least one configured
// provider is unavailable.
type HealthHandler struct {
	manager *service.Manager
	version string
	logger  *zap.Logger
}

// NewHealthHandler creates the handler.
func NewHealthHandler(manager *service.Manager, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		manager: manager,
		version: version,
		logger:  logger.With(zap.String("handler", "health")),
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}

	providers := h.manager.HealthStatus()

	status := "healthy"
	for _, healthy := range providers {
		if !healthy {
			status = "degraded"
			break
		}
	}

	WriteSuccess(w, HealthStatus{
		Status:          status,
		DefaultProvider: h.manager.DefaultProvider(),
		Providers:       providers,
		Version:         h.version,
	})
}
