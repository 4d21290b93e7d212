package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/gaesaju/gaesaju/internal/usagelog"
)

// UsageHandler serves the persisted request-log history. Development-only,
// and answers 404 when persistence is not configured.
type UsageHandler struct {
	store       *usagelog.Store
	development bool
	logger      *zap.Logger
}

// NewUsageHandler creates the handler. store may be nil when the database
// is disabled.
func NewUsageHandler(store *usagelog.Store, development bool, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{
		store:       store,
		development: development,
		logger:      logger.With(zap.String("handler", "usage")),
	}
}

func (h *UsageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if !h.development {
		WriteErrorMessage(w, http.StatusForbidden, "FORBIDDEN", "usage logs are only available in development")
		return
	}
	if h.store == nil {
		WriteErrorMessage(w, http.StatusNotFound, "NOT_FOUND", "request log persistence is disabled")
		return
	}

	logs, err := h.store.Recent(limitParam(r))
	if err != nil {
		h.logger.Error("request log query failed", zap.Error(err))
		WriteErrorMessage(w, http.StatusInternalServerError, "SERVER_INTERNAL_ERROR", "failed to read request logs")
		return
	}
	WriteSuccess(w, logs)
}
