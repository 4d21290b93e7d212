package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/gaesaju/gaesaju/ai"
	"github.com/gaesaju/gaesaju/ai/service"
)

// EnhanceHandler serves the interpretation endpoint. POST runs the
// pipeline; GET returns cache statistics and is restricted to development.
type EnhanceHandler struct {
	enhancer    *service.Enhancer
	development bool
	logger      *zap.Logger
}

// NewEnhanceHandler creates the handler. development gates the GET route.
func NewEnhanceHandler(enhancer *service.Enhancer, development bool, logger *zap.Logger) *EnhanceHandler {
	return &EnhanceHandler{
		enhancer:    enhancer,
		development: development,
		logger:      logger.With(zap.String("handler", "enhance")),
	}
}

func (h *EnhanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.enhance(w, r)
	case http.MethodGet:
		h.cacheStats(w, r)
	default:
		WriteErrorMessage(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (h *EnhanceHandler) enhance(w http.ResponseWriter, r *http.Request) {
	var req ai.InterpretationRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if req.SajuResult.IsEmpty() {
		WriteErrorMessage(w, http.StatusBadRequest, "MISSING_SAJU_RESULT", "sajuResult is required")
		return
	}

	resp, err := h.enhancer.EnhanceInterpretation(r.Context(), &req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, resp)
}

// cacheStats is a diagnostic route; outside development it refuses rather
// than hide, so misrouted traffic is visible.
func (h *EnhanceHandler) cacheStats(w http.ResponseWriter, _ *http.Request) {
	if !h.development {
		WriteErrorMessage(w, http.StatusForbidden, "FORBIDDEN", "cache statistics are only available in development")
		return
	}
	WriteSuccess(w, h.enhancer.CacheStats())
}
