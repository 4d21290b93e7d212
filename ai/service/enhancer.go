package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gaesaju/gaesaju/ai"
	"github.com/gaesaju/gaesaju/ai/cache"
)

// Enhancer is the top of the interpretation pipeline: validate, consult the
// cache, build the prompt, call the manager, cache the result.
type Enhancer struct {
	manager *Manager
	cache   *cache.ResponseCache
	prompts *PromptBuilder
	logger  *zap.Logger
}

// NewEnhancer wires the pipeline. cache may be nil to disable caching.
func NewEnhancer(manager *Manager, cache *cache.ResponseCache, logger *zap.Logger) *Enhancer {
	return &Enhancer{
		manager: manager,
		cache:   cache,
		prompts: NewPromptBuilder(),
		logger:  logger,
	}
}

// EnhanceInterpretation produces the personalized interpretation for a
// computed chart. An empty or missing chart is rejected before any cache or
// provider work happens. Identical in-flight requests are deduplicated so a
// burst of equal misses costs one provider call.
func (e *Enhancer) EnhanceInterpretation(ctx context.Context, req *ai.InterpretationRequest) (*ai.InterpretationResponse, error) {
	if req == nil || req.SajuResult.IsEmpty() {
		return nil, ai.NewError(ai.ErrValidationInvalid, "sajuResult is required").
			WithDetails(map[string]any{"reason": "MISSING_SAJU_RESULT"})
	}

	if e.cache == nil {
		return e.enhance(ctx, req)
	}

	resp, cached, err := e.cache.GetOrCompute(ctx, req, func() (*ai.InterpretationResponse, error) {
		return e.enhance(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if cached {
		e.logger.Debug("interpretation served from cache")
	}
	return resp, nil
}

func (e *Enhancer) enhance(ctx context.Context, req *ai.InterpretationRequest) (*ai.InterpretationResponse, error) {
	start := time.Now()
	presp, err := e.manager.Request(ctx, ai.ProviderDefault, e.prompts.Build(req))
	if err != nil {
		return nil, err
	}

	return &ai.InterpretationResponse{
		Enhanced: presp.Sections,
		Metadata: ai.ResponseMetadata{
			Model:            presp.Model,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		},
	}, nil
}

// CacheStats exposes the cache snapshot for the diagnostic route. Returns a
// zero snapshot when caching is disabled.
func (e *Enhancer) CacheStats() cache.Stats {
	if e.cache == nil {
		return cache.Stats{}
	}
	return e.cache.Stats()
}
