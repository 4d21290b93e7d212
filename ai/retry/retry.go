package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/gaesaju/gaesaju/ai"
	"github.com/gaesaju/gaesaju/ai/circuitbreaker"
)

// Strategy defines the bounded retry policy for one provider.
type Strategy struct {
	// MaxRetries is the number of retries after the initial attempt, so an
	// always-failing retryable operation runs MaxRetries+1 times total.
	MaxRetries int

	// InitialDelay seeds the exponential backoff.
	InitialDelay time.Duration

	// MaxDelay caps the backoff.
	MaxDelay time.Duration

	// Multiplier grows the delay per attempt.
	Multiplier float64

	// Jitter adds a random factor so concurrent clients do not retry in
	// lockstep.
	Jitter bool

	// OnRetry is invoked before each retry wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultStrategy returns defaults suitable for paid LLM calls.
func DefaultStrategy() *Strategy {
	return &Strategy{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Executor wraps provider operations for one provider with the retry policy
// and that provider's circuit breaker. Only errors whose code is retryable
// are attempted again; everything else is rethrown immediately and
// unchanged.
type Executor struct {
	provider ProviderID
	strategy *Strategy
	breaker  *circuitbreaker.Breaker
	logger   *zap.Logger
}

// ProviderID aliases ai.ProviderID for signature brevity within the package.
type ProviderID = ai.ProviderID

// NewExecutor creates an executor bound to one provider and its breaker.
func NewExecutor(provider ProviderID, strategy *Strategy, breaker *circuitbreaker.Breaker, logger *zap.Logger) *Executor {
	if strategy == nil {
		strategy = DefaultStrategy()
	}
	if strategy.MaxRetries < 0 {
		strategy.MaxRetries = 0
	}
	if strategy.InitialDelay <= 0 {
		strategy.InitialDelay = 500 * time.Millisecond
	}
	if strategy.MaxDelay <= 0 {
		strategy.MaxDelay = 8 * time.Second
	}
	if strategy.Multiplier < 1.0 {
		strategy.Multiplier = 2.0
	}

	return &Executor{
		provider: provider,
		strategy: strategy,
		breaker:  breaker,
		logger:   logger,
	}
}

// Execute runs op under the retry policy.
func (e *Executor) Execute(ctx context.Context, op func() error) error {
	_, err := ExecuteWithResult(ctx, e, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

// ExecuteWithResult runs op under e's retry policy and returns its result.
// Before every attempt the provider's breaker is consulted; an open breaker
// fails fast with SERVER_UNAVAILABLE without invoking op.
func ExecuteWithResult[T any](ctx context.Context, e *Executor, op func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= e.strategy.MaxRetries+1; attempt++ {
		if attempt > 1 {
			delay := e.backoffDelay(attempt)

			e.logger.Debug("retrying provider call",
				zap.String("provider", string(e.provider)),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", e.strategy.MaxRetries+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if e.strategy.OnRetry != nil {
				e.strategy.OnRetry(attempt, lastErr, delay)
			}

			select {
			case <-ctx.Done():
				return zero, ai.NewError(ai.ErrTimeout, "retry canceled").
					WithProvider(e.provider).WithCause(ctx.Err())
			case <-time.After(delay):
			}
		}

		if e.breaker != nil && !e.breaker.CanExecute() {
			return zero, ai.NewError(ai.ErrServerUnavailable,
				fmt.Sprintf("circuit breaker open for provider %s", e.provider)).
				WithProvider(e.provider)
		}

		result, err := op()
		if err == nil {
			if attempt > 1 {
				e.logger.Info("provider call succeeded after retry",
					zap.String("provider", string(e.provider)),
					zap.Int("attempt", attempt),
				)
			}
			return result, nil
		}

		lastErr = err
		if !ai.IsRetryable(err) {
			return zero, err
		}
	}

	e.logger.Warn("retries exhausted",
		zap.String("provider", string(e.provider)),
		zap.Int("attempts", e.strategy.MaxRetries+1),
		zap.Error(lastErr),
	)

	// The last error is rethrown unchanged so callers still see the
	// original code and provider.
	return zero, lastErr
}

// backoffDelay computes the wait before the given attempt (attempt >= 2):
// initial * multiplier^(attempt-2), capped at MaxDelay, with optional ±25%
// jitter.
func (e *Executor) backoffDelay(attempt int) time.Duration {
	delay := float64(e.strategy.InitialDelay) * math.Pow(e.strategy.Multiplier, float64(attempt-2))

	if delay > float64(e.strategy.MaxDelay) {
		delay = float64(e.strategy.MaxDelay)
	}

	if e.strategy.Jitter {
		jitter := delay * 0.25
		delay = delay + (rand.Float64()*2-1)*jitter
	}

	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}
