package circuitbreaker

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// State of the breaker.
type State int

const (
	// StateClosed allows all calls (normal operation).
	StateClosed State = iota
	// StateOpen rejects all calls until the reset timeout elapses.
	StateOpen
	// StateHalfOpen admits probing calls to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config tunes a breaker instance.
type Config struct {
	// Threshold is the failure count at which the breaker opens.
	Threshold int

	// ResetTimeout is the cool-down before an open breaker admits a probe.
	ResetTimeout time.Duration

	// Eligible decides whether a failure counts toward Threshold. A nil
	// Eligible counts every failure.
	Eligible func(err error) bool

	// OnStateChange is invoked synchronously on every transition.
	OnStateChange func(from, to State)
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		Threshold:    5,
		ResetTimeout: 60 * time.Second,
	}
}

// Breaker is a per-provider circuit breaker. Instances are independent:
// tripping one provider's breaker never affects another's. A Breaker lives
// for the process lifetime and is safe for concurrent use.
type Breaker struct {
	config *Config
	logger *zap.Logger

	mu              sync.Mutex
	state           State
	failureCount    int
	lastFailureTime time.Time

	now func() time.Time // swapped in tests
}

// New creates a closed breaker.
func New(config *Config, logger *zap.Logger) *Breaker {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Threshold <= 0 {
		config.Threshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 60 * time.Second
	}

	return &Breaker{
		config: config,
		logger: logger,
		state:  StateClosed,
		now:    time.Now,
	}
}

// CanExecute reports whether a call may proceed. In the open state it also
// performs the open -> half-open transition once the reset timeout has
// elapsed, admitting the probing call.
func (b *Breaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if b.now().Sub(b.lastFailureTime) >= b.config.ResetTimeout {
			b.setState(StateHalfOpen)
			b.logger.Info("circuit breaker half-open, probing recovery")
			return true
		}
		return false
	default:
		return false
	}
}

// RecordFailure counts a breaker-eligible failure and opens the breaker at
// the threshold. Non-eligible errors are ignored entirely.
func (b *Breaker) RecordFailure(err error) {
	if b.config.Eligible != nil && !b.config.Eligible(err) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = b.now()

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.config.Threshold {
			b.logger.Warn("circuit breaker opened",
				zap.Int("failure_count", b.failureCount),
				zap.Int("threshold", b.config.Threshold),
			)
			b.setState(StateOpen)
		}
	case StateHalfOpen:
		// Probe failed, back to open for another cool-down.
		b.logger.Warn("circuit breaker probe failed, reopening")
		b.setState(StateOpen)
	}
}

// RecordSuccess resets the failure count and closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	if b.state != StateClosed {
		b.logger.Info("circuit breaker closed",
			zap.String("from_state", b.state.String()),
		)
		b.setState(StateClosed)
	}
}

// State returns the current state without side effects.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount returns the current eligible-failure count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// LastFailureTime returns when the most recent eligible failure was
// recorded; zero if none.
func (b *Breaker) LastFailureTime() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastFailureTime
}

// setState must be called with the mutex held.
func (b *Breaker) setState(newState State) {
	oldState := b.state
	if oldState == newState {
		return
	}
	b.state = newState

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(oldState, newState)
	}
}
