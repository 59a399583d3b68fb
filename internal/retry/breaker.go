package retry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures the circuit breaker placed around a whole retried
// operation.
type BreakerConfig struct {
	Enabled          bool
	MinRequests      uint32
	FailureRatio     float64
	OpenTimeout      time.Duration
	HalfOpenMaxCalls uint32
}

// DefaultBreakerConfig returns conservative breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:          true,
		MinRequests:      3,
		FailureRatio:     1.0,
		OpenTimeout:      5 * time.Minute,
		HalfOpenMaxCalls: 1,
	}
}

func (c BreakerConfig) normalize() BreakerConfig {
	out := c
	def := DefaultBreakerConfig()
	if out.MinRequests == 0 {
		out.MinRequests = def.MinRequests
	}
	if out.FailureRatio <= 0 || out.FailureRatio > 1 {
		out.FailureRatio = def.FailureRatio
	}
	if out.OpenTimeout <= 0 {
		out.OpenTimeout = def.OpenTimeout
	}
	if out.HalfOpenMaxCalls == 0 {
		out.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return out
}

// Executor applies a Policy and, when enabled, a per-operation breaker.
type Executor struct {
	policy  Policy
	breaker BreakerConfig

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[int]
}

// NewExecutor creates an executor.
func NewExecutor(p Policy, b BreakerConfig) *Executor {
	return &Executor{
		policy:   p.normalize(),
		breaker:  b.normalize(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[int]),
	}
}

// Policy returns the normalized retry policy.
func (e *Executor) Policy() Policy { return e.policy }

// Execute runs fn under the retry policy. When the breaker for operation is
// open, fn is not called and zero attempts are reported.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(ctx context.Context, attempt int) error) (int, error) {
	if !e.breaker.Enabled {
		return Do(ctx, e.policy, operation, fn)
	}

	cb := e.circuitBreaker(operation)
	attempts, err := cb.Execute(func() (int, error) {
		return Do(ctx, e.policy, operation, fn)
	})
	return attempts, err
}

func (e *Executor) circuitBreaker(operation string) *gobreaker.CircuitBreaker[int] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[operation]; ok {
		return cb
	}

	cfg := e.breaker
	classify := e.policy.Classify
	settings := gobreaker.Settings{
		Name:        operation,
		MaxRequests: cfg.HalfOpenMaxCalls,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return !classify(err).RecordFailure
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"operation": name,
				"from":      from.String(),
				"to":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	cb := gobreaker.NewCircuitBreaker[int](settings)
	e.breakers[operation] = cb
	return cb
}

// IsCircuitOpen reports whether err came from an open or saturated breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
