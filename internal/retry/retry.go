// Package retry runs an operation a bounded number of times with a fixed
// delay between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Classification tells the executor what to do with an error.
type Classification struct {
	Retryable     bool
	RecordFailure bool
}

// Classifier maps an error to a Classification.
type Classifier func(err error) Classification

// AlwaysRetry treats every error as transient.
func AlwaysRetry(error) Classification {
	return Classification{Retryable: true, RecordFailure: true}
}

// Policy bounds the attempts of one operation.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Classify    Classifier
}

func (p Policy) normalize() Policy {
	out := p
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 1
	}
	if out.Delay < 0 {
		out.Delay = 0
	}
	if out.Classify == nil {
		out.Classify = AlwaysRetry
	}
	return out
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Operation, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do calls fn until it succeeds, returns a non-retryable error, the context
// ends or the attempts run out. It reports how many attempts were made.
func Do(ctx context.Context, p Policy, operation string, fn func(ctx context.Context, attempt int) error) (int, error) {
	if fn == nil {
		return 0, errors.New("retry: operation callback is nil")
	}
	p = p.normalize()
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return attempt - 1, lastErr
			}
			return attempt - 1, err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if !p.Classify(err).Retryable {
			return attempt, err
		}
		if attempt == p.MaxAttempts {
			break
		}

		logrus.WithFields(logrus.Fields{
			"operation":    op,
			"attempt":      attempt,
			"max_attempts": p.MaxAttempts,
			"delay":        p.Delay.String(),
		}).Warnf("Attempt failed: %v", err)

		if p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempt, lastErr
			case <-timer.C:
			}
		}
	}

	return p.MaxAttempts, &ExhaustedError{Operation: op, Attempts: p.MaxAttempts, Err: lastErr}
}
