package executor

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	appErrors "github.com/hardikgo/crossdb/internal/errors"
	"github.com/hardikgo/crossdb/pkg/planmodel"
)

// circuitBreakers lazily builds one gobreaker.CircuitBreaker per
// backend kind, grounded on the teacher's own circuit-breaker shape
// (`pkg/orchestration/dependency/circuit_breaker_test.go`:
// NewCircuitBreaker(name, threshold, resetTimeout) / Call / GetState),
// using the real third-party breaker instead of the teacher's
// hand-rolled one.
type circuitBreakers struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
	logger   *zap.Logger
}

func newCircuitBreakers(logger *zap.Logger) *circuitBreakers {
	return &circuitBreakers{breakers: map[string]*gobreaker.CircuitBreaker{}, logger: logger}
}

func (c *circuitBreakers) get(kind string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok := c.breakers[kind]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        kind,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change",
				zap.String("backend", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	c.breakers[kind] = cb
	return cb
}

// executeWithRetry wraps a single op.Execute call with a per-operation
// timeout, the backend's circuit breaker, and exponential backoff
// retry for retryable error kinds (`internal/errors.ErrorType.Retryable`),
// up to cfg.MaxRetryAttempts total attempts.
func (e *Executor) executeWithRetry(ctx context.Context, op *planmodel.Operation, kind string) ([]map[string]any, error) {
	cb := e.breakers.get(kind)
	maxAttempts := e.cfg.MaxRetryAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, e.operationTimeout())
		raw, err := cb.Execute(func() (interface{}, error) {
			return e.run(opCtx, op)
		})
		cancel()

		if err == nil {
			rows, _ := raw.([]map[string]any)
			return rows, nil
		}
		lastErr = err

		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			lastErr = appErrors.Wrap(err, appErrors.ErrorTypeAdapterConnection, "backend circuit open")
		}
		if !appErrors.GetType(lastErr).Retryable() {
			return nil, lastErr
		}
		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-time.After(retryBackoff(attempt)):
		case <-ctx.Done():
			return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrorTypeTimeout, "canceled during retry backoff")
		}
	}
	return nil, lastErr
}

// retryBackoff is a plain exponential backoff (100ms, 200ms, 400ms...)
// capped at 2s; the source has no equivalent (`_execute_with_semaphore`
// does not retry at all), so this is a supplemented behavior named in
// the design ledger rather than a direct port.
func retryBackoff(attempt int) time.Duration {
	d := 100 * time.Millisecond
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= 2*time.Second {
			return 2 * time.Second
		}
	}
	return d
}
