package ai

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/docufind/backend/internal/config"
	"github.com/sony/gobreaker/v2"
)

// Executor wraps model-service calls with retry-with-backoff and a circuit
// breaker per operation. The audit-log write stays with the caller; this
// layer only decides whether and when to re-issue the HTTP call.
type Executor struct {
	cfg config.AIConfig

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

// NewExecutor builds an executor from the AI configuration.
func NewExecutor(cfg config.AIConfig) *Executor {
	return &Executor{
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// Execute runs fn through the operation's circuit breaker, retrying transient
// failures with exponential backoff.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	breaker := e.circuitBreaker(operation)
	_, err := breaker.Execute(func() (any, error) {
		return nil, e.executeWithRetry(ctx, operation, fn)
	})
	return err
}

func (e *Executor) executeWithRetry(ctx context.Context, operation string, fn func(context.Context) error) error {
	maxAttempts := e.cfg.RetryMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	backoff := e.cfg.RetryInitialBackoff

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}

		if !isTransient(err) || attempt == maxAttempts {
			return err
		}

		wait := backoff
		if e.cfg.RetryMaxBackoff > 0 && wait > e.cfg.RetryMaxBackoff {
			wait = e.cfg.RetryMaxBackoff
		}
		log.Printf("Retrying %s after transient failure (attempt %d/%d, backoff %v): %v",
			operation, attempt, maxAttempts, wait, err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		backoff *= 2
	}

	return err
}

func (e *Executor) circuitBreaker(operation string) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[operation]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:    operation,
		Timeout: e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= e.cfg.BreakerFailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from.String(), to.String())
		},
	}

	breaker := gobreaker.NewCircuitBreaker[any](settings)
	e.breakers[operation] = breaker
	return breaker
}

// IsCircuitOpen reports whether the error came from an open breaker rather
// than the model service itself.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
