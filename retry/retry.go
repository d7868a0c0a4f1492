// Package retry wraps LLM provider calls with classified retry and backoff.
//
// Transient failures (rate limits, timeouts, 5xx) are retried with
// exponential backoff and jitter up to a finite attempt budget; permanent
// failures (auth, malformed requests or responses) surface immediately.
// Every backoff sleep is announced with a retry_error event so observers can
// distinguish "never worked" from "gave up after N rate-limit retries".
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/parleylabs/gauntlet/events"
	"github.com/parleylabs/gauntlet/logger"
	"github.com/parleylabs/gauntlet/metrics"
	"github.com/parleylabs/gauntlet/providers"
)

// ErrExhaustedRetries wraps the final transient error once the attempt
// budget is spent.
var ErrExhaustedRetries = errors.New("exhausted retries")

// RetryErrorData is the payload of a retry_error event.
type RetryErrorData struct {
	ErrorType   providers.ErrorType `json:"error_type"`
	Attempt     int                 `json:"attempt"`
	MaxAttempts int                 `json:"max_attempts"`
	RetryAfter  time.Duration       `json:"retry_after"`
}

// Controller holds the retry policy for one test execution. The attempt
// budget is always finite and configured per run.
type Controller struct {
	maxAttempts     int
	initialInterval time.Duration
	maxInterval     time.Duration
	emitter         *events.Emitter
}

// Option configures a Controller.
type Option func(*Controller)

// WithInitialInterval sets the first backoff delay. Default 500ms.
func WithInitialInterval(d time.Duration) Option {
	return func(c *Controller) { c.initialInterval = d }
}

// WithMaxInterval caps the backoff delay. Default 30s.
func WithMaxInterval(d time.Duration) Option {
	return func(c *Controller) { c.maxInterval = d }
}

// WithEmitter attaches an event emitter for retry_error events.
func WithEmitter(e *events.Emitter) Option {
	return func(c *Controller) { c.emitter = e }
}

// New creates a Controller with the given attempt budget.
func New(maxAttempts int, opts ...Option) *Controller {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	c := &Controller{
		maxAttempts:     maxAttempts,
		initialInterval: 500 * time.Millisecond,
		maxInterval:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxAttempts returns the configured attempt budget.
func (c *Controller) MaxAttempts() int { return c.maxAttempts }

// Do invokes op, retrying transient failures with exponential backoff until
// the controller's attempt budget is spent. Permanent failures and context
// cancellation return immediately. On budget exhaustion the returned error
// wraps both ErrExhaustedRetries and the last provider error.
func Do[T any](ctx context.Context, c *Controller, op func(context.Context) (T, error)) (T, error) {
	var zero T

	attempt := 0
	operation := func() (T, error) {
		v, err := op(ctx)
		if err != nil {
			if !providers.IsTransient(err) {
				return zero, backoff.Permanent(err)
			}
			return zero, err
		}
		return v, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.initialInterval
	expo.MaxInterval = c.maxInterval

	notify := func(err error, delay time.Duration) {
		attempt++
		metrics.ProviderRetries.Inc()
		logger.Warn("transient provider failure, backing off",
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"retry_after", delay,
			"error", err)
		c.emitter.Emit(events.EventRetryError, RetryErrorData{
			ErrorType:   providers.ErrType(err),
			Attempt:     attempt,
			MaxAttempts: c.maxAttempts,
			RetryAfter:  delay,
		})
	}

	v, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(c.maxAttempts)),
		backoff.WithNotify(notify),
	)
	if err != nil {
		if providers.IsTransient(err) && attempt >= c.maxAttempts-1 {
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhaustedRetries, c.maxAttempts, err)
		}
		return zero, err
	}
	return v, nil
}
