package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jiradataset/pkg/config"
	errs "jiradataset/pkg/errors"
	"jiradataset/pkg/logger"
	"jiradataset/pkg/metrics"
)

// ErrRetryExhausted is returned once every attempt has failed with a
// retryable class. The last failure is wrapped alongside it.
var ErrRetryExhausted = errors.New("retry budget exhausted")

// Operation is a single attempt
type Operation func(ctx context.Context) error

// OperationWithResult is a single attempt that yields a value
type OperationWithResult[T any] func(ctx context.Context) (T, error)

// Executor runs an operation up to MaxRetries+1 times, sleeping between
// attempts according to Backoff. Fatal failures are returned immediately.
type Executor struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	// Backoff computes the wait between attempts
	Backoff Backoff
	// Sleep performs the wait; tests swap it for a recorder
	Sleep Sleeper
	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, delay time.Duration)
	// Logger for retry attempts
	Logger logger.Logger
}

// NewExecutor builds an executor from retry configuration
func NewExecutor(cfg config.RetryConfig, log logger.Logger) *Executor {
	if log == nil {
		log = logger.GetLogger()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Executor{
		MaxRetries: maxRetries,
		Backoff:    PolicyFromConfig(cfg),
		Sleep:      Wait,
		Logger:     log,
	}
}

// Do executes op with retry logic
func (e *Executor) Do(ctx context.Context, op Operation) error {
	sleep := e.Sleep
	if sleep == nil {
		sleep = Wait
	}
	backoff := e.Backoff
	if backoff == nil {
		backoff = DefaultPolicy()
	}

	var lastErr error
	for attempt := 0; attempt <= e.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			if attempt > 0 && e.Logger != nil {
				e.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt + 1,
				})
			}
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		lastErr = err
		class := errs.ClassOf(err)
		if !errs.IsRetryable(class) {
			if e.Logger != nil {
				e.Logger.WithError(err).DebugWithFields("error is not retryable", map[string]interface{}{
					"class": string(class),
				})
			}
			return err
		}
		if attempt == e.MaxRetries {
			break
		}

		delay := backoff.Delay(attempt, class)
		metrics.RetriesTotal.WithLabelValues(string(class)).Inc()
		metrics.RetryBackoffSeconds.WithLabelValues(string(class)).Observe(delay.Seconds())

		if e.OnRetry != nil {
			e.OnRetry(attempt, err, delay)
		}
		if e.Logger != nil {
			e.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":     attempt + 1,
				"class":       string(class),
				"error":       err.Error(),
				"delay_ms":    delay.Milliseconds(),
				"max_retries": e.MaxRetries,
			})
		}

		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}

	class := errs.ClassOf(lastErr)
	metrics.RetryExhaustedTotal.WithLabelValues(string(class)).Inc()
	if e.Logger != nil {
		e.Logger.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
			"attempts":   e.MaxRetries + 1,
			"class":      string(class),
			"last_error": lastErr.Error(),
		})
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, e.MaxRetries+1, lastErr)
}

// DoWithResult executes op with retry logic and returns its value
func DoWithResult[T any](ctx context.Context, e *Executor, op OperationWithResult[T]) (T, error) {
	var result T
	err := e.Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}
