// Package retry wraps fetch attempts with class-aware exponential backoff.
//
// Every failure carries an errors.Class. Transport, rate-limit, server and
// malformed-response failures are retried; anything else is returned at once.
// With MaxRetries R an operation is attempted at most R+1 times. The wait after
// failed attempt k (0-based) is min(InitialDelay*Base^k, MaxDelay), except that
// rate-limited failures always wait MaxDelay.
//
// Basic usage:
//
//	exec := retry.NewExecutor(cfg.Retry, log)
//	env, err := retry.DoWithResult(ctx, exec, func(ctx context.Context) (jira.Envelope, error) {
//		return client.Search(ctx, params)
//	})
//	if errors.Is(err, retry.ErrRetryExhausted) {
//		// every attempt failed with a retryable class
//	}
//
// Tests replace Executor.Sleep to record delays without waiting.
package retry
