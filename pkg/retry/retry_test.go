package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"jiradataset/pkg/config"
	errs "jiradataset/pkg/errors"
	"jiradataset/pkg/logger"
	"jiradataset/pkg/metrics"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestExecutor(maxRetries int) (*Executor, *sleepRecorder) {
	rec := &sleepRecorder{}
	return &Executor{
		MaxRetries: maxRetries,
		Backoff:    DefaultPolicy(),
		Sleep:      rec.sleep,
		Logger:     logger.NewTestLogger(),
	}, rec
}

func TestPolicyDelay(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		attempt  int
		class    errs.Class
		expected time.Duration
	}{
		{"first attempt", 0, errs.ClassServerError, 2 * time.Second},
		{"second attempt", 1, errs.ClassTransport, 4 * time.Second},
		{"third attempt", 2, errs.ClassMalformedResponse, 8 * time.Second},
		{"capped", 5, errs.ClassServerError, 60 * time.Second},
		{"far beyond cap", 400, errs.ClassServerError, 60 * time.Second},
		{"rate limited first attempt", 0, errs.ClassRateLimited, 60 * time.Second},
		{"rate limited later attempt", 3, errs.ClassRateLimited, 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.Delay(tt.attempt, tt.class))
		})
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.RetryConfig{InitialDelay: time.Second, MaxDelay: 10 * time.Second, Base: 3})
	assert.Equal(t, time.Second, p.Delay(0, errs.ClassServerError))
	assert.Equal(t, 3*time.Second, p.Delay(1, errs.ClassServerError))
	assert.Equal(t, 9*time.Second, p.Delay(2, errs.ClassServerError))
	assert.Equal(t, 10*time.Second, p.Delay(3, errs.ClassServerError))

	assert.Equal(t, DefaultPolicy(), PolicyFromConfig(config.RetryConfig{}))
}

func TestDoSucceedsFirstTry(t *testing.T) {
	exec, rec := newTestExecutor(3)

	calls := 0
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestDoRecoversAfterTransientFailures(t *testing.T) {
	exec, rec := newTestExecutor(3)

	calls := 0
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errs.New(errs.ClassServerError, 503, "unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.delays)
}

func TestDoExhaustsBudget(t *testing.T) {
	exec, rec := newTestExecutor(3)

	calls := 0
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errs.New(errs.ClassTransport, 0, "connection refused")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, errs.ClassTransport, errs.ClassOf(err))
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, rec.delays)
}

func TestDoRecordsRetryMetrics(t *testing.T) {
	class := string(errs.ClassMalformedResponse)
	retries := testutil.ToFloat64(metrics.RetriesTotal.WithLabelValues(class))
	exhausted := testutil.ToFloat64(metrics.RetryExhaustedTotal.WithLabelValues(class))

	exec, _ := newTestExecutor(2)
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		return errs.New(errs.ClassMalformedResponse, 200, "empty body")
	})

	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, retries+2, testutil.ToFloat64(metrics.RetriesTotal.WithLabelValues(class)))
	assert.Equal(t, exhausted+1, testutil.ToFloat64(metrics.RetryExhaustedTotal.WithLabelValues(class)))
}

func TestDoZeroRetries(t *testing.T) {
	exec, rec := newTestExecutor(0)

	calls := 0
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errs.New(errs.ClassServerError, 500, "boom")
	})

	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestDoFatalShortCircuits(t *testing.T) {
	exec, rec := newTestExecutor(3)

	fatal := errs.New(errs.ClassFatal, 404, "project not found")
	calls := 0
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return fatal
	})

	assert.Equal(t, fatal, err)
	assert.NotErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestDoUnclassifiedErrorIsFatal(t *testing.T) {
	exec, rec := newTestExecutor(3)

	calls := 0
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("unexpected")
	})

	assert.EqualError(t, err, "unexpected")
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestDoRateLimitedWaitsMaxDelay(t *testing.T) {
	exec, rec := newTestExecutor(2)

	_ = exec.Do(context.Background(), func(ctx context.Context) error {
		return errs.New(errs.ClassRateLimited, 429, "slow down")
	})

	assert.Equal(t, []time.Duration{60 * time.Second, 60 * time.Second}, rec.delays)
}

func TestDoCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &Executor{
		MaxRetries: 3,
		Backoff:    DefaultPolicy(),
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	calls := 0
	err := exec.Do(ctx, func(ctx context.Context) error {
		calls++
		return errs.New(errs.ClassServerError, 502, "bad gateway")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoCancelledBeforeStart(t *testing.T) {
	exec, _ := newTestExecutor(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := exec.Do(ctx, func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestOnRetryCallback(t *testing.T) {
	exec, _ := newTestExecutor(2)

	var attempts []int
	exec.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	_ = exec.Do(context.Background(), func(ctx context.Context) error {
		return errs.New(errs.ClassMalformedResponse, 200, "not json")
	})

	assert.Equal(t, []int{0, 1}, attempts)
}

func TestDoWithResult(t *testing.T) {
	exec, _ := newTestExecutor(3)

	calls := 0
	result, err := DoWithResult(context.Background(), exec, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errs.New(errs.ClassTransport, 0, "reset")
		}
		return "page", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "page", result)
	assert.Equal(t, 2, calls)
}

func TestNewExecutorLogsRetries(t *testing.T) {
	tl := logger.NewTestLogger()
	exec := NewExecutor(config.RetryConfig{MaxRetries: 1}, tl)
	exec.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	err := exec.Do(context.Background(), func(ctx context.Context) error {
		return errs.New(errs.ClassServerError, 500, "boom")
	})

	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.True(t, tl.HasMessage("retrying operation"))
	assert.True(t, tl.HasMessage("max retry attempts exceeded"))
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
