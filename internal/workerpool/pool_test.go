package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"jiradataset/pkg/logger"
)

type mockProcessor struct {
	delay   time.Duration
	err     error
	calls   int32
	active  int32
	maxSeen int32
}

func (m *mockProcessor) Process(ctx context.Context, project string) (int, error) {
	atomic.AddInt32(&m.calls, 1)
	n := atomic.AddInt32(&m.active, 1)
	defer atomic.AddInt32(&m.active, -1)
	for {
		seen := atomic.LoadInt32(&m.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&m.maxSeen, seen, n) {
			break
		}
	}

	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return 0, m.err
	}
	return len(project), nil
}

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	proc := &mockProcessor{delay: 5 * time.Millisecond}
	pool := NewWorkerPool(context.Background(), 3, proc, logger.NewNopLogger())
	pool.Start()

	var results []Result
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for r := range pool.Results() {
			results = append(results, r)
		}
	}()

	numJobs := 10
	for i := 0; i < numJobs; i++ {
		require.NoError(t, pool.Submit(Job{Project: fmt.Sprintf("P%d", i)}))
	}
	pool.Stop()
	wg.Wait()

	assert.Len(t, results, numJobs)
	for _, r := range results {
		assert.NoError(t, r.Error)
		assert.Equal(t, len(r.Job.Project), r.Count)
	}
	assert.Equal(t, int32(numJobs), atomic.LoadInt32(&proc.calls))
}

func TestWorkerPoolWithErrors(t *testing.T) {
	proc := &mockProcessor{err: errors.New("read failed")}
	tl := logger.NewTestLogger()

	results := Run(context.Background(), 2, []string{"SPARK", "KAFKA"}, proc, tl)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.EqualError(t, r.Error, "read failed")
		assert.Zero(t, r.Count)
	}
	assert.True(t, tl.HasMessage("Worker failed to process project"))
}

func TestWorkerPoolConcurrency(t *testing.T) {
	proc := &mockProcessor{delay: 50 * time.Millisecond}

	start := time.Now()
	results := Run(context.Background(), 4, []string{"A", "B", "C", "D"}, proc, logger.NewNopLogger())
	elapsed := time.Since(start)

	assert.Len(t, results, 4)
	assert.Less(t, elapsed, 180*time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&proc.maxSeen), int32(4))
}

func TestRunPreservesInputOrder(t *testing.T) {
	proc := ProcessorFunc(func(ctx context.Context, project string) (int, error) {
		if project == "SLOW" {
			time.Sleep(20 * time.Millisecond)
		}
		return 1, nil
	})

	results := Run(context.Background(), 3, []string{"SLOW", "FAST1", "FAST2"}, proc, nil)

	require.Len(t, results, 3)
	assert.Equal(t, "SLOW", results[0].Job.Project)
	assert.Equal(t, "FAST1", results[1].Job.Project)
	assert.Equal(t, "FAST2", results[2].Job.Project)
}

func TestWorkerPoolRecoversFromPanic(t *testing.T) {
	proc := ProcessorFunc(func(ctx context.Context, project string) (int, error) {
		if project == "BAD" {
			panic("boom")
		}
		return 2, nil
	})

	results := Run(context.Background(), 2, []string{"GOOD", "BAD"}, proc, logger.NewNopLogger())

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Error)
	assert.Equal(t, 2, results[0].Count)
	assert.Error(t, results[1].Error)
	assert.Contains(t, results[1].Error.Error(), "panicked")
}

func TestWorkerPoolCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proc := &mockProcessor{}
	results := Run(ctx, 2, []string{"SPARK", "KAFKA"}, proc, logger.NewNopLogger())

	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Error, context.Canceled)
	}
	assert.Zero(t, atomic.LoadInt32(&proc.calls))
}
