// Package workerpool runs per-project jobs of the offline stages on a fixed
// number of goroutines.
package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"jiradataset/pkg/logger"
)

// Job is one project to process
type Job struct {
	Project string
}

// Result is the outcome of a job
type Result struct {
	Job      Job
	Count    int
	Error    error
	Duration time.Duration
}

// Processor handles one project and returns the number of records produced
type Processor interface {
	Process(ctx context.Context, project string) (int, error)
}

// ProcessorFunc adapts a function to Processor
type ProcessorFunc func(ctx context.Context, project string) (int, error)

// Process implements Processor
func (f ProcessorFunc) Process(ctx context.Context, project string) (int, error) {
	return f(ctx, project)
}

// WorkerPool manages concurrent workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	processor   Processor
	logger      logger.Logger
}

// NewWorkerPool creates a new worker pool bound to ctx
func NewWorkerPool(ctx context.Context, numWorkers int, processor Processor, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		processor:   processor,
		logger:      log,
	}
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for queued jobs to finish and closes Results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Debug("Worker pool stopped")
}

// Submit adds a job to the queue
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		var result Result
		if err := wp.ctx.Err(); err != nil {
			result = Result{Job: job, Error: err}
		} else {
			result = wp.processJob(job, id)
		}
		wp.resultQueue <- result
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) (result Result) {
	start := time.Now()
	result.Job = job

	defer func() {
		if r := recover(); r != nil {
			wp.logger.ErrorWithFields("Worker recovered from panic", map[string]interface{}{
				"worker_id": workerID,
				"project":   job.Project,
				"panic":     fmt.Sprint(r),
				"stack":     string(debug.Stack()),
			})
			result.Count = 0
			result.Error = fmt.Errorf("processing %s panicked: %v", job.Project, r)
		}
		result.Duration = time.Since(start)
	}()

	result.Count, result.Error = wp.processor.Process(wp.ctx, job.Project)
	if result.Error != nil {
		wp.logger.WithError(result.Error).ErrorWithFields("Worker failed to process project", map[string]interface{}{
			"worker_id": workerID,
			"project":   job.Project,
		})
	}
	return result
}

// Run processes every project and returns results in input order
func Run(ctx context.Context, numWorkers int, projects []string, processor Processor, log logger.Logger) []Result {
	pool := NewWorkerPool(ctx, numWorkers, processor, log)
	pool.Start()

	collected := make(map[string]Result, len(projects))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range pool.Results() {
			collected[r.Job.Project] = r
		}
	}()

	rejected := make(map[string]Result)
	for _, project := range projects {
		if err := pool.Submit(Job{Project: project}); err != nil {
			rejected[project] = Result{Job: Job{Project: project}, Error: err}
		}
	}
	pool.Stop()
	<-done

	for project, r := range rejected {
		collected[project] = r
	}

	results := make([]Result, 0, len(projects))
	for _, project := range projects {
		results = append(results, collected[project])
	}
	return results
}
