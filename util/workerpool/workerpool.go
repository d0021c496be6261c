package workerpool

import (
	"context"
	"sync"
	"time"
)

// Task represents a unit of work to be executed by the worker pool
type Task func(ctx context.Context) error

// Result is the outcome of one task. Index is the task's position in the
// slice passed to Run.
type Result struct {
	Index    int
	Err      error
	Duration time.Duration
}

// WorkerPool runs batches of tasks on a fixed number of goroutines. The
// streamgraphctl burst commands use it to issue many requests with bounded
// concurrency.
type WorkerPool struct {
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
}

// New creates a new worker pool with the specified number of workers.
// The provided context will be used as the base context for every task.
func New(ctx context.Context, numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run executes tasks and returns their results in task order. Tasks not
// started when the pool is stopped report the context error.
func (wp *WorkerPool) Run(tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	results := make([]Result, len(tasks))
	indexes := make(chan int)

	workers := wp.numWorkers
	if workers > len(tasks) {
		workers = len(tasks)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				if err := wp.ctx.Err(); err != nil {
					results[i] = Result{Index: i, Err: err}
					continue
				}
				start := time.Now()
				err := tasks[i](wp.ctx)
				results[i] = Result{Index: i, Err: err, Duration: time.Since(start)}
			}
		}()
	}

	next := 0
feed:
	for ; next < len(tasks); next++ {
		select {
		case indexes <- next:
		case <-wp.ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	for i := next; i < len(tasks); i++ {
		results[i] = Result{Index: i, Err: wp.ctx.Err()}
	}
	return results
}

// Stop cancels the context passed to running tasks and prevents further
// tasks from starting.
func (wp *WorkerPool) Stop() {
	wp.cancel()
}

// Failed counts results carrying an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
