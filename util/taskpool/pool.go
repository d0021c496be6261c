package taskpool

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed by the task pool
type Job func(ctx context.Context)

// DefaultQueueSize is the number of pending jobs buffered per key
const DefaultQueueSize = 64

// keyQueue manages jobs for a single key
type keyQueue struct {
	jobs   chan Job
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// TaskPool runs jobs serially per key and in parallel across keys.
//
// The explorer uses one key per render state observer: states reach each
// observer in publication order, while a slow observer only delays itself.
//
//	pool := NewTaskPool(0)
//	defer pool.Stop()
//
//	pool.Submit("sse-1", func(ctx context.Context) { ... })
//	pool.Submit("sse-2", func(ctx context.Context) { ... }) // runs in parallel
//	pool.Submit("sse-1", func(ctx context.Context) { ... }) // runs after the first sse-1 job
type TaskPool struct {
	mu        sync.Mutex
	queues    map[string]*keyQueue
	queueSize int
	ctx       context.Context
	cancel    context.CancelFunc
	stopped   bool
}

// NewTaskPool creates a new TaskPool. A queueSize of zero or less selects
// DefaultQueueSize.
func NewTaskPool(queueSize int) *TaskPool {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskPool{
		queues:    make(map[string]*keyQueue),
		queueSize: queueSize,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit adds a job to the queue for the specified key. It blocks while the
// key's queue is full and returns false if the pool or the key was stopped
// before the job could be queued.
func (tp *TaskPool) Submit(key string, job Job) bool {
	tp.mu.Lock()
	if tp.stopped {
		tp.mu.Unlock()
		return false
	}

	queue, exists := tp.queues[key]
	if !exists {
		queueCtx, queueCancel := context.WithCancel(tp.ctx)
		queue = &keyQueue{
			jobs:   make(chan Job, tp.queueSize),
			ctx:    queueCtx,
			cancel: queueCancel,
			done:   make(chan struct{}),
		}
		tp.queues[key] = queue
		go tp.worker(queue)
	}
	tp.mu.Unlock()

	select {
	case queue.jobs <- job:
		return true
	case <-queue.ctx.Done():
		return false
	}
}

// worker processes jobs for a single key until the key is removed or the
// pool stops.
func (tp *TaskPool) worker(queue *keyQueue) {
	defer close(queue.done)

	for {
		select {
		case <-queue.ctx.Done():
			return
		case job := <-queue.jobs:
			job(queue.ctx)
		}
	}
}

// Remove stops the worker of key, dropping its pending jobs, and waits for
// a running job to return.
func (tp *TaskPool) Remove(key string) {
	tp.mu.Lock()
	queue, exists := tp.queues[key]
	delete(tp.queues, key)
	tp.mu.Unlock()

	if !exists {
		return
	}
	queue.cancel()
	<-queue.done
}

// Stop gracefully shuts down the task pool
// It cancels all workers and waits for them to finish
func (tp *TaskPool) Stop() {
	tp.mu.Lock()
	tp.stopped = true
	queues := make([]*keyQueue, 0, len(tp.queues))
	for key, queue := range tp.queues {
		queues = append(queues, queue)
		delete(tp.queues, key)
	}
	tp.mu.Unlock()

	tp.cancel()
	for _, queue := range queues {
		<-queue.done
	}
}

// Len returns the number of active key queues
func (tp *TaskPool) Len() int {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return len(tp.queues)
}
