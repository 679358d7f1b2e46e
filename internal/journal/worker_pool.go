package journal

import (
	"context"
	"sync"
)

// Task is a unit of journal work
type Task interface {
	Execute(ctx context.Context) error
}

// TaskFunc adapts a function to Task
type TaskFunc func(ctx context.Context) error

// Execute calls f
func (f TaskFunc) Execute(ctx context.Context) error { return f(ctx) }

// WorkerPool runs tasks on a fixed number of goroutines
type WorkerPool struct {
	workers   int
	taskQueue chan Task
	onError   func(error)
	wg        sync.WaitGroup
	mu        sync.RWMutex
	stopped   bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewWorkerPool creates a new worker pool. onError receives task failures and
// may be nil.
func NewWorkerPool(workers int, onError func(error)) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		workers:   workers,
		taskQueue: make(chan Task, workers*64),
		onError:   onError,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop refuses new tasks, waits for queued ones to finish and then cancels
// the pool context
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.taskQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.cancel()
}

// Submit queues a task. It returns false once the pool is stopped.
func (wp *WorkerPool) Submit(task Task) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return false
	}
	select {
	case wp.taskQueue <- task:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		if task == nil {
			continue
		}
		if err := task.Execute(wp.ctx); err != nil && wp.onError != nil {
			wp.onError(err)
		}
	}
}
