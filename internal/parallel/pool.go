// Package parallel runs independent solver jobs on a bounded pool of
// goroutines. Each job owns its model, so jobs never share solver state.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// WorkerPool manages a fixed set of goroutines that execute submitted
// jobs. Submission blocks when every worker is busy and the queue is full.
type WorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
}

// NewWorkerPool creates a pool with maxWorkers goroutines. If maxWorkers
// is 0 or negative, it defaults to the number of CPU cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}

	return pool
}

// Size returns the number of workers.
func (wp *WorkerPool) Size() int { return wp.maxWorkers }

func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()

	for {
		select {
		case task := <-wp.taskChan:
			if task != nil {
				task()
			}
		case <-wp.shutdownChan:
			// Drain what was accepted before shutdown.
			for {
				select {
				case task := <-wp.taskChan:
					if task != nil {
						task()
					}
				default:
					return
				}
			}
		}
	}
}

// Submit queues a task. It blocks until the task is accepted, the context
// is done, or the pool shuts down.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	select {
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	default:
	}
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	}
}

// Shutdown stops accepting tasks and waits for queued and running tasks
// to finish. It is safe to call more than once.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		close(wp.shutdownChan)
		wp.workerWg.Wait()
	})
}

// ErrPoolShutdown is returned when submitting to a pool that was shut down.
var ErrPoolShutdown = errors.New("worker pool has been shutdown")

// Map runs fn for every index in [0, n) on the pool and returns the
// results in index order. If a submission fails, Map waits for the jobs
// already accepted and returns the submission error with the partial
// results.
func Map[T any](ctx context.Context, wp *WorkerPool, n int, fn func(ctx context.Context, i int) T) ([]T, error) {
	out := make([]T, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		err := wp.Submit(ctx, func() {
			defer wg.Done()
			out[i] = fn(ctx, i)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return out, err
		}
	}
	wg.Wait()
	return out, nil
}
