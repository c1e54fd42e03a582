// Package worker runs jobs on a bounded number of goroutines.
//
// The Pool limits concurrency with a weighted semaphore sized by the fetch parallelism of the run.
// Submission never blocks the caller; the submitted task waits for a free slot on its own goroutine.
// Errors returned by tasks are collected and reported by Wait.
package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"golang.org/x/sync/semaphore"
)

// Task represents a unit of work that can be executed.
type Task func() error

// Pool manages concurrent task execution with a configurable number of workers.
type Pool struct {
	sem         *semaphore.Weighted
	allErrors   *errors.MultiError
	wg          sync.WaitGroup
	size        int
	allErrorsMu sync.Mutex
	busy        atomic.Int64
	isStopping  atomic.Bool
}

// NewWorkerPool creates a pool running at most size tasks at once. Sizes below one are raised to one.
func NewWorkerPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	return &Pool{
		size:      size,
		sem:       semaphore.NewWeighted(int64(size)),
		allErrors: &errors.MultiError{},
	}
}

// Size returns the maximum number of concurrently running tasks.
func (wp *Pool) Size() int {
	return wp.size
}

// Busy returns the number of tasks currently holding a slot.
func (wp *Pool) Busy() int {
	return int(wp.busy.Load())
}

func (wp *Pool) appendError(err error) {
	if err == nil {
		return
	}

	wp.allErrorsMu.Lock()
	wp.allErrors = wp.allErrors.Append(err)
	wp.allErrorsMu.Unlock()
}

// Submit schedules the task. It returns false if the pool is stopping and the task was dropped.
func (wp *Pool) Submit(task Task) bool {
	if wp.isStopping.Load() {
		return false
	}

	wp.wg.Add(1)

	go func() {
		defer wp.wg.Done()

		// Acquire with a background context never fails.
		_ = wp.sem.Acquire(context.Background(), 1)
		defer wp.sem.Release(1)

		wp.busy.Add(1)
		defer wp.busy.Add(-1)

		defer errors.Recover(wp.appendError)

		wp.appendError(task())
	}()

	return true
}

// Wait blocks until all submitted tasks are completed and returns their errors.
func (wp *Pool) Wait() error {
	wp.wg.Wait()

	wp.allErrorsMu.Lock()
	defer wp.allErrorsMu.Unlock()

	return wp.allErrors.ErrorOrNil()
}

// GracefulStop rejects further submissions and waits for running tasks.
func (wp *Pool) GracefulStop() error {
	wp.isStopping.Store(true)

	return wp.Wait()
}
