package worker_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllTasksCompleteWithoutErrors(t *testing.T) {
	t.Parallel()

	wp := worker.NewWorkerPool(5)

	var counter int32

	for range 10 {
		wp.Submit(func() error {
			atomic.AddInt32(&counter, 1)
			return nil
		})
	}

	require.NoError(t, wp.Wait())
	assert.Equal(t, int32(10), atomic.LoadInt32(&counter))
}

func TestSomeTasksReturnErrors(t *testing.T) {
	t.Parallel()

	wp := worker.NewWorkerPool(3)

	var successCount int32

	for i := range 10 {
		wp.Submit(func() error {
			if i%2 == 0 {
				return errors.New("mock error")
			}

			atomic.AddInt32(&successCount, 1)

			return nil
		})
	}

	err := wp.Wait()
	require.Error(t, err)
	assert.Len(t, errors.UnwrapMultiErrors(err), 5)
	assert.Equal(t, int32(5), atomic.LoadInt32(&successCount))
}

func TestConcurrencyNeverExceedsSize(t *testing.T) {
	t.Parallel()

	const size = 2

	wp := worker.NewWorkerPool(size)

	var running, peak int32

	for range 8 {
		wp.Submit(func() error {
			now := atomic.AddInt32(&running, 1)
			defer atomic.AddInt32(&running, -1)

			for {
				old := atomic.LoadInt32(&peak)
				if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
					break
				}
			}

			time.Sleep(10 * time.Millisecond)

			return nil
		})
	}

	require.NoError(t, wp.Wait())
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(size))
	assert.Equal(t, 0, wp.Busy())
}

func TestZeroSizeRunsOneAtATime(t *testing.T) {
	t.Parallel()

	wp := worker.NewWorkerPool(0)
	assert.Equal(t, 1, wp.Size())
}

func TestPanicIsReportedAsError(t *testing.T) {
	t.Parallel()

	wp := worker.NewWorkerPool(1)

	wp.Submit(func() error {
		panic("boom")
	})

	err := wp.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestGracefulStopRejectsNewTasks(t *testing.T) {
	t.Parallel()

	wp := worker.NewWorkerPool(2)

	var counter int32

	for range 3 {
		wp.Submit(func() error {
			atomic.AddInt32(&counter, 1)
			return nil
		})
	}

	require.NoError(t, wp.GracefulStop())

	accepted := wp.Submit(func() error {
		atomic.AddInt32(&counter, 1)
		return nil
	})

	assert.False(t, accepted)
	require.NoError(t, wp.Wait())
	assert.Equal(t, int32(3), atomic.LoadInt32(&counter))
}
