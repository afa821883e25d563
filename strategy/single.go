package strategy

import (
	"context"
	"fmt"
	"sync"

	"github.com/alitto/pond/v2"
	"golang.org/x/sync/semaphore"

	"github.com/Swind/asyncbench/core"
)

// MainSyncSerial calls the source Size times on the caller's goroutine.
func (b *Bench) MainSyncSerial(ctx context.Context) ([]int, error) {
	b.trace(ctx, "main_sync_serial")
	return b.fill(ctx), nil
}

// BackgroundSyncSerial runs the whole loop on the dedicated background runner
// while the caller blocks on a one-permit semaphore the runner releases.
func (b *Bench) BackgroundSyncSerial(ctx context.Context) ([]int, error) {
	var (
		result  []int
		fillErr error
	)
	err := b.onBackground(ctx, func(ctx context.Context) {
		b.trace(ctx, "background_sync_serial")
		result, fillErr = core.RunWithRecover(ctx, func(ctx context.Context) ([]int, error) {
			return b.fill(ctx), nil
		})
	})
	if err == nil {
		err = fillErr
	}
	if err != nil {
		return nil, fmt.Errorf("background sync serial: %w", err)
	}
	return result, nil
}

// onBackground posts task to the background runner and waits for it.
// task's writes are visible to the caller once onBackground returns nil.
// A closed runner drops posted tasks, so that case fails up front.
func (b *Bench) onBackground(ctx context.Context, task core.Task) error {
	if b.background.IsClosed() {
		return core.ErrRunnerClosed
	}

	gate := semaphore.NewWeighted(1)
	if err := gate.Acquire(ctx, 1); err != nil {
		return err
	}

	b.background.PostTask(func(ctx context.Context) {
		defer gate.Release(1)
		task(ctx)
	})

	return gate.Acquire(ctx, 1)
}

// AsyncSerial posts every retrieval to the sequenced runner and awaits it
// before posting the next one. Consecutive calls may run on different pool
// workers; the order stays the call order.
func (b *Bench) AsyncSerial(ctx context.Context) ([]int, error) {
	result := make([]int, 0, b.size)
	for range b.size {
		value, err := core.PostTaskWithResult(b.sequenced, func(ctx context.Context) (int, error) {
			b.trace(ctx, "async_serial")
			return b.fetchTask(ctx)
		}).Await(ctx)
		if err != nil {
			return nil, fmt.Errorf("async serial: %w", err)
		}
		result = append(result, value)
	}
	return result, nil
}

// ParallelOnHandles posts Size tasks to the parallel runner up front and then
// awaits their handles in creation order. The append order is the creation
// order; the values race on the shared counter.
func (b *Bench) ParallelOnHandles(ctx context.Context) ([]int, error) {
	handles := make([]*core.Future[int], 0, b.size)
	for i := range b.size {
		handles = append(handles, core.PostTaskWithResult(b.parallel, b.spawned(i, "parallel_on_handles")))
	}

	result := make([]int, 0, b.size)
	for i, handle := range handles {
		value, err := handle.Await(ctx)
		if err != nil {
			return nil, fmt.Errorf("parallel on handles: unit %d: %w", i, err)
		}
		result = append(result, value)
	}
	return result, nil
}

// ParallelOnTaskGroup spawns Size goroutine tasks in a TaskGroup and appends
// their results in completion order.
func (b *Bench) ParallelOnTaskGroup(ctx context.Context) ([]int, error) {
	group := core.NewTaskGroup[int](ctx, b.size)
	for i := range b.size {
		group.Go(b.spawned(i, "parallel_on_task_group"))
	}

	result, err := group.Collect()
	if err != nil {
		return nil, fmt.Errorf("parallel on task group: %w", err)
	}
	return result, nil
}

// ParallelOnWorkerPool spreads the retrievals over a fixed-size pond pool.
// Appends are guarded by a mutex so the slice is never corrupted; the source
// itself is not guarded.
func (b *Bench) ParallelOnWorkerPool(ctx context.Context) ([]int, error) {
	pool := pond.NewPool(b.workers, pond.WithContext(ctx))
	defer pool.StopAndWait()

	var mu sync.Mutex
	result := make([]int, 0, b.size)

	group := pool.NewGroup()
	for i := range b.size {
		task := b.spawned(i, "parallel_on_worker_pool")
		group.SubmitErr(func() error {
			value, err := core.RunWithRecover(ctx, task)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			result = append(result, value)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("parallel on worker pool: %w", err)
	}
	return result, nil
}

// ParallelOnRunnerWithCollector runs the retrievals on the parallel runner and
// replies every result to the collector runner, which appends without a lock
// because it is the only goroutine touching the slice. Completion order.
func (b *Bench) ParallelOnRunnerWithCollector(ctx context.Context) ([]int, error) {
	result := make([]int, 0, b.size)
	if b.size == 0 {
		return result, nil
	}

	// Owned by the collector goroutine until done is closed.
	var firstErr error
	remaining := b.size
	done := make(chan struct{})

	collect := func(_ context.Context, value int, err error) {
		switch {
		case err != nil:
			if firstErr == nil {
				firstErr = err
			}
		default:
			result = append(result, value)
		}
		remaining--
		if remaining == 0 {
			close(done)
		}
	}

	for i := range b.size {
		core.PostTaskAndReplyWithResult(b.parallel, b.spawned(i, "parallel_on_runner"), collect, b.collector)
	}

	select {
	case <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("parallel on runner with collector: %w", ctx.Err())
	}

	if firstErr != nil {
		return nil, fmt.Errorf("parallel on runner with collector: %w", firstErr)
	}
	return result, nil
}
