package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

const (
	// MaxParallelConcurrency is the largest maxConcurrency NewParallelTaskRunner accepts.
	MaxParallelConcurrency = 10000
)

// ParallelTaskRunner executes up to maxConcurrency tasks simultaneously on a
// thread pool. Tasks are queued with priority support and started as slots
// become available.
type ParallelTaskRunner struct {
	// All queue and slot bookkeeping happens on this dedicated goroutine,
	// so it is never blocked by thread pool congestion.
	scheduler *SingleThreadTaskRunner

	threadPool     ThreadPool
	queue          TaskQueue
	maxConcurrency int
	runningCount   atomic.Int32
	closed         atomic.Bool
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once

	// idleWaiters is only touched from the scheduler goroutine.
	idleWaiters []chan struct{}

	name   string
	nameMu sync.Mutex
}

// NewParallelTaskRunner creates a new ParallelTaskRunner with the specified concurrency limit.
// Panics if threadPool is nil or maxConcurrency is out of valid range [1, 10000].
func NewParallelTaskRunner(threadPool ThreadPool, maxConcurrency int) *ParallelTaskRunner {
	if threadPool == nil {
		panic("ParallelTaskRunner: threadPool must not be nil")
	}
	if maxConcurrency < 1 {
		panic("ParallelTaskRunner: maxConcurrency must be at least 1")
	}
	if maxConcurrency > MaxParallelConcurrency {
		panic(fmt.Sprintf("ParallelTaskRunner: maxConcurrency must not exceed %d", MaxParallelConcurrency))
	}

	scheduler := NewSingleThreadTaskRunner()
	scheduler.SetName("parallel-scheduler")

	return &ParallelTaskRunner{
		scheduler:      scheduler,
		threadPool:     threadPool,
		queue:          NewPriorityTaskQueue(),
		maxConcurrency: maxConcurrency,
		shutdownChan:   make(chan struct{}),
		name:           "parallel",
	}
}

// MaxConcurrency returns the maximum number of concurrent tasks.
func (r *ParallelTaskRunner) MaxConcurrency() int {
	return r.maxConcurrency
}

// PendingTaskCount returns the number of queued tasks waiting to run.
func (r *ParallelTaskRunner) PendingTaskCount() int {
	return r.queue.Len()
}

// RunningTaskCount returns the number of currently executing tasks.
func (r *ParallelTaskRunner) RunningTaskCount() int {
	return int(r.runningCount.Load())
}

// IsClosed returns true if the runner has been shut down.
func (r *ParallelTaskRunner) IsClosed() bool {
	return r.closed.Load()
}

// Name returns the name of the task runner
func (r *ParallelTaskRunner) Name() string {
	r.nameMu.Lock()
	defer r.nameMu.Unlock()
	return r.name
}

// SetName sets the name of the task runner
func (r *ParallelTaskRunner) SetName(name string) {
	r.nameMu.Lock()
	defer r.nameMu.Unlock()
	r.name = name
}

func (r *ParallelTaskRunner) metrics() Metrics {
	if sp, ok := r.threadPool.(schedulerProvider); ok {
		if m := sp.GetScheduler().GetMetrics(); m != nil {
			return m
		}
	}
	return &NilMetrics{}
}

// PostTask submits a task with default traits.
func (r *ParallelTaskRunner) PostTask(task Task) {
	r.PostTaskWithTraits(task, DefaultTaskTraits())
}

// PostTaskWithTraits submits a task with specified traits.
func (r *ParallelTaskRunner) PostTaskWithTraits(task Task, traits TaskTraits) {
	if r.closed.Load() {
		r.metrics().RecordTaskRejected(r.Name(), "closed")
		return
	}
	r.scheduler.PostTask(func(ctx context.Context) {
		if r.closed.Load() {
			return
		}
		r.queue.Push(task, traits)
		r.metrics().RecordQueueDepth(r.Name(), r.queue.Len())
		r.tryScheduleInternal(ctx)
	})
}

// tryScheduleInternal starts queued tasks while slots are free.
// It must only run on the internal scheduler.
func (r *ParallelTaskRunner) tryScheduleInternal(ctx context.Context) {
	if GetCurrentTaskRunner(ctx) != r.scheduler {
		panic("ParallelTaskRunner: tryScheduleInternal must be called from internal scheduler")
	}

	for r.runningCount.Load() < int32(r.maxConcurrency) {
		item, ok := r.queue.Pop()
		if !ok {
			break
		}
		r.runningCount.Add(1)
		r.threadPool.PostInternal(r.runLoop(item.Task), item.Traits)
	}

	if r.queue.IsEmpty() && r.runningCount.Load() == 0 {
		for _, waiter := range r.idleWaiters {
			close(waiter)
		}
		r.idleWaiters = nil
	}
}

// runLoop wraps a task with cleanup logic.
func (r *ParallelTaskRunner) runLoop(task Task) Task {
	return func(ctx context.Context) {
		defer r.onTaskComplete()

		runCtx := context.WithValue(ctx, taskRunnerKey, r)

		defer func() {
			if rec := recover(); rec != nil {
				if sp, ok := r.threadPool.(schedulerProvider); ok {
					sp.GetScheduler().GetPanicHandler().HandlePanic(runCtx, r.Name(), WorkerID(ctx), rec, debug.Stack())
				}
				r.metrics().RecordTaskPanic(r.Name(), rec)
			}
		}()
		task(runCtx)
	}
}

// onTaskComplete frees the slot and triggers the next scheduling round.
func (r *ParallelTaskRunner) onTaskComplete() {
	r.runningCount.Add(-1)
	r.scheduler.PostTask(func(ctx context.Context) {
		r.tryScheduleInternal(ctx)
	})
}

// WaitIdle blocks until the queue is empty and no task is running.
func (r *ParallelTaskRunner) WaitIdle(ctx context.Context) error {
	if r.IsClosed() {
		return ErrRunnerClosed
	}

	done := make(chan struct{})
	r.scheduler.PostTask(func(ctx context.Context) {
		r.idleWaiters = append(r.idleWaiters, done)
		r.tryScheduleInternal(ctx)
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.shutdownChan:
		return fmt.Errorf("runner shutdown during WaitIdle: %w", ErrRunnerClosed)
	}
}

// Shutdown marks the runner as closed and clears all pending tasks.
// Running tasks are not interrupted. Safe to call from within a task.
func (r *ParallelTaskRunner) Shutdown() {
	r.shutdownOnce.Do(func() {
		r.closed.Store(true)
		r.queue.Clear()
		r.metrics().RecordQueueDepth(r.Name(), 0)
		close(r.shutdownChan)
		r.scheduler.Shutdown()
	})
}

// PostTaskAndReply executes task on this runner, then posts reply to replyRunner.
func (r *ParallelTaskRunner) PostTaskAndReply(task Task, reply Task, replyRunner TaskRunner) {
	postTaskAndReplyInternal(r, task, reply, replyRunner, DefaultTaskTraits())
}
