package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// schedulerProvider is implemented by thread pools that expose their scheduler,
// which carries the panic handler and metrics sink.
type schedulerProvider interface {
	GetScheduler() *TaskScheduler
}

// SequencedTaskRunner runs its tasks one at a time, in posting order, on
// whichever pool worker picks up its run loop. Consecutive tasks may land on
// different workers.
type SequencedTaskRunner struct {
	threadPool    ThreadPool
	queue         TaskQueue
	mu            sync.Mutex
	isRunning     bool
	activeRunners int32       // atomic guard for concurrency assertion
	closed        atomic.Bool // indicates if the runner is closed

	name string
}

func NewSequencedTaskRunner(threadPool ThreadPool) *SequencedTaskRunner {
	if threadPool == nil {
		panic("SequencedTaskRunner: threadPool must not be nil")
	}
	return &SequencedTaskRunner{
		threadPool: threadPool,
		queue:      NewFIFOTaskQueue(),
		name:       "sequenced",
	}
}

// Name returns the name of the task runner
func (r *SequencedTaskRunner) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// SetName sets the name of the task runner
func (r *SequencedTaskRunner) SetName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.name = name
}

func (r *SequencedTaskRunner) runLoop(ctx context.Context) {
	// Assertion: Ensure strictly one goroutine at a time
	if n := atomic.AddInt32(&r.activeRunners, 1); n > 1 {
		panic(fmt.Sprintf("SequencedTaskRunner: concurrent runLoop detected (count=%d)", n))
	}
	defer atomic.AddInt32(&r.activeRunners, -1)

	runCtx := context.WithValue(ctx, taskRunnerKey, r)

	item, ok := r.queue.Pop()
	if ok {
		r.runTask(runCtx, item.Task)
	}

	// Yield to the scheduler between every task
	r.mu.Lock()
	if r.queue.IsEmpty() {
		r.isRunning = false
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.threadPool.PostInternal(r.runLoop, item.Traits)
}

func (r *SequencedTaskRunner) runTask(ctx context.Context, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			if sp, ok := r.threadPool.(schedulerProvider); ok {
				sp.GetScheduler().GetPanicHandler().HandlePanic(ctx, r.Name(), WorkerID(ctx), rec, debug.Stack())
				sp.GetScheduler().GetMetrics().RecordTaskPanic(r.Name(), rec)
			}
		}
	}()
	task(ctx)
}

// PostTask submits task (using default Traits)
func (r *SequencedTaskRunner) PostTask(task Task) {
	r.PostTaskWithTraits(task, DefaultTaskTraits())
}

// PostTaskWithTraits submits task with traits
func (r *SequencedTaskRunner) PostTaskWithTraits(task Task, traits TaskTraits) {
	if r.closed.Load() {
		return
	}

	r.mu.Lock()
	r.queue.Push(task, traits)
	if r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = true
	r.mu.Unlock()

	r.threadPool.PostInternal(r.runLoop, traits)
}

// Shutdown stops the runner from accepting tasks and drops the pending ones.
// The task currently executing is not interrupted.
func (r *SequencedTaskRunner) Shutdown() {
	r.closed.Store(true)
	r.queue.Clear()
}

// IsClosed returns true if the runner has been shut down.
func (r *SequencedTaskRunner) IsClosed() bool {
	return r.closed.Load()
}

// PostTaskAndReply executes task on this runner, then posts reply to replyRunner.
// If task panics, reply will not be executed.
func (r *SequencedTaskRunner) PostTaskAndReply(task Task, reply Task, replyRunner TaskRunner) {
	postTaskAndReplyInternal(r, task, reply, replyRunner, DefaultTaskTraits())
}
