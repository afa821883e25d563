package asyncbench

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Swind/asyncbench/core"
)

// GoroutineThreadPool manages a set of worker goroutines
// Responsible for pulling tasks from the scheduler and executing them
type GoroutineThreadPool struct {
	id        string
	workers   int
	scheduler *core.TaskScheduler
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	runningMu sync.RWMutex
}

var _ core.ThreadPool = (*GoroutineThreadPool)(nil)

// NewGoroutineThreadPool creates a new GoroutineThreadPool with a FIFO queue
func NewGoroutineThreadPool(id string, workers int) *GoroutineThreadPool {
	return NewGoroutineThreadPoolWithConfig(id, workers, core.DefaultTaskSchedulerConfig())
}

// NewGoroutineThreadPoolWithConfig creates a FIFO pool whose scheduler uses
// the given handlers and metrics sink.
func NewGoroutineThreadPoolWithConfig(id string, workers int, config *core.TaskSchedulerConfig) *GoroutineThreadPool {
	return newPool(id, workers, core.NewFIFOTaskSchedulerWithConfig(workers, config))
}

// NewPriorityGoroutineThreadPool creates a pool that runs user-blocking tasks
// ahead of user-visible and best-effort ones.
func NewPriorityGoroutineThreadPool(id string, workers int, config *core.TaskSchedulerConfig) *GoroutineThreadPool {
	return newPool(id, workers, core.NewPriorityTaskSchedulerWithConfig(workers, config))
}

func newPool(id string, workers int, scheduler *core.TaskScheduler) *GoroutineThreadPool {
	if workers < 1 {
		panic(fmt.Sprintf("GoroutineThreadPool: workers must be at least 1, got %d", workers))
	}
	scheduler.SetName(id)
	return &GoroutineThreadPool{
		id:        id,
		workers:   workers,
		scheduler: scheduler,
	}
}

// Start starts all worker goroutines
func (tg *GoroutineThreadPool) Start(ctx context.Context) {
	tg.runningMu.Lock()
	defer tg.runningMu.Unlock()

	if tg.running {
		return // Already running
	}

	tg.ctx, tg.cancel = context.WithCancel(ctx)
	tg.running = true

	for i := 0; i < tg.workers; i++ {
		tg.wg.Add(1)
		go tg.workerLoop(i, tg.ctx)
	}
}

// Stop stops the thread pool. Queued tasks are dropped; running tasks finish.
func (tg *GoroutineThreadPool) Stop() {
	tg.scheduler.Shutdown()

	tg.runningMu.Lock()
	if !tg.running {
		tg.runningMu.Unlock()
		return
	}
	tg.runningMu.Unlock()

	if tg.cancel != nil {
		tg.cancel()
	}
	tg.Join()

	tg.runningMu.Lock()
	tg.running = false
	tg.runningMu.Unlock()
}

// StopGraceful waits for queued tasks to complete before stopping the workers.
// Returns error if timeout is exceeded before tasks complete
func (tg *GoroutineThreadPool) StopGraceful(timeout time.Duration) error {
	tg.runningMu.Lock()
	if !tg.running {
		tg.runningMu.Unlock()
		return nil
	}
	tg.runningMu.Unlock()

	err := tg.scheduler.ShutdownGraceful(timeout)

	if tg.cancel != nil {
		tg.cancel()
	}
	tg.Join()

	tg.runningMu.Lock()
	tg.running = false
	tg.runningMu.Unlock()

	return err
}

// ID returns the ID of the thread pool
func (tg *GoroutineThreadPool) ID() string {
	return tg.id
}

// IsRunning returns whether the thread pool is running
func (tg *GoroutineThreadPool) IsRunning() bool {
	tg.runningMu.RLock()
	defer tg.runningMu.RUnlock()
	return tg.running
}

// workerLoop is the main loop for each worker
func (tg *GoroutineThreadPool) workerLoop(id int, ctx context.Context) {
	defer tg.wg.Done()
	stopCh := ctx.Done()
	workerCtx := core.WithWorkerID(ctx, id)

	for {
		item, ok := tg.scheduler.GetWork(stopCh)
		if !ok {
			return
		}
		tg.runTask(workerCtx, id, item)
	}
}

func (tg *GoroutineThreadPool) runTask(ctx context.Context, id int, item core.TaskItem) {
	tg.scheduler.OnTaskStart()
	started := time.Now()

	var panicInfo any
	defer func() {
		tg.scheduler.OnTaskEnd(item.Traits, time.Since(started), panicInfo)
	}()
	defer func() {
		if r := recover(); r != nil {
			panicInfo = r
			tg.scheduler.GetPanicHandler().HandlePanic(ctx, tg.id, id, r, debug.Stack())
		}
	}()

	item.Task(ctx)
}

// Join waits for all worker goroutines to finish
func (tg *GoroutineThreadPool) Join() {
	tg.wg.Wait()
}

// WorkerCount returns the number of workers
func (tg *GoroutineThreadPool) WorkerCount() int {
	return tg.workers
}

func (tg *GoroutineThreadPool) QueuedTaskCount() int {
	return tg.scheduler.QueuedTaskCount()
}

func (tg *GoroutineThreadPool) ActiveTaskCount() int {
	return tg.scheduler.ActiveTaskCount()
}

func (tg *GoroutineThreadPool) PostInternal(task core.Task, traits core.TaskTraits) {
	tg.scheduler.PostInternal(task, traits)
}

// GetScheduler exposes the scheduler so runners can reach its panic handler and metrics.
func (tg *GoroutineThreadPool) GetScheduler() *core.TaskScheduler {
	return tg.scheduler
}

// Stats returns current observability data for this pool.
func (tg *GoroutineThreadPool) Stats() core.PoolStats {
	return core.PoolStats{
		ID:      tg.id,
		Workers: tg.workers,
		Queued:  tg.QueuedTaskCount(),
		Active:  tg.ActiveTaskCount(),
		Running: tg.IsRunning(),
	}
}

// =============================================================================
// Global Thread Pool Helper (Singleton)
// =============================================================================

var (
	globalThreadPool *GoroutineThreadPool
	globalMu         sync.Mutex
)

// InitGlobalThreadPool initializes and starts the global thread pool.
// Calls after the first are no-ops until ShutdownGlobalThreadPool.
func InitGlobalThreadPool(workers int, config *core.TaskSchedulerConfig) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThreadPool != nil {
		return
	}

	globalThreadPool = NewPriorityGoroutineThreadPool("global-pool", workers, config)
	globalThreadPool.Start(context.Background())
}

// GetGlobalThreadPool returns the global thread pool instance.
// It panics if InitGlobalThreadPool has not been called.
func GetGlobalThreadPool() *GoroutineThreadPool {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThreadPool == nil {
		panic("GlobalThreadPool not initialized. Call InitGlobalThreadPool() first.")
	}
	return globalThreadPool
}

// ShutdownGlobalThreadPool stops the global thread pool.
func ShutdownGlobalThreadPool() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThreadPool != nil {
		globalThreadPool.Stop()
		globalThreadPool = nil
	}
}
