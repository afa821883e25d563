package asyncbench

import "github.com/Swind/asyncbench/core"

// Re-export commonly used types from core package for convenience.

// Task is the unit of work (Closure)
type Task = core.Task

// TaskTraits defines task attributes (priority, blocking behavior, etc.)
type TaskTraits = core.TaskTraits

// TaskRunner is the interface for posting tasks
type TaskRunner = core.TaskRunner

// ThreadPool is re-exported for type compatibility
type ThreadPool = core.ThreadPool

// Convenience functions for creating TaskTraits
var (
	DefaultTaskTraits  = core.DefaultTaskTraits
	TraitsUserBlocking = core.TraitsUserBlocking
	TraitsBestEffort   = core.TraitsBestEffort
)

// NewSequencedTaskRunner creates a SequencedTaskRunner on the global thread pool.
func NewSequencedTaskRunner() *core.SequencedTaskRunner {
	return core.NewSequencedTaskRunner(GetGlobalThreadPool())
}

// NewParallelTaskRunner creates a ParallelTaskRunner on the global thread pool
// with one slot per worker.
func NewParallelTaskRunner() *core.ParallelTaskRunner {
	pool := GetGlobalThreadPool()
	return core.NewParallelTaskRunner(pool, pool.WorkerCount())
}
