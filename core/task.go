package core

import (
	"context"
)

// Task is the unit of work (Closure)
type Task func(ctx context.Context)

// TaskWithResult is a task that produces a value for a reply or a Future.
type TaskWithResult[T any] func(ctx context.Context) (T, error)

// ReplyWithResult receives the outcome of a TaskWithResult.
type ReplyWithResult[T any] func(ctx context.Context, result T, err error)

// =============================================================================
// TaskTraits: Define task attributes (priority, blocking behavior, etc.)
// =============================================================================

type TaskPriority int

const (
	// TaskPriorityBestEffort: Lowest priority
	TaskPriorityBestEffort TaskPriority = iota

	// TaskPriorityUserVisible: Default priority
	TaskPriorityUserVisible

	// TaskPriorityUserBlocking: Highest priority.
	// The caller is waiting on the result.
	TaskPriorityUserBlocking
)

// String returns the metric label for the priority.
func (p TaskPriority) String() string {
	switch p {
	case TaskPriorityBestEffort:
		return "best_effort"
	case TaskPriorityUserBlocking:
		return "user_blocking"
	default:
		return "user_visible"
	}
}

type TaskTraits struct {
	Priority TaskPriority
	MayBlock bool
	Category string
}

func DefaultTaskTraits() TaskTraits {
	return TaskTraits{Priority: TaskPriorityUserVisible}
}

func TraitsUserBlocking() TaskTraits {
	return TaskTraits{Priority: TaskPriorityUserBlocking}
}

func TraitsBestEffort() TaskTraits {
	return TaskTraits{Priority: TaskPriorityBestEffort}
}

func TraitsUserVisible() TaskTraits {
	return TaskTraits{Priority: TaskPriorityUserVisible}
}

// =============================================================================
// TaskRunner: Define task submission interface
// =============================================================================
type TaskRunner interface {
	PostTask(task Task)
	PostTaskWithTraits(task Task, traits TaskTraits)
}

// NamedRunner is implemented by runners that carry a display name.
type NamedRunner interface {
	Name() string
}

// =============================================================================
// Context Helper
// =============================================================================
type taskRunnerKeyType struct{}
type workerIDKeyType struct{}

var (
	taskRunnerKey taskRunnerKeyType
	workerIDKey   workerIDKeyType
)

func GetCurrentTaskRunner(ctx context.Context) TaskRunner {
	if v := ctx.Value(taskRunnerKey); v != nil {
		return v.(TaskRunner)
	}
	return nil
}

// WithWorkerID tags ctx with the id of the pool worker executing the task.
func WithWorkerID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, workerIDKey, id)
}

// WorkerID returns the pool worker id stored in ctx, or -1 when the code is
// not running on a pool worker.
func WorkerID(ctx context.Context) int {
	if v, ok := ctx.Value(workerIDKey).(int); ok {
		return v
	}
	return -1
}

// RunnerName returns the name of the runner executing the current task, or
// "caller" when ctx does not belong to a runner.
func RunnerName(ctx context.Context) string {
	runner := GetCurrentTaskRunner(ctx)
	if runner == nil {
		return "caller"
	}
	if named, ok := runner.(NamedRunner); ok && named.Name() != "" {
		return named.Name()
	}
	return "anonymous"
}
