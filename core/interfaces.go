package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTaskPanicked is returned to whoever awaits a task that panicked.
var ErrTaskPanicked = errors.New("task panicked")

// PanicError wraps a recovered panic value so it can travel as an error.
func PanicError(panicInfo any) error {
	return fmt.Errorf("%w: %v", ErrTaskPanicked, panicInfo)
}

// =============================================================================
// ThreadPool: Define task execution interface
// =============================================================================

// ThreadPool is a fixed set of workers that runners post their tasks to.
type ThreadPool interface {
	PostInternal(task Task, traits TaskTraits)

	Start(ctx context.Context)
	Stop()

	ID() string
	IsRunning() bool

	WorkerCount() int
	QueuedTaskCount() int // In queue
	ActiveTaskCount() int // Executing
}

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The context from the panicked task (may contain task runner info)
	// - runnerName: The name of the task runner where the panic occurred
	// - workerID: The ID of the worker (-1 for single-threaded runners)
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, runnerName string, workerID int, panicInfo any, stackTrace []byte)
}

// LoggingPanicHandler reports panics through a Logger.
type LoggingPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic at error level.
func (h *LoggingPanicHandler) HandlePanic(ctx context.Context, runnerName string, workerID int, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewNoOpLogger()
	}
	logger.Error("task panic",
		F("runner", runnerName),
		F("worker", workerID),
		F("panic", fmt.Sprint(panicInfo)),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task execution metrics.
// Methods should be non-blocking and fast to avoid impacting task execution performance.
type Metrics interface {
	// RecordTaskDuration records how long a task took to execute.
	RecordTaskDuration(runnerName string, priority TaskPriority, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(runnerName string, panicInfo any)

	// RecordQueueDepth records the current queue depth.
	RecordQueueDepth(runnerName string, depth int)

	// RecordTaskRejected records that a task was rejected (e.g., during shutdown).
	RecordTaskRejected(runnerName string, reason string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(runnerName string, priority TaskPriority, duration time.Duration) {
}
func (m *NilMetrics) RecordTaskPanic(runnerName string, panicInfo any)     {}
func (m *NilMetrics) RecordQueueDepth(runnerName string, depth int)       {}
func (m *NilMetrics) RecordTaskRejected(runnerName string, reason string) {}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected tasks
// =============================================================================

// RejectedTaskHandler is called when a task is rejected by the scheduler,
// which only happens once the scheduler is shutting down.
type RejectedTaskHandler interface {
	HandleRejectedTask(runnerName string, reason string)
}

// LoggingRejectedTaskHandler reports rejected tasks through a Logger.
type LoggingRejectedTaskHandler struct {
	Logger Logger
}

// HandleRejectedTask logs the rejection at warn level.
func (h *LoggingRejectedTaskHandler) HandleRejectedTask(runnerName string, reason string) {
	if h.Logger == nil {
		return
	}
	h.Logger.Warn("task rejected", F("runner", runnerName), F("reason", reason))
}

// =============================================================================
// TaskSchedulerConfig: Configuration for TaskScheduler
// =============================================================================

// TaskSchedulerConfig holds configuration options for TaskScheduler.
// All handlers are optional; if not provided, default implementations will be used.
type TaskSchedulerConfig struct {
	// Logger backs the default panic and rejection handlers. Defaults to NoOpLogger.
	Logger Logger

	// PanicHandler is called when a task panics. Defaults to LoggingPanicHandler.
	PanicHandler PanicHandler

	// Metrics is called to record task execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedTaskHandler is called when a task is rejected. Defaults to LoggingRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler
}

// DefaultTaskSchedulerConfig returns a config with default handlers.
func DefaultTaskSchedulerConfig() *TaskSchedulerConfig {
	logger := NewNoOpLogger()
	return &TaskSchedulerConfig{
		Logger:              logger,
		PanicHandler:        &LoggingPanicHandler{Logger: logger},
		Metrics:             &NilMetrics{},
		RejectedTaskHandler: &LoggingRejectedTaskHandler{Logger: logger},
	}
}
