package core

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// TaskGroup is a structured scope of goroutine tasks. Results are yielded in
// completion order and Collect does not return before every task finished.
//
// Unlike the thread pool runners, each task gets its own goroutine, so a
// group of N tasks is N lightweight tasks multiplexed by the Go scheduler.
type TaskGroup[T any] struct {
	group   *errgroup.Group
	ctx     context.Context
	results chan T

	mu     sync.Mutex
	closed bool
}

// NewTaskGroup creates a group. sizeHint sizes the result buffer so finished
// tasks do not wait for the collector; it is not a limit.
func NewTaskGroup[T any](ctx context.Context, sizeHint int) *TaskGroup[T] {
	group, groupCtx := errgroup.WithContext(ctx)
	return &TaskGroup[T]{
		group:   group,
		ctx:     groupCtx,
		results: make(chan T, max(sizeHint, 0)),
	}
}

// Go starts task in the group. It must not be called after Collect.
func (g *TaskGroup[T]) Go(task TaskWithResult[T]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		panic("TaskGroup: Go called after Collect")
	}

	g.group.Go(func() error {
		value, err := RunWithRecover(g.ctx, task)
		if err != nil {
			return err
		}
		g.results <- value
		return nil
	})
}

// Collect gathers results as tasks complete and returns them in completion
// order. The first task error is returned after all tasks have finished;
// results of the tasks that succeeded are discarded in that case.
func (g *TaskGroup[T]) Collect() ([]T, error) {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	var waitErr error
	finished := make(chan struct{})
	go func() {
		waitErr = g.group.Wait()
		close(g.results)
		close(finished)
	}()

	collected := make([]T, 0, cap(g.results))
	for value := range g.results {
		collected = append(collected, value)
	}
	<-finished

	if waitErr != nil {
		return nil, waitErr
	}
	return collected, nil
}
