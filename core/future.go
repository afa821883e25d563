package core

import (
	"context"
)

// Future is a handle to a task posted with PostTaskWithResult. The result is
// published once; Await may be called any number of times.
type Future[T any] struct {
	done   chan struct{}
	result T
	err    error
}

// PostTaskWithResult posts task to runner and returns a handle for its result.
// A panic inside task completes the Future with an error wrapping ErrTaskPanicked.
//
// If the runner drops the task (it was shut down), the Future never completes;
// Await then returns when ctx is done.
func PostTaskWithResult[T any](runner TaskRunner, task TaskWithResult[T]) *Future[T] {
	return PostTaskWithResultAndTraits(runner, task, DefaultTaskTraits())
}

// PostTaskWithResultAndTraits is PostTaskWithResult with explicit traits.
func PostTaskWithResultAndTraits[T any](runner TaskRunner, task TaskWithResult[T], traits TaskTraits) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	runner.PostTaskWithTraits(func(ctx context.Context) {
		defer close(f.done)
		f.result, f.err = RunWithRecover(ctx, task)
	}, traits)
	return f
}

// Await blocks until the task finished or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
