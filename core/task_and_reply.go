package core

import (
	"context"
)

// =============================================================================
// PostTaskAndReply Internal Helpers
// =============================================================================

// postTaskAndReplyInternalWithTraits runs task on targetRunner and, if it did
// not panic, posts reply to replyRunner. A panic is re-raised so the target
// runner's own panic handling still sees it.
func postTaskAndReplyInternalWithTraits(
	targetRunner TaskRunner,
	task Task,
	taskTraits TaskTraits,
	reply Task,
	replyTraits TaskTraits,
	replyRunner TaskRunner,
) {
	if replyRunner == nil {
		targetRunner.PostTaskWithTraits(task, taskTraits)
		return
	}

	wrappedTask := func(ctx context.Context) {
		task(ctx)
		replyRunner.PostTaskWithTraits(reply, replyTraits)
	}

	targetRunner.PostTaskWithTraits(wrappedTask, taskTraits)
}

// postTaskAndReplyInternal uses the given traits for the task and default traits for the reply.
func postTaskAndReplyInternal(
	targetRunner TaskRunner,
	task Task,
	reply Task,
	replyRunner TaskRunner,
	traits TaskTraits,
) {
	postTaskAndReplyInternalWithTraits(targetRunner, task, traits, reply, DefaultTaskTraits(), replyRunner)
}

// =============================================================================
// Generic PostTaskAndReply with Result
// =============================================================================

// PostTaskAndReplyWithResult executes a task that returns a result of type T and an error,
// then passes that result to a reply callback on the replyRunner.
//
// The reply always runs after the task has finished and sees its result. A
// panicking task is reported to the reply as an error wrapping ErrTaskPanicked,
// so a caller counting replies never waits for one that will not come.
//
// Example:
//
//	PostTaskAndReplyWithResult(
//	    workers,
//	    func(ctx context.Context) (int, error) {
//	        return source.Next(ctx), nil
//	    },
//	    func(ctx context.Context, value int, err error) {
//	        result = append(result, value)
//	    },
//	    collector,
//	)
func PostTaskAndReplyWithResult[T any](
	targetRunner TaskRunner,
	task TaskWithResult[T],
	reply ReplyWithResult[T],
	replyRunner TaskRunner,
) {
	PostTaskAndReplyWithResultAndTraits(targetRunner, task, DefaultTaskTraits(), reply, DefaultTaskTraits(), replyRunner)
}

// PostTaskAndReplyWithResultAndTraits is the full-featured version that allows specifying
// different traits for the task and reply separately.
func PostTaskAndReplyWithResultAndTraits[T any](
	targetRunner TaskRunner,
	task TaskWithResult[T],
	taskTraits TaskTraits,
	reply ReplyWithResult[T],
	replyTraits TaskTraits,
	replyRunner TaskRunner,
) {
	// Written by wrappedTask, read by wrappedReply. The post of the reply
	// happens after the write, which orders the two.
	var result T
	var err error

	wrappedTask := func(ctx context.Context) {
		result, err = RunWithRecover(ctx, task)
	}

	wrappedReply := func(ctx context.Context) {
		reply(ctx, result, err)
	}

	postTaskAndReplyInternalWithTraits(targetRunner, wrappedTask, taskTraits, wrappedReply, replyTraits, replyRunner)
}

// RunWithRecover runs task on the calling goroutine and converts a panic
// into an error wrapping ErrTaskPanicked.
func RunWithRecover[T any](ctx context.Context, task TaskWithResult[T]) (result T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			var zero T
			result, err = zero, PanicError(rec)
		}
	}()
	return task(ctx)
}
