package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swind/asyncbench/core"
)

// TestSingleThreadTaskRunner_ExecutionOrder verifies FIFO execution
// Given: A runner and 50 posted tasks
// When: The runner drains its queue
// Then: Tasks ran in posting order
func TestSingleThreadTaskRunner_ExecutionOrder(t *testing.T) {
	runner := core.NewSingleThreadTaskRunner()
	defer runner.Stop()

	var got recorder[int]
	for i := range 50 {
		runner.PostTask(func(ctx context.Context) { got.add(i) })
	}

	require.NoError(t, runner.WaitIdle(testContext(t)))
	want := make([]int, 50)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got.snapshot())
}

// TestSingleThreadTaskRunner_ThreadAffinity verifies every task shares a goroutine
// Given: A named runner
// When: Several tasks record their goroutine id and runner name
// Then: All ids are equal, differ from the caller's, and the name is visible in ctx
func TestSingleThreadTaskRunner_ThreadAffinity(t *testing.T) {
	runner := core.NewSingleThreadTaskRunner()
	runner.SetName("background")
	defer runner.Stop()

	var ids recorder[uint64]
	var names recorder[string]
	for range 10 {
		runner.PostTask(func(ctx context.Context) {
			ids.add(core.GoroutineID())
			names.add(core.RunnerName(ctx))
			assert.Equal(t, -1, core.WorkerID(ctx))
		})
	}
	require.NoError(t, runner.WaitIdle(testContext(t)))

	got := ids.snapshot()
	require.Len(t, got, 10)
	for _, id := range got {
		assert.Equal(t, got[0], id)
	}
	assert.NotEqual(t, core.GoroutineID(), got[0])
	assert.Equal(t, "background", names.snapshot()[0])
}

// TestSingleThreadTaskRunner_PanicRecovery verifies the loop survives a panic
// Given: A runner with a recording panic handler
// When: A panicking task is followed by a normal task
// Then: The handler sees the panic and the next task still runs
func TestSingleThreadTaskRunner_PanicRecovery(t *testing.T) {
	handler := &panicRecorder{}
	runner := core.NewSingleThreadTaskRunner()
	runner.SetName("collector")
	runner.SetPanicHandler(handler)
	defer runner.Stop()

	ran := make(chan struct{})
	runner.PostTask(func(ctx context.Context) { panic("boom") })
	runner.PostTask(func(ctx context.Context) { close(ran) })

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("task after panic did not run")
	}
	assert.Equal(t, 1, handler.count())
	assert.Equal(t, "collector", handler.runner)
}

// TestSingleThreadTaskRunner_PostTaskAfterShutdown verifies closed runners drop work
// Given: A runner that has been stopped
// When: A task is posted and WaitIdle is called
// Then: The task never runs and WaitIdle reports ErrRunnerClosed
func TestSingleThreadTaskRunner_PostTaskAfterShutdown(t *testing.T) {
	runner := core.NewSingleThreadTaskRunner()
	runner.Stop()
	runner.Stop()

	ran := false
	runner.PostTask(func(ctx context.Context) { ran = true })

	assert.True(t, runner.IsClosed())
	assert.ErrorIs(t, runner.WaitIdle(testContext(t)), core.ErrRunnerClosed)
	assert.False(t, ran)
}

// TestSingleThreadTaskRunner_ShutdownFromTask verifies a task may close its own runner
func TestSingleThreadTaskRunner_ShutdownFromTask(t *testing.T) {
	runner := core.NewSingleThreadTaskRunner()
	done := make(chan struct{})
	runner.PostTask(func(ctx context.Context) {
		runner.Shutdown()
		close(done)
	})

	<-done
	runner.Stop()
	assert.True(t, runner.IsClosed())
}
