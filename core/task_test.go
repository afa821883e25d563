package core_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Swind/asyncbench/core"
)

// TestTaskPriority_String verifies metric labels
func TestTaskPriority_String(t *testing.T) {
	assert.Equal(t, "best_effort", core.TaskPriorityBestEffort.String())
	assert.Equal(t, "user_visible", core.TaskPriorityUserVisible.String())
	assert.Equal(t, "user_blocking", core.TaskPriorityUserBlocking.String())
	assert.Equal(t, core.TaskPriorityUserVisible, core.DefaultTaskTraits().Priority)
	assert.Equal(t, core.TaskPriorityUserVisible, core.TraitsUserVisible().Priority)
}

// TestContextHelpers verifies the values read outside of any runner
// Given: A plain background context
// When: The runner helpers are queried
// Then: No runner, worker -1, and the caller name are reported
func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, core.GetCurrentTaskRunner(ctx))
	assert.Equal(t, -1, core.WorkerID(ctx))
	assert.Equal(t, "caller", core.RunnerName(ctx))
	assert.Equal(t, 5, core.WorkerID(core.WithWorkerID(ctx, 5)))
}

// TestGetCurrentTaskRunner verifies the runner is reachable from its tasks
func TestGetCurrentTaskRunner(t *testing.T) {
	runner := core.NewSingleThreadTaskRunner()
	defer runner.Stop()

	current, err := core.PostTaskWithResult(runner, func(ctx context.Context) (core.TaskRunner, error) {
		return core.GetCurrentTaskRunner(ctx), nil
	}).Await(testContext(t))

	assert.NoError(t, err)
	assert.Same(t, runner, current)
	assert.Equal(t, "anonymous", func() string {
		name, _ := core.PostTaskWithResult(runner, func(ctx context.Context) (string, error) {
			return core.RunnerName(ctx), nil
		}).Await(testContext(t))
		return name
	}())
}

// TestGoroutineID verifies distinct goroutines get distinct ids
func TestGoroutineID(t *testing.T) {
	const n = 8
	ids := make([]uint64, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i] = core.GoroutineID()
		}()
	}
	wg.Wait()

	seen := map[uint64]bool{core.GoroutineID(): true}
	for _, id := range ids {
		assert.NotZero(t, id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}
