package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swind/asyncbench/core"
)

// TestFuture_Result verifies a value travels back to the caller
// Given: A task returning 42 on a single-thread runner
// When: Its future is awaited twice
// Then: Both awaits return 42 without error
func TestFuture_Result(t *testing.T) {
	runner := core.NewSingleThreadTaskRunner()
	defer runner.Stop()

	future := core.PostTaskWithResult(runner, func(ctx context.Context) (int, error) {
		return 42, nil
	})

	for range 2 {
		v, err := future.Await(testContext(t))
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	select {
	case <-future.Done():
	default:
		t.Fatal("Done not closed after completion")
	}
}

// TestFuture_Error verifies task errors are returned as is
func TestFuture_Error(t *testing.T) {
	runner := core.NewSingleThreadTaskRunner()
	defer runner.Stop()
	errFetch := errors.New("fetch failed")

	_, err := core.PostTaskWithResult(runner, func(ctx context.Context) (int, error) {
		return 0, errFetch
	}).Await(testContext(t))

	assert.ErrorIs(t, err, errFetch)
}

// TestFuture_Panic verifies a panic becomes ErrTaskPanicked
// Given: A task that panics on a pool-backed runner
// When: The future is awaited
// Then: The error wraps ErrTaskPanicked and mentions the panic value
func TestFuture_Panic(t *testing.T) {
	runner := core.NewParallelTaskRunner(startPool(t, 2), 2)
	defer runner.Shutdown()

	_, err := core.PostTaskWithResult(runner, func(ctx context.Context) (int, error) {
		panic("source unavailable")
	}).Await(testContext(t))

	require.ErrorIs(t, err, core.ErrTaskPanicked)
	assert.Contains(t, err.Error(), "source unavailable")
}

// TestFuture_AwaitHonoursContext verifies Await gives up with its context
// Given: A task blocked until the test releases it
// When: Await is called with a short timeout
// Then: It returns context.DeadlineExceeded
func TestFuture_AwaitHonoursContext(t *testing.T) {
	runner := core.NewSingleThreadTaskRunner()
	defer runner.Stop()
	release := make(chan struct{})
	defer close(release)

	future := core.PostTaskWithResultAndTraits(runner, func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	}, core.TraitsBestEffort())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := future.Await(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
