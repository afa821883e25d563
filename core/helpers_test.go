package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Swind/asyncbench"
)

func startPool(t *testing.T, workers int) *asyncbench.GoroutineThreadPool {
	t.Helper()
	pool := asyncbench.NewGoroutineThreadPool("core-test", workers)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)
	return pool
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// recorder collects values from concurrently running tasks.
type recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

// panicRecorder counts HandlePanic calls.
type panicRecorder struct {
	mu     sync.Mutex
	values []any
	runner string
}

func (p *panicRecorder) HandlePanic(_ context.Context, runnerName string, _ int, panicInfo any, _ []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, panicInfo)
	p.runner = runnerName
}

func (p *panicRecorder) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.values)
}
