// Package provider holds the stand-in for a slow external data source: a
// shared counter that hands out 1, 2, 3, ... and can be reset.
package provider

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/Swind/asyncbench/core"
)

const (
	// InitialValue is the value returned by the first Next after a Reset.
	InitialValue = 1

	// RandomMax is the inclusive upper bound of NextRandom.
	RandomMax = 1_000

	// DefaultDelay is the simulated latency of one retrieval.
	DefaultDelay = 10 * time.Microsecond
)

// Source produces the values the strategies collect.
type Source interface {
	// Next returns the current counter value and advances the counter by one.
	Next(ctx context.Context) int

	// NextRandom returns a value in [0, RandomMax] without touching the counter.
	NextRandom(ctx context.Context) int

	// Reset puts the counter back to InitialValue.
	Reset()
}

// Options configures a Counter.
type Options struct {
	// SimulateDelay makes every retrieval sleep for Delay first. A zero
	// Delay is honoured as no sleep at all.
	SimulateDelay bool
	Delay         time.Duration

	// PrintThreads logs the goroutine and pool worker of every retrieval.
	PrintThreads bool
	Logger       core.Logger
}

// Counter is the process-wide counter source.
//
// Next reads and writes the counter with two separate atomic operations.
// Concurrent callers can therefore read the same value and both store its
// successor: values are duplicated and skipped, but no single load or store
// is torn and the race detector stays quiet.
type Counter struct {
	value atomic.Int64
	calls atomic.Int64
	opts  Options
}

var _ Source = (*Counter)(nil)

// NewCounter creates a counter positioned at InitialValue.
func NewCounter(opts Options) *Counter {
	if opts.Logger == nil {
		opts.Logger = core.NewNoOpLogger()
	}
	c := &Counter{opts: opts}
	c.value.Store(InitialValue)
	return c
}

// Next returns the current value and then increments the counter.
func (c *Counter) Next(ctx context.Context) int {
	c.enter(ctx, "get_number")

	current := c.value.Load()
	c.value.Store(current + 1)
	return int(current)
}

// NextRandom returns a uniformly distributed value in [0, RandomMax].
func (c *Counter) NextRandom(ctx context.Context) int {
	c.enter(ctx, "get_random_number")
	return rand.IntN(RandomMax + 1)
}

// Reset sets the counter back to InitialValue, whatever its state.
func (c *Counter) Reset() {
	c.value.Store(InitialValue)
}

// Value reports the value the next Next call would return.
func (c *Counter) Value() int {
	return int(c.value.Load())
}

// Calls reports how many retrievals were made since construction.
func (c *Counter) Calls() int64 {
	return c.calls.Load()
}

// enter does the bookkeeping shared by every retrieval. The delay blocks the
// calling goroutine even when it is a pool worker: the remote call is modelled
// as synchronous work, not as a suspension point.
func (c *Counter) enter(ctx context.Context, site string) {
	c.calls.Add(1)

	if c.opts.PrintThreads {
		c.opts.Logger.Info("run on goroutine",
			core.F("site", site),
			core.F("goroutine", core.GoroutineID()),
			core.F("worker", core.WorkerID(ctx)),
			core.F("runner", core.RunnerName(ctx)),
		)
	}

	if c.opts.SimulateDelay && c.opts.Delay > 0 {
		time.Sleep(c.opts.Delay)
	}
}
