// Package strategy implements the collection-filling disciplines that the
// benchmark compares. Every strategy asks the shared Source for Size values;
// they only differ in where and in which order those calls are made.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Swind/asyncbench/core"
	"github.com/Swind/asyncbench/provider"
)

var (
	// ErrNegativeSize is returned by New for a negative workload size.
	ErrNegativeSize = errors.New("workload size must not be negative")

	// ErrNilSource is returned by New when no Source is given.
	ErrNilSource = errors.New("source must not be nil")

	// ErrNilPool is returned by New when no thread pool is given.
	ErrNilPool = errors.New("thread pool must not be nil")

	// ErrTooManyWorkers is returned by New when the worker count exceeds what
	// the parallel runner supports.
	ErrTooManyWorkers = fmt.Errorf("workers must not exceed %d", core.MaxParallelConcurrency)
)

// Options configures a Bench.
type Options struct {
	Source provider.Source
	Size   int
	Pool   core.ThreadPool

	// Workers bounds the parallel runner and sizes the pond pools.
	// Defaults to Pool.WorkerCount().
	Workers int

	// Random makes every strategy call NextRandom instead of Next.
	Random bool

	PrintThreads bool
	Logger       core.Logger
}

// Bench owns the runners the strategies post to. It is not meant to run two
// strategies at the same time: they would share the counter.
type Bench struct {
	source       provider.Source
	size         int
	workers      int
	random       bool
	printThreads bool
	logger       core.Logger

	// background plays the dedicated background thread.
	background *core.SingleThreadTaskRunner
	// collector confines result appends of the reply-based strategy.
	collector *core.SingleThreadTaskRunner
	sequenced *core.SequencedTaskRunner
	parallel  *core.ParallelTaskRunner

	closeOnce sync.Once
}

// New validates opts and creates the runners. Call Close when done.
func New(opts Options) (*Bench, error) {
	if opts.Size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeSize, opts.Size)
	}
	if opts.Source == nil {
		return nil, ErrNilSource
	}
	if opts.Pool == nil {
		return nil, ErrNilPool
	}
	if opts.Workers < 1 {
		opts.Workers = max(opts.Pool.WorkerCount(), 1)
	}
	if opts.Workers > core.MaxParallelConcurrency {
		return nil, fmt.Errorf("%w: %d", ErrTooManyWorkers, opts.Workers)
	}
	if opts.Logger == nil {
		opts.Logger = core.NewNoOpLogger()
	}

	b := &Bench{
		source:       opts.Source,
		size:         opts.Size,
		workers:      opts.Workers,
		random:       opts.Random,
		printThreads: opts.PrintThreads,
		logger:       opts.Logger,
		background:   core.NewSingleThreadTaskRunner(),
		collector:    core.NewSingleThreadTaskRunner(),
		sequenced:    core.NewSequencedTaskRunner(opts.Pool),
		parallel:     core.NewParallelTaskRunner(opts.Pool, opts.Workers),
	}

	panicHandler := &core.LoggingPanicHandler{Logger: opts.Logger}
	b.background.SetName("background")
	b.background.SetPanicHandler(panicHandler)
	b.collector.SetName("collector")
	b.collector.SetPanicHandler(panicHandler)
	b.sequenced.SetName("sequenced")
	b.parallel.SetName("parallel")

	return b, nil
}

// Size returns the number of values each collection receives.
func (b *Bench) Size() int {
	return b.size
}

// Source returns the shared counter source.
func (b *Bench) Source() provider.Source {
	return b.source
}

// Close stops the runners owned by the bench. The thread pool is left running.
func (b *Bench) Close() {
	b.closeOnce.Do(func() {
		b.parallel.Shutdown()
		b.sequenced.Shutdown()
		b.background.Stop()
		b.collector.Stop()
	})
}

// fetch performs one retrieval from the source.
func (b *Bench) fetch(ctx context.Context) int {
	if b.random {
		return b.source.NextRandom(ctx)
	}
	return b.source.Next(ctx)
}

// fetchTask is fetch shaped as a task for futures, groups and replies.
func (b *Bench) fetchTask(ctx context.Context) (int, error) {
	return b.fetch(ctx), nil
}

// fill performs size retrievals in a row on the calling goroutine.
func (b *Bench) fill(ctx context.Context) []int {
	result := make([]int, 0, b.size)
	for range b.size {
		result = append(result, b.fetch(ctx))
	}
	return result
}

// fillAndReset fills one collection, then resets the shared counter. The reset
// is global: collections filled concurrently see each other's resets.
func (b *Bench) fillAndReset(ctx context.Context) ([]int, error) {
	b.trace(ctx, "fill_and_reset")
	defer b.source.Reset()
	return b.fill(ctx), nil
}

// trace logs where the calling code runs when thread printing is on.
func (b *Bench) trace(ctx context.Context, site string) {
	if !b.printThreads {
		return
	}
	b.logger.Info("run on goroutine",
		core.F("site", site),
		core.F("goroutine", core.GoroutineID()),
		core.F("worker", core.WorkerID(ctx)),
		core.F("runner", core.RunnerName(ctx)),
	)
}

type spawnIndexKeyType struct{}

var spawnIndexKey spawnIndexKeyType

func withSpawnIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, spawnIndexKey, index)
}

// SpawnIndex returns the creation index of the concurrent unit the context
// belongs to. Parallel strategies tag every unit they spawn; serial ones do not.
func SpawnIndex(ctx context.Context) (int, bool) {
	index, ok := ctx.Value(spawnIndexKey).(int)
	return index, ok
}

// spawned returns a task that runs fetch with its spawn index attached.
func (b *Bench) spawned(index int, site string) core.TaskWithResult[int] {
	return func(ctx context.Context) (int, error) {
		ctx = withSpawnIndex(ctx, index)
		b.trace(ctx, site)
		return b.fetchTask(ctx)
	}
}
