// Package asyncbench measures how different concurrency disciplines fill
// integer collections from a shared, deliberately unsynchronized counter.
//
// The harness is built on a small Chromium-style task runtime: work is posted
// to runners (a dedicated single-thread runner, a sequenced runner, a bounded
// parallel runner) that share one GoroutineThreadPool, next to plain goroutine
// task groups and a pond worker pool. Each strategy in package strategy picks
// one of those disciplines, and package measure prints how long it took.
//
// # Quick Start
//
//	asyncbench.InitGlobalThreadPool(runtime.NumCPU(), core.DefaultTaskSchedulerConfig())
//	defer asyncbench.ShutdownGlobalThreadPool()
//
//	source := provider.NewCounter(provider.Options{SimulateDelay: true, Delay: 10 * time.Microsecond})
//	bench, err := strategy.New(strategy.Options{
//		Source: source,
//		Size:   80_000,
//		Pool:   asyncbench.GetGlobalThreadPool(),
//	})
//	if err != nil {
//		return err
//	}
//	defer bench.Close()
//
//	values, err := bench.ParallelOnHandles(ctx)
//
// # Races
//
// The counter source increments with a separate load and store. Strategies
// that call it from several goroutines lose updates on purpose: collections
// come back with duplicated or skipped values. Only the result containers are
// protected, never the counter.
//
// The command in cmd/asyncbench runs every strategy in a fixed order.
package asyncbench
