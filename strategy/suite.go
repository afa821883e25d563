package strategy

import (
	"context"
	"fmt"
	"io"

	"github.com/Swind/asyncbench/measure"
)

// Single is a strategy filling one collection.
type Single func(ctx context.Context) ([]int, error)

// Multi is a strategy filling Collections collections.
type Multi func(ctx context.Context) ([][]int, error)

// SingleRun names a single-collection strategy.
type SingleRun struct {
	Label string
	Run   Single
}

// Section groups the single-collection strategies printed under one header.
type Section struct {
	Title string
	Runs  []SingleRun
}

// MultiRun names a multi-collection strategy. Every one is printed under its
// own header.
type MultiRun struct {
	Title string
	Label string
	Run   Multi
}

// Sections lists the single-collection strategies in execution order.
func (b *Bench) Sections() []Section {
	return []Section{
		{Title: `Main Sync\Serial`, Runs: []SingleRun{
			{Label: "Main_Sync_Serial", Run: b.MainSyncSerial},
		}},
		{Title: `Background Sync\Serial`, Runs: []SingleRun{
			{Label: "Background_Sync_Serial", Run: b.BackgroundSyncSerial},
		}},
		{Title: `Any Async\Serial`, Runs: []SingleRun{
			{Label: "Any_Async_Serial_On_Async_Method", Run: b.AsyncSerial},
		}},
		{Title: `Any Async\Parallel`, Runs: []SingleRun{
			{Label: "Any_Async_Parallel_On_Tasks", Run: b.ParallelOnHandles},
			{Label: "Any_Async_Parallel_On_TaskGroup", Run: b.ParallelOnTaskGroup},
			{Label: "Any_Async_Parallel_On_Worker_Pool", Run: b.ParallelOnWorkerPool},
			{Label: "Any_Async_Parallel_On_Runner_With_Collector", Run: b.ParallelOnRunnerWithCollector},
		}},
	}
}

// MultiRuns lists the multi-collection strategies in execution order.
func (b *Bench) MultiRuns() []MultiRun {
	return []MultiRun{
		{Title: `Main Sync\Serial`, Label: "data_Of_Main_Sync_Serial_Sync_Group", Run: b.MainSyncSerialGroup},
		{Title: `Background Sync\Serial`, Label: "data_Of_Background_Sync_Serial_Group", Run: b.BackgroundSyncSerialGroup},
		{Title: `Background Async\Serial\Task`, Label: "data_Of_Background_Async_Serial_Group_On_Task", Run: b.BackgroundSerialGroupOnTask},
		{Title: `Background Async\Parallel\Tasks`, Label: "data_Of_Background_Async_Parallel_Group_On_Tasks", Run: b.BackgroundParallelGroupOnTasks},
		{Title: `Background\Async\Parallel\AsyncLet`, Label: "data_Of_Background_Async_Parallel_Group_On_Let_Bindings", Run: b.BackgroundParallelGroupOnLetBindings},
		{Title: `Background\Async\Parallel\TaskGroup`, Label: "data_Of_Background_Async_Parallel_Group_On_TaskGroup", Run: b.BackgroundParallelGroupOnTaskGroup},
		{Title: `Background\Async\Parallel\WorkerPool`, Label: "data_Of_Background_Async_Parallel_Group_On_Worker_Pool", Run: b.BackgroundParallelGroupOnWorkerPool},
	}
}

// SuiteOptions controls what RunAll prints besides the timing lines.
type SuiteOptions struct {
	Out io.Writer

	// LogPhases prints start and stop markers around every run.
	LogPhases bool

	// PrintResult prints every produced collection.
	PrintResult bool
}

// RunAll runs every single-collection strategy, resetting the source after
// each, then every multi-collection strategy. It stops at the first failure.
func (b *Bench) RunAll(ctx context.Context, meter *measure.Meter, opts SuiteOptions) error {
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	for _, section := range b.Sections() {
		fmt.Fprintln(opts.Out, section.Title)
		for _, run := range section.Runs {
			result, err := measure.Time(meter, run.Label, opts.LogPhases, func() ([]int, error) {
				return run.Run(ctx)
			})
			b.source.Reset()
			if err != nil {
				return err
			}
			if opts.PrintResult {
				fmt.Fprintf(opts.Out, "%v\n\n", result)
			}
		}
	}

	for _, run := range b.MultiRuns() {
		fmt.Fprintln(opts.Out, run.Title)
		result, err := measure.Time(meter, run.Label, opts.LogPhases, func() ([][]int, error) {
			return run.Run(ctx)
		})
		if err != nil {
			return err
		}
		if opts.PrintResult {
			fmt.Fprintf(opts.Out, "%v\n\n", result)
		}
	}

	return nil
}
