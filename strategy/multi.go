package strategy

import (
	"context"
	"fmt"

	"github.com/alitto/pond/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Swind/asyncbench/core"
)

// Collections is the number of sequences a multi-collection strategy fills.
const Collections = 3

// The serial groups below reset between fills, so each collection starts at
// the initial value. The parallel groups launch their fills together and share
// the one global counter: a reset issued by one fill lands in the middle of
// the others.

// MainSyncSerialGroup fills three collections one after another on the caller.
func (b *Bench) MainSyncSerialGroup(ctx context.Context) ([][]int, error) {
	return b.serialGroup(ctx)
}

// BackgroundSyncSerialGroup runs the three fills in a row on the background
// runner while the caller waits on the gate.
func (b *Bench) BackgroundSyncSerialGroup(ctx context.Context) ([][]int, error) {
	var (
		result   [][]int
		groupErr error
	)
	err := b.onBackground(ctx, func(ctx context.Context) {
		result, groupErr = core.RunWithRecover(ctx, b.serialGroup)
	})
	if err == nil {
		err = groupErr
	}
	if err != nil {
		return nil, fmt.Errorf("background sync serial group: %w", err)
	}
	return result, nil
}

// BackgroundSerialGroupOnTask posts a single user-blocking task that performs
// the three fills in order and awaits it.
func (b *Bench) BackgroundSerialGroupOnTask(ctx context.Context) ([][]int, error) {
	result, err := core.PostTaskWithResultAndTraits(b.sequenced, b.serialGroup, core.TraitsUserBlocking()).Await(ctx)
	if err != nil {
		return nil, fmt.Errorf("background serial group on task: %w", err)
	}
	return result, nil
}

// BackgroundParallelGroupOnTasks launches the three fills on the parallel
// runner and awaits first, second and third in that order.
func (b *Bench) BackgroundParallelGroupOnTasks(ctx context.Context) ([][]int, error) {
	handles := make([]*core.Future[[]int], 0, Collections)
	for i := range Collections {
		handles = append(handles, core.PostTaskWithResult(b.parallel, b.spawnedFill(i)))
	}

	result := make([][]int, 0, Collections)
	for i, handle := range handles {
		values, err := handle.Await(ctx)
		if err != nil {
			return nil, fmt.Errorf("background parallel group on tasks: collection %d: %w", i, err)
		}
		result = append(result, values)
	}
	return result, nil
}

// BackgroundParallelGroupOnLetBindings binds each fill to its own variable in
// an errgroup and reads all three after Wait.
func (b *Bench) BackgroundParallelGroupOnLetBindings(ctx context.Context) ([][]int, error) {
	var first, second, third []int

	group, groupCtx := errgroup.WithContext(ctx)
	bind := func(index int, target *[]int) {
		group.Go(func() (err error) {
			*target, err = core.RunWithRecover(groupCtx, b.spawnedFill(index))
			return err
		})
	}
	bind(0, &first)
	bind(1, &second)
	bind(2, &third)

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("background parallel group on let bindings: %w", err)
	}
	return [][]int{first, second, third}, nil
}

// BackgroundParallelGroupOnTaskGroup runs the three fills in a TaskGroup.
// Collections come back in completion order.
func (b *Bench) BackgroundParallelGroupOnTaskGroup(ctx context.Context) ([][]int, error) {
	group := core.NewTaskGroup[[]int](ctx, Collections)
	for i := range Collections {
		group.Go(b.spawnedFill(i))
	}

	result, err := group.Collect()
	if err != nil {
		return nil, fmt.Errorf("background parallel group on task group: %w", err)
	}
	return result, nil
}

// BackgroundParallelGroupOnWorkerPool submits the three fills to a pond pool.
// Each fill writes only its own slot, so no guard is needed on the result.
func (b *Bench) BackgroundParallelGroupOnWorkerPool(ctx context.Context) ([][]int, error) {
	pool := pond.NewPool(min(b.workers, Collections), pond.WithContext(ctx))
	defer pool.StopAndWait()

	result := make([][]int, Collections)
	group := pool.NewGroup()
	for i := range Collections {
		task := b.spawnedFill(i)
		group.SubmitErr(func() (err error) {
			result[i], err = core.RunWithRecover(ctx, task)
			return err
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("background parallel group on worker pool: %w", err)
	}
	return result, nil
}

func (b *Bench) serialGroup(ctx context.Context) ([][]int, error) {
	result := make([][]int, 0, Collections)
	for range Collections {
		values, err := b.fillAndReset(ctx)
		if err != nil {
			return nil, err
		}
		result = append(result, values)
	}
	return result, nil
}

// spawnedFill is fillAndReset tagged with the collection index.
func (b *Bench) spawnedFill(index int) core.TaskWithResult[[]int] {
	return func(ctx context.Context) ([]int, error) {
		return b.fillAndReset(withSpawnIndex(ctx, index))
	}
}
