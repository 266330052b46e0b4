package utils

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
	quarterProcs := float64(ParallelFactor) * .25
	if quarterProcs > 8 {
		ParallelFactor = int(quarterProcs)
	}
}

// RowWorkFunc runs for each row of a grid.
type RowWorkFunc func(y int) error

// ParallelForEachRow splits the rows [0, height) into contiguous groups and runs work on each row,
// one goroutine per group. A workers value <= 0 uses ParallelFactor. The first error (or panic)
// cancels the remaining groups and is returned. Work for different rows must not share mutable
// state.
func ParallelForEachRow(ctx context.Context, height, workers int, work RowWorkFunc) error {
	if height <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = ParallelFactor
	}
	if workers > height {
		workers = height
	}

	groupSize := height / workers
	extra := height % workers

	group, ctx := errgroup.WithContext(ctx)
	from := 0
	for groupNum := 0; groupNum < workers; groupNum++ {
		to := from + groupSize
		if groupNum < extra {
			to++
		}
		start, end := from, to
		group.Go(func() (err error) {
			defer func() {
				if thePanic := recover(); thePanic != nil {
					err = errors.Errorf("got panic processing rows [%d, %d): %v", start, end, thePanic)
				}
			}()
			for y := start; y < end; y++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := work(y); err != nil {
					return err
				}
			}
			return nil
		})
		from = to
	}
	return group.Wait()
}
