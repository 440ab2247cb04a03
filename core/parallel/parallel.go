// Package parallel provides the worker fan-out helpers used for per-fold
// learner fitting and row-parallel numeric kernels.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize divides the specified total number (items) according to the
// number of CPU cores, and executes fn in parallel for each range
// (start, end).
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items // No need for more workers than items
	}

	// Number of items each worker handles (ceiling division)
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}

		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ParallelizeWithThreshold parallelizes only when the number of items exceeds
// the threshold; below it the work runs sequentially.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}

	Parallelize(items, fn)
}

// ForEachTask runs fn(task) for tasks 0..tasks-1 on its own goroutine and
// collects per-task errors. Each task must own a disjoint slice of any shared
// output buffer; cross-fitting uses one task per (fold, learner) pair so no
// two tasks write the same prediction-matrix cell. The first non-nil error in
// task order is returned.
func ForEachTask(tasks int, fn func(task int) error) error {
	if tasks == 0 {
		return nil
	}

	errs := make([]error, tasks)
	var wg sync.WaitGroup

	for t := 0; t < tasks; t++ {
		wg.Add(1)
		go func(task int) {
			defer wg.Done()
			errs[task] = fn(task)
		}(t)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
