package randomxpow

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// splitWork fans a unit of work of size workSize out across routines
// goroutines, each goroutine repeatedly claiming the next unclaimed index
// until the work is exhausted. Used to build a RandomX dataset in
// parallel the same way the dataset's real C implementation expects
// disjoint item ranges to be filled concurrently.
func splitWork(routines int, workSize uint64, do func(workIndex uint64, routineIndex int) error) error {
	if routines <= 0 {
		routines = runtime.NumCPU()
	}
	if workSize < uint64(routines) {
		routines = int(workSize)
	}
	if routines <= 0 {
		return nil
	}

	var counter atomic.Uint64
	var eg errgroup.Group

	for routineIndex := 0; routineIndex < routines; routineIndex++ {
		innerRoutineIndex := routineIndex
		eg.Go(func() error {
			for {
				workIndex := counter.Add(1)
				if workIndex > workSize {
					return nil
				}
				if err := do(workIndex-1, innerRoutineIndex); err != nil {
					return err
				}
			}
		})
	}
	return eg.Wait()
}
