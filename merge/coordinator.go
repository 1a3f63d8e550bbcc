package merge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/gviegas/consolidate/geom"
)

// Coordinator is the MergeCoordinator: a single orchestrator thread
// dispatches one independent merge Task per bucket to a bounded worker
// pool, then blocks until every dispatched task has installed its
// result. Buckets share no mutable state, so tasks need no
// synchronization with each other, only with the coordinator's final
// install step.
type Coordinator struct {
	pool *ants.Pool
}

// NewCoordinator creates a Coordinator backed by a worker pool of the
// given size. A size of 0 or less uses ants' default pool size.
func NewCoordinator(poolSize int) (*Coordinator, error) {
	var pool *ants.Pool
	var err error
	if poolSize > 0 {
		pool, err = ants.NewPool(poolSize)
	} else {
		pool, err = ants.NewPool(ants.DefaultAntsPoolSize)
	}
	if err != nil {
		return nil, errors.New(prefix + "failed to create worker pool: " + err.Error())
	}
	return &Coordinator{pool: pool}, nil
}

// Release frees the Coordinator's worker pool. It must be called once
// the Coordinator is no longer needed.
func (c *Coordinator) Release() { c.pool.Release() }

// Dispatch runs one merge Task per non-empty bucket and blocks until
// every dispatched task has installed its result in the returned
// slice (indexed like buckets). A nil or empty bucket is skipped and
// leaves a nil entry.
//
// All submitted tasks run to completion even if one of them fails;
// the first error encountered is returned once every task has
// finished.
func (c *Coordinator) Dispatch(buckets []*Bucket) ([]*geom.Buffer, error) {
	out := make([]*geom.Buffer, len(buckets))
	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error

	for i, b := range buckets {
		if b == nil || b.Len() == 0 {
			continue
		}
		i, b := i, b
		wg.Add(1)

		task := Task{ID: i, Bucket: b}
		run := func() {
			defer wg.Done()
			res := task.Run()
			if res.Err != nil {
				errOnce.Do(func() {
					firstErr = fmt.Errorf("%sworker task %d failed: %w", prefix, res.TaskID, res.Err)
				})
				return
			}
			out[i] = res.Geom
		}
		if err := c.pool.Submit(run); err != nil {
			wg.Done()
			errOnce.Do(func() {
				firstErr = fmt.Errorf("%sworker pool rejected task %d: %w", prefix, i, err)
			})
		}
	}

	wg.Wait()
	return out, firstErr
}
