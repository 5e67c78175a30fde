/*
Package goexec provides a bounded concurrent task-execution engine for Go
applications: a fixed-capacity task queue, an elastic worker pool, future
result handles, pluggable overload policies, and delayed/periodic scheduling.

Execution (pkg/executor):
  - queue: bounded FIFO and priority task queues with blocking, non-blocking
    and timed operations
  - future: write-once result handles with cancellation and composition
  - pool: elastic worker pool with core/max sizing, rejection policies and
    lifecycle management
  - scheduled: delayed, fixed-rate, fixed-delay and cron scheduling on top
    of a pool

Supporting packages:
  - pkg/common/errors: shared error taxonomy
  - pkg/metrics: Prometheus instrumentation

Example usage:

	import (
		"github.com/vnykmshr/goexec/pkg/executor/pool"
	)

	exec, _ := pool.New(4, 8, 100) // 4 core workers, max 8, queue 100
	defer func() { <-exec.Shutdown() }()

	fut, err := exec.Submit(pool.TaskFunc(func(ctx context.Context) (any, error) {
		return compute(ctx)
	}))
	if err != nil {
		log.Fatal(err)
	}

	value, err := fut.Get()
*/
package goexec
