// Package pool provides a bounded concurrent task-execution engine.
//
// An Executor couples a fixed-capacity task queue with an elastic worker
// set: CoreWorkers goroutines run for the pool's lifetime, and under load
// the pool grows toward MaxWorkers by handing overflow tasks directly to
// freshly spawned workers. Extra workers reap themselves after KeepAlive
// of idleness. When both the queue and the worker set are saturated, the
// configured RejectionPolicy decides the submission's fate.
//
// Every submission returns a *future.Future that resolves exactly once
// with the task's value, error, or cancellation.
//
// Basic usage:
//
//	exec, err := pool.New(4, 8, 64)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer func() { <-exec.Shutdown() }()
//
//	fut, err := exec.Submit(pool.TaskFunc(func(ctx context.Context) (any, error) {
//		return fetch(ctx, url)
//	}))
//	if err != nil {
//		log.Fatal(err)
//	}
//	v, err := fut.Get()
//
// Decorators compose on top of any Executor: NewThrottled adds a
// token-bucket submission limit, NewWithConfigAndMetrics adds Prometheus
// instrumentation, and RetryTask wraps an individual task with
// exponential-backoff retries.
package pool
