package pool

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryTask wraps a task with exponential-backoff retries. The wrapped
// task is retried until it succeeds, the attempt budget is exhausted, or
// the context is cancelled; the last error is reported on the future.
type RetryTask struct {
	// Task is the computation to retry.
	Task Task

	// MaxAttempts bounds the total number of executions. Zero means
	// retry until the context is cancelled.
	MaxAttempts uint

	// InitialInterval is the first backoff delay. Defaults to the
	// backoff package's default when zero.
	InitialInterval time.Duration

	// MaxInterval caps the growth of the backoff delay.
	MaxInterval time.Duration
}

// Execute implements Task.
func (rt RetryTask) Execute(ctx context.Context) (any, error) {
	bo := backoff.NewExponentialBackOff()
	if rt.InitialInterval > 0 {
		bo.InitialInterval = rt.InitialInterval
	}
	if rt.MaxInterval > 0 {
		bo.MaxInterval = rt.MaxInterval
	}

	opts := []backoff.RetryOption{backoff.WithBackOff(bo)}
	if rt.MaxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(rt.MaxAttempts))
	}

	return backoff.Retry(ctx, func() (any, error) {
		return rt.Task.Execute(ctx)
	}, opts...)
}
