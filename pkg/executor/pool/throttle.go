package pool

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/vnykmshr/goexec/pkg/common/validation"
	"github.com/vnykmshr/goexec/pkg/executor/future"
)

// ThrottledExecutor wraps an Executor with a token-bucket limit on the
// submission rate. Submissions beyond the rate block until a token is
// available, smoothing bursts before they ever reach the queue.
type ThrottledExecutor struct {
	Executor
	limiter *rate.Limiter
}

// NewThrottled wraps exec so that sustained submissions stay at or below
// perSecond, with the given burst allowance.
func NewThrottled(exec Executor, perSecond float64, burst int) (*ThrottledExecutor, error) {
	if err := validation.NotNil("pool", "exec", exec); err != nil {
		return nil, err
	}
	if err := validation.PositiveFloat("pool", "perSecond", perSecond); err != nil {
		return nil, err
	}
	if err := validation.Positive("pool", "burst", burst); err != nil {
		return nil, err
	}
	return &ThrottledExecutor{
		Executor: exec,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
	}, nil
}

// Submit waits for rate-limit clearance, then submits to the wrapped
// executor.
func (t *ThrottledExecutor) Submit(task Task) (*future.Future, error) {
	return t.SubmitWithContext(context.Background(), task)
}

// SubmitWithPriority waits for rate-limit clearance, then submits with
// the given priority.
func (t *ThrottledExecutor) SubmitWithPriority(task Task, priority int) (*future.Future, error) {
	if err := t.limiter.Wait(context.Background()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return t.Executor.SubmitWithPriority(task, priority)
}

// SubmitWithContext is Submit bounded by ctx while waiting for clearance.
func (t *ThrottledExecutor) SubmitWithContext(ctx context.Context, task Task) (*future.Future, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return t.Executor.Submit(task)
}
