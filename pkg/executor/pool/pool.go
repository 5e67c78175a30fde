package pool

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vnykmshr/goexec/pkg/executor/future"
)

// Task represents a unit of work that can be executed by a worker.
type Task interface {
	// Execute runs the task with the given context and returns the
	// produced value or an error. It should respect context cancellation:
	// that is the only way a running task can be interrupted.
	Execute(ctx context.Context) (any, error)
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) (any, error)

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) (any, error) {
	return f(ctx)
}

// RejectionPolicy selects what happens to a submission when the queue is
// full and the pool is already at MaxWorkers.
type RejectionPolicy int

const (
	// Abort fails the submission immediately with ErrOverloaded.
	Abort RejectionPolicy = iota

	// CallerRuns executes the task synchronously on the submitting
	// goroutine, providing natural backpressure.
	CallerRuns

	// DropOldest evicts the head of the queue, cancels its future and
	// enqueues the new task in its place.
	DropOldest

	// BlockTimeout retries a blocking enqueue up to RejectionWait before
	// falling back to Abort.
	BlockTimeout
)

// String returns the policy name.
func (rp RejectionPolicy) String() string {
	switch rp {
	case Abort:
		return "abort"
	case CallerRuns:
		return "caller-runs"
	case DropOldest:
		return "drop-oldest"
	case BlockTimeout:
		return "block-timeout"
	default:
		return fmt.Sprintf("policy(%d)", int(rp))
	}
}

// Executor is a bounded concurrent task-execution engine: submissions are
// buffered in a fixed-capacity queue and executed by a worker set sized
// between CoreWorkers and MaxWorkers.
type Executor interface {
	// Submit hands a task to the pool and returns its future. When the
	// pool is saturated the configured RejectionPolicy decides the
	// outcome; a rejected task's future is always resolved, never left
	// pending.
	Submit(task Task) (*future.Future, error)

	// SubmitWithPriority is Submit with an ordering hint. The priority is
	// honoured only by pools configured with PriorityQueue; FIFO pools
	// ignore it.
	SubmitWithPriority(task Task, priority int) (*future.Future, error)

	// Shutdown initiates a graceful shutdown: no new tasks are accepted,
	// queued and in-flight tasks run to completion. The returned channel
	// closes once all workers have exited.
	Shutdown() <-chan struct{}

	// ShutdownWithTimeout is Shutdown, escalating to ShutdownNow if
	// termination does not complete within timeout.
	ShutdownWithTimeout(timeout time.Duration) <-chan struct{}

	// ShutdownNow stops accepting tasks, cancels everything still queued
	// and signals interruption to in-flight tasks. It returns the tasks
	// that never started; their futures are resolved as Cancelled.
	ShutdownNow() []Task

	// AwaitTermination blocks until the pool is terminated or the timeout
	// elapses, reporting whether termination happened.
	AwaitTermination(timeout time.Duration) bool

	// IsShutdown reports whether shutdown has been initiated.
	IsShutdown() bool

	// IsTerminated reports whether all workers have exited.
	IsTerminated() bool

	// Workers returns the current number of live workers.
	Workers() int

	// ActiveWorkers returns the number of workers currently executing.
	ActiveWorkers() int

	// QueueDepth returns the number of tasks waiting in the queue.
	QueueDepth() int

	// TotalSubmitted returns the number of tasks accepted for execution.
	TotalSubmitted() int64

	// TotalCompleted returns the number of tasks that reached a terminal
	// outcome through this pool.
	TotalCompleted() int64
}

// Config holds configuration options for creating an executor.
type Config struct {
	// CoreWorkers is the number of workers kept alive for the pool's
	// lifetime. They are started eagerly. Must be > 0.
	CoreWorkers int

	// MaxWorkers bounds pool growth under load. When the queue is full
	// and fewer than MaxWorkers workers exist, the overflow task is
	// handed directly to a newly spawned worker instead of being
	// rejected. Must be >= CoreWorkers.
	MaxWorkers int

	// QueueCapacity is the fixed size of the task queue. Must be > 0.
	QueueCapacity int

	// KeepAlive is how long a worker beyond CoreWorkers waits idle before
	// exiting, shrinking the pool back toward its core size. Zero keeps
	// extra workers alive until shutdown.
	KeepAlive time.Duration

	// TaskHardTimeout bounds a single task execution. On overrun the
	// task's context is cancelled, its future fails with ErrTimeout and
	// the worker moves on; the runaway goroutine is abandoned (Go offers
	// no forced preemption). Zero disables the limit.
	TaskHardTimeout time.Duration

	// RejectionPolicy selects the overload behavior. Defaults to Abort.
	RejectionPolicy RejectionPolicy

	// RejectionWait is the bounded wait used by BlockTimeout.
	// Defaults to one second.
	RejectionWait time.Duration

	// PriorityQueue orders queued tasks by submission priority instead of
	// FIFO. Ordering within one priority remains FIFO.
	PriorityQueue bool

	// Logger receives worker lifecycle and failure events.
	// Defaults to a no-op logger.
	Logger *zap.Logger

	// PanicHandler is called when a task panics during execution. The
	// panic is always captured on the task's future regardless.
	PanicHandler func(taskID string, recovered any)

	// OnWorkerStart is called when a worker starts. Useful for per-worker
	// initialization such as database connections.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker stops. Useful for per-worker
	// cleanup, including releasing Local values.
	OnWorkerStop func(workerID int)
}

const defaultRejectionWait = time.Second

// New creates an executor with the given sizing and default behavior for
// everything else.
func New(coreWorkers, maxWorkers, queueCapacity int) (Executor, error) {
	return NewWithConfig(Config{
		CoreWorkers:   coreWorkers,
		MaxWorkers:    maxWorkers,
		QueueCapacity: queueCapacity,
	})
}
