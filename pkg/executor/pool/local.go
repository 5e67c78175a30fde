package pool

import (
	"context"
	"sync"
)

type ctxKey int

const workerIDKey ctxKey = iota

// CallerWorkerID is the worker identity reported inside tasks executed on
// the submitting goroutine by the CallerRuns policy.
const CallerWorkerID = -1

func withWorkerID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, workerIDKey, id)
}

// WorkerID returns the identity of the worker executing the current task.
// It reports false when ctx did not come from a pool execution.
func WorkerID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(workerIDKey).(int)
	return id, ok
}

// Local is storage keyed by worker identity: one lazily initialized value
// per worker, avoiding contention on shared state across tasks. Values
// must be released when their worker stops, typically from the pool's
// OnWorkerStop hook:
//
//	conns := pool.NewLocal(func(workerID int) *sql.Conn { return dial() })
//	cfg.OnWorkerStop = func(workerID int) { conns.Release(workerID) }
//
// Inside a task, the value for the executing worker comes from the task
// context:
//
//	conn, ok := conns.Get(ctx)
type Local[T any] struct {
	mu   sync.Mutex
	vals map[int]T
	init func(workerID int) T
}

// NewLocal creates worker-local storage with the given initializer.
func NewLocal[T any](init func(workerID int) T) *Local[T] {
	return &Local[T]{
		vals: make(map[int]T),
		init: init,
	}
}

// Get returns the value bound to the worker executing the task that owns
// ctx, initializing it on first use. It reports false when ctx does not
// carry a worker identity.
func (l *Local[T]) Get(ctx context.Context) (T, bool) {
	id, ok := WorkerID(ctx)
	if !ok {
		var zero T
		return zero, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.vals[id]
	if !ok {
		v = l.init(id)
		l.vals[id] = v
	}
	return v, true
}

// Release discards the value bound to workerID, if any, and returns it so
// callers can close resources it holds.
func (l *Local[T]) Release(workerID int) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.vals[workerID]
	if ok {
		delete(l.vals, workerID)
	}
	return v, ok
}
