package future

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gxerrors "github.com/vnykmshr/goexec/pkg/common/errors"
)

// State describes the lifecycle position of a Future.
type State int32

const (
	// Pending means no terminal outcome has been recorded yet.
	Pending State = iota
	// Completed means the task produced a value.
	Completed
	// Failed means the task returned an error or panicked.
	Failed
	// Cancelled means the task was cancelled before producing a result.
	Cancelled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Future is a write-once container for a task's eventual outcome.
// State transitions are monotonic: Pending moves to exactly one of
// Completed, Failed or Cancelled and never changes again.
type Future struct {
	taskID string

	mu        sync.Mutex
	state     State
	value     any
	err       error
	started   bool
	interrupt context.CancelFunc
	intReq    bool
	callbacks []func(*Future)

	done chan struct{}
}

// New creates a pending Future identified by taskID.
func New(taskID string) *Future {
	return &Future{
		taskID: taskID,
		done:   make(chan struct{}),
	}
}

// TaskID returns the identifier of the task this future belongs to.
func (f *Future) TaskID() string {
	return f.taskID
}

// Done returns a channel closed when the future reaches a terminal state.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the future is terminal, then returns the value or the
// captured error. A cancelled future reports ErrCancelled.
func (f *Future) Get() (any, error) {
	<-f.done
	return f.outcome()
}

// GetWithTimeout is Get bounded by timeout. It fails with ErrTimeout if
// no terminal state is reached in time; the underlying task keeps running.
func (f *Future) GetWithTimeout(timeout time.Duration) (any, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.outcome()
	case <-timer.C:
		return nil, gxerrors.ErrTimeout
	}
}

// GetWithContext is Get bounded by ctx.
func (f *Future) GetWithContext(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.outcome()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsDone reports whether the future reached any terminal state.
func (f *Future) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// IsCancelled reports whether the future ended cancelled.
func (f *Future) IsCancelled() bool {
	return f.State() == Cancelled
}

// State returns the current state.
func (f *Future) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Cancel attempts to cancel the task.
//
// If the task has not started, the future becomes Cancelled and Cancel
// returns true; the task's computation is guaranteed never to run. If the
// task is already running and mayInterrupt is true, the task's context is
// cancelled and Cancel returns true; the future ends Cancelled only if
// the task honours the interruption. Cancel of a terminal future returns
// false.
func (f *Future) Cancel(mayInterrupt bool) bool {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return false
	}
	if !f.started {
		cbs := f.resolveLocked(Cancelled, nil, gxerrors.ErrCancelled)
		f.mu.Unlock()
		f.fire(cbs)
		return true
	}
	if !mayInterrupt {
		f.mu.Unlock()
		return false
	}
	f.intReq = true
	interrupt := f.interrupt
	f.mu.Unlock()

	if interrupt != nil {
		interrupt()
	}
	return true
}

// TryStart claims the future for execution and binds the cooperative
// interrupt hook. It returns false if the future was cancelled (or
// otherwise resolved) before the task started; the caller must then skip
// execution.
func (f *Future) TryStart(interrupt context.CancelFunc) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Pending || f.started {
		return false
	}
	f.started = true
	f.interrupt = interrupt
	return true
}

// Complete records a successful outcome. It returns false if the future
// was already terminal.
func (f *Future) Complete(value any) bool {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return false
	}
	cbs := f.resolveLocked(Completed, value, nil)
	f.mu.Unlock()
	f.fire(cbs)
	return true
}

// Fail records a failure outcome. A context.Canceled failure following a
// requested interruption is recorded as Cancelled, satisfying the rule
// that a future ends cancelled only through successful interruption or
// cancellation before start.
func (f *Future) Fail(err error) bool {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return false
	}
	state := Failed
	if f.intReq && errors.Is(err, context.Canceled) {
		state = Cancelled
		err = gxerrors.ErrCancelled
	}
	cbs := f.resolveLocked(state, nil, err)
	f.mu.Unlock()
	f.fire(cbs)
	return true
}

// resolveLocked records the terminal outcome and returns the callbacks to
// fire. Caller holds f.mu.
func (f *Future) resolveLocked(state State, value any, err error) []func(*Future) {
	f.state = state
	f.value = value
	f.err = err
	f.interrupt = nil
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	return cbs
}

func (f *Future) fire(cbs []func(*Future)) {
	for _, cb := range cbs {
		cb(f)
	}
}

// outcome reads the terminal result. Only valid after done is closed; the
// happens-before edge of the channel close makes the fields safe to read
// without the lock.
func (f *Future) outcome() (any, error) {
	return f.value, f.err
}

// whenDone registers cb to run exactly once when the future turns
// terminal. If it already is, cb runs immediately on the calling
// goroutine.
func (f *Future) whenDone(cb func(*Future)) {
	f.mu.Lock()
	if f.state == Pending {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	cb(f)
}
