package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	gxerrors "github.com/vnykmshr/goexec/pkg/common/errors"
	"github.com/vnykmshr/goexec/pkg/common/validation"
	"github.com/vnykmshr/goexec/pkg/executor/future"
	"github.com/vnykmshr/goexec/pkg/executor/queue"
)

// Pool lifecycle states. Transitions are monotonic:
// running -> shutting down -> terminated.
const (
	stateRunning int32 = iota
	stateShuttingDown
	stateTerminated
)

// taskEntry carries a submission through the queue to a worker.
type taskEntry struct {
	id       string
	task     Task
	fut      *future.Future
	priority int
	enqueued time.Time
}

// poolExecutor implements Executor.
type poolExecutor struct {
	config Config
	log    *zap.Logger

	tasks queue.Queue[*taskEntry]

	// baseCtx is the parent of every task context; cancelling it is the
	// interruption signal used by ShutdownNow.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	state        atomic.Int32
	shutdownOnce sync.Once
	terminated   chan struct{}

	mu           sync.Mutex
	workers      map[int]*worker
	nextWorkerID int
	workerWg     sync.WaitGroup

	active         atomic.Int32
	totalSubmitted atomic.Int64
	totalCompleted atomic.Int64
	replaced       atomic.Int64
}

// NewWithConfig creates an executor with the specified configuration.
// Core workers are started eagerly.
func NewWithConfig(config Config) (Executor, error) {
	if err := validation.Positive("pool", "CoreWorkers", config.CoreWorkers); err != nil {
		return nil, err
	}
	if config.MaxWorkers == 0 {
		config.MaxWorkers = config.CoreWorkers
	}
	if err := validation.Ordered("pool", "CoreWorkers", "MaxWorkers", config.CoreWorkers, config.MaxWorkers); err != nil {
		return nil, err
	}
	if err := validation.AtLeast("pool", "QueueCapacity", config.QueueCapacity, 1); err != nil {
		return nil, err
	}
	if err := validation.NonNegativeDuration("pool", "KeepAlive", config.KeepAlive); err != nil {
		return nil, err
	}
	if err := validation.NonNegativeDuration("pool", "TaskHardTimeout", config.TaskHardTimeout); err != nil {
		return nil, err
	}
	if err := validation.NonNegativeDuration("pool", "RejectionWait", config.RejectionWait); err != nil {
		return nil, err
	}
	if config.RejectionWait == 0 {
		config.RejectionWait = defaultRejectionWait
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	var tasks queue.Queue[*taskEntry]
	var err error
	if config.PriorityQueue {
		tasks, err = queue.NewPriority[*taskEntry](config.QueueCapacity, func(e *taskEntry) int {
			return e.priority
		})
	} else {
		tasks, err = queue.NewFIFO[*taskEntry](config.QueueCapacity)
	}
	if err != nil {
		return nil, err
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	p := &poolExecutor{
		config:     config,
		log:        config.Logger,
		tasks:      tasks,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		terminated: make(chan struct{}),
		workers:    make(map[int]*worker),
	}

	p.mu.Lock()
	for i := 0; i < config.CoreWorkers; i++ {
		p.spawnWorkerLocked(true, nil)
	}
	p.mu.Unlock()

	return p, nil
}

// Submit adds a task to the pool and returns its future.
func (p *poolExecutor) Submit(task Task) (*future.Future, error) {
	return p.submit(task, 0)
}

// SubmitWithPriority adds a task with an ordering hint; see Executor.
func (p *poolExecutor) SubmitWithPriority(task Task, priority int) (*future.Future, error) {
	return p.submit(task, priority)
}

func (p *poolExecutor) submit(task Task, priority int) (*future.Future, error) {
	if err := validation.NotNil("pool", "task", task); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	fut := future.New(id)
	entry := &taskEntry{
		id:       id,
		task:     task,
		fut:      fut,
		priority: priority,
		enqueued: time.Now(),
	}

	if p.state.Load() != stateRunning {
		fut.Fail(gxerrors.ErrClosed)
		return fut, fmt.Errorf("submit task %s: %w", id, gxerrors.ErrClosed)
	}

	// Fast path: the queue has room.
	err := p.tasks.TryPut(entry)
	if err == nil {
		p.totalSubmitted.Add(1)
		return fut, nil
	}
	if errors.Is(err, gxerrors.ErrClosed) {
		fut.Fail(gxerrors.ErrClosed)
		return fut, fmt.Errorf("submit task %s: %w", id, gxerrors.ErrClosed)
	}

	// Queue full: grow toward MaxWorkers, handing the overflow task
	// straight to the new worker.
	if p.spawnOverflowWorker(entry) {
		p.totalSubmitted.Add(1)
		return fut, nil
	}

	// Saturated: queue full and pool at maximum size. Rejected
	// submissions do not count as accepted.
	if err := p.applyRejection(entry); err != nil {
		return fut, err
	}
	p.totalSubmitted.Add(1)
	return fut, nil
}

// spawnOverflowWorker starts an extra worker seeded with entry if the
// pool is still below MaxWorkers.
func (p *poolExecutor) spawnOverflowWorker(entry *taskEntry) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Load() != stateRunning || len(p.workers) >= p.config.MaxWorkers {
		return false
	}
	p.spawnWorkerLocked(false, entry)
	return true
}

func (p *poolExecutor) spawnWorkerLocked(core bool, seed *taskEntry) {
	id := p.nextWorkerID
	p.nextWorkerID++
	w := &worker{id: id, core: core, pool: p}
	p.workers[id] = w
	p.workerWg.Add(1)
	go w.run(seed)
}

func (p *poolExecutor) removeWorker(w *worker) {
	p.mu.Lock()
	delete(p.workers, w.id)
	p.mu.Unlock()
}

// replaceWorker restores pool capacity after a worker crashed outside the
// task capture boundary.
func (p *poolExecutor) replaceWorker(w *worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.workers, w.id)
	if p.state.Load() != stateRunning {
		return
	}
	p.replaced.Add(1)
	p.spawnWorkerLocked(w.core, nil)
}

// applyRejection resolves a submission that found the pool saturated.
// Whatever the policy decides, the entry's future ends up resolved.
func (p *poolExecutor) applyRejection(entry *taskEntry) error {
	switch p.config.RejectionPolicy {
	case CallerRuns:
		p.runOnCaller(entry)
		return nil

	case DropOldest:
		return p.dropOldest(entry)

	case BlockTimeout:
		err := p.tasks.PutTimeout(entry, p.config.RejectionWait)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, gxerrors.ErrClosed):
			entry.fut.Fail(gxerrors.ErrClosed)
			return fmt.Errorf("submit task %s: %w", entry.id, gxerrors.ErrClosed)
		default:
			return p.abort(entry)
		}

	default: // Abort
		return p.abort(entry)
	}
}

func (p *poolExecutor) abort(entry *taskEntry) error {
	err := fmt.Errorf("submit task %s: %w", entry.id, gxerrors.ErrOverloaded)
	entry.fut.Fail(gxerrors.ErrOverloaded)
	p.log.Debug("task rejected",
		zap.String("task_id", entry.id),
		zap.Stringer("policy", p.config.RejectionPolicy))
	return err
}

// dropOldest evicts queued tasks until the new entry fits. Evicted tasks
// have not started (they were still queued), so their futures cancel
// cleanly.
func (p *poolExecutor) dropOldest(entry *taskEntry) error {
	for {
		err := p.tasks.TryPut(entry)
		if err == nil {
			return nil
		}
		if errors.Is(err, gxerrors.ErrClosed) {
			entry.fut.Fail(gxerrors.ErrClosed)
			return fmt.Errorf("submit task %s: %w", entry.id, gxerrors.ErrClosed)
		}

		evicted, ok := p.tasks.EvictOldest()
		if !ok {
			// Workers drained the queue in the meantime; retry the put.
			continue
		}
		evicted.fut.Cancel(false)
		p.log.Debug("dropped oldest queued task",
			zap.String("dropped_task_id", evicted.id),
			zap.String("task_id", entry.id))
	}
}

// runOnCaller executes the task synchronously on the submitting
// goroutine.
func (p *poolExecutor) runOnCaller(entry *taskEntry) {
	ctx, cancel := context.WithCancel(p.baseCtx)
	defer cancel()

	if !entry.fut.TryStart(cancel) {
		return
	}
	ctx = withWorkerID(ctx, CallerWorkerID)
	v, err := p.runCaptured(ctx, entry)
	p.finish(entry, v, err)
}

// runCaptured executes the task inside the mandatory capture boundary:
// any panic becomes a task failure, never a worker crash.
func (p *poolExecutor) runCaptured(ctx context.Context, entry *taskEntry) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", entry.id, r)
			p.log.Error("task panicked",
				zap.String("task_id", entry.id),
				zap.Any("panic", r))
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(entry.id, r)
			}
		}
	}()
	return entry.task.Execute(ctx)
}

// finish resolves the entry's future with the execution outcome.
func (p *poolExecutor) finish(entry *taskEntry, v any, err error) {
	p.totalCompleted.Add(1)
	if err != nil {
		entry.fut.Fail(err)
		return
	}
	entry.fut.Complete(v)
}

// Shutdown initiates a graceful shutdown of the pool.
func (p *poolExecutor) Shutdown() <-chan struct{} {
	p.initiateShutdown()
	return p.terminated
}

// ShutdownWithTimeout shuts down gracefully, escalating to ShutdownNow if
// the pool has not terminated within timeout.
func (p *poolExecutor) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	done := p.Shutdown()
	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			p.log.Warn("graceful shutdown timed out, cancelling remaining work",
				zap.Duration("timeout", timeout))
			p.ShutdownNow()
		}
	}()
	return done
}

// ShutdownNow stops the pool immediately; see Executor.
func (p *poolExecutor) ShutdownNow() []Task {
	p.initiateShutdown()

	entries := p.tasks.Drain()
	tasks := make([]Task, 0, len(entries))
	for _, e := range entries {
		e.fut.Cancel(false)
		tasks = append(tasks, e.task)
	}

	// Interrupt in-flight tasks cooperatively.
	p.baseCancel()

	p.log.Info("immediate shutdown",
		zap.Int("cancelled_tasks", len(tasks)))
	return tasks
}

func (p *poolExecutor) initiateShutdown() {
	p.shutdownOnce.Do(func() {
		p.state.Store(stateShuttingDown)
		// Closing the queue rejects new puts while letting workers drain
		// what is already buffered.
		p.tasks.Close()
		p.log.Info("shutdown initiated",
			zap.Int("queued_tasks", p.tasks.Len()))

		go func() {
			p.workerWg.Wait()
			p.state.Store(stateTerminated)
			p.baseCancel()
			close(p.terminated)
			p.log.Info("pool terminated")
		}()
	})
}

// AwaitTermination blocks until the pool terminates or timeout elapses.
func (p *poolExecutor) AwaitTermination(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.terminated:
		return true
	case <-timer.C:
		return false
	}
}

// IsShutdown reports whether shutdown has been initiated.
func (p *poolExecutor) IsShutdown() bool {
	return p.state.Load() != stateRunning
}

// IsTerminated reports whether all workers have exited.
func (p *poolExecutor) IsTerminated() bool {
	return p.state.Load() == stateTerminated
}

// Workers returns the number of live workers.
func (p *poolExecutor) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *poolExecutor) ActiveWorkers() int {
	return int(p.active.Load())
}

// QueueDepth returns the number of queued tasks.
func (p *poolExecutor) QueueDepth() int {
	return p.tasks.Len()
}

// TotalSubmitted returns the number of accepted submissions.
func (p *poolExecutor) TotalSubmitted() int64 {
	return p.totalSubmitted.Load()
}

// TotalCompleted returns the number of tasks that reached a terminal
// outcome.
func (p *poolExecutor) TotalCompleted() int64 {
	return p.totalCompleted.Load()
}
