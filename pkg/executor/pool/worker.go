package pool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	gxerrors "github.com/vnykmshr/goexec/pkg/common/errors"
)

// worker owns one execution goroutine. Core workers live until shutdown;
// extra workers exit after KeepAlive of idleness.
type worker struct {
	id   int
	core bool
	pool *poolExecutor
}

// run is the main worker loop. seed is the overflow task an extra worker
// was spawned for, executed before touching the queue.
func (w *worker) run(seed *taskEntry) {
	p := w.pool
	defer p.workerWg.Done()
	defer func() {
		// A panic here escaped the task capture boundary: treat the
		// worker as crashed and restore pool capacity.
		if r := recover(); r != nil {
			p.log.Error("worker crashed, replacing",
				zap.Int("worker_id", w.id),
				zap.Any("panic", r))
			p.replaceWorker(w)
			return
		}
		p.removeWorker(w)
	}()
	defer func() {
		if p.config.OnWorkerStop != nil {
			p.config.OnWorkerStop(w.id)
		}
	}()

	if p.config.OnWorkerStart != nil {
		p.config.OnWorkerStart(w.id)
	}
	p.log.Debug("worker started",
		zap.Int("worker_id", w.id),
		zap.Bool("core", w.core))

	if seed != nil {
		w.execute(seed)
	}

	for {
		entry, err := w.next()
		if err != nil {
			p.log.Debug("worker exiting",
				zap.Int("worker_id", w.id),
				zap.Bool("idle_timeout", errors.Is(err, gxerrors.ErrTimeout)))
			return
		}
		w.execute(entry)
	}
}

// next dequeues the worker's next task. Extra workers use a timed take so
// they can reap themselves after KeepAlive of idleness.
func (w *worker) next() (*taskEntry, error) {
	if w.core || w.pool.config.KeepAlive <= 0 {
		return w.pool.tasks.Take()
	}
	return w.pool.tasks.TakeTimeout(w.pool.config.KeepAlive)
}

// execute claims the entry's future and runs the task inside the capture
// boundary, honouring the pool's hard timeout.
func (w *worker) execute(entry *taskEntry) {
	p := w.pool

	ctx, cancel := context.WithCancel(p.baseCtx)
	defer cancel()

	if !entry.fut.TryStart(cancel) {
		// Cancelled while queued; the computation must never run.
		return
	}
	ctx = withWorkerID(ctx, w.id)

	p.active.Add(1)
	defer p.active.Add(-1)

	if p.config.TaskHardTimeout > 0 {
		w.executeBounded(ctx, cancel, entry)
		return
	}
	v, err := p.runCaptured(ctx, entry)
	p.finish(entry, v, err)
}

// executeBounded runs the task in a child goroutine so the worker can
// stop waiting at the hard timeout. An overrunning task keeps its
// (cancelled) context as the cooperative stop signal; its goroutine is
// abandoned and the worker's capacity is restored, the closest Go
// equivalent to replacing a stuck thread.
func (w *worker) executeBounded(ctx context.Context, cancel context.CancelFunc, entry *taskEntry) {
	p := w.pool

	type outcome struct {
		v   any
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := p.runCaptured(ctx, entry)
		done <- outcome{v, err}
	}()

	timer := time.NewTimer(p.config.TaskHardTimeout)
	defer timer.Stop()

	select {
	case o := <-done:
		p.finish(entry, o.v, o.err)
	case <-timer.C:
		cancel()
		p.replaced.Add(1)
		p.log.Warn("task exceeded hard timeout, abandoning execution",
			zap.String("task_id", entry.id),
			zap.Int("worker_id", w.id),
			zap.Duration("hard_timeout", p.config.TaskHardTimeout))
		p.finish(entry, nil, fmt.Errorf("task %s exceeded hard timeout %v: %w",
			entry.id, p.config.TaskHardTimeout, gxerrors.ErrTimeout))
	}
}
