package pool

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	gxerrors "github.com/vnykmshr/goexec/pkg/common/errors"
	"github.com/vnykmshr/goexec/pkg/executor/future"
	"github.com/vnykmshr/goexec/pkg/metrics"
)

// MetricsExecutor wraps an Executor with Prometheus metrics collection.
type MetricsExecutor struct {
	exec     Executor
	name     string
	registry *metrics.Registry
	enabled  bool
}

// NewWithMetrics creates an executor with metrics enabled on a dedicated
// Prometheus registry.
func NewWithMetrics(coreWorkers, maxWorkers, queueCapacity int, name string) (Executor, error) {
	registry := prometheus.NewRegistry()
	return NewWithConfigAndMetrics(Config{
		CoreWorkers:   coreWorkers,
		MaxWorkers:    maxWorkers,
		QueueCapacity: queueCapacity,
	}, name, metrics.Config{Enabled: true, Registry: registry})
}

// NewWithConfigAndMetrics creates an executor with custom config and
// metrics.
func NewWithConfigAndMetrics(config Config, name string, metricsConfig metrics.Config) (Executor, error) {
	base, err := NewWithConfig(config)
	if err != nil {
		return nil, err
	}
	if !metricsConfig.Enabled {
		return base, nil
	}

	registry := metrics.DefaultRegistry
	if metricsConfig.Registry != nil {
		registry = metrics.NewRegistry(metricsConfig.Registry)
	}

	me := &MetricsExecutor{
		exec:     base,
		name:     name,
		registry: registry,
		enabled:  true,
	}
	me.updateGauges()
	return me, nil
}

func (me *MetricsExecutor) updateGauges() {
	if !me.enabled {
		return
	}
	me.registry.ExecutorWorkers.WithLabelValues(me.name).Set(float64(me.exec.Workers()))
	me.registry.ExecutorActive.WithLabelValues(me.name).Set(float64(me.exec.ActiveWorkers()))
	me.registry.ExecutorQueued.WithLabelValues(me.name).Set(float64(me.exec.QueueDepth()))
}

// Submit submits the task and records submission/outcome metrics.
func (me *MetricsExecutor) Submit(task Task) (*future.Future, error) {
	return me.SubmitWithPriority(task, 0)
}

// SubmitWithPriority submits with an ordering hint and records metrics.
func (me *MetricsExecutor) SubmitWithPriority(task Task, priority int) (*future.Future, error) {
	fut, err := me.exec.SubmitWithPriority(&metricsTask{
		original:   task,
		me:         me,
		submitTime: time.Now(),
	}, priority)

	if me.enabled {
		me.registry.TasksSubmitted.WithLabelValues(me.name).Inc()
		if err != nil {
			me.registry.TasksRejected.WithLabelValues(me.name).Inc()
		}
		me.updateGauges()
	}
	return fut, err
}

// metricsTask wraps a Task to record execution metrics.
type metricsTask struct {
	original   Task
	me         *MetricsExecutor
	submitTime time.Time
}

// Execute runs the original task, recording queue wait, execution
// duration and the outcome.
func (mt *metricsTask) Execute(ctx context.Context) (any, error) {
	me := mt.me
	start := time.Now()
	if me.enabled {
		me.registry.TaskQueueWait.WithLabelValues(me.name).Observe(start.Sub(mt.submitTime).Seconds())
	}

	v, err := mt.original.Execute(ctx)

	if me.enabled {
		me.registry.TaskExecutionDuration.WithLabelValues(me.name).Observe(time.Since(start).Seconds())
		switch {
		case err == nil:
			me.registry.TasksCompleted.WithLabelValues(me.name).Inc()
		case errors.Is(err, context.Canceled) || errors.Is(err, gxerrors.ErrCancelled):
			me.registry.TasksCancelled.WithLabelValues(me.name).Inc()
		default:
			me.registry.TasksFailed.WithLabelValues(me.name).Inc()
		}
		me.updateGauges()
	}
	return v, err
}

// Shutdown initiates graceful shutdown of the wrapped executor.
func (me *MetricsExecutor) Shutdown() <-chan struct{} {
	done := me.exec.Shutdown()
	me.updateGauges()
	return done
}

// ShutdownWithTimeout shuts down gracefully with an escalation timeout.
func (me *MetricsExecutor) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	done := me.exec.ShutdownWithTimeout(timeout)
	me.updateGauges()
	return done
}

// ShutdownNow stops the wrapped executor immediately.
func (me *MetricsExecutor) ShutdownNow() []Task {
	tasks := me.exec.ShutdownNow()
	if me.enabled {
		me.registry.TasksCancelled.WithLabelValues(me.name).Add(float64(len(tasks)))
		me.updateGauges()
	}
	// Unwrap so callers get back the tasks they submitted.
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		if mt, ok := t.(*metricsTask); ok {
			out[i] = mt.original
			continue
		}
		out[i] = t
	}
	return out
}

// AwaitTermination blocks until the wrapped executor terminates or the
// timeout elapses.
func (me *MetricsExecutor) AwaitTermination(timeout time.Duration) bool {
	return me.exec.AwaitTermination(timeout)
}

// IsShutdown reports whether shutdown has been initiated.
func (me *MetricsExecutor) IsShutdown() bool { return me.exec.IsShutdown() }

// IsTerminated reports whether the wrapped executor has terminated.
func (me *MetricsExecutor) IsTerminated() bool { return me.exec.IsTerminated() }

// Workers returns the number of live workers.
func (me *MetricsExecutor) Workers() int { return me.exec.Workers() }

// ActiveWorkers returns the number of workers currently executing.
func (me *MetricsExecutor) ActiveWorkers() int {
	active := me.exec.ActiveWorkers()
	if me.enabled {
		me.registry.ExecutorActive.WithLabelValues(me.name).Set(float64(active))
	}
	return active
}

// QueueDepth returns the number of queued tasks.
func (me *MetricsExecutor) QueueDepth() int {
	depth := me.exec.QueueDepth()
	if me.enabled {
		me.registry.ExecutorQueued.WithLabelValues(me.name).Set(float64(depth))
	}
	return depth
}

// TotalSubmitted returns the number of accepted submissions.
func (me *MetricsExecutor) TotalSubmitted() int64 { return me.exec.TotalSubmitted() }

// TotalCompleted returns the number of terminally resolved tasks.
func (me *MetricsExecutor) TotalCompleted() int64 { return me.exec.TotalCompleted() }

// EnableMetrics enables metrics collection.
func (me *MetricsExecutor) EnableMetrics(config metrics.Config) error {
	me.enabled = config.Enabled
	if config.Registry != nil {
		me.registry = metrics.NewRegistry(config.Registry)
	}
	if me.enabled {
		me.updateGauges()
	}
	return nil
}

// DisableMetrics disables metrics collection.
func (me *MetricsExecutor) DisableMetrics() {
	me.enabled = false
}

// MetricsEnabled returns true if metrics are currently enabled.
func (me *MetricsExecutor) MetricsEnabled() bool {
	return me.enabled
}
