// Package metrics provides Prometheus instrumentation for goexec components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for goexec components.
type Registry struct {
	// Executor metrics
	ExecutorWorkers *prometheus.GaugeVec
	ExecutorActive  *prometheus.GaugeVec
	ExecutorQueued  *prometheus.GaugeVec

	TasksSubmitted *prometheus.CounterVec
	TasksCompleted *prometheus.CounterVec
	TasksFailed    *prometheus.CounterVec
	TasksRejected  *prometheus.CounterVec
	TasksCancelled *prometheus.CounterVec

	TaskExecutionDuration *prometheus.HistogramVec
	TaskQueueWait         *prometheus.HistogramVec

	WorkerReplacements *prometheus.CounterVec

	// Scheduler metrics
	ScheduledPending *prometheus.GaugeVec
	ScheduledFired   *prometheus.CounterVec
	ScheduledMissed  *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by goexec components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		ExecutorWorkers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "goexec",
				Subsystem: "pool",
				Name:      "workers",
				Help:      "Current number of live workers",
			},
			[]string{"pool_name"},
		),

		ExecutorActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "goexec",
				Subsystem: "pool",
				Name:      "active_workers",
				Help:      "Number of workers currently executing tasks",
			},
			[]string{"pool_name"},
		),

		ExecutorQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "goexec",
				Subsystem: "pool",
				Name:      "queued_tasks",
				Help:      "Number of tasks waiting in the queue",
			},
			[]string{"pool_name"},
		),

		TasksSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goexec",
				Subsystem: "pool",
				Name:      "tasks_submitted_total",
				Help:      "Total number of tasks submitted",
			},
			[]string{"pool_name"},
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goexec",
				Subsystem: "pool",
				Name:      "tasks_completed_total",
				Help:      "Total number of tasks completed successfully",
			},
			[]string{"pool_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goexec",
				Subsystem: "pool",
				Name:      "tasks_failed_total",
				Help:      "Total number of tasks that returned an error or panicked",
			},
			[]string{"pool_name"},
		),

		TasksRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goexec",
				Subsystem: "pool",
				Name:      "tasks_rejected_total",
				Help:      "Total number of submissions rejected by the overload policy",
			},
			[]string{"pool_name"},
		),

		TasksCancelled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goexec",
				Subsystem: "pool",
				Name:      "tasks_cancelled_total",
				Help:      "Total number of tasks cancelled before completion",
			},
			[]string{"pool_name"},
		),

		TaskExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "goexec",
				Subsystem: "pool",
				Name:      "task_duration_seconds",
				Help:      "Time spent executing tasks",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),

		TaskQueueWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "goexec",
				Subsystem: "pool",
				Name:      "task_queue_wait_seconds",
				Help:      "Time tasks spent queued before a worker picked them up",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),

		WorkerReplacements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goexec",
				Subsystem: "pool",
				Name:      "worker_replacements_total",
				Help:      "Total number of workers replaced after a hard timeout or crash",
			},
			[]string{"pool_name"},
		),

		ScheduledPending: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "goexec",
				Subsystem: "scheduler",
				Name:      "pending_tasks",
				Help:      "Number of tasks waiting for their fire time",
			},
			[]string{"scheduler_name"},
		),

		ScheduledFired: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goexec",
				Subsystem: "scheduler",
				Name:      "tasks_fired_total",
				Help:      "Total number of scheduled tasks promoted to the pool",
			},
			[]string{"scheduler_name"},
		),

		ScheduledMissed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goexec",
				Subsystem: "scheduler",
				Name:      "submissions_failed_total",
				Help:      "Total number of scheduled tasks whose pool submission failed",
			},
			[]string{"scheduler_name"},
		),
	}
}
