package scheduled

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	gxerrors "github.com/vnykmshr/goexec/pkg/common/errors"
	"github.com/vnykmshr/goexec/pkg/common/validation"
	"github.com/vnykmshr/goexec/pkg/executor/future"
	"github.com/vnykmshr/goexec/pkg/executor/pool"
	"github.com/vnykmshr/goexec/pkg/metrics"
)

// State describes the lifecycle position of a scheduled entry.
type State int32

const (
	// Waiting means the entry is parked until its fire time.
	Waiting State = iota
	// Queued means the fire time elapsed and the task was handed to the
	// pool but no worker picked it up yet.
	Queued
	// Running means a worker is executing the task.
	Running
	// Completed means a one-shot task finished, either way.
	Completed
	// Cancelled means the entry was cancelled and will not run again.
	Cancelled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Queued:
		return "queued"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Scheduler defers and repeats task execution on top of a pool.Executor.
// One-shot operations return a future for the single run; periodic
// operations return a Handle controlling the whole series.
type Scheduler interface {
	// Schedule runs task once after delay.
	Schedule(task pool.Task, delay time.Duration) (*future.Future, error)

	// ScheduleAt runs task once at the given time. A time in the past
	// fires immediately.
	ScheduleAt(task pool.Task, at time.Time) (*future.Future, error)

	// ScheduleAtFixedRate runs task repeatedly, each occurrence scheduled
	// period after the previous occurrence's nominal fire time. An
	// execution that overruns the period queues the next occurrence
	// immediately instead of skipping it. Occurrences never run
	// concurrently.
	ScheduleAtFixedRate(task pool.Task, initialDelay, period time.Duration) (*Handle, error)

	// ScheduleWithFixedDelay runs task repeatedly, each occurrence
	// scheduled delay after the previous occurrence completed.
	ScheduleWithFixedDelay(task pool.Task, initialDelay, delay time.Duration) (*Handle, error)

	// ScheduleCron runs task on a cron schedule. The expression uses the
	// standard five fields with an optional leading seconds field.
	ScheduleCron(expr string, task pool.Task) (*Handle, error)

	// Stop cancels all waiting entries and stops the timer. A pool the
	// scheduler created for itself is shut down as well; a caller-provided
	// pool is left running. The returned channel closes when the
	// scheduler (and any owned pool) has stopped.
	Stop() <-chan struct{}

	// Len returns the number of entries waiting for their fire time.
	Len() int
}

// Config holds configuration options for creating a scheduler.
type Config struct {
	// Pool executes fired tasks. When nil the scheduler creates and owns
	// a default pool, shutting it down on Stop.
	Pool pool.Executor

	// Name labels this scheduler in logs and metrics.
	// Defaults to "scheduler".
	Name string

	// Location is the time zone used by cron schedules.
	// Defaults to time.Local.
	Location *time.Location

	// Logger receives fire, miss and stop events.
	// Defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics configures Prometheus instrumentation.
	Metrics metrics.Config
}

// Sizing for the pool a scheduler creates when none is supplied.
const (
	defaultCoreWorkers   = 2
	defaultMaxWorkers    = 4
	defaultQueueCapacity = 64
)

// cronParser accepts standard cron expressions, descriptors such as
// "@hourly", and an optional leading seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// entry is one scheduled unit of work, periodic or one-shot.
// All mutable fields are guarded by the scheduler's mutex.
type entry struct {
	id  string
	seq int64

	task pool.Task

	// fut is set for one-shot entries only; periodic entries are
	// controlled through their Handle.
	fut *future.Future

	fireAt time.Time
	period time.Duration // fixed-rate
	delay  time.Duration // fixed-delay
	cron   cron.Schedule

	state     State
	cancelled bool
	cancelRun context.CancelFunc
	runs      int64
}

func (e *entry) periodic() bool {
	return e.fut == nil
}

// scheduler implements Scheduler with a deadline min-heap drained by a
// single timer goroutine.
type scheduler struct {
	pool    pool.Executor
	ownPool bool
	name    string
	loc     *time.Location
	log     *zap.Logger

	registry  *metrics.Registry
	metricsOn bool

	mu      sync.Mutex
	entries entryHeap
	seq     int64
	stopped bool

	wake     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	loopWg   sync.WaitGroup
}

// New creates a scheduler on top of an existing pool. The pool is not
// shut down when the scheduler stops.
func New(exec pool.Executor) (Scheduler, error) {
	return NewWithConfig(Config{Pool: exec})
}

// NewWithConfig creates a scheduler with the specified configuration.
func NewWithConfig(config Config) (Scheduler, error) {
	if config.Name == "" {
		config.Name = "scheduler"
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	ownPool := false
	if config.Pool == nil {
		p, err := pool.New(defaultCoreWorkers, defaultMaxWorkers, defaultQueueCapacity)
		if err != nil {
			return nil, err
		}
		config.Pool = p
		ownPool = true
	}

	s := &scheduler{
		pool:    config.Pool,
		ownPool: ownPool,
		name:    config.Name,
		loc:     config.Location,
		log:     config.Logger,
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}

	if config.Metrics.Enabled {
		s.metricsOn = true
		s.registry = metrics.DefaultRegistry
		if config.Metrics.Registry != nil {
			s.registry = metrics.NewRegistry(config.Metrics.Registry)
		}
	}

	s.loopWg.Add(1)
	go s.loop()
	return s, nil
}

// Schedule runs task once after delay.
func (s *scheduler) Schedule(task pool.Task, delay time.Duration) (*future.Future, error) {
	if err := validation.NonNegativeDuration("scheduler", "delay", delay); err != nil {
		return nil, err
	}
	return s.ScheduleAt(task, time.Now().Add(delay))
}

// ScheduleAt runs task once at the given time.
func (s *scheduler) ScheduleAt(task pool.Task, at time.Time) (*future.Future, error) {
	if err := validation.NotNil("scheduler", "task", task); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	e := &entry{
		id:     id,
		task:   task,
		fut:    future.New(id),
		fireAt: at,
		state:  Waiting,
	}
	if err := s.add(e); err != nil {
		return nil, err
	}
	return e.fut, nil
}

// ScheduleAtFixedRate runs task repeatedly at a nominal period.
func (s *scheduler) ScheduleAtFixedRate(task pool.Task, initialDelay, period time.Duration) (*Handle, error) {
	if err := validation.NotNil("scheduler", "task", task); err != nil {
		return nil, err
	}
	if err := validation.NonNegativeDuration("scheduler", "initialDelay", initialDelay); err != nil {
		return nil, err
	}
	if err := validation.PositiveDuration("scheduler", "period", period); err != nil {
		return nil, err
	}

	e := &entry{
		id:     uuid.NewString(),
		task:   task,
		fireAt: time.Now().Add(initialDelay),
		period: period,
		state:  Waiting,
	}
	if err := s.add(e); err != nil {
		return nil, err
	}
	return &Handle{s: s, e: e}, nil
}

// ScheduleWithFixedDelay runs task repeatedly, pausing delay between the
// end of one occurrence and the start of the next.
func (s *scheduler) ScheduleWithFixedDelay(task pool.Task, initialDelay, delay time.Duration) (*Handle, error) {
	if err := validation.NotNil("scheduler", "task", task); err != nil {
		return nil, err
	}
	if err := validation.NonNegativeDuration("scheduler", "initialDelay", initialDelay); err != nil {
		return nil, err
	}
	if err := validation.PositiveDuration("scheduler", "delay", delay); err != nil {
		return nil, err
	}

	e := &entry{
		id:     uuid.NewString(),
		task:   task,
		fireAt: time.Now().Add(initialDelay),
		delay:  delay,
		state:  Waiting,
	}
	if err := s.add(e); err != nil {
		return nil, err
	}
	return &Handle{s: s, e: e}, nil
}

// ScheduleCron runs task on a cron schedule.
func (s *scheduler) ScheduleCron(expr string, task pool.Task) (*Handle, error) {
	if err := validation.NotNil("scheduler", "task", task); err != nil {
		return nil, err
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}

	e := &entry{
		id:     uuid.NewString(),
		task:   task,
		fireAt: schedule.Next(time.Now().In(s.loc)),
		cron:   schedule,
		state:  Waiting,
	}
	if err := s.add(e); err != nil {
		return nil, err
	}
	return &Handle{s: s, e: e}, nil
}

func (s *scheduler) add(e *entry) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("schedule task %s: %w", e.id, gxerrors.ErrClosed)
	}
	s.seq++
	e.seq = s.seq
	heap.Push(&s.entries, e)
	s.updatePendingLocked()
	// Captured under the lock: once the entry is on the heap it can fire
	// and have fireAt rewritten by rescheduling.
	fireAt := e.fireAt
	periodic := e.periodic()
	s.mu.Unlock()

	s.nudge()
	s.log.Debug("task scheduled",
		zap.String("task_id", e.id),
		zap.Time("fire_at", fireAt),
		zap.Bool("periodic", periodic))
	return nil
}

// nudge wakes the timer loop so it re-reads the heap head.
func (s *scheduler) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *scheduler) updatePendingLocked() {
	if s.metricsOn {
		s.registry.ScheduledPending.WithLabelValues(s.name).Set(float64(len(s.entries)))
	}
}

// loop is the timer goroutine: it sleeps until the earliest deadline,
// promotes due entries into the pool and re-arms.
func (s *scheduler) loop() {
	defer s.loopWg.Done()

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		due, wait := s.collectDue()
		for _, e := range due {
			s.dispatch(e)
		}

		var timerC <-chan time.Time
		if wait >= 0 {
			timer.Reset(wait)
			timerC = timer.C
		}

		select {
		case <-s.stopCh:
			return
		case <-s.wake:
		case <-timerC:
		}

		if timerC != nil && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
}

// collectDue pops every entry whose fire time has passed and returns the
// wait until the next deadline, or -1 when the heap is empty.
func (s *scheduler) collectDue() ([]*entry, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var due []*entry
	for len(s.entries) > 0 {
		e := s.entries[0]
		if e.state == Cancelled {
			heap.Pop(&s.entries)
			continue
		}
		// A one-shot future cancelled by its holder drops out here
		// instead of waiting for its fire time.
		if !e.periodic() && e.fut.IsDone() {
			e.state = Cancelled
			heap.Pop(&s.entries)
			continue
		}
		if d := e.fireAt.Sub(now); d > 0 {
			s.updatePendingLocked()
			return due, d
		}
		heap.Pop(&s.entries)
		e.state = Queued
		due = append(due, e)
	}
	s.updatePendingLocked()
	return due, -1
}

// dispatch hands a due entry to the pool.
func (s *scheduler) dispatch(e *entry) {
	if s.metricsOn {
		s.registry.ScheduledFired.WithLabelValues(s.name).Inc()
	}
	pfut, err := s.pool.Submit(pool.TaskFunc(func(ctx context.Context) (any, error) {
		return s.run(ctx, e)
	}))
	if err != nil {
		s.missed(e, err)
		return
	}
	// The pool may cancel the wrapper while it is still queued, for
	// example during an immediate shutdown or a drop-oldest eviction.
	// The wrapper then never runs, so the entry must be settled from the
	// pool future's outcome instead.
	pfut.Then(func(_ any, _ error) (any, error) {
		if pfut.State() == future.Cancelled {
			s.dropped(e)
		}
		return nil, nil
	})
}

// dropped settles an entry whose dispatched wrapper was cancelled by the
// pool before it could run.
func (s *scheduler) dropped(e *entry) {
	s.log.Warn("scheduled task dropped by pool",
		zap.String("task_id", e.id))
	if s.metricsOn {
		s.registry.ScheduledMissed.WithLabelValues(s.name).Inc()
	}

	s.mu.Lock()
	if !e.periodic() {
		e.state = Cancelled
		s.mu.Unlock()
		e.fut.Cancel(false)
		return
	}
	if e.cancelled || s.stopped || s.pool.IsShutdown() {
		e.state = Cancelled
		s.mu.Unlock()
		return
	}
	s.rescheduleLocked(e, time.Now())
	s.mu.Unlock()
	s.nudge()
}

// missed handles a failed pool submission: one-shot entries fail their
// future, periodic entries skip to their next occurrence.
func (s *scheduler) missed(e *entry, err error) {
	s.log.Warn("scheduled task submission failed",
		zap.String("task_id", e.id),
		zap.Error(err))
	if s.metricsOn {
		s.registry.ScheduledMissed.WithLabelValues(s.name).Inc()
	}

	s.mu.Lock()
	if !e.periodic() {
		e.state = Completed
		s.mu.Unlock()
		e.fut.Fail(err)
		return
	}
	if e.cancelled || s.stopped || errors.Is(err, gxerrors.ErrClosed) {
		// A closed pool never accepts again; the series ends here.
		e.state = Cancelled
		s.mu.Unlock()
		return
	}

	// The occurrence is lost; realign to the next slot strictly in the
	// future so a saturated pool is not hammered with immediate refires.
	now := time.Now()
	switch {
	case e.period > 0:
		for !e.fireAt.After(now) {
			e.fireAt = e.fireAt.Add(e.period)
		}
	case e.delay > 0:
		e.fireAt = now.Add(e.delay)
	default:
		e.fireAt = e.cron.Next(now.In(s.loc))
	}
	e.state = Waiting
	heap.Push(&s.entries, e)
	s.updatePendingLocked()
	s.mu.Unlock()
	s.nudge()
}

// run executes one occurrence on a pool worker.
func (s *scheduler) run(ctx context.Context, e *entry) (any, error) {
	if !e.periodic() {
		return s.runOnce(ctx, e)
	}
	return nil, s.runPeriodic(ctx, e)
}

func (s *scheduler) runOnce(ctx context.Context, e *entry) (any, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !e.fut.TryStart(cancel) {
		// Cancelled while waiting or queued.
		s.mu.Lock()
		e.state = Cancelled
		s.mu.Unlock()
		return nil, nil
	}

	s.mu.Lock()
	e.state = Running
	s.mu.Unlock()

	v, err := execute(runCtx, e.task)
	if err != nil {
		e.fut.Fail(err)
	} else {
		e.fut.Complete(v)
	}

	s.mu.Lock()
	e.runs++
	if e.fut.State() == future.Cancelled {
		e.state = Cancelled
	} else {
		e.state = Completed
	}
	s.mu.Unlock()
	return v, err
}

func (s *scheduler) runPeriodic(ctx context.Context, e *entry) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if e.state != Queued || e.cancelled || s.stopped {
		e.state = Cancelled
		s.mu.Unlock()
		return nil
	}
	e.state = Running
	e.cancelRun = cancel
	s.mu.Unlock()

	_, err := execute(runCtx, e.task)
	if err != nil {
		s.log.Warn("scheduled task failed",
			zap.String("task_id", e.id),
			zap.Error(err))
	}

	s.mu.Lock()
	e.cancelRun = nil
	e.runs++
	if e.cancelled || s.stopped {
		e.state = Cancelled
		s.mu.Unlock()
		return err
	}
	s.rescheduleLocked(e, time.Now())
	s.mu.Unlock()

	s.nudge()
	return err
}

// rescheduleLocked computes the next occurrence and puts the entry back
// on the heap. Caller holds s.mu.
func (s *scheduler) rescheduleLocked(e *entry, now time.Time) {
	switch {
	case e.period > 0:
		// Fixed rate advances from the nominal fire time. An overrun
		// leaves the next occurrence in the past, firing it immediately
		// rather than skipping a period.
		e.fireAt = e.fireAt.Add(e.period)
	case e.delay > 0:
		e.fireAt = now.Add(e.delay)
	default:
		e.fireAt = e.cron.Next(now.In(s.loc))
	}
	e.state = Waiting
	heap.Push(&s.entries, e)
	s.updatePendingLocked()
}

// execute runs the task with panics converted to errors. The pool has
// its own capture boundary, but the outcome must be observable here to
// resolve the entry's future and decide rescheduling.
func execute(ctx context.Context, task pool.Task) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduled task panicked: %v", r)
		}
	}()
	return task.Execute(ctx)
}

// Stop cancels waiting entries and stops the timer loop; see Scheduler.
func (s *scheduler) Stop() <-chan struct{} {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		for _, e := range s.entries {
			if e.state != Waiting {
				continue
			}
			e.state = Cancelled
			e.cancelled = true
			if !e.periodic() {
				e.fut.Cancel(false)
			}
		}
		s.entries = nil
		s.updatePendingLocked()
		s.mu.Unlock()

		close(s.stopCh)
		s.log.Info("scheduler stopping", zap.String("scheduler", s.name))

		go func() {
			s.loopWg.Wait()
			if s.ownPool {
				<-s.pool.Shutdown()
			}
			close(s.done)
		}()
	})
	return s.done
}

// Len returns the number of entries waiting for their fire time.
func (s *scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.state != Waiting {
			continue
		}
		if !e.periodic() && e.fut.IsDone() {
			continue
		}
		n++
	}
	return n
}
