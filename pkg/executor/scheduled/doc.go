// Package scheduled defers and repeats task execution on top of a
// pool.Executor.
//
// A Scheduler keeps a min-heap of deadlines drained by a single timer
// goroutine; due tasks are promoted into the pool's queue and executed
// by its workers. One-shot scheduling (Schedule, ScheduleAt) returns a
// future for the single run. Periodic scheduling (ScheduleAtFixedRate,
// ScheduleWithFixedDelay, ScheduleCron) returns a Handle for the series.
//
// Fixed-rate and fixed-delay differ in how they treat execution time:
// fixed-rate spaces occurrences from each occurrence's nominal fire
// time, queuing an overrun occurrence immediately rather than skipping
// it, while fixed-delay always pauses the full delay after completion.
// Occurrences of one periodic task never run concurrently.
//
//	sched, err := scheduled.New(exec)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer func() { <-sched.Stop() }()
//
//	handle, err := sched.ScheduleAtFixedRate(reportTask, 0, time.Minute)
package scheduled
