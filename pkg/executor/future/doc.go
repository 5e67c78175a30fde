/*
Package future provides write-once result handles bridging a task's
eventual outcome to its callers.

A Future starts Pending and moves exactly once to Completed, Failed or
Cancelled. Readers block on Get (optionally with a timeout or context)
and all observe the identical terminal outcome:

	fut, _ := exec.Submit(task)

	value, err := fut.Get()
	value, err := fut.GetWithTimeout(time.Second) // ErrTimeout if still pending

Cancellation is cooperative. Cancelling a pending future prevents the
task from ever starting; cancelling a running one (mayInterrupt=true)
cancels the context the task was started with and relies on the task
observing it:

	if fut.Cancel(true) {
		// the task will not run, or has been signalled to stop
	}

Completed futures can be composed without polling; continuations fire
exactly once, on whichever goroutine completes the source:

	sum := future.Combine(a, b, func(x, y any) (any, error) {
		return x.(int) + y.(int), nil
	})
	fastest := future.FirstOf(a, b, c)
	next := fut.Then(func(v any, err error) (any, error) { ... })

The Complete, Fail and TryStart methods form the writer-side contract
used by executors; application code normally only reads.
*/
package future
