/*
Package queue provides bounded, thread-safe task queues with blocking,
non-blocking and timed operations.

A bounded queue is the handoff point between task submitters and workers.
Capacity is strictly enforced: Put suspends (or fails, or times out,
depending on the variant used) while the queue is full, and Take suspends
while it is empty. Closing a queue wakes every blocked caller.

Two orderings are available:

	q, _ := queue.NewFIFO[string](128)          // strict FIFO
	pq, _ := queue.NewPriority[job](128, prio)  // highest priority first,
	                                            // FIFO within a priority

Operations:

	err := q.Put(item)                    // block until space or closed
	err := q.TryPut(item)                 // never blocks
	err := q.PutTimeout(item, time.Second)

	item, err := q.Take()                 // block until item or closed
	item, ok := q.TryTake()
	item, err := q.TakeTimeout(time.Second)

Shutdown integration:

	q.Close()          // Put fails with ErrClosed; Take drains whatever
	                   // remains, then fails with ErrClosed
	rest := q.Drain()  // atomically remove everything still queued

Errors come from pkg/common/errors: ErrClosed, ErrTimeout and
ErrCapacityExceeded. All operations are linearizable; no item is ever
delivered to more than one taker, and the length never exceeds capacity.
*/
package queue
