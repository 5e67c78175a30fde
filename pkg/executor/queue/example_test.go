package queue_test

import (
	"fmt"

	"github.com/vnykmshr/goexec/pkg/executor/queue"
)

// Example demonstrates basic bounded queue usage.
func Example() {
	q, _ := queue.NewFIFO[string](2)

	_ = q.TryPut("first")
	_ = q.TryPut("second")

	// The queue is full now; TryPut fails instead of blocking.
	if err := q.TryPut("third"); err != nil {
		fmt.Println("rejected:", err)
	}

	item, _ := q.Take()
	fmt.Println("took:", item)

	// Output:
	// rejected: capacity exceeded
	// took: first
}

// Example_priority demonstrates priority ordering.
func Example_priority() {
	type job struct {
		name string
		prio int
	}

	q, _ := queue.NewPriority[job](4, func(j job) int { return j.prio })

	_ = q.TryPut(job{"cleanup", 1})
	_ = q.TryPut(job{"alert", 9})
	_ = q.TryPut(job{"report", 5})

	for q.Len() > 0 {
		j, _ := q.Take()
		fmt.Println(j.name)
	}

	// Output:
	// alert
	// report
	// cleanup
}
