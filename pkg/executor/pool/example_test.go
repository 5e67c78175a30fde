package pool_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vnykmshr/goexec/pkg/executor/pool"
)

func Example() {
	exec, err := pool.New(2, 4, 16)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer func() { <-exec.Shutdown() }()

	fut, err := exec.Submit(pool.TaskFunc(func(_ context.Context) (any, error) {
		return 6 * 7, nil
	}))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	v, err := fut.Get()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("result:", v)
	// Output: result: 42
}

func ExampleRetryTask() {
	exec, err := pool.New(1, 1, 4)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer func() { <-exec.Shutdown() }()

	attempts := 0
	fut, err := exec.Submit(pool.RetryTask{
		Task: pool.TaskFunc(func(_ context.Context) (any, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("transient failure")
			}
			return "recovered", nil
		}),
		MaxAttempts:     5,
		InitialInterval: time.Millisecond,
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	v, _ := fut.Get()
	fmt.Printf("%s after %d attempts\n", v, attempts)
	// Output: recovered after 3 attempts
}

func ExampleConfig() {
	exec, err := pool.NewWithConfig(pool.Config{
		CoreWorkers:     2,
		MaxWorkers:      8,
		QueueCapacity:   32,
		KeepAlive:       30 * time.Second,
		RejectionPolicy: pool.CallerRuns,
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer func() { <-exec.Shutdown() }()

	fmt.Println("workers:", exec.Workers())
	// Output: workers: 2
}
