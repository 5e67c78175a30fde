package pool

import (
	"context"
	"sync"
	"testing"

	"github.com/vnykmshr/goexec/internal/testutil"
)

func TestWorkerIDOutsidePool(t *testing.T) {
	_, ok := WorkerID(context.Background())
	testutil.AssertEqual(t, ok, false)
}

func TestWorkerIDInsideTask(t *testing.T) {
	exec := newTestPool(t, Config{CoreWorkers: 1, QueueCapacity: 1})

	fut, err := exec.Submit(TaskFunc(func(ctx context.Context) (any, error) {
		id, ok := WorkerID(ctx)
		if !ok {
			t.Error("task context missing worker identity")
		}
		return id, nil
	}))
	testutil.AssertNoError(t, err)

	v, err := fut.GetWithTimeout(testutil.TestTimeout)
	testutil.AssertNoError(t, err)
	if v.(int) < 0 {
		t.Fatalf("expected a pool worker id, got %d", v.(int))
	}
}

func TestLocalInitializesOncePerWorker(t *testing.T) {
	var mu sync.Mutex
	inits := make(map[int]int)

	local := NewLocal(func(workerID int) string {
		mu.Lock()
		inits[workerID]++
		mu.Unlock()
		return "resource"
	})

	exec := newTestPool(t, Config{CoreWorkers: 1, QueueCapacity: 8})

	for i := 0; i < 5; i++ {
		fut, err := exec.Submit(TaskFunc(func(ctx context.Context) (any, error) {
			v, ok := local.Get(ctx)
			if !ok {
				t.Error("missing worker-local value")
			}
			return v, nil
		}))
		testutil.AssertNoError(t, err)
		v, err := fut.GetWithTimeout(testutil.TestTimeout)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, v.(string), "resource")
	}

	mu.Lock()
	defer mu.Unlock()
	testutil.AssertEqual(t, len(inits), 1)
	for _, n := range inits {
		testutil.AssertEqual(t, n, 1)
	}
}

func TestLocalGetWithoutWorkerContext(t *testing.T) {
	local := NewLocal(func(int) int { return 7 })
	_, ok := local.Get(context.Background())
	testutil.AssertEqual(t, ok, false)
}

func TestLocalReleaseOnWorkerStop(t *testing.T) {
	local := NewLocal(func(workerID int) string { return "conn" })

	released := make(chan string, 4)
	exec, err := NewWithConfig(Config{
		CoreWorkers:   2,
		QueueCapacity: 4,
		OnWorkerStop: func(workerID int) {
			if v, ok := local.Release(workerID); ok {
				released <- v
			}
		},
	})
	testutil.AssertNoError(t, err)

	fut, err := exec.Submit(TaskFunc(func(ctx context.Context) (any, error) {
		v, _ := local.Get(ctx)
		return v, nil
	}))
	testutil.AssertNoError(t, err)
	_, err = fut.GetWithTimeout(testutil.TestTimeout)
	testutil.AssertNoError(t, err)

	<-exec.Shutdown()

	// Exactly the workers that initialized a value release it.
	testutil.AssertEqual(t, len(released), 1)
	testutil.AssertEqual(t, <-released, "conn")
}
