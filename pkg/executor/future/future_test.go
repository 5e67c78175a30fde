package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vnykmshr/goexec/internal/testutil"
	gxerrors "github.com/vnykmshr/goexec/pkg/common/errors"
)

func TestCompleteResolvesReaders(t *testing.T) {
	f := New("task-1")
	testutil.AssertEqual(t, f.State(), Pending)
	testutil.AssertEqual(t, f.IsDone(), false)

	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Complete(42)
	}()

	v, err := f.Get()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v.(int), 42)
	testutil.AssertEqual(t, f.State(), Completed)
	testutil.AssertEqual(t, f.TaskID(), "task-1")
}

func TestFail(t *testing.T) {
	f := New("task-2")
	boom := errors.New("boom")
	testutil.AssertEqual(t, f.Fail(boom), true)

	_, err := f.Get()
	testutil.AssertEqual(t, err, boom)
	testutil.AssertEqual(t, f.State(), Failed)
}

func TestExactlyOnceCompletion(t *testing.T) {
	f := New("once")
	testutil.AssertEqual(t, f.Complete(1), true)
	testutil.AssertEqual(t, f.Complete(2), false)
	testutil.AssertEqual(t, f.Fail(errors.New("late")), false)
	testutil.AssertEqual(t, f.Cancel(true), false)

	v, err := f.Get()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v.(int), 1)
}

// All readers, before and after completion, observe the identical outcome.
func TestMultipleReadersObserveSameOutcome(t *testing.T) {
	f := New("shared")
	const readers = 8

	var wg sync.WaitGroup
	results := make(chan int, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := f.Get()
			if err != nil {
				results <- -1
				return
			}
			results <- v.(int)
		}()
	}

	time.Sleep(5 * time.Millisecond)
	f.Complete(7)
	wg.Wait()
	close(results)

	for v := range results {
		testutil.AssertEqual(t, v, 7)
	}

	// Late readers see the same value.
	v, err := f.Get()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v.(int), 7)
}

func TestGetWithTimeout(t *testing.T) {
	f := New("slow")

	_, err := f.GetWithTimeout(20 * time.Millisecond)
	if !errors.Is(err, gxerrors.ErrTimeout) {
		t.Fatalf("want ErrTimeout, got %v", err)
	}

	// The timeout does not resolve or cancel the future.
	testutil.AssertEqual(t, f.State(), Pending)

	f.Complete("late value")
	v, err := f.GetWithTimeout(time.Second)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v.(string), "late value")
}

func TestGetWithContext(t *testing.T) {
	f := New("ctx")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.GetWithContext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestCancelBeforeStart(t *testing.T) {
	f := New("never-runs")
	testutil.AssertEqual(t, f.Cancel(false), true)
	testutil.AssertEqual(t, f.State(), Cancelled)
	testutil.AssertEqual(t, f.IsCancelled(), true)

	_, err := f.Get()
	if !errors.Is(err, gxerrors.ErrCancelled) {
		t.Fatalf("want ErrCancelled, got %v", err)
	}

	// A cancelled future can never be claimed for execution.
	testutil.AssertEqual(t, f.TryStart(nil), false)
}

func TestCancelRunningWithoutInterrupt(t *testing.T) {
	f := New("running")
	testutil.AssertEqual(t, f.TryStart(nil), true)

	// mayInterrupt=false cannot touch a running task.
	testutil.AssertEqual(t, f.Cancel(false), false)
	testutil.AssertEqual(t, f.State(), Pending)
}

func TestCancelRunningWithInterrupt(t *testing.T) {
	f := New("interruptible")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	testutil.AssertEqual(t, f.TryStart(cancel), true)

	testutil.AssertEqual(t, f.Cancel(true), true)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("interrupt hook was not invoked")
	}

	// The worker observes ctx cancellation and reports it; the future
	// records a cancellation, not a generic failure.
	f.Fail(ctx.Err())
	testutil.AssertEqual(t, f.State(), Cancelled)
	_, err := f.Get()
	if !errors.Is(err, gxerrors.ErrCancelled) {
		t.Fatalf("want ErrCancelled, got %v", err)
	}
}

func TestFailWithPlainContextCanceled(t *testing.T) {
	// Without a requested interruption, context.Canceled is an ordinary
	// task failure.
	f := New("plain")
	testutil.AssertEqual(t, f.TryStart(nil), true)
	f.Fail(context.Canceled)
	testutil.AssertEqual(t, f.State(), Failed)
}

func TestCompletionBeatsInterrupt(t *testing.T) {
	f := New("race")
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	testutil.AssertEqual(t, f.TryStart(cancel), true)
	testutil.AssertEqual(t, f.Cancel(true), true)

	// The task finished before noticing the interrupt: completion wins.
	testutil.AssertEqual(t, f.Complete("done"), true)
	testutil.AssertEqual(t, f.State(), Completed)
}

func TestThen(t *testing.T) {
	f := New("base")
	doubled := f.Then(func(v any, err error) (any, error) {
		if err != nil {
			return nil, err
		}
		return v.(int) * 2, nil
	})

	f.Complete(21)
	v, err := doubled.Get()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v.(int), 42)
}

func TestThenOnTerminalFuture(t *testing.T) {
	f := New("done")
	f.Complete(1)

	inc := f.Then(func(v any, err error) (any, error) {
		return v.(int) + 1, nil
	})
	v, err := inc.Get()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v.(int), 2)
}

func TestThenPanicFailsDerived(t *testing.T) {
	f := New("panic")
	derived := f.Then(func(any, error) (any, error) {
		panic("continuation exploded")
	})

	f.Complete(nil)
	_, err := derived.Get()
	testutil.AssertError(t, err)
}

func TestCombine(t *testing.T) {
	a := New("a")
	b := New("b")
	sum := Combine(a, b, func(av, bv any) (any, error) {
		return av.(int) + bv.(int), nil
	})

	a.Complete(40)
	testutil.AssertEqual(t, sum.IsDone(), false)
	b.Complete(2)

	v, err := sum.Get()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v.(int), 42)
}

func TestCombinePropagatesFailure(t *testing.T) {
	a := New("a")
	b := New("b")
	boom := errors.New("a failed")
	combined := Combine(a, b, func(av, bv any) (any, error) {
		t.Error("merge should not run when a source failed")
		return nil, nil
	})

	b.Complete(1)
	a.Fail(boom)

	_, err := combined.Get()
	testutil.AssertEqual(t, err, boom)
}

func TestFirstOf(t *testing.T) {
	a := New("slow")
	b := New("fast")
	c := New("never")
	first := FirstOf(a, b, c)

	b.Complete("winner")
	v, err := first.Get()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v.(string), "winner")

	// Later completions do not change the adopted outcome.
	a.Complete("loser")
	v, _ = first.Get()
	testutil.AssertEqual(t, v.(string), "winner")
}

func TestFirstOfNoSourcesFailsImmediately(t *testing.T) {
	first := FirstOf()

	// Nothing can ever complete it, so it must not stay pending.
	testutil.AssertEqual(t, first.IsDone(), true)
	testutil.AssertEqual(t, first.State(), Failed)
	_, err := first.Get()
	testutil.AssertError(t, err)
}

func TestFirstOfAdoptsFailure(t *testing.T) {
	a := New("a")
	b := New("b")
	first := FirstOf(a, b)

	boom := errors.New("fastest was a failure")
	a.Fail(boom)

	_, err := first.Get()
	testutil.AssertEqual(t, err, boom)
}

func TestConcurrentCancelAndComplete(t *testing.T) {
	// Regardless of interleaving, the future ends in exactly one terminal
	// state and every reader agrees on it.
	for i := 0; i < 100; i++ {
		f := New("race")
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.Cancel(false)
		}()
		go func() {
			defer wg.Done()
			f.Complete(i)
		}()
		wg.Wait()

		state := f.State()
		if state != Completed && state != Cancelled {
			t.Fatalf("unexpected terminal state %v", state)
		}
		testutil.AssertEqual(t, f.State(), state)
	}
}
