package future

import (
	"fmt"
	"sync/atomic"
)

// Then returns a new future whose outcome is derived from this one by fn.
// fn receives the source outcome and runs exactly once, on the goroutine
// that completes the source (or immediately, if already terminal). A panic
// inside fn fails the derived future.
func (f *Future) Then(fn func(value any, err error) (any, error)) *Future {
	derived := New(f.taskID)
	f.whenDone(func(src *Future) {
		v, err := src.outcome()
		derived.finishFrom(func() (any, error) { return fn(v, err) })
	})
	return derived
}

// Combine returns a future that completes once both sources are terminal.
// If either source failed, the combined future fails with that error
// (a's error takes precedence); otherwise merge produces the result.
func Combine(a, b *Future, merge func(av, bv any) (any, error)) *Future {
	combined := New("")
	var remaining atomic.Int32
	remaining.Store(2)

	complete := func(*Future) {
		if remaining.Add(-1) != 0 {
			return
		}
		av, aerr := a.outcome()
		bv, berr := b.outcome()
		if aerr != nil {
			combined.Fail(aerr)
			return
		}
		if berr != nil {
			combined.Fail(berr)
			return
		}
		combined.finishFrom(func() (any, error) { return merge(av, bv) })
	}

	a.whenDone(complete)
	b.whenDone(complete)
	return combined
}

// FirstOf returns a future that adopts the outcome of whichever source
// reaches a terminal state first, including failures and cancellations.
// With no sources there is nothing to wait for; the returned future fails
// immediately rather than staying pending forever.
func FirstOf(futures ...*Future) *Future {
	first := New("")
	if len(futures) == 0 {
		first.Fail(fmt.Errorf("firstof: no source futures"))
		return first
	}
	for _, f := range futures {
		f.whenDone(func(src *Future) {
			v, err := src.outcome()
			if err != nil {
				first.Fail(err)
				return
			}
			first.Complete(v)
		})
	}
	return first
}

// finishFrom resolves the future from fn, converting a panic into a
// failure so derived futures are never left pending.
func (f *Future) finishFrom(fn func() (any, error)) {
	defer func() {
		if r := recover(); r != nil {
			f.Fail(fmt.Errorf("continuation panicked: %v", r))
		}
	}()
	v, err := fn()
	if err != nil {
		f.Fail(err)
		return
	}
	f.Complete(v)
}
