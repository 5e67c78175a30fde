package queue

import (
	"container/heap"

	"github.com/vnykmshr/goexec/pkg/common/validation"
)

// NewPriority creates a bounded queue that delivers the highest-priority
// item first. Items of equal priority are delivered in insertion order,
// so a single-priority workload degrades to plain FIFO.
func NewPriority[T any](capacity int, priority func(T) int) (Queue[T], error) {
	if err := validation.AtLeast("queue", "Capacity", capacity, 1); err != nil {
		return nil, err
	}
	if err := validation.NotNil("queue", "priority", priority); err != nil {
		return nil, err
	}
	st := &prioStore[T]{priority: priority}
	heap.Init(&st.items)
	return newBounded[T](st, capacity), nil
}

type prioItem[T any] struct {
	value T
	prio  int
	seq   uint64
}

type prioHeap[T any] []prioItem[T]

func (h prioHeap[T]) Len() int { return len(h) }

func (h prioHeap[T]) Less(i, j int) bool {
	if h[i].prio != h[j].prio {
		return h[i].prio > h[j].prio
	}
	return h[i].seq < h[j].seq
}

func (h prioHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *prioHeap[T]) Push(x any) {
	*h = append(*h, x.(prioItem[T]))
}

func (h *prioHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// prioStore keeps items in a max-heap ordered by priority, with a
// monotonic sequence number breaking ties FIFO.
type prioStore[T any] struct {
	items    prioHeap[T]
	priority func(T) int
	seq      uint64
}

func (s *prioStore[T]) add(item T) {
	s.seq++
	heap.Push(&s.items, prioItem[T]{value: item, prio: s.priority(item), seq: s.seq})
}

func (s *prioStore[T]) remove() T {
	return heap.Pop(&s.items).(prioItem[T]).value
}

func (s *prioStore[T]) length() int {
	return s.items.Len()
}
