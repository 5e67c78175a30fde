package queue

import (
	ring "github.com/eapache/queue"

	"github.com/vnykmshr/goexec/pkg/common/validation"
)

// NewFIFO creates a bounded queue that delivers items in insertion order.
func NewFIFO[T any](capacity int) (Queue[T], error) {
	if err := validation.AtLeast("queue", "Capacity", capacity, 1); err != nil {
		return nil, err
	}
	return newBounded[T](&fifoStore[T]{buf: ring.New()}, capacity), nil
}

// fifoStore keeps items in a ring buffer.
type fifoStore[T any] struct {
	buf *ring.Queue
}

func (s *fifoStore[T]) add(item T) {
	s.buf.Add(item)
}

func (s *fifoStore[T]) remove() T {
	return s.buf.Remove().(T)
}

func (s *fifoStore[T]) length() int {
	return s.buf.Length()
}
