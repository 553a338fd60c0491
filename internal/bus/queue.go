package bus

import (
	"context"
	"sync"

	"simexec/pkg/exception"
)

// Queue is a bounded, non-blocking hand-off used off the hot path, e.g. to
// move execution reports to the journal writer.
type Queue[T any] struct {
	mu     sync.RWMutex
	ch     chan T
	closed bool
}

// NewQueue allocates a queue with the given capacity.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

// TryPublish enqueues an item without blocking.
func (q *Queue[T]) TryPublish(item T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return exception.ErrQueueClosed
	}
	select {
	case q.ch <- item:
		return nil
	default:
		return exception.ErrQueueFull
	}
}

// Close stops the queue from accepting new items. Items already queued are
// still delivered by Run.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Run consumes items until the context is done or the queue is closed and
// drained.
func (q *Queue[T]) Run(ctx context.Context, handler func(T)) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-q.ch:
			if !ok {
				return
			}
			handler(item)
		}
	}
}
