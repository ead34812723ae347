// Package queue provides an unbounded FIFO shared by the pool's workers.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrEmpty is returned by Pop when no item arrived within the wait.
var ErrEmpty = errors.New("queue empty")

// Queue is an unbounded, mutex-guarded FIFO. Push never blocks. Consumers
// wait on a one-slot wake channel, so a single Push wakes at most one idle
// consumer and a consumer that leaves items behind passes the wake along.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	wake  chan struct{}
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{wake: make(chan struct{}, 1)}
}

// Push appends v to the tail.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.signal()
}

// TryPop removes and returns the head without waiting.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.signal()
	}
	return v, true
}

// Pop removes the head, waiting up to wait for one to arrive. It returns
// ErrEmpty when the wait elapses and ctx.Err() when ctx is done first.
func (q *Queue[T]) Pop(ctx context.Context, wait time.Duration) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if v, ok := q.TryPop(); ok {
		return v, nil
	}
	if wait <= 0 {
		return zero, ErrEmpty
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-timer.C:
			if v, ok := q.TryPop(); ok {
				return v, nil
			}
			return zero, ErrEmpty
		case <-q.wake:
			// Another consumer may have taken the item first.
			if v, ok := q.TryPop(); ok {
				return v, nil
			}
		}
	}
}

// Len returns a snapshot of the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
