// Package queue provides a bounded FIFO with blocking and fail-fast sends.
package queue

import (
	"context"

	"eir-go/errcode"
)

// Queue holds at most Cap items in arrival order. Send and Recv suspend the
// caller; TrySend and TryRecv never do.
type Queue[T any] struct {
	ch chan T
}

// New returns a queue with capacity n (minimum 1).
func New[T any](n int) *Queue[T] {
	if n <= 0 {
		n = 1
	}
	return &Queue[T]{ch: make(chan T, n)}
}

// Send blocks until a slot is free or ctx is done.
func (q *Queue[T]) Send(ctx context.Context, v T) error {
	select {
	case q.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues v or returns errcode.QueueFull immediately.
func (q *Queue[T]) TrySend(v T) error {
	select {
	case q.ch <- v:
		return nil
	default:
		return errcode.QueueFull
	}
}

// Recv blocks until an item is available or ctx is done.
func (q *Queue[T]) Recv(ctx context.Context) (T, error) {
	select {
	case v := <-q.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (q *Queue[T]) TryRecv() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

func (q *Queue[T]) Len() int { return len(q.ch) }
func (q *Queue[T]) Cap() int { return cap(q.ch) }

// C exposes the receive side for select statements.
func (q *Queue[T]) C() <-chan T { return q.ch }
