// Package mailbox provides a single-slot, latest-value-wins channel.
//
// Send never blocks: an unconsumed value is replaced. Receive waits for a
// value sent since the previous receive and consumes it. Use it where only
// the freshest command matters (an LED colour, a setpoint); superseded values
// are discarded on purpose.
package mailbox

import (
	"context"
	"sync"
)

type Mailbox[T any] struct {
	mu sync.Mutex // serialises producers so the refill never blocks
	ch chan T
}

func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{ch: make(chan T, 1)}
}

// Send stores v, discarding any value not yet received.
func (m *Mailbox[T]) Send(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case m.ch <- v:
	default:
		// drop the stale value, then refill
		select {
		case <-m.ch:
		default:
		}
		m.ch <- v
	}
}

// Receive blocks until a value is available or ctx is done.
func (m *Mailbox[T]) Receive(ctx context.Context) (T, error) {
	select {
	case v := <-m.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TryReceive consumes the pending value, if any.
func (m *Mailbox[T]) TryReceive() (T, bool) {
	select {
	case v := <-m.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// C exposes the slot for use in select statements. Receiving from it
// consumes the value exactly like Receive.
func (m *Mailbox[T]) C() <-chan T { return m.ch }
