// Package state holds values shared between the interrupt-priority and
// baseline domains.
package state

import (
	"eir-go/x/critical"
	"eir-go/x/timex"
)

// Timestamped is a value plus the instant it was captured.
type Timestamped[T any] struct {
	Value T
	At    timex.Instant
}

// Cell is a single-writer, multi-reader timestamped value.
type Cell[T any] struct {
	c *critical.Cell[Timestamped[T]]
}

func NewCell[T any]() *Cell[T] {
	return &Cell[T]{c: critical.NewCell(Timestamped[T]{})}
}

// Set replaces value and capture instant together.
func (c *Cell[T]) Set(v T, at timex.Instant) {
	c.c.Lock(func(s *Timestamped[T]) {
		s.Value = v
		s.At = at
	})
}

// Get returns a consistent snapshot.
func (c *Cell[T]) Get() Timestamped[T] {
	var out Timestamped[T]
	c.c.Lock(func(s *Timestamped[T]) { out = *s })
	return out
}

// Battery is the sampled battery reading.
type Battery struct {
	Voltage float32
}

// Shared is the process-wide state, created once at startup.
type Shared struct {
	Battery *Cell[Battery]
}

func New() *Shared {
	return &Shared{Battery: NewCell[Battery]()}
}
