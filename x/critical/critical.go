// Package critical provides a lock that is safe to take from both the
// interrupt-priority domain and the baseline domain.
//
// The critical section is a closure: the lock is held only while fn runs,
// so it cannot be held across a suspension point by construction. fn must
// not block, yield, or take the same Cell again.
package critical

// Cell guards a value of type T with a critical section.
type Cell[T any] struct {
	sec Section
	v   T
}

// NewCell returns a Cell holding v.
func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{v: v}
}

// Lock runs fn with exclusive access to the guarded value.
func (c *Cell[T]) Lock(fn func(v *T)) {
	c.sec.Do(func() { fn(&c.v) })
}
