//go:build (rp2040 || rp2350) && !scheduler.cores

package critical

import "runtime/interrupt"

// Section masks interrupts for the duration of fn. With the single-core
// TinyGo task scheduler goroutines only switch at blocking points, and fn
// never blocks, so masking interrupts also excludes every other task.
type Section struct{}

func (s *Section) Do(fn func()) {
	st := interrupt.Disable()
	fn()
	interrupt.Restore(st)
}
