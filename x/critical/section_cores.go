//go:build (rp2040 || rp2350) && scheduler.cores

package critical

import (
	"runtime/interrupt"
	"sync"
)

// Section under the multicore scheduler. interrupt.Disable only masks the
// calling core, so the mutex excludes tasks on the other core first.
type Section struct {
	mu sync.Mutex
}

func (s *Section) Do(fn func()) {
	s.mu.Lock()
	st := interrupt.Disable()
	fn()
	interrupt.Restore(st)
	s.mu.Unlock()
}
