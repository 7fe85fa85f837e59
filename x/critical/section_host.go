//go:build !(rp2040 || rp2350)

package critical

import "sync"

// Section is a mutual-exclusion region. On the host both domains are plain
// goroutines, so a mutex is sufficient.
type Section struct {
	mu sync.Mutex
}

func (s *Section) Do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}
