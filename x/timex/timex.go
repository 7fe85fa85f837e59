package timex

import "time"

// boot is captured at package init and anchors every Instant.
var boot = time.Now()

// Instant is a monotonic point in time measured from boot.
type Instant time.Duration

// Now returns the current monotonic instant.
func Now() Instant { return Instant(time.Since(boot)) }

// Since returns the time elapsed since i.
func Since(i Instant) time.Duration { return time.Duration(Now() - i) }

// Add returns i moved by d.
func (i Instant) Add(d time.Duration) Instant { return i + Instant(d) }

func (i Instant) Micros() int64 { return time.Duration(i).Microseconds() }

// Stamp splits the instant into whole seconds and the nanosecond remainder.
func (i Instant) Stamp() (sec int32, nanosec uint32) {
	us := i.Micros()
	return int32(us / 1_000_000), uint32(us%1_000_000) * 1000
}
