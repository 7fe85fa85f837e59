// Package transport bridges the serial endpoint and the poll-driven session
// engine.
//
// The engine calls the Adapter synchronously from the baseline loop. Link
// tasks running in the interrupt-priority domain move bytes between the
// serial endpoint and the Adapter's queues. The Adapter itself never
// suspends: it only try-sends, try-reads and yields.
package transport

import (
	"sync/atomic"
	"time"

	"eir-go/errcode"
	"eir-go/services/sched"
	"eir-go/x/queue"
	"eir-go/x/shmring"
	"eir-go/x/timex"
)

const DefaultWriteTimeout = 50 * time.Millisecond

// Contract is the four-function surface the session engine consumes.
type Contract interface {
	Open() bool
	Close() bool
	Write(p []byte) (int, error)
	Read(p []byte, timeout time.Duration) (n int, timedOut bool)
}

type Options struct {
	// QueueLen is the outbound queue capacity (default QueueLen).
	QueueLen int
	// WriteTimeout bounds how long Write polls for an outbound slot.
	WriteTimeout time.Duration
	// Yield is called between polls (default sched.Yield).
	Yield func()
	// Now is the monotonic clock (default timex.Now).
	Now func() timex.Instant
}

// Stats are cumulative counters.
type Stats struct {
	BytesOut     uint32
	BytesIn      uint32
	Writes       uint32
	Dropped      uint32 // writes refused with QueueFull
	ReadTimeouts uint32
}

type Adapter struct {
	out  *queue.Queue[*Buffer]
	pool *queue.Queue[*Buffer]
	in   *shmring.Ring

	writeTimeout time.Duration
	yield        func()
	now          func() timex.Instant

	bytesOut, bytesIn, writes, dropped, readTimeouts atomic.Uint32
}

var _ Contract = (*Adapter)(nil)

func NewAdapter(o Options) *Adapter {
	if o.QueueLen <= 0 {
		o.QueueLen = QueueLen
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.Yield == nil {
		o.Yield = sched.Yield
	}
	if o.Now == nil {
		o.Now = timex.Now
	}
	a := &Adapter{
		out:          queue.New[*Buffer](o.QueueLen),
		pool:         queue.New[*Buffer](o.QueueLen + 1),
		in:           shmring.New(BufferLen),
		writeTimeout: o.WriteTimeout,
		yield:        o.Yield,
		now:          o.Now,
	}
	// one extra for the buffer the sender holds while writing
	for i := 0; i < o.QueueLen+1; i++ {
		_ = a.pool.TrySend(new(Buffer))
	}
	return a
}

func (a *Adapter) Open() bool  { return true }
func (a *Adapter) Close() bool { return true }

// Write copies p into a pooled Buffer and enqueues it for the sender task.
// len(p) > BufferLen is fatal. If no outbound slot frees up within the
// write timeout Write returns (0, errcode.QueueFull).
func (a *Adapter) Write(p []byte) (int, error) {
	if len(p) > BufferLen {
		sched.Fatal("transport.write", errcode.TooLarge)
		return 0, errcode.TooLarge
	}
	if len(p) == 0 {
		return 0, nil
	}
	start := a.now()
	var buf *Buffer
	for {
		if buf == nil {
			if b, ok := a.pool.TryRecv(); ok {
				buf = b
				buf.fill(p)
			}
		}
		if buf != nil && a.out.TrySend(buf) == nil {
			a.writes.Add(1)
			a.bytesOut.Add(uint32(len(p)))
			return len(p), nil
		}
		if time.Duration(a.now()-start) >= a.writeTimeout {
			break
		}
		a.yield()
	}
	if buf != nil {
		_ = a.pool.TrySend(buf)
	}
	a.dropped.Add(1)
	return 0, errcode.QueueFull
}

// Read fills p from the inbound byte queue, polling until p is full or
// timeout has elapsed since the call started. The clock is checked on every
// iteration. A timeout is reported through timedOut, not as an error.
func (a *Adapter) Read(p []byte, timeout time.Duration) (n int, timedOut bool) {
	start := a.now()
	for n < len(p) {
		n += a.in.TryReadInto(p[n:])
		if n == len(p) {
			break
		}
		if time.Duration(a.now()-start) >= timeout {
			a.readTimeouts.Add(1)
			timedOut = true
			break
		}
		a.yield()
	}
	a.bytesIn.Add(uint32(n))
	return n, timedOut
}

// Pending reports the inbound bytes waiting to be read.
func (a *Adapter) Pending() int { return a.in.Available() }

func (a *Adapter) Stats() Stats {
	return Stats{
		BytesOut:     a.bytesOut.Load(),
		BytesIn:      a.bytesIn.Load(),
		Writes:       a.writes.Load(),
		Dropped:      a.dropped.Load(),
		ReadTimeouts: a.readTimeouts.Load(),
	}
}

func (a *Adapter) release(b *Buffer) {
	b.used = 0
	if err := a.pool.TrySend(b); err != nil {
		println("[transport] pool overflow")
	}
}
