// Package shmring is a single-producer, single-consumer byte ring.
//
// It is the byte specialisation of a bounded queue: the producer may block
// for space (WriteFrom) or fail fast (TryWriteFrom); the consumer only ever
// polls (TryReadInto, TryReadByte) so it can be driven from code that must
// not suspend.
package shmring

import (
	"context"
	"sync/atomic"

	"eir-go/x/mathx"
)

// Ring is a single-producer, single-consumer byte ring.
type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)

	// Each side posts a token after every transfer that moved bytes. A token
	// may be stale; waiters re-check the indices after taking it.
	readable chan struct{} // bytes were written
	writable chan struct{} // bytes were consumed
}

// New allocates a ring of the given power-of-two size (>= 2).
func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("shmring: size must be power of two >= 2")
	}
	return &Ring{
		buf:      make([]byte, size),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

// Cap returns the ring capacity in bytes.
func (r *Ring) Cap() int { return len(r.buf) }

func (r *Ring) Space() int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	return int(r.size() - (wr - rd))
}

func (r *Ring) Available() int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	return int(wr - rd)
}

func post(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Producer side

// TryWriteFrom copies as much of src as fits and returns the count.
func (r *Ring) TryWriteFrom(src []byte) (n int) {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	space := int(r.size() - (wr - rd))
	if space <= 0 {
		return 0
	}
	n = mathx.Min(len(src), space)

	wrIdx := wr & r.mask
	first := mathx.Min(int(r.size()-wrIdx), n)
	copy(r.buf[wrIdx:wrIdx+uint32(first)], src[:first])
	if second := n - first; second > 0 {
		copy(r.buf[:second], src[first:n])
	}
	r.wr.Store(wr + uint32(n)) // release

	post(r.readable)
	return n
}

// WriteFrom copies all of src, waiting for space while the ring is full.
// It returns early only when ctx is done.
func (r *Ring) WriteFrom(ctx context.Context, src []byte) (int, error) {
	total := 0
	for total < len(src) {
		n := r.TryWriteFrom(src[total:])
		total += n
		if n > 0 {
			continue
		}
		select {
		case <-r.writable:
		case <-ctx.Done():
			return total, ctx.Err()
		}
	}
	return total, nil
}

// Consumer side

// TryReadInto copies up to len(dst) available bytes and returns the count.
func (r *Ring) TryReadInto(dst []byte) (n int) {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	avail := int(wr - rd)
	if avail <= 0 {
		return 0
	}
	n = mathx.Min(len(dst), avail)

	rdIdx := rd & r.mask
	first := mathx.Min(int(r.size()-rdIdx), n)
	copy(dst[:first], r.buf[rdIdx:rdIdx+uint32(first)])
	if second := n - first; second > 0 {
		copy(dst[first:n], r.buf[:second])
	}
	r.rd.Store(rd + uint32(n)) // release

	// The producer may have filled the ring after wr was loaded above, so
	// the wakeup cannot depend on that snapshot.
	post(r.writable)
	return n
}

// TryReadByte pops a single byte if one is available.
func (r *Ring) TryReadByte() (byte, bool) {
	var b [1]byte
	if r.TryReadInto(b[:]) == 0 {
		return 0, false
	}
	return b[0], true
}
