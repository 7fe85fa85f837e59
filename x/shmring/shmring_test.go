package shmring

import (
	"context"
	"runtime"
	"testing"
	"time"
)

// fakeIO models partial producer progress (accept up to k bytes).
type fakeIO struct{ k int }

func (f fakeIO) write(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	if len(p) > f.k {
		return f.k
	}
	return len(p)
}

func TestOrderAcrossWrapWithPartialProgress(t *testing.T) {
	r := New(64)
	prod := fakeIO{k: 7}

	const N = 2000
	src := make([]byte, N)
	for i := range src {
		src[i] = byte(i)
	}

	p := src
	dst := make([]byte, N)
	off := 0

	for off < N {
		if len(p) > 0 {
			step := prod.write(p)
			if step > 0 {
				step = r.TryWriteFrom(p[:step])
				p = p[step:]
			}
		}

		var tmp [17]byte
		n := r.TryReadInto(tmp[:])
		if n > 0 {
			copy(dst[off:], tmp[:n])
			off += n
		}
	}

	for i := 0; i < N; i++ {
		if dst[i] != src[i] {
			t.Fatalf("mismatch at %d: got=%d want=%d", i, dst[i], src[i])
		}
	}
}

func TestTransfersPostWakeups(t *testing.T) {
	r := New(8)
	select {
	case <-r.readable:
		t.Fatal("unexpected readable token on empty ring")
	default:
	}
	if n := r.TryWriteFrom([]byte{1, 2, 3}); n != 3 {
		t.Fatalf("write 3 -> %d", n)
	}
	select {
	case <-r.readable:
	default:
		t.Fatal("expected readable token")
	}

	// Fill to capacity; any read must post a writable token.
	if n := r.TryWriteFrom(make([]byte, 8)); n != 5 {
		t.Fatalf("fill -> %d, want 5", n)
	}
	if r.Space() != 0 {
		t.Fatalf("space = %d", r.Space())
	}
	if _, ok := r.TryReadByte(); !ok {
		t.Fatal("read byte failed")
	}
	select {
	case <-r.writable:
	default:
		t.Fatal("expected writable token after a read")
	}

	// A failed transfer posts nothing.
	if n := r.TryReadInto(nil); n != 0 {
		t.Fatalf("empty read -> %d", n)
	}
	select {
	case <-r.writable:
		t.Fatal("unexpected writable token")
	default:
	}
}

// A producer blocked in WriteFrom must always be woken by a polling
// consumer, even when it filled the ring while a read was in flight.
func TestBlockingProducerNeverStallsOnTinyRing(t *testing.T) {
	for round := 0; round < 500; round++ {
		r := New(2)
		const N = 200
		ctx, cancel := context.WithCancel(context.Background())
		wrote := make(chan int, 1)
		go func() {
			total := 0
			for i := 0; i < N; i++ {
				n, err := r.WriteFrom(ctx, []byte{byte(i)})
				total += n
				if err != nil {
					break
				}
			}
			wrote <- total
		}()

		got := 0
		deadline := time.Now().Add(2 * time.Second)
		var b [1]byte
		for got < N && time.Now().Before(deadline) {
			if r.TryReadInto(b[:]) == 1 {
				if b[0] != byte(got) {
					cancel()
					t.Fatalf("round %d: byte %d = %d", round, got, b[0])
				}
				got++
				continue
			}
			runtime.Gosched()
		}
		cancel()
		total := <-wrote
		if got != N {
			t.Fatalf("round %d: producer stalled after %d bytes (wrote %d, avail %d, space %d)",
				round, got, total, r.Available(), r.Space())
		}
	}
}

func TestWriteFromBlocksUntilSpace(t *testing.T) {
	r := New(4)
	done := make(chan int, 1)
	go func() {
		n, _ := r.WriteFrom(context.Background(), []byte{1, 2, 3, 4, 5, 6})
		done <- n
	}()

	select {
	case <-done:
		t.Fatal("WriteFrom returned with a full ring")
	case <-time.After(20 * time.Millisecond):
	}

	got := make([]byte, 0, 6)
	deadline := time.After(time.Second)
	for len(got) < 6 {
		if b, ok := r.TryReadByte(); ok {
			got = append(got, b)
			continue
		}
		select {
		case <-deadline:
			t.Fatalf("stalled after %d bytes", len(got))
		case <-time.After(time.Millisecond):
		}
	}
	if n := <-done; n != 6 {
		t.Fatalf("WriteFrom = %d", n)
	}
	for i, b := range got {
		if b != byte(i+1) {
			t.Fatalf("byte %d = %d", i, b)
		}
	}
}

func TestWriteFromHonoursContext(t *testing.T) {
	r := New(2)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	n, err := r.WriteFrom(ctx, []byte{1, 2, 3})
	if err == nil || n != 2 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}
