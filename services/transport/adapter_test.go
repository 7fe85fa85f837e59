package transport

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"eir-go/errcode"
	"eir-go/services/sched"
	"eir-go/x/timex"
)

// loopback echoes every written packet back as inbound bytes.
type loopback struct {
	ch chan []byte
}

func newLoopback() *loopback { return &loopback{ch: make(chan []byte, 16)} }

func (l *loopback) WritePacket(p []byte) error {
	l.ch <- append([]byte(nil), p...)
	return nil
}

func (l *loopback) ReadPacket(ctx context.Context, p []byte) (int, error) {
	select {
	case b := <-l.ch:
		return copy(p, b), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func startLinks(t *testing.T, a *Adapter, l Link) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ex := sched.NewExecutor(ctx, "irq", sched.PriorityInterrupt)
	if err := Spawn(ctx, ex, a, l); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	t.Cleanup(func() { cancel(); ex.Wait() })
}

func captureFatal(t *testing.T) *atomic.Int32 {
	t.Helper()
	var n atomic.Int32
	prev := sched.FatalHook
	sched.FatalHook = func(string, error) { n.Add(1) }
	t.Cleanup(func() { sched.FatalHook = prev })
	return &n
}

func pattern(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i*7 + 3)
	}
	return p
}

func TestOpenCloseAlwaysTrue(t *testing.T) {
	a := NewAdapter(Options{})
	for i := 0; i < 3; i++ {
		if !a.Open() || !a.Close() {
			t.Fatal("open/close must be idempotent and succeed")
		}
	}
}

func TestLoopbackRoundTrip(t *testing.T) {
	a := NewAdapter(Options{})
	startLinks(t, a, newLoopback())

	for _, n := range []int{1, 2, 63, 64, 65, 500, BufferLen - 1, BufferLen} {
		in := pattern(n)
		w, err := a.Write(in)
		if err != nil || w != n {
			t.Fatalf("Write(%d) = %d, %v", n, w, err)
		}
		out := make([]byte, n)
		got, timedOut := a.Read(out, 2*time.Second)
		if timedOut || got != n {
			t.Fatalf("Read(%d) = %d timedOut=%v", n, got, timedOut)
		}
		if !bytes.Equal(in, out) {
			t.Fatalf("round trip %d: bytes differ", n)
		}
	}
	if st := a.Stats(); st.Dropped != 0 || st.BytesOut != st.BytesIn {
		t.Fatalf("stats = %+v", st)
	}
}

func TestReadTimesOutWithNoData(t *testing.T) {
	a := NewAdapter(Options{})
	const timeout = 20 * time.Millisecond

	start := time.Now()
	n, timedOut := a.Read(make([]byte, 8), timeout)
	el := time.Since(start)

	if n != 0 || !timedOut {
		t.Fatalf("Read = %d timedOut=%v", n, timedOut)
	}
	if el < timeout {
		t.Fatalf("returned early after %v", el)
	}
	// one poll is a Gosched; allow generous scheduler slack
	if el > timeout+50*time.Millisecond {
		t.Fatalf("returned late after %v", el)
	}
	if a.Stats().ReadTimeouts != 1 {
		t.Fatalf("timeouts = %d", a.Stats().ReadTimeouts)
	}
}

func TestReadReturnsEarlyWhenFilled(t *testing.T) {
	a := NewAdapter(Options{})
	a.in.TryWriteFrom([]byte("hello world"))

	start := time.Now()
	p := make([]byte, 5)
	n, timedOut := a.Read(p, 5*time.Second)
	if n != 5 || timedOut || string(p) != "hello" {
		t.Fatalf("Read = %d %q timedOut=%v", n, p, timedOut)
	}
	if time.Since(start) > time.Second {
		t.Fatal("read waited for the timeout")
	}
	if a.Pending() != 6 {
		t.Fatalf("pending = %d", a.Pending())
	}
}

func TestReadPartialOnTimeout(t *testing.T) {
	a := NewAdapter(Options{})
	a.in.TryWriteFrom([]byte("abc"))
	p := make([]byte, 8)
	n, timedOut := a.Read(p, 5*time.Millisecond)
	if n != 3 || !timedOut || string(p[:n]) != "abc" {
		t.Fatalf("Read = %d %q timedOut=%v", n, p[:n], timedOut)
	}
}

func TestReadChecksClockEveryIteration(t *testing.T) {
	// A fake clock that advances one millisecond per reading.
	var ticks atomic.Int64
	now := func() timex.Instant { return timex.Instant(ticks.Add(int64(time.Millisecond))) }
	var yields int
	a := NewAdapter(Options{Now: now, Yield: func() { yields++ }})

	n, timedOut := a.Read(make([]byte, 4), 10*time.Millisecond)
	if n != 0 || !timedOut {
		t.Fatalf("Read = %d timedOut=%v", n, timedOut)
	}
	if yields != 9 {
		t.Fatalf("yields = %d, want 9", yields)
	}
}

func TestWriteAtCapacityAndBeyond(t *testing.T) {
	fatal := captureFatal(t)
	a := NewAdapter(Options{})

	if n, err := a.Write(pattern(BufferLen)); err != nil || n != BufferLen {
		t.Fatalf("Write(BufferLen) = %d, %v", n, err)
	}
	if fatal.Load() != 0 {
		t.Fatal("write at capacity reported fatal")
	}

	n, err := a.Write(pattern(BufferLen + 1))
	if fatal.Load() != 1 {
		t.Fatalf("fatal calls = %d", fatal.Load())
	}
	if n != 0 || !errors.Is(err, errcode.TooLarge) {
		t.Fatalf("Write(BufferLen+1) = %d, %v", n, err)
	}
}

func TestWriteQueueFullIsTransient(t *testing.T) {
	a := NewAdapter(Options{WriteTimeout: 10 * time.Millisecond})

	// no sender task: the outbound queue fills after QueueLen writes
	for i := 0; i < QueueLen; i++ {
		if _, err := a.Write([]byte{byte(i)}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	start := time.Now()
	n, err := a.Write([]byte{9})
	if n != 0 || !errors.Is(err, errcode.QueueFull) || !errcode.Transient(err) {
		t.Fatalf("Write on full queue = %d, %v", n, err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("write did not wait for a slot")
	}
	if a.Stats().Dropped != 1 {
		t.Fatalf("dropped = %d", a.Stats().Dropped)
	}

	// draining one slot lets exactly one more write through
	b, ok := a.out.TryRecv()
	if !ok || b.Len() != 1 {
		t.Fatal("expected a queued buffer")
	}
	a.release(b)
	if _, err := a.Write([]byte{10}); err != nil {
		t.Fatalf("write after drain: %v", err)
	}
	if _, err := a.Write([]byte{11}); !errors.Is(err, errcode.QueueFull) {
		t.Fatalf("second write after drain = %v", err)
	}
}

func TestWriteWaitsForSlot(t *testing.T) {
	a := NewAdapter(Options{WriteTimeout: time.Second})
	for i := 0; i < QueueLen; i++ {
		_, _ = a.Write([]byte{byte(i)})
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		b, _ := a.out.TryRecv()
		a.release(b)
	}()
	if _, err := a.Write([]byte{7}); err != nil {
		t.Fatalf("Write = %v", err)
	}
}

type failingLink struct{ loopback }

func (failingLink) WritePacket([]byte) error { return errors.New("usb gone") }

func TestSenderLinkFailureIsFatal(t *testing.T) {
	done := make(chan error, 1)
	prev := sched.FatalHook
	sched.FatalHook = func(_ string, err error) { done <- err }
	t.Cleanup(func() { sched.FatalHook = prev })

	a := NewAdapter(Options{})
	startLinks(t, a, &failingLink{*newLoopback()})
	if _, err := a.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if errcode.Of(err) != errcode.LinkDown {
			t.Fatalf("code = %q", errcode.Of(err))
		}
	case <-time.After(time.Second):
		t.Fatal("link failure not reported")
	}
}
