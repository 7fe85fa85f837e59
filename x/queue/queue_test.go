package queue

import (
	"context"
	"testing"
	"time"

	"eir-go/errcode"
)

func TestCapacityAndBackpressure(t *testing.T) {
	for _, n := range []int{1, 2, 5, 16} {
		q := New[int](n)
		for i := 0; i < n; i++ {
			if err := q.TrySend(i); err != nil {
				t.Fatalf("n=%d: send %d: %v", n, i, err)
			}
		}
		if err := q.TrySend(n); err != errcode.QueueFull {
			t.Fatalf("n=%d: send past capacity: got %v, want queue_full", n, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		if err := q.Send(ctx, n); err == nil {
			t.Fatalf("n=%d: blocking send past capacity succeeded", n)
		}
		cancel()

		if _, ok := q.TryRecv(); !ok {
			t.Fatalf("n=%d: recv failed", n)
		}
		if err := q.TrySend(n); err != nil {
			t.Fatalf("n=%d: send after recv: %v", n, err)
		}
		if err := q.TrySend(n + 1); err != errcode.QueueFull {
			t.Fatalf("n=%d: more than one slot freed by a single recv", n)
		}
	}
}

func TestFIFOOrder(t *testing.T) {
	q := New[int](4)
	ctx := context.Background()
	go func() {
		for i := 0; i < 100; i++ {
			_ = q.Send(ctx, i)
		}
	}()
	for i := 0; i < 100; i++ {
		v, err := q.Recv(ctx)
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		if v != i {
			t.Fatalf("order broken at %d: got %d", i, v)
		}
	}
}

func TestBlockedSendResumesAfterRecv(t *testing.T) {
	q := New[string](1)
	_ = q.TrySend("a")
	done := make(chan error, 1)
	go func() { done <- q.Send(context.Background(), "b") }()

	select {
	case <-done:
		t.Fatal("send did not block on a full queue")
	case <-time.After(20 * time.Millisecond):
	}
	if v, _ := q.TryRecv(); v != "a" {
		t.Fatalf("got %q", v)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("send: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("send never resumed")
	}
	if q.Len() != 1 || q.Cap() != 1 {
		t.Fatalf("len=%d cap=%d", q.Len(), q.Cap())
	}
}
