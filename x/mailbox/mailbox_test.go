package mailbox

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLatestValueWins(t *testing.T) {
	m := New[int]()
	for i := 1; i <= 5; i++ {
		m.Send(i)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	v, err := m.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if v != 5 {
		t.Fatalf("got %d, want 5", v)
	}
	if _, ok := m.TryReceive(); ok {
		t.Fatal("value consumed twice")
	}
}

func TestReceiveBlocksUntilSend(t *testing.T) {
	m := New[string]()
	got := make(chan string, 1)
	go func() {
		v, _ := m.Receive(context.Background())
		got <- v
	}()

	select {
	case v := <-got:
		t.Fatalf("receive returned early with %q", v)
	case <-time.After(20 * time.Millisecond):
	}

	m.Send("red")
	select {
	case v := <-got:
		if v != "red" {
			t.Fatalf("got %q", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for receive")
	}
}

func TestReceiveHonoursContext(t *testing.T) {
	m := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := m.Receive(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestConcurrentProducersNeverBlock(t *testing.T) {
	m := New[int]()
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				m.Send(p*1000 + i)
			}
		}(p)
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producers blocked")
	}
	if _, ok := m.TryReceive(); !ok {
		t.Fatal("expected a pending value")
	}
	if _, ok := m.TryReceive(); ok {
		t.Fatal("mailbox held more than one value")
	}
}
