package hw

import (
	"context"
	"testing"
	"time"
)

func startDebouncer(t *testing.T, d *Debouncer) chan Event {
	t.Helper()
	out := make(chan Event, 8)
	d.OnEdge = func(e Event) { out <- e }
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = d.Run(ctx); close(done) }()
	t.Cleanup(func() { cancel(); <-done })
	return out
}

func waitArmed(t *testing.T, p *FakePin) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !p.Armed() {
		if time.Now().After(deadline) {
			t.Fatal("interrupt never armed")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDebounceAndEdges(t *testing.T) {
	pin := &FakePin{}
	d := NewDebouncer(pin, EdgeBoth, 10*time.Millisecond, false)
	events := startDebouncer(t, d)
	waitArmed(t, pin)

	pin.Fire(true)
	select {
	case ev := <-events:
		if !ev.Level || ev.Edge != EdgeRising {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for rising event")
	}

	// inside the window
	pin.Fire(false)
	select {
	case ev := <-events:
		t.Fatalf("unexpected event during debounce: %+v", ev)
	case <-time.After(5 * time.Millisecond):
	}

	time.Sleep(12 * time.Millisecond)
	pin.Fire(false)
	select {
	case ev := <-events:
		if ev.Level || ev.Edge != EdgeFalling {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for falling event")
	}
}

func TestFallingOnlyWithPullUp(t *testing.T) {
	pin := &FakePin{}
	pin.Set(true) // idle high
	d := NewDebouncer(pin, EdgeFalling, 100*time.Millisecond, false)
	events := startDebouncer(t, d)
	waitArmed(t, pin)

	// bounce: several interrupts in quick succession
	for i := 0; i < 4; i++ {
		pin.Fire(false)
	}
	select {
	case ev := <-events:
		if ev.Edge != EdgeFalling {
			t.Fatalf("edge = %v", ev.Edge)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no event")
	}
	select {
	case ev := <-events:
		t.Fatalf("bounce leaked through: %+v", ev)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestInvertedLevel(t *testing.T) {
	d := NewDebouncer(&FakePin{}, EdgeBoth, 0, true)
	var got []Event
	d.OnEdge = func(e Event) { got = append(got, e) }
	d.lastLevel = true // idle low, inverted

	now := time.Now()
	d.handle(true, now) // raw high is logical low
	if len(got) != 1 || got[0].Edge != EdgeFalling || got[0].Level {
		t.Fatalf("got %+v", got)
	}
}

func TestISRNeverBlocks(t *testing.T) {
	pin := &FakePin{}
	d := NewDebouncer(pin, EdgeFalling, time.Hour, false)
	// no Run: nothing drains the queue
	_ = pin.SetIRQ(EdgeFalling, d.isr)
	for i := 0; i < 20; i++ {
		pin.Fire(false)
	}
	if d.ISRDrops() != 20-uint32(cap(d.isrQ)) {
		t.Fatalf("drops = %d", d.ISRDrops())
	}
}
