package state

import (
	"sync"
	"testing"

	"eir-go/x/timex"
)

func TestSetGetSnapshot(t *testing.T) {
	s := New()
	if got := s.Battery.Get(); got.Value.Voltage != 0 || got.At != 0 {
		t.Fatalf("zero value = %+v", got)
	}
	at := timex.Now()
	s.Battery.Set(Battery{Voltage: 3.7}, at)
	got := s.Battery.Get()
	if got.Value.Voltage != 3.7 || got.At != at {
		t.Fatalf("Get = %+v", got)
	}
}

// The writer derives the value from the stamp, so a torn snapshot shows up
// as a mismatch.
func TestSnapshotNeverTornAndNotFromFuture(t *testing.T) {
	c := NewCell[int64]()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			at := timex.Now()
			c.Set(int64(at)*3, at)
		}
	}()
	defer func() { close(stop); wg.Wait() }()

	for i := 0; i < 20000; i++ {
		snap := c.Get()
		readAt := timex.Now()
		if snap.Value != int64(snap.At)*3 {
			t.Fatalf("torn: %+v", snap)
		}
		if snap.At > readAt {
			t.Fatalf("stamp %d after read time %d", snap.At, readAt)
		}
	}
}
