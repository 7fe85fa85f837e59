package timex

import (
	"testing"
	"time"
)

func TestStampSplitsMicroseconds(t *testing.T) {
	i := Instant(3*time.Second + 250*time.Millisecond + 7*time.Microsecond)
	sec, ns := i.Stamp()
	if sec != 3 || ns != 250_007_000 {
		t.Fatalf("Stamp() = %d, %d", sec, ns)
	}
}

func TestNowIsMonotonic(t *testing.T) {
	a := Now()
	time.Sleep(time.Millisecond)
	b := Now()
	if b <= a {
		t.Fatalf("instants not increasing: %d then %d", a, b)
	}
	if Since(a) < time.Millisecond {
		t.Fatalf("Since = %v", Since(a))
	}
}

func TestAddMovesInstant(t *testing.T) {
	i := Instant(time.Second)
	if got := i.Add(500 * time.Millisecond); got != Instant(1500*time.Millisecond) {
		t.Fatalf("Add = %v", time.Duration(got))
	}
}
