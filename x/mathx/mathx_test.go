package mathx

import "testing"

func TestClampSwapsBounds(t *testing.T) {
	if got := Clamp(5, 10, 0); got != 5 {
		t.Fatalf("Clamp = %d", got)
	}
	if got := Clamp(-1.5, 0, 1); got != 0 {
		t.Fatalf("Clamp = %v", got)
	}
}

func TestMinMax(t *testing.T) {
	if Min(3, 7) != 3 || Max(3, 7) != 7 {
		t.Fatal("Min/Max ints")
	}
	if Min("b", "a") != "a" {
		t.Fatal("Min strings")
	}
}

func TestUnitToU8(t *testing.T) {
	cases := map[float32]uint8{-1: 0, 0: 0, 0.5: 128, 1: 255, 3: 255}
	for in, want := range cases {
		if got := UnitToU8(in); got != want {
			t.Errorf("UnitToU8(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio(32768, 3.3); got < 1.649 || got > 1.651 {
		t.Fatalf("Ratio = %v", got)
	}
}
