package mathx

import "testing"

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want int
	}{
		{300, 0, 255, 255},
		{-1, 0, 255, 0},
		{128, 0, 255, 128},
		{128, 255, 0, 128}, // swapped bounds
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestMinMax(t *testing.T) {
	if got := Min(uint16(3), 9); got != 3 {
		t.Errorf("Min = %d, want 3", got)
	}
	if got := Max(uint16(3), 9); got != 9 {
		t.Errorf("Max = %d, want 9", got)
	}
}
