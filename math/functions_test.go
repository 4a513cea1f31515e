package math

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestSafeDiv(t *testing.T) {
	if got := SafeDiv(1, 0); got != 0 {
		t.Errorf("SafeDiv(1,0) = %v want 0", got)
	}
	if got := SafeDiv(1, 1e-9); got != 0 {
		t.Errorf("SafeDiv(1,1e-9) = %v want 0", got)
	}
	if got := SafeDiv(3, 2); got != 1.5 {
		t.Errorf("SafeDiv(3,2) = %v want 1.5", got)
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		a, b, want int32
	}{
		{7, 4, 1},
		{8, 4, 2},
		{0, 4, 0},
		{-1, 4, -1},
		{-4, 4, -1},
		{-5, 4, -2},
	}
	for _, tc := range tests {
		if got := FloorDiv(tc.a, tc.b); got != tc.want {
			t.Errorf("FloorDiv(%v,%v) = %v want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestFinite(t *testing.T) {
	if Finite(math32.NaN()) || Finite(math32.Inf(1)) {
		t.Errorf("NaN/Inf reported finite")
	}
	if !Finite(1) {
		t.Errorf("1 reported not finite")
	}
}
