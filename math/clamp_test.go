// SPDX-License-Identifier: GPL-2.0-or-later

package math

import (
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		lo, v, hi, want int
	}{
		{1, 0, 10, 1},
		{1, 100, 10, 10},
		{1, 5, 10, 5},
		{0, -1, 0, 0},
	}
	for _, tc := range tests {
		if got := Clamp(tc.lo, tc.v, tc.hi); got != tc.want {
			t.Errorf("Clamp(%v,%v,%v) = %v want %v", tc.lo, tc.v, tc.hi, got, tc.want)
		}
	}
}

func TestSaturate(t *testing.T) {
	tests := []struct {
		v, want float32
	}{
		{-0.5, 0},
		{0.25, 0.25},
		{1, 1},
		{3, 1},
	}
	for _, tc := range tests {
		if got := Saturate(tc.v); got != tc.want {
			t.Errorf("Saturate(%v) = %v want %v", tc.v, got, tc.want)
		}
	}
}
