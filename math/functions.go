package math

import (
	gmath "math"

	"github.com/chewxy/math32"
)

const (
	Pi = gmath.Pi

	// Epsilon is the floor applied to divisors in lighting math.
	Epsilon = 1e-6
)

func Sqrt(x float32) float32 {
	return math32.Sqrt(x)
}

func Floor(x float32) float32 {
	return math32.Floor(x)
}

// SafeDiv returns n/d, or 0 when |d| is below Epsilon.
func SafeDiv(n, d float32) float32 {
	if math32.Abs(d) < Epsilon {
		return 0
	}
	return n / d
}

// FloorDiv divides rounding towards negative infinity.
func FloorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Finite reports whether x is neither NaN nor infinite.
func Finite(x float32) bool {
	return !math32.IsNaN(x) && !math32.IsInf(x, 0)
}
