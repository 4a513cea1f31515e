// SPDX-License-Identifier: GPL-2.0-or-later

package math

type Number interface {
	int32 | int64 | float64 | float32 | int
}

func Clamp[K Number](min, val, max K) K {
	if min > val {
		return min
	} else if max < val {
		return max
	}
	return val
}

// Saturate clamps to [0,1].
func Saturate(v float32) float32 {
	return Clamp(0, v, 1)
}
