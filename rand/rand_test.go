// SPDX-License-Identifier: GPL-2.0-or-later

package rand

import (
	"testing"

	"goradiance/math/vec"
)

func TestDeterministic(t *testing.T) {
	a := New(1)
	b := New(1)
	for i := 0; i < 100; i++ {
		if x, y := a.Float32(), b.Float32(); x != y {
			t.Fatalf("step %d: %v != %v", i, x, y)
		}
	}
	c := New(2)
	a = New(1)
	same := 0
	for i := 0; i < 100; i++ {
		if a.Intn(1000) == c.Intn(1000) {
			same++
		}
	}
	if same > 10 {
		t.Errorf("different seeds produced %d equal draws", same)
	}
}

func TestPointInside(t *testing.T) {
	g := New(7)
	lo := vec.Vec3{X: -1, Y: 2, Z: 0}
	hi := vec.Vec3{X: 1, Y: 3, Z: 0.5}
	for i := 0; i < 1000; i++ {
		p := g.Point(lo, hi)
		if p.X < lo.X || p.X > hi.X || p.Y < lo.Y || p.Y > hi.Y || p.Z < lo.Z || p.Z > hi.Z {
			t.Fatalf("point %v outside [%v,%v]", p, lo, hi)
		}
	}
}
