package vec

import (
	"testing"
)

var (
	NULL = Vec3{}
)

func TestBasics(t *testing.T) {
	v := Vec3{1, 2, 3}
	if v.Idx(0) != 1 || v.Idx(1) != 2 || v.Idx(2) != 3 {
		t.Errorf("Vector construction is not obvious")
	}
	if got := FromMGL(v.MGL()); got != v {
		t.Errorf("mgl round trip = %v want %v", got, v)
	}
}

func TestLength(t *testing.T) {
	if NULL.Length() != 0 {
		t.Errorf("Null vector has not 0 length")
	}
	v := Vec3{2, 2, 1}
	if v.Length() != 3 {
		t.Errorf("%v Length is not 3", v)
	}
	v = Vec3{2, 1, 2}
	if v.Length() != 3 {
		t.Errorf("%v Length is not 3", v)
	}
	v = Vec3{1, 2, 2}
	if v.Length() != 3 {
		t.Errorf("%v Length is not 3", v)
	}
}

func TestAdd(t *testing.T) {
	v := Vec3{1, 2, 3}
	got := Add(NULL, v)
	if v != got {
		t.Errorf("Adding a null vector changed the vector")
	}
	got = Add(v, NULL)
	if v != got {
		t.Errorf("Adding a null vector changed the vector")
	}
	got = Add(v, v)
	want := Vec3{2, 4, 6}
	if got != want {
		t.Errorf("Add(%v,%v) = %v want %v", v, v, got, want)
	}
}

func TestSub(t *testing.T) {
	v := Vec3{1, 2, 3}
	got := Sub(v, NULL)
	if v != got {
		t.Errorf("Substracting a null vector changed the vector")
	}
	got = Sub(v, v)
	if got != NULL {
		t.Errorf("Sub(%v,%v) = %v want %v", v, v, got, NULL)
	}
	v2 := Vec3{9, 7, 5}
	got = Sub(v2, v)
	want := Vec3{8, 5, 2}
	if got != want {
		t.Errorf("Sub(%v,%v) = %v want %v", v2, v, got, want)
	}
}

func TestScale(t *testing.T) {
	v := Vec3{1, 2, 3}
	got := v.Scale(2)
	want := Vec3{2, 4, 6}
	if got != want {
		t.Errorf("%v.Scale(2) = %v want %v", v, got, want)
	}
	if got := v.Scale(0); got != NULL {
		t.Errorf("%v.Scale(0) = %v want %v", v, got, NULL)
	}
}

func TestNormalize(t *testing.T) {
	if got := NULL.Normalize(); got != NULL {
		t.Errorf("Normalize of null vector = %v", got)
	}
	v := Vec3{0, 3, 4}
	got := v.Normalize()
	want := Vec3{0, 0.6, 0.8}
	if Distance(got, want) > 1e-6 {
		t.Errorf("%v.Normalize() = %v want %v", v, got, want)
	}
}

func TestDot(t *testing.T) {
	if got := Dot(Vec3{1, 2, 3}, Vec3{4, -5, 6}); got != 12 {
		t.Errorf("Dot = %v want 12", got)
	}
	if got := Cross(Vec3{1, 0, 0}, Vec3{0, 1, 0}); got != (Vec3{0, 0, 1}) {
		t.Errorf("Cross(x,y) = %v want z", got)
	}
}

func TestGreatestAxis(t *testing.T) {
	tests := []struct {
		v    Vec3
		want AxisNormal
	}{
		{Vec3{1, 0, 0}, PositiveX},
		{Vec3{-2, 1, 1}, NegativeX},
		{Vec3{0.1, 0.9, -0.2}, PositiveY},
		{Vec3{0.1, -0.9, -0.2}, NegativeY},
		{Vec3{0, 0.5, 0.7}, PositiveZ},
		{Vec3{0, 0.5, -0.7}, NegativeZ},
		{Vec3{1, 1, 1}, PositiveX},
	}
	for _, tc := range tests {
		if got := GreatestAxis(tc.v); got != tc.want {
			t.Errorf("GreatestAxis(%v) = %v want %v", tc.v, got, tc.want)
		}
	}
}

func TestAxisVec(t *testing.T) {
	for a := AxisNormal(0); a < AxisCount; a++ {
		if got := GreatestAxis(a.Vec()); got != a {
			t.Errorf("GreatestAxis(%v.Vec()) = %v", a, got)
		}
	}
}

func TestEqual(t *testing.T) {
	v1 := Vec3{2, 3, 4}
	v2 := Vec3{4, 3, 2}
	if v1 != v1 {
		t.Errorf("Vectors are not considered equal to them self")
	}
	if v1 == v2 {
		t.Errorf("Vectors %v and %v are considered equal", v1, v2)
	}
}
