// Package sh implements order 3 (bands 0..2) real spherical harmonics.
package sh

import (
	"github.com/chewxy/math32"

	"goradiance/math/vec"
)

const CoeffCount = 9

// Real SH basis normalisation constants.
const (
	y00 = 0.282095
	y1  = 0.488603
	y2  = 1.092548
	y20 = 0.315392
	y22 = 0.546274
)

// Convolution factors of the clamped cosine kernel per band.
const (
	a0 = math32.Pi
	a1 = 2 * math32.Pi / 3
	a2 = math32.Pi / 4
)

var band = [CoeffCount]int{0, 1, 1, 1, 2, 2, 2, 2, 2}

type Coeffs3 [CoeffCount]float32

// RGB3 holds one coefficient set per colour channel.
type RGB3 struct {
	R, G, B Coeffs3
}

// Project returns the basis functions evaluated in direction dir.
// dir has to be normalized.
func Project(dir vec.Vec3) Coeffs3 {
	x, y, z := dir.X, dir.Y, dir.Z
	return Coeffs3{
		y00,
		y1 * y,
		y1 * z,
		y1 * x,
		y2 * x * y,
		y2 * y * z,
		y20 * (3*z*z - 1),
		y2 * x * z,
		y22 * (x*x - y*y),
	}
}

func (c Coeffs3) Add(o Coeffs3) Coeffs3 {
	for i := range c {
		c[i] += o[i]
	}
	return c
}

func (c Coeffs3) Scale(s float32) Coeffs3 {
	for i := range c {
		c[i] *= s
	}
	return c
}

func (c Coeffs3) Dot(o Coeffs3) float32 {
	var r float32
	for i := range c {
		r += c[i] * o[i]
	}
	return r
}

// Eval reconstructs the function in direction dir.
func (c Coeffs3) Eval(dir vec.Vec3) float32 {
	return c.Dot(Project(dir))
}

// Irradiance treats c as radiance and returns the cosine weighted integral
// over the hemisphere around n.
func (c Coeffs3) Irradiance(n vec.Vec3) float32 {
	b := Project(n)
	var r float32
	for i := range c {
		switch band[i] {
		case 0:
			r += a0 * c[i] * b[i]
		case 1:
			r += a1 * c[i] * b[i]
		default:
			r += a2 * c[i] * b[i]
		}
	}
	return r
}

// ClampedCosine projects max(dot(w, dir), 0).
func ClampedCosine(dir vec.Vec3) Coeffs3 {
	z := [3]float32{
		math32.Sqrt(math32.Pi) / 2,
		math32.Sqrt(math32.Pi / 3),
		math32.Sqrt(5*math32.Pi) / 8,
	}
	b := Project(dir.Normalize())
	var c Coeffs3
	for i := range c {
		l := band[i]
		c[i] = math32.Sqrt(4*math32.Pi/float32(2*l+1)) * z[l] * b[i]
	}
	return c
}

// TexelSolidAngle is proportional to the solid angle of a cubemap texel
// centred at face coordinates (u, v) in [-1,1].
func TexelSolidAngle(u, v float32) float32 {
	t := u*u + v*v + 1
	return 24 / (math32.Sqrt(t) * t)
}

// Tint returns c scaled by each channel of colour.
func Tint(c Coeffs3, colour vec.Vec3) RGB3 {
	return RGB3{
		R: c.Scale(colour.X),
		G: c.Scale(colour.Y),
		B: c.Scale(colour.Z),
	}
}

func (c RGB3) Scale(s float32) RGB3 {
	return RGB3{c.R.Scale(s), c.G.Scale(s), c.B.Scale(s)}
}

func (c RGB3) Eval(dir vec.Vec3) vec.Vec3 {
	b := Project(dir)
	return vec.Vec3{X: c.R.Dot(b), Y: c.G.Dot(b), Z: c.B.Dot(b)}
}

func (c RGB3) Irradiance(n vec.Vec3) vec.Vec3 {
	return vec.Vec3{X: c.R.Irradiance(n), Y: c.G.Irradiance(n), Z: c.B.Irradiance(n)}
}

func (c RGB3) IsZero() bool {
	return c == RGB3{}
}
