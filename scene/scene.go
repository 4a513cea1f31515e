// Package scene describes what gets baked and lit: models, lights, sky and
// the viewing camera.
package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"goradiance/math"
	"goradiance/math/sh"
	"goradiance/math/vec"
)

type Camera struct {
	Pos   vec.Vec3
	Yaw   float32 // degrees around +Y
	Pitch float32 // degrees, positive looks up
}

func (c Camera) Forward() vec.Vec3 {
	sy, cy := math32.Sincos(math.Radians(math.AngleMod32(c.Yaw)))
	sp, cp := math32.Sincos(math.Radians(c.Pitch))
	return vec.Vec3{X: cp * sy, Y: sp, Z: -cp * cy}
}

func (c Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Pos.MGL(), vec.Add(c.Pos, c.Forward()).MGL(), mgl32.Vec3{0, 1, 0})
}

type LightType int

const (
	Directional LightType = iota
	Point
)

type Light struct {
	Type      LightType
	Position  vec.Vec3
	Direction vec.Vec3 // direction the light travels, directional lights only
	Colour    vec.Vec3
	Luminance float32
	Range     float32 // point lights contribute nothing beyond Range
}

func NewSun(dir, colour vec.Vec3, luminance float32) *Light {
	return &Light{
		Type:      Directional,
		Direction: dir.Normalize(),
		Colour:    colour,
		Luminance: luminance,
	}
}

func NewPointLight(pos, colour vec.Vec3, luminance, rng float32) *Light {
	return &Light{
		Type:      Point,
		Position:  pos,
		Colour:    colour,
		Luminance: luminance,
		Range:     rng,
	}
}

// Irradiance at p with surface normal n, ignoring occlusion.
func (l *Light) Irradiance(p, n vec.Vec3) vec.Vec3 {
	switch l.Type {
	case Directional:
		ndl := max(vec.Dot(n, l.Direction.Scale(-1)), 0)
		return l.Colour.Scale(l.Luminance * ndl)
	default:
		d := vec.Sub(l.Position, p)
		dist2 := vec.Dot(d, d)
		if l.Range > 0 && dist2 > l.Range*l.Range {
			return vec.Vec3{}
		}
		ndl := max(vec.Dot(n, d.Normalize()), 0)
		falloff := 1 / max(dist2, 1e-4)
		if l.Range > 0 {
			// smooth window towards Range
			w := math.Saturate(1 - dist2/(l.Range*l.Range))
			falloff *= w * w
		}
		return l.Colour.Scale(l.Luminance * ndl * falloff)
	}
}

type Scene struct {
	View         Camera
	Models       []*Model
	Lights       []*Light
	SkyBox       sh.RGB3
	SkyLuminance float32
}

// Sun returns the first directional light.
func (s *Scene) Sun() (*Light, bool) {
	for _, l := range s.Lights {
		if l.Type == Directional {
			return l, true
		}
	}
	return nil, false
}

func (s *Scene) PointLights() []*Light {
	var r []*Light
	for _, l := range s.Lights {
		if l.Type == Point {
			r = append(r, l)
		}
	}
	return r
}

// Bounds is the world space box around all models. ok is false without models.
func (s *Scene) Bounds() (lo, hi vec.Vec3, ok bool) {
	for i, m := range s.Models {
		a, b := m.Bounds()
		if i == 0 {
			lo, hi = a, b
			continue
		}
		lo, hi = vec.Min(lo, a), vec.Max(hi, b)
	}
	return lo, hi, len(s.Models) > 0
}

// SkyFromSun returns a sky radiance lobe centred between the zenith and the
// sun. dir is the travel direction of the sunlight.
func SkyFromSun(dir, colour vec.Vec3) sh.RGB3 {
	axis := vec.Add(vec.Vec3{Y: 1}, dir.Normalize().Scale(-1))
	if axis.Length() < 1e-3 {
		axis = vec.Vec3{Y: 1}
	}
	return sh.Tint(sh.ClampedCosine(axis.Normalize()), colour)
}
