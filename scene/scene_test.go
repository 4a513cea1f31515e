package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goradiance/math/vec"
)

func cubeScene() *Scene {
	return &Scene{
		Models: []*Model{
			NewCube("cube", vec.Vec3{}, vec.Vec3{X: 1, Y: 1, Z: 1}, vec.Vec3{X: 0.8, Y: 0.4, Z: 0.2}),
			NewQuad("floor", vec.Vec3{X: -5, Y: -2, Z: 5}, vec.Vec3{X: 10}, vec.Vec3{Z: -10}, vec.Vec3{X: 1, Y: 1, Z: 1}),
		},
		Lights: []*Light{
			NewPointLight(vec.Vec3{Y: 3}, vec.Vec3{X: 1, Y: 1, Z: 1}, 10, 0),
			NewSun(vec.Vec3{Y: -1}, vec.Vec3{X: 1, Y: 1, Z: 1}, 2),
		},
	}
}

func TestBounds(t *testing.T) {
	s := cubeScene()
	lo, hi, ok := s.Bounds()
	require.True(t, ok)
	assert.Equal(t, vec.Vec3{X: -5, Y: -2, Z: -5}, lo)
	assert.Equal(t, vec.Vec3{X: 5, Y: 0.5, Z: 5}, hi)

	_, _, ok = (&Scene{}).Bounds()
	assert.False(t, ok)
}

func TestSun(t *testing.T) {
	s := cubeScene()
	sun, ok := s.Sun()
	require.True(t, ok)
	assert.Equal(t, Directional, sun.Type)
	assert.Len(t, s.PointLights(), 1)
}

func TestTracerHitsCube(t *testing.T) {
	s := cubeScene()
	tr := NewTracer(s.Models)
	assert.Equal(t, 14, tr.Triangles())

	h, ok := tr.Intersect(vec.Vec3{Y: 5}, vec.Vec3{Y: -1}, 100)
	require.True(t, ok)
	assert.InDelta(t, 4.5, h.T, 1e-4)
	assert.InDelta(t, 1, h.Normal.Y, 1e-4)
	assert.InDelta(t, 0.8, h.Albedo.X, 0.01)
	assert.Equal(t, 0, h.Model)

	h, ok = tr.Intersect(vec.Vec3{X: 3, Y: 5}, vec.Vec3{Y: -1}, 100)
	require.True(t, ok)
	assert.InDelta(t, 7, h.T, 1e-4)
	assert.Equal(t, 1, h.Model)

	_, ok = tr.Intersect(vec.Vec3{X: 3, Y: 5}, vec.Vec3{Y: 1}, 100)
	assert.False(t, ok)

	assert.True(t, tr.Occluded(vec.Vec3{Y: -1}, vec.Vec3{Y: 1}, 10))
	assert.False(t, tr.Occluded(vec.Vec3{Y: -1}, vec.Vec3{Y: 1}, 0.4))
}

func TestTracerSideHit(t *testing.T) {
	tr := NewTracer(cubeScene().Models)
	h, ok := tr.Intersect(vec.Vec3{X: -4, Y: 0.1, Z: 0.2}, vec.Vec3{X: 1}, 100)
	require.True(t, ok)
	assert.InDelta(t, -0.5, h.Pos.X, 1e-4)
	assert.InDelta(t, -1, h.Normal.X, 1e-4)
}

func TestLightIrradiance(t *testing.T) {
	sun := NewSun(vec.Vec3{Y: -1}, vec.Vec3{X: 1, Y: 1, Z: 1}, 2)
	assert.InDelta(t, 2, sun.Irradiance(vec.Vec3{}, vec.Vec3{Y: 1}).X, 1e-6)
	assert.Equal(t, vec.Vec3{}, sun.Irradiance(vec.Vec3{}, vec.Vec3{Y: -1}))

	p := NewPointLight(vec.Vec3{Y: 2}, vec.Vec3{X: 1, Y: 1, Z: 1}, 4, 0)
	assert.InDelta(t, 1, p.Irradiance(vec.Vec3{}, vec.Vec3{Y: 1}).X, 1e-6)
	limited := NewPointLight(vec.Vec3{Y: 2}, vec.Vec3{X: 1, Y: 1, Z: 1}, 4, 1.5)
	assert.Equal(t, vec.Vec3{}, limited.Irradiance(vec.Vec3{}, vec.Vec3{Y: 1}))
}

func TestSkyFromSun(t *testing.T) {
	sky := SkyFromSun(vec.Vec3{Y: -1}, vec.Vec3{X: 1, Y: 1, Z: 1})
	up := sky.Eval(vec.Vec3{Y: 1})
	down := sky.Eval(vec.Vec3{Y: -1})
	assert.Greater(t, up.X, down.X)
	assert.Greater(t, up.X, float32(0.5))
}

func TestCamera(t *testing.T) {
	c := Camera{}
	f := c.Forward()
	assert.InDelta(t, -1, f.Z, 1e-6)
	c.Yaw = 90
	f = c.Forward()
	assert.InDelta(t, 1, f.X, 1e-6)
	v := c.ViewMatrix()
	// the forward direction maps to -Z in view space
	p := v.Mul4x1(vec.Add(c.Pos, f).MGL().Vec4(1))
	assert.InDelta(t, -1, p.Z(), 1e-5)
}
