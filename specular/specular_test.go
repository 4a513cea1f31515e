package specular

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goradiance/envmap"
	"goradiance/math/vec"
	"goradiance/scene"
	"goradiance/shadow"
)

func testScene() *scene.Scene {
	down := vec.Vec3{Y: -1}
	white := vec.Vec3{X: 1, Y: 1, Z: 1}
	return &scene.Scene{
		Models:       []*scene.Model{scene.NewCube("cube", vec.Vec3{}, white, vec.Vec3{X: 0.8, Y: 0.6, Z: 0.4})},
		Lights:       []*scene.Light{scene.NewSun(down, white, 3)},
		SkyBox:       scene.SkyFromSun(down, vec.Vec3{X: 0.4, Y: 0.6, Z: 1}),
		SkyLuminance: 1,
	}
}

func bakedLocal(t *testing.T) *Local {
	t.Helper()
	l := New(&envmap.SoftRenderer{Workers: 1}, Settings{Size: 8, Levels: 3, Near: 0.05, Far: 20})
	l.Workers = 2
	require.NoError(t, l.Bake(testScene(), []vec.Vec3{{Y: 2}, {X: 4, Y: 2}}))
	return l
}

type constIrradiance vec.Vec3

func (constIrradiance) Filled() bool { return true }

func (c constIrradiance) Sample(_, _ vec.Vec3) vec.Vec3 { return vec.Vec3(c) }

func TestRelightUnbaked(t *testing.T) {
	l := New(&envmap.SoftRenderer{}, Settings{Size: 4, Levels: 1, Near: 0.1, Far: 10})
	assert.ErrorIs(t, l.Relight(testScene(), nil, nil), ErrNotBaked)
	assert.Equal(t, -1, l.Nearest(vec.Vec3{}))
}

func TestBakeRejectsSettings(t *testing.T) {
	l := New(&envmap.SoftRenderer{}, Settings{Size: 4, Levels: 0, Near: 0.1, Far: 10})
	assert.Error(t, l.Bake(testScene(), []vec.Vec3{{Y: 2}}))
}

func TestRelight(t *testing.T) {
	s := testScene()
	l := bakedLocal(t)
	require.NoError(t, l.Relight(s, nil, nil))

	albedo := l.Output(0, Albedo)
	normal := l.Output(0, Normal)
	light := l.Output(0, Light)
	sky := s.SkyBox.Scale(s.SkyLuminance)

	// the probe looks straight down on the lit top face
	x, y := 4, 4
	require.InDelta(t, 1, normal.At(vec.NegativeY, x, y).Y, 1e-4)
	a := albedo.At(vec.NegativeY, x, y)
	e := vec.Add(vec.Vec3{X: 3, Y: 3, Z: 3}, vec.Max(sky.Irradiance(vec.Vec3{Y: 1}), vec.Vec3{}))
	want := vec.Mul(a, e).Scale(1 / math32.Pi)
	got := light.At(vec.NegativeY, x, y)
	assert.InDelta(t, want.X, got.X, 1e-4)
	assert.InDelta(t, want.Z, got.Z, 1e-4)

	// upwards only sky is seen
	u, v := envmap.TexelUV(x, y, 8)
	skyWant := vec.Max(sky.Eval(envmap.Direction(vec.PositiveY, u, v)), vec.Vec3{})
	assert.Equal(t, skyWant, light.At(vec.PositiveY, x, y))
	assert.Equal(t, float32(1), l.Output(0, Depth).At(vec.PositiveY, x, y).X)

	// a bounce source replaces the sky irradiance
	require.NoError(t, l.Relight(s, nil, constIrradiance{X: 1, Y: 1, Z: 1}))
	want = vec.Mul(a, vec.Vec3{X: 4, Y: 4, Z: 4}).Scale(1 / math32.Pi)
	assert.InDelta(t, want.Y, l.Output(0, Light).At(vec.NegativeY, x, y).Y, 1e-4)
}

func TestRelightShadowed(t *testing.T) {
	s := testScene()
	l := bakedLocal(t)
	roof := scene.NewQuad("roof", vec.Vec3{X: -3, Y: 5, Z: 3}, vec.Vec3{X: 6}, vec.Vec3{Z: -6}, vec.Vec3{X: 1, Y: 1, Z: 1})
	sm := shadow.Build(scene.NewTracer([]*scene.Model{roof}), vec.Vec3{Y: -1},
		vec.Vec3{X: -1, Y: -1, Z: -1}, vec.Vec3{X: 1, Y: 6, Z: 1}, 32, 0.005)
	require.NoError(t, l.Relight(s, sm, nil))

	sky := s.SkyBox.Scale(s.SkyLuminance)
	a := l.Output(0, Albedo).At(vec.NegativeY, 4, 4)
	want := vec.Mul(a, vec.Max(sky.Irradiance(vec.Vec3{Y: 1}), vec.Vec3{})).Scale(1 / math32.Pi)
	got := l.Output(0, Light).At(vec.NegativeY, 4, 4)
	assert.InDelta(t, want.X, got.X, 1e-4)
}

func TestLevels(t *testing.T) {
	l := bakedLocal(t)
	assert.Nil(t, l.Level(0, 0))
	require.NoError(t, l.Relight(testScene(), nil, nil))
	sizes := []int{8, 4, 2}
	for n, size := range sizes {
		lv := l.Level(1, n)
		require.NotNil(t, lv, "level %d", n)
		assert.Equal(t, size, lv.Size)
		for _, f := range lv.Faces {
			assert.Len(t, f, size*size)
		}
	}
	assert.Nil(t, l.Level(1, 3))
	assert.Same(t, l.Output(1, Light), l.Level(1, 0))

	up := vec.Vec3{Y: 1}
	assert.Equal(t, l.Level(0, 0).Lookup(up), l.Reflect(vec.Vec3{X: 0.5, Y: 2}, up, 0))
	assert.Equal(t, l.Level(1, 2).Lookup(up), l.Reflect(vec.Vec3{X: 5, Y: 2}, up, 1))
}

func TestFilterFaceConstant(t *testing.T) {
	face := make([]vec.Vec3, 16*16)
	for i := range face {
		face[i] = vec.Vec3{X: 2, Y: 1, Z: 0.5}
	}
	out := filterFace(face, 16, 8, 3)
	require.Len(t, out, 64)
	for _, v := range out {
		assert.InDelta(t, 2, v.X, 0.02)
		assert.InDelta(t, 1, v.Y, 0.02)
		assert.InDelta(t, 0.5, v.Z, 0.02)
	}
	assert.Equal(t, make([]vec.Vec3, 4), filterFace(make([]vec.Vec3, 16), 4, 2, 1))
}

func TestFilterFaceBrightSky(t *testing.T) {
	face := make([]vec.Vec3, 16*16)
	for i := range face {
		face[i] = vec.Vec3{X: 0.05, Y: 0.05, Z: 0.05}
	}
	face[0] = vec.Vec3{X: 1000, Y: 1000, Z: 1000}
	out := filterFace(face, 16, 8, 2)
	require.Len(t, out, 64)
	for i, v := range out {
		assert.Greater(t, v.Y, float32(0), "texel %d", i)
	}
	// far from the sky texel only the dim band contributes
	assert.InDelta(t, 0.05, out[7*8+7].X, 0.005)
	assert.Greater(t, out[0].X, float32(1))
}

func TestNearest(t *testing.T) {
	l := bakedLocal(t)
	assert.Equal(t, 2, l.Count())
	assert.Equal(t, 0, l.Nearest(vec.Vec3{X: 1.9}))
	assert.Equal(t, 1, l.Nearest(vec.Vec3{X: 2.1}))
	assert.Equal(t, vec.Vec3{X: 4, Y: 2}, l.Position(1))
}

func TestLookup(t *testing.T) {
	c := NewCubemap(4)
	for f := range c.Faces {
		for i := range c.Faces[f] {
			c.Faces[f][i] = vec.Vec3{X: float32(f), Y: float32(i)}
		}
	}
	for f := vec.AxisNormal(0); f < envmap.FaceCount; f++ {
		u, v := envmap.TexelUV(1, 2, 4)
		got := c.Lookup(envmap.Direction(f, u, v))
		assert.Equal(t, vec.Vec3{X: float32(f), Y: float32(2*4 + 1)}, got, "face %v", f)
	}
	assert.Equal(t, "depth", Depth.String())
}
