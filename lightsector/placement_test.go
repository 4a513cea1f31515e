package lightsector

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goradiance/config"
	"goradiance/math/vec"
	"goradiance/scene"
)

func TestSceneProbesFlatFloor(t *testing.T) {
	white := vec.Vec3{X: 1, Y: 1, Z: 1}
	s := &scene.Scene{Models: []*scene.Model{
		scene.NewQuad("floor", vec.Vec3{X: -50, Z: 50}, vec.Vec3{X: 100}, vec.Vec3{Z: -100}, white),
	}}
	probes, err := SceneProbes(s, 5, 0)
	require.NoError(t, err)
	require.Len(t, probes, 21*2*21)

	seen := make(map[vec.Vec3]bool, len(probes))
	for _, p := range probes {
		assert.False(t, seen[p.Pos], "duplicate %v", p.Pos)
		seen[p.Pos] = true
		assert.InDelta(t, 2.5, math32.Abs(p.Pos.Y), 1e-5)
	}
	_, err = BuildNetwork(probes)
	assert.NoError(t, err)
}

func TestSceneProbesBox(t *testing.T) {
	s := &scene.Scene{Models: []*scene.Model{
		scene.NewCube("box", vec.Vec3{}, vec.Vec3{X: 10, Y: 4, Z: 2}, vec.Vec3{X: 1}),
	}}
	probes, err := SceneProbes(s, 5, 1)
	require.NoError(t, err)
	// 12 x 6 x 4 after the margin
	assert.Len(t, probes, 4*3*2)
	lo, hi := probes[0].Pos, probes[len(probes)-1].Pos
	assert.InDelta(t, -6, lo.X, 1e-5)
	assert.InDelta(t, 6, hi.X, 1e-5)
	assert.InDelta(t, -3, lo.Y, 1e-5)
	assert.InDelta(t, 3, hi.Y, 1e-5)
	assert.InDelta(t, -2.5, lo.Z, 1e-5)
	assert.InDelta(t, 2.5, hi.Z, 1e-5)

	_, err = SceneProbes(&scene.Scene{}, 5, 1)
	assert.ErrorIs(t, err, ErrNoModels)
}

func TestPlaceProbesLayout(t *testing.T) {
	c := config.Default().Probes
	c.Layout = config.LayoutRandom
	c.RandomCount = 10
	probes, err := PlaceProbes(nil, c)
	require.NoError(t, err)
	assert.Len(t, probes, 10)

	c.Layout = "spiral"
	_, err = PlaceProbes(nil, c)
	assert.Error(t, err)
}
