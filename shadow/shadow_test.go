package shadow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"goradiance/math/vec"
	"goradiance/scene"
)

func TestBuild(t *testing.T) {
	one := vec.Vec3{X: 1, Y: 1, Z: 1}
	models := []*scene.Model{
		scene.NewCube("block", vec.Vec3{Y: 1}, one, one),
		scene.NewQuad("floor", vec.Vec3{X: -3, Z: 3}, vec.Vec3{X: 6}, vec.Vec3{Z: -6}, one),
	}
	tr := scene.NewTracer(models)
	m := Build(tr, vec.Vec3{Y: -1}, vec.Vec3{X: -3, Y: 0, Z: -3}, vec.Vec3{X: 3, Y: 2, Z: 3}, 64, 0.005)
	assert.Len(t, m.Depth, 64*64)

	// the top of the block and the open floor are lit
	assert.Equal(t, float32(1), m.Visibility(vec.Vec3{Y: 1.5}))
	assert.Equal(t, float32(1), m.Visibility(vec.Vec3{X: 2.5, Z: 2.5}))
	// the floor under the block is not
	assert.Equal(t, float32(0), m.Visibility(vec.Vec3{Y: 0}))
	// outside the map everything is lit
	assert.Equal(t, float32(1), m.Visibility(vec.Vec3{X: 40}))

	var none *Map
	assert.Equal(t, float32(1), none.Visibility(vec.Vec3{}))
}
