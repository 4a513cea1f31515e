package texture

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"goradiance/math/vec"
)

func TestSolid(t *testing.T) {
	tex := NewSolid("red", vec.Vec3{X: 1, Y: 0, Z: 0.5})
	got := tex.Sample(vec.Vec2{X: 0.3, Y: 0.9})
	assert.InDelta(t, 1, got.X, 1e-6)
	assert.InDelta(t, 0, got.Y, 1e-6)
	assert.InDelta(t, 128.0/255, got.Z, 1e-6)
}

func TestBilinear(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{0, 0, 0, 255})
	img.Set(1, 0, color.RGBA{255, 255, 255, 255})
	tex := FromImage("ramp", img, TexPrefLinear|TexPrefClamp)
	assert.InDelta(t, 0.5, tex.Sample(vec.Vec2{X: 0.5, Y: 0.5}).X, 1e-6)
	assert.InDelta(t, 0, tex.Sample(vec.Vec2{X: 0.25, Y: 0.5}).X, 1e-6)
	assert.InDelta(t, 1, tex.Sample(vec.Vec2{X: 0.9, Y: 0.5}).X, 1e-6)

	near := FromImage("ramp", img, TexPrefNearest)
	assert.InDelta(t, 1, near.Sample(vec.Vec2{X: 0.8, Y: 0.5}).X, 1e-6)
}
