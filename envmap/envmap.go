// Package envmap renders small G-buffer cubemaps around probe positions.
//
// All maps of one bake live in a single atlas: one row of six faces per
// probe, faces ordered like vec.AxisNormal. Texel (x, y) of a face covers
// face coordinates u, v in [-1,1] with y growing upwards, like a GL
// framebuffer read back with glReadPixels.
package envmap

import (
	"github.com/go-gl/mathgl/mgl32"

	"goradiance/math/vec"
	"goradiance/scene"
)

const FaceCount = vec.AxisCount

type Face struct {
	Axis    vec.AxisNormal
	Forward vec.Vec3
	Right   vec.Vec3
	Up      vec.Vec3
}

var faces = [FaceCount]Face{
	{vec.PositiveX, vec.Vec3{X: 1}, vec.Vec3{Z: 1}, vec.Vec3{Y: 1}},
	{vec.NegativeX, vec.Vec3{X: -1}, vec.Vec3{Z: -1}, vec.Vec3{Y: 1}},
	{vec.PositiveY, vec.Vec3{Y: 1}, vec.Vec3{X: 1}, vec.Vec3{Z: 1}},
	{vec.NegativeY, vec.Vec3{Y: -1}, vec.Vec3{X: 1}, vec.Vec3{Z: -1}},
	{vec.PositiveZ, vec.Vec3{Z: 1}, vec.Vec3{X: -1}, vec.Vec3{Y: 1}},
	{vec.NegativeZ, vec.Vec3{Z: -1}, vec.Vec3{X: 1}, vec.Vec3{Y: 1}},
}

func FaceBasis(a vec.AxisNormal) Face {
	return faces[a]
}

// Direction returns the normalized view direction through (u, v) of face a.
func Direction(a vec.AxisNormal, u, v float32) vec.Vec3 {
	f := faces[a]
	return vec.Add(f.Forward, vec.Add(f.Right.Scale(u), f.Up.Scale(v))).Normalize()
}

// TexelUV returns the face coordinates of the centre of texel (x, y).
func TexelUV(x, y, size int) (u, v float32) {
	u = (float32(x)+0.5)/float32(size)*2 - 1
	v = (float32(y)+0.5)/float32(size)*2 - 1
	return u, v
}

func View(origin vec.Vec3, a vec.AxisNormal) mgl32.Mat4 {
	f := faces[a]
	return mgl32.LookAtV(origin.MGL(), vec.Add(origin, f.Forward).MGL(), f.Up.MGL())
}

// Projection is the 90 degree square frustum shared by all faces.
func Projection(near, far float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(90), 1, near, far)
}

type Texel struct {
	Albedo        vec.Vec3
	SkyVisibility float32 // 1 where the sky is seen, 0 on geometry
	Normal        vec.Vec3
	Depth         float32 // window depth in [0,1], 1 is the far plane
}

var skyTexel = Texel{SkyVisibility: 1, Depth: 1}

type Atlas struct {
	Size    int
	Near    float32
	Far     float32
	Origins []vec.Vec3
	Texels  []Texel
}

func NewAtlas(origins []vec.Vec3, size int, near, far float32) *Atlas {
	a := &Atlas{
		Size:    size,
		Near:    near,
		Far:     far,
		Origins: origins,
		Texels:  make([]Texel, len(origins)*FaceCount*size*size),
	}
	for i := range a.Texels {
		a.Texels[i] = skyTexel
	}
	return a
}

func (a *Atlas) Probes() int {
	return len(a.Origins)
}

// Width and Height of the atlas image in texels.
func (a *Atlas) Width() int {
	return a.Size * FaceCount
}

func (a *Atlas) Height() int {
	return a.Size * len(a.Origins)
}

func (a *Atlas) Index(probe int, face vec.AxisNormal, x, y int) int {
	return (probe*a.Size+y)*a.Width() + int(face)*a.Size + x
}

func (a *Atlas) At(probe int, face vec.AxisNormal, x, y int) *Texel {
	return &a.Texels[a.Index(probe, face, x, y)]
}

// WorldPosition reconstructs the surface point seen through texel (x, y).
func (a *Atlas) WorldPosition(probe int, face vec.AxisNormal, x, y int) vec.Vec3 {
	u, v := TexelUV(x, y, a.Size)
	d := a.At(probe, face, x, y).Depth
	inv := Projection(a.Near, a.Far).Mul4(View(a.Origins[probe], face)).Inv()
	p := inv.Mul4x1(mgl32.Vec4{u, v, d*2 - 1, 1})
	if p[3] == 0 {
		return a.Origins[probe]
	}
	return vec.Vec3{X: p[0] / p[3], Y: p[1] / p[3], Z: p[2] / p[3]}
}

// Depth returns the window depth of a point at distance dist along the
// face forward axis.
func Depth(near, far, dist float32) float32 {
	c := Projection(near, far).Mul4x1(mgl32.Vec4{0, 0, -dist, 1})
	return (c[2]/c[3])*0.5 + 0.5
}

// Renderer produces the G-buffer atlas for a set of probe positions.
type Renderer interface {
	RenderEnvironmentMaps(s *scene.Scene, origins []vec.Vec3, size int, near, far float32) (*Atlas, error)
}
