// Package shadow builds the directional light shadow map used by relighting.
package shadow

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"goradiance/math/vec"
	"goradiance/scene"
)

// Map is an orthographic depth map seen from the sun. Depth holds window
// depth in [0,1], 1 where nothing was hit.
type Map struct {
	Size     int
	ViewProj mgl32.Mat4
	Depth    []float32
	Bias     float32
}

// Build ray casts a size*size shadow map covering the box [lo,hi] as seen
// by a light travelling along dir.
func Build(t *scene.Tracer, dir, lo, hi vec.Vec3, size int, bias float32) *Map {
	dir = dir.Normalize()
	centre := vec.Lerp(lo, hi, 0.5)
	r := max(vec.Distance(lo, hi)/2, 1e-3)
	up := vec.Vec3{Y: 1}
	if math32.Abs(dir.Y) > 0.99 {
		up = vec.Vec3{Z: 1}
	}
	far := 4 * r
	eye := vec.Sub(centre, dir.Scale(2*r))
	view := mgl32.LookAtV(eye.MGL(), centre.MGL(), up.MGL())
	proj := mgl32.Ortho(-r, r, -r, r, 0, far)
	m := &Map{
		Size:     size,
		ViewProj: proj.Mul4(view),
		Depth:    make([]float32, size*size),
		Bias:     bias,
	}

	right := vec.Cross(dir, up).Normalize()
	camUp := vec.Cross(right, dir)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			u := (float32(x)+0.5)/float32(size)*2 - 1
			v := (float32(y)+0.5)/float32(size)*2 - 1
			o := vec.Add(eye, vec.Add(right.Scale(u*r), camUp.Scale(v*r)))
			d := float32(1)
			if h, ok := t.Intersect(o, dir, far); ok {
				d = h.T / far
			}
			m.Depth[y*size+x] = d
		}
	}
	return m
}

// Visibility returns 1 when p is lit and 0 when it is in shadow.
func (m *Map) Visibility(p vec.Vec3) float32 {
	if m == nil {
		return 1
	}
	return Visibility(m.Depth, m.Size, m.ViewProj, m.Bias, p)
}

// Visibility is the lookup shared with the relight kernels. Points outside
// the map are lit.
func Visibility(depth []float32, size int, vp mgl32.Mat4, bias float32, p vec.Vec3) float32 {
	c := vp.Mul4x1(p.MGL().Vec4(1))
	x, y, z := c[0]*0.5+0.5, c[1]*0.5+0.5, c[2]*0.5+0.5
	if x < 0 || x >= 1 || y < 0 || y >= 1 || z > 1 {
		return 1
	}
	tx := min(int(x*float32(size)), size-1)
	ty := min(int(y*float32(size)), size-1)
	if z-bias <= depth[ty*size+tx] {
		return 1
	}
	return 0
}
