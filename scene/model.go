package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"goradiance/math/vec"
	"goradiance/texture"
)

type Vertex struct {
	Pos    vec.Vec3
	Normal vec.Vec3
	UV     vec.Vec2
}

type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

type Model struct {
	Name   string
	Mesh   *Mesh
	World  mgl32.Mat4
	Albedo *texture.Texture
	Normal *texture.Texture // tangent space, optional
}

func NewModel(name string, mesh *Mesh, albedo *texture.Texture) *Model {
	return &Model{
		Name:   name,
		Mesh:   mesh,
		World:  mgl32.Ident4(),
		Albedo: albedo,
	}
}

func (m *Model) IndexCount() int {
	return len(m.Mesh.Indices)
}

func (m *Model) WorldMatrix() mgl32.Mat4 {
	return m.World
}

// NormalMatrix transforms normals to world space.
func (m *Model) NormalMatrix() mgl32.Mat3 {
	return m.World.Mat3().Inv().Transpose()
}

func (m *Model) transform(p vec.Vec3) vec.Vec3 {
	return vec.FromMGL(mgl32.TransformCoordinate(p.MGL(), m.World))
}

func (m *Model) Bounds() (lo, hi vec.Vec3) {
	for i, v := range m.Mesh.Vertices {
		p := m.transform(v.Pos)
		if i == 0 {
			lo, hi = p, p
			continue
		}
		lo, hi = vec.Min(lo, p), vec.Max(hi, p)
	}
	return lo, hi
}

var cubeFaces = [6]struct {
	n, u, v vec.Vec3
}{
	{vec.Vec3{X: 1}, vec.Vec3{Z: -1}, vec.Vec3{Y: 1}},
	{vec.Vec3{X: -1}, vec.Vec3{Z: 1}, vec.Vec3{Y: 1}},
	{vec.Vec3{Y: 1}, vec.Vec3{X: 1}, vec.Vec3{Z: -1}},
	{vec.Vec3{Y: -1}, vec.Vec3{X: 1}, vec.Vec3{Z: 1}},
	{vec.Vec3{Z: 1}, vec.Vec3{X: 1}, vec.Vec3{Y: 1}},
	{vec.Vec3{Z: -1}, vec.Vec3{X: -1}, vec.Vec3{Y: 1}},
}

// UnitCube is centred at the origin with edge length 1 and outward normals.
func UnitCube() *Mesh {
	m := &Mesh{}
	for _, f := range cubeFaces {
		base := uint32(len(m.Vertices))
		c := f.n.Scale(0.5)
		for _, q := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			p := vec.Add(c, vec.Add(f.u.Scale(q[0]*0.5), f.v.Scale(q[1]*0.5)))
			m.Vertices = append(m.Vertices, Vertex{
				Pos:    p,
				Normal: f.n,
				UV:     vec.Vec2{X: (q[0] + 1) / 2, Y: (q[1] + 1) / 2},
			})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

func NewCube(name string, center, size, albedo vec.Vec3) *Model {
	m := NewModel(name, UnitCube(), texture.NewSolid(name, albedo))
	m.World = mgl32.Translate3D(center.X, center.Y, center.Z).Mul4(mgl32.Scale3D(size.X, size.Y, size.Z))
	return m
}

// NewQuad spans corner, corner+e1, corner+e1+e2, corner+e2 in world space.
// The normal is e1 x e2.
func NewQuad(name string, corner, e1, e2, albedo vec.Vec3) *Model {
	n := vec.Cross(e1, e2).Normalize()
	mesh := &Mesh{
		Vertices: []Vertex{
			{Pos: corner, Normal: n, UV: vec.Vec2{X: 0, Y: 0}},
			{Pos: vec.Add(corner, e1), Normal: n, UV: vec.Vec2{X: 1, Y: 0}},
			{Pos: vec.Add(corner, vec.Add(e1, e2)), Normal: n, UV: vec.Vec2{X: 1, Y: 1}},
			{Pos: vec.Add(corner, e2), Normal: n, UV: vec.Vec2{X: 0, Y: 1}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
	return NewModel(name, mesh, texture.NewSolid(name, albedo))
}
