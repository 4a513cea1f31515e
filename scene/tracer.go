package scene

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"goradiance/math/vec"
)

const leafSize = 4

type triangle struct {
	v      [3]vec.Vec3
	n      [3]vec.Vec3
	uv     [3]vec.Vec2
	model  int
	centre vec.Vec3
}

type bvhNode struct {
	lo, hi vec.Vec3
	// Leaves reference tris[offset:offset+count]. Inner nodes have their
	// first child at index+1 and the second at second.
	offset, count int32
	second        int32
}

// Tracer answers ray queries against the world space triangles of a set of
// models. It is built once and never changes.
type Tracer struct {
	models []*Model
	tris   []triangle
	nodes  []bvhNode
}

type Hit struct {
	T      float32
	Pos    vec.Vec3
	Normal vec.Vec3 // shading normal, world space
	Albedo vec.Vec3
	Model  int
}

func NewTracer(models []*Model) *Tracer {
	t := &Tracer{models: models}
	for mi, m := range models {
		nm := m.NormalMatrix()
		for i := 0; i+2 < len(m.Mesh.Indices); i += 3 {
			var tri triangle
			tri.model = mi
			for k := 0; k < 3; k++ {
				v := m.Mesh.Vertices[m.Mesh.Indices[i+k]]
				tri.v[k] = m.transform(v.Pos)
				tri.n[k] = vec.FromMGL(nm.Mul3x1(v.Normal.MGL())).Normalize()
				tri.uv[k] = v.UV
			}
			tri.centre = vec.Add(tri.v[0], vec.Add(tri.v[1], tri.v[2])).Scale(1.0 / 3)
			t.tris = append(t.tris, tri)
		}
	}
	if len(t.tris) > 0 {
		t.build(0, len(t.tris))
	}
	return t
}

func (t *Tracer) Triangles() int {
	return len(t.tris)
}

func (t *Tracer) build(start, end int) int32 {
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, bvhNode{})
	lo, hi := t.tris[start].v[0], t.tris[start].v[0]
	clo, chi := t.tris[start].centre, t.tris[start].centre
	for _, tri := range t.tris[start:end] {
		for _, v := range tri.v {
			lo, hi = vec.Min(lo, v), vec.Max(hi, v)
		}
		clo, chi = vec.Min(clo, tri.centre), vec.Max(chi, tri.centre)
	}
	t.nodes[idx].lo, t.nodes[idx].hi = lo, hi
	if end-start <= leafSize {
		t.nodes[idx].offset = int32(start)
		t.nodes[idx].count = int32(end - start)
		return idx
	}
	ext := vec.Sub(chi, clo)
	axis := 0
	if ext.Y > ext.X && ext.Y >= ext.Z {
		axis = 1
	} else if ext.Z > ext.X && ext.Z > ext.Y {
		axis = 2
	}
	part := t.tris[start:end]
	sort.SliceStable(part, func(i, j int) bool {
		return part[i].centre.Idx(axis) < part[j].centre.Idx(axis)
	})
	mid := (start + end) / 2
	t.build(start, mid)
	second := t.build(mid, end)
	t.nodes[idx].second = second
	return idx
}

func (n *bvhNode) intersect(o, inv vec.Vec3, tMax float32) bool {
	tmin, tmax := float32(0), tMax
	for a := 0; a < 3; a++ {
		t1 := (n.lo.Idx(a) - o.Idx(a)) * inv.Idx(a)
		t2 := (n.hi.Idx(a) - o.Idx(a)) * inv.Idx(a)
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
	}
	return tmin <= tmax
}

// intersect is Moeller-Trumbore, two sided.
func (tri *triangle) intersect(o, d vec.Vec3) (t, u, v float32, ok bool) {
	e1 := vec.Sub(tri.v[1], tri.v[0])
	e2 := vec.Sub(tri.v[2], tri.v[0])
	p := vec.Cross(d, e2)
	det := vec.Dot(e1, p)
	if math32.Abs(det) < 1e-12 {
		return 0, 0, 0, false
	}
	inv := 1 / det
	s := vec.Sub(o, tri.v[0])
	u = vec.Dot(s, p) * inv
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}
	q := vec.Cross(s, e1)
	v = vec.Dot(d, q) * inv
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}
	t = vec.Dot(e2, q) * inv
	return t, u, v, t > 1e-5
}

func safeInv(x float32) float32 {
	if math32.Abs(x) < 1e-20 {
		return math32.Copysign(1e20, x)
	}
	return 1 / x
}

func (t *Tracer) closest(o, d vec.Vec3, tMax float32, anyHit bool) (best int, bt, bu, bv float32) {
	best = -1
	bt = tMax
	if len(t.nodes) == 0 {
		return
	}
	inv := vec.Vec3{X: safeInv(d.X), Y: safeInv(d.Y), Z: safeInv(d.Z)}
	stack := make([]int32, 0, 64)
	stack = append(stack, 0)
	for len(stack) > 0 {
		ni := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[ni]
		if !n.intersect(o, inv, bt) {
			continue
		}
		if n.count > 0 {
			for i := n.offset; i < n.offset+n.count; i++ {
				if ht, u, v, ok := t.tris[i].intersect(o, d); ok && ht < bt {
					best, bt, bu, bv = int(i), ht, u, v
					if anyHit {
						return
					}
				}
			}
			continue
		}
		stack = append(stack, n.second, ni+1)
	}
	return
}

// Intersect returns the closest hit along o + t*d for t in (0, tMax).
func (t *Tracer) Intersect(o, d vec.Vec3, tMax float32) (Hit, bool) {
	i, ht, u, v := t.closest(o, d, tMax, false)
	if i < 0 {
		return Hit{}, false
	}
	tri := &t.tris[i]
	w := 1 - u - v
	n := vec.Add(tri.n[0].Scale(w), vec.Add(tri.n[1].Scale(u), tri.n[2].Scale(v))).Normalize()
	uv := vec.Vec2{
		X: tri.uv[0].X*w + tri.uv[1].X*u + tri.uv[2].X*v,
		Y: tri.uv[0].Y*w + tri.uv[1].Y*u + tri.uv[2].Y*v,
	}
	m := t.models[tri.model]
	if m.Normal != nil {
		n = tri.perturb(n, m.Normal.Sample(uv))
	}
	albedo := vec.Vec3{X: 1, Y: 1, Z: 1}
	if m.Albedo != nil {
		albedo = m.Albedo.Sample(uv)
	}
	return Hit{
		T:      ht,
		Pos:    vec.Add(o, d.Scale(ht)),
		Normal: n,
		Albedo: albedo,
		Model:  tri.model,
	}, true
}

// Occluded reports any hit closer than tMax.
func (t *Tracer) Occluded(o, d vec.Vec3, tMax float32) bool {
	i, _, _, _ := t.closest(o, d, tMax, true)
	return i >= 0
}

// perturb applies a tangent space normal map sample (rgb in [0,1]).
func (tri *triangle) perturb(n, sample vec.Vec3) vec.Vec3 {
	e1 := vec.Sub(tri.v[1], tri.v[0])
	e2 := vec.Sub(tri.v[2], tri.v[0])
	du1, dv1 := tri.uv[1].X-tri.uv[0].X, tri.uv[1].Y-tri.uv[0].Y
	du2, dv2 := tri.uv[2].X-tri.uv[0].X, tri.uv[2].Y-tri.uv[0].Y
	det := du1*dv2 - du2*dv1
	if math32.Abs(det) < 1e-12 {
		return n
	}
	r := 1 / det
	tangent := vec.Sub(e1.Scale(dv2*r), e2.Scale(dv1*r))
	// Gram-Schmidt against the shading normal.
	tangent = vec.Sub(tangent, n.Scale(vec.Dot(n, tangent))).Normalize()
	bitangent := vec.Cross(n, tangent)
	tbn := mgl32.Mat3FromCols(tangent.MGL(), bitangent.MGL(), n.MGL())
	ts := mgl32.Vec3{sample.X*2 - 1, sample.Y*2 - 1, sample.Z*2 - 1}
	p := vec.FromMGL(tbn.Mul3x1(ts)).Normalize()
	if p.Length() == 0 {
		return n
	}
	return p
}
