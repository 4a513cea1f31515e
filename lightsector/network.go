package lightsector

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"goradiance/math/vec"
	"goradiance/rand"
)

// The probe network is the Delaunay tetrahedralization of the probe
// positions, built by incremental Bowyer-Watson insertion in double
// precision. Every probe carries a tiny deterministic weight, which turns
// the Delaunay test into a power test and breaks the ties of cospherical
// input like regular grids.
//
// The hull is closed by a single vertex at infinity: every hull face is
// also the face of an infinite cell whose fourth vertex is that point. A
// new probe conflicts with an infinite cell when it lies beyond the hull
// face, or on its plane inside the face's power circle. No coordinate is
// ever larger than the probe set itself.

const (
	// weightScale is relative to the squared distance of the closest
	// probe pair, far below anything that could hide a probe.
	weightScale = 1e-3
	// flatVolume is the relative orientation below which a tetrahedron
	// counts as flat.
	flatVolume = 1e-12
	// cellVolume is the relative determinant below which a cell is rejected.
	cellVolume = 1e-9
)

// dtet is a cell under construction. Infinite cells keep the infinite
// vertex in v[3] and their hull face oriented away from the interior.
type dtet struct {
	v     [4]int32
	alive bool
}

type faceKey [3]int32

func newFaceKey(a, b, c int32) faceKey {
	k := faceKey{a, b, c}
	if k[0] > k[1] {
		k[0], k[1] = k[1], k[0]
	}
	if k[1] > k[2] {
		k[1], k[2] = k[2], k[1]
	}
	if k[0] > k[1] {
		k[0], k[1] = k[1], k[0]
	}
	return k
}

// face returns the vertices of t except vertex i.
func (t *dtet) face(i int) (int32, int32, int32) {
	switch i {
	case 0:
		return t.v[1], t.v[2], t.v[3]
	case 1:
		return t.v[0], t.v[2], t.v[3]
	case 2:
		return t.v[0], t.v[1], t.v[3]
	default:
		return t.v[0], t.v[1], t.v[2]
	}
}

type triangulator struct {
	pts     []mgl64.Vec3
	weights []float64
	tets    []dtet
	faces   map[faceKey][2]int32
	real    int32      // points below real are probes, real itself is the infinite vertex
	inner   mgl64.Vec3 // strictly inside every hull
	vol     float64
	last    int32 // walk start of the next insertion
}

func newTriangulator(pos []vec.Vec3) (*triangulator, error) {
	n := len(pos)
	seen := make(map[vec.Vec3]int, n)
	lo, hi := toMGL64(pos[0]), toMGL64(pos[0])
	for i, p := range pos {
		if j, ok := seen[p]; ok {
			return nil, errors.Wrapf(ErrDuplicateProbe, "probes %d and %d at %v", j, i, p)
		}
		seen[p] = i
		q := toMGL64(p)
		for k := 0; k < 3; k++ {
			lo[k], hi[k] = math.Min(lo[k], q[k]), math.Max(hi[k], q[k])
		}
	}
	centre := lo.Add(hi).Mul(0.5)
	diag := hi.Sub(lo).Len()
	if diag == 0 {
		diag = 1
	}

	t := &triangulator{
		pts:     make([]mgl64.Vec3, n),
		weights: make([]float64, n),
		faces:   make(map[faceKey][2]int32),
		real:    int32(n),
		vol:     diag * diag * diag,
	}
	for i, p := range pos {
		t.pts[i] = toMGL64(p).Sub(centre)
	}
	closest := math.Inf(1)
	for i := range t.pts {
		for j := i + 1; j < n; j++ {
			d := t.pts[j].Sub(t.pts[i])
			closest = math.Min(closest, d.Dot(d))
		}
	}
	g := rand.New(0x9e3779b9)
	for i := range t.weights {
		h := float64(g.Hash(uint32(i))%(1<<20)) / (1 << 20)
		t.weights[i] = weightScale * closest * h
	}
	return t, nil
}

// start builds the first cell from four spread out probes and closes it
// with four infinite cells. It returns the probes used.
func (t *triangulator) start() ([4]int32, error) {
	var s [4]int32
	farthest := func(dist func(i int32) float64) int32 {
		best, bi := -1.0, int32(0)
		for i := int32(0); i < t.real; i++ {
			if d := dist(i); d > best {
				best, bi = d, i
			}
		}
		return bi
	}
	s[1] = farthest(func(i int32) float64 {
		d := t.pts[i].Sub(t.pts[s[0]])
		return d.Dot(d)
	})
	axis := t.pts[s[1]].Sub(t.pts[s[0]])
	s[2] = farthest(func(i int32) float64 {
		c := axis.Cross(t.pts[i].Sub(t.pts[s[0]]))
		return c.Dot(c)
	})
	s[3] = farthest(func(i int32) float64 {
		return math.Abs(t.orient(s[0], s[1], s[2], i))
	})
	if t.flat(t.orient(s[0], s[1], s[2], s[3])) {
		return s, errors.Wrap(ErrDegenerateCell, "probes are coplanar")
	}
	for _, v := range s {
		t.inner = t.inner.Add(t.pts[v].Mul(0.25))
	}
	if err := t.addTet(s); err != nil {
		return s, err
	}
	first := t.tets[0]
	for i := 0; i < 4; i++ {
		a, b, c := first.face(i)
		if err := t.addTet([4]int32{a, b, c, t.real}); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (t *triangulator) infinite(idx int32) bool {
	return t.tets[idx].v[3] == t.real
}

// orient is positive when d lies on the positive side of (a, b, c).
func (t *triangulator) orient(a, b, c, d int32) float64 {
	return t.orientPoint(a, b, c, t.pts[d])
}

func (t *triangulator) orientPoint(a, b, c int32, d mgl64.Vec3) float64 {
	pa := t.pts[a]
	return mgl64.Mat3FromCols(t.pts[b].Sub(pa), t.pts[c].Sub(pa), d.Sub(pa)).Det()
}

// power is negative when point p conflicts with the positively oriented
// tetrahedron v, i.e. p lies inside its weighted circumsphere.
func (t *triangulator) power(v [4]int32, p int32) float64 {
	pp, wp := t.pts[p], t.weights[p]
	var m mgl64.Mat4
	for r := 0; r < 4; r++ {
		d := t.pts[v[r]].Sub(pp)
		m[r*4+0] = d[0]
		m[r*4+1] = d[1]
		m[r*4+2] = d[2]
		m[r*4+3] = d.Dot(d) - t.weights[v[r]] + wp
	}
	return m.Det()
}

// powerCircle is negative when p, taken to lie in the plane of (a, b, c),
// is inside their weighted circumcircle.
func (t *triangulator) powerCircle(a, b, c, p int32) float64 {
	ab := t.pts[b].Sub(t.pts[a])
	e1 := ab.Normalize()
	e2 := ab.Cross(t.pts[c].Sub(t.pts[a])).Cross(e1).Normalize()
	pp, wp := t.pts[p], t.weights[p]
	var m mgl64.Mat3
	for r, v := range [3]int32{a, b, c} {
		d := t.pts[v].Sub(pp)
		x, y := d.Dot(e1), d.Dot(e2)
		m[r*3+0] = x
		m[r*3+1] = y
		m[r*3+2] = x*x + y*y - t.weights[v] + wp
	}
	// (a, b, c) run counter clockwise in the (e1, e2) basis
	return -m.Det()
}

func (t *triangulator) flat(o float64) bool {
	return math.Abs(o) <= flatVolume*t.vol
}

// conflict reports whether cell idx has to make room for p.
func (t *triangulator) conflict(idx, p int32) bool {
	v := t.tets[idx].v
	if v[3] != t.real {
		return t.power(v, p) < 0
	}
	o := t.orient(v[0], v[1], v[2], p)
	if !t.flat(o) {
		return o > 0
	}
	return t.powerCircle(v[0], v[1], v[2], p) < 0
}

func (t *triangulator) addTet(v [4]int32) error {
	if v[3] == t.real {
		o := t.orientPoint(v[0], v[1], v[2], t.inner)
		if t.flat(o) {
			return errors.Wrapf(ErrDegenerateCell, "flat hull face %v", v[:3])
		}
		if o > 0 {
			v[0], v[1] = v[1], v[0]
		}
	} else {
		o := t.orient(v[0], v[1], v[2], v[3])
		if t.flat(o) {
			return errors.Wrapf(ErrDegenerateCell, "flat tetrahedron %v", v)
		}
		if o < 0 {
			v[0], v[1] = v[1], v[0]
		}
	}
	idx := int32(len(t.tets))
	t.tets = append(t.tets, dtet{v: v, alive: true})
	for i := 0; i < 4; i++ {
		k := newFaceKey(t.tets[idx].face(i))
		e, ok := t.faces[k]
		if !ok {
			e = [2]int32{InvalidID, InvalidID}
		}
		switch {
		case e[0] == InvalidID:
			e[0] = idx
		case e[1] == InvalidID:
			e[1] = idx
		default:
			return errors.Wrapf(ErrDegenerateCell, "face %v shared by three tetrahedra", k)
		}
		t.faces[k] = e
	}
	t.last = idx
	return nil
}

func (t *triangulator) removeTet(idx int32) {
	tt := &t.tets[idx]
	tt.alive = false
	for i := 0; i < 4; i++ {
		k := newFaceKey(tt.face(i))
		e := t.faces[k]
		if e[0] == idx {
			e[0] = InvalidID
		}
		if e[1] == idx {
			e[1] = InvalidID
		}
		if e[0] == InvalidID && e[1] == InvalidID {
			delete(t.faces, k)
			continue
		}
		t.faces[k] = e
	}
}

// neighbour returns the tetrahedron across face i of idx.
func (t *triangulator) neighbour(idx int32, i int) int32 {
	e := t.faces[newFaceKey(t.tets[idx].face(i))]
	if e[0] == idx {
		return e[1]
	}
	return e[0]
}

// locate walks from the last created cell towards p and returns a cell
// that conflicts with it, or InvalidID.
func (t *triangulator) locate(p int32) int32 {
	cur := t.last
	for step := 0; step < len(t.tets); step++ {
		if t.infinite(cur) {
			if t.conflict(cur, p) {
				return cur
			}
			cur = t.neighbour(cur, 3)
			continue
		}
		tt := &t.tets[cur]
		next := int32(InvalidID)
		for k := 0; k < 4; k++ {
			i := (k + step) % 4
			a, b, c := tt.face(i)
			o := t.orient(a, b, c, p)
			if !t.flat(o) && o*t.orient(a, b, c, tt.v[i]) < 0 {
				next = t.neighbour(cur, i)
				break
			}
		}
		if next == InvalidID {
			break
		}
		cur = next
	}
	if t.conflict(cur, p) {
		return cur
	}
	for i := range t.tets {
		if t.tets[i].alive && t.conflict(int32(i), p) {
			return int32(i)
		}
	}
	return InvalidID
}

// visible reports whether face i of cavity cell c can be joined with p
// into a valid cell. n is the cell across the face.
func (t *triangulator) visible(c int32, i int, n, p int32) bool {
	tt := &t.tets[c]
	a, b, cc := tt.face(i)
	switch {
	case tt.v[i] == t.real:
		// hull face, p has to be strictly beyond it
		o := t.orient(a, b, cc, p)
		return !t.flat(o) && o > 0
	case a == t.real || b == t.real || cc == t.real:
		// side of an infinite cell, p may not lie beyond the hull face
		// that stays
		v := t.tets[n].v
		o := t.orient(v[0], v[1], v[2], p)
		return t.flat(o) || o < 0
	default:
		o := t.orient(a, b, cc, p)
		return !t.flat(o) && o*t.orient(a, b, cc, tt.v[i]) > 0
	}
}

type boundaryFace struct {
	tet  int32
	face int
}

func (t *triangulator) insert(p int32) error {
	seed := t.locate(p)
	if seed == InvalidID {
		return errors.Errorf("probe %d: no conflicting tetrahedron", p)
	}

	cavity := map[int32]bool{seed: true}
	order := []int32{seed}
	for q := 0; q < len(order); q++ {
		c := order[q]
		for i := 0; i < 4; i++ {
			n := t.neighbour(c, i)
			if n == InvalidID || cavity[n] {
				continue
			}
			if t.conflict(n, p) {
				cavity[n] = true
				order = append(order, n)
			}
		}
	}

	// Grow the cavity until p sees every boundary face from the inside.
	var boundary []boundaryFace
	for {
		boundary = boundary[:0]
		grown := false
		for _, c := range order {
			for i := 0; i < 4; i++ {
				n := t.neighbour(c, i)
				if n == InvalidID {
					return errors.Errorf("probe %d: open face in cell %d", p, c)
				}
				if cavity[n] {
					continue
				}
				if t.visible(c, i, n, p) {
					boundary = append(boundary, boundaryFace{c, i})
					continue
				}
				cavity[n] = true
				order = append(order, n)
				grown = true
			}
		}
		if !grown {
			break
		}
	}

	created := make([][4]int32, 0, len(boundary))
	for _, bf := range boundary {
		a, b, c := t.tets[bf.tet].face(bf.face)
		switch t.real {
		case a:
			created = append(created, [4]int32{b, c, p, t.real})
		case b:
			created = append(created, [4]int32{a, c, p, t.real})
		case c:
			created = append(created, [4]int32{a, b, p, t.real})
		default:
			created = append(created, [4]int32{a, b, c, p})
		}
	}
	for _, c := range order {
		t.removeTet(c)
	}
	for _, v := range created {
		if err := t.addTet(v); err != nil {
			return errors.Wrapf(err, "probe %d", p)
		}
	}
	return nil
}

// triangulate returns the finite tetrahedra of pos.
func triangulate(pos []vec.Vec3) ([][4]int32, error) {
	t, err := newTriangulator(pos)
	if err != nil {
		return nil, err
	}
	first, err := t.start()
	if err != nil {
		return nil, err
	}
	for i := int32(0); i < t.real; i++ {
		if i == first[0] || i == first[1] || i == first[2] || i == first[3] {
			continue
		}
		if err := t.insert(i); err != nil {
			return nil, err
		}
	}
	var tets [][4]int32
	for i := range t.tets {
		tt := &t.tets[i]
		if !tt.alive || tt.v[3] == t.real {
			continue
		}
		v := tt.v
		sort.Slice(v[:], func(a, b int) bool { return v[a] < v[b] })
		tets = append(tets, v)
	}
	return tets, nil
}

func cellFace(v [4]int32, i int) faceKey {
	switch i {
	case Face123:
		return faceKey{v[1], v[2], v[3]}
	case Face023:
		return faceKey{v[0], v[2], v[3]}
	case Face013:
		return faceKey{v[0], v[1], v[3]}
	default:
		return faceKey{v[0], v[1], v[2]}
	}
}

// BuildNetwork tetrahedralizes the probe positions and returns the search
// cells with neighbour links and barycentric converters.
func BuildNetwork(probes []Probe) ([]ProbeSearchCell, error) {
	if len(probes) < 4 {
		return nil, errors.Wrapf(ErrTooFewProbes, "got %d", len(probes))
	}
	tets, err := triangulate(probePositions(probes))
	if err != nil {
		return nil, err
	}
	if len(tets) == 0 {
		return nil, errors.Wrap(ErrDegenerateCell, "probes are coplanar")
	}

	// vertex ids are sorted, so the face keys are already ordered
	owners := make(map[faceKey][2]int32, len(tets)*2)
	for ci, v := range tets {
		for f := 0; f < 4; f++ {
			k := cellFace(v, f)
			e, ok := owners[k]
			if !ok {
				e = [2]int32{InvalidID, InvalidID}
			}
			if e[0] == InvalidID {
				e[0] = int32(ci)
			} else {
				e[1] = int32(ci)
			}
			owners[k] = e
		}
	}

	cells := make([]ProbeSearchCell, len(tets))
	for ci, v := range tets {
		c := &cells[ci]
		c.ProbeVertices = v
		for f := 0; f < 4; f++ {
			e := owners[cellFace(v, f)]
			if e[0] == int32(ci) {
				c.Neighbours[f] = e[1]
			} else {
				c.Neighbours[f] = e[0]
			}
		}
		conv, err := converter(probes, v)
		if err != nil {
			return nil, errors.Wrapf(err, "cell %d", ci)
		}
		c.Converter = conv
	}
	if err := validateNetwork(cells, len(probes)); err != nil {
		return nil, err
	}
	return cells, nil
}

func toMGL64(v vec.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v.X), float64(v.Y), float64(v.Z)}
}

func converter(probes []Probe, v [4]int32) ([3]vec.Vec4, error) {
	p0 := toMGL64(probes[v[0]].Pos)
	d1 := toMGL64(probes[v[1]].Pos).Sub(p0)
	d2 := toMGL64(probes[v[2]].Pos).Sub(p0)
	d3 := toMGL64(probes[v[3]].Pos).Sub(p0)
	l := max(d1.Len(), d2.Len(), d3.Len(), d2.Sub(d1).Len(), d3.Sub(d1).Len(), d3.Sub(d2).Len())
	m := mgl64.Mat3FromCols(d1, d2, d3)
	if math.Abs(m.Det()) < cellVolume*l*l*l {
		return [3]vec.Vec4{}, errors.Wrapf(ErrDegenerateCell, "probes %v", v)
	}
	inv := m.Inv()
	var conv [3]vec.Vec4
	for c := 0; c < 3; c++ {
		col := inv.Col(c)
		conv[c] = vec.Vec4{X: float32(col[0]), Y: float32(col[1]), Z: float32(col[2])}
	}
	return conv, nil
}

// validateNetwork checks that every probe belongs to a cell and that all
// cells are reachable through neighbour links.
func validateNetwork(cells []ProbeSearchCell, probes int) error {
	used := make([]bool, probes)
	for _, c := range cells {
		for _, v := range c.ProbeVertices {
			used[v] = true
		}
	}
	for i, u := range used {
		if !u {
			return errors.Wrapf(ErrDisconnected, "probe %d is in no cell", i)
		}
	}
	seen := make([]bool, len(cells))
	seen[0] = true
	queue := []int32{0}
	for q := 0; q < len(queue); q++ {
		for _, n := range cells[queue[q]].Neighbours {
			if n != InvalidID && !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	if len(queue) != len(cells) {
		return errors.Wrapf(ErrDisconnected, "%d of %d cells reachable", len(queue), len(cells))
	}
	return nil
}
