package lightsector

import (
	"github.com/chewxy/math32"

	"goradiance/math/vec"
)

const (
	maxWalkSteps = 256
	insideEps    = 1e-5
)

// Barycentric returns the coordinates of p relative to the cell vertices.
// origin is the position of ProbeVertices[0].
func (c *ProbeSearchCell) Barycentric(origin, p vec.Vec3) [4]float32 {
	d := vec.Sub(p, origin)
	m := &c.Converter
	b1 := m[0].X*d.X + m[1].X*d.Y + m[2].X*d.Z
	b2 := m[0].Y*d.X + m[1].Y*d.Y + m[2].Y*d.Z
	b3 := m[0].Z*d.X + m[1].Z*d.Y + m[2].Z*d.Z
	return [4]float32{1 - b1 - b2 - b3, b1, b2, b3}
}

func minIndex(b [4]float32) int {
	m := 0
	for i := 1; i < 4; i++ {
		if b[i] < b[m] {
			m = i
		}
	}
	return m
}

func cellWeights(c *ProbeSearchCell, b [4]float32) ProbeSearchWeights {
	var w ProbeSearchWeights
	for i := range w {
		w[i] = ProbeWeight{ID: c.ProbeVertices[i], Weight: b[i]}
	}
	return w
}

// clampWeights drops negative coordinates and rescales the rest to sum to 1.
func clampWeights(b [4]float32) [4]float32 {
	var sum float32
	best := 0
	for i := range b {
		if b[i] > b[best] {
			best = i
		}
		b[i] = max(b[i], 0)
		sum += b[i]
	}
	if sum < 1e-6 {
		var r [4]float32
		r[best] = 1
		return r
	}
	for i := range b {
		b[i] /= sum
	}
	return b
}

// FindProbeWeights locates p by walking the network from cell hint towards
// the most violated face. Points outside the hull get the clamped weights of
// the last cell reached. The returned cell is a good hint for nearby points.
func FindProbeWeights(cells []ProbeSearchCell, probes []Probe, p vec.Vec3, hint int32) (ProbeSearchWeights, int32) {
	if len(cells) == 0 {
		return ProbeSearchWeights{{InvalidID, 0}, {InvalidID, 0}, {InvalidID, 0}, {InvalidID, 0}}, InvalidID
	}
	cur := hint
	if cur < 0 || int(cur) >= len(cells) {
		cur = 0
	}
	for step := 0; step < maxWalkSteps; step++ {
		c := &cells[cur]
		b := c.Barycentric(probes[c.ProbeVertices[0]].Pos, p)
		i := minIndex(b)
		if b[i] >= -insideEps {
			return cellWeights(c, clampWeights(b)), cur
		}
		n := c.Neighbours[i]
		if n == InvalidID {
			return cellWeights(c, clampWeights(b)), cur
		}
		cur = n
	}

	// The walk can cycle on nearly degenerate cells, fall back to a scan.
	best, bestMin := int32(0), float32(-math32.MaxFloat32)
	for ci := range cells {
		c := &cells[ci]
		b := c.Barycentric(probes[c.ProbeVertices[0]].Pos, p)
		if m := b[minIndex(b)]; m > bestMin {
			best, bestMin = int32(ci), m
		}
	}
	c := &cells[best]
	return cellWeights(c, clampWeights(c.Barycentric(probes[c.ProbeVertices[0]].Pos, p))), best
}
