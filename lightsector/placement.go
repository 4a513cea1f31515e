package lightsector

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"goradiance/config"
	"goradiance/math/vec"
	"goradiance/rand"
	"goradiance/scene"
)

func newProbes(pos []vec.Vec3) []Probe {
	p := make([]Probe, len(pos))
	for i := range pos {
		p[i] = Probe{
			ID:                    int32(i),
			Pos:                   pos[i],
			BrickFactorRangeStart: 0,
			BrickFactorCount:      0,
		}
	}
	return p
}

func axisSteps(lo, hi float32, n int) []float32 {
	if n <= 1 {
		return []float32{(lo + hi) / 2}
	}
	s := make([]float32, n)
	for i := range s {
		s[i] = lo + (hi-lo)*float32(i)/float32(n-1)
	}
	return s
}

// GridProbes places counts[0]*counts[1]*counts[2] probes on a regular grid
// spanning [lo,hi], x varying fastest.
func GridProbes(lo, hi vec.Vec3, counts [3]int) []Probe {
	xs := axisSteps(lo.X, hi.X, counts[0])
	ys := axisSteps(lo.Y, hi.Y, counts[1])
	zs := axisSteps(lo.Z, hi.Z, counts[2])
	pos := make([]vec.Vec3, 0, len(xs)*len(ys)*len(zs))
	for _, z := range zs {
		for _, y := range ys {
			for _, x := range xs {
				pos = append(pos, vec.Vec3{X: x, Y: y, Z: z})
			}
		}
	}
	return newProbes(pos)
}

// RandomProbes places n probes inside a cube of edge scale around the
// origin. The layout only depends on seed.
func RandomProbes(n int, scale float32, seed uint32) []Probe {
	g := rand.New(seed)
	h := vec.Vec3{X: scale / 2, Y: scale / 2, Z: scale / 2}
	pos := make([]vec.Vec3, n)
	for i := range pos {
		pos[i] = g.Point(h.Scale(-1), h)
	}
	return newProbes(pos)
}

// SceneProbes covers the scene bounds grown by margin with a grid of at
// most spacing between neighbours and at least two probes per axis.
func SceneProbes(s *scene.Scene, spacing, margin float32) ([]Probe, error) {
	lo, hi, ok := s.Bounds()
	if !ok {
		return nil, ErrNoModels
	}
	m := vec.Vec3{X: margin, Y: margin, Z: margin}
	l, h := vec.Sub(lo, m).Array(), vec.Add(hi, m).Array()
	var counts [3]int
	for i := range counts {
		// flat axes, a lone floor without margin, get one spacing of depth
		if ext := h[i] - l[i]; ext < spacing {
			c := (l[i] + h[i]) / 2
			l[i], h[i] = c-spacing/2, c+spacing/2
		}
		counts[i] = max(2, int(math32.Ceil((h[i]-l[i])/spacing))+1)
	}
	return GridProbes(vec.VFromA(l), vec.VFromA(h), counts), nil
}

// PlaceProbes generates the probe set selected by c.Layout.
func PlaceProbes(s *scene.Scene, c config.Probes) ([]Probe, error) {
	switch c.Layout {
	case config.LayoutScene:
		return SceneProbes(s, c.Spacing, c.Margin)
	case config.LayoutGrid:
		return GridProbes(vec.VFromA(c.Min), vec.VFromA(c.Max), c.Counts), nil
	case config.LayoutRandom:
		return RandomProbes(c.RandomCount, c.RandomScale, c.RandomSeed), nil
	}
	return nil, errors.Errorf("unknown probe layout %q", c.Layout)
}

func probePositions(probes []Probe) []vec.Vec3 {
	p := make([]vec.Vec3, len(probes))
	for i := range probes {
		p[i] = probes[i].Pos
	}
	return p
}
