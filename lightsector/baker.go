package lightsector

import (
	"sort"

	"github.com/chewxy/math32"

	"goradiance/envmap"
	"goradiance/math"
	"goradiance/math/sh"
	"goradiance/math/vec"
)

// surfelSample is one environment map texel that saw geometry.
type surfelSample struct {
	pos     vec.Vec3
	normal  vec.Vec3
	albedo  vec.Vec3
	probe   int32
	weights [vec.AxisCount]float32
}

// skySample is one environment map texel, u and v are its face coordinates.
type skySample struct {
	dir        vec.Vec3
	visibility float32
	u, v       float32
}

// axisWeights spreads a texel seen in direction dir over the ambient cube
// axes, weighted by solid angle.
func axisWeights(dir vec.Vec3, solidAngle float32) [vec.AxisCount]float32 {
	var w [vec.AxisCount]float32
	for a := vec.AxisNormal(0); a < vec.AxisCount; a++ {
		w[a] = max(vec.Dot(a.Vec(), dir), 0) * solidAngle
	}
	return w
}

// gatherSamples walks the atlas in probe, face, row, column order. Texels
// with a sky visibility below threshold become surfel samples, all texels
// become sky samples of their probe.
func gatherSamples(a *envmap.Atlas, probes []Probe, threshold float32) ([]surfelSample, [][]skySample) {
	var surf []surfelSample
	sky := make([][]skySample, len(probes))
	for p := range probes {
		sky[p] = make([]skySample, 0, envmap.FaceCount*a.Size*a.Size)
		for f := vec.AxisNormal(0); f < envmap.FaceCount; f++ {
			for y := 0; y < a.Size; y++ {
				for x := 0; x < a.Size; x++ {
					u, v := envmap.TexelUV(x, y, a.Size)
					t := a.At(p, f, x, y)
					dir := envmap.Direction(f, u, v)
					sky[p] = append(sky[p], skySample{dir: dir, visibility: t.SkyVisibility, u: u, v: v})
					if t.SkyVisibility >= threshold {
						continue
					}
					pos := a.WorldPosition(p, f, x, y)
					n := t.Normal
					if n.Length() < 1e-6 {
						n = dir.Scale(-1)
					}
					surf = append(surf, surfelSample{
						pos:     pos,
						normal:  n.Normalize(),
						albedo:  t.Albedo,
						probe:   int32(p),
						weights: axisWeights(vec.Sub(pos, probes[p].Pos).Normalize(), sh.TexelSolidAngle(u, v)),
					})
				}
			}
		}
	}
	return surf, sky
}

// bakeSkyCoefficients projects the sky visibility seen by every probe into
// SH. The solid angle weights are renormalized to 4π.
func bakeSkyCoefficients(probes []Probe, sky [][]skySample) {
	for p := range probes {
		var c sh.Coeffs3
		var total float32
		for _, s := range sky[p] {
			w := sh.TexelSolidAngle(s.u, s.v)
			total += w
			c = c.Add(sh.Project(s.dir).Scale(s.visibility * w))
		}
		probes[p].SkyVisibility = c.Scale(math.SafeDiv(4*math32.Pi, total))
	}
}

type surfelKey struct {
	x, y, z int32
	dir     vec.AxisNormal
}

func newSurfelKey(p, n vec.Vec3, size float32) surfelKey {
	return surfelKey{
		x:   int32(math32.Floor(p.X / size)),
		y:   int32(math32.Floor(p.Y / size)),
		z:   int32(math32.Floor(p.Z / size)),
		dir: vec.GreatestAxis(n),
	}
}

type parentWeight struct {
	probe   int32
	weights [vec.AxisCount]float32
}

type bakeSurfel struct {
	key     surfelKey
	pos     vec.Vec3
	normal  vec.Vec3
	albedo  vec.Vec3
	samples int
	parents []parentWeight
	nearest int32
	brick   int32
}

func (s *bakeSurfel) addParent(probe int32, w [vec.AxisCount]float32) {
	for i := range s.parents {
		if s.parents[i].probe == probe {
			for a := range w {
				s.parents[i].weights[a] += w[a]
			}
			return
		}
	}
	s.parents = append(s.parents, parentWeight{probe: probe, weights: w})
}

// clusterSurfelData merges samples falling into the same grid cell with the
// same dominant normal axis. Surfels keep the order of their first sample.
func clusterSurfelData(samples []surfelSample, probes []Probe, size float32) []bakeSurfel {
	index := make(map[surfelKey]int)
	var out []bakeSurfel
	for _, s := range samples {
		k := newSurfelKey(s.pos, s.normal, size)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, bakeSurfel{key: k, nearest: InvalidID, brick: InvalidID})
		}
		b := &out[i]
		b.samples++
		f := 1 / float32(b.samples)
		b.pos = vec.Lerp(b.pos, s.pos, f)
		b.normal = vec.Lerp(b.normal, s.normal, f)
		b.albedo = vec.Lerp(b.albedo, s.albedo, f)
		b.addParent(s.probe, s.weights)
	}
	for i := range out {
		b := &out[i]
		if b.normal.Length() < 1e-6 {
			b.normal = b.key.dir.Vec()
		}
		b.normal = b.normal.Normalize()
		best := float32(math32.MaxFloat32)
		for _, pw := range b.parents {
			if d := vec.Distance(probes[pw.probe].Pos, b.pos); d < best {
				best, b.nearest = d, pw.probe
			}
		}
	}
	return out
}

type brickKey struct {
	x, y, z int32
	dir     vec.AxisNormal
}

type bakeBrick struct {
	key   brickKey
	start int32
	count int32
}

// clusterBrickData groups surfels into bricks of perBrick surfel cells per
// axis sharing one normal direction. The returned surfels are reordered so
// every brick owns a contiguous range.
func clusterBrickData(surfels []bakeSurfel, perBrick int) ([]bakeSurfel, []bakeBrick) {
	n := int32(max(perBrick, 1))
	index := make(map[brickKey]int32)
	var bricks []bakeBrick
	for i := range surfels {
		s := &surfels[i]
		k := brickKey{
			x:   math.FloorDiv(s.key.x, n),
			y:   math.FloorDiv(s.key.y, n),
			z:   math.FloorDiv(s.key.z, n),
			dir: s.key.dir,
		}
		b, ok := index[k]
		if !ok {
			b = int32(len(bricks))
			index[k] = b
			bricks = append(bricks, bakeBrick{key: k})
		}
		s.brick = b
		bricks[b].count++
	}
	sorted := make([]bakeSurfel, len(surfels))
	copy(sorted, surfels)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].brick < sorted[j].brick })
	var start int32
	for i := range bricks {
		bricks[i].start = start
		start += bricks[i].count
	}
	return sorted, bricks
}

// generateBrickWeights sums the parent weights of each brick's surfels per
// probe. Factors are grouped by probe and each probe gets its range.
func generateBrickWeights(bricks []bakeBrick, surfels []bakeSurfel, probes []Probe) []SurfelBrickFactor {
	type factor struct {
		probe int32
		f     SurfelBrickFactor
	}
	var all []factor
	for bi, b := range bricks {
		first := len(all)
		for _, s := range surfels[b.start : b.start+b.count] {
			for _, pw := range s.parents {
				j := -1
				for k := first; k < len(all); k++ {
					if all[k].probe == pw.probe {
						j = k
						break
					}
				}
				if j < 0 {
					j = len(all)
					all = append(all, factor{probe: pw.probe, f: SurfelBrickFactor{BrickID: int32(bi)}})
				}
				for a := range pw.weights {
					all[j].f.BrickWeights[a] += pw.weights[a]
				}
			}
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].probe < all[j].probe })

	out := make([]SurfelBrickFactor, len(all))
	for i := range probes {
		probes[i].BrickFactorRangeStart = 0
		probes[i].BrickFactorCount = 0
	}
	for i, f := range all {
		out[i] = f.f
		p := &probes[f.probe]
		if p.BrickFactorCount == 0 {
			p.BrickFactorRangeStart = int32(i)
		}
		p.BrickFactorCount++
	}
	return out
}

// normalizeBrickWeights makes the weights of every probe sum to 1 per axis.
// Axes that saw no geometry get a uniform distribution over the probe's
// bricks.
func normalizeBrickWeights(probes []Probe, factors []SurfelBrickFactor) {
	for _, p := range probes {
		if p.BrickFactorCount == 0 {
			continue
		}
		fs := factors[p.BrickFactorRangeStart : p.BrickFactorRangeStart+p.BrickFactorCount]
		for a := 0; a < vec.AxisCount; a++ {
			var sum float32
			for i := range fs {
				sum += fs[i].BrickWeights[a]
			}
			if sum > math.Epsilon {
				for i := range fs {
					fs[i].BrickWeights[a] /= sum
				}
				continue
			}
			u := 1 / float32(len(fs))
			for i := range fs {
				fs[i].BrickWeights[a] = u
			}
		}
	}
}

// gpuSurfels converts the clustered surfels to their storage layout.
func gpuSurfels(surfels []bakeSurfel) []Surfel {
	out := make([]Surfel, len(surfels))
	for i, s := range surfels {
		out[i] = Surfel{
			NearestProbeID: s.nearest,
			Pos:            s.pos,
			Normal:         s.normal,
			Albedo:         s.albedo,
		}
	}
	return out
}

func gpuBricks(bricks []bakeBrick) []SurfelBrick {
	out := make([]SurfelBrick, len(bricks))
	for i, b := range bricks {
		out[i] = SurfelBrick{SurfelRangeStart: b.start, SurfelCount: b.count}
	}
	return out
}
