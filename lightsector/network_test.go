package lightsector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goradiance/math/vec"
	"goradiance/rand"
)

func cellVolume6(probes []Probe, c *ProbeSearchCell) float64 {
	p := func(i int) [3]float64 {
		v := probes[c.ProbeVertices[i]].Pos
		return [3]float64{float64(v.X), float64(v.Y), float64(v.Z)}
	}
	a, b, cc, d := p(0), p(1), p(2), p(3)
	var e [3][3]float64
	for k := 0; k < 3; k++ {
		e[0][k] = b[k] - a[k]
		e[1][k] = cc[k] - a[k]
		e[2][k] = d[k] - a[k]
	}
	det := e[0][0]*(e[1][1]*e[2][2]-e[1][2]*e[2][1]) -
		e[0][1]*(e[1][0]*e[2][2]-e[1][2]*e[2][0]) +
		e[0][2]*(e[1][0]*e[2][1]-e[1][1]*e[2][0])
	return math.Abs(det)
}

func checkNetwork(t *testing.T, probes []Probe, cells []ProbeSearchCell, volume float64) {
	t.Helper()
	var total float64
	for ci := range cells {
		c := &cells[ci]
		total += cellVolume6(probes, c) / 6
		for f, n := range c.Neighbours {
			if n == InvalidID {
				continue
			}
			assert.Contains(t, cells[n].Neighbours, int32(ci), "cell %d face %d", ci, f)
		}
		// every vertex maps to its own barycentric unit vector
		origin := probes[c.ProbeVertices[0]].Pos
		for k, v := range c.ProbeVertices {
			b := c.Barycentric(origin, probes[v].Pos)
			for j := range b {
				want := 0.0
				if j == k {
					want = 1
				}
				assert.InDelta(t, want, b[j], 1e-4)
			}
		}
	}
	assert.InDelta(t, volume, total, volume*1e-4)
}

func TestBuildNetworkCube(t *testing.T) {
	probes := GridProbes(vec.Vec3{X: -1, Y: -1, Z: -1}, vec.Vec3{X: 1, Y: 1, Z: 1}, [3]int{2, 2, 2})
	cells, err := BuildNetwork(probes)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(cells), 5)
	checkNetwork(t, probes, cells, 8)
}

func TestBuildNetworkGrid(t *testing.T) {
	probes := GridProbes(vec.Vec3{X: -1, Y: -1, Z: -1}, vec.Vec3{X: 1, Y: 1, Z: 1}, [3]int{3, 3, 3})
	cells, err := BuildNetwork(probes)
	require.NoError(t, err)
	checkNetwork(t, probes, cells, 8)
}

func TestBuildNetworkRandom(t *testing.T) {
	probes := RandomProbes(60, 10, 7)
	cells, err := BuildNetwork(probes)
	require.NoError(t, err)
	require.NoError(t, validateNetwork(cells, len(probes)))
	for ci := range cells {
		assert.Greater(t, cellVolume6(probes, &cells[ci]), 0.0)
	}
}

func TestBuildNetworkWideGrid(t *testing.T) {
	tests := []struct {
		name string
		hi   vec.Vec3
	}{
		{"1000x4x1000", vec.Vec3{X: 1000, Y: 4, Z: 1000}},
		{"1000x1x1000", vec.Vec3{X: 1000, Y: 1, Z: 1000}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			probes := GridProbes(vec.Vec3{}, tc.hi, [3]int{40, 2, 40})
			cells, err := BuildNetwork(probes)
			require.NoError(t, err)
			checkNetwork(t, probes, cells, float64(tc.hi.X*tc.hi.Y*tc.hi.Z))

			g := rand.New(11)
			hint := int32(InvalidID)
			inset := vec.Vec3{X: 0.01, Y: 0.01, Z: 0.01}
			for i := 0; i < 300; i++ {
				p := g.Point(inset, vec.Sub(tc.hi, inset))
				w, cell := FindProbeWeights(cells, probes, p, hint)
				require.NotEqual(t, int32(InvalidID), cell)
				var sum float32
				var rec vec.Vec3
				for _, pw := range w {
					assert.GreaterOrEqual(t, pw.Weight, float32(0))
					sum += pw.Weight
					rec = vec.Add(rec, probes[pw.ID].Pos.Scale(pw.Weight))
				}
				assert.InDelta(t, 1, sum, 1e-4)
				assert.InDelta(t, p.X, rec.X, 0.05)
				assert.InDelta(t, p.Y, rec.Y, 0.05)
				assert.InDelta(t, p.Z, rec.Z, 0.05)
				hint = cell
			}
		})
	}
}

func TestBarycentricContainment(t *testing.T) {
	probes := newProbes([]vec.Vec3{{}, {X: 1}, {Y: 1}, {Z: 1}})
	cells, err := BuildNetwork(probes)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	for _, n := range cells[0].Neighbours {
		assert.Equal(t, int32(InvalidID), n)
	}
	c := &cells[0]
	origin := probes[c.ProbeVertices[0]].Pos
	centroid := vec.Vec3{X: 0.25, Y: 0.25, Z: 0.25}
	b := c.Barycentric(origin, centroid)
	var sum float32
	for _, w := range b {
		assert.Greater(t, w, float32(0))
		sum += w
	}
	assert.InDelta(t, 1, sum, 1e-6)

	far := c.Barycentric(origin, vec.Vec3{X: 10, Y: -4, Z: 3})
	assert.Less(t, far[minIndex(far)], float32(0))
}

func TestFindProbeWeights(t *testing.T) {
	probes := GridProbes(vec.Vec3{X: -2, Y: -1, Z: -1}, vec.Vec3{X: 2, Y: 1, Z: 1}, [3]int{4, 3, 3})
	cells, err := BuildNetwork(probes)
	require.NoError(t, err)

	g := rand.New(3)
	hint := int32(InvalidID)
	for i := 0; i < 200; i++ {
		p := g.Point(vec.Vec3{X: -1.95, Y: -0.95, Z: -0.95}, vec.Vec3{X: 1.95, Y: 0.95, Z: 0.95})
		w, cell := FindProbeWeights(cells, probes, p, hint)
		require.NotEqual(t, int32(InvalidID), cell)
		var sum float32
		var rec vec.Vec3
		for _, pw := range w {
			assert.GreaterOrEqual(t, pw.Weight, float32(0))
			sum += pw.Weight
			rec = vec.Add(rec, probes[pw.ID].Pos.Scale(pw.Weight))
		}
		assert.InDelta(t, 1, sum, 1e-4)
		assert.InDelta(t, p.X, rec.X, 1e-3)
		assert.InDelta(t, p.Y, rec.Y, 1e-3)
		assert.InDelta(t, p.Z, rec.Z, 1e-3)
		// alternate between a cold start and the previous cell as hint
		if i%2 == 0 {
			hint = cell
		} else {
			hint = InvalidID
		}
	}
}

func TestFindProbeWeightsOutside(t *testing.T) {
	probes := GridProbes(vec.Vec3{X: -1, Y: -1, Z: -1}, vec.Vec3{X: 1, Y: 1, Z: 1}, [3]int{2, 2, 2})
	cells, err := BuildNetwork(probes)
	require.NoError(t, err)
	w, cell := FindProbeWeights(cells, probes, vec.Vec3{X: 5, Y: 0.2, Z: -0.3}, 0)
	assert.NotEqual(t, int32(InvalidID), cell)
	var sum float32
	for _, pw := range w {
		assert.GreaterOrEqual(t, pw.Weight, float32(0))
		sum += pw.Weight
	}
	assert.InDelta(t, 1, sum, 1e-5)

	none, c := FindProbeWeights(nil, probes, vec.Vec3{}, 0)
	assert.Equal(t, int32(InvalidID), c)
	assert.Equal(t, int32(InvalidID), none[0].ID)
}

func TestBuildNetworkErrors(t *testing.T) {
	_, err := BuildNetwork(newProbes([]vec.Vec3{{}, {X: 1}, {Y: 1}}))
	assert.ErrorIs(t, err, ErrTooFewProbes)

	_, err = BuildNetwork(newProbes([]vec.Vec3{{}, {X: 1}, {Y: 1}, {Z: 1}, {X: 1}}))
	assert.ErrorIs(t, err, ErrDuplicateProbe)
	assert.ErrorContains(t, err, "probes 1 and 4")

	flat := GridProbes(vec.Vec3{X: -1, Y: -1}, vec.Vec3{X: 1, Y: 1}, [3]int{3, 3, 1})
	_, err = BuildNetwork(flat)
	assert.ErrorIs(t, err, ErrDegenerateCell)
}
