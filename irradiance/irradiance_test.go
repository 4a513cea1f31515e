package irradiance

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goradiance/gpu"
	"goradiance/gpu/soft"
	"goradiance/lightsector"
	"goradiance/math/vec"
)

type fakeSource struct {
	id      uuid.UUID
	probes  *gpu.ShaderData[lightsector.Probe]
	network *gpu.ShaderData[lightsector.ProbeSearchCell]
}

func (f *fakeSource) BakeID() uuid.UUID {
	return f.id
}

func (f *fakeSource) Probes() []lightsector.Probe {
	return f.probes.Host()
}

func (f *fakeSource) ProbeData() *gpu.ShaderData[lightsector.Probe] {
	return f.probes
}

func (f *fakeSource) NetworkData() *gpu.ShaderData[lightsector.ProbeSearchCell] {
	return f.network
}

// linearSource has a 3x3x3 probe grid whose +X irradiance grows linearly
// with x and whose -Y irradiance is constant.
func linearSource(t *testing.T, dev gpu.Device) *fakeSource {
	t.Helper()
	probes := lightsector.GridProbes(vec.Vec3{X: -2, Y: 0, Z: -1}, vec.Vec3{X: 2, Y: 2, Z: 1}, [3]int{3, 3, 3})
	for i := range probes {
		probes[i].Irradiance.Set(vec.PositiveX, vec.Vec3{X: probes[i].Pos.X + 2})
		probes[i].Irradiance.Set(vec.NegativeY, vec.Vec3{Y: 0.5})
	}
	cells, err := lightsector.BuildNetwork(probes)
	require.NoError(t, err)
	p, err := gpu.NewShaderData(dev, "probes", probes)
	require.NoError(t, err)
	n, err := gpu.NewShaderData(dev, "network", cells)
	require.NoError(t, err)
	return &fakeSource{id: uuid.New(), probes: p, network: n}
}

func TestNewRejectsResolution(t *testing.T) {
	_, err := New(soft.New(), [3]int{4, 0, 4})
	assert.Error(t, err)
}

func TestUpdateLinearField(t *testing.T) {
	dev := soft.New()
	src := linearSource(t, dev)
	v, err := New(dev, [3]int{8, 4, 4})
	require.NoError(t, err)
	require.NoError(t, v.Update(src))
	assert.True(t, v.Filled())

	lo, hi := v.Bounds()
	assert.Equal(t, vec.Vec3{X: -2, Y: 0, Z: -1}, lo)
	assert.Equal(t, vec.Vec3{X: 2, Y: 2, Z: 1}, hi)

	img := v.Image(vec.PositiveX)
	for z := 0; z < 4; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 8; x++ {
				c := v.VoxelCentre(x, y, z)
				assert.InDelta(t, c.X+2, img.At(x, y, z).X, 1e-4, "voxel %d %d %d", x, y, z)
				assert.InDelta(t, 0.5, v.Image(vec.NegativeY).At(x, y, z).Y, 1e-5)
			}
		}
	}

	// between voxel centres the filter stays on the linear field
	p := vec.Vec3{X: 0.3, Y: 1.1, Z: -0.2}
	assert.InDelta(t, 2.3, v.Axis(vec.PositiveX, p).X, 1e-3)
	assert.InDelta(t, 2.3, v.Sample(p, vec.Vec3{X: 1}).X, 1e-3)
	assert.InDelta(t, 0.5, v.Sample(p, vec.Vec3{Y: -1}).Y, 1e-5)
	// a diagonal normal blends both axes by the squared normal
	n := vec.Vec3{X: 1, Y: -1}.Normalize()
	s := v.Sample(p, n)
	assert.InDelta(t, 0.5*2.3, s.X, 1e-3)
	assert.InDelta(t, 0.5*0.5, s.Y, 1e-4)
}

func TestWorldMatrix(t *testing.T) {
	dev := soft.New()
	src := linearSource(t, dev)
	v, err := New(dev, [3]int{2, 2, 2})
	require.NoError(t, err)
	require.NoError(t, v.Update(src))
	m := v.WorldMatrix()
	c := m.Mul4x1(mgl32.Vec4{1, 1, 1, 1})
	assert.InDelta(t, 2, c[0], 1e-6)
	assert.InDelta(t, 2, c[1], 1e-6)
	assert.InDelta(t, 1, c[2], 1e-6)
}

// failingDevice rejects dispatches while fail is set.
type failingDevice struct {
	*soft.Device
	fail bool
}

func (d *failingDevice) Dispatch(k *gpu.Kernel, in gpu.Inputs, n int) error {
	if d.fail {
		return errors.Errorf("%s: device lost", k.Name)
	}
	return d.Device.Dispatch(k, in, n)
}

func TestHintsResetOnRebake(t *testing.T) {
	dev := &failingDevice{Device: soft.New()}
	src := linearSource(t, dev)
	v, err := New(dev, [3]int{4, 4, 4})
	require.NoError(t, err)
	require.NoError(t, v.Update(src))
	for i, h := range v.hints.Host() {
		assert.NotEqual(t, int32(lightsector.InvalidID), h, "voxel %d", i)
	}

	// same bake, hints survive a failed update
	dev.fail = true
	assert.Error(t, v.Update(src))
	assert.NotContains(t, v.hints.Host(), int32(lightsector.InvalidID))

	src.id = uuid.New()
	assert.Error(t, v.Update(src))
	for _, h := range v.hints.Host() {
		assert.Equal(t, int32(lightsector.InvalidID), h)
	}

	dev.fail = false
	require.NoError(t, v.Update(src))
	assert.Equal(t, src.id, v.bakeID)
}

func TestUpdateUnbaked(t *testing.T) {
	dev := soft.New()
	v, err := New(dev, [3]int{2, 2, 2})
	require.NoError(t, err)
	ls := lightsector.New(dev, lightsector.DefaultSettings())
	assert.ErrorIs(t, v.Update(ls), lightsector.ErrNotBaked)
	assert.False(t, v.Filled())
}

func TestFailedUpdateKeepsBounds(t *testing.T) {
	dev := &failingDevice{Device: soft.New()}
	v, err := New(dev, [3]int{2, 2, 2})
	require.NoError(t, err)
	require.NoError(t, v.Update(linearSource(t, dev)))
	lo, hi := v.Bounds()
	world := v.WorldMatrix()
	centre := v.VoxelCentre(1, 1, 1)

	probes := lightsector.GridProbes(vec.Vec3{X: 10, Y: 10, Z: 10}, vec.Vec3{X: 20, Y: 14, Z: 12}, [3]int{2, 2, 2})
	cells, err := lightsector.BuildNetwork(probes)
	require.NoError(t, err)
	p, err := gpu.NewShaderData(dev, "probes", probes)
	require.NoError(t, err)
	n, err := gpu.NewShaderData(dev, "network", cells)
	require.NoError(t, err)
	moved := &fakeSource{id: uuid.New(), probes: p, network: n}

	dev.fail = true
	require.Error(t, v.Update(moved))
	gotLo, gotHi := v.Bounds()
	assert.Equal(t, lo, gotLo)
	assert.Equal(t, hi, gotHi)
	assert.Equal(t, world, v.WorldMatrix())
	assert.Equal(t, centre, v.VoxelCentre(1, 1, 1))

	dev.fail = false
	require.NoError(t, v.Update(moved))
	gotLo, gotHi = v.Bounds()
	assert.Equal(t, vec.Vec3{X: 10, Y: 10, Z: 10}, gotLo)
	assert.Equal(t, vec.Vec3{X: 20, Y: 14, Z: 12}, gotHi)
}
