// Package irradiance resamples the probe ambient cubes into a dense grid of
// six 3D images, one per ambient cube axis, for deferred shading.
package irradiance

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"goradiance/gpu"
	"goradiance/lightsector"
	"goradiance/math"
	"goradiance/math/vec"
)

// ProbeSource is the read only view of a baked light sector.
type ProbeSource interface {
	BakeID() uuid.UUID
	Probes() []lightsector.Probe
	ProbeData() *gpu.ShaderData[lightsector.Probe]
	NetworkData() *gpu.ShaderData[lightsector.ProbeSearchCell]
}

var imageNames = [vec.AxisCount]string{
	"irradiance_px", "irradiance_nx",
	"irradiance_py", "irradiance_ny",
	"irradiance_pz", "irradiance_nz",
}

var volumeKernel = &gpu.Kernel{
	Name:      "irradiance-volume",
	Source:    volumeSource,
	LocalSize: 64,
	Buffers:   []string{"probes", "network", "hints"},
	Images:    imageNames[:],
	Exec:      fillVoxel,
}

type Volume struct {
	dev    gpu.Device
	res    [3]int
	lo, hi vec.Vec3

	images [vec.AxisCount]*gpu.ShaderImage[vec.Vec4]
	hints  *gpu.ShaderData[int32]
	bakeID uuid.UUID
	filled bool
}

func New(dev gpu.Device, res [3]int) (*Volume, error) {
	for i, n := range res {
		if n < 1 {
			return nil, errors.Errorf("irradiance volume resolution[%d] = %d", i, n)
		}
	}
	v := &Volume{dev: dev, res: res}
	for a := range v.images {
		img, err := gpu.NewShaderImage[vec.Vec4](dev, imageNames[a], gpu.FormatRGBA32F, res[0], res[1], res[2])
		if err != nil {
			v.Release()
			return nil, err
		}
		v.images[a] = img
	}
	hints := make([]int32, v.Voxels())
	for i := range hints {
		hints[i] = lightsector.InvalidID
	}
	var err error
	if v.hints, err = gpu.NewShaderData(dev, "irradiance_hints", hints); err != nil {
		v.Release()
		return nil, err
	}
	return v, nil
}

func (v *Volume) Resolution() [3]int {
	return v.res
}

func (v *Volume) Voxels() int {
	return v.res[0] * v.res[1] * v.res[2]
}

// Bounds is the box covered by the volume, the bounding box of the probes
// of the last update.
func (v *Volume) Bounds() (lo, hi vec.Vec3) {
	return v.lo, v.hi
}

// WorldMatrix maps the unit cube of texture coordinates to world space.
func (v *Volume) WorldMatrix() mgl32.Mat4 {
	size := vec.Sub(v.hi, v.lo)
	return mgl32.Translate3D(v.lo.X, v.lo.Y, v.lo.Z).Mul4(mgl32.Scale3D(size.X, size.Y, size.Z))
}

func (v *Volume) Image(a vec.AxisNormal) *gpu.ShaderImage[vec.Vec4] {
	return v.images[a]
}

// Filled reports whether Update succeeded at least once.
func (v *Volume) Filled() bool {
	return v != nil && v.filled
}

// Update resamples the probes of src into the volume.
func (v *Volume) Update(src ProbeSource) error {
	probes := src.Probes()
	if len(probes) == 0 {
		return lightsector.ErrNotBaked
	}
	if id := src.BakeID(); id != v.bakeID {
		h := v.hints.Host()
		for i := range h {
			h[i] = lightsector.InvalidID
		}
		if err := v.hints.Upload(); err != nil {
			return err
		}
		v.bakeID = id
	}
	lo, hi := probes[0].Pos, probes[0].Pos
	for _, p := range probes[1:] {
		lo = vec.Min(lo, p.Pos)
		hi = vec.Max(hi, p.Pos)
	}

	in := gpu.Inputs{
		"probes":     src.ProbeData(),
		"network":    src.NetworkData(),
		"hints":      v.hints,
		"volume_min": lo,
		"volume_max": hi,
		"res_x":      v.res[0],
		"res_y":      v.res[1],
		"res_z":      v.res[2],
	}
	for a, img := range v.images {
		in[imageNames[a]] = img
	}
	if err := v.dev.Dispatch(volumeKernel, in, v.Voxels()); err != nil {
		return errors.Wrap(err, "irradiance volume")
	}
	v.lo, v.hi = lo, hi
	v.filled = true
	return nil
}

// Sync makes the host copies of the images current.
func (v *Volume) Sync() error {
	for _, img := range v.images {
		if err := img.Download(); err != nil {
			return err
		}
	}
	return nil
}

func (v *Volume) Release() {
	for _, img := range v.images {
		if img != nil {
			img.Release()
		}
	}
	if v.hints != nil {
		v.hints.Release()
	}
}

// VoxelCentre returns the world position of voxel (x, y, z).
func (v *Volume) VoxelCentre(x, y, z int) vec.Vec3 {
	return voxelCentre(v.lo, v.hi, v.res, x, y, z)
}

func voxelCentre(lo, hi vec.Vec3, res [3]int, x, y, z int) vec.Vec3 {
	f := vec.Vec3{
		X: (float32(x) + 0.5) / float32(res[0]),
		Y: (float32(y) + 0.5) / float32(res[1]),
		Z: (float32(z) + 0.5) / float32(res[2]),
	}
	return vec.Add(lo, vec.Mul(vec.Sub(hi, lo), f))
}

// Axis returns the trilinearly filtered irradiance of axis a at p.
func (v *Volume) Axis(a vec.AxisNormal, p vec.Vec3) vec.Vec3 {
	img := v.images[a]
	var c [3]float32
	var i0 [3]int
	for k := 0; k < 3; k++ {
		span := v.hi.Idx(k) - v.lo.Idx(k)
		f := math.SafeDiv(p.Idx(k)-v.lo.Idx(k), span)*float32(v.res[k]) - 0.5
		f = math.Clamp(0, f, float32(v.res[k]-1))
		fl := math32.Floor(f)
		i0[k] = int(fl)
		c[k] = f - fl
	}
	var r vec.Vec3
	for corner := 0; corner < 8; corner++ {
		w := float32(1)
		var idx [3]int
		for k := 0; k < 3; k++ {
			if corner&(1<<k) != 0 {
				idx[k] = min(i0[k]+1, v.res[k]-1)
				w *= c[k]
			} else {
				idx[k] = i0[k]
				w *= 1 - c[k]
			}
		}
		if w == 0 {
			continue
		}
		r = vec.Add(r, img.At(idx[0], idx[1], idx[2]).Vec3().Scale(w))
	}
	return r
}

// Sample returns the irradiance arriving at p on a surface facing n.
func (v *Volume) Sample(p, n vec.Vec3) vec.Vec3 {
	n2 := vec.Mul(n, n)
	x, y, z := vec.PositiveX, vec.PositiveY, vec.PositiveZ
	if n.X < 0 {
		x = vec.NegativeX
	}
	if n.Y < 0 {
		y = vec.NegativeY
	}
	if n.Z < 0 {
		z = vec.NegativeZ
	}
	r := v.Axis(x, p).Scale(n2.X)
	r = vec.Add(r, v.Axis(y, p).Scale(n2.Y))
	return vec.Add(r, v.Axis(z, p).Scale(n2.Z))
}

func fillVoxel(i int, in gpu.Inputs) {
	probes := gpu.Buffer[lightsector.Probe](in, "probes")
	cells := gpu.Buffer[lightsector.ProbeSearchCell](in, "network")
	hints := gpu.Buffer[int32](in, "hints")
	res := [3]int{in.Int("res_x"), in.Int("res_y"), in.Int("res_z")}

	x := i % res[0]
	y := (i / res[0]) % res[1]
	z := i / (res[0] * res[1])
	p := voxelCentre(in.Vec3("volume_min"), in.Vec3("volume_max"), res, x, y, z)

	w, cell := lightsector.FindProbeWeights(cells, probes, p, hints[i])
	hints[i] = cell
	for a := vec.AxisNormal(0); a < vec.AxisCount; a++ {
		var e vec.Vec3
		for _, pw := range w {
			if pw.ID == lightsector.InvalidID {
				continue
			}
			e = vec.Add(e, probes[pw.ID].Irradiance.Face(a).Scale(pw.Weight))
		}
		gpu.Texels[vec.Vec4](in, imageNames[a]).Set(x, y, z, e.Vec4(1))
	}
}
