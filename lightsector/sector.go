// Package lightsector bakes the radiance transfer of a static scene into a
// network of light probes and relights it every frame.
//
// Baking renders small G-buffer cubemaps around every probe, clusters the
// visible surface points into surfels and surfels into bricks, and records
// how much every brick contributes to every probe along the six ambient
// cube axes. Relighting then only needs two passes: light the surfels, and
// gather brick radiance and visible sky into the probes.
package lightsector

import (
	"slices"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"goradiance/config"
	"goradiance/conlog"
	"goradiance/cvars"
	"goradiance/envmap"
	"goradiance/gpu"
	"goradiance/math/vec"
	"goradiance/qtime"
	"goradiance/scene"
	"goradiance/shadow"
)

type State int

const (
	Unbaked State = iota
	Baked
)

func (s State) String() string {
	if s == Baked {
		return "baked"
	}
	return "unbaked"
}

type Settings struct {
	ProbeMapSize    int
	SurfelSize      float32
	SurfelsPerBrick int
	Near            float32
	Far             float32
	SkyThreshold    float32
	Probes          config.Probes
}

func SettingsFromConfig(c *config.Config) Settings {
	return Settings{
		ProbeMapSize:    c.Bake.ProbeMapSize,
		SurfelSize:      c.Bake.SurfelSize,
		SurfelsPerBrick: c.Bake.SurfelsPerBrick,
		Near:            c.Bake.Near,
		Far:             c.Bake.Far,
		SkyThreshold:    c.Bake.SkyThreshold,
		Probes:          c.Probes,
	}
}

func DefaultSettings() Settings {
	return SettingsFromConfig(config.Default())
}

// BakeStats summarizes the last successful bake.
type BakeStats struct {
	Probes   int
	Cells    int
	Surfels  int
	Bricks   int
	Factors  int
	Samples  int
	Duration float32 // milliseconds
}

type buffers struct {
	probes  [2]*gpu.ShaderData[Probe]
	scratch *gpu.ShaderData[Probe]
	network *gpu.ShaderData[ProbeSearchCell]
	surfels [2]*gpu.ShaderData[Surfel]
	bricks  [2]*gpu.ShaderData[SurfelBrick]
	factors *gpu.ShaderData[SurfelBrickFactor]
}

func (b *buffers) release() {
	for _, p := range b.probes {
		if p != nil {
			p.Release()
		}
	}
	for _, s := range b.surfels {
		if s != nil {
			s.Release()
		}
	}
	for _, s := range b.bricks {
		if s != nil {
			s.Release()
		}
	}
	if b.scratch != nil {
		b.scratch.Release()
	}
	if b.network != nil {
		b.network.Release()
	}
	if b.factors != nil {
		b.factors.Release()
	}
}

func alloc[T any](dev gpu.Device, err *error, name string, host []T) *gpu.ShaderData[T] {
	if *err != nil {
		return nil
	}
	sd, e := gpu.NewShaderData(dev, name, host)
	*err = e
	return sd
}

// LightSector owns the baked probe data of one scene. Relight results live
// in double buffered storage: kernels write the back buffers and the
// buffers swap only after every dispatch of a frame succeeded.
type LightSector struct {
	dev      gpu.Device
	settings Settings
	placed   []Probe

	state  State
	bakeID uuid.UUID
	stats  BakeStats
	atlas  *envmap.Atlas
	buf    buffers
	front  int

	shadow      *gpu.ShaderImage[float32]
	shadowSize  int
	pointLights []float32
}

func New(dev gpu.Device, s Settings) *LightSector {
	return &LightSector{dev: dev, settings: s}
}

// SetProbes replaces the configured placement with a fixed probe set for
// the next bake.
func (ls *LightSector) SetProbes(p []Probe) {
	ls.placed = slices.Clone(p)
}

func (ls *LightSector) State() State {
	return ls.state
}

// BakeID changes with every successful bake. Consumers compare it to
// detect that cached cells or buffers went stale.
func (ls *LightSector) BakeID() uuid.UUID {
	return ls.bakeID
}

func (ls *LightSector) Settings() Settings {
	return ls.settings
}

func (ls *LightSector) Stats() BakeStats {
	return ls.stats
}

func (ls *LightSector) Device() gpu.Device {
	return ls.dev
}

// Atlas is the environment map atlas rendered by the last bake.
func (ls *LightSector) Atlas() *envmap.Atlas {
	return ls.atlas
}

// BakeRadianceTransfer builds the probe network and all transfer data for
// s. On error the previous bake stays in place.
func (ls *LightSector) BakeRadianceTransfer(s *scene.Scene) error {
	timer := qtime.StartTimer()
	if s == nil || len(s.Models) == 0 {
		return ErrNoModels
	}
	var probes []Probe
	if ls.placed != nil {
		probes = slices.Clone(ls.placed)
	} else {
		var err error
		if probes, err = PlaceProbes(s, ls.settings.Probes); err != nil {
			return errors.Wrap(err, "place probes")
		}
	}
	if len(probes) < 4 {
		return errors.Wrapf(ErrTooFewProbes, "got %d", len(probes))
	}
	for i := range probes {
		probes[i].ID = int32(i)
	}

	cells, err := BuildNetwork(probes)
	if err != nil {
		return errors.Wrap(err, "probe network")
	}
	conlog.DPrintf("probe network: %d probes, %d cells\n", len(probes), len(cells))

	st := ls.settings
	atlas, err := ls.dev.RenderEnvironmentMaps(s, probePositions(probes), st.ProbeMapSize, st.Near, st.Far)
	if err != nil {
		return errors.Wrap(err, "render environment maps")
	}
	samples, sky := gatherSamples(atlas, probes, st.SkyThreshold)
	bakeSkyCoefficients(probes, sky)
	clustered := clusterSurfelData(samples, probes, st.SurfelSize)
	clustered, bricks := clusterBrickData(clustered, st.SurfelsPerBrick)
	factors := generateBrickWeights(bricks, clustered, probes)
	normalizeBrickWeights(probes, factors)

	surfels := gpuSurfels(clustered)
	gbricks := gpuBricks(bricks)
	var nb buffers
	nb.probes[0] = alloc(ls.dev, &err, "probes.0", probes)
	nb.probes[1] = alloc(ls.dev, &err, "probes.1", slices.Clone(probes))
	nb.scratch = alloc(ls.dev, &err, "probes.scratch", slices.Clone(probes))
	nb.network = alloc(ls.dev, &err, "probe_network", cells)
	nb.surfels[0] = alloc(ls.dev, &err, "surfels.0", surfels)
	nb.surfels[1] = alloc(ls.dev, &err, "surfels.1", slices.Clone(surfels))
	nb.bricks[0] = alloc(ls.dev, &err, "surfel_bricks.0", gbricks)
	nb.bricks[1] = alloc(ls.dev, &err, "surfel_bricks.1", slices.Clone(gbricks))
	nb.factors = alloc(ls.dev, &err, "brick_factors", factors)
	if err != nil {
		nb.release()
		return errors.Wrap(err, "upload bake data")
	}

	ls.buf.release()
	ls.buf = nb
	ls.front = 0
	ls.atlas = atlas
	ls.state = Baked
	ls.bakeID = uuid.New()
	ls.stats = BakeStats{
		Probes:   len(probes),
		Cells:    len(cells),
		Surfels:  len(surfels),
		Bricks:   len(bricks),
		Factors:  len(factors),
		Samples:  len(samples),
		Duration: timer.Ms(),
	}
	conlog.Printf("baked %d probes, %d surfels in %d bricks (%.1fms)\n",
		len(probes), len(surfels), len(bricks), ls.stats.Duration)
	return nil
}

// MustBakeRadianceTransfer is BakeRadianceTransfer for setups that cannot
// continue without light data.
func (ls *LightSector) MustBakeRadianceTransfer(s *scene.Scene) {
	if err := ls.BakeRadianceTransfer(s); err != nil {
		panic(err)
	}
}

// Relight recomputes surfel, brick and probe lighting for the current
// lights. The result only depends on the scene lights, the shadow map and
// the light cvars, never on previous frames. It returns false and keeps the
// last good data if any pass fails.
func (ls *LightSector) Relight(s *scene.Scene, sm *shadow.Map) bool {
	if ls.state != Baked {
		conlog.Printf("relight: %v\n", ErrNotBaked)
		return false
	}
	if err := ls.relight(s, sm); err != nil {
		conlog.Printf("relight: %v\n", err)
		return false
	}
	ls.front = 1 - ls.front
	return true
}

func (ls *LightSector) relight(s *scene.Scene, sm *shadow.Map) error {
	in, err := ls.lightInputs(s, sm, cvars.LightGIBoost.Value())
	if err != nil {
		return err
	}
	back := 1 - ls.front
	bounces := max(cvars.LightBounces.Int(), 1)
	in["surfels"] = ls.buf.surfels[back]
	in["bricks"] = ls.buf.bricks[back]
	in["brick_factors"] = ls.buf.factors

	var src *gpu.ShaderData[Probe]
	for b := 0; b < bounces; b++ {
		// the last bounce has to land in the back buffer
		dst := ls.buf.probes[back]
		if (bounces-1-b)%2 == 1 {
			dst = ls.buf.scratch
		}
		if src == nil {
			in["probes_in"] = dst
			in["use_probes"] = 0
		} else {
			in["probes_in"] = src
			in["use_probes"] = 1
		}
		if err := ls.dev.Dispatch(brickKernel, in, ls.buf.bricks[back].Len()); err != nil {
			return errors.Wrapf(err, "bounce %d", b)
		}
		in["probes_out"] = dst
		if err := ls.dev.Dispatch(probeKernel, in, dst.Len()); err != nil {
			return errors.Wrapf(err, "bounce %d", b)
		}
		src = dst
	}
	return nil
}

// Sync makes the host copies of the front buffers current. Devices running
// kernels on the host never need it.
func (ls *LightSector) Sync() error {
	if ls.state != Baked {
		return ErrNotBaked
	}
	f := ls.front
	if err := ls.buf.probes[f].Download(); err != nil {
		return err
	}
	if err := ls.buf.surfels[f].Download(); err != nil {
		return err
	}
	return ls.buf.bricks[f].Download()
}

// Release frees all device storage and returns to the unbaked state.
func (ls *LightSector) Release() {
	ls.buf.release()
	ls.buf = buffers{}
	if ls.shadow != nil {
		ls.shadow.Release()
		ls.shadow = nil
	}
	ls.atlas = nil
	ls.state = Unbaked
}

// The accessors below return the front buffers. Their contents stay valid
// until the next successful Relight or bake.

func (ls *LightSector) Probes() []Probe {
	return ls.buf.probes[ls.front].Host()
}

func (ls *LightSector) ProbeNetwork() []ProbeSearchCell {
	return ls.buf.network.Host()
}

func (ls *LightSector) Surfels() []Surfel {
	return ls.buf.surfels[ls.front].Host()
}

func (ls *LightSector) SurfelBricks() []SurfelBrick {
	return ls.buf.bricks[ls.front].Host()
}

func (ls *LightSector) SurfelBrickFactors() []SurfelBrickFactor {
	return ls.buf.factors.Host()
}

func (ls *LightSector) ProbeData() *gpu.ShaderData[Probe] {
	return ls.buf.probes[ls.front]
}

func (ls *LightSector) NetworkData() *gpu.ShaderData[ProbeSearchCell] {
	return ls.buf.network
}

func (ls *LightSector) SurfelData() *gpu.ShaderData[Surfel] {
	return ls.buf.surfels[ls.front]
}

func (ls *LightSector) BrickData() *gpu.ShaderData[SurfelBrick] {
	return ls.buf.bricks[ls.front]
}

func (ls *LightSector) BrickFactorData() *gpu.ShaderData[SurfelBrickFactor] {
	return ls.buf.factors
}

// FindProbeWeights locates p in the baked network.
func (ls *LightSector) FindProbeWeights(p vec.Vec3, hint int32) (ProbeSearchWeights, int32) {
	return FindProbeWeights(ls.ProbeNetwork(), ls.Probes(), p, hint)
}
