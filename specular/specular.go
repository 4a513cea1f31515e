// Package specular keeps local reflection cubemaps. The G-buffer of every
// cubemap is rendered once, its lighting is recomputed every frame and
// prefiltered into a chain of increasingly rough levels.
package specular

import (
	"runtime"
	"sync"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"goradiance/envmap"
	"goradiance/math"
	"goradiance/math/sh"
	"goradiance/math/vec"
	"goradiance/scene"
	"goradiance/shadow"
)

// Kind selects one of the per cubemap outputs.
type Kind int

const (
	Albedo Kind = iota
	Normal
	Depth
	Light
)

func (k Kind) String() string {
	switch k {
	case Albedo:
		return "albedo"
	case Normal:
		return "normal"
	case Depth:
		return "depth"
	case Light:
		return "light"
	}
	return "unknown"
}

var ErrNotBaked = errors.New("specular probes not baked")

// Cubemap holds one value per texel of six square faces, faces ordered like
// vec.AxisNormal and texels like envmap.
type Cubemap struct {
	Size  int
	Faces [envmap.FaceCount][]vec.Vec3
}

func NewCubemap(size int) *Cubemap {
	c := &Cubemap{Size: size}
	for f := range c.Faces {
		c.Faces[f] = make([]vec.Vec3, size*size)
	}
	return c
}

func (c *Cubemap) At(f vec.AxisNormal, x, y int) vec.Vec3 {
	return c.Faces[f][y*c.Size+x]
}

// Lookup returns the texel seen along dir.
func (c *Cubemap) Lookup(dir vec.Vec3) vec.Vec3 {
	f := vec.GreatestAxis(dir)
	b := envmap.FaceBasis(f)
	fwd := vec.Dot(dir, b.Forward)
	u := math.SafeDiv(vec.Dot(dir, b.Right), fwd)
	v := math.SafeDiv(vec.Dot(dir, b.Up), fwd)
	x := math.Clamp(0, int(math32.Floor((u+1)/2*float32(c.Size))), c.Size-1)
	y := math.Clamp(0, int(math32.Floor((v+1)/2*float32(c.Size))), c.Size-1)
	return c.At(f, x, y)
}

type Settings struct {
	Size   int
	Levels int
	Near   float32
	Far    float32
}

type probe struct {
	pos    vec.Vec3
	world  []vec.Vec3 // surface position per texel
	light  *Cubemap
	levels []*Cubemap
}

// Local owns the reflection probes of one scene.
type Local struct {
	renderer envmap.Renderer
	settings Settings
	Workers  int

	atlas  *envmap.Atlas
	probes []probe
}

func New(r envmap.Renderer, s Settings) *Local {
	return &Local{renderer: r, settings: s, Workers: runtime.NumCPU()}
}

func (l *Local) Count() int {
	return len(l.probes)
}

func (l *Local) Position(i int) vec.Vec3 {
	return l.probes[i].pos
}

// Bake renders the G-buffer cubemaps at positions.
func (l *Local) Bake(s *scene.Scene, positions []vec.Vec3) error {
	st := l.settings
	if st.Size < 1 || st.Levels < 1 {
		return errors.Errorf("specular size %d levels %d", st.Size, st.Levels)
	}
	if len(positions) == 0 {
		l.atlas, l.probes = nil, nil
		return nil
	}
	a, err := l.renderer.RenderEnvironmentMaps(s, positions, st.Size, st.Near, st.Far)
	if err != nil {
		return errors.Wrap(err, "specular cubemaps")
	}
	probes := make([]probe, len(positions))
	for i, p := range positions {
		pr := probe{
			pos:   p,
			world: make([]vec.Vec3, envmap.FaceCount*st.Size*st.Size),
			light: NewCubemap(st.Size),
		}
		for f := vec.AxisNormal(0); f < envmap.FaceCount; f++ {
			for y := 0; y < st.Size; y++ {
				for x := 0; x < st.Size; x++ {
					if a.At(i, f, x, y).SkyVisibility < 1 {
						pr.world[(int(f)*st.Size+y)*st.Size+x] = a.WorldPosition(i, f, x, y)
					}
				}
			}
		}
		probes[i] = pr
	}
	l.atlas, l.probes = a, probes
	return nil
}

// Irradiance is the diffuse bounce light the cubemaps pick up, typically an
// irradiance.Volume.
type Irradiance interface {
	Filled() bool
	Sample(p, n vec.Vec3) vec.Vec3
}

// Relight recomputes the light of every cubemap texel and its prefiltered
// levels. vol may be nil, the unoccluded sky is used instead.
func (l *Local) Relight(s *scene.Scene, sm *shadow.Map, vol Irradiance) error {
	if l.atlas == nil {
		return ErrNotBaked
	}
	sky := s.SkyBox.Scale(s.SkyLuminance)
	if vol != nil && !vol.Filled() {
		vol = nil
	}
	workers := max(l.Workers, 1)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				l.relightProbe(i, s, sm, vol, sky)
			}
		}()
	}
	for i := range l.probes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return nil
}

func (l *Local) relightProbe(i int, s *scene.Scene, sm *shadow.Map, vol Irradiance, sky sh.RGB3) {
	pr := &l.probes[i]
	size := l.settings.Size
	for f := vec.AxisNormal(0); f < envmap.FaceCount; f++ {
		out := pr.light.Faces[f]
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				t := l.atlas.At(i, f, x, y)
				if t.SkyVisibility >= 1 {
					u, v := envmap.TexelUV(x, y, size)
					out[y*size+x] = vec.Max(sky.Eval(envmap.Direction(f, u, v)), vec.Vec3{})
					continue
				}
				p := pr.world[(int(f)*size+y)*size+x]
				var e vec.Vec3
				for _, lt := range s.Lights {
					le := lt.Irradiance(p, t.Normal)
					if lt.Type == scene.Directional {
						le = le.Scale(sm.Visibility(p))
					}
					e = vec.Add(e, le)
				}
				if vol != nil {
					e = vec.Add(e, vol.Sample(p, t.Normal))
				} else {
					e = vec.Add(e, vec.Max(sky.Irradiance(t.Normal), vec.Vec3{}))
				}
				out[y*size+x] = vec.Mul(t.Albedo, e).Scale(1 / math32.Pi)
			}
		}
	}
	pr.levels = prefilter(pr.light, l.settings.Levels)
}

// Nearest returns the index of the cubemap closest to p, -1 without any.
func (l *Local) Nearest(p vec.Vec3) int {
	best, bestD := -1, float32(math32.MaxFloat32)
	for i := range l.probes {
		d := vec.Sub(p, l.probes[i].pos)
		if d2 := vec.Dot(d, d); d2 < bestD {
			best, bestD = i, d2
		}
	}
	return best
}

// Output returns one G-buffer or light cubemap of probe i. Depth is
// returned in the X channel.
func (l *Local) Output(i int, k Kind) *Cubemap {
	if k == Light {
		return l.probes[i].light
	}
	size := l.settings.Size
	c := NewCubemap(size)
	for f := vec.AxisNormal(0); f < envmap.FaceCount; f++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				t := l.atlas.At(i, f, x, y)
				var v vec.Vec3
				switch k {
				case Albedo:
					v = t.Albedo
				case Normal:
					v = t.Normal
				case Depth:
					v = vec.Vec3{X: t.Depth}
				}
				c.Faces[f][y*size+x] = v
			}
		}
	}
	return c
}

// Level returns prefiltered level n of probe i, level 0 is the sharp light.
// It is nil before the first Relight.
func (l *Local) Level(i, n int) *Cubemap {
	lv := l.probes[i].levels
	if n >= len(lv) {
		return nil
	}
	return lv[n]
}

// Reflect returns the prefiltered light around p along dir for a surface
// of the given roughness in [0,1].
func (l *Local) Reflect(p, dir vec.Vec3, roughness float32) vec.Vec3 {
	i := l.Nearest(p)
	if i < 0 || l.probes[i].levels == nil {
		return vec.Vec3{}
	}
	n := int(math32.Round(math.Saturate(roughness) * float32(l.settings.Levels-1)))
	return l.Level(i, n).Lookup(dir)
}
