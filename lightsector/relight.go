package lightsector

import (
	"github.com/chewxy/math32"

	"goradiance/envmap"
	"goradiance/gpu"
	"goradiance/math"
	"goradiance/math/sh"
	"goradiance/math/vec"
	"goradiance/scene"
	"goradiance/shadow"
)

const (
	MaxPointLights = 8
	// pointLightFloats is the packed size of one point light:
	// position, range, radiance, padding.
	pointLightFloats = 8
	// QuadratureSize is the per face resolution of the sphere quadrature
	// used to integrate sky visibility.
	QuadratureSize = 8
)

var brickKernel = &gpu.Kernel{
	Name:      "surfel-brick-relight",
	Source:    brickRelightSource,
	LocalSize: 64,
	Buffers:   []string{"surfels", "bricks", "probes_in"},
	Images:    []string{"shadow_map"},
	Exec:      relightBrick,
}

var probeKernel = &gpu.Kernel{
	Name:      "probe-relight",
	Source:    probeRelightSource,
	LocalSize: 64,
	Buffers:   []string{"probes_out", "bricks", "brick_factors"},
	Exec:      relightProbe,
}

type quadSample struct {
	dir    vec.Vec3
	basis  sh.Coeffs3
	weight float32
}

var (
	quadrature     []quadSample
	quadratureNorm float32
)

func init() {
	var total float32
	for f := vec.AxisNormal(0); f < envmap.FaceCount; f++ {
		for y := 0; y < QuadratureSize; y++ {
			for x := 0; x < QuadratureSize; x++ {
				u, v := envmap.TexelUV(x, y, QuadratureSize)
				d := envmap.Direction(f, u, v)
				w := sh.TexelSolidAngle(u, v)
				total += w
				quadrature = append(quadrature, quadSample{dir: d, basis: sh.Project(d), weight: w})
			}
		}
	}
	quadratureNorm = 4 * math32.Pi / total
	for i := range quadrature {
		quadrature[i].weight *= quadratureNorm
	}
}

func skyInput(in gpu.Inputs) sh.RGB3 {
	return sh.RGB3{R: in.Coeffs("sky_r"), G: in.Coeffs("sky_g"), B: in.Coeffs("sky_b")}
}

// directIrradiance sums the sun and point lights arriving at p.
func directIrradiance(p, n vec.Vec3, in gpu.Inputs) vec.Vec3 {
	var e vec.Vec3
	if in.Int("sun_enabled") != 0 {
		sun := scene.Light{
			Type:      scene.Directional,
			Direction: in.Vec3("sun_direction"),
			Colour:    in.Vec3("sun_radiance"),
			Luminance: 1,
		}
		vis := float32(1)
		if in.Int("shadow_enabled") != 0 {
			sm := gpu.Texels[float32](in, "shadow_map")
			vis = shadow.Visibility(sm.Host(), in.Int("shadow_size"), in.Mat4("light_vp"), in.Float("shadow_bias"), p)
		}
		e = sun.Irradiance(p, n).Scale(vis)
	}
	pl := in.Floats("point_lights")
	for i := 0; i < in.Int("point_light_count"); i++ {
		f := pl[i*pointLightFloats:]
		l := scene.Light{
			Type:      scene.Point,
			Position:  vec.Vec3{X: f[0], Y: f[1], Z: f[2]},
			Range:     f[3],
			Colour:    vec.Vec3{X: f[4], Y: f[5], Z: f[6]},
			Luminance: 1,
		}
		e = vec.Add(e, l.Irradiance(p, n))
	}
	return e
}

// relightBrick computes the outgoing radiance of every surfel in brick i
// and stores the brick average.
func relightBrick(i int, in gpu.Inputs) {
	surfels := gpu.Buffer[Surfel](in, "surfels")
	bricks := gpu.Buffer[SurfelBrick](in, "bricks")
	probes := gpu.Buffer[Probe](in, "probes_in")
	useProbes := in.Int("use_probes") != 0
	sky := skyInput(in)
	scale := in.Float("gi_boost") / math32.Pi

	b := &bricks[i]
	var sum vec.Vec3
	for si := b.SurfelRangeStart; si < b.SurfelRangeStart+b.SurfelCount; si++ {
		s := &surfels[si]
		e := directIrradiance(s.Pos, s.Normal, in)
		if useProbes && s.NearestProbeID != InvalidID {
			e = vec.Add(e, probes[s.NearestProbeID].Irradiance.Sample(s.Normal))
		} else {
			e = vec.Add(e, vec.Max(sky.Irradiance(s.Normal), vec.Vec3{}))
		}
		s.Radiance = vec.Mul(s.Albedo, e).Scale(scale)
		sum = vec.Add(sum, s.Radiance)
	}
	b.Radiance = sum.Scale(math.SafeDiv(1, float32(b.SurfelCount)))
}

// relightProbe integrates the visible sky and the weighted brick radiance
// of probe i over the six ambient cube axes.
func relightProbe(i int, in gpu.Inputs) {
	probes := gpu.Buffer[Probe](in, "probes_out")
	bricks := gpu.Buffer[SurfelBrick](in, "bricks")
	factors := gpu.Buffer[SurfelBrickFactor](in, "brick_factors")
	sky := skyInput(in)

	p := &probes[i]
	var bounce [vec.AxisCount]vec.Vec3
	start := p.BrickFactorRangeStart
	for _, f := range factors[start : start+p.BrickFactorCount] {
		l := bricks[f.BrickID].Radiance
		for a := range bounce {
			bounce[a] = vec.Add(bounce[a], l.Scale(f.BrickWeights[a]))
		}
	}

	var skyE [vec.AxisCount]vec.Vec3
	var occluded [vec.AxisCount]float32
	for _, q := range quadrature {
		v := math.Saturate(p.SkyVisibility.Dot(q.basis))
		l := vec.Vec3{
			X: max(sky.R.Dot(q.basis), 0),
			Y: max(sky.G.Dot(q.basis), 0),
			Z: max(sky.B.Dot(q.basis), 0),
		}
		for a := vec.AxisNormal(0); a < vec.AxisCount; a++ {
			c := max(vec.Dot(q.dir, a.Vec()), 0) * q.weight
			if c == 0 {
				continue
			}
			skyE[a] = vec.Add(skyE[a], l.Scale(v*c))
			occluded[a] += (1 - v) * c
		}
	}
	for a := vec.AxisNormal(0); a < vec.AxisCount; a++ {
		p.Irradiance.Set(a, vec.Add(skyE[a], bounce[a].Scale(occluded[a])))
	}
}

// lightInputs collects the uniforms shared by both relight kernels.
func (ls *LightSector) lightInputs(s *scene.Scene, sm *shadow.Map, boost float32) (gpu.Inputs, error) {
	sky := s.SkyBox.Scale(s.SkyLuminance)
	in := gpu.Inputs{
		"sky_r":             sky.R,
		"sky_g":             sky.G,
		"sky_b":             sky.B,
		"gi_boost":          boost,
		"quadrature_size":   QuadratureSize,
		"quadrature_norm":   quadratureNorm,
		"sun_enabled":       0,
		"sun_direction":     vec.Vec3{Y: -1},
		"sun_radiance":      vec.Vec3{},
		"point_light_count": 0,
		"shadow_enabled":    0,
	}
	if sun, ok := s.Sun(); ok {
		in["sun_enabled"] = 1
		in["sun_direction"] = sun.Direction
		in["sun_radiance"] = sun.Colour.Scale(sun.Luminance)
	}

	pl := ls.pointLights[:0]
	count := 0
	for _, l := range s.PointLights() {
		if count == MaxPointLights {
			break
		}
		r := l.Colour.Scale(l.Luminance)
		pl = append(pl, l.Position.X, l.Position.Y, l.Position.Z, l.Range, r.X, r.Y, r.Z, 0)
		count++
	}
	for len(pl) < MaxPointLights*pointLightFloats {
		pl = append(pl, 0)
	}
	ls.pointLights = pl
	in["point_lights"] = pl
	in["point_light_count"] = count

	img, err := ls.shadowImage(sm)
	if err != nil {
		return nil, err
	}
	in["shadow_map"] = img
	if sm != nil {
		in["shadow_enabled"] = 1
		in["light_vp"] = sm.ViewProj
		in["shadow_bias"] = sm.Bias
		in["shadow_size"] = sm.Size
	}
	return in, nil
}

// shadowImage mirrors sm into a device image. Without a map a 1x1 image
// stays bound so the kernel bindings are complete.
func (ls *LightSector) shadowImage(sm *shadow.Map) (*gpu.ShaderImage[float32], error) {
	size := 1
	if sm != nil {
		size = sm.Size
	}
	if ls.shadow == nil || ls.shadowSize != size {
		img, err := gpu.NewShaderImage[float32](ls.dev, "shadow_map", gpu.FormatR32F, size, size, 1)
		if err != nil {
			return nil, err
		}
		if ls.shadow != nil {
			ls.shadow.Release()
		}
		ls.shadow, ls.shadowSize = img, size
	}
	if sm == nil {
		return ls.shadow, nil
	}
	copy(ls.shadow.Host(), sm.Depth)
	if err := ls.shadow.Upload(); err != nil {
		return nil, err
	}
	return ls.shadow, nil
}
