// Package debugview renders the baked and relit light data into images
// for inspection. The mode numbers match the debug:view cvar.
package debugview

import (
	"image"
	"image/color"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/pkg/errors"

	"goradiance/cvars"
	"goradiance/envmap"
	"goradiance/irradiance"
	"goradiance/lightsector"
	"goradiance/math"
	"goradiance/math/vec"
)

// Sources are the read only inputs of the views. Any may be nil, views
// that need a missing source fail.
type Sources struct {
	Sector *lightsector.LightSector
	Volume *irradiance.Volume
}

var names = map[int]string{
	cvars.ViewProbes:           "probes",
	cvars.ViewSurfelBricks:     "surfel-bricks",
	cvars.ViewIrradianceVolume: "irradiance-volume",
	cvars.ViewEnvironmentMaps:  "environment-maps",
}

// Name returns the file stem of a view mode.
func Name(mode int) string {
	if n, ok := names[mode]; ok {
		return n
	}
	return "off"
}

var errNoSource = errors.New("source not available")

const (
	swatch     = 8
	splatSize  = 128
	dumpHeight = 512
)

// Render draws view mode at its natural resolution.
func Render(mode int, src Sources) (*image.RGBA, error) {
	switch mode {
	case cvars.ViewProbes:
		if src.Sector == nil || src.Sector.State() != lightsector.Baked {
			return nil, errors.Wrap(errNoSource, "probes")
		}
		return probeSwatches(src.Sector.Probes()), nil
	case cvars.ViewSurfelBricks:
		if src.Sector == nil || src.Sector.State() != lightsector.Baked {
			return nil, errors.Wrap(errNoSource, "surfel bricks")
		}
		return brickSplat(src.Sector.Surfels(), src.Sector.SurfelBricks()), nil
	case cvars.ViewIrradianceVolume:
		if !src.Volume.Filled() {
			return nil, errors.Wrap(errNoSource, "irradiance volume")
		}
		return volumeSlices(src.Volume), nil
	case cvars.ViewEnvironmentMaps:
		if src.Sector == nil || src.Sector.Atlas() == nil {
			return nil, errors.Wrap(errNoSource, "environment maps")
		}
		return atlasImage(src.Sector.Atlas()), nil
	}
	return nil, errors.Errorf("unknown debug view %d", mode)
}

// Dump renders mode, scales it up to a viewable size and writes it as PNG
// into dir. It returns the written path.
func Dump(dir string, mode int, src Sources) (string, error) {
	img, err := Render(mode, src)
	if err != nil {
		return "", err
	}
	b := img.Bounds()
	scale := max(dumpHeight/max(b.Dy(), 1), 1)
	out := transform.Resize(img, b.Dx()*scale, b.Dy()*scale, transform.NearestNeighbor)
	path := filepath.Join(dir, Name(mode)+".png")
	if err := imgio.Save(path, out, imgio.PNGEncoder()); err != nil {
		return "", errors.Wrapf(err, "debug view %s", Name(mode))
	}
	return path, nil
}

// toneMap maps linear radiance to a displayable colour.
func toneMap(v vec.Vec3) color.RGBA {
	c := func(x float32) uint8 {
		x = max(x, 0)
		x = x / (1 + x)
		return uint8(math.Saturate(math.Sqrt(x))*255 + 0.5)
	}
	return color.RGBA{R: c(v.X), G: c(v.Y), B: c(v.Z), A: 255}
}

func albedoColour(v vec.Vec3) color.RGBA {
	c := func(x float32) uint8 {
		return uint8(math.Saturate(x)*255 + 0.5)
	}
	return color.RGBA{R: c(v.X), G: c(v.Y), B: c(v.Z), A: 255}
}

// probeSwatches draws one row per probe, one swatch per ambient cube axis.
func probeSwatches(probes []lightsector.Probe) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, vec.AxisCount*swatch, max(len(probes), 1)*swatch))
	for i := range probes {
		for a := vec.AxisNormal(0); a < vec.AxisCount; a++ {
			c := toneMap(probes[i].Irradiance.Face(a))
			for y := 0; y < swatch; y++ {
				for x := 0; x < swatch; x++ {
					img.SetRGBA(int(a)*swatch+x, i*swatch+y, c)
				}
			}
		}
	}
	return img
}

// brickSplat projects every surfel onto the XZ plane and paints it with the
// radiance of its brick. Higher surfels win.
func brickSplat(surfels []lightsector.Surfel, bricks []lightsector.SurfelBrick) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, splatSize, splatSize))
	if len(surfels) == 0 {
		return img
	}
	lo, hi := surfels[0].Pos, surfels[0].Pos
	for _, s := range surfels[1:] {
		lo = vec.Min(lo, s.Pos)
		hi = vec.Max(hi, s.Pos)
	}
	height := make([]float32, splatSize*splatSize)
	set := make([]bool, splatSize*splatSize)
	cell := func(v, l, h float32) int {
		return math.Clamp(0, int(math.SafeDiv(v-l, h-l)*(splatSize-1)+0.5), splatSize-1)
	}
	for _, b := range bricks {
		c := toneMap(b.Radiance)
		for _, s := range surfels[b.SurfelRangeStart : b.SurfelRangeStart+b.SurfelCount] {
			x := cell(s.Pos.X, lo.X, hi.X)
			y := cell(s.Pos.Z, lo.Z, hi.Z)
			i := y*splatSize + x
			if set[i] && height[i] >= s.Pos.Y {
				continue
			}
			set[i], height[i] = true, s.Pos.Y
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// volumeSlices lays out the horizontal slices of the volume side by side,
// shaded for an upward facing surface.
func volumeSlices(v *irradiance.Volume) *image.RGBA {
	res := v.Resolution()
	img := image.NewRGBA(image.Rect(0, 0, res[0]*res[1], res[2]))
	up := v.Image(vec.PositiveY)
	for y := 0; y < res[1]; y++ {
		for z := 0; z < res[2]; z++ {
			for x := 0; x < res[0]; x++ {
				img.SetRGBA(y*res[0]+x, z, toneMap(up.At(x, y, z).Vec3()))
			}
		}
	}
	return img
}

// atlasImage shows the albedo of geometry texels and the sky in blue. The
// atlas is stored bottom up.
func atlasImage(a *envmap.Atlas) *image.RGBA {
	w, h := a.Width(), a.Height()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	sky := color.RGBA{R: 40, G: 80, B: 160, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := &a.Texels[y*w+x]
			c := sky
			if t.SkyVisibility < 1 {
				c = albedoColour(t.Albedo)
			}
			img.SetRGBA(x, h-1-y, c)
		}
	}
	return img
}
