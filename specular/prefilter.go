package specular

import (
	"image"
	"image/color"
	"slices"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/transform"

	"goradiance/math/vec"
)

// prefilter builds the roughness chain of c. Level n halves the resolution
// of level n-1 and is blurred with a radius growing with n. Faces are
// filtered independently.
func prefilter(c *Cubemap, levels int) []*Cubemap {
	r := make([]*Cubemap, 0, levels)
	r = append(r, c)
	for n := 1; n < levels; n++ {
		size := max(c.Size>>n, 1)
		lv := &Cubemap{Size: size}
		for f := range c.Faces {
			lv.Faces[f] = filterFace(c.Faces[f], c.Size, size, float64(n)*float64(c.Size)/8)
		}
		r = append(r, lv)
	}
	return r
}

// filterFace blurs and resamples one face. bild works on 8 bit images, so
// the face is split at the knee into a base band, which keeps dim texels
// above the quantization step next to a bright sky, and a highlight band
// holding the excess. Both filters are linear, the bands are summed back.
func filterFace(face []vec.Vec3, size, out int, radius float64) []vec.Vec3 {
	k := knee(face)
	kv := vec.Vec3{X: k, Y: k, Z: k}
	base := make([]vec.Vec3, len(face))
	high := make([]vec.Vec3, len(face))
	for i, v := range face {
		base[i] = vec.Min(v, kv)
		high[i] = vec.Sub(v, base[i])
	}
	res := filterBand(base, size, out, radius)
	for i, v := range filterBand(high, size, out, radius) {
		res[i] = vec.Add(res[i], v)
	}
	return res
}

// kneeQuantile is the share of lit texels kept at full 8 bit precision.
const kneeQuantile = 0.9

// knee returns the kneeQuantile quantile of the brightest channel over the
// lit texels of face.
func knee(face []vec.Vec3) float32 {
	lum := make([]float32, 0, len(face))
	for _, v := range face {
		if m := max(v.X, v.Y, v.Z); m > 0 {
			lum = append(lum, m)
		}
	}
	if len(lum) == 0 {
		return 0
	}
	slices.Sort(lum)
	return lum[int(kneeQuantile*float32(len(lum)-1))]
}

// filterBand scales band by its peak to 8 bit, filters it and scales back.
func filterBand(band []vec.Vec3, size, out int, radius float64) []vec.Vec3 {
	var peak float32
	for _, v := range band {
		peak = max(peak, v.X, v.Y, v.Z)
	}
	res := make([]vec.Vec3, out*out)
	if peak <= 0 {
		return res
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := band[y*size+x].Scale(255 / peak)
			img.SetRGBA(x, y, color.RGBA{R: quantize(v.X), G: quantize(v.Y), B: quantize(v.Z), A: 255})
		}
	}
	var dst *image.RGBA
	if radius > 0 {
		dst = blur.Gaussian(img, radius)
	} else {
		dst = img
	}
	if out != size {
		dst = transform.Resize(dst, out, out, transform.Linear)
	}
	s := peak / 255
	for y := 0; y < out; y++ {
		for x := 0; x < out; x++ {
			p := dst.RGBAAt(x, y)
			res[y*out+x] = vec.Vec3{X: float32(p.R) * s, Y: float32(p.G) * s, Z: float32(p.B) * s}
		}
	}
	return res
}

func quantize(v float32) uint8 {
	return uint8(min(max(v+0.5, 0), 255))
}
