// SPDX-License-Identifier: GPL-2.0-or-later
package texture

import (
	"image"
	"image/draw"

	"github.com/chewxy/math32"

	"goradiance/glh"
	"goradiance/math/vec"
)

type TexPref uint32

const (
	TexPrefLinear TexPref = 1 << iota
	TexPrefNearest
	TexPrefClamp
	TexPrefNone TexPref = 0
)

// Texture keeps RGBA8 texels on the CPU for baking. The GL object is only
// created on first Bind.
type Texture struct {
	glID   *glh.Texture2D
	Width  int32
	Height int32
	flags  TexPref
	name   string
	Data   []byte
}

func NewTexture(w, h int32, flags TexPref, name string, data []byte) *Texture {
	return &Texture{
		Width:  w,
		Height: h,
		flags:  flags,
		name:   name,
		Data:   data,
	}
}

// NewSolid returns a 1x1 texture of colour c (components in [0,1]).
func NewSolid(name string, c vec.Vec3) *Texture {
	b := func(f float32) byte {
		return byte(math32.Round(math32.Min(math32.Max(f, 0), 1) * 255))
	}
	return NewTexture(1, 1, TexPrefNearest, name, []byte{b(c.X), b(c.Y), b(c.Z), 255})
}

// FromImage converts any image to RGBA8.
func FromImage(name string, img image.Image, flags TexPref) *Texture {
	r := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, r.Min, draw.Src)
	return NewTexture(int32(r.Dx()), int32(r.Dy()), flags, name, rgba.Pix)
}

func (t *Texture) Name() string {
	return t.name
}

func (t *Texture) Flags(f TexPref) bool {
	return t.flags&f != 0
}

func (t *Texture) Texels() int {
	return int(t.Width * t.Height)
}

// Bind uploads on first use. Needs a current GL context.
func (t *Texture) Bind() {
	if t.glID == nil {
		t.glID = glh.NewTexture2D()
		t.glID.Bind()
		t.glID.SetRGBA8(int(t.Width), int(t.Height), t.Data, t.Flags(TexPrefLinear))
		return
	}
	t.glID.Bind()
}

func (t *Texture) texel(x, y int32) vec.Vec3 {
	if t.Flags(TexPrefClamp) {
		x = min(max(x, 0), t.Width-1)
		y = min(max(y, 0), t.Height-1)
	} else {
		x = ((x % t.Width) + t.Width) % t.Width
		y = ((y % t.Height) + t.Height) % t.Height
	}
	i := 4 * (y*t.Width + x)
	return vec.Vec3{
		X: float32(t.Data[i]) / 255,
		Y: float32(t.Data[i+1]) / 255,
		Z: float32(t.Data[i+2]) / 255,
	}
}

// Sample returns the colour at uv, bilinear unless TexPrefNearest is set.
func (t *Texture) Sample(uv vec.Vec2) vec.Vec3 {
	if t.Width == 0 || t.Height == 0 {
		return vec.Vec3{}
	}
	fx := uv.X*float32(t.Width) - 0.5
	fy := uv.Y*float32(t.Height) - 0.5
	if t.Flags(TexPrefNearest) {
		return t.texel(int32(math32.Round(fx)), int32(math32.Round(fy)))
	}
	x0, y0 := math32.Floor(fx), math32.Floor(fy)
	ax, ay := fx-x0, fy-y0
	ix, iy := int32(x0), int32(y0)
	top := vec.Lerp(t.texel(ix, iy), t.texel(ix+1, iy), ax)
	bottom := vec.Lerp(t.texel(ix, iy+1), t.texel(ix+1, iy+1), ax)
	return vec.Lerp(top, bottom, ay)
}
