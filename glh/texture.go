// SPDX-License-Identifier: GPL-2.0-or-later
package glh

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/gopxl/mainthread/v2"
)

type TexID uint32

type Texture interface {
	ID() TexID
	Bind()
}

// Texel formats of float textures.
const (
	R32F    = gl.R32F
	RGBA32F = gl.RGBA32F
	RGBA8   = gl.RGBA8
)

type texture struct {
	id uint32
}

func (t *texture) ID() TexID {
	return TexID(t.id)
}

func deleteTexture(id uint32) {
	mainthread.CallNonBlock(func() {
		gl.DeleteTextures(1, &id)
	})
}

func (t *texture) gen() {
	gl.GenTextures(1, &t.id)
}

func baseFormat(internal uint32) uint32 {
	if internal == gl.R32F {
		return gl.RED
	}
	return gl.RGBA
}

func pixelType(internal uint32) uint32 {
	if internal == gl.RGBA8 {
		return gl.UNSIGNED_BYTE
	}
	return gl.FLOAT
}

// BindImage binds level 0 of t to an image unit for compute access.
func (t *texture) BindImage(unit uint32, internal uint32, layered bool) {
	gl.BindImageTexture(unit, t.id, 0, layered, 0, gl.READ_WRITE, internal)
}

type Texture2D struct {
	texture
	width, height int
}

func NewTexture2D() *Texture2D {
	t := &Texture2D{}
	t.gen()
	runtime.AddCleanup(t, deleteTexture, t.id)
	return t
}

func (t *Texture2D) Bind() {
	gl.BindTexture(gl.TEXTURE_2D, t.id)
}

func setFilter(target uint32, linear bool) {
	f := int32(gl.NEAREST)
	if linear {
		f = gl.LINEAR
	}
	gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, f)
	gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, f)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
}

// SetRGBA8 uploads 8 bit texels. The texture needs to be bound.
func (t *Texture2D) SetRGBA8(w, h int, data []byte, linear bool) {
	t.width, t.height = w, h
	var p unsafe.Pointer
	if len(data) > 0 {
		p = gl.Ptr(data)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, p)
	setFilter(gl.TEXTURE_2D, linear)
}

// Allocate reserves w*h texels of the given internal format. The texture
// needs to be bound. data may be nil.
func (t *Texture2D) Allocate(w, h int, internal uint32, data unsafe.Pointer) {
	t.width, t.height = w, h
	gl.TexImage2D(gl.TEXTURE_2D, 0, int32(internal), int32(w), int32(h), 0, baseFormat(internal), pixelType(internal), data)
	setFilter(gl.TEXTURE_2D, false)
}

// Read copies level 0 into data. The texture needs to be bound.
func (t *Texture2D) Read(internal uint32, data unsafe.Pointer) {
	gl.GetTexImage(gl.TEXTURE_2D, 0, baseFormat(internal), pixelType(internal), data)
}

func (t *Texture2D) Size() (int, int) {
	return t.width, t.height
}

type Texture3D struct {
	texture
}

func NewTexture3D() *Texture3D {
	t := &Texture3D{}
	t.gen()
	runtime.AddCleanup(t, deleteTexture, t.id)
	return t
}

func (t *Texture3D) Bind() {
	gl.BindTexture(gl.TEXTURE_3D, t.id)
}

// Allocate reserves w*h*d texels. The texture needs to be bound.
func (t *Texture3D) Allocate(w, h, d int, internal uint32, data unsafe.Pointer) {
	gl.TexImage3D(gl.TEXTURE_3D, 0, int32(internal), int32(w), int32(h), int32(d), 0, baseFormat(internal), pixelType(internal), data)
	setFilter(gl.TEXTURE_3D, true)
}

func (t *Texture3D) Read(internal uint32, data unsafe.Pointer) {
	gl.GetTexImage(gl.TEXTURE_3D, 0, baseFormat(internal), pixelType(internal), data)
}

// Framebuffer with colour attachments and a float depth attachment.
type Framebuffer struct {
	fbo    uint32
	colour []*Texture2D
	depth  *Texture2D
	width  int
	height int
}

func deleteFramebuffer(fbo uint32) {
	mainthread.CallNonBlock(func() {
		gl.DeleteFramebuffers(1, &fbo)
	})
}

func NewFramebuffer(w, h int, colourFormats ...uint32) (*Framebuffer, error) {
	f := &Framebuffer{width: w, height: h}
	gl.GenFramebuffers(1, &f.fbo)
	runtime.AddCleanup(f, deleteFramebuffer, f.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.fbo)
	var draw []uint32
	for i, cf := range colourFormats {
		t := NewTexture2D()
		t.Bind()
		t.Allocate(w, h, cf, nil)
		a := uint32(gl.COLOR_ATTACHMENT0 + i)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, a, gl.TEXTURE_2D, t.id, 0)
		f.colour = append(f.colour, t)
		draw = append(draw, a)
	}
	f.depth = NewTexture2D()
	f.depth.Bind()
	f.depth.width, f.depth.height = w, h
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT32F, int32(w), int32(h), 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	setFilter(gl.TEXTURE_2D, false)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, f.depth.id, 0)
	if len(draw) > 0 {
		gl.DrawBuffers(int32(len(draw)), &draw[0])
	}
	if s := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); s != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return nil, fmt.Errorf("framebuffer incomplete: 0x%x", s)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return f, nil
}

func (f *Framebuffer) Bind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.fbo)
	gl.Viewport(0, 0, int32(f.width), int32(f.height))
}

func (f *Framebuffer) Unbind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// ReadColour reads attachment i as RGBA floats. The framebuffer needs to be bound.
func (f *Framebuffer) ReadColour(i int, data []float32) {
	gl.ReadBuffer(uint32(gl.COLOR_ATTACHMENT0 + i))
	gl.ReadPixels(0, 0, int32(f.width), int32(f.height), gl.RGBA, gl.FLOAT, gl.Ptr(data))
}

// ReadDepth reads window space depth in [0,1].
func (f *Framebuffer) ReadDepth(data []float32) {
	gl.ReadPixels(0, 0, int32(f.width), int32(f.height), gl.DEPTH_COMPONENT, gl.FLOAT, gl.Ptr(data))
}
