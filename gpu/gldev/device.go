// Package gldev is a gpu.Device on an OpenGL 4.6 core context. All GL
// calls are funneled to the main thread, the context has to be current
// there (see window.InitHidden).
package gldev

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gopxl/mainthread/v2"
	"github.com/pkg/errors"

	"goradiance/conlog"
	"goradiance/glh"
	"goradiance/gpu"
	"goradiance/math/sh"
	"goradiance/math/vec"
)

type Device struct {
	programs map[*gpu.Kernel]*glh.Program
	raster   *rasterizer
}

func New() *Device {
	return &Device{programs: make(map[*gpu.Kernel]*glh.Program)}
}

func (d *Device) Name() string {
	return "gl"
}

type storage struct {
	buf  *glh.Buffer
	size int
}

func (d *Device) NewStorage(name string, size int) (gpu.Storage, error) {
	s := &storage{size: size}
	var err error
	mainthread.Call(func() {
		s.buf = glh.NewBuffer(glh.ShaderStorageBuffer)
		s.buf.Bind()
		s.buf.SetData(size, nil)
		err = glh.Error()
	})
	if err != nil {
		return nil, errors.Wrapf(err, "storage %s", name)
	}
	return s, nil
}

func (s *storage) Write(data unsafe.Pointer, size int) error {
	if size > s.size {
		return errors.Errorf("write of %d bytes into %d byte buffer", size, s.size)
	}
	var err error
	mainthread.Call(func() {
		s.buf.Bind()
		s.buf.SetSubData(size, data)
		err = glh.Error()
	})
	return err
}

func (s *storage) Read(data unsafe.Pointer, size int) error {
	if size > s.size {
		return errors.Errorf("read of %d bytes from %d byte buffer", size, s.size)
	}
	var err error
	mainthread.Call(func() {
		s.buf.Bind()
		s.buf.GetData(size, data)
		err = glh.Error()
	})
	return err
}

// Release drops the buffer, the GL object is deleted by its cleanup.
func (s *storage) Release() {
	s.buf = nil
}

func internalFormat(f gpu.Format) uint32 {
	if f == gpu.FormatR32F {
		return glh.R32F
	}
	return glh.RGBA32F
}

type image struct {
	tex2     *glh.Texture2D
	tex3     *glh.Texture3D
	internal uint32
	w, h, d  int
}

func (d *Device) NewImage(name string, f gpu.Format, w, h, depth int) (gpu.Image, error) {
	if w < 1 || h < 1 || depth < 1 {
		return nil, errors.Errorf("%s: bad image size %dx%dx%d", name, w, h, depth)
	}
	img := &image{internal: internalFormat(f), w: w, h: h, d: depth}
	var err error
	mainthread.Call(func() {
		img.allocate(nil)
		err = glh.Error()
	})
	if err != nil {
		return nil, errors.Wrapf(err, "image %s", name)
	}
	return img, nil
}

// allocate (re)specifies level 0. Needs the main thread.
func (i *image) allocate(data unsafe.Pointer) {
	if i.d > 1 {
		if i.tex3 == nil {
			i.tex3 = glh.NewTexture3D()
		}
		i.tex3.Bind()
		i.tex3.Allocate(i.w, i.h, i.d, i.internal, data)
		return
	}
	if i.tex2 == nil {
		i.tex2 = glh.NewTexture2D()
	}
	i.tex2.Bind()
	i.tex2.Allocate(i.w, i.h, i.internal, data)
}

func (i *image) Write(data unsafe.Pointer) error {
	var err error
	mainthread.Call(func() {
		i.allocate(data)
		err = glh.Error()
	})
	return err
}

func (i *image) Read(data unsafe.Pointer) error {
	var err error
	mainthread.Call(func() {
		if i.tex3 != nil {
			i.tex3.Bind()
			i.tex3.Read(i.internal, data)
		} else {
			i.tex2.Bind()
			i.tex2.Read(i.internal, data)
		}
		err = glh.Error()
	})
	return err
}

func (i *image) Release() {
	i.tex2, i.tex3 = nil, nil
}

func (i *image) bind(unit uint32) {
	if i.tex3 != nil {
		i.tex3.BindImage(unit, i.internal, true)
		return
	}
	i.tex2.BindImage(unit, i.internal, false)
}

func (d *Device) program(k *gpu.Kernel) (*glh.Program, error) {
	if p, ok := d.programs[k]; ok {
		return p, nil
	}
	p, err := glh.NewComputeProgram(k.Source)
	if err != nil {
		return nil, errors.Wrapf(err, "kernel %s", k.Name)
	}
	conlog.DPrintf("compiled kernel %s\n", k.Name)
	d.programs[k] = p
	return p, nil
}

func (d *Device) Dispatch(k *gpu.Kernel, in gpu.Inputs, n int) error {
	if err := k.Validate(in); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	var err error
	mainthread.Call(func() {
		err = d.dispatch(k, in, n)
	})
	return err
}

func (d *Device) dispatch(k *gpu.Kernel, in gpu.Inputs, n int) error {
	p, err := d.program(k)
	if err != nil {
		return err
	}
	p.Use()
	for i, name := range k.Buffers {
		s, ok := in[name].(gpu.BufferResource).Storage().(*storage)
		if !ok {
			return errors.Errorf("kernel %s: buffer %q is not GL storage", k.Name, name)
		}
		s.buf.BindBase(uint32(i))
	}
	for i, name := range k.Images {
		img, ok := in[name].(gpu.ImageResource).Image().(*image)
		if !ok {
			return errors.Errorf("kernel %s: image %q is not a GL image", k.Name, name)
		}
		img.bind(uint32(i))
	}
	for name, v := range in {
		setUniform(p, name, v)
	}
	p.SetInt("invocations", int32(n))
	p.Dispatch(uint32(k.Groups(n)), 1, 1)
	return errors.Wrapf(glh.Error(), "kernel %s", k.Name)
}

func setUniform(p *glh.Program, name string, v any) {
	switch v := v.(type) {
	case float32:
		p.SetFloat(name, v)
	case int:
		p.SetInt(name, int32(v))
	case int32:
		p.SetInt(name, v)
	case bool:
		var i int32
		if v {
			i = 1
		}
		p.SetInt(name, i)
	case vec.Vec3:
		p.SetVec3(name, v.X, v.Y, v.Z)
	case mgl32.Mat4:
		p.SetMat4(name, v)
	case sh.Coeffs3:
		p.SetFloats(name, v[:])
	case []float32:
		p.SetFloats(name, v)
	}
}
