// Package gpu is the compute capability the light baking and relighting
// code runs on. A Kernel carries both its GLSL source and a CPU body with
// the same semantics, so a Device may either compile the source or simply
// call the body for every invocation.
package gpu

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"goradiance/envmap"
	"goradiance/math/sh"
	"goradiance/math/vec"
)

// Storage is a device side structured buffer.
type Storage interface {
	Write(data unsafe.Pointer, size int) error
	Read(data unsafe.Pointer, size int) error
	Release()
}

type Format int

const (
	FormatR32F Format = iota
	FormatRGBA32F
)

// Image is a device side 2D or 3D float texture.
type Image interface {
	Write(data unsafe.Pointer) error
	Read(data unsafe.Pointer) error
	Release()
}

type Device interface {
	envmap.Renderer

	Name() string
	NewStorage(name string, size int) (Storage, error)
	// NewImage creates a w*h*d image, d == 1 means 2D.
	NewImage(name string, format Format, w, h, d int) (Image, error)
	// Dispatch runs k for invocations 0..n-1.
	Dispatch(k *Kernel, in Inputs, n int) error
}

type Kernel struct {
	Name      string
	Source    string
	LocalSize int
	// Buffers are bound in order to std430 binding points 0..n-1,
	// Images to image units 0..n-1.
	Buffers []string
	Images  []string
	Exec    func(i int, in Inputs)
}

// Groups returns the work group count covering n invocations.
func (k *Kernel) Groups(n int) int {
	ls := max(k.LocalSize, 1)
	return (n + ls - 1) / ls
}

// Validate checks that every declared buffer and image is bound.
func (k *Kernel) Validate(in Inputs) error {
	for _, b := range k.Buffers {
		r, ok := in[b].(BufferResource)
		if !ok || r == nil || r.Storage() == nil {
			return errors.Errorf("kernel %s: buffer %q not bound", k.Name, b)
		}
	}
	for _, b := range k.Images {
		r, ok := in[b].(ImageResource)
		if !ok || r == nil || r.Image() == nil {
			return errors.Errorf("kernel %s: image %q not bound", k.Name, b)
		}
	}
	return nil
}

type BufferResource interface {
	ResourceName() string
	Storage() Storage
}

type ImageResource interface {
	ResourceName() string
	Image() Image
	Format() Format
}

// Inputs maps uniform and resource names to values. Uniforms may be
// float32, int, int32, bool, vec.Vec3, mgl32.Mat4, sh.Coeffs3 or []float32.
type Inputs map[string]any

func (in Inputs) Float(n string) float32 {
	v, _ := in[n].(float32)
	return v
}

func (in Inputs) Int(n string) int {
	switch v := in[n].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case bool:
		if v {
			return 1
		}
	}
	return 0
}

func (in Inputs) Vec3(n string) vec.Vec3 {
	v, _ := in[n].(vec.Vec3)
	return v
}

func (in Inputs) Mat4(n string) mgl32.Mat4 {
	v, _ := in[n].(mgl32.Mat4)
	return v
}

func (in Inputs) Coeffs(n string) sh.Coeffs3 {
	v, _ := in[n].(sh.Coeffs3)
	return v
}

func (in Inputs) Floats(n string) []float32 {
	v, _ := in[n].([]float32)
	return v
}

// Buffer returns the host slice of a bound ShaderData.
func Buffer[T any](in Inputs, n string) []T {
	if sd, ok := in[n].(*ShaderData[T]); ok && sd != nil {
		return sd.host
	}
	return nil
}

// Texels returns a bound ShaderImage.
func Texels[T any](in Inputs, n string) *ShaderImage[T] {
	si, _ := in[n].(*ShaderImage[T])
	return si
}
