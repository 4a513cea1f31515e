package gpu

import (
	"unsafe"

	"github.com/pkg/errors"
)

// ShaderData pairs a host slice with its device mirror. T must have a
// std430 compatible layout when used with a real GPU.
type ShaderData[T any] struct {
	name string
	host []T
	dev  Storage
}

func NewShaderData[T any](d Device, name string, host []T) (*ShaderData[T], error) {
	sd := &ShaderData[T]{name: name, host: host}
	var zero T
	size := max(sd.ByteSize(), int(unsafe.Sizeof(zero)))
	dev, err := d.NewStorage(name, size)
	if err != nil {
		return nil, errors.Wrapf(err, "allocate %s", name)
	}
	sd.dev = dev
	if err := sd.Upload(); err != nil {
		dev.Release()
		return nil, err
	}
	return sd, nil
}

func (s *ShaderData[T]) ResourceName() string {
	return s.name
}

func (s *ShaderData[T]) Storage() Storage {
	if s == nil || s.dev == nil {
		return nil
	}
	return s.dev
}

// Host is the CPU copy. It is current after Download or, on devices that
// execute kernels on the host, after every Dispatch.
func (s *ShaderData[T]) Host() []T {
	if s == nil {
		return nil
	}
	return s.host
}

func (s *ShaderData[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.host)
}

func (s *ShaderData[T]) ByteSize() int {
	var zero T
	return len(s.host) * int(unsafe.Sizeof(zero))
}

func (s *ShaderData[T]) Upload() error {
	if len(s.host) == 0 {
		return nil
	}
	return errors.Wrapf(s.dev.Write(unsafe.Pointer(&s.host[0]), s.ByteSize()), "upload %s", s.name)
}

// Download blocks until the device copy is readable.
func (s *ShaderData[T]) Download() error {
	if len(s.host) == 0 {
		return nil
	}
	return errors.Wrapf(s.dev.Read(unsafe.Pointer(&s.host[0]), s.ByteSize()), "download %s", s.name)
}

func (s *ShaderData[T]) Release() {
	if s.dev != nil {
		s.dev.Release()
		s.dev = nil
	}
}

// ShaderImage is a float texture with a host copy in x-fastest order.
type ShaderImage[T any] struct {
	name    string
	format  Format
	w, h, d int
	host    []T
	dev     Image
}

func NewShaderImage[T any](dev Device, name string, format Format, w, h, d int) (*ShaderImage[T], error) {
	img, err := dev.NewImage(name, format, w, h, d)
	if err != nil {
		return nil, errors.Wrapf(err, "allocate %s", name)
	}
	return &ShaderImage[T]{
		name:   name,
		format: format,
		w:      w,
		h:      h,
		d:      d,
		host:   make([]T, w*h*d),
		dev:    img,
	}, nil
}

func (s *ShaderImage[T]) ResourceName() string {
	return s.name
}

func (s *ShaderImage[T]) Image() Image {
	if s == nil || s.dev == nil {
		return nil
	}
	return s.dev
}

func (s *ShaderImage[T]) Format() Format {
	return s.format
}

func (s *ShaderImage[T]) Dims() (int, int, int) {
	return s.w, s.h, s.d
}

func (s *ShaderImage[T]) Host() []T {
	return s.host
}

func (s *ShaderImage[T]) Index(x, y, z int) int {
	return (z*s.h+y)*s.w + x
}

func (s *ShaderImage[T]) At(x, y, z int) T {
	return s.host[s.Index(x, y, z)]
}

func (s *ShaderImage[T]) Set(x, y, z int, v T) {
	s.host[s.Index(x, y, z)] = v
}

func (s *ShaderImage[T]) Upload() error {
	return errors.Wrapf(s.dev.Write(unsafe.Pointer(&s.host[0])), "upload %s", s.name)
}

func (s *ShaderImage[T]) Download() error {
	return errors.Wrapf(s.dev.Read(unsafe.Pointer(&s.host[0])), "download %s", s.name)
}

func (s *ShaderImage[T]) Release() {
	if s.dev != nil {
		s.dev.Release()
		s.dev = nil
	}
}
