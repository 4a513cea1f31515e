// Package soft is a Device that runs kernel bodies on the CPU. Device
// memory is the host copy, so uploads and downloads are no-ops.
package soft

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/pkg/errors"

	"goradiance/envmap"
	"goradiance/gpu"
)

type Device struct {
	envmap.SoftRenderer
	// Workers > 1 splits a dispatch into contiguous chunks. Every
	// invocation writes only its own outputs, so results do not depend on
	// the split.
	Workers int

	mu         sync.Mutex
	dispatches int
}

func New() *Device {
	return &Device{Workers: runtime.NumCPU()}
}

func (d *Device) Name() string {
	return "soft"
}

// Dispatches counts successful dispatches.
func (d *Device) Dispatches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dispatches
}

type storage struct {
	size int
}

func (s *storage) Write(_ unsafe.Pointer, size int) error {
	if size > s.size {
		return errors.Errorf("write of %d bytes into %d byte buffer", size, s.size)
	}
	return nil
}

func (s *storage) Read(_ unsafe.Pointer, size int) error {
	if size > s.size {
		return errors.Errorf("read of %d bytes from %d byte buffer", size, s.size)
	}
	return nil
}

func (s *storage) Release() {}

func (d *Device) NewStorage(name string, size int) (gpu.Storage, error) {
	if size < 0 {
		return nil, errors.Errorf("%s: negative size %d", name, size)
	}
	return &storage{size: size}, nil
}

type image struct{}

func (image) Write(unsafe.Pointer) error { return nil }
func (image) Read(unsafe.Pointer) error  { return nil }
func (image) Release()                   {}

func (d *Device) NewImage(name string, _ gpu.Format, w, h, depth int) (gpu.Image, error) {
	if w < 1 || h < 1 || depth < 1 {
		return nil, errors.Errorf("%s: bad image size %dx%dx%d", name, w, h, depth)
	}
	return image{}, nil
}

func (d *Device) Dispatch(k *gpu.Kernel, in gpu.Inputs, n int) error {
	if k.Exec == nil {
		return errors.Errorf("kernel %s has no host body", k.Name)
	}
	if err := k.Validate(in); err != nil {
		return err
	}
	workers := d.Workers
	if workers <= 1 || n < 2*workers {
		for i := 0; i < n; i++ {
			k.Exec(i, in)
		}
	} else {
		chunk := (n + workers - 1) / workers
		var wg sync.WaitGroup
		for start := 0; start < n; start += chunk {
			end := min(start+chunk, n)
			wg.Add(1)
			go func(start, end int) {
				defer wg.Done()
				for i := start; i < end; i++ {
					k.Exec(i, in)
				}
			}(start, end)
		}
		wg.Wait()
	}
	d.mu.Lock()
	d.dispatches++
	d.mu.Unlock()
	return nil
}
