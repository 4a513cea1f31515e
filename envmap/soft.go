package envmap

import (
	"runtime"
	"sync"

	"goradiance/math/vec"
	"goradiance/scene"
)

// SoftRenderer ray casts the G-buffer on the CPU. Probes are spread over
// Workers goroutines; every probe writes only its own atlas row.
type SoftRenderer struct {
	Workers int
}

func (r *SoftRenderer) RenderEnvironmentMaps(s *scene.Scene, origins []vec.Vec3, size int, near, far float32) (*Atlas, error) {
	a := NewAtlas(origins, size, near, far)
	tr := scene.NewTracer(s.Models)
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				renderProbe(a, tr, p)
			}
		}()
	}
	for p := range origins {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
	return a, nil
}

func renderProbe(a *Atlas, tr *scene.Tracer, p int) {
	o := a.Origins[p]
	for f := vec.AxisNormal(0); f < FaceCount; f++ {
		fwd := faces[f].Forward
		for y := 0; y < a.Size; y++ {
			for x := 0; x < a.Size; x++ {
				u, v := TexelUV(x, y, a.Size)
				d := Direction(f, u, v)
				// the far plane bounds the forward distance, not the ray length
				cosF := vec.Dot(d, fwd)
				h, ok := tr.Intersect(o, d, a.Far/cosF)
				if !ok || h.T*cosF < a.Near {
					continue
				}
				*a.At(p, f, x, y) = Texel{
					Albedo:        h.Albedo,
					SkyVisibility: 0,
					Normal:        h.Normal,
					Depth:         Depth(a.Near, a.Far, h.T*cosF),
				}
			}
		}
	}
}
