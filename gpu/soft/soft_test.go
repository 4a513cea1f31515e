package soft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goradiance/gpu"
)

var doubleKernel = &gpu.Kernel{
	Name:      "double",
	LocalSize: 64,
	Buffers:   []string{"src", "dst"},
	Exec: func(i int, in gpu.Inputs) {
		src := gpu.Buffer[float32](in, "src")
		dst := gpu.Buffer[float32](in, "dst")
		dst[i] = src[i]*2 + in.Float("bias")
	},
}

func TestDispatch(t *testing.T) {
	for _, workers := range []int{1, 4} {
		d := &Device{Workers: workers}
		n := 1000
		src := make([]float32, n)
		for i := range src {
			src[i] = float32(i)
		}
		s, err := gpu.NewShaderData(d, "src", src)
		require.NoError(t, err)
		o, err := gpu.NewShaderData(d, "dst", make([]float32, n))
		require.NoError(t, err)

		err = d.Dispatch(doubleKernel, gpu.Inputs{"src": s, "dst": o, "bias": float32(1)}, n)
		require.NoError(t, err)
		require.NoError(t, o.Download())
		for i, v := range o.Host() {
			if v != float32(i)*2+1 {
				t.Fatalf("workers %d: dst[%d] = %v", workers, i, v)
			}
		}
		assert.Equal(t, 1, d.Dispatches())
	}
}

func TestDispatchMissingBinding(t *testing.T) {
	d := New()
	s, err := gpu.NewShaderData(d, "src", make([]float32, 4))
	require.NoError(t, err)
	err = d.Dispatch(doubleKernel, gpu.Inputs{"src": s}, 4)
	assert.ErrorContains(t, err, `buffer "dst" not bound`)

	var missing *gpu.ShaderData[float32]
	err = d.Dispatch(doubleKernel, gpu.Inputs{"src": s, "dst": missing}, 4)
	assert.Error(t, err)
	assert.Equal(t, 0, d.Dispatches())
}

func TestShaderImage(t *testing.T) {
	d := New()
	img, err := gpu.NewShaderImage[float32](d, "img", gpu.FormatR32F, 4, 3, 2)
	require.NoError(t, err)
	img.Set(3, 2, 1, 5)
	assert.Equal(t, float32(5), img.Host()[len(img.Host())-1])
	assert.Equal(t, float32(5), img.At(3, 2, 1))
	require.NoError(t, img.Upload())

	k := &gpu.Kernel{Name: "img", Images: []string{"img"}, Exec: func(int, gpu.Inputs) {}}
	assert.NoError(t, k.Validate(gpu.Inputs{"img": img}))
	assert.Error(t, k.Validate(gpu.Inputs{}))

	_, err = gpu.NewShaderImage[float32](d, "bad", gpu.FormatR32F, 0, 1, 1)
	assert.Error(t, err)
}

func TestGroups(t *testing.T) {
	assert.Equal(t, 2, doubleKernel.Groups(65))
	assert.Equal(t, 1, doubleKernel.Groups(64))
	assert.Equal(t, 0, doubleKernel.Groups(0))
}
