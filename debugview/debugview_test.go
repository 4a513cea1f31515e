package debugview

import (
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goradiance/cvars"
	"goradiance/gpu/soft"
	"goradiance/irradiance"
	"goradiance/lightsector"
	"goradiance/math/vec"
	"goradiance/scene"
)

func sources(t *testing.T) Sources {
	t.Helper()
	white := vec.Vec3{X: 1, Y: 1, Z: 1}
	s := &scene.Scene{
		Models: []*scene.Model{
			scene.NewCube("cube", vec.Vec3{}, white, vec.Vec3{X: 0.8, Y: 0.2, Z: 0.2}),
			scene.NewQuad("floor", vec.Vec3{X: -3, Y: -0.5, Z: 3}, vec.Vec3{X: 6}, vec.Vec3{Z: -6}, white),
		},
		Lights:       []*scene.Light{scene.NewSun(vec.Vec3{X: 0.3, Y: -1, Z: 0.2}, white, 3)},
		SkyBox:       scene.SkyFromSun(vec.Vec3{Y: -1}, white),
		SkyLuminance: 1,
	}
	dev := soft.New()
	st := lightsector.DefaultSettings()
	st.ProbeMapSize = 8
	st.SurfelSize = 0.5
	ls := lightsector.New(dev, st)
	ls.SetProbes(lightsector.GridProbes(vec.Vec3{X: -2, Y: 0, Z: -2}, vec.Vec3{X: 2, Y: 2, Z: 2}, [3]int{2, 2, 2}))
	require.NoError(t, ls.BakeRadianceTransfer(s))
	require.True(t, ls.Relight(s, nil))
	vol, err := irradiance.New(dev, [3]int{4, 2, 3})
	require.NoError(t, err)
	require.NoError(t, vol.Update(ls))
	return Sources{Sector: ls, Volume: vol}
}

func TestRender(t *testing.T) {
	src := sources(t)
	tests := []struct {
		mode int
		w, h int
	}{
		{cvars.ViewProbes, 6 * swatch, 8 * swatch},
		{cvars.ViewSurfelBricks, splatSize, splatSize},
		{cvars.ViewIrradianceVolume, 8, 3},
		{cvars.ViewEnvironmentMaps, 6 * 8, 8 * 8},
	}
	for _, tc := range tests {
		t.Run(Name(tc.mode), func(t *testing.T) {
			img, err := Render(tc.mode, src)
			require.NoError(t, err)
			assert.Equal(t, tc.w, img.Bounds().Dx())
			assert.Equal(t, tc.h, img.Bounds().Dy())
		})
	}

	_, err := Render(cvars.ViewOff, src)
	assert.Error(t, err)
	_, err = Render(cvars.ViewIrradianceVolume, Sources{Sector: src.Sector})
	assert.ErrorIs(t, err, errNoSource)
	_, err = Render(cvars.ViewProbes, Sources{})
	assert.ErrorIs(t, err, errNoSource)
}

func TestProbeSwatches(t *testing.T) {
	probes := make([]lightsector.Probe, 2)
	probes[1].Irradiance.Set(vec.NegativeY, vec.Vec3{X: 100})
	img := probeSwatches(probes)
	assert.Equal(t, uint8(0), img.RGBAAt(0, 0).R)
	c := img.RGBAAt(int(vec.NegativeY)*swatch+3, swatch+3)
	assert.Greater(t, c.R, uint8(250))
	assert.Equal(t, uint8(0), c.G)
	assert.Equal(t, uint8(255), c.A)
}

func TestDump(t *testing.T) {
	src := sources(t)
	dir := t.TempDir()
	path, err := Dump(dir, cvars.ViewProbes, src)
	require.NoError(t, err)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	// 64 rows scale by 8
	assert.Equal(t, 6*swatch*8, img.Bounds().Dx())
	assert.Equal(t, 512, img.Bounds().Dy())

	_, err = Dump(dir, 42, src)
	assert.Error(t, err)
}
