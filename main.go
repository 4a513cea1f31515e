package main

import (
	"flag"
	"log"
	"os"

	"github.com/gopxl/mainthread/v2"
	"github.com/pkg/errors"

	"goradiance/commandline"
	"goradiance/config"
	"goradiance/conlog"
	"goradiance/cvar"
	"goradiance/cvars"
	"goradiance/debugview"
	"goradiance/gpu"
	"goradiance/gpu/gldev"
	"goradiance/gpu/soft"
	"goradiance/irradiance"
	"goradiance/lightsector"
	"goradiance/math/vec"
	"goradiance/perf"
	"goradiance/scene"
	"goradiance/shadow"
	"goradiance/specular"
	"goradiance/window"
)

func main() {
	flag.Parse()
	var err error
	mainthread.Run(func() {
		err = run()
	})
	if err != nil {
		log.Printf("goradiance: %v", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if p := commandline.Config(); p != "" {
		return config.Load(p)
	}
	return config.Default(), nil
}

// seedCvars copies the config into the runtime variables. Command line
// assignments are applied last and win.
func seedCvars(c *config.Config) error {
	cvars.LightBounces.SetValue(float32(c.Relight.Bounces))
	cvars.LightGIBoost.SetValue(c.Relight.GIBoost)
	cvars.ShadowBias.SetValue(c.Shadow.Bias)
	cvars.DebugView.SetValue(float32(c.Debug.View))
	if commandline.Developer() {
		cvars.Developer.SetValue(1)
	}
	if commandline.Report() {
		cvars.PerfReport.SetValue(float32(commandline.ReportInterval()))
	}
	for _, a := range commandline.CvarAssignments() {
		if err := cvar.ExecuteAssignment(a); err != nil {
			return errors.Wrapf(err, "-cvar %s", a)
		}
	}
	return nil
}

func newDevice() (gpu.Device, error) {
	if commandline.Device() != commandline.DeviceGL {
		d := soft.New()
		if w := commandline.Workers(); w > 0 {
			d.Workers = w
		}
		return d, nil
	}
	var err error
	mainthread.Call(func() {
		err = window.InitHidden(64, 64)
	})
	if err != nil {
		return nil, err
	}
	return gldev.New(), nil
}

func demoScene() *scene.Scene {
	grey := vec.Vec3{X: 0.7, Y: 0.7, Z: 0.7}
	return &scene.Scene{
		View: scene.Camera{Pos: vec.Vec3{Y: 2, Z: 7}},
		Models: []*scene.Model{
			scene.NewQuad("floor", vec.Vec3{X: -8, Z: 8}, vec.Vec3{X: 16}, vec.Vec3{Z: -16}, grey),
			scene.NewQuad("back", vec.Vec3{X: -8, Z: -8}, vec.Vec3{X: 16}, vec.Vec3{Y: 6}, vec.Vec3{X: 0.8, Y: 0.3, Z: 0.2}),
			scene.NewQuad("left", vec.Vec3{X: -8, Z: 8}, vec.Vec3{Z: -16}, vec.Vec3{Y: 6}, vec.Vec3{X: 0.2, Y: 0.6, Z: 0.3}),
			scene.NewCube("box", vec.Vec3{X: 1, Y: 1, Z: -1}, vec.Vec3{X: 2, Y: 2, Z: 2}, vec.Vec3{X: 0.9, Y: 0.9, Z: 0.8}),
		},
		Lights: []*scene.Light{
			scene.NewSun(vec.Vec3{X: 0.4, Y: -1, Z: -0.3}, vec.Vec3{X: 1, Y: 0.95, Z: 0.85}, 3),
			scene.NewPointLight(vec.Vec3{X: -4, Y: 3, Z: -4}, vec.Vec3{X: 1, Y: 0.6, Z: 0.3}, 20, 10),
		},
		SkyBox:       scene.SkyFromSun(vec.Vec3{X: 0.4, Y: -1, Z: -0.3}, vec.Vec3{X: 0.5, Y: 0.7, Z: 1}),
		SkyLuminance: 1,
	}
}

func specularPositions(c *config.Config, s *scene.Scene) []vec.Vec3 {
	if len(c.Specular.Positions) > 0 {
		p := make([]vec.Vec3, len(c.Specular.Positions))
		for i, a := range c.Specular.Positions {
			p[i] = vec.VFromA(a)
		}
		return p
	}
	lo, hi, _ := s.Bounds()
	return []vec.Vec3{vec.Lerp(lo, hi, 0.5)}
}

func run() error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	if err := seedCvars(c); err != nil {
		return err
	}
	dev, err := newDevice()
	if err != nil {
		return err
	}
	if commandline.Device() == commandline.DeviceGL {
		defer mainthread.Call(window.Shutdown)
	}
	conlog.Printf("device %s\n", dev.Name())

	s := demoScene()
	ls := lightsector.New(dev, lightsector.SettingsFromConfig(c))
	defer ls.Release()
	probes, err := lightsector.PlaceProbes(s, c.Probes)
	if err != nil {
		return err
	}
	ls.SetProbes(probes)
	if err := ls.BakeRadianceTransfer(s); err != nil {
		return errors.Wrap(err, "bake")
	}
	st := ls.Stats()
	conlog.Printf("baked %d probes, %d cells, %d surfels, %d bricks in %.1fms\n",
		st.Probes, st.Cells, st.Surfels, st.Bricks, st.Duration)

	lo, hi, _ := s.Bounds()
	var sm *shadow.Map
	if sun, ok := s.Sun(); ok {
		sm = shadow.Build(scene.NewTracer(s.Models), sun.Direction, lo, hi, c.Shadow.Size, cvars.ShadowBias.Value())
	}

	vol, err := irradiance.New(dev, c.Irradiance.Resolution)
	if err != nil {
		return err
	}
	defer vol.Release()

	refl := specular.New(dev, specular.Settings{
		Size:   c.Specular.Size,
		Levels: c.Specular.Levels,
		Near:   c.Bake.Near,
		Far:    c.Bake.Far,
	})
	if err := refl.Bake(s, specularPositions(c, s)); err != nil {
		return err
	}

	avg := perf.NewAverages()
	for i := 0; i < commandline.Frames(); i++ {
		f := perf.StartFrame("frame")
		f.Push("relight")
		ok := ls.Relight(s, sm)
		f.Pop()
		if ok {
			f.Push("irradiance")
			if err := vol.Update(ls); err != nil {
				conlog.Printf("irradiance volume: %v\n", err)
			}
			f.Pop()
		}
		if cvars.SpecularRelit.Bool() {
			f.Push("specular")
			if err := refl.Relight(s, sm, vol); err != nil {
				conlog.Printf("specular: %v\n", err)
			}
			f.Pop()
		}
		avg.Update(f.End())
		if n := cvars.PerfReport.Int(); n > 0 && avg.Frames()%n == 0 {
			conlog.Printf("%s", avg.Report())
		}
	}
	if err := ls.Sync(); err != nil {
		return err
	}
	if err := vol.Sync(); err != nil {
		return err
	}

	mode := cvars.DebugView.Int()
	if !commandline.Dump() && mode == cvars.ViewOff {
		return nil
	}
	dir := commandline.DumpDir()
	if dir == "" {
		dir = c.Debug.DumpDir
	}
	if dir == "" {
		dir = "."
	}
	src := debugview.Sources{Sector: ls, Volume: vol}
	modes := []int{mode}
	if commandline.Dump() {
		modes = []int{cvars.ViewProbes, cvars.ViewSurfelBricks, cvars.ViewIrradianceVolume, cvars.ViewEnvironmentMaps}
	}
	for _, m := range modes {
		p, err := debugview.Dump(dir, m, src)
		if err != nil {
			return err
		}
		conlog.Printf("wrote %s\n", p)
	}
	return nil
}
