// Package config holds the bake and relight settings loaded from TOML.
package config

import (
	"bytes"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

type Bake struct {
	ProbeMapSize    int     `toml:"probe_map_size"`
	SurfelSize      float32 `toml:"surfel_size"`
	SurfelsPerBrick int     `toml:"surfels_per_brick"`
	Near            float32 `toml:"near"`
	Far             float32 `toml:"far"`
	SkyThreshold    float32 `toml:"sky_threshold"`
}

type Probes struct {
	Layout      string     `toml:"layout"` // scene, grid or random
	Spacing     float32    `toml:"spacing"`
	Margin      float32    `toml:"margin"`
	Counts      [3]int     `toml:"counts"`
	Min         [3]float32 `toml:"min"`
	Max         [3]float32 `toml:"max"`
	RandomCount int        `toml:"random_count"`
	RandomScale float32    `toml:"random_scale"`
	RandomSeed  uint32     `toml:"random_seed"`
}

type Relight struct {
	Bounces int     `toml:"bounces"`
	GIBoost float32 `toml:"gi_boost"`
}

type Shadow struct {
	Size int     `toml:"size"`
	Bias float32 `toml:"bias"`
}

type Irradiance struct {
	Resolution [3]int `toml:"resolution"`
}

type Specular struct {
	Size      int          `toml:"size"`
	Levels    int          `toml:"levels"`
	Positions [][3]float32 `toml:"positions"`
}

type Debug struct {
	View    int    `toml:"view"`
	DumpDir string `toml:"dump_dir"`
}

type Config struct {
	Bake       Bake       `toml:"bake"`
	Probes     Probes     `toml:"probes"`
	Relight    Relight    `toml:"relight"`
	Shadow     Shadow     `toml:"shadow"`
	Irradiance Irradiance `toml:"irradiance"`
	Specular   Specular   `toml:"specular"`
	Debug      Debug      `toml:"debug"`
}

const (
	LayoutScene  = "scene"
	LayoutGrid   = "grid"
	LayoutRandom = "random"
)

func Default() *Config {
	return &Config{
		Bake: Bake{
			ProbeMapSize:    16,
			SurfelSize:      0.5,
			SurfelsPerBrick: 4,
			Near:            0.01,
			Far:             100,
			SkyThreshold:    0.5,
		},
		Probes: Probes{
			Layout:      LayoutScene,
			Spacing:     5,
			Margin:      0.5,
			Counts:      [3]int{2, 2, 2},
			Min:         [3]float32{-1, -1, -1},
			Max:         [3]float32{1, 1, 1},
			RandomCount: 64,
			RandomScale: 10,
			RandomSeed:  1,
		},
		Relight: Relight{
			Bounces: 1,
			GIBoost: 1,
		},
		Shadow: Shadow{
			Size: 256,
			Bias: 0.005,
		},
		Irradiance: Irradiance{
			Resolution: [3]int{16, 8, 16},
		},
		Specular: Specular{
			Size:   16,
			Levels: 4,
		},
	}
}

// Load reads path on top of the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	c, err := Parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return c, nil
}

func Parse(b []byte) (*Config, error) {
	c := Default()
	d := toml.NewDecoder(bytes.NewReader(b))
	d.DisallowUnknownFields()
	if err := d.Decode(c); err != nil {
		var sme *toml.StrictMissingError
		if errors.As(err, &sme) {
			return nil, errors.New(sme.String())
		}
		return nil, errors.Wrap(err, "decode")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

func (c *Config) Validate() error {
	switch {
	case c.Bake.ProbeMapSize < 2:
		return errors.Errorf("bake.probe_map_size %d < 2", c.Bake.ProbeMapSize)
	case c.Bake.SurfelSize <= 0:
		return errors.Errorf("bake.surfel_size %v <= 0", c.Bake.SurfelSize)
	case c.Bake.SurfelsPerBrick < 1:
		return errors.Errorf("bake.surfels_per_brick %d < 1", c.Bake.SurfelsPerBrick)
	case c.Bake.Near <= 0 || c.Bake.Far <= c.Bake.Near:
		return errors.Errorf("bake near/far %v/%v invalid", c.Bake.Near, c.Bake.Far)
	case c.Relight.Bounces < 1:
		return errors.Errorf("relight.bounces %d < 1", c.Relight.Bounces)
	case c.Shadow.Size < 1:
		return errors.Errorf("shadow.size %d < 1", c.Shadow.Size)
	case c.Specular.Levels < 1:
		return errors.Errorf("specular.levels %d < 1", c.Specular.Levels)
	}
	switch c.Probes.Layout {
	case LayoutScene:
		if c.Probes.Spacing <= 0 {
			return errors.Errorf("probes.spacing %v <= 0", c.Probes.Spacing)
		}
	case LayoutGrid:
		for i, n := range c.Probes.Counts {
			if n < 2 {
				return errors.Errorf("probes.counts[%d] = %d < 2", i, n)
			}
		}
	case LayoutRandom:
		if c.Probes.RandomCount < 4 {
			return errors.Errorf("probes.random_count %d < 4", c.Probes.RandomCount)
		}
	default:
		return errors.Errorf("unknown probe layout %q", c.Probes.Layout)
	}
	for i, n := range c.Irradiance.Resolution {
		if n < 1 {
			return errors.Errorf("irradiance.resolution[%d] = %d < 1", i, n)
		}
	}
	return nil
}
