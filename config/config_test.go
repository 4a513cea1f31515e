package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParseOverrides(t *testing.T) {
	c, err := Parse([]byte(`
[bake]
surfel_size = 0.25

[probes]
layout = "grid"
counts = [3, 2, 4]

[specular]
positions = [[0, 1, 0], [4, 1, 0]]
`))
	require.NoError(t, err)
	assert.Equal(t, float32(0.25), c.Bake.SurfelSize)
	assert.Equal(t, 16, c.Bake.ProbeMapSize)
	assert.Equal(t, LayoutGrid, c.Probes.Layout)
	assert.Equal(t, [3]int{3, 2, 4}, c.Probes.Counts)
	assert.Len(t, c.Specular.Positions, 2)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"unknown key", "[bake]\nbogus = 1\n"},
		{"bad layout", "[probes]\nlayout = \"spiral\"\n"},
		{"grid too small", "[probes]\nlayout = \"grid\"\ncounts = [1, 2, 2]\n"},
		{"zero bounces", "[relight]\nbounces = 0\n"},
		{"syntax", "[bake\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.in))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bake.toml")
	b, err := Default().Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p, b, 0o644))
	c, err := Load(p)
	require.NoError(t, err)
	d := Default()
	assert.Equal(t, d.Bake, c.Bake)
	assert.Equal(t, d.Probes, c.Probes)
	assert.Equal(t, d.Relight, c.Relight)
	assert.Empty(t, c.Specular.Positions)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
