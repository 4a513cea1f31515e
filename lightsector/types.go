package lightsector

import (
	"github.com/pkg/errors"

	"goradiance/math/sh"
	"goradiance/math/vec"
)

// InvalidID marks a missing probe, cell or brick reference.
const InvalidID = -1

// Faces of a ProbeSearchCell. Face i is opposite vertex i.
const (
	Face123 = iota
	Face023
	Face013
	Face012
)

var (
	ErrTooFewProbes   = errors.New("at least 4 probes are required")
	ErrNoModels       = errors.New("scene has no models")
	ErrDuplicateProbe = errors.New("duplicate probe position")
	ErrDegenerateCell = errors.New("degenerate probe cell")
	ErrDisconnected   = errors.New("probe network is not connected")
	ErrNotBaked       = errors.New("light sector is not baked")
)

// AmbientCube stores one irradiance value per vec.AxisNormal. W is padding.
type AmbientCube [vec.AxisCount]vec.Vec4

func (c *AmbientCube) Face(a vec.AxisNormal) vec.Vec3 {
	return c[a].Vec3()
}

func (c *AmbientCube) Set(a vec.AxisNormal, v vec.Vec3) {
	c[a] = v.Vec4(0)
}

// Sample blends the three faces n points towards by the squared normal
// components.
func (c *AmbientCube) Sample(n vec.Vec3) vec.Vec3 {
	pick := func(v float32, pos, neg vec.AxisNormal) vec.Vec3 {
		if v < 0 {
			return c.Face(neg).Scale(v * v)
		}
		return c.Face(pos).Scale(v * v)
	}
	return vec.Add(pick(n.X, vec.PositiveX, vec.NegativeX),
		vec.Add(pick(n.Y, vec.PositiveY, vec.NegativeY), pick(n.Z, vec.PositiveZ, vec.NegativeZ)))
}

// The following types are uploaded verbatim to std430 storage buffers and
// carry explicit padding to match the GLSL declarations in shaders.go.

type Probe struct {
	ID                    int32
	_                     [3]int32
	Pos                   vec.Vec3
	_                     float32
	Irradiance            AmbientCube
	SkyVisibility         sh.Coeffs3
	BrickFactorRangeStart int32
	BrickFactorCount      int32
	_                     int32
}

type ProbeSearchCell struct {
	ProbeVertices [4]int32
	Neighbours    [4]int32
	// Converter is a column major mat3 (std430 pads columns to vec4) that
	// maps p - pos(ProbeVertices[0]) to barycentric coordinates 1..3.
	Converter [3]vec.Vec4
}

type Surfel struct {
	NearestProbeID int32
	_              [3]int32
	Pos            vec.Vec3
	_              float32
	Normal         vec.Vec3
	_              float32
	Albedo         vec.Vec3
	_              float32
	Radiance       vec.Vec3
	_              float32
}

type SurfelBrick struct {
	SurfelRangeStart int32
	SurfelCount      int32
	_                [2]int32
	Radiance         vec.Vec3
	_                float32
}

type SurfelBrickFactor struct {
	BrickID      int32
	BrickWeights [vec.AxisCount]float32
}

// ProbeWeight is one corner of a point location result.
type ProbeWeight struct {
	ID     int32
	Weight float32
}

type ProbeSearchWeights [4]ProbeWeight

// Irradiance blends the ambient cubes of the weighted probes.
func (w ProbeSearchWeights) Irradiance(probes []Probe, n vec.Vec3) vec.Vec3 {
	var r vec.Vec3
	for _, pw := range w {
		if pw.ID == InvalidID || pw.Weight == 0 {
			continue
		}
		r = vec.Add(r, probes[pw.ID].Irradiance.Sample(n).Scale(pw.Weight))
	}
	return r
}
