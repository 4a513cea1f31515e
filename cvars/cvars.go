// SPDX-License-Identifier: GPL-2.0-or-later

package cvars

import (
	"goradiance/conlog"
	"goradiance/cvar"
)

var (
	Developer     *cvar.Cvar
	DebugView     *cvar.Cvar
	LightBounces  *cvar.Cvar
	LightGIBoost  *cvar.Cvar
	ShadowBias    *cvar.Cvar
	PerfReport    *cvar.Cvar
	SpecularRelit *cvar.Cvar
)

// Debug view modes selected by DebugView.
const (
	ViewOff = iota
	ViewProbes
	ViewSurfelBricks
	ViewIrradianceVolume
	ViewEnvironmentMaps
)

func init() {
	Developer = cvar.MustRegister("developer", "0", cvar.NONE)
	Developer.SetCallback(func(cv *cvar.Cvar) {
		conlog.SetDeveloper(cv.Bool())
	})
	DebugView = cvar.MustRegister("debug:view", "0", cvar.NOTIFY)
	LightBounces = cvar.MustRegister("light:bounces", "1", cvar.ARCHIVE)
	LightGIBoost = cvar.MustRegister("light:gi-boost", "1", cvar.ARCHIVE)
	ShadowBias = cvar.MustRegister("r:shadow-bias", "0.005", cvar.ARCHIVE)
	PerfReport = cvar.MustRegister("perf:report", "30", cvar.NONE) // frames between reports, 0 disables
	SpecularRelit = cvar.MustRegister("r:specular", "1", cvar.ARCHIVE)
}
