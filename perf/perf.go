// Package perf collects per frame timing markers and keeps running averages.
package perf

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"goradiance/qtime"
)

const (
	AverageFrames = 50
	FrameWeight   = 1.0 / AverageFrames
)

type Marker struct {
	Name     string
	Duration time.Duration
	Children []*Marker

	timer  qtime.Timer
	parent *Marker
}

// Frame records a tree of nested markers.
type Frame struct {
	root   *Marker
	active *Marker
}

func StartFrame(name string) *Frame {
	r := &Marker{Name: name, timer: qtime.StartTimer()}
	return &Frame{root: r, active: r}
}

func (f *Frame) Push(name string) {
	m := &Marker{Name: name, timer: qtime.StartTimer(), parent: f.active}
	f.active.Children = append(f.active.Children, m)
	f.active = m
}

func (f *Frame) Pop() {
	if f.active.parent == nil {
		return
	}
	f.active.Duration = f.active.timer.Elapsed()
	f.active = f.active.parent
}

// Time runs fn inside a marker.
func (f *Frame) Time(name string, fn func()) {
	f.Push(name)
	defer f.Pop()
	fn()
}

// End closes all open markers and returns the root.
func (f *Frame) End() *Marker {
	for f.active.parent != nil {
		f.Pop()
	}
	f.root.Duration = f.root.timer.Elapsed()
	return f.root
}

type Averages struct {
	avg    map[string]float64 // milliseconds by marker path
	max    float64
	maxAge int
	frames int
}

func NewAverages() *Averages {
	return &Averages{avg: make(map[string]float64)}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// Update folds one finished frame into the averages.
func (a *Averages) Update(root *Marker) {
	var walk func(prefix string, m *Marker)
	walk = func(prefix string, m *Marker) {
		p := m.Name
		if prefix != "" {
			p = prefix + "/" + m.Name
		}
		a.avg[p] = a.avg[p]*(1-FrameWeight) + ms(m.Duration)*FrameWeight
		for _, c := range m.Children {
			walk(p, c)
		}
	}
	walk("", root)

	if a.maxAge >= AverageFrames {
		a.maxAge = 0
		a.max = 0
	}
	if d := ms(root.Duration); d > a.max {
		a.max = d
		a.maxAge = 0
	} else {
		a.maxAge++
	}
	a.frames++
}

func (a *Averages) Average(path string) (float64, bool) {
	v, ok := a.avg[path]
	return v, ok
}

// Max is the longest root duration of the recent frames in milliseconds.
func (a *Averages) Max() float64 {
	return a.max
}

func (a *Averages) Frames() int {
	return a.frames
}

func (a *Averages) Report() string {
	paths := make([]string, 0, len(a.avg))
	for p := range a.avg {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var b strings.Builder
	fmt.Fprintf(&b, "Performance timing (sample of %d frames), max %.2fms:\n", AverageFrames, a.max)
	for _, p := range paths {
		depth := strings.Count(p, "/")
		name := p[strings.LastIndex(p, "/")+1:]
		fmt.Fprintf(&b, "%s%s avg:%.3fms\n", strings.Repeat("  ", depth), name, a.avg[p])
	}
	return b.String()
}
