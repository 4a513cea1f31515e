package commandline

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

const (
	DeviceSoft = "soft"
	DeviceGL   = "gl"
)

var (
	configPath string
	device     = deviceName(DeviceSoft)
	frames     int
	developer  bool
	workers    int

	report = boolInt{false, 30}
	dump   = boolString{false, ""}

	assignments cvarList
)

type boolInt struct {
	set bool
	num int
}

func (b *boolInt) IsBoolFlag() bool {
	// We can not support both "-flag" and "-flag 10"
	// This allows "-flag", and "-flag=10"
	// and also "-flag=true" and "-flag=false"
	// but not "-flag 10"
	return true
}

func (b *boolInt) Set(s string) error {
	v, err := strconv.ParseInt(s, 0, strconv.IntSize)
	if err != nil {
		v, err := strconv.ParseBool(s)
		b.set = v
		return err
	}
	b.set = true
	b.num = int(v)
	return nil
}

func (b *boolInt) String() string {
	return fmt.Sprintf("Set: %v, Num: %v", b.set, b.num)
}

// boolString is like boolInt with a directory instead of a number.
// "-flag=false" unsets it, any other value is kept as the string.
type boolString struct {
	set bool
	str string
}

func (b *boolString) IsBoolFlag() bool {
	return true
}

func (b *boolString) Set(s string) error {
	if v, err := strconv.ParseBool(s); err == nil {
		b.set = v
		return nil
	}
	b.set = true
	b.str = s
	return nil
}

func (b *boolString) String() string {
	return fmt.Sprintf("Set: %v, Str: %q", b.set, b.str)
}

type deviceName string

func (d *deviceName) Set(s string) error {
	switch s {
	case DeviceSoft, DeviceGL:
		*d = deviceName(s)
		return nil
	}
	return fmt.Errorf("unknown device %q, want %s or %s", s, DeviceSoft, DeviceGL)
}

func (d *deviceName) String() string {
	return string(*d)
}

// cvarList collects repeated "-cvar name=value" flags in order.
type cvarList []string

func (c *cvarList) Set(s string) error {
	if !strings.Contains(s, "=") {
		return fmt.Errorf("cvar %q: want name=value", s)
	}
	*c = append(*c, s)
	return nil
}

func (c *cvarList) String() string {
	return strings.Join(*c, ",")
}

func init() {
	register(flag.CommandLine)
}

func register(fs *flag.FlagSet) {
	fs.StringVar(&configPath, "config", "", "TOML settings file, defaults are used if empty")
	fs.Var(&device, "device", "gpu device: soft or gl")
	fs.IntVar(&frames, "frames", 60, "relight frames to run")
	fs.BoolVar(&developer, "developer", false, "enable developer logging")
	fs.IntVar(&workers, "workers", 0, "cpu workers of the soft device, 0 uses all cores")

	fs.Var(&report, "report", "print perf averages, optional number of frames between reports")
	fs.Var(&dump, "dump", "dump debug views as PNG, optional directory")
	fs.Var(&assignments, "cvar", "set a cvar, name=value, may be repeated")
}

func Config() string {
	return configPath
}

func Device() string {
	return string(device)
}

func Frames() int {
	return frames
}

func Developer() bool {
	return developer
}

func Workers() int {
	return workers
}

func Report() bool {
	return report.set
}

func ReportInterval() int {
	return report.num
}

func Dump() bool {
	return dump.set
}

// DumpDir is empty when -dump was given without a directory.
func DumpDir() string {
	return dump.str
}

func CvarAssignments() []string {
	return assignments
}
