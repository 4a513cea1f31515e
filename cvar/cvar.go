// SPDX-License-Identifier: GPL-2.0-or-later

package cvar

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"goradiance/conlog"
)

var (
	cvarArray  []*Cvar
	cvarByName = make(map[string]*Cvar)
)

type flag uint64

const (
	// cvar flags bitfield
	NONE    flag = 0
	ARCHIVE flag = 1
	NOTIFY  flag = 1 << 1
	ROM     flag = 1 << 6
)

type CallbackFunc func(cv *Cvar)

type Cvar struct {
	archive  bool
	notify   bool
	rom      bool
	callback CallbackFunc
	name     string
	// stringValue is the truth, value the derived one
	stringValue  string
	value        float32
	defaultValue string
}

func All() []*Cvar {
	return cvarArray
}

func (cv *Cvar) Archive() bool {
	return cv.archive
}

func (cv *Cvar) Notify() bool {
	return cv.notify
}

func (cv *Cvar) SetCallback(cb CallbackFunc) {
	cv.callback = cb
}

func (cv *Cvar) SetByString(s string) {
	if cv.rom {
		return
	}
	cv.stringValue = s
	pf, _ := strconv.ParseFloat(cv.stringValue, 32)
	cv.value = float32(pf)
	if cv.notify {
		conlog.Printf("\"%s\" changed to \"%s\"\n", cv.name, s)
	}
	if cv.callback != nil {
		cv.callback(cv)
	}
}

func (cv *Cvar) Reset() {
	cv.SetByString(cv.defaultValue)
}

func (cv *Cvar) String() string {
	return cv.stringValue
}

func (cv *Cvar) Name() string {
	return cv.name
}

func (cv *Cvar) Value() float32 {
	return cv.value
}

// Int truncates the value.
func (cv *Cvar) Int() int {
	return int(cv.value)
}

func (cv *Cvar) SetValue(value float32) {
	if float32(int(value)) == value {
		v := strconv.FormatInt(int64(value), 10)
		cv.SetByString(v)
	} else {
		v := strconv.FormatFloat(float64(value), 'f', -1, 32)
		cv.SetByString(v)
	}
}

func (cv *Cvar) Toggle() {
	if cv.String() == "1" {
		cv.SetByString("0")
	} else {
		cv.SetByString("1")
	}
}

func (cv *Cvar) Bool() bool {
	return cv.stringValue != "0"
}

func Get(name string) (*Cvar, bool) {
	cv, ok := cvarByName[name]
	return cv, ok
}

func create(name, value string) *Cvar {
	cv := &Cvar{name: name, defaultValue: value}
	cv.SetByString(value)
	cvarArray = append(cvarArray, cv)
	cvarByName[name] = cv
	return cv
}

func Register(name, value string, flags flag) (*Cvar, error) {
	if _, ok := cvarByName[name]; ok {
		return nil, fmt.Errorf("Can't register variable %s, already defined", name)
	}

	cv := create(name, value)

	if flags&ARCHIVE != 0 {
		cv.archive = true
	}
	if flags&NOTIFY != 0 {
		cv.notify = true
	}
	if flags&ROM != 0 {
		cv.rom = true
	}

	return cv, nil
}

func MustRegister(n, v string, flag flag) *Cvar {
	cv, err := Register(n, v, flag)
	if err != nil {
		log.Panic(n)
	}
	return cv
}

// Execute handles "name" (print) and "name value" (set) as well as the
// set, toggle, inc, reset, resetall and cvarlist commands.
func Execute(args []string) (bool, error) {
	if len(args) == 0 {
		return false, nil
	}
	switch args[0] {
	case "set":
		return true, set(args[1:])
	case "toggle":
		return true, toggle(args[1:])
	case "inc":
		return true, inc(args[1:])
	case "reset":
		return true, reset(args[1:])
	case "resetall":
		for _, cv := range All() {
			cv.Reset()
		}
		return true, nil
	case "cvarlist":
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}
		list(prefix)
		return true, nil
	}
	cv, ok := Get(args[0])
	if !ok {
		return false, nil
	}
	if len(args) == 1 {
		conlog.Printf("\"%s\" is \"%s\"\n", cv.Name(), cv.String())
		return true, nil
	}
	cv.SetByString(args[1])
	return true, nil
}

// ExecuteAssignment parses "name=value".
func ExecuteAssignment(s string) error {
	n, v, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	if _, ok := Get(n); !ok {
		return fmt.Errorf("unknown variable %q", n)
	}
	_, err := Execute([]string{n, v})
	return err
}

func set(args []string) error {
	if len(args) < 2 {
		conlog.Printf("set <cvar> <value>\n")
		return nil
	}
	if cv, ok := cvarByName[args[0]]; ok {
		cv.SetByString(args[1])
	} else {
		create(args[0], args[1])
	}
	return nil
}

func toggle(args []string) error {
	if len(args) != 1 {
		conlog.Printf("toggle <cvar> : toggle cvar\n")
		return nil
	}
	cv, ok := Get(args[0])
	if !ok {
		return fmt.Errorf("toggle: variable %v not found", args[0])
	}
	cv.Toggle()
	return nil
}

func inc(args []string) error {
	var amount float32 = 1
	switch len(args) {
	case 1:
	case 2:
		v, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			return fmt.Errorf("inc: bad amount %q", args[1])
		}
		amount = float32(v)
	default:
		conlog.Printf("inc <cvar> [amount] : increment cvar\n")
		return nil
	}
	cv, ok := Get(args[0])
	if !ok {
		return fmt.Errorf("inc: variable %v not found", args[0])
	}
	cv.SetValue(cv.Value() + amount)
	return nil
}

func reset(args []string) error {
	if len(args) != 1 {
		conlog.Printf("reset <cvar> : reset cvar to default\n")
		return nil
	}
	cv, ok := Get(args[0])
	if !ok {
		return fmt.Errorf("reset: variable %v not found", args[0])
	}
	cv.Reset()
	return nil
}

func list(prefix string) {
	var names []string
	for _, v := range All() {
		if strings.HasPrefix(v.Name(), prefix) {
			names = append(names, v.Name())
		}
	}
	sort.Strings(names)
	for _, n := range names {
		v := cvarByName[n]
		a := " "
		if v.Archive() {
			a = "*"
		}
		conlog.SafePrintf("%s %s \"%s\"\n", a, v.Name(), v.String())
	}
	conlog.SafePrintf("%v cvars\n", len(names))
}
