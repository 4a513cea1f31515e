// Package conlog routes console messages. Without an installed console the
// messages go to the standard logger.
package conlog

import (
	"log"
	"sync/atomic"
)

var (
	p         = log.Printf
	developer atomic.Bool
)

func SetPrintf(f func(string, ...interface{})) {
	p = f
}

// SetDeveloper enables DPrintf output.
func SetDeveloper(on bool) {
	developer.Store(on)
}

func Developer() bool {
	return developer.Load()
}

func Printf(format string, v ...interface{}) {
	p(format, v...)
}

// DPrintf prints only in developer mode.
func DPrintf(format string, v ...interface{}) {
	if !developer.Load() {
		return
	}
	p(format, v...)
}

// SafePrintf prints listings regardless of developer mode.
func SafePrintf(format string, v ...interface{}) {
	p(format, v...)
}
