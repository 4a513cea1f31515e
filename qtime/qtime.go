// SPDX-License-Identifier: GPL-2.0-or-later

package qtime

import (
	"time"
)

var (
	startTime = time.Now()
)

func QTime() time.Duration {
	return time.Now().Sub(startTime)
}

// Timer measures one stage.
type Timer struct {
	start time.Duration
}

func StartTimer() Timer {
	return Timer{start: QTime()}
}

func (t Timer) Elapsed() time.Duration {
	return QTime() - t.start
}

// Ms returns the elapsed time in milliseconds.
func (t Timer) Ms() float32 {
	return float32(t.Elapsed().Microseconds()) / 1000
}
