/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New"" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	Modifications (c) 2016 AvSquirrel (https://github.com/AvSquirrel)
	clock.go: Monotonic clock for sample timestamps - wall time jumps when the RPi syncs its RTC.
*/

package sampler

import (
	"time"

	"golang.org/x/sys/unix"
)

// Clock is a monotonic time source. Now is an offset from an arbitrary, fixed epoch.
type Clock interface {
	Now() time.Duration
	Sleep(d time.Duration)
}

// Monotonic reads CLOCK_MONOTONIC, so timestamps share their epoch (boot) with every
// other process on the host.
type Monotonic struct{}

var (
	processStart = time.Now()
	monoStart    = clockMonotonic()
)

func clockMonotonic() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return time.Duration(ts.Nano())
}

// sinceStart counts from the CLOCK_MONOTONIC reading taken at process start using Go's own
// monotonic clock.
func sinceStart() time.Duration {
	return monoStart + time.Since(processStart)
}

func (Monotonic) Now() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return sinceStart()
	}
	return time.Duration(ts.Nano())
}

func (Monotonic) Sleep(d time.Duration) {
	time.Sleep(d)
}
