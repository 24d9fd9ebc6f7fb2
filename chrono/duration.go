// Package chrono provides the time model for the metrics core: unit-tagged
// durations, clock-tagged time points, and the cheap monotonic clock that
// stamps measurement events.
//
// Two clocks exist. The INTERNAL clock reads a raw monotonic counter and is
// what every hot-path emit uses; its durations carry the CYCLE unit. The
// SYSTEM clock is the wall clock. Converting internal readings to system
// time goes through a process-wide offset that is recalibrated lazily (see
// timepoint.go).
package chrono

import (
	"fmt"
	"time"
)

// TimeUnit is the unit a Duration's count is expressed in.
type TimeUnit int

const (
	// Cycle is a tick of the internal monotonic counter. Tick length is
	// established by Calibrate; until then one tick is assumed to be 1ns.
	Cycle TimeUnit = iota
	Nsec
	Usec
	Msec
	Sec
)

func (u TimeUnit) String() string {
	switch u {
	case Cycle:
		return "cycle"
	case Nsec:
		return "ns"
	case Usec:
		return "us"
	case Msec:
		return "ms"
	case Sec:
		return "s"
	}
	return fmt.Sprintf("TimeUnit(%d)", int(u))
}

// nanosPer maps wall units to their length in nanoseconds.
var nanosPer = map[TimeUnit]int64{
	Nsec: 1,
	Usec: 1e3,
	Msec: 1e6,
	Sec:  1e9,
}

// Duration is an integer count paired with a unit. Arithmetic preserves the
// left operand's unit; the right operand is converted first.
type Duration struct {
	count int64
	unit  TimeUnit
}

// NewDuration returns a duration of count units.
func NewDuration(count int64, unit TimeUnit) Duration {
	return Duration{count: count, unit: unit}
}

// DurationFrom converts a time.Duration into a nanosecond-unit Duration.
func DurationFrom(d time.Duration) Duration {
	return Duration{count: d.Nanoseconds(), unit: Nsec}
}

// Count returns the raw count in the duration's own unit.
func (d Duration) Count() int64 { return d.count }

// Unit returns the duration's unit.
func (d Duration) Unit() TimeUnit { return d.unit }

// ConvertTo re-expresses the duration in the given unit. Conversions between
// CYCLE and wall units go through the calibrated tick rate.
func (d Duration) ConvertTo(u TimeUnit) Duration {
	if d.unit == u {
		return d
	}
	if d.unit == Cycle {
		ns := int64(float64(d.count) / ticksPerNS())
		return Duration{count: ns, unit: Nsec}.ConvertTo(u)
	}
	if u == Cycle {
		ns := d.ConvertTo(Nsec).count
		return Duration{count: int64(float64(ns) * ticksPerNS()), unit: Cycle}
	}
	ns := d.count * nanosPer[d.unit]
	return Duration{count: ns / nanosPer[u], unit: u}
}

// Nanoseconds is shorthand for ConvertTo(Nsec).Count().
func (d Duration) Nanoseconds() int64 { return d.ConvertTo(Nsec).count }

// Add returns d+other in d's unit.
func (d Duration) Add(other Duration) Duration {
	return Duration{count: d.count + other.ConvertTo(d.unit).count, unit: d.unit}
}

// Sub returns d-other in d's unit.
func (d Duration) Sub(other Duration) Duration {
	return Duration{count: d.count - other.ConvertTo(d.unit).count, unit: d.unit}
}

// Div returns d divided by n.
func (d Duration) Div(n int64) Duration {
	return Duration{count: d.count / n, unit: d.unit}
}

// Cmp compares two durations, converting both to nanoseconds.
func (d Duration) Cmp(other Duration) int {
	a, b := d.Nanoseconds(), other.Nanoseconds()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Std converts the duration to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d.Nanoseconds())
}

func (d Duration) String() string {
	return fmt.Sprintf("%d%s", d.count, d.unit)
}
