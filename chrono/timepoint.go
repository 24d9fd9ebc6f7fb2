package chrono

import (
	"sync/atomic"
	"time"
)

// ClockType tags a TimePoint with the clock it was read from.
type ClockType int

const (
	// Internal is the raw monotonic counter. Cheap, monotonic per thread,
	// meaningless across processes.
	Internal ClockType = iota
	// System is the wall clock (nanoseconds since the Unix epoch).
	System
)

func (c ClockType) String() string {
	if c == Internal {
		return "internal"
	}
	return "system"
}

// TimePoint is a duration since its clock's epoch plus the clock tag.
type TimePoint struct {
	since Duration
	clock ClockType
}

// NewTimePoint builds a time point from a duration since epoch and a clock.
func NewTimePoint(since Duration, clock ClockType) TimePoint {
	return TimePoint{since: since, clock: clock}
}

// SinceEpoch returns the duration since the clock's epoch.
func (t TimePoint) SinceEpoch() Duration { return t.since }

// Clock returns the clock the point belongs to.
func (t TimePoint) Clock() ClockType { return t.clock }

// IsZero reports whether the point is the zero value.
func (t TimePoint) IsZero() bool {
	return t.since.count == 0 && t.clock == Internal
}

// Add shifts the point forward. The point keeps its unit; a cycle-unit
// shift applied to a system point is converted first.
func (t TimePoint) Add(d Duration) TimePoint {
	if t.clock == System && d.unit == Cycle {
		d = d.ConvertTo(t.since.unit)
	}
	return TimePoint{since: t.since.Add(d), clock: t.clock}
}

// Sub returns the duration t-u. Points on different clocks are coerced to
// the system clock before subtracting.
func (t TimePoint) Sub(u TimePoint) Duration {
	if t.clock == u.clock {
		return t.since.Sub(u.since)
	}
	if t.clock == Internal {
		return t.ToSystem().since.Sub(u.since)
	}
	return t.since.Sub(u.ToSystem().since)
}

// Before reports whether t precedes u, coercing clocks as Sub does.
func (t TimePoint) Before(u TimePoint) bool {
	return t.Sub(u).Nanoseconds() < 0
}

// After reports whether t follows u.
func (t TimePoint) After(u TimePoint) bool {
	return t.Sub(u).Nanoseconds() > 0
}

// Time renders the point as a time.Time, converting internal points to
// system time first.
func (t TimePoint) Time() time.Time {
	p := t
	if p.clock == Internal {
		p = p.ToSystem()
	}
	return time.Unix(0, p.since.Nanoseconds())
}

// Internal-to-system conversion state. The offset pair is published with a
// plain atomic store and read with an atomic load; a single-acquirer flag
// keeps recalibration to one goroutine at a time. Readers that lose the
// flag use the stale offset and never block.
var (
	nsOffset        atomic.Int64
	offsetTimestamp atomic.Int64 // internal ticks at the last calibration
	offsetUpdating  atomic.Bool
)

const (
	offsetTimeoutNS = int64(15 * 1e9) // recalibrate after 15s
	closeDistanceNS = int64(15 * 1e3) // a usable sample pair spans < 15us
	maxUpdateTries  = 100
)

// ToSystem converts an internal time point to the system clock. System
// points are returned unchanged.
//
// If no offset calibration has ever succeeded the raw tick count is
// reinterpreted as nanoseconds verbatim, bypassing tick-rate conversion.
func (t TimePoint) ToSystem() TimePoint {
	if t.clock == System {
		return t
	}

	current := Now()
	offsetTS := offsetTimestamp.Load()

	stale := offsetTS == 0 ||
		current.since.Sub(Duration{count: offsetTS, unit: Cycle}).Nanoseconds() > offsetTimeoutNS
	if stale && offsetUpdating.CompareAndSwap(false, true) {
		updateOffset()
		offsetUpdating.Store(false)
	}

	if offsetTimestamp.Load() == 0 {
		return TimePoint{since: Duration{count: t.since.count, unit: Nsec}, clock: System}
	}

	ns := t.since.Nanoseconds() + nsOffset.Load()
	return TimePoint{since: Duration{count: ns, unit: Nsec}, clock: System}
}

// updateOffset samples (ticks, wall, ticks) triples until the two tick
// reads are close enough to pin the wall reading to a tick midpoint. On
// failure the previous offset is retained.
func updateOffset() {
	var ticksStart, ticksEnd TimePoint
	var wall TimePoint

	found := false
	for i := 0; i < maxUpdateTries; i++ {
		ticksStart = Now()
		wall = SystemNow()
		ticksEnd = Now()

		if ticksEnd.since.Sub(ticksStart.since).Nanoseconds() < closeDistanceNS {
			found = true
			break
		}
	}
	if !found {
		return
	}

	mid := ticksStart.since.Add(ticksEnd.since.Sub(ticksStart.since).Div(2))
	offset := wall.since.Nanoseconds() - mid.Nanoseconds()

	nsOffset.Store(offset)
	offsetTimestamp.Store(mid.ConvertTo(Cycle).count)
}
