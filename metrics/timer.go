package metrics

import (
	"github.com/handystats/handystats-go/chrono"
	"github.com/handystats/handystats-go/statistics"
)

// Timer tracks concurrent timings keyed by a 64-bit instance id. Stop pushes
// the elapsed time in milliseconds into the accumulator; instances that see
// no heartbeat or stop within the idle timeout are dropped by Sweep.
type Timer struct {
	stats       *statistics.Statistics
	idleTimeout chrono.Duration
	instances   map[uint64]timerInstance
	missed      uint64
}

type timerInstance struct {
	start   chrono.TimePoint
	touched chrono.TimePoint
}

// NewTimer builds a timer with the given accumulator options and idle
// timeout for abandoned instances.
func NewTimer(opts statistics.Options, idleTimeout chrono.Duration) *Timer {
	return &Timer{
		stats:       statistics.New(opts),
		idleTimeout: idleTimeout,
		instances:   make(map[uint64]timerInstance),
	}
}

// Start begins (or restarts) the instance.
func (t *Timer) Start(id uint64, now chrono.TimePoint) {
	t.instances[id] = timerInstance{start: now, touched: now}
}

// Stop ends the instance and records the elapsed duration. Returns false if
// the instance is unknown.
func (t *Timer) Stop(id uint64, now chrono.TimePoint) bool {
	inst, ok := t.instances[id]
	if !ok {
		t.missed++
		return false
	}
	delete(t.instances, id)
	t.Record(now.Sub(inst.start), now)
	return true
}

// Discard removes the instance without recording anything.
func (t *Timer) Discard(id uint64) {
	delete(t.instances, id)
}

// Heartbeat marks the instance alive, deferring the idle sweep. Returns
// false if the instance is unknown.
func (t *Timer) Heartbeat(id uint64, now chrono.TimePoint) bool {
	inst, ok := t.instances[id]
	if !ok {
		t.missed++
		return false
	}
	inst.touched = now
	t.instances[id] = inst
	return true
}

// Record pushes an elapsed duration into the accumulator as milliseconds.
func (t *Timer) Record(d chrono.Duration, now chrono.TimePoint) {
	t.stats.Update(float64(d.Nanoseconds())/1e6, now)
}

// Sweep drops instances whose last touch is older than the idle timeout and
// returns how many were removed. An instance exactly at the boundary
// survives until the sweep after the timeout has been exceeded.
func (t *Timer) Sweep(now chrono.TimePoint) int {
	if t.idleTimeout.Count() <= 0 {
		return 0
	}
	removed := 0
	for id, inst := range t.instances {
		if now.Sub(inst.touched).Cmp(t.idleTimeout) > 0 {
			delete(t.instances, id)
			removed++
		}
	}
	return removed
}

// ActiveInstances returns the number of running instances.
func (t *Timer) ActiveInstances() int { return len(t.instances) }

// Missed returns how many stop/heartbeat events referenced unknown
// instances.
func (t *Timer) Missed() uint64 { return t.missed }

func (t *Timer) Kind() Kind { return KindTimer }

func (t *Timer) Snapshot() MetricSnapshot {
	return MetricSnapshot{Kind: KindTimer, Stats: t.stats.Snapshot()}
}
