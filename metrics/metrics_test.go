package metrics

import (
	"errors"
	"testing"

	"github.com/handystats/handystats-go/chrono"
	"github.com/handystats/handystats-go/statistics"
)

func at(ms int64) chrono.TimePoint {
	return chrono.NewTimePoint(chrono.NewDuration(ms*1e6, chrono.Nsec), chrono.Internal)
}

func fullOpts() statistics.Options {
	opts := statistics.DefaultOptions()
	opts.Tags = statistics.TagValue | statistics.TagMin | statistics.TagMax |
		statistics.TagCount | statistics.TagSum | statistics.TagAvg
	return opts
}

func TestGaugeSet(t *testing.T) {
	g := NewGauge(fullOpts())
	g.Set(10, at(0))
	g.Set(20, at(1))

	snap := g.Snapshot()
	if snap.Kind != KindGauge {
		t.Fatalf("Kind = %v, want gauge", snap.Kind)
	}
	if v, _ := snap.Stat(statistics.TagValue); v != 20 {
		t.Errorf("value = %v, want 20", v)
	}
	if c, _ := snap.Stat(statistics.TagCount); c != 2 {
		t.Errorf("count = %v, want 2", c)
	}
}

func TestCounterMutations(t *testing.T) {
	c := NewCounter(fullOpts())
	c.Init(10, at(0))
	c.Incr(5, at(1))
	c.Incr(5, at(2))
	c.Decr(3, at(3))

	if c.Value() != 17 {
		t.Fatalf("Value = %v, want 17", c.Value())
	}

	snap := c.Snapshot()
	if v, _ := snap.Stat(statistics.TagValue); v != 17 {
		t.Errorf("value = %v, want 17", v)
	}
	// Every mutation pushes the post-mutation value.
	if n, _ := snap.Stat(statistics.TagCount); n != 4 {
		t.Errorf("count = %v, want 4", n)
	}
	if max, _ := snap.Stat(statistics.TagMax); max != 20 {
		t.Errorf("max = %v, want 20", max)
	}
}

func TestTimerStartStop(t *testing.T) {
	tm := NewTimer(fullOpts(), chrono.NewDuration(10000, chrono.Msec))
	tm.Start(0, at(0))
	if !tm.Stop(0, at(50)) {
		t.Fatal("Stop on a started instance returned false")
	}

	snap := tm.Snapshot()
	if sum, _ := snap.Stat(statistics.TagSum); sum != 50 {
		t.Errorf("sum = %vms, want 50", sum)
	}
	if tm.ActiveInstances() != 0 {
		t.Errorf("ActiveInstances = %d, want 0", tm.ActiveInstances())
	}
}

func TestTimerConcurrentInstances(t *testing.T) {
	tm := NewTimer(fullOpts(), chrono.NewDuration(10000, chrono.Msec))
	tm.Start(1, at(0))
	tm.Start(2, at(10))
	tm.Stop(2, at(30))
	tm.Stop(1, at(100))

	snap := tm.Snapshot()
	if sum, _ := snap.Stat(statistics.TagSum); sum != 120 { // 20 + 100
		t.Errorf("sum = %v, want 120", sum)
	}
}

func TestTimerMissingInstance(t *testing.T) {
	tm := NewTimer(fullOpts(), chrono.NewDuration(10000, chrono.Msec))
	if tm.Stop(7, at(0)) {
		t.Error("Stop on unknown instance returned true")
	}
	if tm.Heartbeat(7, at(0)) {
		t.Error("Heartbeat on unknown instance returned true")
	}
	if tm.Missed() != 2 {
		t.Errorf("Missed = %d, want 2", tm.Missed())
	}

	if n, _ := tm.Snapshot().Stat(statistics.TagCount); n != 0 {
		t.Errorf("count = %v, want 0 after missing-instance events", n)
	}
}

func TestTimerDiscard(t *testing.T) {
	tm := NewTimer(fullOpts(), chrono.NewDuration(10000, chrono.Msec))
	tm.Start(0, at(0))
	tm.Discard(0)
	if tm.Stop(0, at(50)) {
		t.Error("Stop after Discard returned true")
	}
	if n, _ := tm.Snapshot().Stat(statistics.TagCount); n != 0 {
		t.Errorf("count = %v, want 0", n)
	}
}

func TestTimerSweepBoundary(t *testing.T) {
	tm := NewTimer(fullOpts(), chrono.NewDuration(100, chrono.Msec))
	tm.Start(0, at(0))

	// Exactly at the boundary the instance survives.
	if removed := tm.Sweep(at(100)); removed != 0 {
		t.Errorf("sweep at boundary removed %d, want 0", removed)
	}
	// The next sweep past the boundary drops it.
	if removed := tm.Sweep(at(101)); removed != 1 {
		t.Errorf("sweep past boundary removed %d, want 1", removed)
	}
	if tm.ActiveInstances() != 0 {
		t.Errorf("ActiveInstances = %d, want 0", tm.ActiveInstances())
	}
}

func TestTimerHeartbeatDefersSweep(t *testing.T) {
	tm := NewTimer(fullOpts(), chrono.NewDuration(100, chrono.Msec))
	tm.Start(0, at(0))
	tm.Heartbeat(0, at(90))

	if removed := tm.Sweep(at(150)); removed != 0 {
		t.Errorf("sweep removed %d, want 0 after heartbeat", removed)
	}
	if removed := tm.Sweep(at(191)); removed != 1 {
		t.Errorf("sweep removed %d, want 1", removed)
	}
}

func TestSnapshotLookup(t *testing.T) {
	snap := NewSnapshot(at(0).Time())
	snap.Metrics["x"] = MetricSnapshot{Kind: KindGauge}

	if _, err := snap.Get("x"); err != nil {
		t.Errorf("Get(x): %v", err)
	}
	if _, err := snap.Get("y"); !errors.Is(err, ErrUnknownMetric) {
		t.Errorf("Get(y) err = %v, want ErrUnknownMetric", err)
	}
	if !snap.Has("x") || snap.Has("y") {
		t.Error("Has disagrees with Get")
	}
}
