// Package handystats is an in-process statistics and metrics library.
// Application goroutines emit measurement events (gauge sets, counter
// increments, timer start/stop) on hot paths; a background aggregator
// folds them into rolling statistical summaries; consumers read a
// consistent snapshot of the whole metric state at any time.
//
// Usage:
//
//	handystats.ConfigJSON(`{"enable": true, "dump-interval": 500}`)
//	handystats.Initialize()
//	defer handystats.Finalize()
//
//	handystats.TimerStart("request.time", id)
//	// ... work ...
//	handystats.TimerStop("request.time", id)
//
//	dump := handystats.MetricsDump()
package handystats

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/handystats/handystats-go/chrono"
	"github.com/handystats/handystats-go/config"
	"github.com/handystats/handystats-go/internal/core"
	"github.com/handystats/handystats-go/internal/event"
	"github.com/handystats/handystats-go/metrics"
)

var (
	// opMu serializes configuration and lifecycle operations.
	opMu sync.Mutex

	// pending is the configuration applied at the next Initialize.
	pending = config.Default()

	// active is the running core, nil when finalized.
	active atomic.Pointer[core.Core]

	// enabled short-circuits every emit operation with one atomic load.
	enabled atomic.Bool

	// diag receives diagnostic lines.
	diag io.Writer = os.Stderr
)

// SetDiagnostics redirects diagnostic output. Pass nil to silence it.
// Must be called before Initialize.
func SetDiagnostics(w io.Writer) {
	opMu.Lock()
	defer opMu.Unlock()
	diag = w
}

// ConfigJSON applies a JSON configuration. While the library is enabled the
// call is accepted but ignored (reconfiguration requires Finalize then
// Initialize); a malformed document or pattern leaves the previous
// configuration untouched and returns the error.
func ConfigJSON(data string) error {
	opMu.Lock()
	defer opMu.Unlock()

	if enabled.Load() {
		if diag != nil {
			fmt.Fprintln(diag, "handystats: configuration ignored while enabled")
		}
		return nil
	}

	cfg, err := config.Parse([]byte(data))
	if err != nil {
		return err
	}
	pending = cfg
	return nil
}

// ConfigFile applies a configuration file (JSON, or YAML by extension).
func ConfigFile(path string) error {
	opMu.Lock()
	defer opMu.Unlock()

	if enabled.Load() {
		if diag != nil {
			fmt.Fprintln(diag, "handystats: configuration ignored while enabled")
		}
		return nil
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	pending = cfg
	return nil
}

// Initialize starts the aggregator with the pending configuration. Calling
// it while already running is a no-op. A configuration with enable=false
// leaves the library disabled.
func Initialize() {
	opMu.Lock()
	defer opMu.Unlock()

	if enabled.Load() {
		return
	}
	if !pending.Core.Enable {
		return
	}

	c := core.New(pending, diag)
	c.Start()
	active.Store(c)
	enabled.Store(true)
}

// Finalize signals shutdown, drains remaining events for up to a second,
// stops the aggregator and resets the pending configuration to defaults.
func Finalize() {
	opMu.Lock()
	defer opMu.Unlock()

	enabled.Store(false)
	if c := active.Swap(nil); c != nil {
		c.Stop()
	}
	pending = config.Default()
}

// IsEnabled reports whether the aggregator is running.
func IsEnabled() bool {
	return enabled.Load()
}

// MetricsDump returns the most recently published snapshot. Before the
// first publish, and while the library is disabled, the snapshot is empty.
func MetricsDump() *metrics.Snapshot {
	if c := active.Load(); c != nil {
		return c.Dump()
	}
	return metrics.NewSnapshot(chrono.SystemNow().Time())
}

// DumpHistory returns the retained published snapshots, oldest first.
func DumpHistory() []*metrics.Snapshot {
	if c := active.Load(); c != nil {
		return c.DumpHistory()
	}
	return nil
}

// runtime returns the active core, or nil when disabled. The enabled check
// is the whole cost of an emit while the library is off.
func runtime() *core.Core {
	if !enabled.Load() {
		return nil
	}
	return active.Load()
}

// GaugeSet records a gauge value.
func GaugeSet(name string, value float64) {
	if c := runtime(); c != nil {
		c.Emit(event.Event{Name: name, Type: event.GaugeSet, Value: value, Time: chrono.Now()})
	}
}

// GaugeInit records an initial gauge value; it behaves as a set and exists
// so init sites read as initialization.
func GaugeInit(name string, value float64) {
	if c := runtime(); c != nil {
		c.Emit(event.Event{Name: name, Type: event.GaugeInit, Value: value, Time: chrono.Now()})
	}
}

// CounterInit resets a counter to value.
func CounterInit(name string, value float64) {
	if c := runtime(); c != nil {
		c.Emit(event.Event{Name: name, Type: event.CounterInit, Value: value, Time: chrono.Now()})
	}
}

// CounterIncr adds delta to a counter.
func CounterIncr(name string, delta float64) {
	if c := runtime(); c != nil {
		c.Emit(event.Event{Name: name, Type: event.CounterIncr, Value: delta, Time: chrono.Now()})
	}
}

// CounterDecr subtracts delta from a counter.
func CounterDecr(name string, delta float64) {
	if c := runtime(); c != nil {
		c.Emit(event.Event{Name: name, Type: event.CounterDecr, Value: delta, Time: chrono.Now()})
	}
}

// TimerStart begins the timer instance.
func TimerStart(name string, instance uint64) {
	if c := runtime(); c != nil {
		c.Emit(event.Event{Name: name, Type: event.TimerStart, Instance: instance, Time: chrono.Now()})
	}
}

// TimerStop ends the instance and records the elapsed time in ms.
func TimerStop(name string, instance uint64) {
	if c := runtime(); c != nil {
		c.Emit(event.Event{Name: name, Type: event.TimerStop, Instance: instance, Time: chrono.Now()})
	}
}

// TimerDiscard removes the instance without recording.
func TimerDiscard(name string, instance uint64) {
	if c := runtime(); c != nil {
		c.Emit(event.Event{Name: name, Type: event.TimerDiscard, Instance: instance, Time: chrono.Now()})
	}
}

// TimerHeartbeat marks the instance alive, deferring the idle sweep.
func TimerHeartbeat(name string, instance uint64) {
	if c := runtime(); c != nil {
		c.Emit(event.Event{Name: name, Type: event.TimerHeartbeat, Instance: instance, Time: chrono.Now()})
	}
}
