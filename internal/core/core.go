// Package core runs the aggregation engine: the background goroutine that
// drains the event queue, maintains the metric registry and publishes
// snapshots.
package core

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	ring "github.com/eapache/queue"

	"github.com/handystats/handystats-go/chrono"
	"github.com/handystats/handystats-go/config"
	"github.com/handystats/handystats-go/internal/event"
	"github.com/handystats/handystats-go/internal/queue"
	"github.com/handystats/handystats-go/metrics"
)

// Self-monitoring metric names, always published while the core runs;
// MetricQueueDropped only when the queue is bounded.
const (
	MetricQueueSize    = "handystats.message_queue.size"
	MetricPopCount     = "handystats.message_queue.pop_count"
	MetricQueueDropped = "handystats.message_queue.dropped"
	MetricRunTime      = "handystats.process.run_time"
)

const (
	// maxBatch bounds how many events one loop iteration drains.
	maxBatch = 1024

	// shutdownDrain bounds how long Stop waits for the queue to empty.
	shutdownDrain = time.Second

	// historyLen is how many published snapshots are retained.
	historyLen = 8

	// idleSpinLimit is how many empty drains merely yield before the
	// loop starts sleeping.
	idleSpinLimit = 16
)

// Core is the aggregator runtime. One background goroutine owns the
// registry; producers only touch the queue.
type Core struct {
	cfg   *config.Config
	queue *queue.Queue
	diag  io.Writer

	registry map[string]metrics.Metric

	dump    atomic.Pointer[metrics.Snapshot]
	histMu  sync.Mutex
	history *ring.Queue

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	started chrono.TimePoint

	queueSize   *metrics.Gauge
	popCount    *metrics.Counter
	dropCount   *metrics.Counter
	runTime     *metrics.Timer
	lastPops    uint64
	lastDrops   uint64
	eventErrors atomic.Uint64
}

// New builds a core from an applied configuration. diag receives one line
// per aggregation problem; nil silences diagnostics.
func New(cfg *config.Config, diag io.Writer) *Core {
	c := &Core{
		cfg:      cfg,
		queue:    queue.New(cfg.Core.QueueLimit),
		diag:     diag,
		registry: make(map[string]metrics.Metric),
		history:  ring.New(),
		done:     make(chan struct{}),
	}

	c.queueSize = metrics.NewGauge(cfg.GaugeOptionsFor(MetricQueueSize))
	c.registry[MetricQueueSize] = c.queueSize

	c.popCount = metrics.NewCounter(cfg.CounterOptionsFor(MetricPopCount))
	c.registry[MetricPopCount] = c.popCount

	if cfg.Core.QueueLimit > 0 {
		c.dropCount = metrics.NewCounter(cfg.CounterOptionsFor(MetricQueueDropped))
		c.registry[MetricQueueDropped] = c.dropCount
	}

	opts, idle := cfg.TimerOptionsFor(MetricRunTime)
	c.runTime = metrics.NewTimer(opts, idle)
	c.registry[MetricRunTime] = c.runTime

	return c
}

// Start calibrates the clock, publishes an empty snapshot and launches the
// aggregator goroutine.
func (c *Core) Start() {
	chrono.Calibrate()
	c.started = chrono.Now()
	c.dump.Store(metrics.NewSnapshot(time.Now()))

	c.wg.Add(1)
	go c.run()
}

// Stop signals shutdown, lets the aggregator drain for up to a second and
// joins it. Remaining events past the deadline are discarded.
func (c *Core) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
	c.wg.Wait()
}

// Emit enqueues an event. Never blocks.
func (c *Core) Emit(ev event.Event) {
	c.queue.Push(ev)
}

// Dump returns the most recently published snapshot.
func (c *Core) Dump() *metrics.Snapshot {
	return c.dump.Load()
}

// DumpHistory returns the retained snapshots, oldest first.
func (c *Core) DumpHistory() []*metrics.Snapshot {
	c.histMu.Lock()
	defer c.histMu.Unlock()
	out := make([]*metrics.Snapshot, 0, c.history.Length())
	for i := 0; i < c.history.Length(); i++ {
		out = append(out, c.history.Get(i).(*metrics.Snapshot))
	}
	return out
}

// EventErrors returns how many events failed to apply.
func (c *Core) EventErrors() uint64 {
	return c.eventErrors.Load()
}

func (c *Core) run() {
	defer c.wg.Done()

	interval := c.cfg.Dump.Interval.Std()
	var nextDump time.Time
	if interval > 0 {
		nextDump = time.Now().Add(interval)
	}

	var drainDeadline time.Time
	idleSpins := 0

	for {
		shuttingDown := false
		select {
		case <-c.done:
			shuttingDown = true
			if drainDeadline.IsZero() {
				drainDeadline = time.Now().Add(shutdownDrain)
			}
		default:
		}

		drained := 0
		for drained < maxBatch {
			ev, ok := c.queue.Pop()
			if !ok {
				break
			}
			c.apply(ev)
			drained++
		}

		c.sweepTimers(chrono.Now())

		if shuttingDown {
			if c.queue.Size() == 0 || time.Now().After(drainDeadline) {
				c.publish()
				return
			}
			runtime.Gosched()
			continue
		}

		if interval > 0 && !time.Now().Before(nextDump) {
			c.publish()
			nextDump = nextDump.Add(interval)
			if nextDump.Before(time.Now()) {
				nextDump = time.Now().Add(interval)
			}
		}

		if drained == 0 {
			if idleSpins < idleSpinLimit {
				idleSpins++
				runtime.Gosched()
				continue
			}
			wait := 5 * time.Millisecond
			if interval > 0 {
				if until := time.Until(nextDump); until < wait {
					wait = until
				}
			}
			if wait > 0 {
				c.queue.Wait(wait)
			}
		} else {
			idleSpins = 0
		}
	}
}

// apply routes one event to its metric, creating the metric on first sight.
// Per-event errors are counted and reported; they never stop the loop.
func (c *Core) apply(ev event.Event) {
	m, ok := c.registry[ev.Name]
	if !ok {
		m = c.create(ev)
		if m == nil {
			return
		}
		c.registry[ev.Name] = m
	}

	switch m := m.(type) {
	case *metrics.Gauge:
		switch ev.Type {
		case event.GaugeSet, event.GaugeInit:
			m.Set(ev.Value, ev.Time)
		default:
			c.eventError(ev, "event does not apply to gauge")
		}
	case *metrics.Counter:
		switch ev.Type {
		case event.CounterInit:
			m.Init(ev.Value, ev.Time)
		case event.CounterIncr:
			m.Incr(ev.Value, ev.Time)
		case event.CounterDecr:
			m.Decr(ev.Value, ev.Time)
		default:
			c.eventError(ev, "event does not apply to counter")
		}
	case *metrics.Timer:
		switch ev.Type {
		case event.TimerStart:
			m.Start(ev.Instance, ev.Time)
		case event.TimerStop:
			if !m.Stop(ev.Instance, ev.Time) {
				c.eventError(ev, "unknown timer instance")
			}
		case event.TimerDiscard:
			m.Discard(ev.Instance)
		case event.TimerHeartbeat:
			if !m.Heartbeat(ev.Instance, ev.Time) {
				c.eventError(ev, "unknown timer instance")
			}
		default:
			c.eventError(ev, "event does not apply to timer")
		}
	}
}

func (c *Core) create(ev event.Event) metrics.Metric {
	switch ev.Type {
	case event.GaugeSet, event.GaugeInit:
		return metrics.NewGauge(c.cfg.GaugeOptionsFor(ev.Name))
	case event.CounterInit, event.CounterIncr, event.CounterDecr:
		return metrics.NewCounter(c.cfg.CounterOptionsFor(ev.Name))
	case event.TimerStart, event.TimerStop, event.TimerDiscard, event.TimerHeartbeat:
		opts, idle := c.cfg.TimerOptionsFor(ev.Name)
		return metrics.NewTimer(opts, idle)
	}
	c.eventError(ev, "unknown event type")
	return nil
}

func (c *Core) eventError(ev event.Event, msg string) {
	c.eventErrors.Add(1)
	if c.diag != nil {
		fmt.Fprintf(c.diag, "handystats: %s: metric %q, event %s\n", msg, ev.Name, ev.Type)
	}
}

func (c *Core) sweepTimers(now chrono.TimePoint) {
	for _, m := range c.registry {
		if t, ok := m.(*metrics.Timer); ok {
			t.Sweep(now)
		}
	}
}

// publish refreshes the self-metrics and stores a frozen copy of the
// registry as the new current snapshot.
func (c *Core) publish() {
	now := chrono.Now()

	c.queueSize.Set(float64(c.queue.Size()), now)

	pops := c.queue.PopCount()
	c.popCount.Incr(float64(pops-c.lastPops), now)
	c.lastPops = pops

	if c.dropCount != nil {
		drops := c.queue.Dropped()
		c.dropCount.Incr(float64(drops-c.lastDrops), now)
		c.lastDrops = drops
	}

	c.runTime.Record(now.Sub(c.started), now)

	snap := metrics.NewSnapshot(time.Now())
	for name, m := range c.registry {
		snap.Metrics[name] = m.Snapshot()
	}
	c.dump.Store(snap)

	c.histMu.Lock()
	if c.history.Length() >= historyLen {
		c.history.Remove()
	}
	c.history.Add(snap)
	c.histMu.Unlock()
}
