package metrics

import (
	"github.com/handystats/handystats-go/chrono"
	"github.com/handystats/handystats-go/statistics"
)

// Counter holds a running value mutated by init/incr/decr; the value after
// each mutation is pushed into the accumulator.
type Counter struct {
	value float64
	stats *statistics.Statistics
}

// NewCounter builds a counter with the given accumulator options.
func NewCounter(opts statistics.Options) *Counter {
	return &Counter{stats: statistics.New(opts)}
}

// Init resets the counter to v.
func (c *Counter) Init(v float64, t chrono.TimePoint) {
	c.value = v
	c.stats.Update(c.value, t)
}

// Incr adds delta to the counter.
func (c *Counter) Incr(delta float64, t chrono.TimePoint) {
	c.value += delta
	c.stats.Update(c.value, t)
}

// Decr subtracts delta from the counter.
func (c *Counter) Decr(delta float64, t chrono.TimePoint) {
	c.value -= delta
	c.stats.Update(c.value, t)
}

// Value returns the current counter value.
func (c *Counter) Value() float64 { return c.value }

func (c *Counter) Kind() Kind { return KindCounter }

func (c *Counter) Snapshot() MetricSnapshot {
	return MetricSnapshot{Kind: KindCounter, Stats: c.stats.Snapshot()}
}
