package metrics

import (
	"github.com/handystats/handystats-go/chrono"
	"github.com/handystats/handystats-go/statistics"
)

// Gauge tracks the last set value; every set is pushed into the accumulator.
type Gauge struct {
	stats *statistics.Statistics
}

// NewGauge builds a gauge with the given accumulator options.
func NewGauge(opts statistics.Options) *Gauge {
	return &Gauge{stats: statistics.New(opts)}
}

// Set stores value v observed at t.
func (g *Gauge) Set(v float64, t chrono.TimePoint) {
	g.stats.Update(v, t)
}

func (g *Gauge) Kind() Kind { return KindGauge }

func (g *Gauge) Snapshot() MetricSnapshot {
	return MetricSnapshot{Kind: KindGauge, Stats: g.stats.Snapshot()}
}
