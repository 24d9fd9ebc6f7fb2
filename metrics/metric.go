// Package metrics provides the metric variants (gauge, counter, timer) and
// the immutable snapshot consumers read.
//
// Each variant wraps one statistics accumulator; events are applied by a
// single writer (the aggregator), snapshots are deep copies handed out to
// any number of readers.
package metrics

import (
	"errors"
	"time"

	"github.com/handystats/handystats-go/statistics"
)

// ErrUnknownMetric is returned by Snapshot.Get for names never seen.
var ErrUnknownMetric = errors.New("metrics: unknown metric")

// Kind discriminates the metric variants.
type Kind int

const (
	KindGauge Kind = iota
	KindCounter
	KindTimer
)

func (k Kind) String() string {
	switch k {
	case KindGauge:
		return "gauge"
	case KindCounter:
		return "counter"
	case KindTimer:
		return "timer"
	}
	return "unknown"
}

// Metric is the variant union stored in the registry.
type Metric interface {
	Kind() Kind
	Snapshot() MetricSnapshot
}

// MetricSnapshot is one metric's frozen state.
type MetricSnapshot struct {
	Kind  Kind
	Stats statistics.Snapshot
}

// Stat returns the scalar value of one of the metric's enabled tags.
func (m MetricSnapshot) Stat(tag statistics.Tag) (float64, error) {
	return m.Stats.Get(tag)
}

// Snapshot is a frozen view of the whole registry, published by the
// aggregator at each dump interval. Old snapshots stay valid after newer
// ones are published; they are never mutated.
type Snapshot struct {
	Metrics   map[string]MetricSnapshot
	Timestamp time.Time
}

// NewSnapshot returns an empty snapshot stamped with ts.
func NewSnapshot(ts time.Time) *Snapshot {
	return &Snapshot{
		Metrics:   make(map[string]MetricSnapshot),
		Timestamp: ts,
	}
}

// Get looks a metric up by name.
func (s *Snapshot) Get(name string) (MetricSnapshot, error) {
	m, ok := s.Metrics[name]
	if !ok {
		return MetricSnapshot{}, ErrUnknownMetric
	}
	return m, nil
}

// Has reports whether the snapshot contains the named metric.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.Metrics[name]
	return ok
}

// Len returns the number of metrics in the snapshot.
func (s *Snapshot) Len() int { return len(s.Metrics) }
