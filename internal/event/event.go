// Package event defines the value type carried from emit sites to the
// aggregator. Ownership transfers into the queue and then into the
// aggregator; events are never shared.
package event

import "github.com/handystats/handystats-go/chrono"

// Type is the event variant tag.
type Type uint8

const (
	GaugeSet Type = iota
	GaugeInit
	CounterInit
	CounterIncr
	CounterDecr
	TimerStart
	TimerStop
	TimerDiscard
	TimerHeartbeat
)

func (t Type) String() string {
	switch t {
	case GaugeSet:
		return "gauge-set"
	case GaugeInit:
		return "gauge-init"
	case CounterInit:
		return "counter-init"
	case CounterIncr:
		return "counter-incr"
	case CounterDecr:
		return "counter-decr"
	case TimerStart:
		return "timer-start"
	case TimerStop:
		return "timer-stop"
	case TimerDiscard:
		return "timer-discard"
	case TimerHeartbeat:
		return "timer-heartbeat"
	}
	return "unknown"
}

// Event is one measurement, stamped with the internal clock at the emit
// site.
type Event struct {
	Name     string
	Type     Type
	Value    float64
	Instance uint64
	Time     chrono.TimePoint
}
