// Package config parses the library configuration: per-type accumulator
// defaults, core and dump settings, and brace-expandable patterns binding
// option blocks to metric names at first use.
//
// Two JSON layouts are accepted (a legacy nested one and a flat one); any
// non-reserved top-level key is a pattern. A failed load has no effect on
// previously applied configuration.
package config

import (
	"github.com/gobwas/glob"
	"github.com/tidwall/gjson"

	"github.com/handystats/handystats-go/chrono"
	"github.com/handystats/handystats-go/statistics"
)

// GaugeOptions configures gauge metrics.
type GaugeOptions struct {
	Values statistics.Options
}

// CounterOptions configures counter metrics.
type CounterOptions struct {
	Values statistics.Options
}

// TimerOptions configures timer metrics.
type TimerOptions struct {
	Values statistics.Options

	// IdleTimeout bounds how long a timer instance may go without a stop
	// or heartbeat before the sweep drops it.
	IdleTimeout chrono.Duration
}

// DumpOptions configures snapshot publishing.
type DumpOptions struct {
	// Interval between published snapshots. Zero disables periodic
	// publishing; a snapshot is still published at finalize.
	Interval chrono.Duration
}

// CoreOptions configures the runtime.
type CoreOptions struct {
	Enable bool

	// QueueLimit, when positive, bounds the event queue; events beyond the
	// limit are dropped and counted.
	QueueLimit int64
}

// PatternGroup is one expanded pattern key with its option block. Groups
// are kept in declaration order; the first group with a matching glob wins.
type PatternGroup struct {
	Source   string
	globs    []glob.Glob
	expanded []string
	block    gjson.Result
}

// Expanded returns the pattern's expansion, order preserved.
func (g *PatternGroup) Expanded() []string {
	out := make([]string, len(g.expanded))
	copy(out, g.expanded)
	return out
}

// Config is a fully parsed configuration.
type Config struct {
	// Statistics holds the defaults cascade applied to every metric type.
	Statistics statistics.Options

	Gauge   GaugeOptions
	Counter CounterOptions
	Timer   TimerOptions

	Dump DumpOptions
	Core CoreOptions

	Patterns []PatternGroup
}

// Default returns the library defaults: last value and timestamp tracked,
// 1s moving window, 30 histogram bins, 10s timer idle timeout, 750ms dump
// interval, collection disabled until a configuration enables it.
func Default() *Config {
	stats := statistics.DefaultOptions()
	return &Config{
		Statistics: stats,
		Gauge:      GaugeOptions{Values: stats},
		Counter:    CounterOptions{Values: stats},
		Timer: TimerOptions{
			Values:      stats,
			IdleTimeout: chrono.NewDuration(10000, chrono.Msec),
		},
		Dump: DumpOptions{Interval: chrono.NewDuration(750, chrono.Msec)},
		Core: CoreOptions{Enable: false},
	}
}

// selectPattern returns the first declared pattern group matching name.
func (c *Config) selectPattern(name string) *PatternGroup {
	for i := range c.Patterns {
		for _, g := range c.Patterns[i].globs {
			if g.Match(name) {
				return &c.Patterns[i]
			}
		}
	}
	return nil
}

// GaugeOptionsFor resolves the effective accumulator options for a fresh
// gauge named name.
func (c *Config) GaugeOptionsFor(name string) statistics.Options {
	if g := c.selectPattern(name); g != nil {
		opts, err := parseValues(g.block.Get("values"), c.Gauge.Values)
		if err == nil {
			return opts
		}
	}
	return c.Gauge.Values
}

// CounterOptionsFor resolves the effective accumulator options for a fresh
// counter named name.
func (c *Config) CounterOptionsFor(name string) statistics.Options {
	if g := c.selectPattern(name); g != nil {
		opts, err := parseValues(g.block.Get("values"), c.Counter.Values)
		if err == nil {
			return opts
		}
	}
	return c.Counter.Values
}

// TimerOptionsFor resolves the effective accumulator options and idle
// timeout for a fresh timer named name.
func (c *Config) TimerOptionsFor(name string) (statistics.Options, chrono.Duration) {
	if g := c.selectPattern(name); g != nil {
		opts, err := parseValues(g.block.Get("values"), c.Timer.Values)
		if err != nil {
			opts = c.Timer.Values
		}
		idle := c.Timer.IdleTimeout
		if ms, ok := intOption(g.block, "idle-timeout-ms", "idle-timeout"); ok {
			idle = chrono.NewDuration(ms, chrono.Msec)
		}
		return opts, idle
	}
	return c.Timer.Values, c.Timer.IdleTimeout
}
