package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/handystats/handystats-go/chrono"
	"github.com/handystats/handystats-go/statistics"
)

// reservedKeys are the recognized top-level sections of both layouts.
// Anything else is a pattern.
var reservedKeys = map[string]bool{
	"statistics":    true,
	"metrics":       true,
	"metrics-dump":  true,
	"core":          true,
	"defaults":      true,
	"gauge":         true,
	"counter":       true,
	"timer":         true,
	"dump-interval": true,
	"enable":        true,
}

// Parse builds a Config from JSON. It starts from the library defaults,
// applies the legacy sections, then the flat sections, then collects
// patterns in declaration order. Any error leaves no partial effect: the
// returned config is nil and the caller keeps whatever it had.
func Parse(data []byte) (*Config, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(data)
	cfg := Default()

	// Legacy layout.
	if sec := root.Get("statistics"); sec.Exists() {
		if err := cfg.applyDefaults(sec); err != nil {
			return nil, err
		}
	}
	if sec := root.Get("metrics"); sec.Exists() {
		if err := cfg.applyMetricSections(sec); err != nil {
			return nil, err
		}
	}
	if v := root.Get("metrics-dump.interval"); v.Exists() {
		cfg.Dump.Interval = chrono.NewDuration(v.Int(), chrono.Msec)
	}
	if v := root.Get("core.enable"); v.Exists() {
		cfg.Core.Enable = v.Bool()
	}
	if v := root.Get("core.queue-limit"); v.Exists() {
		cfg.Core.QueueLimit = v.Int()
	}

	// Flat layout.
	if sec := root.Get("defaults"); sec.Exists() {
		if err := cfg.applyDefaults(sec); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyMetricSections(root); err != nil {
		return nil, err
	}
	if v := root.Get("dump-interval"); v.Exists() {
		cfg.Dump.Interval = chrono.NewDuration(v.Int(), chrono.Msec)
	}
	if v := root.Get("enable"); v.Exists() {
		cfg.Core.Enable = v.Bool()
	}

	// Patterns, in declaration order.
	var err error
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if reservedKeys[name] {
			return true
		}
		var group *PatternGroup
		group, err = buildPatternGroup(name, value)
		if err != nil {
			return false
		}
		cfg.Patterns = append(cfg.Patterns, *group)
		return true
	})
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile reads and parses a configuration file. YAML files (.yaml/.yml)
// are decoded generically and re-encoded as JSON before the common parse
// path; note that re-encoding orders pattern keys lexically.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("config: parse YAML %s: %w", path, err)
		}
		data, err = json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("config: re-encode %s: %w", path, err)
		}
	}

	return Parse(data)
}

// applyDefaults overlays a values block onto the statistics defaults and
// every per-type values block (the defaults cascade).
func (c *Config) applyDefaults(sec gjson.Result) error {
	var err error
	if c.Statistics, err = parseValues(sec, c.Statistics); err != nil {
		return err
	}
	if c.Gauge.Values, err = parseValues(sec, c.Gauge.Values); err != nil {
		return err
	}
	if c.Counter.Values, err = parseValues(sec, c.Counter.Values); err != nil {
		return err
	}
	if c.Timer.Values, err = parseValues(sec, c.Timer.Values); err != nil {
		return err
	}
	return nil
}

// applyMetricSections reads gauge/counter/timer blocks from root, which is
// either the legacy "metrics" object or the document root (flat layout).
func (c *Config) applyMetricSections(root gjson.Result) error {
	var err error
	if sec := root.Get("gauge"); sec.Exists() {
		if c.Gauge.Values, err = parseValues(sec.Get("values"), c.Gauge.Values); err != nil {
			return err
		}
	}
	if sec := root.Get("counter"); sec.Exists() {
		if c.Counter.Values, err = parseValues(sec.Get("values"), c.Counter.Values); err != nil {
			return err
		}
	}
	if sec := root.Get("timer"); sec.Exists() {
		if c.Timer.Values, err = parseValues(sec.Get("values"), c.Timer.Values); err != nil {
			return err
		}
		if ms, ok := intOption(sec, "idle-timeout-ms", "idle-timeout"); ok {
			c.Timer.IdleTimeout = chrono.NewDuration(ms, chrono.Msec)
		}
	}
	return nil
}

// parseValues overlays a values block onto base. A missing block returns
// base unchanged.
func parseValues(sec gjson.Result, base statistics.Options) (statistics.Options, error) {
	if !sec.Exists() {
		return base, nil
	}

	out := base

	if tags := sec.Get("tags"); tags.Exists() {
		var names []string
		for _, t := range tags.Array() {
			names = append(names, t.String())
		}
		set, err := statistics.ParseTags(names)
		if err != nil {
			return base, err
		}
		out.Tags = set
	}

	if ms, ok := intOption(sec, "moving-interval-ms", "moving-interval"); ok {
		out.MovingInterval = chrono.NewDuration(ms, chrono.Msec)
	}

	if bins := sec.Get("histogram-bins"); bins.Exists() {
		out.HistogramBins = int(bins.Int())
	}

	if probs := sec.Get("quantile-probs"); probs.Exists() {
		var ps []float64
		for _, p := range probs.Array() {
			v := p.Float()
			if v <= 0 || v >= 1 {
				return base, fmt.Errorf("config: quantile prob %v out of (0,1)", v)
			}
			ps = append(ps, v)
		}
		out.QuantileProbs = ps
	}

	return out, nil
}

// intOption reads the first existing of the given keys as an integer.
func intOption(sec gjson.Result, keys ...string) (int64, bool) {
	for _, key := range keys {
		if v := sec.Get(key); v.Exists() {
			return v.Int(), true
		}
	}
	return 0, false
}

// buildPatternGroup expands and compiles one pattern key. The option block
// is parsed once against the library defaults so malformed blocks fail the
// load, then kept raw for per-type resolution at metric creation.
func buildPatternGroup(pattern string, block gjson.Result) (*PatternGroup, error) {
	expanded, err := ExpandPattern(pattern)
	if err != nil {
		return nil, err
	}

	globs := make([]glob.Glob, 0, len(expanded))
	for _, p := range expanded {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("config: pattern %q: bad glob %q: %w", pattern, p, err)
		}
		globs = append(globs, g)
	}

	if _, err := parseValues(block.Get("values"), statistics.DefaultOptions()); err != nil {
		return nil, fmt.Errorf("config: pattern %q: %w", pattern, err)
	}

	return &PatternGroup{
		Source:   pattern,
		globs:    globs,
		expanded: expanded,
		block:    block,
	}, nil
}
