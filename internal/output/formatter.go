// Package output renders metric snapshots for terminal consumption, as
// aligned colored text or as JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/handystats/handystats-go/metrics"
	"github.com/handystats/handystats-go/statistics"
)

// Formatter writes rendered snapshots to an output stream.
type Formatter struct {
	w      io.Writer
	scheme *ColorScheme
}

// NewFormatter builds a formatter. With noColor all styling is disabled.
func NewFormatter(w io.Writer, noColor bool) *Formatter {
	scheme := DefaultColorScheme()
	if noColor {
		scheme = NoColorScheme()
	}
	return &Formatter{w: w, scheme: scheme}
}

// scalarTags lists the scalar tags in render order.
var scalarTags = []statistics.Tag{
	statistics.TagValue,
	statistics.TagMin,
	statistics.TagMax,
	statistics.TagCount,
	statistics.TagSum,
	statistics.TagAvg,
	statistics.TagMovingCount,
	statistics.TagMovingSum,
	statistics.TagMovingAvg,
	statistics.TagRate,
	statistics.TagThroughput,
	statistics.TagEntropy,
}

// PrintSnapshot renders every metric in name order.
func (f *Formatter) PrintSnapshot(snap *metrics.Snapshot) {
	names := make([]string, 0, len(snap.Metrics))
	for name := range snap.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	f.scheme.Heading.Fprintf(f.w, "metrics dump @ %s (%d metrics)\n",
		snap.Timestamp.Format(time.RFC3339), len(names))

	for _, name := range names {
		m := snap.Metrics[name]
		f.scheme.MetricName.Fprint(f.w, name)
		fmt.Fprint(f.w, " [")
		f.scheme.Kind.Fprint(f.w, m.Kind.String())
		fmt.Fprintln(f.w, "]")

		for _, tag := range scalarTags {
			v, err := m.Stats.Get(tag)
			if err != nil {
				continue
			}
			fmt.Fprint(f.w, "  ")
			f.scheme.StatKey.Fprintf(f.w, "%-13s", tag.String())
			f.scheme.StatValue.Fprintf(f.w, " %g\n", v)
		}
		for _, q := range m.Stats.Quantiles {
			fmt.Fprint(f.w, "  ")
			f.scheme.StatKey.Fprintf(f.w, "p%-12g", q.Prob*100)
			f.scheme.StatValue.Fprintf(f.w, " %g\n", q.Value)
		}
		if ts, err := m.Stats.Time(); err == nil && !ts.IsZero() {
			fmt.Fprint(f.w, "  ")
			f.scheme.StatKey.Fprintf(f.w, "%-13s", "timestamp")
			f.scheme.StatValue.Fprintf(f.w, " %s\n", ts.Format(time.RFC3339Nano))
		}
	}
}

// jsonMetric is the JSON shape of one rendered metric.
type jsonMetric struct {
	Kind      string                `json:"kind"`
	Stats     map[string]float64    `json:"stats"`
	Quantiles []statistics.Quantile `json:"quantiles,omitempty"`
	Histogram []statistics.Bin      `json:"histogram,omitempty"`
	Timestamp string                `json:"timestamp,omitempty"`
}

// FormatJSON renders the snapshot as an indented JSON document containing
// only enabled tags.
func FormatJSON(snap *metrics.Snapshot) (string, error) {
	doc := make(map[string]jsonMetric, len(snap.Metrics))
	for name, m := range snap.Metrics {
		jm := jsonMetric{
			Kind:  m.Kind.String(),
			Stats: make(map[string]float64),
		}
		for _, tag := range scalarTags {
			if v, err := m.Stats.Get(tag); err == nil {
				jm.Stats[tag.String()] = v
			}
		}
		jm.Quantiles = m.Stats.Quantiles
		if bins, err := m.Stats.HistogramBins(); err == nil {
			jm.Histogram = bins
		}
		if ts, err := m.Stats.Time(); err == nil && !ts.IsZero() {
			jm.Timestamp = ts.Format(time.RFC3339Nano)
		}
		doc[name] = jm
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
