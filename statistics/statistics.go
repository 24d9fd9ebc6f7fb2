// Package statistics implements the per-metric rolling accumulator: scalar
// aggregates, an exponentially decayed moving window, a streaming histogram
// with derived quantiles and entropy, and rate/throughput over the window.
//
// An accumulator has a single writer (the aggregator goroutine). Readers
// never touch a live accumulator; they work from the immutable Snapshot it
// produces.
package statistics

import (
	"errors"
	"math"
	"time"

	"github.com/handystats/handystats-go/chrono"
	"github.com/handystats/handystats-go/internal/mathx"
)

var (
	// ErrTagNotEnabled is returned when a queried tag was not configured
	// on the accumulator.
	ErrTagNotEnabled = errors.New("statistics: tag not enabled")

	// ErrNotScalar is returned when Get is used on a non-scalar tag
	// (histogram, quantile, timestamp).
	ErrNotScalar = errors.New("statistics: tag has no scalar value")
)

// movingTags are the tags backed by the decayed moving window.
const movingTags = TagMovingCount | TagMovingSum | TagMovingAvg | TagRate | TagThroughput

// histogramTags are the tags backed by the streaming histogram.
const histogramTags = TagHistogram | TagQuantile | TagEntropy

// Options configures an accumulator. Only enabled tags allocate state.
type Options struct {
	// Tags is the set of statistics the accumulator maintains.
	Tags Tag

	// MovingInterval is the length W of the moving window.
	MovingInterval chrono.Duration

	// HistogramBins bounds the streaming histogram size.
	HistogramBins int

	// QuantileProbs are the probabilities reported for the quantile tag.
	QuantileProbs []float64
}

// DefaultOptions mirrors the library defaults: last value and timestamp,
// 1s window, 30 bins, the usual quartile/tail probabilities.
func DefaultOptions() Options {
	return Options{
		Tags:           TagValue | TagTimestamp,
		MovingInterval: chrono.NewDuration(1000, chrono.Msec),
		HistogramBins:  30,
		QuantileProbs:  []float64{0.25, 0.5, 0.75, 0.9, 0.95},
	}
}

// Statistics is the rolling accumulator.
type Statistics struct {
	opts Options

	value     float64
	timestamp chrono.TimePoint

	min   float64
	max   float64
	sum   float64
	count uint64

	moments mathx.Moments

	movingSum   float64
	movingCount float64
	movingTime  chrono.TimePoint
	movingInit  bool

	hist *Histogram
}

// New builds an accumulator for the given options.
func New(opts Options) *Statistics {
	s := &Statistics{opts: opts}
	if opts.Tags.Any(histogramTags) {
		s.hist = newHistogram(opts.HistogramBins)
	}
	return s
}

// Options returns the accumulator's configuration.
func (s *Statistics) Options() Options { return s.opts }

// Update folds sample x observed at time t into the accumulator. The moving
// window is decayed by 2^(-dt/(W/2)) before the sample is added, so a value
// W/2 old contributes half its weight.
func (s *Statistics) Update(x float64, t chrono.TimePoint) {
	if s.opts.Tags.Any(movingTags) {
		s.decay(t)
		s.movingSum += x
		s.movingCount++
	}

	if s.count == 0 || x < s.min {
		s.min = x
	}
	if s.count == 0 || x > s.max {
		s.max = x
	}
	s.sum += x
	s.count++
	s.moments.Push(x)

	s.value = x
	s.timestamp = t

	if s.hist != nil {
		s.hist.Insert(x)
	}
}

func (s *Statistics) decay(t chrono.TimePoint) {
	if !s.movingInit {
		s.movingTime = t
		s.movingInit = true
		return
	}

	dt := t.Sub(s.movingTime).Nanoseconds()
	if dt <= 0 {
		return
	}

	halfLife := s.opts.MovingInterval.Nanoseconds() / 2
	if halfLife <= 0 {
		s.movingSum = 0
		s.movingCount = 0
	} else {
		f := math.Exp2(-float64(dt) / float64(halfLife))
		s.movingSum *= f
		s.movingCount *= f
	}
	s.movingTime = t
}

// Quantile is one reported (probability, value) pair.
type Quantile struct {
	Prob  float64 `json:"prob"`
	Value float64 `json:"value"`
}

// Snapshot is a frozen copy of everything the accumulator knows. It is a
// plain value; copying it is safe and readers may share it freely.
type Snapshot struct {
	Enabled Tag

	Value float64
	Min   float64
	Max   float64
	Count uint64
	Sum   float64
	Avg   float64

	// StdDev is the population standard deviation from the Welford
	// moments; reported alongside avg.
	StdDev float64

	MovingCount float64
	MovingSum   float64
	MovingAvg   float64
	Rate        float64
	Throughput  float64

	Entropy   float64
	Timestamp time.Time

	Histogram []Bin
	Quantiles []Quantile
}

// Snapshot freezes the accumulator's current state.
func (s *Statistics) Snapshot() Snapshot {
	snap := Snapshot{
		Enabled: s.opts.Tags,
		Value:   s.value,
		Min:     s.min,
		Max:     s.max,
		Count:   s.count,
		Sum:     s.sum,
	}
	if s.count > 0 {
		snap.Avg = s.sum / float64(s.count)
		snap.StdDev = s.moments.StdDev()
	}

	if s.opts.Tags.Any(movingTags) {
		snap.MovingCount = s.movingCount
		snap.MovingSum = s.movingSum
		if s.movingCount > 0 {
			snap.MovingAvg = s.movingSum / s.movingCount
		}
		if w := s.opts.MovingInterval.Std().Seconds(); w > 0 {
			snap.Rate = s.movingCount / w
			snap.Throughput = s.movingSum / w
		}
	}

	if s.opts.Tags.Has(TagTimestamp) && !s.timestamp.IsZero() {
		snap.Timestamp = s.timestamp.Time()
	}

	if s.hist != nil {
		snap.Histogram = s.hist.Bins()
		snap.Entropy = s.hist.Entropy()
		if s.opts.Tags.Has(TagQuantile) {
			snap.Quantiles = make([]Quantile, 0, len(s.opts.QuantileProbs))
			for _, p := range s.opts.QuantileProbs {
				snap.Quantiles = append(snap.Quantiles, Quantile{Prob: p, Value: s.hist.Quantile(p)})
			}
		}
	}

	return snap
}

// Get returns the scalar value of an enabled tag. Non-scalar tags return
// ErrNotScalar; disabled tags return ErrTagNotEnabled.
func (sn Snapshot) Get(tag Tag) (float64, error) {
	if !sn.Enabled.Has(tag) {
		return 0, ErrTagNotEnabled
	}
	switch tag {
	case TagValue:
		return sn.Value, nil
	case TagMin:
		return sn.Min, nil
	case TagMax:
		return sn.Max, nil
	case TagCount:
		return float64(sn.Count), nil
	case TagSum:
		return sn.Sum, nil
	case TagAvg:
		return sn.Avg, nil
	case TagMovingCount:
		return sn.MovingCount, nil
	case TagMovingSum:
		return sn.MovingSum, nil
	case TagMovingAvg:
		return sn.MovingAvg, nil
	case TagRate:
		return sn.Rate, nil
	case TagEntropy:
		return sn.Entropy, nil
	case TagThroughput:
		return sn.Throughput, nil
	}
	return 0, ErrNotScalar
}

// QuantileAt interpolates the p-quantile from the snapshot's histogram.
func (sn Snapshot) QuantileAt(p float64) (float64, error) {
	if !sn.Enabled.Has(TagQuantile) {
		return 0, ErrTagNotEnabled
	}
	for _, q := range sn.Quantiles {
		if q.Prob == p {
			return q.Value, nil
		}
	}
	h := Histogram{bins: sn.Histogram}
	for _, b := range sn.Histogram {
		h.total += b.Count
	}
	return h.Quantile(p), nil
}

// HistogramBins returns the snapshot's histogram centroids.
func (sn Snapshot) HistogramBins() ([]Bin, error) {
	if !sn.Enabled.Has(TagHistogram) {
		return nil, ErrTagNotEnabled
	}
	return sn.Histogram, nil
}

// Time returns the timestamp of the last sample.
func (sn Snapshot) Time() (time.Time, error) {
	if !sn.Enabled.Has(TagTimestamp) {
		return time.Time{}, ErrTagNotEnabled
	}
	return sn.Timestamp, nil
}
