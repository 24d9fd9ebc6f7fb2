package statistics

import (
	"fmt"
	"strings"
)

// Tag identifies one statistical quantity an accumulator can maintain.
// Tags are bit flags; a Tag value is also a tag set.
type Tag uint32

const (
	TagValue Tag = 1 << iota
	TagMin
	TagMax
	TagCount
	TagSum
	TagAvg
	TagMovingCount
	TagMovingSum
	TagMovingAvg
	TagHistogram
	TagQuantile
	TagTimestamp
	TagRate
	TagEntropy
	TagThroughput

	// TagNone is the empty tag set.
	TagNone Tag = 0
)

var tagNames = []struct {
	tag  Tag
	name string
}{
	{TagValue, "value"},
	{TagMin, "min"},
	{TagMax, "max"},
	{TagCount, "count"},
	{TagSum, "sum"},
	{TagAvg, "avg"},
	{TagMovingCount, "moving-count"},
	{TagMovingSum, "moving-sum"},
	{TagMovingAvg, "moving-avg"},
	{TagHistogram, "histogram"},
	{TagQuantile, "quantile"},
	{TagTimestamp, "timestamp"},
	{TagRate, "rate"},
	{TagEntropy, "entropy"},
	{TagThroughput, "throughput"},
}

// Has reports whether every bit of q is set in t.
func (t Tag) Has(q Tag) bool { return t&q == q }

// Any reports whether any bit of q is set in t.
func (t Tag) Any(q Tag) bool { return t&q != 0 }

func (t Tag) String() string {
	var parts []string
	for _, e := range tagNames {
		if t.Has(e.tag) {
			parts = append(parts, e.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// ParseTag resolves a single tag name.
func ParseTag(name string) (Tag, error) {
	for _, e := range tagNames {
		if e.name == name {
			return e.tag, nil
		}
	}
	return TagNone, fmt.Errorf("statistics: unknown tag %q", name)
}

// ParseTags resolves a list of tag names into a tag set.
func ParseTags(names []string) (Tag, error) {
	set := TagNone
	for _, name := range names {
		t, err := ParseTag(name)
		if err != nil {
			return TagNone, err
		}
		set |= t
	}
	return set, nil
}
