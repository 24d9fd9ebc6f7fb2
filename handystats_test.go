package handystats_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handystats "github.com/handystats/handystats-go"
	"github.com/handystats/handystats-go/metrics"
	"github.com/handystats/handystats-go/statistics"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func statOf(name string, tag statistics.Tag) (float64, error) {
	m, err := handystats.MetricsDump().Get(name)
	if err != nil {
		return 0, err
	}
	return m.Stat(tag)
}

func TestGaugeCountScenario(t *testing.T) {
	require.NoError(t, handystats.ConfigJSON(
		`{"enable": true, "dump-interval": 50, "gauge": {"values": {"tags": ["count"]}}}`))
	handystats.Initialize()
	defer handystats.Finalize()

	for i := 0; i < 1000; i++ {
		handystats.GaugeSet("x", float64(i))
	}

	ok := waitFor(t, 5*time.Second, func() bool {
		n, err := statOf("x", statistics.TagCount)
		return err == nil && n == 1000
	})
	require.True(t, ok, "count never reached 1000")
}

func TestPatternMatchScenario(t *testing.T) {
	require.NoError(t, handystats.ConfigJSON(
		`{"enable": true, "dump-interval": 50, "req.{a,b}": {"values": {"tags": ["count", "avg"]}}}`))
	handystats.Initialize()
	defer handystats.Finalize()

	handystats.GaugeSet("req.a", 10.0)
	handystats.GaugeSet("req.b", 20.0)
	handystats.GaugeSet("req.c", 99.0)

	ok := waitFor(t, 5*time.Second, func() bool {
		return handystats.MetricsDump().Has("req.a") &&
			handystats.MetricsDump().Has("req.b") &&
			handystats.MetricsDump().Has("req.c")
	})
	require.True(t, ok, "metrics never appeared in a dump")

	count, err := statOf("req.a", statistics.TagCount)
	require.NoError(t, err)
	assert.Equal(t, 1.0, count)

	count, err = statOf("req.b", statistics.TagCount)
	require.NoError(t, err)
	assert.Equal(t, 1.0, count)

	avg, err := statOf("req.a", statistics.TagAvg)
	require.NoError(t, err)
	assert.Equal(t, 10.0, avg)

	// req.c exists but matched no pattern: avg is not enabled on it.
	_, err = statOf("req.c", statistics.TagAvg)
	assert.ErrorIs(t, err, statistics.ErrTagNotEnabled)
}

func TestInitOperationsScenario(t *testing.T) {
	require.NoError(t, handystats.ConfigJSON(
		`{"enable": true, "dump-interval": 50, "defaults": {"tags": ["value", "count"]}}`))
	handystats.Initialize()
	defer handystats.Finalize()

	handystats.GaugeInit("boot.gauge", 7)
	handystats.CounterInit("boot.counter", 100)
	handystats.CounterDecr("boot.counter", 30)

	ok := waitFor(t, 5*time.Second, func() bool {
		v, err := statOf("boot.counter", statistics.TagValue)
		return err == nil && v == 70
	})
	require.True(t, ok, "counter init/decr never aggregated")

	v, err := statOf("boot.gauge", statistics.TagValue)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	n, err := statOf("boot.gauge", statistics.TagCount)
	require.NoError(t, err)
	assert.Equal(t, 1.0, n, "gauge init pushes exactly one sample")

	n, err = statOf("boot.counter", statistics.TagCount)
	require.NoError(t, err)
	assert.Equal(t, 2.0, n, "counter init and decr each push")
}

func TestTimerScenario(t *testing.T) {
	require.NoError(t, handystats.ConfigJSON(
		`{"enable": true, "dump-interval": 50, "timer": {"values": {"tags": ["sum", "count"]}}}`))
	handystats.Initialize()
	defer handystats.Finalize()

	handystats.TimerStart("t", 0)
	time.Sleep(50 * time.Millisecond)
	handystats.TimerStop("t", 0)

	ok := waitFor(t, 5*time.Second, func() bool {
		n, err := statOf("t", statistics.TagCount)
		return err == nil && n == 1
	})
	require.True(t, ok, "timer stop never aggregated")

	sum, err := statOf("t", statistics.TagSum)
	require.NoError(t, err)
	// Sleep can only overshoot; keep the upper bound loose for busy hosts.
	assert.GreaterOrEqual(t, sum, 49.0)
	assert.Less(t, sum, 500.0)
}

func TestPatternParseErrorScenario(t *testing.T) {
	err := handystats.ConfigJSON(`{"req.{a,b": {}}`)
	require.Error(t, err)

	assert.False(t, handystats.IsEnabled())
	assert.Equal(t, 0, handystats.MetricsDump().Len())
}

func TestMultiProducerCounterScenario(t *testing.T) {
	require.NoError(t, handystats.ConfigJSON(`{"enable": true, "dump-interval": 50}`))
	handystats.Initialize()
	defer handystats.Finalize()

	const producers = 8
	const perProducer = 10000

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				handystats.CounterIncr("c", 1)
			}
		}()
	}
	wg.Wait()

	ok := waitFor(t, 10*time.Second, func() bool {
		v, err := statOf("c", statistics.TagValue)
		return err == nil && v == float64(producers*perProducer)
	})
	require.True(t, ok, "counter never reached 80000")

	// Queue self-metric: present and non-negative after a dump interval.
	ok = waitFor(t, 5*time.Second, func() bool {
		return handystats.MetricsDump().Has("handystats.message_queue.size")
	})
	require.True(t, ok)

	size, err := statOf("handystats.message_queue.size", statistics.TagValue)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, size, 0.0)

	pops, err := statOf("handystats.message_queue.pop_count", statistics.TagValue)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pops, float64(producers*perProducer))
}

func TestSnapshotIdempotentBetweenPublishes(t *testing.T) {
	// One-hour dump interval: after startup the snapshot can only change
	// at finalize.
	require.NoError(t, handystats.ConfigJSON(`{"enable": true, "dump-interval": 3600000}`))
	handystats.Initialize()
	defer handystats.Finalize()

	handystats.GaugeSet("x", 1)
	time.Sleep(20 * time.Millisecond)

	first := handystats.MetricsDump()
	second := handystats.MetricsDump()
	assert.Same(t, first, second)
}

func TestLifecycle(t *testing.T) {
	assert.False(t, handystats.IsEnabled())

	require.NoError(t, handystats.ConfigJSON(`{"enable": true, "dump-interval": 50}`))
	handystats.Initialize()
	assert.True(t, handystats.IsEnabled())

	// Initialize while running is a no-op.
	handystats.Initialize()
	assert.True(t, handystats.IsEnabled())

	// Config while enabled is accepted but not applied.
	assert.NoError(t, handystats.ConfigJSON(`{"enable": false}`))
	assert.True(t, handystats.IsEnabled())

	handystats.Finalize()
	assert.False(t, handystats.IsEnabled())

	// Emits while disabled are dropped without effect.
	handystats.GaugeSet("ghost", 1)
	assert.False(t, handystats.MetricsDump().Has("ghost"))
}

func TestInitializeWithoutConfigStaysDisabled(t *testing.T) {
	// No ConfigJSON/ConfigFile call: the default configuration leaves
	// collection off, so Initialize must not start the aggregator.
	handystats.Initialize()
	defer handystats.Finalize()

	assert.False(t, handystats.IsEnabled())

	handystats.GaugeSet("ghost", 1)
	assert.Equal(t, 0, handystats.MetricsDump().Len())
}

func TestDisabledByConfig(t *testing.T) {
	require.NoError(t, handystats.ConfigJSON(`{"enable": false}`))
	handystats.Initialize()
	defer handystats.Finalize()

	assert.False(t, handystats.IsEnabled())
	assert.Equal(t, 0, handystats.MetricsDump().Len())
}

func TestUnknownMetricLookup(t *testing.T) {
	require.NoError(t, handystats.ConfigJSON(`{"enable": true, "dump-interval": 50}`))
	handystats.Initialize()
	defer handystats.Finalize()

	_, err := handystats.MetricsDump().Get("never.seen")
	assert.True(t, errors.Is(err, metrics.ErrUnknownMetric))
}

func TestDumpHistoryAccumulates(t *testing.T) {
	require.NoError(t, handystats.ConfigJSON(`{"enable": true, "dump-interval": 20}`))
	handystats.Initialize()
	defer handystats.Finalize()

	ok := waitFor(t, 5*time.Second, func() bool {
		return len(handystats.DumpHistory()) >= 3
	})
	require.True(t, ok, "dump history never accumulated")
}
