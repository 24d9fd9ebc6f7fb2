package cli

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/spf13/cobra"

	handystats "github.com/handystats/handystats-go"
	"github.com/handystats/handystats-go/chrono"
	"github.com/handystats/handystats-go/internal/output"
	"github.com/handystats/handystats-go/statistics"
)

var (
	benchThreads uint64
	benchEvents  uint64
	benchConfig  string
	benchJSON    bool
	benchNoColor bool
)

// defaultBenchConfig counts processed events and nothing else, keeping the
// aggregator cheap so the queue is the thing being measured.
const defaultBenchConfig = `{"enable": true, "events": {"values": {"tags": ["count"]}}}`

// latency histogram range: 1ns .. 10s, 3 significant figures.
const (
	latencyMin     = int64(1)
	latencyMax     = int64(10_000_000_000)
	latencySigFigs = 3
)

func runBench(cmd *cobra.Command, args []string) error {
	if benchThreads == 0 {
		return errors.New("number of threads must be greater than 0")
	}
	if benchEvents == 0 {
		return errors.New("number of events must be greater than 0")
	}

	cfg := benchConfig
	if cfg == "" {
		cfg = defaultBenchConfig
	}
	if err := handystats.ConfigJSON(cfg); err != nil {
		return err
	}

	handystats.Initialize()
	defer handystats.Finalize()

	cmd.SilenceUsage = true

	start := chrono.Now()

	// One latency recorder per worker; HDR histograms are not safe for
	// concurrent writes.
	hists := make([]*hdrhistogram.Histogram, benchThreads)
	var wg sync.WaitGroup
	for id := uint64(0); id < benchThreads; id++ {
		hists[id] = hdrhistogram.New(latencyMin, latencyMax, latencySigFigs)
		wg.Add(1)
		go func(id uint64, hist *hdrhistogram.Histogram) {
			defer wg.Done()
			value := float64(id + 1)
			for i := uint64(1); i <= benchEvents; i++ {
				value *= float64(i + id)
				t0 := chrono.Now()
				handystats.GaugeSet("events", value)
				elapsed := chrono.Now().Sub(t0).Nanoseconds()
				if err := hist.RecordValue(elapsed); err != nil {
					_ = hist.RecordValue(latencyMax)
				}
			}
		}(id, hists[id])
	}
	wg.Wait()

	end := chrono.Now()

	total := benchThreads * benchEvents
	waitProcessed(total, 10*time.Second)

	dump := handystats.MetricsDump()

	merged := hdrhistogram.New(latencyMin, latencyMax, latencySigFigs)
	for _, h := range hists {
		merged.Merge(h)
	}

	if benchJSON {
		doc, err := output.FormatJSON(dump)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, doc)
		return nil
	}

	noColor := benchNoColor || !output.IsTerminal()
	f := output.NewFormatter(os.Stdout, noColor)

	fmt.Printf("Workers time: %.3fs\n", end.Sub(start).Std().Seconds())
	fmt.Printf("Total events: %d\n", total)

	if m, err := dump.Get("events"); err == nil {
		if count, err := m.Stat(statistics.TagCount); err == nil {
			fmt.Printf("Processed events: %.0f\n", count)
		}
	}
	if m, err := dump.Get("handystats.message_queue.size"); err == nil {
		if size, err := m.Stat(statistics.TagValue); err == nil {
			fmt.Printf("Queue size: %.0f\n", size)
		}
	}

	fmt.Printf("Emit latency: p50 %dns  p90 %dns  p99 %dns  max %dns\n",
		merged.ValueAtQuantile(50),
		merged.ValueAtQuantile(90),
		merged.ValueAtQuantile(99),
		merged.Max())

	fmt.Println()
	f.PrintSnapshot(dump)
	return nil
}

// waitProcessed polls the dump until the aggregator has seen want events or
// the deadline passes.
func waitProcessed(want uint64, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		dump := handystats.MetricsDump()
		if m, err := dump.Get("events"); err == nil {
			if count, err := m.Stat(statistics.TagCount); err == nil && uint64(count) >= want {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
}
