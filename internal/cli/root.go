// Package cli implements the handystats-bench command line.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// rootCmd is the base command; without a subcommand it runs the benchmark,
// so `handystats-bench --threads 8 --events 100000` works directly.
var rootCmd = &cobra.Command{
	Use:     "handystats-bench",
	Short:   "Benchmark harness for the handystats metrics library",
	Version: version,
	Long: `handystats-bench drives the in-process metrics pipeline at full speed:
worker goroutines emit gauge events on hot paths while the background
aggregator drains and aggregates them, then reports processed counts,
queue state and per-emit latency percentiles.`,
	RunE: runBench,
}

// Execute runs the command line and reports failure to the caller.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().Uint64Var(&benchThreads, "threads", 1, "number of worker goroutines")
	rootCmd.Flags().Uint64Var(&benchEvents, "events", 1, "number of events per worker")
	rootCmd.Flags().StringVar(&benchConfig, "handystats-config", "", "handystats configuration (JSON)")
	rootCmd.Flags().BoolVar(&benchJSON, "json", false, "print the final metrics dump as JSON")
	rootCmd.Flags().BoolVar(&benchNoColor, "no-color", false, "disable colored output")
}
