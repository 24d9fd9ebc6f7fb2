//go:build !linux

package chrono

import "time"

var processStart = time.Now()

// readTicks falls back to the runtime's monotonic reading where a raw
// clock is not exposed.
func readTicks() int64 {
	return time.Since(processStart).Nanoseconds()
}
