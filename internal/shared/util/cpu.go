package util

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
)

// DefaultWorkers returns the number of physical cores, falling back to the
// logical CPU count when the platform does not expose core topology.
func DefaultWorkers() int {
	n, err := cpu.Counts(false)
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}
	if n < 1 {
		n = 1
	}
	return n
}
