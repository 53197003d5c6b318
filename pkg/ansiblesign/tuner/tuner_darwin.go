//go:build darwin

package tuner

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect detects available system resources (CPU and RAM).
// On darwin, total memory comes from the hw.memsize sysctl.
func Detect() (SystemResources, error) {
	resources := SystemResources{
		CPUCores: runtime.NumCPU(),
	}

	memsize, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return resources, fmt.Errorf("sysctl hw.memsize: %w", err)
	}
	resources.TotalRAM = int64(memsize)

	// macOS keeps most free memory in the file cache, so half of total is a
	// workable estimate for sizing purposes.
	resources.AvailableRAM = resources.TotalRAM / 2

	return resources, nil
}
