//go:build linux

package tuner

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect detects available system resources (CPU and RAM).
// On linux, memory comes from sysinfo(2).
func Detect() (SystemResources, error) {
	resources := SystemResources{
		CPUCores: runtime.NumCPU(),
	}

	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return resources, fmt.Errorf("sysinfo: %w", err)
	}

	unit := int64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	resources.TotalRAM = int64(info.Totalram) * unit
	resources.AvailableRAM = (int64(info.Freeram) + int64(info.Bufferram)) * unit

	return resources, nil
}
