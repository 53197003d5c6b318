//go:build !darwin && !linux

package tuner

import "runtime"

// defaultTotalRAM is assumed when the platform offers no cheap way to ask.
const defaultTotalRAM = 8 * 1024 * 1024 * 1024

// Detect reports the CPU count and a fixed memory estimate.
func Detect() (SystemResources, error) {
	totalRAM := int64(defaultTotalRAM)
	return SystemResources{
		CPUCores:     runtime.NumCPU(),
		TotalRAM:     totalRAM,
		AvailableRAM: totalRAM / 2,
	}, nil
}
