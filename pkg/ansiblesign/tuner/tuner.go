// Package tuner sizes the worker pools used to walk and hash a project from
// the CPU and memory detected on the host.
package tuner

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// TotalRAM is the total physical RAM in bytes.
	TotalRAM int64

	// AvailableRAM is the available (free) RAM in bytes.
	// This may be an estimate based on system heuristics.
	AvailableRAM int64
}
