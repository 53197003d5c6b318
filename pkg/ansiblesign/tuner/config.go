package tuner

// Worker configuration limits.
const (
	// maxWorkers caps any pool. Past this, hashing is disk bound.
	maxWorkers = 32

	minWalkWorkers = 2
	minHashWorkers = 1

	// bytesPerHashWorker is the memory a hashing goroutine is budgeted,
	// dominated by its copy buffer and hash state.
	bytesPerHashWorker = 1 << 20

	// memoryFraction is the share of available RAM the hash pool may use.
	memoryFraction = 0.01
)

// OptimalConfig contains tuned worker counts for the detected system.
type OptimalConfig struct {
	// WalkWorkers is the number of concurrent directory readers.
	WalkWorkers int

	// HashWorkers is the number of files hashed concurrently.
	HashWorkers int
}

// Calculate returns the worker configuration for resources.
//
// The calculation logic:
//   - WalkWorkers: max(NumCPU, 2), directory reads are metadata bound
//   - HashWorkers: NumCPU * 2, hashing alternates between reading and
//     computing so a little oversubscription keeps cores busy
//   - HashWorkers is further limited by a memory budget, so small hosts
//     and containers do not thrash
//   - Both are capped at 32
func Calculate(resources SystemResources) OptimalConfig {
	walkWorkers := max(resources.CPUCores, minWalkWorkers)
	walkWorkers = min(walkWorkers, maxWorkers)

	hashWorkers := resources.CPUCores * 2
	if budget := memoryBudgetWorkers(resources.AvailableRAM); budget > 0 {
		hashWorkers = min(hashWorkers, budget)
	}
	hashWorkers = max(hashWorkers, minHashWorkers)
	hashWorkers = min(hashWorkers, maxWorkers)

	return OptimalConfig{
		WalkWorkers: walkWorkers,
		HashWorkers: hashWorkers,
	}
}

// CalculateWithOverrides applies a user override to the calculated config.
// If workerOverride is greater than 0, it sets both pools to that value
// (still respecting the cap). Otherwise the calculated values are used.
func CalculateWithOverrides(resources SystemResources, workerOverride int) OptimalConfig {
	config := Calculate(resources)

	if workerOverride > 0 {
		workers := min(workerOverride, maxWorkers)
		config.WalkWorkers = workers
		config.HashWorkers = workers
	}

	return config
}

// Auto detects resources and applies workerOverride. Detection failures fall
// back to whatever was detected before the failure.
func Auto(workerOverride int) OptimalConfig {
	resources, _ := Detect()
	return CalculateWithOverrides(resources, workerOverride)
}

func memoryBudgetWorkers(availableRAM int64) int {
	if availableRAM <= 0 {
		return 0
	}
	return int(float64(availableRAM) * memoryFraction / bytesPerHashWorker)
}
