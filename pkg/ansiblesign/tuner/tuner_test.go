package tuner

import (
	"runtime"
	"testing"
)

const gib = int64(1024 * 1024 * 1024)

func TestDetect(t *testing.T) {
	resources, err := Detect()
	if err != nil {
		t.Fatalf("Detect() returned error: %v", err)
	}

	if resources.CPUCores != runtime.NumCPU() {
		t.Errorf("CPUCores = %d, want %d (runtime.NumCPU())", resources.CPUCores, runtime.NumCPU())
	}
	if resources.TotalRAM <= 0 {
		t.Errorf("TotalRAM = %d, want > 0", resources.TotalRAM)
	}
	if resources.AvailableRAM > resources.TotalRAM {
		t.Errorf("AvailableRAM (%d) > TotalRAM (%d)", resources.AvailableRAM, resources.TotalRAM)
	}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name      string
		resources SystemResources
		wantWalk  int
		wantHash  int
	}{
		{
			name:      "single core",
			resources: SystemResources{CPUCores: 1, AvailableRAM: 4 * gib},
			wantWalk:  2,
			wantHash:  2,
		},
		{
			name:      "eight cores plenty of memory",
			resources: SystemResources{CPUCores: 8, AvailableRAM: 16 * gib},
			wantWalk:  8,
			wantHash:  16,
		},
		{
			name:      "many cores capped",
			resources: SystemResources{CPUCores: 128, AvailableRAM: 512 * gib},
			wantWalk:  32,
			wantHash:  32,
		},
		{
			name:      "memory starved container",
			resources: SystemResources{CPUCores: 16, AvailableRAM: 256 * 1024 * 1024},
			wantWalk:  16,
			wantHash:  2,
		},
		{
			name:      "unknown memory",
			resources: SystemResources{CPUCores: 4},
			wantWalk:  4,
			wantHash:  8,
		},
		{
			name:      "no memory budget still gets one worker",
			resources: SystemResources{CPUCores: 4, AvailableRAM: 1024},
			wantWalk:  4,
			wantHash:  8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.resources)
			if got.WalkWorkers != tt.wantWalk {
				t.Errorf("WalkWorkers = %d, want %d", got.WalkWorkers, tt.wantWalk)
			}
			if got.HashWorkers != tt.wantHash {
				t.Errorf("HashWorkers = %d, want %d", got.HashWorkers, tt.wantHash)
			}
		})
	}
}

func TestCalculateWithOverrides(t *testing.T) {
	resources := SystemResources{CPUCores: 4, AvailableRAM: 8 * gib}

	got := CalculateWithOverrides(resources, 3)
	if got.WalkWorkers != 3 || got.HashWorkers != 3 {
		t.Errorf("override 3: got %+v", got)
	}

	got = CalculateWithOverrides(resources, 1000)
	if got.WalkWorkers != maxWorkers || got.HashWorkers != maxWorkers {
		t.Errorf("override 1000: got %+v, want cap %d", got, maxWorkers)
	}

	got = CalculateWithOverrides(resources, 0)
	if got != Calculate(resources) {
		t.Errorf("override 0: got %+v, want %+v", got, Calculate(resources))
	}
}

func TestAuto(t *testing.T) {
	got := Auto(0)
	if got.HashWorkers < 1 || got.WalkWorkers < 1 {
		t.Errorf("Auto(0) = %+v, want positive worker counts", got)
	}
	if got := Auto(5); got.HashWorkers != 5 {
		t.Errorf("Auto(5).HashWorkers = %d, want 5", got.HashWorkers)
	}
}
