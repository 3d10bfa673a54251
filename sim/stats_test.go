package sim

import (
	"math"
	"testing"

	"github.com/0x0cqq/gpucollide/sim/types"
)

func TestComputePopulationStatsAtRest(t *testing.T) {
	instances := []types.GPUInstance{
		{ID: 0, Radius: 1, Position: [3]float32{0, 0, 0}},
		{ID: 1, Radius: 1, Position: [3]float32{0, 0, 0}},
	}
	results := []types.GPUResult{
		{Position: [3]float32{0, 0, 0}, Velocity: [3]float32{0, 0, 0}},
		{Position: [3]float32{0, 0, 0}, Velocity: [3]float32{0, 0, 0}},
	}

	got := ComputePopulationStats(results, instances, 10)
	if got.MeanKineticEnergy != 0 || got.VarKineticEnergy != 0 {
		t.Fatalf("at-rest population should have zero kinetic energy, got mean=%v var=%v", got.MeanKineticEnergy, got.VarKineticEnergy)
	}
	wantMargin := 10 - 1.0
	if math.Abs(got.MeanMargin-wantMargin) > 1e-9 {
		t.Fatalf("MeanMargin = %v, want %v", got.MeanMargin, wantMargin)
	}
	if got.VarMargin != 0 {
		t.Fatalf("both spheres sit at the same margin, want zero variance, got %v", got.VarMargin)
	}
}

func TestComputePopulationStatsVariesWithSpeed(t *testing.T) {
	instances := []types.GPUInstance{
		{ID: 0, Radius: 1, Position: [3]float32{0, 0, 0}},
		{ID: 1, Radius: 1, Position: [3]float32{0, 0, 0}},
	}
	results := []types.GPUResult{
		{Position: [3]float32{0, 0, 0}, Velocity: [3]float32{1, 0, 0}},
		{Position: [3]float32{0, 0, 0}, Velocity: [3]float32{3, 0, 0}},
	}

	got := ComputePopulationStats(results, instances, 10)
	if got.MeanKineticEnergy <= 0 {
		t.Fatalf("MeanKineticEnergy = %v, want > 0", got.MeanKineticEnergy)
	}
	if got.VarKineticEnergy <= 0 {
		t.Fatalf("differing speeds should produce nonzero variance, got %v", got.VarKineticEnergy)
	}
}

func TestComputePopulationStatsIgnoresUnmatchedIDs(t *testing.T) {
	instances := []types.GPUInstance{
		{ID: 0, Radius: 1, Position: [3]float32{0, 0, 0}},
	}
	results := []types.GPUResult{
		{Position: [3]float32{0, 0, 0}, Velocity: [3]float32{0, 0, 0}},
		{Position: [3]float32{5, 5, 5}, Velocity: [3]float32{9, 9, 9}},
	}

	got := ComputePopulationStats(results, instances, 10)
	want := 10 - 1.0
	if math.Abs(got.MeanMargin-want) > 1e-9 {
		t.Fatalf("result index 1 has no matching instance and should be skipped; MeanMargin = %v, want %v", got.MeanMargin, want)
	}
}
