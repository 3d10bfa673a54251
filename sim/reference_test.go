package sim

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/0x0cqq/gpucollide/sim/types"
)

func baseTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") returned error: %v", err)
	}
	return cfg
}

// TestAssignCorrectness checks property 1 of §8: cell_index must equal the
// flattened grid coordinate of (position + boundary) / grid_size.
func TestAssignCorrectness(t *testing.T) {
	cfg := baseTestConfig(t)
	cfg.World.InstanceCount = 3
	cfg.computeDerived()

	instances := []types.GPUInstance{
		{ID: 0, Radius: 0.3, Position: [3]float32{0, 0, 0}},
		{ID: 1, Radius: 0.3, Position: [3]float32{-9.9, -9.9, -9.9}},
		{ID: 2, Radius: 0.3, Position: [3]float32{9.9, 9.9, 9.9}},
	}
	padded := make([]types.GPUInstance, cfg.Derived.PaddedCount)
	copy(padded, instances)
	for i := len(instances); i < len(padded); i++ {
		padded[i] = types.GPUInstance{ID: paddingSentinel, CellIndex: paddingSentinel}
	}

	ref := NewReference(cfg, padded)
	ref.assign()

	dim := ref.gridDim()
	for i := range instances {
		inst := ref.instances[i]
		gx := uint32(math.Max(float64(inst.Position[0]+cfg.World.Boundary), 0) / float64(cfg.World.GridSize))
		gy := uint32(math.Max(float64(inst.Position[1]+cfg.World.Boundary), 0) / float64(cfg.World.GridSize))
		gz := uint32(math.Max(float64(inst.Position[2]+cfg.World.Boundary), 0) / float64(cfg.World.GridSize))
		want := ref.flattenCell(gx, gy, gz, dim)
		if want >= dim*dim*dim {
			want = dim*dim*dim - 1
		}
		if inst.CellIndex != want {
			t.Errorf("instance %d: cell_index = %d, want %d", inst.ID, inst.CellIndex, want)
		}
	}
}

// TestSortNonDecreasingAndPermutation checks property 2: the sorted array is
// non-decreasing in cell_index and a permutation of the input multiset, and
// exercises S4 (random cell_index in [0, 100), N=1024).
func TestSortNonDecreasingAndPermutation(t *testing.T) {
	cfg := baseTestConfig(t)
	cfg.World.InstanceCount = 1024
	cfg.computeDerived()

	rngState := uint64(12345)
	nextRand := func() uint32 {
		rngState = rngState*6364136223846793005 + 1442695040888963407
		return uint32(rngState >> 32)
	}

	instances := make([]types.GPUInstance, cfg.Derived.PaddedCount)
	before := make(map[uint32]int)
	for i := 0; i < cfg.World.InstanceCount; i++ {
		cell := nextRand() % 100
		instances[i] = types.GPUInstance{ID: uint32(i), CellIndex: cell}
		before[cell]++
	}
	for i := cfg.World.InstanceCount; i < len(instances); i++ {
		instances[i] = types.GPUInstance{ID: paddingSentinel, CellIndex: paddingSentinel}
	}

	ref := NewReference(cfg, instances)
	ref.sort()

	after := make(map[uint32]int)
	for i, inst := range ref.instances {
		if i > 0 && ref.instances[i-1].CellIndex > inst.CellIndex {
			t.Fatalf("array not non-decreasing at index %d: %d > %d", i, ref.instances[i-1].CellIndex, inst.CellIndex)
		}
		if inst.CellIndex != paddingSentinel {
			after[inst.CellIndex]++
		}
	}
	for cell, count := range before {
		if after[cell] != count {
			t.Fatalf("cell %d: had %d instances before sort, %d after", cell, count, after[cell])
		}
	}
}

// TestCellTableExactness checks property 3 and scenario S5: every range
// concatenates to [0, N) exactly once and matches the set of instances with
// that cell_index.
func TestCellTableExactness(t *testing.T) {
	cfg := baseTestConfig(t)
	cfg.World.InstanceCount = 64
	cfg.computeDerived()

	instances := make([]types.GPUInstance, cfg.Derived.PaddedCount)
	for i := 0; i < cfg.World.InstanceCount; i++ {
		instances[i] = types.GPUInstance{ID: uint32(i), CellIndex: uint32(i) % 5}
	}
	for i := cfg.World.InstanceCount; i < len(instances); i++ {
		instances[i] = types.GPUInstance{ID: paddingSentinel, CellIndex: paddingSentinel}
	}

	ref := NewReference(cfg, instances)
	ref.sort()
	cells := ref.buildCellRanges()

	seen := make([]bool, cfg.World.InstanceCount)
	for cell, rng := range cells {
		for i := rng.Start; i < rng.End; i++ {
			inst := ref.instances[i]
			if inst.CellIndex != uint32(cell) {
				t.Fatalf("range for cell %d covers instance with cell_index %d", cell, inst.CellIndex)
			}
			seen[inst.ID] = true
		}
	}
	for id, wasSeen := range seen {
		if !wasSeen {
			t.Fatalf("instance %d not covered by any cell range", id)
		}
	}

	for cell, rng := range cells {
		if rng.Start == rng.End {
			for _, inst := range ref.instances[:cfg.World.InstanceCount] {
				if inst.CellIndex == uint32(cell) {
					t.Fatalf("cell %d reports empty range but instance %d claims it", cell, inst.ID)
				}
			}
		}
	}
}

// TestConservationOfCount checks property 5 across a full sub-step: the
// instance count, including padding, never changes.
func TestConservationOfCount(t *testing.T) {
	cfg := baseTestConfig(t)
	cfg.World.InstanceCount = 50
	cfg.computeDerived()

	instances := defaultScenarioInstances(cfg)
	ref := NewReference(cfg, instances)
	before := len(ref.instances)
	ref.SubStep()
	if len(ref.instances) != before {
		t.Fatalf("instance count changed from %d to %d", before, len(ref.instances))
	}
}

// TestEnergyMonotonicityUnderDrag checks property 6: with gravity zero and no
// boundary contact, kinetic energy strictly decreases under drag.
func TestEnergyMonotonicityUnderDrag(t *testing.T) {
	cfg := baseTestConfig(t)
	cfg.Physics.Gravity = 0
	cfg.World.InstanceCount = 2
	cfg.World.Boundary = 1000
	cfg.World.GridSize = 100
	cfg.computeDerived()

	instances := make([]types.GPUInstance, cfg.Derived.PaddedCount)
	instances[0] = types.GPUInstance{ID: 0, Radius: 0.3, Position: [3]float32{0, 0, 0}, Velocity: [3]float32{5, 0, 0}}
	instances[1] = types.GPUInstance{ID: 1, Radius: 0.3, Position: [3]float32{500, 500, 500}, Velocity: [3]float32{0, 0, 0}}
	for i := 2; i < len(instances); i++ {
		instances[i] = types.GPUInstance{ID: paddingSentinel, CellIndex: paddingSentinel}
	}

	ref := NewReference(cfg, instances)
	kineticEnergy := func() float64 {
		speedsSquared := make([]float64, 0, len(ref.instances))
		for _, inst := range ref.instances {
			if inst.ID == paddingSentinel {
				continue
			}
			v := length3(inst.Velocity)
			speedsSquared = append(speedsSquared, float64(v)*float64(v))
		}
		return floats.Sum(speedsSquared)
	}

	prev := kineticEnergy()
	for step := 0; step < 10; step++ {
		ref.SubStep()
		cur := kineticEnergy()
		if cur >= prev {
			t.Fatalf("sub-step %d: kinetic energy did not strictly decrease (%f -> %f)", step, prev, cur)
		}
		prev = cur
	}
}

func defaultScenarioInstances(cfg *Config) []types.GPUInstance {
	instances := make([]types.GPUInstance, cfg.Derived.PaddedCount)
	for i := 0; i < cfg.World.InstanceCount; i++ {
		instances[i] = types.GPUInstance{
			ID:       uint32(i),
			Radius:   cfg.World.MinRadius,
			Position: [3]float32{float32(i%8) - 4, float32((i/8)%8) - 4, float32(i/64) - 4},
		}
	}
	for i := cfg.World.InstanceCount; i < len(instances); i++ {
		instances[i] = types.GPUInstance{ID: paddingSentinel, CellIndex: paddingSentinel}
	}
	return instances
}

// TestScenarioS1SingleFallingSphere exercises S1: after 120 sub-steps at
// Δt=1/240 a sphere released from rest at half the cube height has fallen
// and is still moving downward.
func TestScenarioS1SingleFallingSphere(t *testing.T) {
	cfg := baseTestConfig(t)
	cfg.World.InstanceCount = 1
	cfg.World.Boundary = 10
	cfg.Physics.TimeStep = 1.0 / 240.0
	cfg.computeDerived()

	instances := make([]types.GPUInstance, cfg.Derived.PaddedCount)
	instances[0] = types.GPUInstance{ID: 0, Radius: cfg.World.MinRadius, Position: [3]float32{0, 0.5 * cfg.World.Boundary, 0}}
	for i := 1; i < len(instances); i++ {
		instances[i] = types.GPUInstance{ID: paddingSentinel, CellIndex: paddingSentinel}
	}

	ref := NewReference(cfg, instances)
	for i := 0; i < 120; i++ {
		ref.SubStep()
	}

	startY := 0.5 * cfg.World.Boundary
	elapsed := float32(120) * cfg.Physics.TimeStep
	bound := startY - 0.5*cfg.Physics.Gravity*elapsed*elapsed
	const tol = 0.5

	sorted := sortByID(ref.instances)
	fallen := sorted[0]
	if fallen.Position[1] >= bound+tol {
		t.Fatalf("sphere did not fall far enough: y=%f, want < %f", fallen.Position[1], bound+tol)
	}
	if fallen.Velocity[1] >= 0 {
		t.Fatalf("sphere velocity.y = %f, want < 0", fallen.Velocity[1])
	}
}

// TestScenarioS2HeadOnPair exercises S2: two equal spheres approaching head on
// with no gravity or drag must both reverse direction on contact without
// gaining speed.
func TestScenarioS2HeadOnPair(t *testing.T) {
	cfg := baseTestConfig(t)
	cfg.World.InstanceCount = 2
	cfg.World.Boundary = 20
	cfg.World.MinRadius = 0.5
	cfg.World.MaxRadius = 0.5
	cfg.World.GridSize = 1.0
	cfg.Physics.Gravity = 0
	cfg.Physics.Drag = 0
	cfg.Physics.TimeStep = 1.0 / 240.0
	cfg.computeDerived()

	instances := make([]types.GPUInstance, cfg.Derived.PaddedCount)
	instances[0] = types.GPUInstance{ID: 0, Radius: 0.5, Position: [3]float32{-1, 0, 0}, Velocity: [3]float32{1, 0, 0}}
	instances[1] = types.GPUInstance{ID: 1, Radius: 0.5, Position: [3]float32{1, 0, 0}, Velocity: [3]float32{-1, 0, 0}}
	for i := 2; i < len(instances); i++ {
		instances[i] = types.GPUInstance{ID: paddingSentinel, CellIndex: paddingSentinel}
	}

	ref := NewReference(cfg, instances)
	speedBefore := length3(instances[0].Velocity)

	var reversed bool
	for step := 0; step < 2000 && !reversed; step++ {
		ref.SubStep()
		sorted := sortByID(ref.instances)
		if sorted[0].Velocity[0] < 0 && sorted[1].Velocity[0] > 0 {
			reversed = true
			for _, inst := range sorted[:2] {
				speedAfter := length3(inst.Velocity)
				if speedAfter > speedBefore+1e-3 {
					t.Fatalf("instance %d speed increased on contact: %f -> %f", inst.ID, speedBefore, speedAfter)
				}
			}
		}
	}
	if !reversed {
		t.Fatalf("spheres never reversed direction within the step budget")
	}
}

// TestScenarioS3PackedGrid exercises S3: an 8x8x8 lattice at rest with no
// gravity settles into exactly one instance per occupied cell and barely
// moves.
func TestScenarioS3PackedGrid(t *testing.T) {
	cfg := baseTestConfig(t)
	cfg.World.InstanceCount = 512
	cfg.World.Boundary = 20
	cfg.World.GridSize = 1.0
	cfg.World.MinRadius = 0.2
	cfg.World.MaxRadius = 0.2
	cfg.Physics.Gravity = 0
	cfg.Physics.TimeStep = 1.0 / 240.0
	cfg.computeDerived()

	instances := make([]types.GPUInstance, cfg.Derived.PaddedCount)
	idx := 0
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			for z := 0; z < 8; z++ {
				instances[idx] = types.GPUInstance{
					ID:     uint32(idx),
					Radius: 0.2,
					Position: [3]float32{
						float32(x) - 3.5,
						float32(y) - 3.5,
						float32(z) - 3.5,
					},
				}
				idx++
			}
		}
	}
	for i := idx; i < len(instances); i++ {
		instances[i] = types.GPUInstance{ID: paddingSentinel, CellIndex: paddingSentinel}
	}

	before := make([]types.GPUInstance, len(instances))
	copy(before, instances)

	ref := NewReference(cfg, instances)
	ref.assign()
	ref.sort()
	cells := ref.buildCellRanges()

	for cell, rng := range cells {
		count := rng.End - rng.Start
		if count > 1 {
			t.Fatalf("cell %d holds %d instances, want at most 1", cell, count)
		}
	}

	ref.integrate(cells)

	dt := cfg.Physics.TimeStep
	// K·Δt², with K the contact stiffness: bound on numerical noise per sub-step
	maxDrift := cfg.Physics.Stiffness * dt * dt

	beforeByID := sortByID(before)
	afterByID := sortByID(ref.instances)
	for i := range beforeByID {
		if beforeByID[i].ID == paddingSentinel {
			continue
		}
		d := length3(sub3(afterByID[i].Position, beforeByID[i].Position))
		if d > maxDrift {
			t.Fatalf("instance %d drifted %f, want <= %f", beforeByID[i].ID, d, maxDrift)
		}
	}
}

// TestScenarioS6BoundaryTrap exercises S6: a sphere placed just inside the
// boundary and moving outward must have its velocity reflected within one
// sub-step.
func TestScenarioS6BoundaryTrap(t *testing.T) {
	cfg := baseTestConfig(t)
	cfg.World.InstanceCount = 1
	cfg.World.Boundary = 10
	cfg.Physics.TimeStep = 1.0 / 240.0
	cfg.computeDerived()

	r := cfg.World.MinRadius
	instances := make([]types.GPUInstance, cfg.Derived.PaddedCount)
	instances[0] = types.GPUInstance{
		ID:       0,
		Radius:   r,
		Position: [3]float32{cfg.World.Boundary - 0.1*r, 0, 0},
		Velocity: [3]float32{10, 0, 0},
	}
	for i := 1; i < len(instances); i++ {
		instances[i] = types.GPUInstance{ID: paddingSentinel, CellIndex: paddingSentinel}
	}

	ref := NewReference(cfg, instances)
	ref.SubStep()

	sorted := sortByID(ref.instances)
	// The boundary rule reflects with coefficient 1, not Restitution (0.85 in
	// the default config): an incoming speed of 10 should come back out close
	// to -10 (attenuated only by one sub-step of drag), not close to -8.5.
	if sorted[0].Velocity[0] >= -9.0 {
		t.Fatalf("velocity.x = %f after boundary contact, want close to -10 (coefficient-1 reflection), not attenuated by restitution", sorted[0].Velocity[0])
	}
}
