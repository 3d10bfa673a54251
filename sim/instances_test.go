package sim

import "testing"

func TestSeedRandomInstancesDeterministic(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") returned error: %v", err)
	}
	cfg.World.InstanceCount = 300
	cfg.computeDerived()

	a := SeedRandomInstances(cfg, 7)
	b := SeedRandomInstances(cfg, 7)
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("instance %d differs between identically seeded runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSeedRandomInstancesBoundsAndPadding(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") returned error: %v", err)
	}
	cfg.World.InstanceCount = 100
	cfg.computeDerived()

	instances := SeedRandomInstances(cfg, 1)
	if uint32(len(instances)) != cfg.Derived.PaddedCount {
		t.Fatalf("len(instances) = %d, want PaddedCount %d", len(instances), cfg.Derived.PaddedCount)
	}

	for i := 0; i < cfg.World.InstanceCount; i++ {
		inst := instances[i]
		if inst.ID != uint32(i) {
			t.Fatalf("instance %d has ID %d", i, inst.ID)
		}
		if inst.Radius < cfg.World.MinRadius || inst.Radius > cfg.World.MaxRadius {
			t.Fatalf("instance %d radius %f out of [%f, %f]", i, inst.Radius, cfg.World.MinRadius, cfg.World.MaxRadius)
		}
		span := cfg.World.Boundary - inst.Radius
		for axis := 0; axis < 3; axis++ {
			if inst.Position[axis] < -span || inst.Position[axis] > span {
				t.Fatalf("instance %d axis %d position %f outside [-%f, %f]", i, axis, inst.Position[axis], span, span)
			}
		}
	}

	for i := cfg.World.InstanceCount; i < len(instances); i++ {
		inst := instances[i]
		if inst.ID != paddingSentinel || inst.CellIndex != paddingSentinel {
			t.Fatalf("padding slot %d is not sentinel: %+v", i, inst)
		}
	}
}
