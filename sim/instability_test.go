package sim

import (
	"math"
	"testing"

	"github.com/0x0cqq/gpucollide/sim/types"
)

func TestDetectInstabilityNone(t *testing.T) {
	results := []types.GPUResult{
		{Position: [3]float32{1, 2, 3}},
		{Position: [3]float32{-1, -2, -3}},
	}
	if got := DetectInstability(results); got != nil {
		t.Fatalf("DetectInstability() = %+v, want nil", got)
	}
}

func TestDetectInstabilityFindsNaN(t *testing.T) {
	results := []types.GPUResult{
		{Position: [3]float32{1, 2, 3}},
		{Position: [3]float32{float32(math.NaN()), 0, 0}},
		{Velocity: [3]float32{0, float32(math.NaN()), 0}},
	}
	got := DetectInstability(results)
	want := []uint32{1, 2}
	if len(got) != len(want) {
		t.Fatalf("DetectInstability() = %+v, want %d entries", got, len(want))
	}
	for i, id := range want {
		if got[i].InstanceID != id {
			t.Fatalf("got[%d].InstanceID = %d, want %d", i, got[i].InstanceID, id)
		}
	}
	// NaN never compares equal to itself, so compare the position bit patterns.
	for axis := range got[0].Position {
		if math.Float32bits(got[0].Position[axis]) != math.Float32bits(results[1].Position[axis]) {
			t.Fatalf("got[0].Position = %v, want %v", got[0].Position, results[1].Position)
		}
	}
}
