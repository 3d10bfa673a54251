package types

import "testing"

func TestGPUParametersLayout(t *testing.T) {
	p := GPUParameters{TimeStep: 0.01, Boundary: 10, GridSize: 1, Stiffness: 1000, Gravity: 9.8, Drag: 0.01, Restitution: 0.85}
	if p.Size() != 32 {
		t.Fatalf("GPUParameters.Size() = %d, want 32", p.Size())
	}
	if len(p.Marshal()) != p.Size() {
		t.Fatalf("Marshal() length = %d, want %d", len(p.Marshal()), p.Size())
	}
}

func TestGPUInstanceRoundTrip(t *testing.T) {
	want := GPUInstance{
		ID:        42,
		Radius:    0.37,
		CellIndex: 1234,
		Position:  [3]float32{1.5, -2.25, 3.125},
		Velocity:  [3]float32{-0.5, 0, 9.8},
	}
	got := UnmarshalGPUInstance(want.Marshal())
	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestGPUInstancePaddingSentinelRoundTrip(t *testing.T) {
	want := GPUInstance{ID: 0xFFFFFFFF, CellIndex: 0xFFFFFFFF}
	got := UnmarshalGPUInstance(want.Marshal())
	if got.ID != 0xFFFFFFFF || got.CellIndex != 0xFFFFFFFF {
		t.Fatalf("sentinel did not survive round trip: got %+v", got)
	}
}

func TestGPUResultRoundTrip(t *testing.T) {
	want := GPUResult{
		Position: [3]float32{10, -10, 0},
		Velocity: [3]float32{0.1, 0.2, -0.3},
	}
	got := UnmarshalGPUResult(want.Marshal())
	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestUnmarshalGPUInstancesSlice(t *testing.T) {
	want := []GPUInstance{
		{ID: 0, Radius: 0.1},
		{ID: 1, Radius: 0.2},
		{ID: 2, Radius: 0.3},
	}
	buf := make([]byte, 0, len(want)*(&GPUInstance{}).Size())
	for i := range want {
		buf = append(buf, want[i].Marshal()...)
	}
	got := UnmarshalGPUInstances(buf)
	if len(got) != len(want) {
		t.Fatalf("got %d instances, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("instance %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestGPUCellIndexRoundTrip(t *testing.T) {
	want := GPUCellIndex{Start: 5, End: 9}
	got := UnmarshalGPUCellIndex(want.Marshal())
	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestGPUSortParamsMarshal(t *testing.T) {
	s := GPUSortParams{J: 2, K: 4}
	buf := s.Marshal()
	if len(buf) != 8 {
		t.Fatalf("Marshal() length = %d, want 8", len(buf))
	}
}
