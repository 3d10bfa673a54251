package sim

import (
	"math"

	"github.com/0x0cqq/gpucollide/sim/types"
)

// DetectInstability scans a results readback for NaN positions or velocities
// and reports the offending stable ids and their position from the readback. The
// core never checks this itself: numerical blowup is an advisory the host
// opts into checking, not a fault the pipeline raises on its own.
func DetectInstability(results []types.GPUResult) []Instability {
	var out []Instability
	for id, r := range results {
		if hasNaN(r.Position) || hasNaN(r.Velocity) {
			out = append(out, Instability{InstanceID: uint32(id), Position: r.Position})
		}
	}
	if len(out) > 0 {
		logger.Printf("instability: %d instance(s) blew up, candidates for reseed", len(out))
	}
	return out
}

func hasNaN(v [3]float32) bool {
	return math.IsNaN(float64(v[0])) || math.IsNaN(float64(v[1])) || math.IsNaN(float64(v[2]))
}
