package sim

import (
	"gonum.org/v1/gonum/stat"

	"github.com/0x0cqq/gpucollide/sim/types"
)

// PopulationStats summarizes a result set's kinetic energy and boundary
// containment margin across the whole instance population, the two
// diagnostics the bench command and the reference model's scenario checks
// both care about: is the system gaining energy it shouldn't (a penalty-force
// or drag bug), and how close is any sphere to escaping the cube (a
// boundary-reflection bug).
type PopulationStats struct {
	MeanKineticEnergy float64
	VarKineticEnergy  float64
	MeanMargin        float64
	VarMargin         float64
}

// ComputePopulationStats reduces a readback result set plus the instance
// radii it corresponds to into mean/variance statistics via
// gonum.org/v1/gonum/stat (unweighted: nil weights), mirroring the mean/variance idiom the
// donor pack's own analysis code uses for population-level summaries rather
// than hand-rolled accumulation.
func ComputePopulationStats(results []types.GPUResult, instances []types.GPUInstance, boundary float32) PopulationStats {
	radiusByID := make(map[uint32]float32, len(instances))
	for _, inst := range instances {
		if inst.ID == paddingSentinel {
			continue
		}
		radiusByID[inst.ID] = inst.Radius
	}

	energies := make([]float64, 0, len(results))
	margins := make([]float64, 0, len(results))

	for id, r := range results {
		radius, ok := radiusByID[uint32(id)]
		if !ok {
			continue
		}
		mass := float64(radius * radius * radius)
		speedSq := float64(r.Velocity[0]*r.Velocity[0] + r.Velocity[1]*r.Velocity[1] + r.Velocity[2]*r.Velocity[2])
		energies = append(energies, 0.5*mass*speedSq)

		margins = append(margins, float64(nearestFaceMargin(r.Position, radius, boundary)))
	}

	if len(energies) == 0 {
		return PopulationStats{}
	}

	meanE, varE := stat.MeanVariance(energies, nil)
	meanM, varM := stat.MeanVariance(margins, nil)
	return PopulationStats{
		MeanKineticEnergy: meanE,
		VarKineticEnergy:  varE,
		MeanMargin:        meanM,
		VarMargin:         varM,
	}
}

// nearestFaceMargin returns the smallest distance from a sphere's surface to
// any of the six cube faces; negative means the sphere has breached that face.
func nearestFaceMargin(pos [3]float32, radius, boundary float32) float32 {
	margin := boundary - absFloat32(pos[0]) - radius
	for _, axis := range [2]int{1, 2} {
		m := boundary - absFloat32(pos[axis]) - radius
		if m < margin {
			margin = m
		}
	}
	return margin
}
