package sim

import (
	"math"
	"sort"

	"github.com/0x0cqq/gpucollide/sim/types"
)

// Reference is an unoptimized, single-threaded CPU re-implementation of the
// four compute stages. It exists purely so tests can assert the GPU pipeline
// agrees with a trivially-correct-by-inspection model on small instance
// counts (spec §8's determinism and cross-validation properties); it makes no
// attempt to be fast and never touches a GPU resource.
type Reference struct {
	cfg       *Config
	instances []types.GPUInstance
}

// NewReference seeds a reference model from an explicit instance set. The
// slice is copied; padding sentinel slots (ID == 0xFFFFFFFF) are preserved as
// inert exactly like the GPU pipeline.
func NewReference(cfg *Config, instances []types.GPUInstance) *Reference {
	copied := make([]types.GPUInstance, len(instances))
	copy(copied, instances)
	return &Reference{cfg: cfg, instances: copied}
}

// Instances returns the current (sorted) instance array, including padding.
func (r *Reference) Instances() []types.GPUInstance {
	return r.instances
}

// SubStep runs Assign, Sort, CellRange, and Integrate once, in that order,
// mutating the reference's instance array and returning the per-id results
// this sub-step produced.
func (r *Reference) SubStep() []types.GPUResult {
	r.assign()
	r.sort()
	cells := r.buildCellRanges()
	return r.integrate(cells)
}

func (r *Reference) gridDim() uint32 {
	return uint32(math.Ceil(float64(2*r.cfg.World.Boundary/r.cfg.World.GridSize) + 0.5))
}

func (r *Reference) flattenCell(gx, gy, gz uint32, dim uint32) uint32 {
	return gx + gy*dim + gz*dim*dim
}

func (r *Reference) cellCoords(cell, dim uint32) (uint32, uint32, uint32) {
	z := cell / (dim * dim)
	rem := cell % (dim * dim)
	y := rem / dim
	x := rem % dim
	return x, y, z
}

// assign recomputes cell_index for every non-padding instance, matching
// sim/shaders/grid_assign.wgsl exactly, including the clamp-to-last-cell
// fallback for positions that land outside the grid due to floating rounding
// at the boundary.
func (r *Reference) assign() {
	dim := r.gridDim()
	totalCells := dim * dim * dim
	boundary := r.cfg.World.Boundary
	gridSize := r.cfg.World.GridSize

	for i := range r.instances {
		inst := &r.instances[i]
		if inst.ID == paddingSentinel {
			continue
		}

		offX := inst.Position[0] + boundary
		offY := inst.Position[1] + boundary
		offZ := inst.Position[2] + boundary

		gx := uint32(maxFloat32(offX, 0) / gridSize)
		gy := uint32(maxFloat32(offY, 0) / gridSize)
		gz := uint32(maxFloat32(offZ, 0) / gridSize)

		cell := r.flattenCell(gx, gy, gz, dim)
		if cell >= totalCells {
			cell = totalCells - 1
		}
		inst.CellIndex = cell
	}
}

// sort orders the instance array by cell_index using the same bitonic
// comparison network as sim/shaders/bitonic_sort.wgsl, rather than a native
// sort, so the reference exercises the identical compare-and-swap sequence
// the GPU dispatch schedule drives through SortStage.
func (r *Reference) sort() {
	n := uint32(len(r.instances))
	for _, pass := range BuildSortSchedule(n) {
		for i := uint32(0); i < n; i++ {
			partner := i ^ pass.J
			if partner <= i || partner >= n {
				continue
			}
			ascending := i&pass.K == 0
			a, b := r.instances[i], r.instances[partner]
			swap := a.CellIndex > b.CellIndex
			if !ascending {
				swap = a.CellIndex < b.CellIndex
			}
			if swap {
				r.instances[i], r.instances[partner] = b, a
			}
		}
	}
}

// buildCellRanges reproduces sim/shaders/cell_build.wgsl's boundary-detection
// pass over the now-sorted array.
func (r *Reference) buildCellRanges() []types.GPUCellIndex {
	cells := make([]types.GPUCellIndex, r.cfg.Derived.TotalCells)
	n := uint32(len(r.instances))

	for idx := uint32(0); idx < n; idx++ {
		inst := r.instances[idx]
		if idx == 0 {
			if inst.CellIndex != paddingSentinel {
				cells[inst.CellIndex].Start = 0
			}
		} else {
			prev := r.instances[idx-1]
			if inst.CellIndex != prev.CellIndex {
				if inst.CellIndex != paddingSentinel {
					cells[inst.CellIndex].Start = idx
				}
				if prev.CellIndex != paddingSentinel {
					cells[prev.CellIndex].End = idx
				}
			}
		}

		if idx == n-1 && inst.CellIndex != paddingSentinel {
			cells[inst.CellIndex].End = n
		}
	}

	return cells
}

// integrate reproduces sim/shaders/integrate.wgsl's 27-cell neighborhood scan,
// penalty-method contact accumulation, gravity, boundary reflection, and drag.
func (r *Reference) integrate(cells []types.GPUCellIndex) []types.GPUResult {
	dim := r.gridDim()
	boundary := r.cfg.World.Boundary
	dt := r.cfg.Physics.TimeStep
	stiffness := r.cfg.Physics.Stiffness
	gravity := r.cfg.Physics.Gravity
	drag := r.cfg.Physics.Drag
	n := uint32(len(r.instances))

	results := make([]types.GPUResult, r.cfg.World.InstanceCount)
	updated := make([]types.GPUInstance, n)
	copy(updated, r.instances)

	for idx := uint32(0); idx < n; idx++ {
		inst := r.instances[idx]
		if inst.ID == paddingSentinel {
			continue
		}

		cx, cy, cz := r.cellCoords(inst.CellIndex, dim)

		var force [3]float32
		for dz := -1; dz <= 1; dz++ {
			nz := int(cz) + dz
			if nz < 0 || nz >= int(dim) {
				continue
			}
			for dy := -1; dy <= 1; dy++ {
				ny := int(cy) + dy
				if ny < 0 || ny >= int(dim) {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := int(cx) + dx
					if nx < 0 || nx >= int(dim) {
						continue
					}

					neighborCell := uint32(nx) + uint32(ny)*dim + uint32(nz)*dim*dim
					rng := cells[neighborCell]
					for j := rng.Start; j < rng.End; j++ {
						if j == idx {
							continue
						}
						other := r.instances[j]
						rel := sub3(inst.Position, other.Position)
						d := length3(rel)
						overlap := inst.Radius + other.Radius - d
						if overlap > 0 && d > 0 {
							scale := stiffness * overlap / d
							force[0] += scale * rel[0]
							force[1] += scale * rel[1]
							force[2] += scale * rel[2]
						}
					}
				}
			}
		}

		mass := inst.Radius * inst.Radius * inst.Radius
		accel := [3]float32{
			force[0] / mass,
			force[1]/mass - gravity,
			force[2] / mass,
		}

		v1 := [3]float32{
			inst.Velocity[0] + accel[0]*dt,
			inst.Velocity[1] + accel[1]*dt,
			inst.Velocity[2] + accel[2]*dt,
		}

		if inst.Position[0]+inst.Radius > boundary {
			v1[0] = -absFloat32(v1[0])
		} else if inst.Position[0]-inst.Radius < -boundary {
			v1[0] = absFloat32(v1[0])
		}
		if inst.Position[1]+inst.Radius > boundary {
			v1[1] = -absFloat32(v1[1])
		} else if inst.Position[1]-inst.Radius < -boundary {
			v1[1] = absFloat32(v1[1])
		}
		if inst.Position[2]+inst.Radius > boundary {
			v1[2] = -absFloat32(v1[2])
		} else if inst.Position[2]-inst.Radius < -boundary {
			v1[2] = absFloat32(v1[2])
		}

		p1 := [3]float32{
			inst.Position[0] + inst.Velocity[0]*dt + 0.5*accel[0]*dt*dt,
			inst.Position[1] + inst.Velocity[1]*dt + 0.5*accel[1]*dt*dt,
			inst.Position[2] + inst.Velocity[2]*dt + 0.5*accel[2]*dt*dt,
		}

		speed := length3(v1)
		dragFactor := 1 - drag*speed*speed*speed*dt
		v2 := [3]float32{v1[0] * dragFactor, v1[1] * dragFactor, v1[2] * dragFactor}

		results[inst.ID] = types.GPUResult{Position: p1, Velocity: v2}

		updated[idx].Position = p1
		updated[idx].Velocity = v2
	}

	r.instances = updated
	return results
}

func maxFloat32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func absFloat32(a float32) float32 {
	if a < 0 {
		return -a
	}
	return a
}

func sub3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func length3(v [3]float32) float32 {
	return float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
}

// sortByID returns a copy of instances ordered by stable ID ascending, with
// padding sentinels sorted last. Test helper: the GPU array is ordered by
// cell_index after a sub-step, not by ID, so comparisons against expected
// per-instance values need a stable reordering first.
func sortByID(instances []types.GPUInstance) []types.GPUInstance {
	out := make([]types.GPUInstance, len(instances))
	copy(out, instances)
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}
