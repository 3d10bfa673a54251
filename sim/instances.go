package sim

import (
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/0x0cqq/gpucollide/sim/types"
)

// paddingSentinel marks a slot in the padded instance array as inert: it never
// participates in Assign or Integrate and always sorts to the tail of the
// array, matching sim/shaders/grid_assign.wgsl and sim/shaders/integrate.wgsl.
const paddingSentinel = 0xFFFFFFFF

// SeedRandomInstances creates cfg.World.InstanceCount spheres with random
// position inside the cube [-boundary, +boundary]^3 and random velocity, then
// pads the array up to cfg.Derived.PaddedCount with inert sentinel slots so
// the bitonic sort (which requires a power-of-two element count) has a
// well-defined tail. Generation is split across a worker pool the way the
// donor engine splits per-frame animator prep work, since each instance's
// random draw is independent.
func SeedRandomInstances(cfg *Config, seed uint64) []types.GPUInstance {
	n := cfg.World.InstanceCount
	out := make([]types.GPUInstance, cfg.Derived.PaddedCount)

	workers := max(1, runtime.NumCPU()-1)
	pool := worker.NewDynamicWorkerPool(workers, 256, time.Second)

	const chunkSize = 256
	var wg sync.WaitGroup
	taskID := 0
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		s, e := start, end
		id := taskID
		taskID++
		chunkSeed := seed + uint64(start)
		pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				rng := rand.New(rand.NewPCG(chunkSeed, chunkSeed^0x9E3779B97F4A7C15))
				for i := s; i < e; i++ {
					out[i] = randomInstance(cfg, rng, uint32(i))
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	if padded := len(out) - n; padded > 0 {
		logger.Printf("padding: %d sentinel slot(s) appended to reach a power-of-two count of %d", padded, len(out))
	}
	for i := n; i < len(out); i++ {
		out[i] = types.GPUInstance{
			ID:        paddingSentinel,
			CellIndex: paddingSentinel,
		}
	}

	return out
}

func randomInstance(cfg *Config, rng *rand.Rand, id uint32) types.GPUInstance {
	radius := cfg.World.MinRadius + rng.Float32()*(cfg.World.MaxRadius-cfg.World.MinRadius)
	span := cfg.World.Boundary - radius

	return types.GPUInstance{
		ID:     id,
		Radius: radius,
		Position: [3]float32{
			(rng.Float32()*2 - 1) * span,
			(rng.Float32()*2 - 1) * span,
			(rng.Float32()*2 - 1) * span,
		},
		Velocity: [3]float32{
			(rng.Float32()*2 - 1) * 2,
			(rng.Float32()*2 - 1) * 2,
			(rng.Float32()*2 - 1) * 2,
		},
	}
}
