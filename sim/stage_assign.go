package sim

import (
	"github.com/0x0cqq/gpucollide/engine/renderer/bind_group_provider"
	"github.com/0x0cqq/gpucollide/engine/renderer/pipeline"
)

// AssignStage computes every instance's cell_index from its current position.
// Grounded on spec §4.2: workgroup size 64, one thread per instance.
type AssignStage struct {
	pipeline    pipeline.Pipeline
	providers   map[int]bind_group_provider.BindGroupProvider
	paddedCount uint32
}

func (s *AssignStage) Name() string { return "assign" }

func (s *AssignStage) Dispatch(d *Device) error {
	groups := workgroupCount1D(s.paddedCount, 64)
	return d.Dispatch(s.pipeline, s.providers, [3]uint32{groups, 1, 1})
}

// workgroupCount1D returns the number of workgroups of the given size needed
// to cover n elements along a single dimension.
func workgroupCount1D(n, size uint32) uint32 {
	return (n + size - 1) / size
}
