package sim

import (
	"github.com/0x0cqq/gpucollide/engine/renderer/bind_group_provider"
	"github.com/0x0cqq/gpucollide/engine/renderer/pipeline"
)

// IntegrateStage is the only stage that reads physics: for every instance it
// accumulates penalty-method contact forces from its 27-cell neighborhood,
// adds gravity and air drag, reflects off the cube boundary, and scatters the
// updated position/velocity into both the sorted instance slot and the
// stable-id-addressed results buffer. Grounded on spec §4.5.
type IntegrateStage struct {
	pipeline    pipeline.Pipeline
	providers   map[int]bind_group_provider.BindGroupProvider
	paddedCount uint32
}

func (s *IntegrateStage) Name() string { return "integrate" }

func (s *IntegrateStage) Dispatch(d *Device) error {
	groups := workgroupCount1D(s.paddedCount, 64)
	return d.Dispatch(s.pipeline, s.providers, [3]uint32{groups, 1, 1})
}
