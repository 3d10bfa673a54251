package sim

import (
	"github.com/0x0cqq/gpucollide/engine/renderer/bind_group_provider"
	"github.com/0x0cqq/gpucollide/engine/renderer/pipeline"
	"github.com/0x0cqq/gpucollide/sim/types"
	"github.com/cogentcore/webgpu/wgpu"
)

// SortStage implements the Batcher bitonic sort over the instance array, keyed
// by cell_index. Grounded on spec §4.3: the host drives the (k, j) schedule,
// rewriting SortParams before every one of log2(N)*(log2(N)+1)/2 dispatches.
type SortStage struct {
	pipeline      pipeline.Pipeline
	providers     map[int]bind_group_provider.BindGroupProvider
	sortParamsBuf *wgpu.Buffer
	paddedCount   uint32
	schedule      []SortPass
}

// NewSortStage builds a SortStage with its (k, j) pass schedule assembled
// once up front via BuildSortSchedule, rather than recomputed every Dispatch.
func NewSortStage(p pipeline.Pipeline, providers map[int]bind_group_provider.BindGroupProvider, sortParamsBuf *wgpu.Buffer, paddedCount uint32) *SortStage {
	return &SortStage{
		pipeline:      p,
		providers:     providers,
		sortParamsBuf: sortParamsBuf,
		paddedCount:   paddedCount,
		schedule:      BuildSortSchedule(paddedCount),
	}
}

func (s *SortStage) Name() string { return "sort" }

// Dispatch runs the full sort sweep: for every (k, j) pass in the
// pre-assembled schedule, write it to SortParams and launch ceil(N/64)
// workgroups.
func (s *SortStage) Dispatch(d *Device) error {
	groups := workgroupCount1D(s.paddedCount, 64)
	for _, pass := range s.schedule {
		params := types.GPUSortParams{J: pass.J, K: pass.K}
		d.WriteBuffer(s.sortParamsBuf, 0, params.Marshal())
		if err := d.Dispatch(s.pipeline, s.providers, [3]uint32{groups, 1, 1}); err != nil {
			return err
		}
	}
	return nil
}
