package sim

import (
	"github.com/0x0cqq/gpucollide/engine/renderer/bind_group_provider"
	"github.com/0x0cqq/gpucollide/engine/renderer/pipeline"
)

// CellRangeStage builds the per-cell [start, end) table from the sorted
// instance array. Grounded on spec §4.4: a wide strided clear pass (workgroup
// size 256) followed by a boundary-detection pass (workgroup size 64) that
// needs no atomics because every write is uniquely owned by its thread.
type CellRangeStage struct {
	clearPipeline  pipeline.Pipeline
	buildPipeline  pipeline.Pipeline
	clearProviders map[int]bind_group_provider.BindGroupProvider
	buildProviders map[int]bind_group_provider.BindGroupProvider
	paddedCount    uint32
	totalCells     uint32
}

func (s *CellRangeStage) Name() string { return "cell_range" }

func (s *CellRangeStage) Dispatch(d *Device) error {
	clearGroups := workgroupCount1D(s.totalCells, 256)
	if err := d.Dispatch(s.clearPipeline, s.clearProviders, [3]uint32{clearGroups, 1, 1}); err != nil {
		return err
	}

	buildGroups := workgroupCount1D(s.paddedCount, 64)
	return d.Dispatch(s.buildPipeline, s.buildProviders, [3]uint32{buildGroups, 1, 1})
}
