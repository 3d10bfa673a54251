package sim

import (
	"context"

	"github.com/0x0cqq/gpucollide/common"
	"github.com/0x0cqq/gpucollide/engine/renderer/bind_group_provider"
	"github.com/0x0cqq/gpucollide/engine/renderer/pipeline"
	"github.com/0x0cqq/gpucollide/engine/renderer/shader"
	"github.com/0x0cqq/gpucollide/sim/shaders"
	"github.com/0x0cqq/gpucollide/sim/types"
	"github.com/cogentcore/webgpu/wgpu"
)

// Manager is the Parameter & Buffer Manager of spec §4.1: it owns the five
// long-lived GPU buffers shared by every stage and drives one sub-step at a
// time through Assign, Sort, CellRange, and Integrate in sequence.
type Manager struct {
	device *Device
	cfg    *Config

	parametersBuf *wgpu.Buffer
	instancesBuf  *wgpu.Buffer
	sortParamsBuf *wgpu.Buffer
	cellsBuf      *wgpu.Buffer
	resultsBuf    *wgpu.Buffer

	assign    *AssignStage
	sort      *SortStage
	cellRange *CellRangeStage
	integrate *IntegrateStage
}

// ManagerOption configures a Manager during construction.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	instances []types.GPUInstance
	seed      uint64
}

// WithInitialInstances overrides the default random seeding with an explicit
// instance set. The slice is padded to the next power of two by NewManager if
// it is not already sized that way; callers that want full control over the
// padding sentinel slots should pre-pad it themselves.
func WithInitialInstances(instances []types.GPUInstance) ManagerOption {
	return func(o *managerOptions) {
		o.instances = instances
	}
}

// WithSeed sets the PRNG seed used for the default random instance layout.
// Ignored if WithInitialInstances is also given.
func WithSeed(seed uint64) ManagerOption {
	return func(o *managerOptions) {
		o.seed = seed
	}
}

// NewManager allocates and uploads the five core buffers, compiles the four
// stage pipelines, and wires every bind group the stages need. Fails with
// ResourceError on allocation failure and ConfigError if cfg violates the §3
// invariants (validated already by LoadConfig, re-checked here defensively).
func NewManager(device *Device, cfg *Config, opts ...ManagerOption) (*Manager, error) {
	if cfg.World.GridSize < 2*cfg.World.MaxRadius {
		return nil, &ConfigError{Msg: "grid_size must be >= 2*max_radius"}
	}
	if cfg.World.Boundary <= 0 {
		return nil, &ConfigError{Msg: "boundary must be > 0"}
	}

	o := &managerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	o.seed = common.Coalesce(o.seed, uint64(1))

	instances := o.instances
	if instances == nil {
		instances = SeedRandomInstances(cfg, o.seed)
	}
	if n := uint32(len(instances)); n < cfg.Derived.PaddedCount {
		padded := make([]types.GPUInstance, cfg.Derived.PaddedCount)
		copy(padded, instances)
		for i := n; i < cfg.Derived.PaddedCount; i++ {
			padded[i] = types.GPUInstance{ID: paddingSentinel, CellIndex: paddingSentinel}
		}
		instances = padded
	}
	if uint32(len(instances)) != cfg.Derived.PaddedCount {
		return nil, &ConfigError{Msg: "initial instance slice length must not exceed the padded instance count"}
	}

	m := &Manager{device: device, cfg: cfg}
	if err := m.allocateBuffers(instances); err != nil {
		return nil, err
	}
	if err := m.buildStages(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) allocateBuffers(instances []types.GPUInstance) error {
	params := types.GPUParameters{
		TimeStep:    m.cfg.Physics.TimeStep,
		Boundary:    m.cfg.World.Boundary,
		GridSize:    m.cfg.World.GridSize,
		Stiffness:   m.cfg.Physics.Stiffness,
		Gravity:     m.cfg.Physics.Gravity,
		Drag:        m.cfg.Physics.Drag,
		Restitution: m.cfg.Physics.Restitution,
	}

	instanceData := make([]byte, 0, len(instances)*(&types.GPUInstance{}).Size())
	for i := range instances {
		instanceData = append(instanceData, instances[i].Marshal()...)
	}

	var err error
	m.parametersBuf, err = m.device.CreateBufferWithData("parameters", params.Marshal(), wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	m.instancesBuf, err = m.device.CreateBufferWithData("instances", instanceData, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst|wgpu.BufferUsageCopySrc)
	if err != nil {
		return err
	}
	sortParams := types.GPUSortParams{}
	m.sortParamsBuf, err = m.device.CreateBufferWithData("sort_params", sortParams.Marshal(), wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	cellsSize := uint64(m.cfg.Derived.TotalCells) * uint64((&types.GPUCellIndex{}).Size())
	m.cellsBuf, err = m.device.CreateBuffer("cells", cellsSize, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst|wgpu.BufferUsageCopySrc)
	if err != nil {
		return err
	}
	resultsSize := uint64(m.cfg.World.InstanceCount) * uint64((&types.GPUResult{}).Size())
	m.resultsBuf, err = m.device.CreateBuffer("results", resultsSize, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst|wgpu.BufferUsageCopySrc)
	if err != nil {
		return err
	}
	return nil
}

// groupBuffers maps each resource group index (§4.1) to the shared buffer that
// backs it.
func (m *Manager) groupBuffers() map[int]*wgpu.Buffer {
	return map[int]*wgpu.Buffer{
		0: m.parametersBuf,
		1: m.instancesBuf,
		2: m.sortParamsBuf,
		3: m.cellsBuf,
		4: m.resultsBuf,
	}
}

// providersFor creates one BindGroupProvider per group the shader declares,
// pre-binds each to the manager's shared buffer for that group, and realizes
// the bind group against the shader's parsed layout descriptor.
func (m *Manager) providersFor(label string, s shader.Shader) (map[int]bind_group_provider.BindGroupProvider, error) {
	buffers := m.groupBuffers()
	providers := make(map[int]bind_group_provider.BindGroupProvider)
	for group, descriptor := range s.BindGroupLayoutDescriptors() {
		provider := bind_group_provider.NewBindGroupProvider(label, bind_group_provider.WithBuffer(0, buffers[group]))
		if err := m.device.CreateBindGroup(provider, descriptor, nil, nil); err != nil {
			return nil, err
		}
		providers[group] = provider
	}
	return providers, nil
}

func (m *Manager) buildStages() error {
	assignShader := shader.NewShaderFromSource("grid_assign", shader.ShaderTypeCompute, shaders.GridAssignSource)
	sortShader := shader.NewShaderFromSource("bitonic_sort", shader.ShaderTypeCompute, shaders.BitonicSortSource)
	clearShader := shader.NewShaderFromSource("cell_clear", shader.ShaderTypeCompute, shaders.CellClearSource)
	buildShader := shader.NewShaderFromSource("cell_build", shader.ShaderTypeCompute, shaders.CellBuildSource)
	integrateShader := shader.NewShaderFromSource("integrate", shader.ShaderTypeCompute, shaders.IntegrateSource)

	assignPipeline := pipeline.NewPipeline("grid_assign", pipeline.WithComputeShader(assignShader))
	sortPipeline := pipeline.NewPipeline("bitonic_sort", pipeline.WithComputeShader(sortShader))
	clearPipeline := pipeline.NewPipeline("cell_clear", pipeline.WithComputeShader(clearShader))
	buildPipeline := pipeline.NewPipeline("cell_build", pipeline.WithComputeShader(buildShader))
	integratePipeline := pipeline.NewPipeline("integrate", pipeline.WithComputeShader(integrateShader))

	for _, p := range []pipeline.Pipeline{assignPipeline, sortPipeline, clearPipeline, buildPipeline, integratePipeline} {
		if err := m.device.CreateComputePipeline(p); err != nil {
			return err
		}
	}

	assignProviders, err := m.providersFor("assign", assignShader)
	if err != nil {
		return err
	}
	sortProviders, err := m.providersFor("sort", sortShader)
	if err != nil {
		return err
	}
	clearProviders, err := m.providersFor("cell_clear", clearShader)
	if err != nil {
		return err
	}
	buildProviders, err := m.providersFor("cell_build", buildShader)
	if err != nil {
		return err
	}
	integrateProviders, err := m.providersFor("integrate", integrateShader)
	if err != nil {
		return err
	}

	padded := m.cfg.Derived.PaddedCount
	m.assign = &AssignStage{pipeline: assignPipeline, providers: assignProviders, paddedCount: padded}
	m.sort = NewSortStage(sortPipeline, sortProviders, m.sortParamsBuf, padded)
	m.cellRange = &CellRangeStage{
		clearPipeline:  clearPipeline,
		buildPipeline:  buildPipeline,
		clearProviders: clearProviders,
		buildProviders: buildProviders,
		paddedCount:    padded,
		totalCells:     m.cfg.Derived.TotalCells,
	}
	m.integrate = &IntegrateStage{pipeline: integratePipeline, providers: integrateProviders, paddedCount: padded}
	return nil
}

// WriteTimeStep rewrites only the time_step field of the Parameters buffer.
// Boundary and GridSize are fixed once a Manager is built, matching the
// "only TimeStep may be updated between sub-steps" contract documented on
// Config; callers that need a different boundary or grid size must build a
// new Manager.
func (m *Manager) WriteTimeStep(dt float32) {
	m.cfg.Physics.TimeStep = dt
	params := types.GPUParameters{
		TimeStep:    dt,
		Boundary:    m.cfg.World.Boundary,
		GridSize:    m.cfg.World.GridSize,
		Stiffness:   m.cfg.Physics.Stiffness,
		Gravity:     m.cfg.Physics.Gravity,
		Drag:        m.cfg.Physics.Drag,
		Restitution: m.cfg.Physics.Restitution,
	}
	m.device.WriteBuffer(m.parametersBuf, 0, params.Marshal())
}

// WriteSortParams rewrites the SortParams buffer ahead of a manually driven
// sort dispatch. SubStep does not call this: SortStage writes the same buffer
// itself before each pass. Exposed for callers that want to drive individual
// sort passes (e.g. in tests that check intermediate sort network states).
func (m *Manager) WriteSortParams(k, j uint32) {
	params := types.GPUSortParams{J: j, K: k}
	m.device.WriteBuffer(m.sortParamsBuf, 0, params.Marshal())
}

// SubStep runs Assign -> Sort -> CellRange -> Integrate once, advancing the
// simulation by one time_step.
func (m *Manager) SubStep() error {
	for _, stage := range []Stage{m.assign, m.sort, m.cellRange, m.integrate} {
		if err := stage.Dispatch(m.device); err != nil {
			return err
		}
	}
	return nil
}

// Step runs n sub-steps in sequence, letting the host keep each sub-step's
// time_step small for stability while still advancing a full display frame.
func (m *Manager) Step(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.SubStep(); err != nil {
			return err
		}
	}
	return nil
}

// ReadBackInstances reads the full padded instance buffer back to the host,
// in sorted order. Padding sentinel slots are included; callers that only
// want real instances should filter on ID != 0xFFFFFFFF.
func (m *Manager) ReadBackInstances(ctx context.Context) ([]types.GPUInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	instanceSize := uint64((&types.GPUInstance{}).Size())
	data, err := m.device.ReadBuffer(m.instancesBuf, instanceSize*uint64(m.cfg.Derived.PaddedCount))
	if err != nil {
		return nil, err
	}
	return types.UnmarshalGPUInstances(data), nil
}

// ReadBackResults reads the results buffer, indexed by stable id, back to the
// host. This is the one mandatory host-side await per spec §5: it blocks
// until the device map completes.
func (m *Manager) ReadBackResults(ctx context.Context) ([]types.GPUResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resultSize := uint64((&types.GPUResult{}).Size())
	data, err := m.device.ReadBuffer(m.resultsBuf, resultSize*uint64(m.cfg.World.InstanceCount))
	if err != nil {
		return nil, err
	}
	return types.UnmarshalGPUResults(data), nil
}

// ReadBackCells reads the cell range table back to the host. Useful for the
// cell table exactness property and the S5 scenario.
func (m *Manager) ReadBackCells(ctx context.Context) ([]types.GPUCellIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cellSize := uint64((&types.GPUCellIndex{}).Size())
	data, err := m.device.ReadBuffer(m.cellsBuf, cellSize*uint64(m.cfg.Derived.TotalCells))
	if err != nil {
		return nil, err
	}
	return types.UnmarshalGPUCellIndices(data), nil
}

// Release frees the manager's GPU buffers. The device itself outlives the
// manager and is released separately by the caller.
func (m *Manager) Release() {
	m.parametersBuf.Release()
	m.instancesBuf.Release()
	m.sortParamsBuf.Release()
	m.cellsBuf.Release()
	m.resultsBuf.Release()
}
