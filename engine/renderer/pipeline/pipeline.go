package pipeline

import (
	"github.com/0x0cqq/gpucollide/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface. The donor engine's
// pipeline carried both a render and a compute variant with a shared set of
// depth/blend/cull/topology fields; this collision core never renders, so only
// the compute half survives and the type-discriminated fields are gone.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups.
	pipelineKey string

	// computeShader is the kernel this pipeline dispatches; required before CreateComputePipeline.
	computeShader shader.Shader

	// computePipeline is the realized WebGPU compute pipeline, set by Device.CreateComputePipeline.
	computePipeline *wgpu.ComputePipeline
}

// Pipeline defines the interface for one compiled compute kernel: a pipeline
// key, its compute shader, and the realized WebGPU pipeline object.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	PipelineKey() string

	// Shader returns the compute shader associated with this pipeline, or nil if shaderType is not
	// shader.ShaderTypeCompute.
	Shader(shaderType shader.ShaderType) shader.Shader

	// Pipeline returns the underlying *wgpu.ComputePipeline. The caller is responsible for a type
	// assertion since this mirrors the donor's any-typed accessor.
	Pipeline() any

	// SetComputePipeline sets the compute pipeline. Called by Device.CreateComputePipeline.
	SetComputePipeline(p *wgpu.ComputePipeline)
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a new compute Pipeline. The donor's pipelineType parameter
// is dropped since every pipeline in this core is a compute pipeline; opts
// configures the compute shader via WithComputeShader.
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{pipelineKey: pipelineKey}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Pipeline() any {
	return p.computePipeline
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	if shaderType != shader.ShaderTypeCompute {
		return nil
	}
	return p.computeShader
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}
