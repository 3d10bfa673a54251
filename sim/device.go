package sim

import (
	"fmt"

	"github.com/0x0cqq/gpucollide/engine/renderer/bind_group_provider"
	"github.com/0x0cqq/gpucollide/engine/renderer/pipeline"
	"github.com/0x0cqq/gpucollide/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Device owns the WebGPU instance, adapter, device, and queue used to build and
// dispatch the compute pipeline. Unlike the windowed renderer backend it adapts
// from, Device never creates a surface — every operation here runs headless.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
}

// NewDevice requests a WebGPU adapter and device with no compatible surface,
// raising MaxBindGroups so the five resource groups in §4.1 are addressable
// from a single pipeline layout.
//
// Returns:
//   - *Device: a ready-to-use device
//   - error: ResourceError if adapter or device acquisition fails
func NewDevice() (*Device, error) {
	instance := wgpu.CreateInstance(nil)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, &ResourceError{Op: "request adapter", Err: err}
	}

	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 8

	d, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "gpucollide device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, &ResourceError{Op: "request device", Err: err}
	}

	return &Device{
		instance: instance,
		adapter:  adapter,
		device:   d,
		queue:    d.GetQueue(),
	}, nil
}

// Release tears down the device, adapter, and instance. Called when the core
// detects device loss and must rebuild, or when the manager shuts down.
func (d *Device) Release() {
	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
}

// CreateBuffer allocates an empty GPU buffer.
func (d *Device) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, &ResourceError{Op: "create buffer " + label, Err: err}
	}
	return buf, nil
}

// CreateBufferWithData allocates a GPU buffer and uploads its initial contents.
func (d *Device) CreateBufferWithData(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: data,
		Usage:    usage,
	})
	if err != nil {
		return nil, &ResourceError{Op: "create buffer " + label, Err: err}
	}
	return buf, nil
}

// WriteBuffer uploads data into an existing GPU buffer at the given offset.
func (d *Device) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) {
	d.queue.WriteBuffer(buf, offset, data)
}

// CreateComputePipeline builds the bind group layouts, pipeline layout, and
// compute pipeline for p from its compute shader's parsed bind group layout
// descriptors, then stores the result on p via SetComputePipeline.
func (d *Device) CreateComputePipeline(p pipeline.Pipeline) error {
	computeShader := p.Shader(shader.ShaderTypeCompute)
	if computeShader == nil {
		return &ConfigError{Msg: "pipeline " + p.PipelineKey() + " has no compute shader set"}
	}

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: computeShader.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: computeShader.Source(),
		},
	})
	if err != nil {
		return &ResourceError{Op: "create shader module " + computeShader.Key(), Err: err}
	}

	descriptors := computeShader.BindGroupLayoutDescriptors()
	maxGroup := -1
	for g := range descriptors {
		if g > maxGroup {
			maxGroup = g
		}
	}
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g, desc := range descriptors {
		bgl, err := d.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return &ResourceError{Op: fmt.Sprintf("create bind group layout %d", g), Err: err}
		}
		bindGroupLayouts[g] = bgl
	}

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return &ResourceError{Op: "create pipeline layout " + p.PipelineKey(), Err: err}
	}

	created, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " compute pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return &ResourceError{Op: "create compute pipeline " + p.PipelineKey(), Err: err}
	}

	p.SetComputePipeline(created)
	return nil
}

// CreateBindGroup realizes a BindGroupProvider's buffer bindings against a parsed
// layout descriptor, creating any missing buffers (honoring usage/size overrides,
// e.g. to add BufferUsageCopySrc for a buffer that will later be read back) and
// finally the bind group itself.
func (d *Device) CreateBindGroup(
	provider bind_group_provider.BindGroupProvider,
	descriptor wgpu.BindGroupLayoutDescriptor,
	usageOverrides map[int]wgpu.BufferUsage,
	sizeOverrides map[int]uint64,
) error {
	if len(descriptor.Entries) == 0 {
		return nil
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		layout, err = d.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return &ResourceError{Op: "create bind group layout for " + provider.Label(), Err: err}
		}
		provider.SetBindGroupLayout(layout)
	}

	entries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		var usage wgpu.BufferUsage
		switch entry.Buffer.Type {
		case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
			usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
		case wgpu.BufferBindingTypeUniform:
			usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
		}
		if override, ok := usageOverrides[binding]; ok {
			usage |= override
		}

		buf := provider.Buffer(binding)
		if buf == nil {
			size := entry.Buffer.MinBindingSize
			if override, ok := sizeOverrides[binding]; ok {
				size = override
			}
			var err error
			buf, err = d.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: provider.Label() + " buffer",
				Size:  size,
				Usage: usage,
			})
			if err != nil {
				return &ResourceError{Op: "create buffer for " + provider.Label(), Err: err}
			}
			provider.SetBuffer(binding, buf)
		}

		entries[i] = wgpu.BindGroupEntry{
			Binding: entry.Binding,
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	bindGroup, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " bind group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return &ResourceError{Op: "create bind group for " + provider.Label(), Err: err}
	}
	provider.SetBindGroup(bindGroup)
	return nil
}

// Dispatch runs one compute pass binding providers[group] to @group(group) for
// every group the shader declares, then dispatches the given workgroup counts.
// Unlike the windowed renderer this core adapts from — which only ever binds a
// single resource group per draw — a physics stage binds up to four of the five
// independently addressable groups (see §4.1; integrate binds four), so every
// provider present in the map is bound before the dispatch is recorded.
func (d *Device) Dispatch(p pipeline.Pipeline, providers map[int]bind_group_provider.BindGroupProvider, workgroups [3]uint32) error {
	computePipeline, ok := p.Pipeline().(*wgpu.ComputePipeline)
	if !ok || computePipeline == nil {
		return &ConfigError{Msg: "pipeline " + p.PipelineKey() + " has no compiled compute pipeline"}
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return &ResourceError{Op: "create command encoder", Err: err}
	}

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(computePipeline)
	for group, provider := range providers {
		pass.SetBindGroup(uint32(group), provider.BindGroup(), nil)
	}
	pass.DispatchWorkgroups(workgroups[0], workgroups[1], workgroups[2])
	pass.End()
	pass.Release()

	commands, err := encoder.Finish(nil)
	if err != nil {
		return &ResourceError{Op: "finish command encoder", Err: err}
	}
	defer commands.Release()

	d.queue.Submit(commands)
	return nil
}

// ReadBuffer copies size bytes from buf (which must have been created with
// BufferUsageCopySrc) back to the host through an intermediate mapped staging
// buffer, blocking until the map completes.
func (d *Device) ReadBuffer(buf *wgpu.Buffer, size uint64) ([]byte, error) {
	staging, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "readback staging",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, &ResourceError{Op: "create staging buffer", Err: err}
	}
	defer staging.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, &ResourceError{Op: "create command encoder", Err: err}
	}
	encoder.CopyBufferToBuffer(buf, 0, staging, 0, size)
	commands, err := encoder.Finish(nil)
	if err != nil {
		return nil, &ResourceError{Op: "finish command encoder", Err: err}
	}
	d.queue.Submit(commands)
	commands.Release()

	done := make(chan error, 1)
	err = staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			logger.Printf("device lost: staging buffer map failed with status %v", status)
			done <- &DeviceLostError{Status: status}
			return
		}
		done <- nil
	})
	if err != nil {
		return nil, &ResourceError{Op: "map staging buffer", Err: err}
	}

	d.device.Poll(true, nil)
	if err := <-done; err != nil {
		return nil, err
	}

	mapped := staging.GetMappedRange(0, uint(size))
	result := make([]byte, len(mapped))
	copy(result, mapped)
	staging.Unmap()

	return result, nil
}
