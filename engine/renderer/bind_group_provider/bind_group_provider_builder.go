package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption configures a bindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBuffer associates a GPU buffer with a binding index ahead of GPU initialization.
// Every stage in this core binds a fixed, known set of storage/uniform buffers per
// @group, so the builder only needs to seed individual bindings one at a time rather
// than accepting a pre-built bind group, layout, or buffer map from the caller.
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}
