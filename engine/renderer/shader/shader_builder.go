package shader

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithEntryPoint overrides the entry function name (default "main").
//
// Parameters:
//   - entryPoint: the entry function name in the WGSL source
//
// Returns:
//   - ShaderBuilderOption: a function that sets the entry point
func WithEntryPoint(entryPoint string) ShaderBuilderOption {
	return func(s *shader) {
		s.entryPoint = entryPoint
	}
}

// WithBindGroupLayout declares a binding-set layout at the given group index.
//
// Parameters:
//   - group: the @group index in the WGSL source
//   - descriptor: the layout for that group's bindings
//
// Returns:
//   - ShaderBuilderOption: a function that registers the layout
func WithBindGroupLayout(group int, descriptor wgpu.BindGroupLayoutDescriptor) ShaderBuilderOption {
	return func(s *shader) {
		s.bindGroupLayouts[group] = descriptor
	}
}

// WithVertexLayout appends a vertex buffer layout in buffer slot order.
// Only meaningful on vertex shaders.
//
// Parameters:
//   - layout: the attribute slots, formats, and stride for one vertex buffer
//
// Returns:
//   - ShaderBuilderOption: a function that appends the layout
func WithVertexLayout(layout wgpu.VertexBufferLayout) ShaderBuilderOption {
	return func(s *shader) {
		s.vertexLayouts = append(s.vertexLayouts, layout)
	}
}
