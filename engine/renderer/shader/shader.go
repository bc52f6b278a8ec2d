// Package shader describes WGSL shader sources and the layouts they expect.
// Shaders are plain descriptors: compilation happens in the renderer backend
// and compile errors surface there as pipeline-creation failures carrying the
// compiler's diagnostic text.
package shader

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies the pipeline stage a shader serves.
type ShaderType int

const (
	// ShaderTypeVertex is a vertex stage shader.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is a fragment stage shader.
	ShaderTypeFragment
)

// shader is the implementation of the Shader interface.
type shader struct {
	key        string
	shaderType ShaderType
	source     string
	entryPoint string

	// bindGroupLayouts describe the binding sets the shader declares, keyed
	// by group index.
	bindGroupLayouts map[int]wgpu.BindGroupLayoutDescriptor

	// vertexLayouts describe the vertex buffer attribute slots, formats, and
	// strides consumed by a vertex shader. Empty for fragment shaders.
	vertexLayouts []wgpu.VertexBufferLayout
}

// Shader is an immutable description of one WGSL shader stage: its source
// text, entry point, binding-set layouts, and (for vertex shaders) the vertex
// buffer layout it consumes.
type Shader interface {
	// Key returns the unique identifier for this shader, used in pipeline
	// cache keys and GPU object labels.
	//
	// Returns:
	//   - string: the shader key
	Key() string

	// Type returns the pipeline stage this shader serves.
	//
	// Returns:
	//   - ShaderType: vertex or fragment
	Type() ShaderType

	// Source returns the WGSL source text.
	//
	// Returns:
	//   - string: the shader source
	Source() string

	// EntryPoint returns the entry function name, defaulting to "main".
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// BindGroupLayoutDescriptors returns the binding-set layouts the shader
	// declares, keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: layouts by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// VertexLayouts returns the vertex buffer layouts consumed by a vertex
	// shader, in buffer slot order. Empty for fragment shaders.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the vertex buffer layouts
	VertexLayouts() []wgpu.VertexBufferLayout
}

var _ Shader = &shader{}

// NewShader creates a Shader descriptor.
//
// Parameters:
//   - key: the unique identifier for this shader
//   - shaderType: the stage this shader serves
//   - source: the WGSL source text
//   - options: variadic list of ShaderBuilderOption functions
//
// Returns:
//   - Shader: the newly created shader descriptor
func NewShader(key string, shaderType ShaderType, source string, options ...ShaderBuilderOption) Shader {
	s := &shader{
		key:              key,
		shaderType:       shaderType,
		source:           source,
		entryPoint:       "main",
		bindGroupLayouts: make(map[int]wgpu.BindGroupLayoutDescriptor),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Type() ShaderType {
	return s.shaderType
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayouts
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}
