// Package pipeline describes render pipelines for the 2D core. A Pipeline is
// a plain description — shader stages, vertex layout, blend and topology
// state — from which the backend creates the GPU object on demand; the
// created object itself lives in the renderer's resource cache under the
// pipeline's stable key.
package pipeline

import (
	"fmt"

	"github.com/ember2d/ember-go/engine/renderer/batch"
	"github.com/ember2d/ember-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	// kind is the draw-command kind this pipeline serves.
	kind batch.PipelineKind

	vertexShader, fragmentShader shader.Shader

	// The following properties configure the pipeline during creation and can
	// be toggled/set with the builder options.

	blendEnabled bool
	topology     wgpu.PrimitiveTopology
	cullMode     wgpu.CullMode
	frontFace    wgpu.FrontFace
	writeMask    wgpu.ColorWriteMask
	blendState   *wgpu.BlendState
}

// Pipeline describes the shader and fixed-function configuration for one
// PipelineKind. Two pipelines with the same shaders and vertex layout share
// the same Key, so repeated requests across frames hit the resource cache
// instead of re-creating the GPU object.
type Pipeline interface {
	// Kind returns the draw-command kind this pipeline serves.
	//
	// Returns:
	//   - batch.PipelineKind: the pipeline kind
	Kind() batch.PipelineKind

	// Key returns the stable cache key derived from the shader sources and
	// the vertex-layout signature. Equal descriptions yield equal keys across
	// frames.
	//
	// Returns:
	//   - batch.ResourceKey: the cache key
	Key() batch.ResourceKey

	// Label returns a human-readable label for GPU object debugging.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Shader retrieves the shader for the given stage, or nil if not set.
	//
	// Parameters:
	//   - shaderType: the stage to retrieve (vertex or fragment)
	//
	// Returns:
	//   - shader.Shader: the shader, or nil
	Shader(shaderType shader.ShaderType) shader.Shader

	// BlendEnabled returns whether alpha blending is enabled.
	//
	// Returns:
	//   - bool: true if blending is enabled
	BlendEnabled() bool

	// BlendState returns the configured blend state.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state
	BlendState() *wgpu.BlendState

	// Topology returns the primitive topology.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the topology
	Topology() wgpu.PrimitiveTopology

	// CullMode returns the cull mode. 2D geometry defaults to no culling.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode
	CullMode() wgpu.CullMode

	// FrontFace returns the front face winding order.
	//
	// Returns:
	//   - wgpu.FrontFace: the winding order
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the write mask
	WriteMask() wgpu.ColorWriteMask
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a Pipeline description for the given kind. Vertex and
// fragment shaders are required at creation time.
//
// Parameters:
//   - kind: the draw-command kind this pipeline serves
//   - vertexShader: the vertex stage shader (must not be nil)
//   - fragmentShader: the fragment stage shader (must not be nil)
//   - opts: variadic list of PipelineBuilderOption functions
//
// Returns:
//   - Pipeline: the newly created pipeline description
func NewPipeline(kind batch.PipelineKind, vertexShader, fragmentShader shader.Shader, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		kind:           kind,
		vertexShader:   vertexShader,
		fragmentShader: fragmentShader,
		blendEnabled:   true,
		topology:       wgpu.PrimitiveTopologyTriangleList,
		cullMode:       wgpu.CullModeNone,
		frontFace:      wgpu.FrontFaceCCW,
		writeMask:      wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Kind() batch.PipelineKind {
	return p.kind
}

func (p *pipeline) Key() batch.ResourceKey {
	parts := []string{p.kind.String()}
	if p.vertexShader != nil {
		parts = append(parts, p.vertexShader.Source(), p.vertexShader.EntryPoint())
		for _, layout := range p.vertexShader.VertexLayouts() {
			parts = append(parts, layoutSignature(layout))
		}
	}
	if p.fragmentShader != nil {
		parts = append(parts, p.fragmentShader.Source(), p.fragmentShader.EntryPoint())
	}
	return batch.KeyOf(parts...)
}

func (p *pipeline) Label() string {
	return p.kind.String() + " pipeline"
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

// layoutSignature flattens a vertex buffer layout into a stable string so it
// participates in the pipeline cache key.
func layoutSignature(layout wgpu.VertexBufferLayout) string {
	sig := fmt.Sprintf("stride=%d,step=%d", layout.ArrayStride, layout.StepMode)
	for _, attr := range layout.Attributes {
		sig += fmt.Sprintf(";loc=%d,fmt=%d,off=%d", attr.ShaderLocation, attr.Format, attr.Offset)
	}
	return sig
}
