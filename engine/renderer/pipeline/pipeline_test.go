package pipeline

import (
	"testing"

	"github.com/ember2d/ember-go/engine/renderer/batch"
	"github.com/ember2d/ember-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	vsSource = "@vertex fn main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }"
	fsSource = "@fragment fn main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }"
)

func testLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: 8,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{ShaderLocation: 0, Format: wgpu.VertexFormatFloat32x2, Offset: 0},
		},
	}
}

func TestKeyStableAcrossFrames(t *testing.T) {
	build := func() Pipeline {
		vs := shader.NewShader("vs", shader.ShaderTypeVertex, vsSource, shader.WithVertexLayout(testLayout()))
		fs := shader.NewShader("fs", shader.ShaderTypeFragment, fsSource)
		return NewPipeline(batch.PipelineKindSprite, vs, fs)
	}

	first := build().Key()
	for i := 0; i < 100; i++ {
		if key := build().Key(); key != first {
			t.Fatalf("frame %d: key changed from %d to %d", i, first, key)
		}
	}
}

func TestKeyDistinguishesDescriptions(t *testing.T) {
	vs := shader.NewShader("vs", shader.ShaderTypeVertex, vsSource, shader.WithVertexLayout(testLayout()))
	fs := shader.NewShader("fs", shader.ShaderTypeFragment, fsSource)
	fs2 := shader.NewShader("fs2", shader.ShaderTypeFragment, fsSource+" ")

	base := NewPipeline(batch.PipelineKindSprite, vs, fs)
	otherKind := NewPipeline(batch.PipelineKindText, vs, fs)
	otherSource := NewPipeline(batch.PipelineKindSprite, vs, fs2)

	if base.Key() == otherKind.Key() {
		t.Error("different kinds must produce different keys")
	}
	if base.Key() == otherSource.Key() {
		t.Error("different shader sources must produce different keys")
	}
}

func TestDefaults(t *testing.T) {
	vs := shader.NewShader("vs", shader.ShaderTypeVertex, vsSource)
	fs := shader.NewShader("fs", shader.ShaderTypeFragment, fsSource)
	p := NewPipeline(batch.PipelineKindShape, vs, fs)

	if !p.BlendEnabled() {
		t.Error("2D pipelines must default to blending on")
	}
	if p.Topology() != wgpu.PrimitiveTopologyTriangleList {
		t.Errorf("expected triangle list, got %d", p.Topology())
	}
	if p.CullMode() != wgpu.CullModeNone {
		t.Errorf("expected no culling, got %d", p.CullMode())
	}
	if p.Shader(shader.ShaderTypeVertex) != vs || p.Shader(shader.ShaderTypeFragment) != fs {
		t.Error("shader accessors must return the constructor arguments")
	}
}
