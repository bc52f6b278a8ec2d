// Package bind_group_provider stages and holds the GPU binding resources
// (uniform buffers, texture views, samplers) behind one bind group. A draw
// command references a provider indirectly through its bind key; the renderer
// resolves the key through the resource cache when composing passes.
package bind_group_provider

import (
	"github.com/ember2d/ember-go/common"
	"github.com/ember2d/ember-go/engine/renderer/batch"
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// key is the stable bind key draw commands carry to reference this
	// provider's binding set.
	key batch.ResourceKey

	// stagedTextures holds pixel data waiting for GPU upload, keyed by binding index.
	stagedTextures map[int]common.TextureStagingData
	// stagedSamplers holds sampler descriptions waiting for GPU creation, keyed by binding index.
	stagedSamplers map[int]common.SamplerStagingData

	// The following fields are GPU allocated resources. They are populated by
	// the Renderer during initialization, not by user-creation.

	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds the GPU buffers created for this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// textureViews holds the GPU texture views created for this provider, keyed by binding index.
	textureViews map[int]*wgpu.TextureView
	// samplers holds the GPU samplers created for this provider, keyed by binding index.
	samplers map[int]*wgpu.Sampler
}

// BindGroupProvider holds the GPU binding resources behind one bind group.
//
// Usage pattern:
//  1. Caller creates a BindGroupProvider with a label and bind key
//  2. Caller initializes textures/samplers via Renderer.InitTextureView / InitSampler
//  3. Caller calls Renderer.InitBindGroup(provider, descriptor) to create the bind group
//  4. Draw commands carry the provider's Key; passes bind BindGroup() per batch
type BindGroupProvider interface {
	// Release releases all GPU resources held by this provider.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Key returns the bind key draw commands use to reference this provider.
	//
	// Returns:
	//   - batch.ResourceKey: the bind key
	Key() batch.ResourceKey

	// BindGroup returns the created bind group for shader binding, or nil if
	// GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the created bind group layout, or nil if GPU
	// resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the GPU buffer at a binding index, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the GPU texture view at a binding index, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the GPU sampler at a binding index, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// SetBindGroup stores the bind group after GPU initialization.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout stores the bind group layout after GPU initialization.
	//
	// Parameters:
	//   - bgl: the created layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer stores a GPU buffer at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetTextureView stores a GPU texture view at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the texture view to store
	SetTextureView(binding int, tv *wgpu.TextureView)

	// SetSampler stores a GPU sampler at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler to store
	SetSampler(binding int, s *wgpu.Sampler)

	// StagedTextures returns the pixel data staged for upload, keyed by
	// binding index. The renderer consumes these during initialization.
	//
	// Returns:
	//   - map[int]common.TextureStagingData: the staged textures (may be nil)
	StagedTextures() map[int]common.TextureStagingData

	// StagedSamplers returns the sampler descriptions staged for creation,
	// keyed by binding index. The renderer consumes these during initialization.
	//
	// Returns:
	//   - map[int]common.SamplerStagingData: the staged samplers (may be nil)
	StagedSamplers() map[int]common.SamplerStagingData
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: a debug label for GPU object naming
//   - key: the stable bind key draw commands will carry
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: the newly created provider
func NewBindGroupProvider(label string, key batch.ResourceKey, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		key:          key,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Key() batch.ResourceKey {
	return p.key
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) StagedTextures() map[int]common.TextureStagingData {
	return p.stagedTextures
}

func (p *bindGroupProvider) StagedSamplers() map[int]common.SamplerStagingData {
	return p.stagedSamplers
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	for binding, buf := range p.buffers {
		buf.Release()
		delete(p.buffers, binding)
	}
	for binding, tv := range p.textureViews {
		tv.Release()
		delete(p.textureViews, binding)
	}
	for binding, s := range p.samplers {
		s.Release()
		delete(p.samplers, binding)
	}
}
