package bind_group_provider

import (
	"github.com/ember2d/ember-go/common"
)

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithStagedTexture pre-stages texture pixel data at a binding index. The
// renderer uploads the pixels and stores the resulting texture view when the
// provider is initialized.
//
// Parameters:
//   - binding: the binding index the texture view will occupy
//   - data: the staged pixel data
//
// Returns:
//   - BindGroupProviderOption: a function that stages the texture
func WithStagedTexture(binding int, data common.TextureStagingData) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		if p.stagedTextures == nil {
			p.stagedTextures = make(map[int]common.TextureStagingData)
		}
		p.stagedTextures[binding] = data
	}
}

// WithStagedSampler pre-stages a sampler description at a binding index. The
// renderer creates the sampler when the provider is initialized.
//
// Parameters:
//   - binding: the binding index the sampler will occupy
//   - data: the staged sampler description
//
// Returns:
//   - BindGroupProviderOption: a function that stages the sampler
func WithStagedSampler(binding int, data common.SamplerStagingData) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		if p.stagedSamplers == nil {
			p.stagedSamplers = make(map[int]common.SamplerStagingData)
		}
		p.stagedSamplers[binding] = data
	}
}
