package renderer

import (
	"fmt"

	"github.com/ember2d/ember-go/common"
)

// RendererBuilderOption is a functional option applied to a renderer during
// construction via NewRenderer. Options validate their inputs; NewRenderer
// fails if any option reports an error.
type RendererBuilderOption func(*renderer) error

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) error {
		if mode != PresentModeVSync && mode != PresentModeUncapped {
			return fmt.Errorf("renderer: unknown present mode %d", mode)
		}
		r.pendingPresentMode = &mode
		return nil
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the renderer.
// When not specified, the default is MSAAOff. Higher values (MSAA8x, MSAA16x)
// are adapter-dependent and may not be supported by all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) error {
		switch count {
		case MSAAOff, MSAA4x, MSAA8x, MSAA16x:
			r.pendingMSAA = &count
			return nil
		default:
			return fmt.Errorf("renderer: invalid MSAA sample count %d", count)
		}
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) error {
		r.forceFallbackAdapter = force
		return nil
	}
}

// WithPipelineCacheCapacity bounds how many GPU pipelines stay alive in the
// resource cache before least recently drawn ones are evicted.
//
// Parameters:
//   - capacity: the maximum number of cached pipelines; must be at least 1
//
// Returns:
//   - RendererBuilderOption: a function that applies the capacity option to a renderer
func WithPipelineCacheCapacity(capacity int) RendererBuilderOption {
	return func(r *renderer) error {
		if capacity < 1 {
			return fmt.Errorf("renderer: pipeline cache capacity must be at least 1, got %d", capacity)
		}
		r.pipelineCacheCapacity = capacity
		return nil
	}
}

// WithBindGroupCacheCapacity bounds how many bind group providers stay alive
// in the resource cache before least recently drawn ones are evicted.
//
// Parameters:
//   - capacity: the maximum number of cached providers; must be at least 1
//
// Returns:
//   - RendererBuilderOption: a function that applies the capacity option to a renderer
func WithBindGroupCacheCapacity(capacity int) RendererBuilderOption {
	return func(r *renderer) error {
		if capacity < 1 {
			return fmt.Errorf("renderer: bind group cache capacity must be at least 1, got %d", capacity)
		}
		r.providerCacheCapacity = capacity
		return nil
	}
}

// WithDefaultClearColor sets the default clear color used by RenderToFrame
// and RenderToTexture. Per-pass clears via the PassBuilderOption WithClearColor
// take precedence within ComposeFrame.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithDefaultClearColor(c common.Color) RendererBuilderOption {
	return func(r *renderer) error {
		r.clearColor = c
		return nil
	}
}

// WithBackend injects a pre-constructed backend instead of creating one from
// the window's surface. Used to drive the renderer against a non-default
// backend implementation.
//
// Parameters:
//   - backend: the backend to use; must not be nil
//
// Returns:
//   - RendererBuilderOption: a function that applies the backend option to a renderer
func WithBackend(backend RendererBackend) RendererBuilderOption {
	return func(r *renderer) error {
		if backend == nil {
			return fmt.Errorf("renderer: injected backend must not be nil")
		}
		r.backend = backend
		return nil
	}
}
