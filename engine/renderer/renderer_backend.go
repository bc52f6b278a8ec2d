package renderer

import (
	"github.com/ember2d/ember-go/common"
	"github.com/ember2d/ember-go/engine/renderer/batch"
	"github.com/ember2d/ember-go/engine/renderer/bind_group_provider"
	"github.com/ember2d/ember-go/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA16x MSAASampleCount = 16
)

// PipelineHandle is an opaque reference to a backend-created GPU pipeline.
// Handles live in the renderer's resource cache; Release frees the GPU object
// when the cache evicts the handle and no batch still holds it.
type PipelineHandle interface {
	// Release frees the underlying GPU pipeline object.
	Release()
}

// RendererBackend is the GPU-facing half of the Renderer. The frontend owns
// batching, caching, and the frame lifecycle; the backend owns device,
// surface, and encoder state. Implementations are not safe for concurrent
// use; all calls happen on the render thread.
type RendererBackend interface {
	// ConfigureSurface (re)configures the surface for a new size. Called at
	// startup and on every resize.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode changes how frames are delivered to the display. Takes
	// effect on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the present mode to use
	SetPresentMode(mode PresentMode)

	// CreateRenderPipeline compiles the pipeline's shaders and creates the
	// GPU pipeline object.
	//
	// Parameters:
	//   - p: the pipeline description
	//
	// Returns:
	//   - PipelineHandle: the created pipeline handle
	//   - error: a *PipelineCreationError on shader compile or creation failure
	CreateRenderPipeline(p pipeline.Pipeline) (PipelineHandle, error)

	// CreateBuffer creates a GPU buffer initialized with data.
	//
	// Parameters:
	//   - label: a debug label
	//   - usage: the buffer usage flags
	//   - data: the initial contents
	//
	// Returns:
	//   - *wgpu.Buffer: the created buffer
	//   - error: a *ResourceCreationError on failure
	CreateBuffer(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error)

	// WriteBuffer writes data into an existing buffer at a byte offset.
	//
	// Parameters:
	//   - buf: the target buffer
	//   - offset: the byte offset to write at
	//   - data: the bytes to write
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte)

	// InitTextureView uploads staged pixels and stores the resulting texture
	// view on the provider at the binding index.
	//
	// Parameters:
	//   - provider: the provider to store the view on
	//   - binding: the binding index
	//   - stagingData: the pixel data and dimensions
	//
	// Returns:
	//   - error: a *ResourceCreationError on failure
	InitTextureView(provider bind_group_provider.BindGroupProvider, binding int, stagingData common.TextureStagingData) error

	// InitSampler creates a sampler and stores it on the provider at the
	// binding index.
	//
	// Parameters:
	//   - provider: the provider to store the sampler on
	//   - binding: the binding index
	//   - stagingData: the sampler configuration
	//
	// Returns:
	//   - error: a *ResourceCreationError on failure
	InitSampler(provider bind_group_provider.BindGroupProvider, binding int, stagingData common.SamplerStagingData) error

	// InitBindGroup creates buffers and the bind group described by the
	// layout descriptor and stores them on the provider. Texture and sampler
	// bindings must already be initialized on the provider.
	//
	// Parameters:
	//   - provider: the provider to store the bind group on
	//   - descriptor: the layout describing the group's bindings
	//   - bufferUsageOverrides: extra usage flags OR-ed in per binding (nil safe)
	//   - bufferSizeOverrides: buffer sizes overriding MinBindingSize per binding (nil safe)
	//
	// Returns:
	//   - error: a *ResourceCreationError on failure
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// CreateOffscreenTarget creates a texture render target for offscreen
	// rendering and readback.
	//
	// Parameters:
	//   - width: the target width in pixels
	//   - height: the target height in pixels
	//
	// Returns:
	//   - RenderTarget: the created target
	//   - error: a *ResourceCreationError on failure
	CreateOffscreenTarget(width, height int) (RenderTarget, error)

	// BeginFrame acquires the target texture and creates the frame's command
	// encoder.
	//
	// Parameters:
	//   - target: the surface or offscreen target to render into
	//
	// Returns:
	//   - error: a *AcquireError if the target texture could not be acquired,
	//     or a *DeviceLostError if the device is gone
	BeginFrame(target RenderTarget) error

	// UploadGeometry uploads the frame's batched vertex and index data to the
	// shared geometry buffers, growing them if needed.
	//
	// Parameters:
	//   - vertices: the packed vertex floats for all batches
	//   - indices: the batch-relative indices for all batches
	//
	// Returns:
	//   - error: a *ResourceCreationError if buffer (re)creation fails
	UploadGeometry(vertices []float32, indices []uint32) error

	// BeginPass starts a render pass into the current frame's target.
	//
	// Parameters:
	//   - clear: the clear color, or nil to load the existing contents
	BeginPass(clear *common.Color)

	// Draw encodes one batch as a single indexed draw call within the current
	// render pass.
	//
	// Parameters:
	//   - h: the pipeline handle for the batch's kind
	//   - bindGroup: the bind group for the batch's bind key, or nil
	//   - b: the batch describing the vertex and index ranges
	Draw(h PipelineHandle, bindGroup *wgpu.BindGroup, b batch.Batch)

	// EndPass ends the current render pass.
	EndPass()

	// Submit finishes the frame's command encoder and submits the command
	// buffer to the GPU queue. Nothing reaches the GPU before this call.
	//
	// Returns:
	//   - error: a *DeviceLostError if submission reveals a lost device
	Submit() error

	// Present presents the surface and releases the frame's swapchain
	// texture. Only meaningful for surface targets.
	Present()

	// DiscardFrame drops the frame's encoder and acquired texture without
	// submitting. Used when a frame is abandoned mid-encoding.
	DiscardFrame()

	// ReadPixels copies an offscreen target's contents back to the CPU as
	// tightly packed RGBA8 bytes.
	//
	// Parameters:
	//   - target: the offscreen target to read
	//
	// Returns:
	//   - []byte: width*height*4 bytes, row-major
	//   - error: a *ResourceCreationError on staging failure
	ReadPixels(target RenderTarget) ([]byte, error)

	// Release frees all backend-owned GPU resources.
	Release()
}
