// Package renderer drives batched 2D drawing against a GPU backend. The
// frontend owns the frame lifecycle, the LRU resource cache, and pass
// composition; the backend (WebGPU by default) owns device, surface, and
// encoder state. All calls happen on the render thread.
package renderer

import (
	"errors"

	"github.com/ember2d/ember-go/common"
	"github.com/ember2d/ember-go/engine/renderer/batch"
	"github.com/ember2d/ember-go/engine/renderer/bind_group_provider"
	"github.com/ember2d/ember-go/engine/renderer/cache"
	"github.com/ember2d/ember-go/engine/renderer/pipeline"
	"github.com/ember2d/ember-go/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultPipelineCacheCapacity bounds how many GPU pipelines the renderer
// keeps alive at once. Least recently drawn pipelines are evicted and
// recreated on demand.
const DefaultPipelineCacheCapacity = 64

// DefaultBindGroupCacheCapacity bounds how many bind groups (texture binding
// sets) the renderer keeps alive at once.
const DefaultBindGroupCacheCapacity = 256

// renderer is the implementation of the Renderer interface.
type renderer struct {
	backendType RendererBackendType
	backend     RendererBackend

	lifecycle FrameLifecycle

	// pipelines caches created GPU pipelines by description key. Evicted
	// handles are released once no in-flight frame still holds them.
	pipelines *cache.Cache[batch.ResourceKey, *cache.Shared[PipelineHandle]]

	// kindPipelines maps each draw-command kind to its current pipeline
	// description. Batches carry only the kind; the description's stable key
	// resolves the GPU object through the cache.
	kindPipelines map[batch.PipelineKind]pipeline.Pipeline

	// providers caches initialized bind group providers by bind key.
	providers *cache.Cache[batch.ResourceKey, bind_group_provider.BindGroupProvider]

	surface surfaceTarget

	// clearColor is the default clear for RenderToFrame / RenderToTexture.
	clearColor common.Color

	// Pre-creation config collected from builder options
	forceFallbackAdapter  bool
	pendingPresentMode    *PresentMode
	pendingMSAA           *MSAASampleCount
	pipelineCacheCapacity int
	providerCacheCapacity int
}

// Renderer is the high-level API of the 2D rendering core. It turns flushed
// batch lists into GPU frames: pipelines and binding sets are resolved
// through a bounded LRU cache, every frame walks the acquire → encode →
// submit → present lifecycle, and device loss clears the cache and surfaces
// as *DeviceLostError.
type Renderer interface {
	// CreateRenderPipeline registers the pipeline description for its kind
	// and creates the GPU pipeline through the resource cache. Repeated calls
	// with an equal description are cache hits; nothing is rebuilt.
	//
	// Parameters:
	//   - p: the pipeline description
	//
	// Returns:
	//   - error: a *PipelineCreationError on compile or creation failure; the
	//     cache is left exactly as it was
	CreateRenderPipeline(p pipeline.Pipeline) error

	// RegisterBindGroup uploads the provider's staged textures and samplers,
	// creates its bind group, and caches the provider under its bind key so
	// draw commands can reference it.
	//
	// Parameters:
	//   - provider: the provider to initialize and cache
	//   - descriptor: the layout describing the group's bindings
	//   - bufferUsageOverrides: extra buffer usage flags per binding (nil safe)
	//   - bufferSizeOverrides: buffer size overrides per binding (nil safe)
	//
	// Returns:
	//   - error: a *ResourceCreationError on failure; the cache is left consistent
	RegisterBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// CreateVertexBuffer creates a GPU vertex buffer initialized with data.
	//
	// Parameters:
	//   - label: a debug label
	//   - data: the initial contents
	//
	// Returns:
	//   - *wgpu.Buffer: the created buffer
	//   - error: a *ResourceCreationError on failure
	CreateVertexBuffer(label string, data []byte) (*wgpu.Buffer, error)

	// CreateIndexBuffer creates a GPU index buffer initialized with data.
	//
	// Parameters:
	//   - label: a debug label
	//   - data: the initial contents
	//
	// Returns:
	//   - *wgpu.Buffer: the created buffer
	//   - error: a *ResourceCreationError on failure
	CreateIndexBuffer(label string, data []byte) (*wgpu.Buffer, error)

	// CreateUniformBuffer creates a GPU uniform buffer initialized with data.
	//
	// Parameters:
	//   - label: a debug label
	//   - data: the initial contents
	//
	// Returns:
	//   - *wgpu.Buffer: the created buffer
	//   - error: a *ResourceCreationError on failure
	CreateUniformBuffer(label string, data []byte) (*wgpu.Buffer, error)

	// WriteBuffer writes data into an existing buffer at a byte offset.
	//
	// Parameters:
	//   - buf: the target buffer
	//   - offset: the byte offset to write at
	//   - data: the bytes to write
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte)

	// WriteBuffers writes all staged buffer writes to the GPU queue. Each
	// BufferWrite targets a buffer on a BindGroupProvider at a binding and offset.
	//
	// Parameters:
	//   - writes: the writes to perform in order
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// CreateOffscreenTarget creates a texture target for offscreen rendering
	// and readback.
	//
	// Parameters:
	//   - width: the target width in pixels
	//   - height: the target height in pixels
	//
	// Returns:
	//   - RenderTarget: the created target
	//   - error: a *ResourceCreationError on failure
	CreateOffscreenTarget(width, height int) (RenderTarget, error)

	// RenderToFrame renders one batch list to the window surface as a single
	// cleared pass and presents it.
	//
	// Parameters:
	//   - list: the flushed batch list to draw
	//
	// Returns:
	//   - error: a *AcquireError to retry next tick, a *DeviceLostError when
	//     the session's GPU resources are gone, or nil
	RenderToFrame(list batch.BatchList) error

	// RenderToTexture renders one batch list to an offscreen target as a
	// single cleared pass. The caller reads the result with ReadPixels.
	//
	// Parameters:
	//   - target: the offscreen target to render into
	//   - list: the flushed batch list to draw
	//
	// Returns:
	//   - error: a *DeviceLostError or *ResourceCreationError, or nil
	RenderToTexture(target RenderTarget, list batch.BatchList) error

	// ComposeFrame renders multiple passes into the target in caller order
	// within one frame, then presents (surface targets) or completes for
	// readback (offscreen targets). A failed frame never partially submits.
	//
	// Parameters:
	//   - target: the surface or offscreen target
	//   - passes: the passes to draw in order
	//
	// Returns:
	//   - error: a *AcquireError, *DeviceLostError, or *ResourceCreationError, or nil
	ComposeFrame(target RenderTarget, passes ...Pass) error

	// ReadPixels copies an offscreen target's contents back to the CPU as
	// tightly packed RGBA8 bytes.
	//
	// Parameters:
	//   - target: the offscreen target to read
	//
	// Returns:
	//   - []byte: width*height*4 bytes, row-major
	//   - error: a *ResourceCreationError on failure
	ReadPixels(target RenderTarget) ([]byte, error)

	// Resize reconfigures the surface for a new size. An in-flight acquire
	// failing after a resize is a *AcquireError; retry next tick.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode. A Resize is required
	// after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// SurfaceTarget returns the window surface as a render target.
	//
	// Returns:
	//   - RenderTarget: the surface target
	SurfaceTarget() RenderTarget

	// Frame exposes the frame lifecycle for state queries.
	//
	// Returns:
	//   - FrameLifecycle: the lifecycle
	Frame() FrameLifecycle

	// Recover leaves the lost state after device loss. The resource caches
	// were cleared when the loss was detected; pipelines and bind groups are
	// rebuilt lazily from their descriptions on the next frame.
	//
	// Returns:
	//   - error: a *StateError if the device is not lost
	Recover() error

	// Release frees all GPU resources held by the renderer.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified backend type, drawing
// to the given window's surface.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g. WGPU)
//   - win: the window supplying the surface descriptor and initial size; may
//     be nil only when a backend is injected via WithBackend
//   - options: variadic list of RendererBuilderOption functions
//
// Returns:
//   - Renderer: the configured renderer
//   - error: an error if the configuration is invalid
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		backendType:           backendType,
		lifecycle:             NewFrameLifecycle(),
		kindPipelines:         make(map[batch.PipelineKind]pipeline.Pipeline),
		clearColor:            common.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
		pipelineCacheCapacity: DefaultPipelineCacheCapacity,
		providerCacheCapacity: DefaultBindGroupCacheCapacity,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	pipelines, err := cache.New(r.pipelineCacheCapacity, func(_ batch.ResourceKey, h *cache.Shared[PipelineHandle]) {
		h.Release()
	})
	if err != nil {
		return nil, err
	}
	r.pipelines = pipelines

	providers, err := cache.New(r.providerCacheCapacity, func(_ batch.ResourceKey, p bind_group_provider.BindGroupProvider) {
		p.Release()
	})
	if err != nil {
		return nil, err
	}
	r.providers = providers

	if r.backend == nil {
		if win == nil {
			return nil, errors.New("renderer: a window is required unless a backend is injected")
		}

		msaa := MSAAOff
		if r.pendingMSAA != nil {
			msaa = *r.pendingMSAA
		}

		switch backendType {
		case BackendTypeWGPU:
			fallthrough
		default:
			r.backend = newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
		}
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	if win != nil {
		r.surface = surfaceTarget{width: win.Width(), height: win.Height()}
		r.backend.ConfigureSurface(win.Width(), win.Height())
	}

	return r, nil
}

func (r *renderer) Resize(width, height int) {
	r.surface.width = width
	r.surface.height = height
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) SurfaceTarget() RenderTarget {
	return &r.surface
}

func (r *renderer) Frame() FrameLifecycle {
	return r.lifecycle
}

func (r *renderer) CreateRenderPipeline(p pipeline.Pipeline) error {
	r.kindPipelines[p.Kind()] = p
	_, err := r.resolvePipeline(p)
	return err
}

// resolvePipeline returns the cached GPU pipeline for a description, creating
// it on a miss. A factory failure leaves the cache untouched.
func (r *renderer) resolvePipeline(p pipeline.Pipeline) (*cache.Shared[PipelineHandle], error) {
	return r.pipelines.GetOrInsert(p.Key(), func() (*cache.Shared[PipelineHandle], error) {
		h, err := r.backend.CreateRenderPipeline(p)
		if err != nil {
			return nil, err
		}
		return cache.NewShared(h, func(inner PipelineHandle) {
			inner.Release()
		}), nil
	})
}

func (r *renderer) RegisterBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	_, err := r.providers.GetOrInsert(provider.Key(), func() (bind_group_provider.BindGroupProvider, error) {
		for binding, staged := range provider.StagedTextures() {
			if err := r.backend.InitTextureView(provider, binding, staged); err != nil {
				return nil, err
			}
		}
		for binding, staged := range provider.StagedSamplers() {
			if err := r.backend.InitSampler(provider, binding, staged); err != nil {
				return nil, err
			}
		}
		if err := r.backend.InitBindGroup(provider, descriptor, bufferUsageOverrides, bufferSizeOverrides); err != nil {
			return nil, err
		}
		return provider, nil
	})
	return err
}

func (r *renderer) CreateVertexBuffer(label string, data []byte) (*wgpu.Buffer, error) {
	return r.backend.CreateBuffer(label, wgpu.BufferUsageVertex, data)
}

func (r *renderer) CreateIndexBuffer(label string, data []byte) (*wgpu.Buffer, error) {
	return r.backend.CreateBuffer(label, wgpu.BufferUsageIndex, data)
}

func (r *renderer) CreateUniformBuffer(label string, data []byte) (*wgpu.Buffer, error) {
	return r.backend.CreateBuffer(label, wgpu.BufferUsageUniform, data)
}

func (r *renderer) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) {
	r.backend.WriteBuffer(buf, offset, data)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		r.backend.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (r *renderer) CreateOffscreenTarget(width, height int) (RenderTarget, error) {
	return r.backend.CreateOffscreenTarget(width, height)
}

func (r *renderer) RenderToFrame(list batch.BatchList) error {
	return r.ComposeFrame(&r.surface, NewPass(list, WithClearColor(r.clearColor)))
}

func (r *renderer) RenderToTexture(target RenderTarget, list batch.BatchList) error {
	return r.ComposeFrame(target, NewPass(list, WithClearColor(r.clearColor)))
}

func (r *renderer) ComposeFrame(target RenderTarget, passes ...Pass) error {
	if err := r.lifecycle.Acquire(); err != nil {
		return err
	}

	if err := r.backend.BeginFrame(target); err != nil {
		// Nothing was acquired; the frame returns to idle so the caller can
		// retry next tick.
		_ = r.lifecycle.Abandon()
		var lost *DeviceLostError
		if errors.As(err, &lost) {
			return r.markLost(lost)
		}
		return err
	}

	if err := r.lifecycle.BeginEncoding(); err != nil {
		r.backend.DiscardFrame()
		return err
	}

	// Resolve every batch's pipeline and bind group up front: a frame either
	// encodes completely or not at all.
	vertices, indices, perPass := mergePasses(passes)

	type drawOp struct {
		handle    *cache.Shared[PipelineHandle]
		bindGroup *wgpu.BindGroup
		b         batch.Batch
	}
	ops := make([][]drawOp, len(perPass))
	retained := make([]*cache.Shared[PipelineHandle], 0, 4)
	releaseRetained := func() {
		for _, h := range retained {
			h.Release()
		}
	}
	for pi, batches := range perPass {
		ops[pi] = make([]drawOp, 0, len(batches))
		for _, b := range batches {
			p, ok := r.kindPipelines[b.Kind]
			if !ok {
				r.backend.DiscardFrame()
				releaseRetained()
				_ = r.lifecycle.Abandon()
				return &PipelineCreationError{
					Label: b.Kind.String(),
					Err:   errors.New("no pipeline registered for kind"),
				}
			}
			handle, err := r.resolvePipeline(p)
			if err != nil {
				r.backend.DiscardFrame()
				releaseRetained()
				_ = r.lifecycle.Abandon()
				return err
			}
			// Hold the handle until the frame completes so cache eviction
			// mid-frame cannot destroy a pipeline the encoder references.
			handle.Retain()
			retained = append(retained, handle)

			var bg *wgpu.BindGroup
			if b.BindKey != batch.NoBindKey {
				provider, err := r.providers.GetOrInsert(b.BindKey, func() (bind_group_provider.BindGroupProvider, error) {
					return nil, errors.New("bind key not registered")
				})
				if err != nil {
					r.backend.DiscardFrame()
					releaseRetained()
					_ = r.lifecycle.Abandon()
					return &ResourceCreationError{Resource: "bind group", Err: err}
				}
				bg = provider.BindGroup()
			}
			ops[pi] = append(ops[pi], drawOp{handle: handle, bindGroup: bg, b: b})
		}
	}

	if err := r.backend.UploadGeometry(vertices, indices); err != nil {
		r.backend.DiscardFrame()
		releaseRetained()
		_ = r.lifecycle.Abandon()
		return err
	}

	for pi, p := range passes {
		r.backend.BeginPass(p.ClearColor())
		for _, op := range ops[pi] {
			r.backend.Draw(op.handle.Value(), op.bindGroup, op.b)
			r.lifecycle.MarkDirty()
		}
		r.backend.EndPass()
	}

	if err := r.lifecycle.Submit(); err != nil {
		r.backend.DiscardFrame()
		releaseRetained()
		return err
	}
	if err := r.backend.Submit(); err != nil {
		releaseRetained()
		// A failed submit leaves the queue in an unknown state, so treat it
		// like device loss: cached handles may reference work that never ran.
		return r.markLost(err)
	}

	if err := r.lifecycle.Present(); err != nil {
		releaseRetained()
		return err
	}
	if !target.Offscreen() {
		r.backend.Present()
	}

	releaseRetained()
	return r.lifecycle.Finish()
}

func (r *renderer) ReadPixels(target RenderTarget) ([]byte, error) {
	return r.backend.ReadPixels(target)
}

// markLost moves the lifecycle to the lost state and clears the resource
// caches. The lost state always implies empty caches: after device loss every
// cached handle belongs to the dead device, and after a failed submit the
// cached handles may reference work that never reached the queue.
func (r *renderer) markLost(err error) error {
	r.lifecycle.MarkLost()
	r.pipelines.Clear()
	r.providers.Clear()
	return err
}

func (r *renderer) Recover() error {
	return r.lifecycle.Reset()
}

func (r *renderer) Release() {
	r.pipelines.Clear()
	r.providers.Clear()
	r.backend.Release()
}
