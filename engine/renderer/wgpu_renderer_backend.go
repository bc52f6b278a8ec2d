package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/ember2d/ember-go/common"
	"github.com/ember2d/ember-go/engine/renderer/batch"
	"github.com/ember2d/ember-go/engine/renderer/bind_group_provider"
	"github.com/ember2d/ember-go/engine/renderer/pipeline"
	"github.com/ember2d/ember-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// geometryBufferStartSize is the initial byte size of the shared frame
// geometry buffers. They grow by doubling when a frame's batched data
// exceeds the current capacity.
const geometryBufferStartSize = 64 * 1024

// wgpuRendererBackendImpl is the WebGPU implementation of RendererBackend.
// It is confined to the render thread; no internal locking.
type wgpuRendererBackendImpl struct {
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat

	presentMode wgpu.PresentMode
	sampleCount MSAASampleCount

	// Surface-sized MSAA color texture, resolved into the swapchain view
	// per frame. Nil when MSAA is off.
	msaaTextureView *wgpu.TextureView

	// Shared geometry buffers for all batches of a frame. Rewritten every
	// frame by UploadGeometry, grown on demand.
	vertexBuffer    *wgpu.Buffer
	vertexCapacity  uint64
	indexBuffer     *wgpu.Buffer
	indexCapacity   uint64

	// Frame state shared across the passes of one frame.
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	frameMSAA    *wgpu.TextureView
	frameTarget  RenderTarget
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// wgpuPipelineHandle wraps a created render pipeline and the layouts it owns.
type wgpuPipelineHandle struct {
	pipeline *wgpu.RenderPipeline
	layouts  []*wgpu.BindGroupLayout
}

func (h *wgpuPipelineHandle) Release() {
	if h.pipeline != nil {
		h.pipeline.Release()
		h.pipeline = nil
	}
	for _, l := range h.layouts {
		if l != nil {
			l.Release()
		}
	}
	h.layouts = nil
}

// offscreenTarget is a texture render target supporting CPU readback.
type offscreenTarget struct {
	width, height int

	texture *wgpu.Texture
	view    *wgpu.TextureView

	// msaaView is the multisampled color attachment when MSAA is on; the
	// pass resolves into view. Nil when MSAA is off.
	msaaView *wgpu.TextureView
}

var _ RenderTarget = &offscreenTarget{}

func (t *offscreenTarget) Width() int      { return t.width }
func (t *offscreenTarget) Height() int     { return t.height }
func (t *offscreenTarget) Offscreen() bool { return true }

func (t *offscreenTarget) Release() {
	if t.msaaView != nil {
		t.msaaView.Release()
		t.msaaView = nil
	}
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount) RendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		sampleCount: sampleCount,
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w
}

// deviceLost reports whether a backend error indicates GPU device loss rather
// than a recoverable surface or resource failure.
func deviceLost(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "device lost") || strings.Contains(msg, "device is lost")
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTextureView = nil
	}

	if b.sampleCount > 1 {
		// The render pass draws into the MSAA texture and resolves into the
		// swapchain view each frame.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   uint32(b.sampleCount),
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) CreateRenderPipeline(p pipeline.Pipeline) (PipelineHandle, error) {
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	if vertexShader == nil || fragmentShader == nil {
		return nil, &PipelineCreationError{
			Label: p.Label(),
			Err:   errors.New("both vertex and fragment shaders must be set"),
		}
	}

	vs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: vertexShader.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: vertexShader.Source(),
		},
	})
	if err != nil {
		return nil, &PipelineCreationError{Label: p.Label(), Diagnostic: err.Error(), Err: err}
	}
	fs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: fragmentShader.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: fragmentShader.Source(),
		},
	})
	if err != nil {
		return nil, &PipelineCreationError{Label: p.Label(), Diagnostic: err.Error(), Err: err}
	}

	merged := mergeBindGroupLayouts(vertexShader.BindGroupLayoutDescriptors(), fragmentShader.BindGroupLayoutDescriptors())
	maxGroup := -1
	for g := range merged {
		if g > maxGroup {
			maxGroup = g
		}
	}
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g, desc := range merged {
		layout, layoutErr := b.device.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			return nil, &PipelineCreationError{
				Label: p.Label(),
				Err:   fmt.Errorf("bind group layout for group %d: %w", g, layoutErr),
			}
		}
		bindGroupLayouts[g] = layout
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.Label(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return nil, &PipelineCreationError{Label: p.Label(), Err: err}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.Label(),
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexShader.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets: []wgpu.ColorTargetState{
				func() wgpu.ColorTargetState {
					state := wgpu.ColorTargetState{
						Format:    b.colorFormat(),
						WriteMask: p.WriteMask(),
					}
					if p.BlendEnabled() {
						state.Blend = p.BlendState()
					}
					return state
				}(),
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		// 2D content is drawn back to front in submission order; no depth buffer.
		DepthStencil: nil,
	})
	if err != nil {
		return nil, &PipelineCreationError{Label: p.Label(), Diagnostic: err.Error(), Err: err}
	}

	return &wgpuPipelineHandle{pipeline: created, layouts: bindGroupLayouts}, nil
}

// colorFormat returns the color attachment format pipelines are created
// against. The surface format when a surface is configured, RGBA8 otherwise.
func (b *wgpuRendererBackendImpl) colorFormat() wgpu.TextureFormat {
	if b.surfaceFormat != nil {
		return *b.surfaceFormat
	}
	return wgpu.TextureFormatRGBA8Unorm
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(len(data)),
		Usage:            usage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, &ResourceCreationError{Resource: "buffer " + label, Err: err}
	}
	if len(data) > 0 {
		b.queue.WriteBuffer(buf, 0, data)
	}
	return buf, nil
}

func (b *wgpuRendererBackendImpl) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) {
	if buf == nil || len(data) == 0 {
		return
	}
	b.queue.WriteBuffer(buf, offset, data)
}

func (b *wgpuRendererBackendImpl) InitTextureView(provider bind_group_provider.BindGroupProvider, binding int, stagingData common.TextureStagingData) error {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     provider.Label() + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              stagingData.Width,
			Height:             stagingData.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return &ResourceCreationError{Resource: "texture", Err: err}
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		stagingData.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  stagingData.Width * 4,
			RowsPerImage: stagingData.Height,
		},
		&wgpu.Extent3D{
			Width:              stagingData.Width,
			Height:             stagingData.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return &ResourceCreationError{Resource: "texture view", Err: err}
	}
	provider.SetTextureView(binding, view)

	return nil
}

func (b *wgpuRendererBackendImpl) InitSampler(provider bind_group_provider.BindGroupProvider, binding int, stagingData common.SamplerStagingData) error {
	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         provider.Label() + " Sampler",
		AddressModeU:  common.Coalesce(stagingData.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(stagingData.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(stagingData.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(stagingData.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(stagingData.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(stagingData.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(stagingData.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(stagingData.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(stagingData.MaxAnisotropy, 1),
		Compare:       stagingData.Compare,
	})
	if err != nil {
		return &ResourceCreationError{Resource: "sampler", Err: err}
	}
	provider.SetSampler(binding, samp)

	return nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	if len(descriptor.Entries) == 0 {
		return nil
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		layout, err = b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return &ResourceCreationError{Resource: "bind group layout", Err: err}
		}
		provider.SetBindGroupLayout(layout)
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined
		isSampler := entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined

		if isTexture {
			tv := provider.TextureView(binding)
			if tv == nil {
				return &ResourceCreationError{
					Resource: "bind group",
					Err:      fmt.Errorf("texture binding %d has no texture view — call InitTextureView first", binding),
				}
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding:     entry.Binding,
				TextureView: tv,
			}
		} else if isSampler {
			samp := provider.Sampler(binding)
			if samp == nil {
				return &ResourceCreationError{
					Resource: "bind group",
					Err:      fmt.Errorf("sampler binding %d has no sampler — call InitSampler first", binding),
				}
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Sampler: samp,
			}
		} else {
			// Buffer binding — create if not already present
			var usage wgpu.BufferUsage
			switch entry.Buffer.Type {
			case wgpu.BufferBindingTypeUniform:
				usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
			case wgpu.BufferBindingTypeStorage:
				usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
			case wgpu.BufferBindingTypeReadOnlyStorage:
				usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
			}
			if overrideUsage, ok := bufferUsageOverrides[binding]; ok {
				usage |= overrideUsage
			}

			buf := provider.Buffer(binding)
			if buf == nil {
				bufSize := entry.Buffer.MinBindingSize
				if overrideSize, ok := bufferSizeOverrides[binding]; ok {
					bufSize = overrideSize
				}
				var bufErr error
				buf, bufErr = b.device.CreateBuffer(&wgpu.BufferDescriptor{
					Label: provider.Label() + " Buffer",
					Size:  bufSize,
					Usage: usage,
				})
				if bufErr != nil {
					return &ResourceCreationError{Resource: "bind group buffer", Err: bufErr}
				}
				provider.SetBuffer(binding, buf)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return &ResourceCreationError{Resource: "bind group", Err: err}
	}
	provider.SetBindGroup(bindGroup)

	return nil
}

func (b *wgpuRendererBackendImpl) CreateOffscreenTarget(width, height int) (RenderTarget, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Offscreen Target",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        b.colorFormat(),
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, &ResourceCreationError{Resource: "offscreen target texture", Err: err}
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, &ResourceCreationError{Resource: "offscreen target view", Err: err}
	}

	t := &offscreenTarget{width: width, height: height, texture: tex, view: view}

	if b.sampleCount > 1 {
		msaaTex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "Offscreen MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   uint32(b.sampleCount),
			Dimension:     wgpu.TextureDimension2D,
			Format:        b.colorFormat(),
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			t.Release()
			return nil, &ResourceCreationError{Resource: "offscreen msaa texture", Err: err}
		}
		t.msaaView, err = msaaTex.CreateView(nil)
		if err != nil {
			msaaTex.Release()
			t.Release()
			return nil, &ResourceCreationError{Resource: "offscreen msaa view", Err: err}
		}
	}

	return t, nil
}

func (b *wgpuRendererBackendImpl) BeginFrame(target RenderTarget) error {
	if b.frameEncoder != nil {
		return &AcquireError{Reason: "previous frame not yet completed"}
	}

	switch t := target.(type) {
	case *offscreenTarget:
		b.frameView = t.view
		b.frameMSAA = t.msaaView
	default:
		surfaceTexture, err := b.surface.GetCurrentTexture()
		if err != nil {
			if deviceLost(err) {
				return &DeviceLostError{Reason: err.Error()}
			}
			return &AcquireError{Reason: "surface texture unavailable", Err: err}
		}
		view, err := surfaceTexture.CreateView(nil)
		if err != nil {
			surfaceTexture.Release()
			return &AcquireError{Reason: "surface view creation failed", Err: err}
		}
		b.frameSurface = surfaceTexture
		b.frameView = view
		b.frameMSAA = b.msaaTextureView
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		b.releaseFrameViews()
		if deviceLost(err) {
			return &DeviceLostError{Reason: err.Error()}
		}
		return &AcquireError{Reason: "command encoder creation failed", Err: err}
	}
	b.frameEncoder = encoder
	b.frameTarget = target

	return nil
}

func (b *wgpuRendererBackendImpl) UploadGeometry(vertices []float32, indices []uint32) error {
	vertexBytes := common.SliceToBytes(vertices)
	indexBytes := common.SliceToBytes(indices)

	if uint64(len(vertexBytes)) > b.vertexCapacity {
		if b.vertexBuffer != nil {
			b.vertexBuffer.Release()
			b.vertexBuffer = nil
		}
		size := nextBufferSize(b.vertexCapacity, uint64(len(vertexBytes)))
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Frame Vertex Buffer",
			Size:  size,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			b.vertexCapacity = 0
			return &ResourceCreationError{Resource: "frame vertex buffer", Err: err}
		}
		b.vertexBuffer = buf
		b.vertexCapacity = size
	}

	if uint64(len(indexBytes)) > b.indexCapacity {
		if b.indexBuffer != nil {
			b.indexBuffer.Release()
			b.indexBuffer = nil
		}
		size := nextBufferSize(b.indexCapacity, uint64(len(indexBytes)))
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Frame Index Buffer",
			Size:  size,
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			b.indexCapacity = 0
			return &ResourceCreationError{Resource: "frame index buffer", Err: err}
		}
		b.indexBuffer = buf
		b.indexCapacity = size
	}

	if len(vertexBytes) > 0 {
		b.queue.WriteBuffer(b.vertexBuffer, 0, vertexBytes)
	}
	if len(indexBytes) > 0 {
		b.queue.WriteBuffer(b.indexBuffer, 0, indexBytes)
	}
	return nil
}

// nextBufferSize doubles from the current capacity (or the start size) until
// the needed byte count fits.
func nextBufferSize(current, needed uint64) uint64 {
	size := current
	if size < geometryBufferStartSize {
		size = geometryBufferStartSize
	}
	for size < needed {
		size *= 2
	}
	return size
}

func (b *wgpuRendererBackendImpl) BeginPass(clear *common.Color) {
	if b.frameEncoder == nil {
		return
	}

	attachment := wgpu.RenderPassColorAttachment{
		View:    b.frameView,
		LoadOp:  wgpu.LoadOpLoad,
		StoreOp: wgpu.StoreOpStore,
	}
	if b.frameMSAA != nil {
		attachment.View = b.frameMSAA
		attachment.ResolveTarget = b.frameView
		attachment.StoreOp = wgpu.StoreOpDiscard
	}
	if clear != nil {
		attachment.LoadOp = wgpu.LoadOpClear
		attachment.ClearValue = wgpu.Color{
			R: float64(clear.R), G: float64(clear.G), B: float64(clear.B), A: float64(clear.A),
		}
	}

	b.framePass = b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{attachment},
	})
}

func (b *wgpuRendererBackendImpl) Draw(h PipelineHandle, bindGroup *wgpu.BindGroup, bt batch.Batch) {
	if b.framePass == nil {
		return
	}
	handle, ok := h.(*wgpuPipelineHandle)
	if !ok || handle.pipeline == nil {
		return
	}

	b.framePass.SetPipeline(handle.pipeline)
	if bindGroup != nil {
		b.framePass.SetBindGroup(0, bindGroup, nil)
	}

	// Indices within a batch are relative to the batch's first vertex, so
	// binding both buffers at the batch's byte offsets lets one DrawIndexed
	// cover the whole run.
	vertexOffset := uint64(bt.VertexRange[0]) * uint64(bt.VertexStride) * 4
	vertexSize := uint64(bt.VertexCount()) * uint64(bt.VertexStride) * 4
	indexOffset := uint64(bt.IndexRange[0]) * 4
	indexSize := uint64(bt.IndexCount()) * 4

	b.framePass.SetVertexBuffer(0, b.vertexBuffer, vertexOffset, vertexSize)
	b.framePass.SetIndexBuffer(b.indexBuffer, wgpu.IndexFormatUint32, indexOffset, indexSize)
	b.framePass.DrawIndexed(bt.IndexCount(), 1, 0, 0, 0)
}

func (b *wgpuRendererBackendImpl) EndPass() {
	if b.framePass == nil {
		return
	}
	b.framePass.End()
	b.framePass = nil
}

func (b *wgpuRendererBackendImpl) Submit() error {
	if b.frameEncoder == nil {
		return nil
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		b.releaseFrameViews()
		if deviceLost(err) {
			return &DeviceLostError{Reason: err.Error()}
		}
		return &ResourceCreationError{Resource: "command buffer", Err: err}
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	if b.frameSurface == nil {
		b.frameView = nil
		b.frameMSAA = nil
		b.frameTarget = nil
		return
	}

	b.surface.Present()
	b.releaseFrameViews()
}

func (b *wgpuRendererBackendImpl) DiscardFrame() {
	if b.framePass != nil {
		b.framePass.End()
		b.framePass = nil
	}
	if b.frameEncoder != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}
	b.releaseFrameViews()
}

// releaseFrameViews drops the per-frame view references. Surface-owned
// objects are released; offscreen target views belong to the target.
func (b *wgpuRendererBackendImpl) releaseFrameViews() {
	if b.frameSurface != nil {
		if b.frameView != nil {
			b.frameView.Release()
		}
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	b.frameView = nil
	b.frameMSAA = nil
	b.frameTarget = nil
}

func (b *wgpuRendererBackendImpl) ReadPixels(target RenderTarget) ([]byte, error) {
	t, ok := target.(*offscreenTarget)
	if !ok {
		return nil, &ResourceCreationError{
			Resource: "readback",
			Err:      errors.New("pixel readback requires an offscreen target"),
		}
	}

	// WebGPU requires BytesPerRow aligned to 256 for texture-to-buffer copies.
	const copyPitchAlignment = 256
	bytesPerRow := uint32(t.width) * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(t.height)

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Readback Staging Buffer",
		Size:  stagingSize,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, &ResourceCreationError{Resource: "readback staging buffer", Err: err}
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, &ResourceCreationError{Resource: "readback encoder", Err: err}
	}
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: staging,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  alignedBytesPerRow,
				RowsPerImage: uint32(t.height),
			},
		},
		&wgpu.Extent3D{
			Width:              uint32(t.width),
			Height:             uint32(t.height),
			DepthOrArrayLayers: 1,
		},
	)

	commandBuffer, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, &ResourceCreationError{Resource: "readback command buffer", Err: err}
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	var mapStatus wgpu.BufferMapAsyncStatus
	if err := staging.MapAsync(wgpu.MapModeRead, 0, stagingSize, func(s wgpu.BufferMapAsyncStatus) {
		mapStatus = s
	}); err != nil {
		return nil, &ResourceCreationError{Resource: "readback mapping", Err: err}
	}
	b.device.Poll(true, nil)
	if mapStatus != wgpu.BufferMapAsyncStatusSuccess {
		return nil, &ResourceCreationError{
			Resource: "readback mapping",
			Err:      fmt.Errorf("map status %d", mapStatus),
		}
	}

	mapped := staging.GetMappedRange(0, uint(stagingSize))
	pixels := make([]byte, uint64(bytesPerRow)*uint64(t.height))
	if alignedBytesPerRow == bytesPerRow {
		copy(pixels, mapped)
	} else {
		for row := 0; row < t.height; row++ {
			srcOff := row * int(alignedBytesPerRow)
			dstOff := row * int(bytesPerRow)
			copy(pixels[dstOff:dstOff+int(bytesPerRow)], mapped[srcOff:srcOff+int(bytesPerRow)])
		}
	}
	staging.Unmap()

	return pixels, nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.DiscardFrame()
	if b.vertexBuffer != nil {
		b.vertexBuffer.Release()
		b.vertexBuffer = nil
	}
	if b.indexBuffer != nil {
		b.indexBuffer.Release()
		b.indexBuffer = nil
	}
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTextureView = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// mergeBindGroupLayouts merges the bind group layout descriptors from a vertex and fragment shader
// into a unified set of descriptors suitable for a render pipeline layout.
//
// For each group index present in either shader:
//   - Entries with the same binding number have their Visibility flags ORed together
//   - Entries unique to one shader are included with their original visibility
//
// Parameters:
//   - vertexLayouts: bind group layout descriptors from the vertex shader
//   - fragmentLayouts: bind group layout descriptors from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func mergeBindGroupLayouts(
	vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor,
) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)

	groupIndices := make(map[int]bool)
	for g := range vertexLayouts {
		groupIndices[g] = true
	}
	for g := range fragmentLayouts {
		groupIndices[g] = true
	}

	for g := range groupIndices {
		vDesc, hasV := vertexLayouts[g]
		fDesc, hasF := fragmentLayouts[g]

		switch {
		case hasV && !hasF:
			merged[g] = vDesc
		case hasF && !hasV:
			merged[g] = fDesc
		default:
			// group in both — merge entries by binding number
			entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
			for _, e := range vDesc.Entries {
				entryMap[e.Binding] = e
			}
			for _, e := range fDesc.Entries {
				if existing, ok := entryMap[e.Binding]; ok {
					existing.Visibility |= e.Visibility
					entryMap[e.Binding] = existing
				} else {
					entryMap[e.Binding] = e
				}
			}

			entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
			for _, e := range entryMap {
				entries = append(entries, e)
			}
			// sort by binding for deterministic layout
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Binding < entries[j].Binding
			})

			merged[g] = wgpu.BindGroupLayoutDescriptor{
				Label:   vDesc.Label,
				Entries: entries,
			}
		}
	}

	return merged
}
