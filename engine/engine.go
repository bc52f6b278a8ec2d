// Package engine ties the window, renderer, and asset loader into a run loop.
// Game logic ticks at a fixed rate on its own goroutine; all GPU work happens
// on the window's message loop thread, which the renderer requires.
package engine

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember2d/ember-go/common"
	"github.com/ember2d/ember-go/engine/asset"
	"github.com/ember2d/ember-go/engine/profiler"
	"github.com/ember2d/ember-go/engine/renderer"
	"github.com/ember2d/ember-go/engine/renderer/batch"
	"github.com/ember2d/ember-go/engine/renderer/bind_group_provider"
	"github.com/ember2d/ember-go/engine/window"
)

// engine implements the Engine interface.
// Coordinates the logic tick goroutine and the render thread.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer
	loader   asset.Loader

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	frameCallback  func(deltaTime float32) []renderer.Pass

	lastFrame time.Time

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point. It orchestrates the logic tick loop, the
// render frame loop, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer driving the window surface.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// Loader returns the asset loader whose results are drained each frame.
	//
	// Returns:
	//   - asset.Loader: the loader instance
	Loader() asset.Loader

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the logic tick rate in ticks per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each logic tick.
	// Use this for game logic, physics, input processing, and animation updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetFrameCallback registers the function called each render frame on the
	// render thread. It returns the passes to compose for the frame; returning
	// no passes skips the frame.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds and returning
	//     the frame's passes in draw order
	SetFrameCallback(callback func(deltaTime float32) []renderer.Pass)

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the main loop (blocks until the window closes).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// A window is required; the renderer and asset loader are created with
// defaults when not injected.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the configuration is incomplete or the renderer
//     cannot be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		return nil, errors.New("engine: a window is required")
	}
	if e.renderer == nil {
		r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, e.window)
		if err != nil {
			return nil, err
		}
		e.renderer = r
	}
	if e.loader == nil {
		e.loader = asset.NewLoader()
	}

	e.window.SetResizeCallback(func(width, height int) {
		e.renderer.Resize(width, height)
	})

	return e, nil
}

// TextureKey derives the bind key under which a drained texture asset is
// registered. Sprite and text commands reference loaded textures through it.
//
// Parameters:
//   - id: the identifier passed to Loader.LoadTexture
//
// Returns:
//   - batch.ResourceKey: the bind key for the texture's binding set
func TextureKey(id string) batch.ResourceKey {
	return batch.KeyOf("texture", id)
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Loader() asset.Loader {
	return e.loader
}

func (e *engine) Run() {
	e.running = true
	e.lastFrame = time.Now()
	e.window.SetUpdateCallback(e.renderFrame)

	e.wg.Add(2)
	go e.handleTick()
	go e.handleQuit()

	// The message loop owns the render thread until the window closes.
	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
	e.renderer.Release()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
	_ = e.window.Close()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handleTick runs the fixed-rate logic tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic
// rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleTick() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// renderFrame runs once per message loop iteration on the render thread:
// drain completed asset decodes, compose the frame's passes, and account the
// profiler. Frame errors never crash the loop; recoverable ones retry next
// iteration.
func (e *engine) renderFrame() {
	now := time.Now()
	dt := float32(now.Sub(e.lastFrame).Seconds())
	e.lastFrame = now

	e.loader.Drain(e.uploadTexture)

	if e.frameCallback != nil {
		passes := e.frameCallback(dt)
		if len(passes) > 0 {
			e.composePasses(passes)
		}
	}

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick()
	}

	// Frame rate limiting
	if e.renderFrameLimit > 0 {
		elapsed := time.Since(now)
		if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// composePasses submits one frame and sorts its failures: acquire failures
// retry next iteration, device loss recovers so the next frame rebuilds the
// caches lazily, anything else is logged and dropped.
func (e *engine) composePasses(passes []renderer.Pass) {
	err := e.renderer.ComposeFrame(e.renderer.SurfaceTarget(), passes...)
	if err == nil {
		if e.profilingEnabled && e.profiler != nil {
			e.profiler.RecordFrame(frameStats(passes))
		}
		return
	}

	var acquire *renderer.AcquireError
	if errors.As(err, &acquire) {
		log.Printf("frame acquire failed (%s), retrying next frame", acquire.Reason)
		return
	}
	var lost *renderer.DeviceLostError
	if errors.As(err, &lost) {
		log.Printf("device lost (%s), recovering", lost.Reason)
		if rerr := e.renderer.Recover(); rerr != nil {
			log.Printf("device recovery failed: %v", rerr)
			e.Quit()
		}
		return
	}
	log.Printf("frame dropped: %v", err)
}

// frameStats derives the profiler counters for one composed frame.
func frameStats(passes []renderer.Pass) profiler.FrameStats {
	stats := profiler.FrameStats{}
	for _, p := range passes {
		list := p.List()
		stats.Batches += len(list.Batches)
		stats.DrawCalls += len(list.Batches)
		for _, b := range list.Batches {
			stats.Vertices += int(b.VertexRange[1] - b.VertexRange[0])
		}
	}
	return stats
}

// uploadTexture registers one drained decode result as a texture + sampler
// binding set under TextureKey(id). Runs on the render thread.
func (e *engine) uploadTexture(res asset.Result) {
	if res.Err != nil {
		log.Printf("asset %q failed to load: %v", res.ID, res.Err)
		return
	}

	provider := bind_group_provider.NewBindGroupProvider(
		res.ID,
		TextureKey(res.ID),
		bind_group_provider.WithStagedTexture(0, res.Staging),
		bind_group_provider.WithStagedSampler(1, common.SamplerStagingData{
			MagFilter:     wgpu.FilterModeLinear,
			MinFilter:     wgpu.FilterModeLinear,
			MaxAnisotropy: 1,
		}),
	)
	if err := e.renderer.RegisterBindGroup(provider, textureBindGroupLayout(res.ID), nil, nil); err != nil {
		log.Printf("asset %q failed to register: %v", res.ID, err)
	}
}

// textureBindGroupLayout is the layout every drained texture asset binds
// with: a sampled 2D texture at binding 0 and a filtering sampler at binding 1,
// both fragment-visible.
func textureBindGroupLayout(label string) wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: label,
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the logic tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Send to channel for immediate update in the running tick loop
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			// Channel has a pending update, drain and send new value
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		// Engine not running, just update the field
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each logic tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetFrameCallback registers the function called each render frame.
func (e *engine) SetFrameCallback(callback func(deltaTime float32) []renderer.Pass) {
	e.frameCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}
