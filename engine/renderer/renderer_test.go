package renderer

import (
	"errors"
	"testing"

	"github.com/ember2d/ember-go/common"
	"github.com/ember2d/ember-go/engine/renderer/batch"
	"github.com/ember2d/ember-go/engine/renderer/bind_group_provider"
	"github.com/ember2d/ember-go/engine/renderer/pipeline"
	"github.com/ember2d/ember-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// recordingHandle counts releases of a backend pipeline object.
type recordingHandle struct {
	released *int
}

func (h *recordingHandle) Release() {
	*h.released++
}

// recordedDraw captures one encoded draw call in submission order.
type recordedDraw struct {
	kind    batch.PipelineKind
	bindKey batch.ResourceKey
	indices uint32
}

// recordingBackend implements RendererBackend in memory so frame composition
// can be asserted without a GPU.
type recordingBackend struct {
	pipelineCreations int
	pipelineReleases  int
	pipelineErr       error

	acquireErr error
	submitErr  error

	draws    []recordedDraw
	clears   []*common.Color
	passes   int
	uploads  int
	submits  int
	presents int
	discards int

	lastVertices []float32
	lastIndices  []uint32

	readback []byte
}

var _ RendererBackend = &recordingBackend{}

func (b *recordingBackend) ConfigureSurface(width, height int) {}
func (b *recordingBackend) SetPresentMode(mode PresentMode)    {}

func (b *recordingBackend) CreateRenderPipeline(p pipeline.Pipeline) (PipelineHandle, error) {
	if b.pipelineErr != nil {
		return nil, b.pipelineErr
	}
	b.pipelineCreations++
	return &recordingHandle{released: &b.pipelineReleases}, nil
}

func (b *recordingBackend) CreateBuffer(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error) {
	return &wgpu.Buffer{}, nil
}

func (b *recordingBackend) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) {}

func (b *recordingBackend) InitTextureView(provider bind_group_provider.BindGroupProvider, binding int, stagingData common.TextureStagingData) error {
	provider.SetTextureView(binding, &wgpu.TextureView{})
	return nil
}

func (b *recordingBackend) InitSampler(provider bind_group_provider.BindGroupProvider, binding int, stagingData common.SamplerStagingData) error {
	provider.SetSampler(binding, &wgpu.Sampler{})
	return nil
}

func (b *recordingBackend) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	provider.SetBindGroup(&wgpu.BindGroup{})
	return nil
}

func (b *recordingBackend) CreateOffscreenTarget(width, height int) (RenderTarget, error) {
	return &recordingTarget{width: width, height: height}, nil
}

func (b *recordingBackend) BeginFrame(target RenderTarget) error {
	return b.acquireErr
}

func (b *recordingBackend) UploadGeometry(vertices []float32, indices []uint32) error {
	b.uploads++
	b.lastVertices = append([]float32(nil), vertices...)
	b.lastIndices = append([]uint32(nil), indices...)
	return nil
}

func (b *recordingBackend) BeginPass(clear *common.Color) {
	b.passes++
	b.clears = append(b.clears, clear)
}

func (b *recordingBackend) Draw(h PipelineHandle, bindGroup *wgpu.BindGroup, bt batch.Batch) {
	b.draws = append(b.draws, recordedDraw{
		kind:    bt.Kind,
		bindKey: bt.BindKey,
		indices: bt.IndexCount(),
	})
}

func (b *recordingBackend) EndPass() {}

func (b *recordingBackend) Submit() error {
	if b.submitErr != nil {
		return b.submitErr
	}
	b.submits++
	return nil
}

func (b *recordingBackend) Present() {
	b.presents++
}

func (b *recordingBackend) DiscardFrame() {
	b.discards++
}

func (b *recordingBackend) ReadPixels(target RenderTarget) ([]byte, error) {
	return b.readback, nil
}

func (b *recordingBackend) Release() {}

// recordingTarget is an offscreen target with no GPU resources.
type recordingTarget struct {
	width, height int
}

func (t *recordingTarget) Width() int      { return t.width }
func (t *recordingTarget) Height() int     { return t.height }
func (t *recordingTarget) Offscreen() bool { return true }
func (t *recordingTarget) Release()        {}

func testPipeline(kind batch.PipelineKind, source string) pipeline.Pipeline {
	vs := shader.NewShader("vs", shader.ShaderTypeVertex, source)
	fs := shader.NewShader("fs", shader.ShaderTypeFragment, source)
	return pipeline.NewPipeline(kind, vs, fs)
}

func newTestRenderer(t *testing.T, backend *recordingBackend, options ...RendererBuilderOption) Renderer {
	t.Helper()
	r, err := NewRenderer(BackendTypeWGPU, nil, append([]RendererBuilderOption{WithBackend(backend)}, options...)...)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

// spriteQuad returns a textured quad draw command for the given bind key.
func spriteQuad(key batch.ResourceKey) batch.DrawCommand {
	return batch.DrawCommand{
		Kind:         batch.PipelineKindSprite,
		Vertices:     []float32{0, 0, 1, 0, 1, 1, 0, 1},
		Indices:      []uint32{0, 1, 2, 2, 3, 0},
		VertexStride: 2,
		Transform:    common.Mat3Identity(),
		BindKey:      key,
	}
}

func pathTriangles(points int) batch.DrawCommand {
	verts := make([]float32, points*2)
	idx := make([]uint32, 0, (points-2)*3)
	for i := 2; i < points; i++ {
		idx = append(idx, 0, uint32(i-1), uint32(i))
	}
	return batch.DrawCommand{
		Kind:         batch.PipelineKindPath,
		Vertices:     verts,
		Indices:      idx,
		VertexStride: 2,
		Transform:    common.Mat3Identity(),
	}
}

func TestFrameComposesBatchedDrawsInOrder(t *testing.T) {
	backend := &recordingBackend{}
	r := newTestRenderer(t, backend)

	atlasKey := batch.KeyOf("atlas", "main")
	if err := r.CreateRenderPipeline(testPipeline(batch.PipelineKindSprite, "sprite")); err != nil {
		t.Fatal(err)
	}
	if err := r.CreateRenderPipeline(testPipeline(batch.PipelineKindPath, "path")); err != nil {
		t.Fatal(err)
	}

	provider := bind_group_provider.NewBindGroupProvider("atlas", atlasKey)
	if err := r.RegisterBindGroup(provider, wgpu.BindGroupLayoutDescriptor{
		Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}}},
	}, nil, nil); err != nil {
		t.Fatal(err)
	}

	// Two sprites sharing a binding set merge into one batch; the path
	// command breaks the run.
	b := batch.NewBatcher()
	for _, cmd := range []batch.DrawCommand{spriteQuad(atlasKey), spriteQuad(atlasKey), pathTriangles(5)} {
		if err := b.Add(cmd); err != nil {
			t.Fatal(err)
		}
	}
	list := b.Flush()
	if len(list.Batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(list.Batches))
	}

	if err := r.RenderToFrame(list); err != nil {
		t.Fatalf("RenderToFrame: %v", err)
	}

	if len(backend.draws) != 2 {
		t.Fatalf("recorded draws = %d, want 2", len(backend.draws))
	}
	if backend.draws[0].kind != batch.PipelineKindSprite || backend.draws[1].kind != batch.PipelineKindPath {
		t.Errorf("draw order = %v, %v; want sprite then path", backend.draws[0].kind, backend.draws[1].kind)
	}
	if backend.draws[0].indices != 12 {
		t.Errorf("merged sprite batch indices = %d, want 12", backend.draws[0].indices)
	}
	if backend.submits != 1 || backend.presents != 1 {
		t.Errorf("submits = %d, presents = %d; want 1 and 1", backend.submits, backend.presents)
	}
	if r.Frame().State() != FrameIdle {
		t.Errorf("lifecycle state = %s, want idle", r.Frame().State())
	}
}

func TestPipelineCreatedOnceAcrossFrames(t *testing.T) {
	backend := &recordingBackend{}
	r := newTestRenderer(t, backend, WithPipelineCacheCapacity(8))

	if err := r.CreateRenderPipeline(testPipeline(batch.PipelineKindShape, "shape")); err != nil {
		t.Fatal(err)
	}

	for frame := 0; frame < 100; frame++ {
		b := batch.NewBatcher()
		if err := b.Add(batch.DrawCommand{
			Kind:         batch.PipelineKindShape,
			Vertices:     []float32{0, 0, 1, 0, 0, 1},
			Indices:      []uint32{0, 1, 2},
			VertexStride: 2,
			Transform:    common.Mat3Identity(),
		}); err != nil {
			t.Fatal(err)
		}
		if err := r.RenderToFrame(b.Flush()); err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
	}

	if backend.pipelineCreations != 1 {
		t.Errorf("pipeline creations = %d, want exactly 1 across 100 frames", backend.pipelineCreations)
	}
}

func TestUnregisteredKindAbandonsFrameCleanly(t *testing.T) {
	backend := &recordingBackend{}
	r := newTestRenderer(t, backend)

	b := batch.NewBatcher()
	if err := b.Add(pathTriangles(4)); err != nil {
		t.Fatal(err)
	}

	err := r.RenderToFrame(b.Flush())
	var pipeErr *PipelineCreationError
	if !errors.As(err, &pipeErr) {
		t.Fatalf("error = %v, want *PipelineCreationError", err)
	}

	// Nothing reached the GPU and the frame returned to idle.
	if backend.submits != 0 || backend.presents != 0 || backend.uploads != 0 {
		t.Errorf("submits=%d presents=%d uploads=%d; abandoned frame must not touch the queue",
			backend.submits, backend.presents, backend.uploads)
	}
	if backend.discards != 1 {
		t.Errorf("discards = %d, want 1", backend.discards)
	}
	if r.Frame().State() != FrameIdle {
		t.Errorf("lifecycle state = %s, want idle", r.Frame().State())
	}
	if backend.pipelineCreations != 0 {
		t.Errorf("pipeline creations = %d, want 0", backend.pipelineCreations)
	}
}

func TestAcquireFailureIsRetryable(t *testing.T) {
	backend := &recordingBackend{acquireErr: &AcquireError{Reason: "surface outdated"}}
	r := newTestRenderer(t, backend)
	if err := r.CreateRenderPipeline(testPipeline(batch.PipelineKindShape, "shape")); err != nil {
		t.Fatal(err)
	}

	list := batch.BatchList{}
	err := r.RenderToFrame(list)
	var acquireErr *AcquireError
	if !errors.As(err, &acquireErr) {
		t.Fatalf("error = %v, want *AcquireError", err)
	}
	if r.Frame().State() != FrameIdle {
		t.Fatalf("lifecycle state = %s, want idle for retry", r.Frame().State())
	}

	// Next tick the surface is back.
	backend.acquireErr = nil
	if err := r.RenderToFrame(list); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if backend.submits != 1 {
		t.Errorf("submits = %d, want 1", backend.submits)
	}
}

func TestDeviceLossClearsCacheAndRecoverRebuilds(t *testing.T) {
	backend := &recordingBackend{}
	r := newTestRenderer(t, backend)
	if err := r.CreateRenderPipeline(testPipeline(batch.PipelineKindShape, "shape")); err != nil {
		t.Fatal(err)
	}

	b := batch.NewBatcher()
	if err := b.Add(batch.DrawCommand{
		Kind:         batch.PipelineKindShape,
		Vertices:     []float32{0, 0, 1, 0, 0, 1},
		Indices:      []uint32{0, 1, 2},
		VertexStride: 2,
		Transform:    common.Mat3Identity(),
	}); err != nil {
		t.Fatal(err)
	}
	list := b.Flush()

	backend.submitErr = &DeviceLostError{Reason: "test"}
	err := r.RenderToFrame(list)
	var lost *DeviceLostError
	if !errors.As(err, &lost) {
		t.Fatalf("error = %v, want *DeviceLostError", err)
	}
	if r.Frame().State() != FrameLost {
		t.Fatalf("lifecycle state = %s, want lost", r.Frame().State())
	}
	if backend.pipelineReleases != 1 {
		t.Errorf("pipeline releases = %d, want 1 (cache cleared on loss)", backend.pipelineReleases)
	}

	// Operations stay rejected until the caller recovers.
	if err := r.RenderToFrame(list); err == nil {
		t.Fatal("rendering while lost must fail")
	}

	backend.submitErr = nil
	if err := r.Recover(); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if err := r.RenderToFrame(list); err != nil {
		t.Fatalf("frame after recovery: %v", err)
	}
	if backend.pipelineCreations != 2 {
		t.Errorf("pipeline creations = %d, want 2 (rebuilt lazily after loss)", backend.pipelineCreations)
	}
}

func TestDefaultClearColorFlowsThroughFramePasses(t *testing.T) {
	backend := &recordingBackend{}
	defaultClear := common.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}
	r := newTestRenderer(t, backend, WithDefaultClearColor(defaultClear))
	if err := r.CreateRenderPipeline(testPipeline(batch.PipelineKindShape, "shape")); err != nil {
		t.Fatal(err)
	}

	if err := r.RenderToFrame(batch.BatchList{}); err != nil {
		t.Fatalf("RenderToFrame: %v", err)
	}
	if len(backend.clears) != 1 || backend.clears[0] == nil {
		t.Fatalf("clears = %v, want one recorded clear", backend.clears)
	}
	if *backend.clears[0] != defaultClear {
		t.Errorf("frame clear = %v, want %v", *backend.clears[0], defaultClear)
	}

	// Per-pass clears override the renderer default within ComposeFrame.
	passClear := common.Color{R: 1, A: 1}
	backend.clears = nil
	pass := NewPass(batch.BatchList{}, WithClearColor(passClear))
	if err := r.ComposeFrame(r.SurfaceTarget(), pass); err != nil {
		t.Fatalf("ComposeFrame: %v", err)
	}
	if len(backend.clears) != 1 || backend.clears[0] == nil || *backend.clears[0] != passClear {
		t.Errorf("pass clear = %v, want %v", backend.clears, passClear)
	}
}

func TestFailedSubmitClearsCachesWithLostState(t *testing.T) {
	backend := &recordingBackend{}
	r := newTestRenderer(t, backend)
	if err := r.CreateRenderPipeline(testPipeline(batch.PipelineKindShape, "shape")); err != nil {
		t.Fatal(err)
	}

	b := batch.NewBatcher()
	if err := b.Add(batch.DrawCommand{
		Kind:         batch.PipelineKindShape,
		Vertices:     []float32{0, 0, 1, 0, 0, 1},
		Indices:      []uint32{0, 1, 2},
		VertexStride: 2,
		Transform:    common.Mat3Identity(),
	}); err != nil {
		t.Fatal(err)
	}
	list := b.Flush()

	// A submit failure that is not device loss still leaves the queue in an
	// unknown state, so the lost state must carry the same empty caches.
	backend.submitErr = errors.New("queue rejected command buffer")
	if err := r.RenderToFrame(list); err == nil {
		t.Fatal("failed submit must surface an error")
	}
	if r.Frame().State() != FrameLost {
		t.Fatalf("lifecycle state = %s, want lost", r.Frame().State())
	}
	if backend.pipelineReleases != 1 {
		t.Errorf("pipeline releases = %d, want 1 (cache cleared alongside lost state)", backend.pipelineReleases)
	}

	backend.submitErr = nil
	if err := r.Recover(); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if err := r.RenderToFrame(list); err != nil {
		t.Fatalf("frame after recovery: %v", err)
	}
	if backend.pipelineCreations != 2 {
		t.Errorf("pipeline creations = %d, want 2 (rebuilt after cache clear)", backend.pipelineCreations)
	}
}

func TestRenderToTextureSkipsPresentation(t *testing.T) {
	backend := &recordingBackend{readback: []byte{1, 2, 3, 4}}
	r := newTestRenderer(t, backend)
	if err := r.CreateRenderPipeline(testPipeline(batch.PipelineKindShape, "shape")); err != nil {
		t.Fatal(err)
	}

	target, err := r.CreateOffscreenTarget(4, 4)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.RenderToTexture(target, batch.BatchList{}); err != nil {
		t.Fatalf("RenderToTexture: %v", err)
	}
	if backend.presents != 0 {
		t.Errorf("presents = %d, want 0 for offscreen target", backend.presents)
	}
	if backend.submits != 1 {
		t.Errorf("submits = %d, want 1", backend.submits)
	}
	if r.Frame().State() != FrameIdle {
		t.Errorf("lifecycle state = %s, want idle", r.Frame().State())
	}

	pixels, err := r.ReadPixels(target)
	if err != nil {
		t.Fatal(err)
	}
	if len(pixels) != 4 {
		t.Errorf("readback length = %d, want 4", len(pixels))
	}
}

func TestComposeFrameRunsPassesInOrder(t *testing.T) {
	backend := &recordingBackend{}
	r := newTestRenderer(t, backend)
	if err := r.CreateRenderPipeline(testPipeline(batch.PipelineKindShape, "shape")); err != nil {
		t.Fatal(err)
	}
	if err := r.CreateRenderPipeline(testPipeline(batch.PipelineKindPath, "path")); err != nil {
		t.Fatal(err)
	}

	makeList := func(kind batch.PipelineKind) batch.BatchList {
		b := batch.NewBatcher()
		cmd := batch.DrawCommand{
			Kind:         kind,
			Vertices:     []float32{0, 0, 1, 0, 0, 1},
			Indices:      []uint32{0, 1, 2},
			VertexStride: 2,
			Transform:    common.Mat3Identity(),
		}
		if err := b.Add(cmd); err != nil {
			t.Fatal(err)
		}
		return b.Flush()
	}

	background := NewPass(makeList(batch.PipelineKindShape), WithClearColor(common.Color{A: 1}))
	overlay := NewPass(makeList(batch.PipelineKindPath))

	if err := r.ComposeFrame(r.SurfaceTarget(), background, overlay); err != nil {
		t.Fatalf("ComposeFrame: %v", err)
	}

	if backend.passes != 2 {
		t.Errorf("passes = %d, want 2", backend.passes)
	}
	if len(backend.draws) != 2 {
		t.Fatalf("draws = %d, want 2", len(backend.draws))
	}
	if backend.draws[0].kind != batch.PipelineKindShape || backend.draws[1].kind != batch.PipelineKindPath {
		t.Errorf("pass order = %v, %v; want shape then path", backend.draws[0].kind, backend.draws[1].kind)
	}
	if backend.uploads != 1 {
		t.Errorf("geometry uploads = %d, want a single merged upload per frame", backend.uploads)
	}
	// The merged index array holds both passes' triangles.
	if len(backend.lastIndices) != 6 {
		t.Errorf("merged indices = %d, want 6", len(backend.lastIndices))
	}
}
