package draw

import (
	"testing"

	"github.com/ember2d/ember-go/common"
	"github.com/ember2d/ember-go/engine/renderer/batch"
	"github.com/ember2d/ember-go/engine/transform"
)

const epsilon = 1e-5

func near(a, b float32) bool {
	d := a - b
	return d < epsilon && d > -epsilon
}

func TestRectBakesCurrentTransform(t *testing.T) {
	ts := transform.NewStack()
	ts.Push(common.Mat3Translate(10, 20))

	cmd := Rect(ts, 0, 0, 4, 2, common.Color{R: 1, A: 1})

	if cmd.Kind != batch.PipelineKindShape {
		t.Fatalf("kind = %v, want shape", cmd.Kind)
	}
	if cmd.VertexCount() != 4 || len(cmd.Indices) != 6 {
		t.Fatalf("geometry = %d verts / %d indices, want 4 / 6", cmd.VertexCount(), len(cmd.Indices))
	}
	// Top-left corner lands at the translated origin.
	if !near(cmd.Vertices[0], 10) || !near(cmd.Vertices[1], 20) {
		t.Errorf("first corner = (%v, %v), want (10, 20)", cmd.Vertices[0], cmd.Vertices[1])
	}
	// Bottom-right corner translated by the same offset.
	stride := int(cmd.VertexStride)
	bx, by := cmd.Vertices[2*stride], cmd.Vertices[2*stride+1]
	if !near(bx, 14) || !near(by, 22) {
		t.Errorf("third corner = (%v, %v), want (14, 22)", bx, by)
	}
	// The transform was baked, not deferred.
	if cmd.Transform != common.Mat3Identity() {
		t.Error("emitted command must carry the identity transform")
	}
}

func TestRectUsesScaleFromStack(t *testing.T) {
	ts := transform.NewStack()
	ts.Push(common.Mat3Scale(2, 3))

	cmd := Rect(ts, 1, 1, 1, 1, common.Color{A: 1})

	stride := int(cmd.VertexStride)
	// Corner order: TL, TR, BR, BL.
	wantX := []float32{2, 4, 4, 2}
	wantY := []float32{3, 3, 6, 6}
	for i := 0; i < 4; i++ {
		x, y := cmd.Vertices[i*stride], cmd.Vertices[i*stride+1]
		if !near(x, wantX[i]) || !near(y, wantY[i]) {
			t.Errorf("corner %d = (%v, %v), want (%v, %v)", i, x, y, wantX[i], wantY[i])
		}
	}
}

func TestCircleFanGeometry(t *testing.T) {
	ts := transform.NewStack()
	cmd := Circle(ts, 0, 0, 1, 8, common.Color{A: 1})

	if cmd.VertexCount() != 9 {
		t.Fatalf("verts = %d, want center + 8 rim", cmd.VertexCount())
	}
	if len(cmd.Indices) != 24 {
		t.Fatalf("indices = %d, want 24", len(cmd.Indices))
	}
	// Last triangle wraps back to the first rim vertex.
	last := cmd.Indices[len(cmd.Indices)-3:]
	if last[0] != 0 || last[1] != 8 || last[2] != 1 {
		t.Errorf("closing triangle = %v, want [0 8 1]", last)
	}

	// Degenerate segment counts are raised to a drawable minimum.
	if got := Circle(ts, 0, 0, 1, 1, common.Color{A: 1}); got.VertexCount() != 4 {
		t.Errorf("segments=1 verts = %d, want 4 (clamped to 3 segments)", got.VertexCount())
	}
}

func TestSpriteCarriesBindKeyAndUVs(t *testing.T) {
	ts := transform.NewStack()
	key := batch.KeyOf("atlas", "player")

	cmd := Sprite(ts, 0, 0, 16, 16, 0.25, 0.5, 0.75, 1.0, common.Color{R: 1, G: 1, B: 1, A: 1}, key)

	if cmd.Kind != batch.PipelineKindSprite {
		t.Fatalf("kind = %v, want sprite", cmd.Kind)
	}
	if cmd.BindKey != key {
		t.Fatalf("bind key = %v, want %v", cmd.BindKey, key)
	}
	stride := int(cmd.VertexStride)
	// UVs sit after the position in each vertex.
	if !near(cmd.Vertices[2], 0.25) || !near(cmd.Vertices[3], 0.5) {
		t.Errorf("top-left uv = (%v, %v), want (0.25, 0.5)", cmd.Vertices[2], cmd.Vertices[3])
	}
	br := 2 * stride
	if !near(cmd.Vertices[br+2], 0.75) || !near(cmd.Vertices[br+3], 1.0) {
		t.Errorf("bottom-right uv = (%v, %v), want (0.75, 1.0)", cmd.Vertices[br+2], cmd.Vertices[br+3])
	}
}

func TestTextQuadsPacksGlyphRun(t *testing.T) {
	ts := transform.NewStack()
	atlas := batch.KeyOf("font", "16px")

	glyphs := []GlyphQuad{
		{X: 0, Y: 0, W: 8, H: 16, U0: 0, V0: 0, U1: 0.1, V1: 0.5},
		{X: 8, Y: 0, W: 8, H: 16, U0: 0.1, V0: 0, U1: 0.2, V1: 0.5},
		{X: 16, Y: 0, W: 8, H: 16, U0: 0.2, V0: 0, U1: 0.3, V1: 0.5},
	}
	cmd := TextQuads(ts, glyphs, common.Color{A: 1}, atlas)

	if cmd.Kind != batch.PipelineKindText {
		t.Fatalf("kind = %v, want text", cmd.Kind)
	}
	if cmd.VertexCount() != 12 || len(cmd.Indices) != 18 {
		t.Fatalf("geometry = %d verts / %d indices, want 12 / 18", cmd.VertexCount(), len(cmd.Indices))
	}
	// Second glyph's indices reference its own quad.
	if cmd.Indices[6] != 4 {
		t.Errorf("second glyph base index = %d, want 4", cmd.Indices[6])
	}

	// An empty run yields no geometry; the batcher rejects it.
	empty := TextQuads(ts, nil, common.Color{A: 1}, atlas)
	if err := batch.NewBatcher().Add(empty); err == nil {
		t.Error("empty glyph run must be rejected by the batcher")
	}
}

func TestPolylineStrokesSegments(t *testing.T) {
	ts := transform.NewStack()
	points := [][2]float32{{0, 0}, {10, 0}, {10, 10}}

	cmd := Polyline(ts, points, 2, common.Color{A: 1})

	if cmd.Kind != batch.PipelineKindPath {
		t.Fatalf("kind = %v, want path", cmd.Kind)
	}
	// Two segments, one quad each.
	if cmd.VertexCount() != 8 || len(cmd.Indices) != 12 {
		t.Fatalf("geometry = %d verts / %d indices, want 8 / 12", cmd.VertexCount(), len(cmd.Indices))
	}
	// First segment runs along +x, so its stroke extends ±1 in y.
	if !near(cmd.Vertices[1], -1) {
		t.Errorf("first offset vertex y = %v, want -1", cmd.Vertices[1])
	}
	stride := int(cmd.VertexStride)
	if !near(cmd.Vertices[3*stride+1], 1) {
		t.Errorf("opposite edge vertex y = %v, want 1", cmd.Vertices[3*stride+1])
	}

	// Zero-length segments are skipped rather than emitting NaN normals.
	degenerate := Polyline(ts, [][2]float32{{5, 5}, {5, 5}}, 2, common.Color{A: 1})
	if degenerate.VertexCount() != 0 {
		t.Errorf("degenerate polyline verts = %d, want 0", degenerate.VertexCount())
	}

	// Fewer than two points is empty geometry, never a panic.
	for _, pts := range [][][2]float32{nil, {{3, 4}}} {
		empty := Polyline(ts, pts, 2, common.Color{A: 1})
		if empty.VertexCount() != 0 || len(empty.Indices) != 0 {
			t.Errorf("%d-point polyline emitted geometry", len(pts))
		}
	}
}

func TestEmittersComposeThroughNestedTransforms(t *testing.T) {
	ts := transform.NewStack()
	ts.Push(common.Mat3Translate(100, 0))
	ts.Push(common.Mat3Scale(2, 2))

	cmd := Rect(ts, 1, 1, 1, 1, common.Color{A: 1})
	// Scale applies in local space, then the translate: (1,1) → (2,2) → (102,2).
	if !near(cmd.Vertices[0], 102) || !near(cmd.Vertices[1], 2) {
		t.Errorf("corner = (%v, %v), want (102, 2)", cmd.Vertices[0], cmd.Vertices[1])
	}

	if err := ts.Pop(); err != nil {
		t.Fatal(err)
	}
	if err := ts.Pop(); err != nil {
		t.Fatal(err)
	}
	after := Rect(ts, 1, 1, 1, 1, common.Color{A: 1})
	if !near(after.Vertices[0], 1) || !near(after.Vertices[1], 1) {
		t.Errorf("corner after pops = (%v, %v), want (1, 1)", after.Vertices[0], after.Vertices[1])
	}
}
