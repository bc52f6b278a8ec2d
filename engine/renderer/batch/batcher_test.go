package batch

import (
	"errors"
	"testing"

	"github.com/ember2d/ember-go/common"
)

// quad builds a unit quad command with the given kind and bind key. Each
// vertex is x, y (stride 2).
func quad(kind PipelineKind, key ResourceKey) DrawCommand {
	return DrawCommand{
		Kind: kind,
		Vertices: []float32{
			0, 0,
			1, 0,
			1, 1,
			0, 1,
		},
		Indices:      []uint32{0, 1, 2, 2, 3, 0},
		VertexStride: 2,
		Transform:    common.Mat3Identity(),
		BindKey:      key,
	}
}

func mustAdd(t *testing.T, b Batcher, cmds ...DrawCommand) {
	t.Helper()
	for i, cmd := range cmds {
		if err := b.Add(cmd); err != nil {
			t.Fatalf("add %d: unexpected error %v", i, err)
		}
	}
}

func TestFlushEmptyYieldsNoBatches(t *testing.T) {
	b := NewBatcher()
	list := b.Flush()
	if len(list.Batches) != 0 {
		t.Errorf("expected 0 batches, got %d", len(list.Batches))
	}
	if len(list.Vertices) != 0 || len(list.Indices) != 0 {
		t.Errorf("expected empty geometry, got %d vertices / %d indices", len(list.Vertices), len(list.Indices))
	}
}

func TestFlushMergesIdenticalKeys(t *testing.T) {
	b := NewBatcher()
	key := KeyOf("atlas.png", "linear")
	mustAdd(t, b, quad(PipelineKindSprite, key), quad(PipelineKindSprite, key), quad(PipelineKindSprite, key))

	list := b.Flush()
	if len(list.Batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(list.Batches))
	}

	batch := list.Batches[0]
	if batch.DrawCount != 3 {
		t.Errorf("expected draw count 3, got %d", batch.DrawCount)
	}
	if batch.VertexCount() != 12 {
		t.Errorf("expected 12 vertices, got %d", batch.VertexCount())
	}
	if batch.IndexCount() != 18 {
		t.Errorf("expected 18 indices, got %d", batch.IndexCount())
	}
	if b.Len() != 0 {
		t.Errorf("expected command list cleared after flush, got %d", b.Len())
	}
}

func TestFlushRebasesIndicesPerCommand(t *testing.T) {
	b := NewBatcher()
	key := KeyOf("atlas.png")
	mustAdd(t, b, quad(PipelineKindSprite, key), quad(PipelineKindSprite, key))

	list := b.Flush()
	want := []uint32{0, 1, 2, 2, 3, 0, 4, 5, 6, 6, 7, 4}
	if len(list.Indices) != len(want) {
		t.Fatalf("expected %d indices, got %d", len(want), len(list.Indices))
	}
	for i, idx := range want {
		if list.Indices[i] != idx {
			t.Errorf("index %d: expected %d, got %d", i, idx, list.Indices[i])
		}
	}
}

func TestFlushSplitsOnKeyAlternation(t *testing.T) {
	b := NewBatcher()
	keyA := KeyOf("a.png")
	keyB := KeyOf("b.png")

	// Maximal runs: A A | B | A | B B  -> 4 batches.
	mustAdd(t, b,
		quad(PipelineKindSprite, keyA),
		quad(PipelineKindSprite, keyA),
		quad(PipelineKindSprite, keyB),
		quad(PipelineKindSprite, keyA),
		quad(PipelineKindSprite, keyB),
		quad(PipelineKindSprite, keyB),
	)

	list := b.Flush()
	if len(list.Batches) != 4 {
		t.Fatalf("expected 4 batches, got %d", len(list.Batches))
	}
	wantCounts := []uint32{2, 1, 1, 2}
	wantKeys := []ResourceKey{keyA, keyB, keyA, keyB}
	for i, batch := range list.Batches {
		if batch.DrawCount != wantCounts[i] {
			t.Errorf("batch %d: expected draw count %d, got %d", i, wantCounts[i], batch.DrawCount)
		}
		if batch.BindKey != wantKeys[i] {
			t.Errorf("batch %d: expected key %d, got %d", i, wantKeys[i], batch.BindKey)
		}
	}
}

func TestFlushSplitsOnPipelineKindChange(t *testing.T) {
	b := NewBatcher()
	mustAdd(t, b,
		quad(PipelineKindShape, NoBindKey),
		quad(PipelineKindPath, NoBindKey),
	)

	list := b.Flush()
	if len(list.Batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(list.Batches))
	}
	if list.Batches[0].Kind != PipelineKindShape || list.Batches[1].Kind != PipelineKindPath {
		t.Errorf("expected shape then path, got %s then %s", list.Batches[0].Kind, list.Batches[1].Kind)
	}
}

func TestFlushSplitsAtVertexCeiling(t *testing.T) {
	// Ceiling of 10 vertices: three 4-vertex quads cannot share one batch.
	b := NewBatcher(WithMaxBatchVertices(10))
	key := KeyOf("a.png")
	mustAdd(t, b, quad(PipelineKindSprite, key), quad(PipelineKindSprite, key), quad(PipelineKindSprite, key))

	list := b.Flush()
	if len(list.Batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(list.Batches))
	}
	if list.Batches[0].DrawCount != 2 || list.Batches[1].DrawCount != 1 {
		t.Errorf("expected draw counts 2 and 1, got %d and %d",
			list.Batches[0].DrawCount, list.Batches[1].DrawCount)
	}
	// Same key on both sides of the split.
	if list.Batches[0].BindKey != key || list.Batches[1].BindKey != key {
		t.Errorf("expected both batches to keep key %d", key)
	}
}

func TestAddRejectsOversizedCommand(t *testing.T) {
	b := NewBatcher(WithMaxBatchVertices(3))
	err := b.Add(quad(PipelineKindShape, NoBindKey))
	if err == nil {
		t.Fatal("expected overflow error for oversized command")
	}
	var overflow *BatchOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected *BatchOverflowError, got %T: %v", err, err)
	}
	if overflow.Vertices != 4 || overflow.MaxVertices != 3 {
		t.Errorf("expected 4/3 vertices in error, got %d/%d", overflow.Vertices, overflow.MaxVertices)
	}
	if b.Len() != 0 {
		t.Errorf("rejected command must not be accumulated, got len %d", b.Len())
	}
}

func TestAddValidatesGeometry(t *testing.T) {
	tests := []struct {
		name string
		cmd  DrawCommand
	}{
		{"empty vertices", DrawCommand{Kind: PipelineKindShape, Indices: []uint32{0}, VertexStride: 2}},
		{"empty indices", DrawCommand{Kind: PipelineKindShape, Vertices: []float32{0, 0}, VertexStride: 2}},
		{"zero stride", DrawCommand{Kind: PipelineKindShape, Vertices: []float32{0, 0}, Indices: []uint32{0}}},
		{"ragged stride", DrawCommand{Kind: PipelineKindShape, Vertices: []float32{0, 0, 1}, Indices: []uint32{0}, VertexStride: 2}},
		{"index out of range", DrawCommand{Kind: PipelineKindShape, Vertices: []float32{0, 0}, Indices: []uint32{1}, VertexStride: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBatcher()
			if err := b.Add(tt.cmd); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestKeyOfIsStable(t *testing.T) {
	a := KeyOf("tex.png", "nearest")
	b := KeyOf("tex.png", "nearest")
	if a != b {
		t.Errorf("identical descriptions must collide: %d vs %d", a, b)
	}
	if a == NoBindKey {
		t.Error("derived key must never equal NoBindKey")
	}
	if KeyOf("tex.png", "nearest") == KeyOf("tex.png", "linear") {
		t.Error("distinct descriptions should not collide")
	}
	// Concatenation across parts must not alias: ("ab","c") != ("a","bc").
	if KeyOf("ab", "c") == KeyOf("a", "bc") {
		t.Error("part boundaries must be significant")
	}
}
