// Package batch turns the frame's stream of immediate-mode draw commands into
// a minimal ordered set of batches, each collapsible into one GPU draw call.
package batch

import "github.com/ember2d/ember-go/common"

// Default batching ceilings. A batch never grows past these even when the
// (kind, bind key) pair is unchanged, so each batch maps onto a fixed-size
// underlying buffer region.
const (
	// DefaultMaxBatchVertices is the maximum vertex count in one batch.
	DefaultMaxBatchVertices = 1 << 16

	// DefaultMaxBatchIndices is the maximum index count in one batch.
	DefaultMaxBatchIndices = 1 << 17
)

// DrawCommand is one immediate-mode draw request. Commands are produced by
// the shape/sprite/text/path emitters with vertices already baked into world
// space, consumed exactly once by the Batcher, and never mutated after
// creation.
type DrawCommand struct {
	// Kind selects the pipeline configuration this command requires.
	Kind PipelineKind

	// Vertices is the interleaved vertex data, VertexStride floats per vertex.
	Vertices []float32

	// Indices index into this command's vertices (0-based, rebased by the
	// Batcher when appended to a batch region).
	Indices []uint32

	// VertexStride is the number of float32 components per vertex.
	VertexStride uint32

	// Transform records the world transform the vertices were baked with.
	Transform common.Mat3

	// BindKey identifies the texture/sampler binding set this command needs,
	// or NoBindKey if the pipeline kind needs none.
	BindKey ResourceKey
}

// VertexCount returns the number of vertices in the command.
//
// Returns:
//   - uint32: len(Vertices) / VertexStride, or 0 for an empty command
func (c *DrawCommand) VertexCount() uint32 {
	if c.VertexStride == 0 {
		return 0
	}
	return uint32(len(c.Vertices)) / c.VertexStride
}

// Batch is a contiguous run of draw commands sharing (Kind, BindKey) whose
// geometry has been appended into a shared frame buffer region. All commands
// inside one batch are submitted as a single GPU draw call with the same
// pipeline and bind group bound. Batches are recreated every frame and never
// persisted.
type Batch struct {
	// Kind is the pipeline configuration bound for this batch's draw call.
	Kind PipelineKind

	// BindKey is the binding set bound for this batch, or NoBindKey.
	BindKey ResourceKey

	// VertexStride is the float32 components per vertex for this batch.
	VertexStride uint32

	// VertexRange is the [start, end) range in the frame vertex array, in
	// vertex units (multiply by VertexStride for float offsets).
	VertexRange [2]uint32

	// IndexRange is the [start, end) range in the frame index array. Indices
	// inside the range are relative to VertexRange[0].
	IndexRange [2]uint32

	// DrawCount is the number of draw commands merged into this batch.
	DrawCount uint32
}

// VertexCount returns the number of vertices covered by the batch.
func (b *Batch) VertexCount() uint32 {
	return b.VertexRange[1] - b.VertexRange[0]
}

// IndexCount returns the number of indices covered by the batch.
func (b *Batch) IndexCount() uint32 {
	return b.IndexRange[1] - b.IndexRange[0]
}

// BatchList is the result of one Flush: the ordered batches plus the frame's
// merged vertex and index arrays the batch ranges point into.
type BatchList struct {
	// Batches are the partitioned batches in submission order.
	Batches []Batch

	// Vertices is the frame's merged vertex data.
	Vertices []float32

	// Indices is the frame's merged index data, rebased per batch.
	Indices []uint32
}
