package batch

import "fmt"

// BatchOverflowError reports a single draw command whose geometry exceeds the
// batching ceilings. This is a content/programming error in the caller: the
// command is rejected immediately and never silently truncated.
type BatchOverflowError struct {
	// Kind is the pipeline kind of the offending command.
	Kind PipelineKind
	// Vertices and Indices are the command's counts.
	Vertices, Indices uint32
	// MaxVertices and MaxIndices are the ceilings in effect.
	MaxVertices, MaxIndices uint32
}

func (e *BatchOverflowError) Error() string {
	return fmt.Sprintf("batch: %s command exceeds batch limits (%d/%d vertices, %d/%d indices)",
		e.Kind, e.Vertices, e.MaxVertices, e.Indices, e.MaxIndices)
}

// batcher is the implementation of the Batcher interface.
type batcher struct {
	commands []DrawCommand

	maxVertices uint32
	maxIndices  uint32
}

// Batcher accumulates the frame's draw commands and partitions them into
// batches on Flush. Commands are processed strictly in submission order —
// draws must land back-to-front exactly as submitted, so no reordering for
// "optimization" is ever performed.
type Batcher interface {
	// Add appends a command to the current frame's command list after
	// validating its geometry.
	//
	// Parameters:
	//   - cmd: the draw command to append
	//
	// Returns:
	//   - error: a *BatchOverflowError if the single command exceeds the
	//     batching ceilings, or a validation error for malformed geometry
	Add(cmd DrawCommand) error

	// Flush partitions the accumulated commands into batches, appends their
	// geometry into the frame vertex/index arrays, and clears the internal
	// list. A new batch starts whenever (Kind, BindKey, VertexStride) differs
	// from the previous command or appending would exceed a ceiling. An empty
	// command list yields a BatchList with zero batches.
	//
	// Returns:
	//   - BatchList: the partitioned batches and merged geometry
	Flush() BatchList

	// Len returns the number of commands accumulated since the last Flush.
	//
	// Returns:
	//   - int: the pending command count
	Len() int
}

var _ Batcher = &batcher{}

// NewBatcher creates a Batcher with the default batching ceilings, optionally
// adjusted by builder options.
//
// Parameters:
//   - options: variadic list of BatcherBuilderOption functions
//
// Returns:
//   - Batcher: the newly created batcher
func NewBatcher(options ...BatcherBuilderOption) Batcher {
	b := &batcher{
		commands:    make([]DrawCommand, 0, 256),
		maxVertices: DefaultMaxBatchVertices,
		maxIndices:  DefaultMaxBatchIndices,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *batcher) Add(cmd DrawCommand) error {
	if len(cmd.Vertices) == 0 || len(cmd.Indices) == 0 {
		return fmt.Errorf("batch: %s command has empty geometry", cmd.Kind)
	}
	if cmd.VertexStride == 0 {
		return fmt.Errorf("batch: %s command has zero vertex stride", cmd.Kind)
	}
	if uint32(len(cmd.Vertices))%cmd.VertexStride != 0 {
		return fmt.Errorf("batch: %s command vertex data (%d floats) is not a multiple of its stride %d",
			cmd.Kind, len(cmd.Vertices), cmd.VertexStride)
	}

	vertexCount := cmd.VertexCount()
	for _, idx := range cmd.Indices {
		if idx >= vertexCount {
			return fmt.Errorf("batch: %s command index %d out of range (%d vertices)", cmd.Kind, idx, vertexCount)
		}
	}

	if vertexCount > b.maxVertices || uint32(len(cmd.Indices)) > b.maxIndices {
		return &BatchOverflowError{
			Kind:        cmd.Kind,
			Vertices:    vertexCount,
			Indices:     uint32(len(cmd.Indices)),
			MaxVertices: b.maxVertices,
			MaxIndices:  b.maxIndices,
		}
	}

	b.commands = append(b.commands, cmd)
	return nil
}

func (b *batcher) Flush() BatchList {
	var list BatchList
	if len(b.commands) == 0 {
		return list
	}

	var cur *Batch
	for i := range b.commands {
		cmd := &b.commands[i]
		vertexCount := cmd.VertexCount()
		indexCount := uint32(len(cmd.Indices))

		if cur == nil ||
			cur.Kind != cmd.Kind ||
			cur.BindKey != cmd.BindKey ||
			cur.VertexStride != cmd.VertexStride ||
			cur.VertexCount()+vertexCount > b.maxVertices ||
			cur.IndexCount()+indexCount > b.maxIndices {
			start := uint32(len(list.Indices))
			vstart := b.vertexCursor(&list, cmd.VertexStride, cur)
			list.Batches = append(list.Batches, Batch{
				Kind:         cmd.Kind,
				BindKey:      cmd.BindKey,
				VertexStride: cmd.VertexStride,
				VertexRange:  [2]uint32{vstart, vstart},
				IndexRange:   [2]uint32{start, start},
			})
			cur = &list.Batches[len(list.Batches)-1]
		}

		// Rebase the command's indices against the batch's first vertex so a
		// single SetVertexBuffer offset serves the whole batch.
		base := cur.VertexCount()
		for _, idx := range cmd.Indices {
			list.Indices = append(list.Indices, idx+base)
		}
		list.Vertices = append(list.Vertices, cmd.Vertices...)

		cur.VertexRange[1] += vertexCount
		cur.IndexRange[1] += indexCount
		cur.DrawCount++
	}

	b.commands = b.commands[:0]
	return list
}

func (b *batcher) Len() int {
	return len(b.commands)
}

// vertexCursor returns the vertex-unit offset at which the next batch starts.
// Strides may differ across batches, so when the stride changes the float
// array is padded up to a stride boundary; the padding is never referenced by
// any index.
func (b *batcher) vertexCursor(list *BatchList, stride uint32, prev *Batch) uint32 {
	if prev != nil && prev.VertexStride == stride {
		return prev.VertexRange[1]
	}
	for uint32(len(list.Vertices))%stride != 0 {
		list.Vertices = append(list.Vertices, 0)
	}
	return uint32(len(list.Vertices)) / stride
}
