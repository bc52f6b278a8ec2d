package renderer

import (
	"github.com/ember2d/ember-go/common"
	"github.com/ember2d/ember-go/engine/renderer/batch"
)

// pass is the implementation of the Pass interface.
type pass struct {
	clear *common.Color
	list  batch.BatchList
}

// Pass pairs one flushed batch list with its load behavior. A frame renders
// one or more passes in caller order; the first pass usually clears, later
// passes load the previous contents.
type Pass interface {
	// ClearColor returns the color the pass clears to, or nil to load the
	// target's existing contents.
	//
	// Returns:
	//   - *common.Color: the clear color or nil
	ClearColor() *common.Color

	// List returns the flushed batch list the pass draws.
	//
	// Returns:
	//   - batch.BatchList: the batches and their geometry
	List() batch.BatchList
}

var _ Pass = &pass{}

// NewPass creates a Pass over a flushed batch list. Without options the pass
// loads the target's existing contents.
//
// Parameters:
//   - list: the flushed batch list to draw
//   - options: variadic list of PassBuilderOption functions
//
// Returns:
//   - Pass: the newly created pass
func NewPass(list batch.BatchList, options ...PassBuilderOption) Pass {
	p := &pass{list: list}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// PassBuilderOption is a functional option used to configure a Pass during construction.
type PassBuilderOption func(*pass)

// WithClearColor makes the pass clear the target to the given color before
// drawing.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - PassBuilderOption: a function that sets the clear color
func WithClearColor(c common.Color) PassBuilderOption {
	return func(p *pass) {
		p.clear = &c
	}
}

func (p *pass) ClearColor() *common.Color {
	return p.clear
}

func (p *pass) List() batch.BatchList {
	return p.list
}

// mergePasses concatenates the geometry of every pass into one vertex and one
// index array so the frame needs a single upload, rebasing each batch's
// ranges into the combined arrays. Index values inside a batch are already
// relative to the batch's first vertex, so only the ranges move.
//
// Parameters:
//   - passes: the frame's passes in draw order
//
// Returns:
//   - []float32: the combined vertex data
//   - []uint32: the combined index data
//   - [][]batch.Batch: per-pass batches with ranges into the combined arrays
func mergePasses(passes []Pass) ([]float32, []uint32, [][]batch.Batch) {
	var vertices []float32
	var indices []uint32
	merged := make([][]batch.Batch, len(passes))

	for pi, p := range passes {
		list := p.List()
		batches := make([]batch.Batch, len(list.Batches))
		for bi, b := range list.Batches {
			stride := int(b.VertexStride)

			// Keep each batch's start offset divisible by its own stride so
			// vertex ranges stay in whole-vertex units.
			if rem := len(vertices) % stride; rem != 0 {
				vertices = append(vertices, make([]float32, stride-rem)...)
			}

			vStart := uint32(len(vertices) / stride)
			srcV := list.Vertices[int(b.VertexRange[0])*stride : int(b.VertexRange[1])*stride]
			vertices = append(vertices, srcV...)

			iStart := uint32(len(indices))
			srcI := list.Indices[b.IndexRange[0]:b.IndexRange[1]]
			indices = append(indices, srcI...)

			b.VertexRange = [2]uint32{vStart, vStart + uint32(len(srcV)/stride)}
			b.IndexRange = [2]uint32{iStart, iStart + uint32(len(srcI))}
			batches[bi] = b
		}
		merged[pi] = batches
	}

	return vertices, indices, merged
}
