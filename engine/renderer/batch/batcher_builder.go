package batch

// BatcherBuilderOption is a functional option applied to a batcher during construction via NewBatcher.
type BatcherBuilderOption func(*batcher)

// WithMaxBatchVertices overrides the per-batch vertex ceiling. Values below 1
// are ignored.
//
// Parameters:
//   - maxVertices: the maximum vertex count allowed in one batch
//
// Returns:
//   - BatcherBuilderOption: a function that applies the ceiling to a batcher
func WithMaxBatchVertices(maxVertices uint32) BatcherBuilderOption {
	return func(b *batcher) {
		if maxVertices > 0 {
			b.maxVertices = maxVertices
		}
	}
}

// WithMaxBatchIndices overrides the per-batch index ceiling. Values below 1
// are ignored.
//
// Parameters:
//   - maxIndices: the maximum index count allowed in one batch
//
// Returns:
//   - BatcherBuilderOption: a function that applies the ceiling to a batcher
func WithMaxBatchIndices(maxIndices uint32) BatcherBuilderOption {
	return func(b *batcher) {
		if maxIndices > 0 {
			b.maxIndices = maxIndices
		}
	}
}
