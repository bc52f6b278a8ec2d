package cache

import "sync/atomic"

// Shared is a reference-counted handle around a GPU resource. The cache holds
// one reference per entry and consumers (batches, passes, the upload path)
// hold independent references, so eviction only drops the cache's reference
// and never destroys a resource still in flight.
//
// The count is atomic because handles may be created or retained off the
// render thread by the asset/upload path; everything else about the resource
// is still confined to the render thread before first use.
type Shared[T any] struct {
	value   T
	refs    atomic.Int32
	destroy func(T)
}

// NewShared wraps value in a handle holding one reference.
//
// Parameters:
//   - value: the resource to share
//   - destroy: runs exactly once when the last reference is released, or nil
//
// Returns:
//   - *Shared[T]: the newly created handle
func NewShared[T any](value T, destroy func(T)) *Shared[T] {
	s := &Shared[T]{
		value:   value,
		destroy: destroy,
	}
	s.refs.Store(1)
	return s
}

// Value returns the shared resource. The caller must hold a reference.
func (s *Shared[T]) Value() T {
	return s.value
}

// Retain adds a reference. Retaining an already-destroyed handle is a caller
// bug and panics, since it would resurrect freed GPU state.
func (s *Shared[T]) Retain() {
	if s.refs.Add(1) <= 1 {
		panic("cache: retain on destroyed handle")
	}
}

// Release drops a reference, destroying the resource when the count reaches
// zero. Releasing more times than retained panics.
func (s *Shared[T]) Release() {
	n := s.refs.Add(-1)
	if n < 0 {
		panic("cache: release on destroyed handle")
	}
	if n == 0 && s.destroy != nil {
		s.destroy(s.value)
	}
}

// Refs returns the current reference count. Diagnostic only; the value may be
// stale the moment it returns.
func (s *Shared[T]) Refs() int32 {
	return s.refs.Load()
}
