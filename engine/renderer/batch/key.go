package batch

import "hash/fnv"

// PipelineKind identifies the shader and fixed-function configuration a draw
// command requires. It is a closed set: the batcher's partitioning logic is
// exhaustive over these kinds and no open-ended dispatch is involved.
type PipelineKind uint8

const (
	// PipelineKindShape is untextured filled geometry (rects, circles, fills).
	PipelineKindShape PipelineKind = iota

	// PipelineKindSprite is textured quads sampling a sprite texture.
	PipelineKindSprite

	// PipelineKindText is textured quads sampling a glyph atlas.
	PipelineKindText

	// PipelineKindPath is stroked path geometry tessellated into triangles.
	PipelineKindPath
)

// String returns the kind's name for labels and diagnostics.
func (k PipelineKind) String() string {
	switch k {
	case PipelineKindShape:
		return "shape"
	case PipelineKindSprite:
		return "sprite"
	case PipelineKindText:
		return "text"
	case PipelineKindPath:
		return "path"
	default:
		return "unknown"
	}
}

// ResourceKey is a stable identity for a cacheable GPU object, derived
// deterministically from the resource's description so that two logically
// identical resources collide to the same key across frames. The zero value
// NoBindKey means "no binding required".
type ResourceKey uint64

// NoBindKey marks a draw command that needs no texture/sampler binding set.
const NoBindKey ResourceKey = 0

// KeyOf derives a ResourceKey from the given description parts using FNV-1a.
// The hash is fast and non-cryptographic since keys are looked up every frame
// per draw command; parts must be the resource's full description (e.g.
// texture identity + sampler settings, or shader source + vertex-layout
// signature) so equality is stable across frames.
//
// Parameters:
//   - parts: description strings identifying the resource
//
// Returns:
//   - ResourceKey: the derived key, never NoBindKey
func KeyOf(parts ...string) ResourceKey {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p)) // fnv.Write never returns an error
		_, _ = h.Write([]byte{0})
	}
	sum := h.Sum64()
	if sum == uint64(NoBindKey) {
		// Keep the zero value reserved for "no binding".
		sum = 1
	}
	return ResourceKey(sum)
}
