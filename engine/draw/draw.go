// Package draw builds batchable draw commands from 2D primitives. Each
// emitter reads the transform stack's current matrix once and bakes it into
// the emitted vertices, so the batcher and the GPU never see per-command
// transforms.
package draw

import (
	"github.com/chewxy/math32"
	"github.com/ember2d/ember-go/common"
	"github.com/ember2d/ember-go/engine/renderer/batch"
	"github.com/ember2d/ember-go/engine/transform"
)

// shapeStride is floats per vertex for solid shapes: position xy + color rgba.
const shapeStride = 6

// spriteStride is floats per vertex for sprites: position xy + uv + color rgba.
const spriteStride = 8

// Rect emits a solid rectangle as two triangles.
//
// Parameters:
//   - ts: the transform stack whose current matrix is baked into the vertices
//   - x, y: the top-left corner in local space
//   - w, h: the rectangle size
//   - color: the fill color
//
// Returns:
//   - batch.DrawCommand: the shape-kind command
func Rect(ts transform.Stack, x, y, w, h float32, color common.Color) batch.DrawCommand {
	m := ts.Current()
	corners := [4][2]float32{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}

	verts := make([]float32, 0, 4*shapeStride)
	for _, c := range corners {
		px, py := m.Apply(c[0], c[1])
		verts = append(verts, px, py, color.R, color.G, color.B, color.A)
	}

	return batch.DrawCommand{
		Kind:         batch.PipelineKindShape,
		Vertices:     verts,
		Indices:      []uint32{0, 1, 2, 2, 3, 0},
		VertexStride: shapeStride,
		Transform:    common.Mat3Identity(),
	}
}

// Circle emits a solid circle as a triangle fan around its center.
//
// Parameters:
//   - ts: the transform stack whose current matrix is baked into the vertices
//   - cx, cy: the center in local space
//   - radius: the circle radius
//   - segments: the number of fan segments; values below 3 are raised to 3
//   - color: the fill color
//
// Returns:
//   - batch.DrawCommand: the shape-kind command
func Circle(ts transform.Stack, cx, cy, radius float32, segments int, color common.Color) batch.DrawCommand {
	if segments < 3 {
		segments = 3
	}
	m := ts.Current()

	verts := make([]float32, 0, (segments+1)*shapeStride)
	px, py := m.Apply(cx, cy)
	verts = append(verts, px, py, color.R, color.G, color.B, color.A)
	for i := 0; i < segments; i++ {
		angle := 2 * math32.Pi * float32(i) / float32(segments)
		px, py := m.Apply(cx+radius*math32.Cos(angle), cy+radius*math32.Sin(angle))
		verts = append(verts, px, py, color.R, color.G, color.B, color.A)
	}

	indices := make([]uint32, 0, segments*3)
	for i := 0; i < segments; i++ {
		next := uint32(i) + 2
		if i == segments-1 {
			next = 1
		}
		indices = append(indices, 0, uint32(i)+1, next)
	}

	return batch.DrawCommand{
		Kind:         batch.PipelineKindShape,
		Vertices:     verts,
		Indices:      indices,
		VertexStride: shapeStride,
		Transform:    common.Mat3Identity(),
	}
}

// Sprite emits a textured quad referencing a binding set by key.
//
// Parameters:
//   - ts: the transform stack whose current matrix is baked into the vertices
//   - x, y: the top-left corner in local space
//   - w, h: the quad size
//   - u0, v0, u1, v1: the texture coordinates of the top-left and bottom-right corners
//   - tint: the color multiplied with the sampled texel
//   - bindKey: the key of the registered binding set holding the texture
//
// Returns:
//   - batch.DrawCommand: the sprite-kind command
func Sprite(ts transform.Stack, x, y, w, h, u0, v0, u1, v1 float32, tint common.Color, bindKey batch.ResourceKey) batch.DrawCommand {
	m := ts.Current()
	corners := [4][4]float32{
		{x, y, u0, v0},
		{x + w, y, u1, v0},
		{x + w, y + h, u1, v1},
		{x, y + h, u0, v1},
	}

	verts := make([]float32, 0, 4*spriteStride)
	for _, c := range corners {
		px, py := m.Apply(c[0], c[1])
		verts = append(verts, px, py, c[2], c[3], tint.R, tint.G, tint.B, tint.A)
	}

	return batch.DrawCommand{
		Kind:         batch.PipelineKindSprite,
		Vertices:     verts,
		Indices:      []uint32{0, 1, 2, 2, 3, 0},
		VertexStride: spriteStride,
		Transform:    common.Mat3Identity(),
		BindKey:      bindKey,
	}
}

// GlyphQuad is one pre-shaped glyph: its quad in local space and its
// coordinates in the glyph atlas.
type GlyphQuad struct {
	X, Y, W, H     float32
	U0, V0, U1, V1 float32
}

// TextQuads emits a run of pre-shaped glyph quads as one text-kind command.
// Shaping (glyph selection and placement) happens upstream; this only bakes
// the transform and packs the geometry.
//
// Parameters:
//   - ts: the transform stack whose current matrix is baked into the vertices
//   - glyphs: the shaped glyph quads in layout order
//   - color: the text color
//   - atlasKey: the key of the registered binding set holding the glyph atlas
//
// Returns:
//   - batch.DrawCommand: the text-kind command; empty glyph runs produce a
//     command with no geometry, which the batcher rejects
func TextQuads(ts transform.Stack, glyphs []GlyphQuad, color common.Color, atlasKey batch.ResourceKey) batch.DrawCommand {
	m := ts.Current()

	verts := make([]float32, 0, len(glyphs)*4*spriteStride)
	indices := make([]uint32, 0, len(glyphs)*6)
	for gi, g := range glyphs {
		corners := [4][4]float32{
			{g.X, g.Y, g.U0, g.V0},
			{g.X + g.W, g.Y, g.U1, g.V0},
			{g.X + g.W, g.Y + g.H, g.U1, g.V1},
			{g.X, g.Y + g.H, g.U0, g.V1},
		}
		for _, c := range corners {
			px, py := m.Apply(c[0], c[1])
			verts = append(verts, px, py, c[2], c[3], color.R, color.G, color.B, color.A)
		}
		base := uint32(gi * 4)
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}

	return batch.DrawCommand{
		Kind:         batch.PipelineKindText,
		Vertices:     verts,
		Indices:      indices,
		VertexStride: spriteStride,
		Transform:    common.Mat3Identity(),
		BindKey:      atlasKey,
	}
}

// Polyline emits a stroked open polyline as triangulated quads, one per
// segment. Joints are butt joints; callers needing round joins can place a
// Circle at each interior point.
//
// Parameters:
//   - ts: the transform stack whose current matrix is baked into the vertices
//   - points: the polyline points as x,y pairs; at least two points
//   - width: the stroke width
//   - color: the stroke color
//
// Returns:
//   - batch.DrawCommand: the path-kind command; fewer than two points produce
//     a command with no geometry, which the batcher rejects
func Polyline(ts transform.Stack, points [][2]float32, width float32, color common.Color) batch.DrawCommand {
	if len(points) < 2 {
		return batch.DrawCommand{
			Kind:         batch.PipelineKindPath,
			VertexStride: shapeStride,
			Transform:    common.Mat3Identity(),
		}
	}
	m := ts.Current()
	half := width / 2

	verts := make([]float32, 0, (len(points)-1)*4*shapeStride)
	indices := make([]uint32, 0, (len(points)-1)*6)
	for i := 0; i+1 < len(points); i++ {
		ax, ay := points[i][0], points[i][1]
		bx, by := points[i+1][0], points[i+1][1]

		dx, dy := bx-ax, by-ay
		length := math32.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		// Unit normal in y-down screen space, scaled to half the stroke
		// width; a segment along +x strokes from y-half down to y+half.
		nx, ny := dy/length*half, -dx/length*half

		quad := [4][2]float32{
			{ax + nx, ay + ny},
			{bx + nx, by + ny},
			{bx - nx, by - ny},
			{ax - nx, ay - ny},
		}
		base := uint32(len(verts) / shapeStride)
		for _, c := range quad {
			px, py := m.Apply(c[0], c[1])
			verts = append(verts, px, py, color.R, color.G, color.B, color.A)
		}
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}

	return batch.DrawCommand{
		Kind:         batch.PipelineKindPath,
		Vertices:     verts,
		Indices:      indices,
		VertexStride: shapeStride,
		Transform:    common.Mat3Identity(),
	}
}
