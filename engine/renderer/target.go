package renderer

// RenderTarget identifies where a frame's output goes: the window surface or
// an offscreen texture. Offscreen targets support pixel readback; surface
// targets are presented to the display.
type RenderTarget interface {
	// Width returns the target width in pixels.
	//
	// Returns:
	//   - int: the width
	Width() int

	// Height returns the target height in pixels.
	//
	// Returns:
	//   - int: the height
	Height() int

	// Offscreen reports whether this target renders to a texture rather than
	// the window surface. Offscreen frames skip presentation and are read
	// back instead.
	//
	// Returns:
	//   - bool: true for texture targets
	Offscreen() bool

	// Release releases any GPU resources held by the target. Surface targets
	// own nothing and ignore this.
	Release()
}

// surfaceTarget renders to the window surface. It owns no GPU resources; the
// backend acquires a fresh swapchain texture for it each frame.
type surfaceTarget struct {
	width, height int
}

var _ RenderTarget = &surfaceTarget{}

func (t *surfaceTarget) Width() int      { return t.width }
func (t *surfaceTarget) Height() int     { return t.height }
func (t *surfaceTarget) Offscreen() bool { return false }
func (t *surfaceTarget) Release()        {}
