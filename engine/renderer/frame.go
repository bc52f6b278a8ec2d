package renderer

// FrameState identifies where a frame is in its lifecycle. A frame advances
// Idle → Acquired → Encoding → Submitted → Presented → Idle; it can be
// abandoned back to Idle at any point before submission, and device loss
// moves it to Lost from any state.
type FrameState int

const (
	// FrameIdle means no frame is in flight.
	FrameIdle FrameState = iota

	// FrameAcquired means a target texture has been acquired for this frame.
	FrameAcquired

	// FrameEncoding means draw commands are being encoded into the frame.
	FrameEncoding

	// FrameSubmitted means the frame's command buffer has been handed to the
	// GPU queue. Submission is irreversible.
	FrameSubmitted

	// FramePresented means the frame has been presented (or, for offscreen
	// targets, its work is complete and ready for readback).
	FramePresented

	// FrameLost means the GPU device was lost. Leaving this state requires
	// Reset after the caller has cleared its GPU resources.
	FrameLost
)

// String returns the lowercase name of the state.
//
// Returns:
//   - string: the state name
func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "idle"
	case FrameAcquired:
		return "acquired"
	case FrameEncoding:
		return "encoding"
	case FrameSubmitted:
		return "submitted"
	case FramePresented:
		return "presented"
	case FrameLost:
		return "lost"
	default:
		return "unknown"
	}
}

// frameLifecycle is the implementation of the FrameLifecycle interface.
type frameLifecycle struct {
	state FrameState

	// dirty is set by the first draw encoded into the current frame. It is
	// advisory: presenting a clean frame is allowed.
	dirty bool
}

// FrameLifecycle validates the ordering of frame operations. Every transition
// either succeeds or returns a *StateError; the state is never left between
// two states.
type FrameLifecycle interface {
	// State returns the current frame state.
	//
	// Returns:
	//   - FrameState: the current state
	State() FrameState

	// Acquire transitions Idle → Acquired after a target texture has been
	// obtained for the frame.
	//
	// Returns:
	//   - error: a *StateError if the lifecycle is not idle
	Acquire() error

	// BeginEncoding transitions Acquired → Encoding. Draw commands may be
	// recorded only while encoding.
	//
	// Returns:
	//   - error: a *StateError if no frame is acquired
	BeginEncoding() error

	// Submit transitions Encoding → Submitted. Submission is irreversible:
	// the frame can no longer be abandoned.
	//
	// Returns:
	//   - error: a *StateError if the frame is not encoding
	Submit() error

	// Present transitions Submitted → Presented. For offscreen targets this
	// is a pure state advance; no surface presentation occurs.
	//
	// Returns:
	//   - error: a *StateError if the frame is not submitted
	Present() error

	// Finish transitions Presented → Idle, completing the frame and clearing
	// the dirty flag.
	//
	// Returns:
	//   - error: a *StateError if the frame is not presented
	Finish() error

	// Abandon discards an in-flight frame and returns to Idle. Valid from
	// Acquired or Encoding (nothing has reached the GPU yet) and a no-op
	// from Idle. Abandoning a submitted frame is an error.
	//
	// Returns:
	//   - error: a *StateError if the frame has already been submitted or the device is lost
	Abandon() error

	// MarkLost transitions to Lost from any state. Called when the backend
	// reports device loss.
	MarkLost()

	// Reset transitions Lost → Idle. The caller must have cleared its GPU
	// resources first; cached handles from the lost device are invalid.
	//
	// Returns:
	//   - error: a *StateError if the device is not lost
	Reset() error

	// MarkDirty records that at least one draw has been encoded into the
	// current frame.
	MarkDirty()

	// Dirty reports whether the current frame has encoded any draws. It is
	// informational; clean frames may still be presented.
	//
	// Returns:
	//   - bool: true if a draw has been encoded this frame
	Dirty() bool
}

var _ FrameLifecycle = &frameLifecycle{}

// NewFrameLifecycle creates a FrameLifecycle in the idle state.
//
// Returns:
//   - FrameLifecycle: the newly created lifecycle
func NewFrameLifecycle() FrameLifecycle {
	return &frameLifecycle{state: FrameIdle}
}

func (f *frameLifecycle) State() FrameState {
	return f.state
}

func (f *frameLifecycle) Acquire() error {
	if f.state != FrameIdle {
		return &StateError{Op: "acquire", From: f.state}
	}
	f.state = FrameAcquired
	f.dirty = false
	return nil
}

func (f *frameLifecycle) BeginEncoding() error {
	if f.state != FrameAcquired {
		return &StateError{Op: "begin encoding", From: f.state}
	}
	f.state = FrameEncoding
	return nil
}

func (f *frameLifecycle) Submit() error {
	if f.state != FrameEncoding {
		return &StateError{Op: "submit", From: f.state}
	}
	f.state = FrameSubmitted
	return nil
}

func (f *frameLifecycle) Present() error {
	if f.state != FrameSubmitted {
		return &StateError{Op: "present", From: f.state}
	}
	f.state = FramePresented
	return nil
}

func (f *frameLifecycle) Finish() error {
	if f.state != FramePresented {
		return &StateError{Op: "finish", From: f.state}
	}
	f.state = FrameIdle
	f.dirty = false
	return nil
}

func (f *frameLifecycle) Abandon() error {
	switch f.state {
	case FrameIdle:
		return nil
	case FrameAcquired, FrameEncoding:
		f.state = FrameIdle
		f.dirty = false
		return nil
	default:
		return &StateError{Op: "abandon", From: f.state}
	}
}

func (f *frameLifecycle) MarkLost() {
	f.state = FrameLost
	f.dirty = false
}

func (f *frameLifecycle) Reset() error {
	if f.state != FrameLost {
		return &StateError{Op: "reset", From: f.state}
	}
	f.state = FrameIdle
	return nil
}

func (f *frameLifecycle) MarkDirty() {
	if f.state == FrameEncoding {
		f.dirty = true
	}
}

func (f *frameLifecycle) Dirty() bool {
	return f.dirty
}
