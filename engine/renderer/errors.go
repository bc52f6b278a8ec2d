package renderer

import (
	"fmt"
)

// AcquireError reports a failure to acquire the next surface texture. It is
// recoverable: the frame returns to the idle state and the caller should
// retry on the next tick. Typical causes are an outdated or temporarily lost
// surface after a resize.
type AcquireError struct {
	// Reason describes why acquisition failed (e.g. "surface outdated").
	Reason string
	// Err is the underlying backend error, if any.
	Err error
}

func (e *AcquireError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("acquire surface texture: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("acquire surface texture: %s", e.Reason)
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}

// PipelineCreationError reports a failed pipeline creation, usually a shader
// compile error. It is fatal to the request but not to the session: the
// resource cache is left exactly as it was before the attempt.
type PipelineCreationError struct {
	// Label identifies the pipeline that failed to build.
	Label string
	// Diagnostic carries the compiler output when the backend provides one.
	Diagnostic string
	// Err is the underlying backend error, if any.
	Err error
}

func (e *PipelineCreationError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("create pipeline %q: %s", e.Label, e.Diagnostic)
	}
	return fmt.Sprintf("create pipeline %q: %v", e.Label, e.Err)
}

func (e *PipelineCreationError) Unwrap() error {
	return e.Err
}

// ResourceCreationError reports a failed buffer, texture, or sampler
// creation. Fatal to the request; the resource cache is left consistent.
type ResourceCreationError struct {
	// Resource names the kind of resource that failed ("vertex buffer",
	// "texture", ...).
	Resource string
	// Err is the underlying backend error, if any.
	Err error
}

func (e *ResourceCreationError) Error() string {
	return fmt.Sprintf("create %s: %v", e.Resource, e.Err)
}

func (e *ResourceCreationError) Unwrap() error {
	return e.Err
}

// DeviceLostError reports that the GPU device was lost. It is fatal to the
// session's GPU resources: the renderer clears its resource cache and the
// frame lifecycle enters the lost state. Recovery requires rebuilding
// resources from their descriptions.
type DeviceLostError struct {
	// Reason is the backend's device-loss reason, if reported.
	Reason string
}

func (e *DeviceLostError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("gpu device lost: %s", e.Reason)
	}
	return "gpu device lost"
}

// StateError reports a frame-lifecycle operation attempted from a state that
// does not permit it, such as submitting a frame that was never acquired.
type StateError struct {
	// Op is the operation that was attempted.
	Op string
	// From is the state the lifecycle was in at the time.
	From FrameState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("frame lifecycle: %s not valid in state %s", e.Op, e.From)
}
