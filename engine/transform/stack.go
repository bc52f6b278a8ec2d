// Package transform maintains the hierarchical 2D transform state active while
// draw commands are being emitted. Draw emitters read the current transform
// once to bake geometry into world space; the stack itself holds no GPU state.
package transform

import (
	"errors"

	"github.com/ember2d/ember-go/common"
)

// ErrUnbalancedPop is returned by Pop when the stack is already empty. An
// empty pop indicates a push/pop imbalance in the caller that would corrupt
// every subsequent draw, so it is reported rather than silently ignored.
var ErrUnbalancedPop = errors.New("transform: pop on empty stack")

// stack is the implementation of the Stack interface.
type stack struct {
	// current is the product of all pushed matrices in push order.
	current common.Mat3
	// saved holds the value of current before each push, restored by Pop.
	saved []common.Mat3
}

// Stack composes pushed 3x3 affine transforms into a single current transform.
// Pushing M onto current C yields C' = C * M, so a newly pushed matrix is
// interpreted in the local space established by prior pushes, matching
// hierarchical parent/child transform semantics.
type Stack interface {
	// Push composes m onto the current transform and saves the prior value.
	//
	// Parameters:
	//   - m: the matrix to compose onto the current transform
	Push(m common.Mat3)

	// Pop restores the transform active before the most recent Push.
	//
	// Returns:
	//   - error: ErrUnbalancedPop if the stack is empty, otherwise nil
	Pop() error

	// Current returns the active transform.
	//
	// Returns:
	//   - common.Mat3: the product of all pushed matrices in push order
	Current() common.Mat3

	// Clear resets the stack to identity with zero depth. Called at frame
	// boundaries; a non-zero depth at frame end is a caller bug.
	Clear()

	// Depth returns the number of pushes not yet popped.
	//
	// Returns:
	//   - int: the current stack depth
	Depth() int
}

var _ Stack = &stack{}

// NewStack creates an empty Stack with the identity as its current transform.
//
// Returns:
//   - Stack: the newly created stack
func NewStack() Stack {
	return &stack{
		current: common.Mat3Identity(),
		saved:   make([]common.Mat3, 0, 16),
	}
}

func (s *stack) Push(m common.Mat3) {
	s.saved = append(s.saved, s.current)
	s.current = s.current.Mul(m)
}

func (s *stack) Pop() error {
	if len(s.saved) == 0 {
		return ErrUnbalancedPop
	}
	// Restore the saved value rather than multiplying by an inverse so that
	// balanced push/pop sequences round-trip bit-exactly.
	s.current = s.saved[len(s.saved)-1]
	s.saved = s.saved[:len(s.saved)-1]
	return nil
}

func (s *stack) Current() common.Mat3 {
	return s.current
}

func (s *stack) Clear() {
	s.current = common.Mat3Identity()
	s.saved = s.saved[:0]
}

func (s *stack) Depth() int {
	return len(s.saved)
}
