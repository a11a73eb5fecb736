package fsm

import (
	"errors"
	"fmt"
)

// Common machine errors.
var (
	// ErrInvalidState indicates a reference to a state that does not exist.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidAction indicates a reference to an action that does not exist.
	ErrInvalidAction = errors.New("invalid action")

	// ErrOverlap indicates overlapping transitions within one state.
	ErrOverlap = errors.New("overlapping transitions")

	// ErrUnreachable indicates a state that cannot be reached from any entry.
	ErrUnreachable = errors.New("unreachable state")

	// ErrNoStart indicates the machine has no start state.
	ErrNoStart = errors.New("no start state")
)

// BuildError reports a problem found while assembling a machine with Builder.
type BuildError struct {
	Message string
	StateID StateID
}

// Error implements the error interface
func (e *BuildError) Error() string {
	if e.StateID != NoState {
		return fmt.Sprintf("machine build error at state %d: %s", e.StateID, e.Message)
	}
	return fmt.Sprintf("machine build error: %s", e.Message)
}

// ValidationError reports an upstream automaton defect found by Validate.
type ValidationError struct {
	StateID StateID
	Err     error
	Detail  string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("state %d: %v: %s", e.StateID, e.Err, e.Detail)
	}
	return fmt.Sprintf("state %d: %v", e.StateID, e.Err)
}

// Unwrap returns the underlying sentinel error
func (e *ValidationError) Unwrap() error {
	return e.Err
}
