package exec

import "errors"

var (
	// ErrStackOverflow indicates a call with the call stack full.
	ErrStackOverflow = errors.New("exec: call stack overflow")

	// ErrStackUnderflow indicates a return with the call stack empty.
	ErrStackUnderflow = errors.New("exec: call stack underflow")

	// ErrBufferUnderflow indicates that the cursor was moved before the first
	// symbol still held in the buffer.
	ErrBufferUnderflow = errors.New("exec: cursor before start of buffer")

	// ErrClosed indicates a write to a session that has seen end of input.
	ErrClosed = errors.New("exec: session closed")

	// ErrNoProgram indicates a runner built without a matcher program.
	ErrNoProgram = errors.New("exec: nil program")
)
