package tables

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamErrors is returned when the machine carries errors reported
	// by the front end; nothing is serialized in that case.
	ErrUpstreamErrors = errors.New("machine has upstream errors, nothing serialized")

	// ErrFlatSpanTooLarge is returned when a state's key span exceeds the
	// configured flat-table limit.
	ErrFlatSpanTooLarge = errors.New("flat key span too large")

	// ErrNoState is returned when decoding a state that does not exist.
	ErrNoState = errors.New("no such state")
)

// SpanError reports the state whose flat span is too large.
type SpanError struct {
	State int
	Span  int64
	Limit int64
}

// Error implements the error interface
func (e *SpanError) Error() string {
	return fmt.Sprintf("state %d: flat key span %d exceeds limit %d", e.State, e.Span, e.Limit)
}

// Unwrap returns ErrFlatSpanTooLarge
func (e *SpanError) Unwrap() error {
	return ErrFlatSpanTooLarge
}
