package compact

import (
	"errors"
	"fmt"
)

// ErrNoHostType is returned when a table value exceeds every host type.
var ErrNoHostType = errors.New("no host type can hold table values")

// CostError reports which array the cost model could not size.
type CostError struct {
	Array string
	Max   int64
	Err   error
}

// Error implements the error interface
func (e *CostError) Error() string {
	return fmt.Sprintf("cost model: %s (max value %d): %v", e.Array, e.Max, e.Err)
}

// Unwrap returns the underlying error
func (e *CostError) Unwrap() error {
	return e.Err
}

// Is matches ErrNoHostType for every CostError.
func (e *CostError) Is(target error) bool {
	return target == ErrNoHostType
}
