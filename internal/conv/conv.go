// Package conv provides checked integer conversions for table values.
//
// Table arrays are stored as int64 regardless of their emitted element type.
// The runtime narrows them to int and StateID when it loads a machine; a value
// that does not fit means the serializer produced a corrupt table, so these
// helpers panic instead of returning an error.
package conv

import "math"

// Int64ToInt converts an int64 table value to int.
// Panics if n does not fit in int on the current platform.
//
//go:inline
func Int64ToInt(n int64) int {
	if n < math.MinInt || n > math.MaxInt {
		panic("integer overflow: int64 value out of int range")
	}
	return int(n)
}

// Int64ToIndex converts an int64 table value to a non-negative int.
// Panics if n < 0 or n does not fit in int.
//
//go:inline
func Int64ToIndex(n int64) int {
	if n < 0 || n > math.MaxInt {
		panic("integer overflow: int64 value is not a valid index")
	}
	return int(n)
}
