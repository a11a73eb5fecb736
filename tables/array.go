package tables

import (
	"fmt"
	"slices"

	"github.com/coregx/fsmc/hosttype"
)

// Array is one generated integer array with its chosen element type.
type Array struct {
	Name   string
	Type   hosttype.Type
	Values []int64
}

// Len returns the number of elements; a nil array has none.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Values)
}

// At returns element i. A nil array reads as all zeros, which is how the
// matcher treats arrays a machine does not need (no actions, no conditions).
func (a *Array) At(i int) int64 {
	if a == nil {
		return 0
	}
	return a.Values[i]
}

// Bytes returns the encoded size of the array.
func (a *Array) Bytes() int {
	if a == nil {
		return 0
	}
	return len(a.Values) * a.Type.Size
}

// Range returns the smallest and largest element, (0, 0) when empty.
func (a *Array) Range() (lo, hi int64) {
	if a.Len() == 0 {
		return 0, 0
	}
	return slices.Min(a.Values), slices.Max(a.Values)
}

// String returns a short description.
func (a *Array) String() string {
	return fmt.Sprintf("%s[%d]%s", a.Name, a.Len(), a.Type.Name)
}

type arrayBuilder struct {
	name   string
	values []int64
}

func (b *arrayBuilder) add(v ...int64) {
	b.values = append(b.values, v...)
}

func (b *arrayBuilder) len() int {
	return len(b.values)
}

func (b *arrayBuilder) finish(host hosttype.Table) (*Array, error) {
	a := &Array{Name: b.name, Values: b.values}
	lo, hi := a.Range()
	ht, err := host.Smallest(lo, hi)
	if err != nil {
		return nil, fmt.Errorf("array %s: %w", b.name, err)
	}
	a.Type = ht
	return a, nil
}
