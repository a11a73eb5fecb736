// Package hosttype describes the integer types a target language offers for
// generated arrays.
//
// The table is configuration: the index cost model and the table serializer
// ask it for the smallest type whose range covers the values an array must
// hold, and use that type's byte size as the array's element width.
package hosttype

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoType is returned when no host type covers a requested range.
var ErrNoType = errors.New("no host type covers range")

// Type is one integer type of the target language.
type Type struct {
	Name   string `yaml:"name"`
	Signed bool   `yaml:"signed"`
	Min    int64  `yaml:"min"`
	Max    int64  `yaml:"max"`
	Size   int    `yaml:"size"`
}

// Covers reports whether [lo, hi] fits in the type's range.
func (t Type) Covers(lo, hi int64) bool {
	return lo >= t.Min && hi <= t.Max
}

// String returns the type name.
func (t Type) String() string {
	return t.Name
}

// Table is an ordered list of host types. Lookups scan it in order and return
// the first type that fits, so tables list types from smallest to largest.
type Table []Type

// Go returns the host types of the Go target.
func Go() Table {
	return Table{
		{Name: "int8", Signed: true, Min: math.MinInt8, Max: math.MaxInt8, Size: 1},
		{Name: "uint8", Signed: false, Min: 0, Max: math.MaxUint8, Size: 1},
		{Name: "int16", Signed: true, Min: math.MinInt16, Max: math.MaxInt16, Size: 2},
		{Name: "uint16", Signed: false, Min: 0, Max: math.MaxUint16, Size: 2},
		{Name: "int32", Signed: true, Min: math.MinInt32, Max: math.MaxInt32, Size: 4},
		{Name: "uint32", Signed: false, Min: 0, Max: math.MaxUint32, Size: 4},
		{Name: "int64", Signed: true, Min: math.MinInt64, Max: math.MaxInt64, Size: 8},
	}
}

// C returns the host types of a typical LP64 C target.
func C() Table {
	return Table{
		{Name: "char", Signed: true, Min: math.MinInt8, Max: math.MaxInt8, Size: 1},
		{Name: "unsigned char", Signed: false, Min: 0, Max: math.MaxUint8, Size: 1},
		{Name: "short", Signed: true, Min: math.MinInt16, Max: math.MaxInt16, Size: 2},
		{Name: "unsigned short", Signed: false, Min: 0, Max: math.MaxUint16, Size: 2},
		{Name: "int", Signed: true, Min: math.MinInt32, Max: math.MaxInt32, Size: 4},
		{Name: "unsigned int", Signed: false, Min: 0, Max: math.MaxUint32, Size: 4},
		{Name: "long", Signed: true, Min: math.MinInt64, Max: math.MaxInt64, Size: 8},
	}
}

// ForLang returns the built-in table for a host language name.
func ForLang(lang string) (Table, error) {
	switch lang {
	case "go", "":
		return Go(), nil
	case "c":
		return C(), nil
	default:
		return nil, fmt.Errorf("unknown host language %q", lang)
	}
}

// Smallest returns the first type in the table covering [lo, hi].
func (t Table) Smallest(lo, hi int64) (Type, error) {
	if hi < lo {
		lo, hi = hi, lo
	}
	for _, ht := range t {
		if ht.Covers(lo, hi) {
			return ht, nil
		}
	}
	return Type{}, fmt.Errorf("%w [%d, %d]", ErrNoType, lo, hi)
}

// SizeOf returns the byte width of the smallest type able to store values in
// [0, maxVal].
func (t Table) SizeOf(maxVal int64) (int, error) {
	ht, err := t.Smallest(0, maxVal)
	if err != nil {
		return 0, err
	}
	return ht.Size, nil
}

// Lookup returns the type with the given name.
func (t Table) Lookup(name string) (Type, bool) {
	for _, ht := range t {
		if ht.Name == name {
			return ht, true
		}
	}
	return Type{}, false
}

// Validate checks that every entry is well formed.
func (t Table) Validate() error {
	if len(t) == 0 {
		return errors.New("empty host type table")
	}
	for _, ht := range t {
		if ht.Max < ht.Min {
			return fmt.Errorf("host type %q: max %d < min %d", ht.Name, ht.Max, ht.Min)
		}
		if ht.Size <= 0 {
			return fmt.Errorf("host type %q: size must be > 0", ht.Name)
		}
	}
	return nil
}
