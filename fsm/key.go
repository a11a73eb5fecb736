package fsm

import "fmt"

// Key is a symbol of the automaton's alphabet after signedness normalization.
//
// Keys are plain int64 values so that widened condition keys, which live above
// the alphabet's maximum, share the same ordering as raw symbols. A signed
// 8-bit alphabet stores the byte 0xFF as -1; an unsigned one stores it as 255.
type Key int64

// KeyOps describes the alphabet: its signedness, bounds and symbol width.
//
// Every comparison made by the compactor, the serializer and the generated
// matcher goes through normalized Key values, so signedness is respected
// uniformly once FromSymbol has been applied.
type KeyOps struct {
	// Signed reports whether the alphabet's host type is signed.
	Signed bool

	// Min and Max are the inclusive alphabet bounds.
	Min Key
	Max Key

	// Width is the size of one raw symbol in bytes (1, 2 or 4).
	Width int
}

// Alphabet presets.
var (
	// ByteKeys is the unsigned 8-bit alphabet (Go byte, C unsigned char).
	ByteKeys = KeyOps{Signed: false, Min: 0, Max: 0xFF, Width: 1}

	// CharKeys is the signed 8-bit alphabet (C char on most hosts).
	CharKeys = KeyOps{Signed: true, Min: -128, Max: 127, Width: 1}

	// Uint16Keys is the unsigned 16-bit alphabet.
	Uint16Keys = KeyOps{Signed: false, Min: 0, Max: 0xFFFF, Width: 2}

	// RuneKeys covers Unicode scalar values.
	RuneKeys = KeyOps{Signed: false, Min: 0, Max: 0x10FFFF, Width: 4}
)

// AlphSize returns the number of symbols in the alphabet.
func (k KeyOps) AlphSize() int64 {
	return int64(k.Max-k.Min) + 1
}

// Span returns the number of keys in the closed interval [lo, hi].
func (k KeyOps) Span(lo, hi Key) int64 {
	if hi < lo {
		return 0
	}
	return int64(hi-lo) + 1
}

// Contains reports whether key lies within the alphabet bounds.
func (k KeyOps) Contains(key Key) bool {
	return key >= k.Min && key <= k.Max
}

// FromSymbol converts a raw symbol of Width bytes into a Key, sign-extending
// when the alphabet is signed.
func (k KeyOps) FromSymbol(sym uint32) Key {
	if !k.Signed {
		return Key(sym)
	}
	switch k.Width {
	case 1:
		return Key(int8(sym))
	case 2:
		return Key(int16(sym))
	default:
		return Key(int32(sym))
	}
}

// Validate reports whether the alphabet description is consistent.
func (k KeyOps) Validate() error {
	if k.Max < k.Min {
		return fmt.Errorf("alphabet bounds inverted: min %d > max %d", k.Min, k.Max)
	}
	switch k.Width {
	case 1, 2, 4:
	default:
		return fmt.Errorf("unsupported symbol width %d", k.Width)
	}
	return nil
}

// String returns a human-readable alphabet description.
func (k KeyOps) String() string {
	sign := "unsigned"
	if k.Signed {
		sign = "signed"
	}
	return fmt.Sprintf("%s%d[%d..%d]", sign, k.Width*8, k.Min, k.Max)
}
